package server

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
	"github.com/code-payments/marketplace-adapter/pkg/marketplace/marketplacetest"
	"github.com/code-payments/marketplace-adapter/pkg/metadata"
	metadatamemory "github.com/code-payments/marketplace-adapter/pkg/metadata/memory"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
	"github.com/code-payments/marketplace-adapter/pkg/solana/codec"
	"github.com/code-payments/marketplace-adapter/pkg/solana/computebudget"
	"github.com/code-payments/marketplace-adapter/pkg/solana/index"
	"github.com/code-payments/marketplace-adapter/pkg/solana/memo"
	solanamemory "github.com/code-payments/marketplace-adapter/pkg/solana/memory"
	"github.com/code-payments/marketplace-adapter/pkg/testutil"
)

type testEnv struct {
	program  *marketplace.Program
	store    *solanamemory.Store
	resolver *metadatamemory.Resolver
	handler  http.Handler
}

func setup(t *testing.T, overrides *testOverrides) *testEnv {
	reset := testutil.DisableLogging()
	t.Cleanup(reset)

	program := marketplace.DefaultProgram()
	store := solanamemory.New()
	resolver := metadatamemory.New()
	idx := index.New(store, program.ID, program.Registry)

	if overrides == nil {
		overrides = &testOverrides{}
	}
	s := NewMarketplaceServer(program, store, idx, resolver, withManualTestOverrides(overrides))

	return &testEnv{
		program:  program,
		store:    store,
		resolver: resolver,
		handler:  s.Routes(),
	}
}

func (e *testEnv) post(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	marshalled, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(marshalled))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string, query url.Values) *httptest.ResponseRecorder {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) userAddress(t *testing.T, wallet ed25519.PublicKey) ed25519.PublicKey {
	user, _, err := e.program.GetUserAddress(&marketplace.GetUserAddressArgs{Wallet: wallet})
	require.NoError(t, err)
	return user
}

func (e *testEnv) escrowAddress(t *testing.T, project ed25519.PublicKey) ed25519.PublicKey {
	escrow, _, err := e.program.GetEscrowAddress(&marketplace.GetEscrowAddressArgs{Project: project})
	require.NoError(t, err)
	return escrow
}

func (e *testEnv) seedUser(t *testing.T, wallet ed25519.PublicKey, projectCount uint64, createdAt time.Time) ed25519.PublicKey {
	address := e.userAddress(t, wallet)
	e.store.SetAccount(e.program.ID, address, marketplacetest.EncodeUser(&marketplace.UserAccount{
		Authority:    wallet,
		ProjectCount: projectCount,
		Reputation:   7,
		Name:         "user-" + base58.Encode(wallet)[:4],
		MetadataUri:  "ipfs://user/" + base58.Encode(wallet),
		CreatedAt:    createdAt,
	}))
	return address
}

func (e *testEnv) seedProject(t *testing.T, owner, authority ed25519.PublicKey, projectIndex uint64, status marketplace.ProjectStatus, createdAt time.Time) ed25519.PublicKey {
	address, _, err := e.program.GetProjectAddress(&marketplace.GetProjectAddressArgs{User: owner, Index: projectIndex})
	require.NoError(t, err)

	e.store.SetAccount(e.program.ID, address, marketplacetest.EncodeProject(&marketplace.ProjectAccount{
		Owner:       owner,
		Authority:   authority,
		Index:       projectIndex,
		Budget:      1_000_000,
		Status:      status,
		Title:       fmt.Sprintf("project %d", projectIndex),
		MetadataUri: fmt.Sprintf("ipfs://project/%d", projectIndex),
		CreatedAt:   createdAt,
	}))
	return address
}

func (e *testEnv) seedApplication(t *testing.T, applicant, project, authority ed25519.PublicKey, createdAt time.Time) ed25519.PublicKey {
	address, _, err := e.program.GetApplicationAddress(&marketplace.GetApplicationAddressArgs{Applicant: applicant, Project: project})
	require.NoError(t, err)

	e.store.SetAccount(e.program.ID, address, marketplacetest.EncodeApplication(&marketplace.ApplicationAccount{
		Applicant:   applicant,
		Project:     project,
		Authority:   authority,
		Status:      marketplace.ApplicationStatusPending,
		ProposalUri: "ipfs://proposal/" + base58.Encode(applicant),
		CreatedAt:   createdAt,
	}))
	return address
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, jsonContentTypeHeaderValue, rec.Header().Get(contentTypeHeaderName))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	return body
}

func decodeTransaction(t *testing.T, body map[string]interface{}) solana.Transaction {
	require.Equal(t, "base64", body["encoding"])

	raw, err := base64.StdEncoding.DecodeString(body["transaction"].(string))
	require.NoError(t, err)

	var txn solana.Transaction
	require.NoError(t, txn.Unmarshal(raw))
	return txn
}

func instructionNames(t *testing.T, program *marketplace.Program, txn solana.Transaction) []string {
	var names []string
	for _, ix := range txn.Message.Instructions {
		programKey := txn.Message.Accounts[ix.ProgramIndex]
		if !bytes.Equal(programKey, program.ID) {
			names = append(names, base58.Encode(programKey))
			continue
		}

		name, ok := marketplace.InstructionName(ix.Data)
		require.True(t, ok)
		names = append(names, name)
	}
	return names
}

func TestCreateUser(t *testing.T) {
	env := setup(t, nil)
	wallet := testutil.GenerateSolanaKeys(t, 1)[0]

	body := decodeBody(t, env.post(t, v1CreateUserPath, map[string]interface{}{
		"wallet":       base58.Encode(wallet),
		"name":         "alice",
		"metadata_uri": "ipfs://alice",
	}))

	user := env.userAddress(t, wallet)
	assert.Equal(t, base58.Encode(user), body["addresses"].(map[string]interface{})["user"])
	assert.Equal(t, base58.Encode(wallet), body["fee_payer"])

	token, err := env.store.GetFreshnessToken(context.Background())
	require.NoError(t, err)
	freshness := body["freshness"].(map[string]interface{})
	assert.Equal(t, token.Blockhash.String(), freshness["blockhash"])
	assert.EqualValues(t, token.LastValidBlockHeight, freshness["last_valid_block_height"])

	txn := decodeTransaction(t, body)
	require.Len(t, txn.Signatures, 1)
	assert.True(t, txn.Signatures[0].IsZero())
	assert.False(t, txn.IsFullySigned())
	assert.EqualValues(t, wallet, txn.Message.Accounts[0])
	assert.Equal(t, token.Blockhash, txn.Message.RecentBlockhash)
	assert.Equal(t, []string{marketplace.InstructionCreateUser}, instructionNames(t, env.program, txn))
}

func TestCreateUser_Base58AndOptions(t *testing.T) {
	env := setup(t, &testOverrides{
		defaultComputeUnitPrice: 100,
		computeUnitLimit:        200_000,
	})
	wallet := testutil.GenerateSolanaKeys(t, 1)[0]

	body := decodeBody(t, env.post(t, v1CreateUserPath, map[string]interface{}{
		"wallet":   base58.Encode(wallet),
		"name":     "alice",
		"encoding": "base58",
		"memo":     "hello",
	}))
	require.Equal(t, "base58", body["encoding"])

	raw, err := base58.Decode(body["transaction"].(string))
	require.NoError(t, err)
	var txn solana.Transaction
	require.NoError(t, txn.Unmarshal(raw))

	require.Len(t, txn.Message.Instructions, 4)
	limit, err := computebudget.DecompileSetComputeUnitLimit(txn.Message, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 200_000, limit)
	price, err := computebudget.DecompileSetComputeUnitPrice(txn.Message, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 100, price)

	// A caller supplied price wins over the configured default.
	body = decodeBody(t, env.post(t, v1CreateUserPath, map[string]interface{}{
		"wallet":             base58.Encode(wallet),
		"name":               "alice",
		"compute_unit_price": 5,
	}))
	txn = decodeTransaction(t, body)
	price, err = computebudget.DecompileSetComputeUnitPrice(txn.Message, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 5, price)
}

func TestCreateUser_BadRequest(t *testing.T) {
	env := setup(t, nil)
	wallet := base58.Encode(testutil.GenerateSolanaKeys(t, 1)[0])

	for _, body := range []map[string]interface{}{
		{"name": "alice"},
		{"wallet": "not-a-key", "name": "alice"},
		{"wallet": base58.Encode([]byte{1, 2, 3}), "name": "alice"},
		{"wallet": wallet},
		{"wallet": wallet, "name": string(make([]byte, marketplace.MaxNameLength+1))},
		{"wallet": wallet, "name": "alice", "unknown": true},
		{"wallet": wallet, "name": "alice", "encoding": "hex"},
		{"wallet": wallet, "name": "alice", "memo": strings.Repeat("m", memo.MaxLength+1)},
	} {
		testutil.AssertHTTPError(t, env.post(t, v1CreateUserPath, body), http.StatusBadRequest)
	}

	req := httptest.NewRequest(http.MethodPost, v1CreateUserPath, bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	testutil.AssertHTTPError(t, rec, http.StatusBadRequest)
}

func TestRoutes(t *testing.T) {
	env := setup(t, nil)

	testutil.AssertHTTPError(t, env.get(t, v1CreateUserPath, nil), http.StatusMethodNotAllowed)
	testutil.AssertHTTPError(t, env.get(t, "/v1/unknown", nil), http.StatusNotFound)

	rec := env.get(t, v1HealthPath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, v1HealthPath, nil)
	req.Header.Set(requestIdHeaderName, "f47ac10b-58cc-4372-a567-0e02b2c3d479")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "f47ac10b-58cc-4372-a567-0e02b2c3d479", rec.Header().Get(requestIdHeaderName))

	req = httptest.NewRequest(http.MethodGet, v1HealthPath, nil)
	req.Header.Set(requestIdHeaderName, "not-a-uuid")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(requestIdHeaderName))
	assert.NotEmpty(t, rec.Header().Get(requestIdHeaderName))
}

func TestGetUser(t *testing.T) {
	env := setup(t, nil)
	wallets := testutil.GenerateSolanaKeys(t, 2)

	testutil.AssertHTTPError(t, env.get(t, v1GetUserPath, url.Values{"wallet": {"bad"}}), http.StatusBadRequest)
	testutil.AssertHTTPError(t, env.get(t, v1GetUserPath, url.Values{"wallet": {base58.Encode(wallets[0])}}), http.StatusNotFound)

	createdAt := time.Unix(1700000000, 0)
	address := env.seedUser(t, wallets[0], 2, createdAt)
	env.resolver.Set("ipfs://user/"+base58.Encode(wallets[0]), metadata.Record{Name: "Alice", Description: "builder"})

	body := decodeBody(t, env.get(t, v1GetUserPath, url.Values{"wallet": {base58.Encode(wallets[0])}}))
	user := body["user"].(map[string]interface{})
	assert.Equal(t, base58.Encode(address), user["address"])
	assert.Equal(t, base58.Encode(wallets[0]), user["authority"])
	assert.EqualValues(t, 2, user["project_count"])
	assert.EqualValues(t, 7, user["reputation"])
	assert.Equal(t, "Alice", user["metadata"].(map[string]interface{})["name"])
	assert.Equal(t, false, user["metadata"].(map[string]interface{})["is_default"])

	// Missing metadata degrades to a placeholder.
	env.seedUser(t, wallets[1], 0, createdAt)
	body = decodeBody(t, env.get(t, v1GetUserPath, url.Values{"wallet": {base58.Encode(wallets[1])}}))
	assert.Equal(t, true, body["user"].(map[string]interface{})["metadata"].(map[string]interface{})["is_default"])
}

func TestGetUser_StoreUnavailable(t *testing.T) {
	env := setup(t, nil)
	wallet := testutil.GenerateSolanaKeys(t, 1)[0]
	env.seedUser(t, wallet, 0, time.Now())

	logs := testutil.CaptureLogs(t)
	env.store.SetFetchError(errors.New("connection refused"))
	msg := testutil.AssertHTTPError(t, env.get(t, v1GetUserPath, url.Values{"wallet": {base58.Encode(wallet)}}), http.StatusBadGateway)
	assert.NotContains(t, msg, "connection refused")

	entry := logs.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, v1GetUserPath, entry.Data["path"])
	assert.Contains(t, entry.Data[logrus.ErrorKey].(error).Error(), "connection refused")
}

func TestCreateProject(t *testing.T) {
	env := setup(t, nil)
	wallet := testutil.GenerateSolanaKeys(t, 1)[0]

	request := map[string]interface{}{
		"wallet":       base58.Encode(wallet),
		"title":        "logo design",
		"metadata_uri": "ipfs://logo",
		"budget":       500,
	}

	testutil.AssertHTTPError(t, env.post(t, v1CreateProjectPath, request), http.StatusNotFound)

	user := env.seedUser(t, wallet, 3, time.Now())

	body := decodeBody(t, env.post(t, v1CreateProjectPath, request))
	assert.EqualValues(t, 3, body["project_index"])

	project, _, err := env.program.GetProjectAddress(&marketplace.GetProjectAddressArgs{User: user, Index: 3})
	require.NoError(t, err)
	addresses := body["addresses"].(map[string]interface{})
	assert.Equal(t, base58.Encode(project), addresses["project"])
	assert.Equal(t, base58.Encode(env.escrowAddress(t, project)), addresses["escrow"])
	assert.Equal(t, base58.Encode(user), addresses["user"])

	txn := decodeTransaction(t, body)
	assert.Equal(t, []string{marketplace.InstructionCreateProject}, instructionNames(t, env.program, txn))

	request["budget"] = 0
	testutil.AssertHTTPError(t, env.post(t, v1CreateProjectPath, request), http.StatusBadRequest)
}

func TestGetProjects(t *testing.T) {
	env := setup(t, nil)
	wallets := testutil.GenerateSolanaKeys(t, 2)

	start := time.Unix(1700000000, 0)
	alice := env.seedUser(t, wallets[0], 2, start)
	bob := env.seedUser(t, wallets[1], 1, start)

	first := env.seedProject(t, alice, wallets[0], 0, marketplace.ProjectStatusOpen, start.Add(time.Minute))
	second := env.seedProject(t, alice, wallets[0], 1, marketplace.ProjectStatusCompleted, start.Add(2*time.Minute))
	other := env.seedProject(t, bob, wallets[1], 0, marketplace.ProjectStatusOpen, start.Add(3*time.Minute))

	env.resolver.Set("ipfs://project/1", metadata.Record{Name: "second"})

	addressesOf := func(body map[string]interface{}) []string {
		var addresses []string
		for _, p := range body["projects"].([]interface{}) {
			addresses = append(addresses, p.(map[string]interface{})["address"].(string))
		}
		return addresses
	}

	body := decodeBody(t, env.get(t, v1GetProjectsPath, nil))
	assert.Equal(t, []string{base58.Encode(other), base58.Encode(second), base58.Encode(first)}, addressesOf(body))
	assert.Empty(t, body["failures"])

	body = decodeBody(t, env.get(t, v1GetProjectsPath, url.Values{"owner": {base58.Encode(wallets[0])}}))
	assert.Equal(t, []string{base58.Encode(second), base58.Encode(first)}, addressesOf(body))
	projects := body["projects"].([]interface{})
	assert.Equal(t, "second", projects[0].(map[string]interface{})["metadata"].(map[string]interface{})["name"])
	assert.Equal(t, true, projects[1].(map[string]interface{})["metadata"].(map[string]interface{})["is_default"])

	body = decodeBody(t, env.get(t, v1GetProjectsPath, url.Values{"status": {"open"}}))
	assert.Equal(t, []string{base58.Encode(other), base58.Encode(first)}, addressesOf(body))

	body = decodeBody(t, env.get(t, v1GetProjectsPath, url.Values{
		"owner":  {base58.Encode(wallets[1])},
		"status": {"completed"},
	}))
	assert.Empty(t, body["projects"])

	testutil.AssertHTTPError(t, env.get(t, v1GetProjectsPath, url.Values{"status": {"unknown"}}), http.StatusBadRequest)
	testutil.AssertHTTPError(t, env.get(t, v1GetProjectsPath, url.Values{"owner": {"bad"}}), http.StatusBadRequest)
}

func TestGetProjects_PartialFailure(t *testing.T) {
	env := setup(t, nil)
	wallet := testutil.GenerateSolanaKeys(t, 1)[0]
	user := env.seedUser(t, wallet, 1, time.Now())
	project := env.seedProject(t, user, wallet, 0, marketplace.ProjectStatusOpen, time.Now())

	corrupt := testutil.GenerateSolanaKeys(t, 1)[0]
	data := append(codec.AccountDiscriminator(marketplace.KindProject), make([]byte, 10)...)
	env.store.SetAccount(env.program.ID, corrupt, data)

	body := decodeBody(t, env.get(t, v1GetProjectsPath, nil))
	projects := body["projects"].([]interface{})
	require.Len(t, projects, 1)
	assert.Equal(t, base58.Encode(project), projects[0].(map[string]interface{})["address"])

	failures := body["failures"].([]interface{})
	require.Len(t, failures, 1)
	assert.Equal(t, base58.Encode(corrupt), failures[0].(map[string]interface{})["address"])
}

func TestGetProjects_StoreUnavailable(t *testing.T) {
	env := setup(t, nil)
	env.store.SetScanHook(func(ed25519.PublicKey, []solana.Filter) error {
		return errors.New("rpc down")
	})

	testutil.AssertHTTPError(t, env.get(t, v1GetProjectsPath, nil), http.StatusBadGateway)
}

func TestGetProject(t *testing.T) {
	env := setup(t, nil)
	wallets := testutil.GenerateSolanaKeys(t, 3)

	start := time.Unix(1700000000, 0)
	owner := env.seedUser(t, wallets[0], 1, start)
	first := env.seedUser(t, wallets[1], 0, start)
	second := env.seedUser(t, wallets[2], 0, start)
	project := env.seedProject(t, owner, wallets[0], 0, marketplace.ProjectStatusOpen, start)

	late := env.seedApplication(t, second, project, wallets[2], start.Add(2*time.Minute))
	early := env.seedApplication(t, first, project, wallets[1], start.Add(time.Minute))

	// An application to another project is not joined.
	env.seedApplication(t, second, testutil.GenerateSolanaKeys(t, 1)[0], wallets[2], start)

	query := url.Values{"address": {base58.Encode(project)}}

	body := decodeBody(t, env.get(t, v1GetProjectPath, query))
	assert.Equal(t, base58.Encode(project), body["project"].(map[string]interface{})["address"])
	assert.Nil(t, body["escrow"])

	applications := body["applications"].([]interface{})
	require.Len(t, applications, 2)
	assert.Equal(t, base58.Encode(early), applications[0].(map[string]interface{})["address"])
	assert.Equal(t, base58.Encode(late), applications[1].(map[string]interface{})["address"])
	assert.Equal(t, base58.Encode(wallets[1]), applications[0].(map[string]interface{})["user"].(map[string]interface{})["authority"])
	assert.Equal(t, base58.Encode(wallets[2]), applications[1].(map[string]interface{})["user"].(map[string]interface{})["authority"])

	escrow := env.escrowAddress(t, project)
	env.store.SetAccount(env.program.ID, escrow, marketplacetest.EncodeEscrow(&marketplace.EscrowAccount{
		Project: project,
		Client:  wallets[0],
		Amount:  42,
	}))

	body = decodeBody(t, env.get(t, v1GetProjectPath, query))
	assert.EqualValues(t, 42, body["escrow"].(map[string]interface{})["amount"])

	testutil.AssertHTTPError(t, env.get(t, v1GetProjectPath, url.Values{"address": {base58.Encode(wallets[0])}}), http.StatusNotFound)

	env.store.SetScanHook(func(ed25519.PublicKey, []solana.Filter) error {
		return errors.New("rpc down")
	})
	testutil.AssertHTTPError(t, env.get(t, v1GetProjectPath, query), http.StatusBadGateway)
}

func TestApplications(t *testing.T) {
	env := setup(t, nil)
	wallets := testutil.GenerateSolanaKeys(t, 2)

	start := time.Unix(1700000000, 0)
	owner := env.seedUser(t, wallets[0], 2, start)
	applicant := env.seedUser(t, wallets[1], 0, start)
	projects := []ed25519.PublicKey{
		env.seedProject(t, owner, wallets[0], 0, marketplace.ProjectStatusOpen, start),
		env.seedProject(t, owner, wallets[0], 1, marketplace.ProjectStatusOpen, start),
	}

	body := decodeBody(t, env.post(t, v1CreateApplicationPath, map[string]interface{}{
		"wallet":       base58.Encode(wallets[1]),
		"project":      base58.Encode(projects[0]),
		"proposal_uri": "ipfs://proposal",
	}))
	application, _, err := env.program.GetApplicationAddress(&marketplace.GetApplicationAddressArgs{Applicant: applicant, Project: projects[0]})
	require.NoError(t, err)
	assert.Equal(t, base58.Encode(application), body["addresses"].(map[string]interface{})["application"])
	assert.Equal(t, []string{marketplace.InstructionApplyToProject}, instructionNames(t, env.program, decodeTransaction(t, body)))

	testutil.AssertHTTPError(t, env.post(t, v1CreateApplicationPath, map[string]interface{}{
		"wallet":  base58.Encode(wallets[1]),
		"project": base58.Encode(projects[0]),
	}), http.StatusBadRequest)

	older := env.seedApplication(t, applicant, projects[0], wallets[1], start.Add(time.Minute))
	newer := env.seedApplication(t, applicant, projects[1], wallets[1], start.Add(2*time.Minute))

	body = decodeBody(t, env.get(t, v1GetApplicationsPath, url.Values{"applicant": {base58.Encode(wallets[1])}}))
	applications := body["applications"].([]interface{})
	require.Len(t, applications, 2)
	assert.Equal(t, base58.Encode(newer), applications[0].(map[string]interface{})["address"])
	assert.Equal(t, base58.Encode(older), applications[1].(map[string]interface{})["address"])

	body = decodeBody(t, env.get(t, v1GetApplicationsPath, url.Values{"applicant": {base58.Encode(wallets[0])}}))
	assert.Empty(t, body["applications"])

	body = decodeBody(t, env.post(t, v1AcceptApplicationPath, map[string]interface{}{
		"wallet":      base58.Encode(wallets[0]),
		"project":     base58.Encode(projects[0]),
		"application": base58.Encode(older),
	}))
	assert.Equal(t, base58.Encode(env.escrowAddress(t, projects[0])), body["addresses"].(map[string]interface{})["escrow"])
	assert.Equal(t, []string{marketplace.InstructionAcceptApplication}, instructionNames(t, env.program, decodeTransaction(t, body)))
}

func TestEscrow(t *testing.T) {
	env := setup(t, nil)
	wallets := testutil.GenerateSolanaKeys(t, 2)
	project := testutil.GenerateSolanaKeys(t, 1)[0]
	escrow := env.escrowAddress(t, project)

	body := decodeBody(t, env.post(t, v1FundEscrowPath, map[string]interface{}{
		"wallet":  base58.Encode(wallets[0]),
		"project": base58.Encode(project),
		"amount":  1000,
	}))
	assert.Equal(t, base58.Encode(escrow), body["addresses"].(map[string]interface{})["escrow"])
	assert.Equal(t, []string{marketplace.InstructionFundEscrow}, instructionNames(t, env.program, decodeTransaction(t, body)))

	testutil.AssertHTTPError(t, env.post(t, v1FundEscrowPath, map[string]interface{}{
		"wallet":  base58.Encode(wallets[0]),
		"project": base58.Encode(project),
		"amount":  0,
	}), http.StatusBadRequest)

	release := map[string]interface{}{
		"wallet":  base58.Encode(wallets[0]),
		"project": base58.Encode(project),
	}
	testutil.AssertHTTPError(t, env.post(t, v1ReleasePaymentPath, release), http.StatusNotFound)

	env.store.SetAccount(env.program.ID, escrow, marketplacetest.EncodeEscrow(&marketplace.EscrowAccount{
		Project: project,
		Client:  wallets[0],
		Amount:  1000,
	}))
	testutil.AssertHTTPError(t, env.post(t, v1ReleasePaymentPath, release), http.StatusBadRequest)

	env.store.SetAccount(env.program.ID, escrow, marketplacetest.EncodeEscrow(&marketplace.EscrowAccount{
		Project:    project,
		Client:     wallets[0],
		Freelancer: wallets[1],
		Amount:     1000,
	}))
	body = decodeBody(t, env.post(t, v1ReleasePaymentPath, release))
	assert.EqualValues(t, 1000, body["amount"])
	assert.Equal(t, base58.Encode(wallets[1]), body["addresses"].(map[string]interface{})["freelancer"])

	txn := decodeTransaction(t, body)
	assert.Equal(t, []string{marketplace.InstructionReleasePayment}, instructionNames(t, env.program, txn))
	assert.Contains(t, txn.Message.Accounts, ed25519.PublicKey(wallets[1]))

	env.store.SetAccount(env.program.ID, escrow, marketplacetest.EncodeEscrow(&marketplace.EscrowAccount{
		Project:    project,
		Client:     wallets[0],
		Freelancer: wallets[1],
		Amount:     1000,
		Released:   true,
	}))
	testutil.AssertHTTPError(t, env.post(t, v1ReleasePaymentPath, release), http.StatusBadRequest)

	body = decodeBody(t, env.post(t, v1CancelProjectPath, release))
	assert.Equal(t, []string{marketplace.InstructionCancelProject}, instructionNames(t, env.program, decodeTransaction(t, body)))
}

func TestSubmitTransaction(t *testing.T) {
	env := setup(t, nil)
	txn, signer := testutil.NewTransferTransaction(t, solana.Blockhash{1})

	unsigned := base64.StdEncoding.EncodeToString(txn.Marshal())
	testutil.AssertHTTPError(t, env.post(t, v1SubmitTransactionPath, map[string]interface{}{
		"transaction": unsigned,
	}), http.StatusBadRequest)

	testutil.AssertHTTPError(t, env.post(t, v1SubmitTransactionPath, map[string]interface{}{
		"transaction": "%%%",
	}), http.StatusBadRequest)

	testutil.AssertHTTPError(t, env.post(t, v1SubmitTransactionPath, map[string]interface{}{
		"transaction": base64.StdEncoding.EncodeToString([]byte{1, 2, 3}),
	}), http.StatusBadRequest)

	require.NoError(t, txn.Sign(signer))
	body := decodeBody(t, env.post(t, v1SubmitTransactionPath, map[string]interface{}{
		"transaction": base58.Encode(txn.Marshal()),
		"encoding":    "base58",
	}))
	assert.Equal(t, txn.Signatures[0].String(), body["signature"])

	_, ok := env.store.Submitted(txn.Signatures[0])
	assert.True(t, ok)

	body = decodeBody(t, env.get(t, v1TransactionStatusPath, url.Values{
		"signature":   {txn.Signatures[0].String()},
		"valid_until": {"1000"},
	}))
	assert.Equal(t, "confirmed", body["status"])
	assert.EqualValues(t, 1, body["slot"])

	var failed solana.Signature
	failed[0] = 9
	env.store.SetConfirmation(failed, solana.Confirmation{
		Status: solana.TransactionStatusFailed,
		Slot:   5,
		Err:    &solana.TransactionError{Key: solana.TransactionErrorSignatureFailure},
	})
	body = decodeBody(t, env.get(t, v1TransactionStatusPath, url.Values{
		"signature":   {failed.String()},
		"valid_until": {"1000"},
	}))
	assert.Equal(t, "failed", body["status"])
	assert.NotEmpty(t, body["transaction_error"])

	testutil.AssertHTTPError(t, env.get(t, v1TransactionStatusPath, url.Values{
		"signature":   {"bad"},
		"valid_until": {"1000"},
	}), http.StatusBadRequest)
	testutil.AssertHTTPError(t, env.get(t, v1TransactionStatusPath, url.Values{
		"signature": {failed.String()},
	}), http.StatusBadRequest)
}

func TestSubmitTransaction_Rejected(t *testing.T) {
	env := setup(t, nil)
	txn, signer := testutil.NewTransferTransaction(t, solana.Blockhash{1})
	require.NoError(t, txn.Sign(signer))

	env.store.SetSubmitError(&solana.TransactionError{Key: solana.TransactionErrorSignatureFailure})
	msg := testutil.AssertHTTPError(t, env.post(t, v1SubmitTransactionPath, map[string]interface{}{
		"transaction": base64.StdEncoding.EncodeToString(txn.Marshal()),
	}), http.StatusBadRequest)
	assert.Contains(t, msg, "transaction rejected")

	env.store.SetSubmitError(errors.New("rpc down"))
	testutil.AssertHTTPError(t, env.post(t, v1SubmitTransactionPath, map[string]interface{}{
		"transaction": base64.StdEncoding.EncodeToString(txn.Marshal()),
	}), http.StatusBadGateway)
}

func TestHandleErrorInWebContext(t *testing.T) {
	for _, tc := range []struct {
		err      error
		expected int
	}{
		{newBadRequestError("bad"), http.StatusBadRequest},
		{errors.Wrap(solana.ErrSerialization, "too big"), http.StatusInternalServerError},
		{solana.NewStoreError("getAccountInfo", nil, solana.ErrAccountNotFound), http.StatusNotFound},
		{solana.NewStoreError("getAccountInfo", nil, errors.New("down")), http.StatusBadGateway},
		{index.ErrAllFailed, http.StatusBadGateway},
		{errors.Wrap(marketplace.ErrInvalidInstructionArgs, "title"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	} {
		code, displayed := HandleErrorInWebContext(tc.err)
		assert.Equal(t, tc.expected, code, tc.err.Error())
		assert.Error(t, displayed)
	}
}
