package server

import (
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
	"github.com/code-payments/marketplace-adapter/pkg/metadata"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

// transactionOptions are accepted by every route that builds a transaction.
type transactionOptions struct {
	Encoding         string  `json:"encoding"`
	ComputeUnitPrice *uint64 `json:"compute_unit_price"`
	Memo             string  `json:"memo"`
}

type userRequest struct {
	transactionOptions
	Wallet      string `json:"wallet"`
	Name        string `json:"name"`
	MetadataUri string `json:"metadata_uri"`
}

type createProjectRequest struct {
	transactionOptions
	Wallet      string `json:"wallet"`
	Title       string `json:"title"`
	MetadataUri string `json:"metadata_uri"`
	Budget      uint64 `json:"budget"`
}

type createApplicationRequest struct {
	transactionOptions
	Wallet      string `json:"wallet"`
	Project     string `json:"project"`
	ProposalUri string `json:"proposal_uri"`
}

type acceptApplicationRequest struct {
	transactionOptions
	Wallet      string `json:"wallet"`
	Project     string `json:"project"`
	Application string `json:"application"`
}

type projectActionRequest struct {
	transactionOptions
	Wallet  string `json:"wallet"`
	Project string `json:"project"`
}

type fundEscrowRequest struct {
	transactionOptions
	Wallet  string `json:"wallet"`
	Project string `json:"project"`
	Amount  uint64 `json:"amount"`
}

type submitTransactionRequest struct {
	Transaction string `json:"transaction"`
	Encoding    string `json:"encoding"`
}

func decodeJsonBody(r *http.Request, maxSize int64, dst interface{}) error {
	if r.Method != http.MethodPost {
		return newBadRequestError("http post expected")
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxSize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return newBadRequestError("invalid json body: %v", err)
	}
	return nil
}

func parsePublicKey(name, value string) (ed25519.PublicKey, error) {
	if len(value) == 0 {
		return nil, newBadRequestError("%s is required", name)
	}

	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != ed25519.PublicKeySize {
		return nil, newBadRequestError("%s is not a public key", name)
	}
	return decoded, nil
}

func queryParam(r *http.Request, name string) string {
	values := r.URL.Query()[name]
	if len(values) < 1 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func parseSignature(value string) (solana.Signature, error) {
	var sig solana.Signature

	decoded, err := base58.Decode(value)
	if err != nil || len(decoded) != len(sig) {
		return sig, newBadRequestError("signature is invalid")
	}
	copy(sig[:], decoded)
	return sig, nil
}

func parseUint64(name, value string) (uint64, error) {
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, newBadRequestError("%s is not an unsigned integer", name)
	}
	return parsed, nil
}

type userView struct {
	Address      string           `json:"address"`
	Authority    string           `json:"authority"`
	ProjectCount uint64           `json:"project_count"`
	Reputation   uint32           `json:"reputation"`
	IsVerified   bool             `json:"is_verified"`
	Name         string           `json:"name"`
	MetadataUri  string           `json:"metadata_uri"`
	CreatedAt    time.Time        `json:"created_at"`
	Metadata     *metadata.Record `json:"metadata,omitempty"`
}

func newUserView(a *marketplace.UserAccount) *userView {
	return &userView{
		Address:      base58.Encode(a.Address),
		Authority:    base58.Encode(a.Authority),
		ProjectCount: a.ProjectCount,
		Reputation:   a.Reputation,
		IsVerified:   a.IsVerified,
		Name:         a.Name,
		MetadataUri:  a.MetadataUri,
		CreatedAt:    a.CreatedAt,
	}
}

type projectView struct {
	Address          string           `json:"address"`
	Owner            string           `json:"owner"`
	Authority        string           `json:"authority"`
	Index            uint64           `json:"index"`
	Budget           uint64           `json:"budget"`
	Status           string           `json:"status"`
	ApplicationCount uint32           `json:"application_count"`
	Hired            string           `json:"hired,omitempty"`
	Title            string           `json:"title"`
	MetadataUri      string           `json:"metadata_uri"`
	CreatedAt        time.Time        `json:"created_at"`
	Metadata         *metadata.Record `json:"metadata,omitempty"`
}

func newProjectView(a *marketplace.ProjectAccount) *projectView {
	v := &projectView{
		Address:          base58.Encode(a.Address),
		Owner:            base58.Encode(a.Owner),
		Authority:        base58.Encode(a.Authority),
		Index:            a.Index,
		Budget:           a.Budget,
		Status:           a.Status.String(),
		ApplicationCount: a.ApplicationCount,
		Title:            a.Title,
		MetadataUri:      a.MetadataUri,
		CreatedAt:        a.CreatedAt,
	}
	if a.Hired != nil {
		v.Hired = base58.Encode(a.Hired)
	}
	return v
}

type applicationView struct {
	Address     string    `json:"address"`
	Applicant   string    `json:"applicant"`
	Project     string    `json:"project"`
	Authority   string    `json:"authority"`
	Status      string    `json:"status"`
	ProposalUri string    `json:"proposal_uri"`
	CreatedAt   time.Time `json:"created_at"`
	User        *userView `json:"user,omitempty"`
}

func newApplicationView(a *marketplace.ApplicationAccount) *applicationView {
	return &applicationView{
		Address:     base58.Encode(a.Address),
		Applicant:   base58.Encode(a.Applicant),
		Project:     base58.Encode(a.Project),
		Authority:   base58.Encode(a.Authority),
		Status:      a.Status.String(),
		ProposalUri: a.ProposalUri,
		CreatedAt:   a.CreatedAt,
	}
}

type escrowView struct {
	Address    string `json:"address"`
	Project    string `json:"project"`
	Client     string `json:"client"`
	Freelancer string `json:"freelancer"`
	Amount     uint64 `json:"amount"`
	Released   bool   `json:"released"`
}

func newEscrowView(a *marketplace.EscrowAccount) *escrowView {
	return &escrowView{
		Address:    base58.Encode(a.Address),
		Project:    base58.Encode(a.Project),
		Client:     base58.Encode(a.Client),
		Freelancer: base58.Encode(a.Freelancer),
		Amount:     a.Amount,
		Released:   a.Released,
	}
}

type failureView struct {
	Address string `json:"address"`
	Error   string `json:"error"`
}
