package solana

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
	"golang.org/x/time/rate"

	"github.com/code-payments/marketplace-adapter/pkg/metrics"
	"github.com/code-payments/marketplace-adapter/pkg/retry"
	"github.com/code-payments/marketplace-adapter/pkg/retry/backoff"
)

const (
	metricsStructName = "solana.client"

	// todo: we can retrieve these from the Syscall account
	//       but they're unlikely to change.
	ticksPerSec  = 160
	ticksPerSlot = 64
	slotsPerSec  = ticksPerSec / ticksPerSlot

	// PollRate is the rate at which signature statuses are polled.
	PollRate = (time.Second / slotsPerSec) / 2

	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005

	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L7
	sendTransactionPreflightFailureCode = -32002
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

const (
	confirmationStatusProcessed = "processed"
	confirmationStatusConfirmed = "confirmed"
	confirmationStatusFinalized = "finalized"
)

var (
	CommitmentProcessed = Commitment{Commitment: confirmationStatusProcessed}
	CommitmentConfirmed = Commitment{Commitment: confirmationStatusConfirmed}
	CommitmentFinalized = Commitment{Commitment: confirmationStatusFinalized}
)

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

// Option configures the RPC backed AccountStore.
type Option func(c *client)

// WithCommitment sets the commitment used for reads and confirmations.
func WithCommitment(commitment Commitment) Option {
	return func(c *client) {
		c.commitment = commitment
	}
}

// WithRateLimit bounds outgoing requests per second. Zero disables limiting.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1)
	}
}

// WithPollRate sets the interval between confirmation polls.
func WithPollRate(interval time.Duration) Option {
	return func(c *client) {
		c.pollRate = interval
	}
}

// WithRPCClientOpts configures the underlying JSON-RPC client.
func WithRPCClientOpts(opts *jsonrpc.RPCClientOpts) Option {
	return func(c *client) {
		c.rpcOpts = opts
	}
}

// WithRetrier overrides the retry policy for rate limited and unavailable
// responses.
func WithRetrier(retrier retry.Retrier) Option {
	return func(c *client) {
		c.retrier = retrier
	}
}

type client struct {
	log        *logrus.Entry
	client     jsonrpc.RPCClient
	rpcOpts    *jsonrpc.RPCClientOpts
	retrier    retry.Retrier
	limiter    *rate.Limiter
	commitment Commitment
	pollRate   time.Duration
}

// New returns an AccountStore backed by the Solana JSON RPC API at endpoint.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
func New(endpoint string, opts ...Option) AccountStore {
	c := &client{
		log: logrus.StandardLogger().WithField("type", "solana/client"),
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1),
		),
		limiter:    rate.NewLimiter(rate.Inf, 0),
		commitment: CommitmentConfirmed,
		pollRate:   PollRate,
	}
	for _, o := range opts {
		o(c)
	}

	c.client = jsonrpc.NewClientWithOpts(endpoint, c.rpcOpts)
	return c
}

// call performs a retried RPC call. The jsonrpc client is not context aware,
// so the call runs in its own goroutine and is abandoned if ctx is done.
func (c *client) call(ctx context.Context, out interface{}, method string, params ...interface{}) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreCall(method, start, err)
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err = c.retrier.Retry(ctx, func() error {
		type result struct {
			raw json.RawMessage
			err error
		}

		resultCh := make(chan result, 1)
		go func() {
			var raw json.RawMessage
			err := c.client.CallFor(&raw, method, params...)
			resultCh <- result{raw: raw, err: err}
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-resultCh:
			if res.err != nil {
				return c.handleRpcError(method, res.err)
			}
			if len(res.raw) == 0 {
				return nil
			}
			return json.Unmarshal(res.raw, out)
		}
	})

	return err
}

func (c *client) handleRpcError(method string, err error) error {
	switch typed := err.(type) {
	case *jsonrpc.RPCError:
		if typed.Code == 429 {
			c.log.WithField("method", method).Warn("rate limited")
			return errRateLimited
		}
		if typed.Code >= 500 || typed.Code == rpcNodeUnhealthyCode {
			return errServiceError
		}
	case *jsonrpc.HTTPError:
		if typed.Code == 429 {
			c.log.WithField("method", method).Warn("rate limited")
			return errRateLimited
		}
		if typed.Code >= 500 {
			return errServiceError
		}
	}

	return err
}

func (c *client) ScanProgramAccounts(ctx context.Context, program ed25519.PublicKey, filters ...Filter) (accounts []KeyedAccount, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ScanProgramAccounts")
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	type memcmpFilter struct {
		Offset uint   `json:"offset"`
		Bytes  string `json:"bytes"`
	}

	type filter struct {
		Memcmp memcmpFilter `json:"memcmp"`
	}

	config := struct {
		Commitment string   `json:"commitment"`
		Encoding   string   `json:"encoding"`
		Filters    []filter `json:"filters,omitempty"`
	}{
		Commitment: c.commitment.Commitment,
		Encoding:   "base64",
	}
	for _, f := range filters {
		config.Filters = append(config.Filters, filter{
			Memcmp: memcmpFilter{
				Offset: f.Offset,
				Bytes:  base58.Encode(f.Bytes),
			},
		})
	}

	var resp []struct {
		PubKey  string `json:"pubkey"`
		Account struct {
			Data []string `json:"data"`
		} `json:"account"`
	}
	if err := c.call(ctx, &resp, "getProgramAccounts", base58.Encode(program), config); err != nil {
		return nil, NewStoreError("getProgramAccounts", program, err)
	}

	accounts = make([]KeyedAccount, 0, len(resp))
	for _, result := range resp {
		address, err := base58.Decode(result.PubKey)
		if err != nil {
			return nil, NewStoreError("getProgramAccounts", program, errors.Wrap(err, "invalid base58 encoded account address"))
		}
		if len(result.Account.Data) == 0 {
			return nil, NewStoreError("getProgramAccounts", address, errors.New("missing account data"))
		}

		data, err := base64.StdEncoding.DecodeString(result.Account.Data[0])
		if err != nil {
			return nil, NewStoreError("getProgramAccounts", address, errors.Wrap(err, "invalid base64 encoded account data"))
		}

		accounts = append(accounts, KeyedAccount{Address: address, Data: data})
	}

	tracer.AddAttribute("results", len(accounts))
	return accounts, nil
}

func (c *client) FetchAccount(ctx context.Context, address ed25519.PublicKey) (data []byte, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "FetchAccount")
	defer tracer.End()
	defer func() {
		if !IsNotFound(err) {
			tracer.OnError(err)
		}
	}()

	type rpcResponse struct {
		Value *struct {
			Data []string `json:"data"`
		} `json:"value"`
	}

	rpcConfig := struct {
		Commitment string `json:"commitment"`
		Encoding   string `json:"encoding"`
	}{
		Commitment: c.commitment.Commitment,
		Encoding:   "base64",
	}

	var resp rpcResponse
	if err := c.call(ctx, &resp, "getAccountInfo", base58.Encode(address), rpcConfig); err != nil {
		return nil, NewStoreError("getAccountInfo", address, err)
	}

	if resp.Value == nil {
		return nil, NewStoreError("getAccountInfo", address, ErrAccountNotFound)
	}
	if len(resp.Value.Data) == 0 {
		return nil, NewStoreError("getAccountInfo", address, errors.New("missing account data"))
	}

	data, err = base64.StdEncoding.DecodeString(resp.Value.Data[0])
	if err != nil {
		return nil, NewStoreError("getAccountInfo", address, errors.Wrap(err, "invalid base64 encoded data"))
	}

	return data, nil
}

func (c *client) GetFreshnessToken(ctx context.Context) (token FreshnessToken, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "GetFreshnessToken")
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	var resp struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}

	// A lone struct param would be sent as a JSON object, which the RPC
	// node rejects, so it's wrapped in a slice.
	if err := c.call(ctx, &resp, "getLatestBlockhash", []interface{}{c.commitment}); err != nil {
		return token, NewStoreError("getLatestBlockhash", nil, err)
	}

	hashBytes, err := base58.Decode(resp.Value.Blockhash)
	if err != nil {
		return token, NewStoreError("getLatestBlockhash", nil, errors.Wrap(err, "invalid base58 encoded hash in response"))
	}
	if len(hashBytes) != len(token.Blockhash) {
		return token, NewStoreError("getLatestBlockhash", nil, errors.Errorf("invalid blockhash length %d", len(hashBytes)))
	}

	copy(token.Blockhash[:], hashBytes)
	token.LastValidBlockHeight = resp.Value.LastValidBlockHeight
	return token, nil
}

func (c *client) SubmitTransaction(ctx context.Context, raw []byte) (sig Signature, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitTransaction")
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	var txn Transaction
	if err := txn.Unmarshal(raw); err != nil {
		return sig, NewStoreError("sendTransaction", nil, errors.Wrap(err, "invalid transaction"))
	}
	if len(txn.Signatures) == 0 {
		return sig, NewStoreError("sendTransaction", nil, errors.New("transaction has no signatures"))
	}
	sig = txn.Signatures[0]

	config := struct {
		Encoding            string `json:"encoding"`
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
	}{
		Encoding:            "base64",
		PreflightCommitment: c.commitment.Commitment,
	}

	var sigStr string
	err = c.call(ctx, &sigStr, "sendTransaction", base64.StdEncoding.EncodeToString(raw), config)
	if err != nil {
		if txErr := parsePreflightError(err); txErr != nil {
			return sig, NewStoreError("sendTransaction", txn.Signature(), txErr)
		}
		return sig, NewStoreError("sendTransaction", txn.Signature(), err)
	}

	c.log.WithField("signature", sig.String()).Debug("transaction submitted")
	return sig, nil
}

func parsePreflightError(err error) *TransactionError {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok || rpcErr.Code != sendTransactionPreflightFailureCode {
		return nil
	}

	data, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return nil
	}

	txErr, parseErr := ParseTransactionError(data["err"])
	if parseErr != nil {
		return nil
	}
	return txErr
}

func (c *client) ConfirmTransaction(ctx context.Context, sig Signature, lastValidBlockHeight uint64) (confirmation *Confirmation, err error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ConfirmTransaction")
	defer tracer.End()
	defer func() {
		tracer.OnError(err)
	}()

	log := c.log.WithField("signature", sig.String())

	ticker := time.NewTicker(c.pollRate)
	defer ticker.Stop()

	for {
		status, err := c.getSignatureStatus(ctx, sig)
		if err != nil {
			return nil, NewStoreError("getSignatureStatuses", sig[:], err)
		}

		if status != nil {
			if status.Err != nil {
				log.WithError(status.Err).Debug("transaction failed")
				return &Confirmation{Status: TransactionStatusFailed, Slot: status.Slot, Err: status.Err}, nil
			}
			if status.isConfirmed(c.commitment) {
				return &Confirmation{Status: TransactionStatusConfirmed, Slot: status.Slot}, nil
			}
		} else {
			height, err := c.getBlockHeight(ctx)
			if err != nil {
				return nil, NewStoreError("getBlockHeight", nil, err)
			}
			if height > lastValidBlockHeight {
				log.Debug("transaction expired")
				return &Confirmation{Status: TransactionStatusExpired}, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, NewStoreError("confirmTransaction", sig[:], ctx.Err())
		case <-ticker.C:
		}
	}
}

type signatureStatus struct {
	Slot               uint64
	Confirmations      *int
	ConfirmationStatus string
	Err                *TransactionError
}

func (s *signatureStatus) isConfirmed(commitment Commitment) bool {
	finalized := s.Confirmations == nil || s.ConfirmationStatus == confirmationStatusFinalized
	if commitment == CommitmentFinalized {
		return finalized
	}
	return finalized || s.ConfirmationStatus == confirmationStatusConfirmed
}

func (c *client) getSignatureStatus(ctx context.Context, sig Signature) (*signatureStatus, error) {
	req := struct {
		SearchTransactionHistory bool `json:"searchTransactionHistory"`
	}{
		SearchTransactionHistory: true,
	}

	var resp struct {
		Value []*struct {
			Slot               uint64          `json:"slot"`
			Confirmations      *int            `json:"confirmations"`
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}
	if err := c.call(ctx, &resp, "getSignatureStatuses", []string{sig.String()}, req); err != nil {
		return nil, err
	}

	if len(resp.Value) == 0 || resp.Value[0] == nil {
		return nil, nil
	}

	v := resp.Value[0]
	status := &signatureStatus{
		Slot:               v.Slot,
		Confirmations:      v.Confirmations,
		ConfirmationStatus: v.ConfirmationStatus,
	}

	if len(v.Err) > 0 && string(v.Err) != "null" {
		var raw interface{}
		if err := json.Unmarshal(v.Err, &raw); err != nil {
			return nil, errors.Wrap(err, "failed to parse transaction result")
		}

		txErr, err := ParseTransactionError(raw)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse transaction result")
		}
		status.Err = txErr
	}

	return status, nil
}

func (c *client) getBlockHeight(ctx context.Context) (height uint64, err error) {
	if err := c.call(ctx, &height, "getBlockHeight", []interface{}{c.commitment}); err != nil {
		return 0, err
	}
	return height, nil
}
