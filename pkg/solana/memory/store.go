package memory

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

// ScanHook can fail a scan based on its inputs. Returning nil lets the scan
// proceed.
type ScanHook func(program ed25519.PublicKey, filters []solana.Filter) error

type account struct {
	owner ed25519.PublicKey
	data  []byte
}

// Store is an in memory solana.AccountStore used for testing.
type Store struct {
	mu sync.RWMutex

	accounts      map[string]account
	token         solana.FreshnessToken
	submitted     map[solana.Signature][]byte
	confirmations map[solana.Signature]solana.Confirmation

	scanHook  ScanHook
	fetchErr  error
	tokenErr  error
	submitErr error

	scanCalls int
}

// New returns an empty Store with a fixed freshness token.
func New() *Store {
	var token solana.FreshnessToken
	for i := range token.Blockhash {
		token.Blockhash[i] = byte(i + 1)
	}
	token.LastValidBlockHeight = 1000

	return &Store{
		accounts:      make(map[string]account),
		token:         token,
		submitted:     make(map[solana.Signature][]byte),
		confirmations: make(map[solana.Signature]solana.Confirmation),
	}
}

// SetAccount stores data at address, owned by owner.
func (s *Store) SetAccount(owner, address ed25519.PublicKey, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := make([]byte, len(data))
	copy(cloned, data)
	s.accounts[base58.Encode(address)] = account{owner: owner, data: cloned}
}

// DeleteAccount removes the account at address.
func (s *Store) DeleteAccount(address ed25519.PublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.accounts, base58.Encode(address))
}

// SetFreshnessToken overrides the token returned by GetFreshnessToken.
func (s *Store) SetFreshnessToken(token solana.FreshnessToken) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// SetConfirmation overrides the result of ConfirmTransaction for sig.
func (s *Store) SetConfirmation(sig solana.Signature, confirmation solana.Confirmation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.confirmations[sig] = confirmation
}

// SetScanHook installs a hook consulted on every scan.
func (s *Store) SetScanHook(hook ScanHook) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scanHook = hook
}

// SetFetchError makes every FetchAccount call fail with err.
func (s *Store) SetFetchError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetchErr = err
}

// SetFreshnessTokenError makes every GetFreshnessToken call fail with err.
func (s *Store) SetFreshnessTokenError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokenErr = err
}

// SetSubmitError makes every SubmitTransaction call fail with err.
func (s *Store) SetSubmitError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submitErr = err
}

// ScanCalls returns the number of scans performed.
func (s *Store) ScanCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.scanCalls
}

// Submitted returns the raw transaction submitted under sig.
func (s *Store) Submitted(sig solana.Signature) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.submitted[sig]
	return raw, ok
}

// ScanProgramAccounts implements solana.AccountStore.ScanProgramAccounts.
func (s *Store) ScanProgramAccounts(ctx context.Context, program ed25519.PublicKey, filters ...solana.Filter) ([]solana.KeyedAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, solana.NewStoreError("getProgramAccounts", program, err)
	}

	s.mu.Lock()
	s.scanCalls++
	hook := s.scanHook
	s.mu.Unlock()

	if hook != nil {
		if err := hook(program, filters); err != nil {
			return nil, solana.NewStoreError("getProgramAccounts", program, err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []solana.KeyedAccount
	for key, account := range s.accounts {
		if !bytes.Equal(account.owner, program) {
			continue
		}

		matches := true
		for _, f := range filters {
			if !f.Matches(account.data) {
				matches = false
				break
			}
		}
		if !matches {
			continue
		}

		address, err := base58.Decode(key)
		if err != nil {
			return nil, solana.NewStoreError("getProgramAccounts", program, err)
		}

		data := make([]byte, len(account.data))
		copy(data, account.data)
		res = append(res, solana.KeyedAccount{Address: address, Data: data})
	}

	return res, nil
}

// FetchAccount implements solana.AccountStore.FetchAccount.
func (s *Store) FetchAccount(ctx context.Context, address ed25519.PublicKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, solana.NewStoreError("getAccountInfo", address, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.fetchErr != nil {
		return nil, solana.NewStoreError("getAccountInfo", address, s.fetchErr)
	}

	account, ok := s.accounts[base58.Encode(address)]
	if !ok {
		return nil, solana.NewStoreError("getAccountInfo", address, solana.ErrAccountNotFound)
	}

	data := make([]byte, len(account.data))
	copy(data, account.data)
	return data, nil
}

// GetFreshnessToken implements solana.AccountStore.GetFreshnessToken.
func (s *Store) GetFreshnessToken(ctx context.Context) (solana.FreshnessToken, error) {
	if err := ctx.Err(); err != nil {
		return solana.FreshnessToken{}, solana.NewStoreError("getLatestBlockhash", nil, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.tokenErr != nil {
		return solana.FreshnessToken{}, solana.NewStoreError("getLatestBlockhash", nil, s.tokenErr)
	}
	return s.token, nil
}

// SubmitTransaction implements solana.AccountStore.SubmitTransaction. Only
// fully signed transactions are accepted.
func (s *Store) SubmitTransaction(ctx context.Context, raw []byte) (solana.Signature, error) {
	var sig solana.Signature
	if err := ctx.Err(); err != nil {
		return sig, solana.NewStoreError("sendTransaction", nil, err)
	}

	var txn solana.Transaction
	if err := txn.Unmarshal(raw); err != nil {
		return sig, solana.NewStoreError("sendTransaction", nil, errors.Wrap(err, "invalid transaction"))
	}
	if len(txn.Signatures) == 0 {
		return sig, solana.NewStoreError("sendTransaction", nil, errors.New("transaction has no signatures"))
	}
	sig = txn.Signatures[0]

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitErr != nil {
		return sig, solana.NewStoreError("sendTransaction", sig[:], s.submitErr)
	}
	if !txn.IsFullySigned() {
		return sig, solana.NewStoreError("sendTransaction", sig[:], &solana.TransactionError{Key: solana.TransactionErrorSignatureFailure})
	}

	cloned := make([]byte, len(raw))
	copy(cloned, raw)
	s.submitted[sig] = cloned
	return sig, nil
}

// ConfirmTransaction implements solana.AccountStore.ConfirmTransaction.
// Submitted transactions confirm immediately unless overridden, and unknown
// transactions are expired.
func (s *Store) ConfirmTransaction(ctx context.Context, sig solana.Signature, _ uint64) (*solana.Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return nil, solana.NewStoreError("confirmTransaction", sig[:], err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if confirmation, ok := s.confirmations[sig]; ok {
		return &confirmation, nil
	}
	if _, ok := s.submitted[sig]; ok {
		return &solana.Confirmation{Status: solana.TransactionStatusConfirmed, Slot: 1}, nil
	}
	return &solana.Confirmation{Status: solana.TransactionStatusExpired}, nil
}
