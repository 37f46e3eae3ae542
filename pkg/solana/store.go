package solana

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	// ErrAccountNotFound is the not-found signal of FetchAccount.
	ErrAccountNotFound = errors.New("account not found")

	ErrSignatureNotFound = errors.New("signature not found")
)

// Filter is a memcmp predicate: the account data at Offset must equal Bytes.
type Filter struct {
	Offset uint
	Bytes  []byte
}

// NewFilter returns a memcmp Filter.
func NewFilter(offset uint, value []byte) Filter {
	return Filter{Offset: offset, Bytes: value}
}

// Matches reports whether data satisfies the filter.
func (f Filter) Matches(data []byte) bool {
	end := int(f.Offset) + len(f.Bytes)
	if end > len(data) {
		return false
	}
	return string(data[f.Offset:end]) == string(f.Bytes)
}

// KeyedAccount is a raw account record returned by a scan.
type KeyedAccount struct {
	Address ed25519.PublicKey
	Data    []byte
}

// FreshnessToken is a recent blockhash along with the last block height at
// which transactions referencing it are accepted.
type FreshnessToken struct {
	Blockhash            Blockhash
	LastValidBlockHeight uint64
}

// TransactionStatus is the terminal state of a submitted transaction.
type TransactionStatus uint8

const (
	TransactionStatusUnknown TransactionStatus = iota
	TransactionStatusConfirmed
	TransactionStatusFailed
	TransactionStatusExpired
)

func (s TransactionStatus) String() string {
	switch s {
	case TransactionStatusConfirmed:
		return "confirmed"
	case TransactionStatusFailed:
		return "failed"
	case TransactionStatusExpired:
		return "expired"
	}
	return "unknown"
}

// Confirmation is the result of ConfirmTransaction.
type Confirmation struct {
	Status TransactionStatus
	Slot   uint64

	// Err is set when Status is TransactionStatusFailed.
	Err *TransactionError
}

// AccountStore is the ledger collaborator used by the adapter. Implementations
// own their retry policy. Callers bound every call with ctx.
type AccountStore interface {
	// ScanProgramAccounts returns every account owned by program matching all
	// filters. Results are unordered.
	ScanProgramAccounts(ctx context.Context, program ed25519.PublicKey, filters ...Filter) ([]KeyedAccount, error)

	// FetchAccount returns the raw account data, or ErrAccountNotFound.
	FetchAccount(ctx context.Context, address ed25519.PublicKey) ([]byte, error)

	// GetFreshnessToken returns a recent blockhash for new transactions.
	GetFreshnessToken(ctx context.Context) (FreshnessToken, error)

	// SubmitTransaction submits a signed, serialized transaction.
	SubmitTransaction(ctx context.Context, raw []byte) (Signature, error)

	// ConfirmTransaction waits until the transaction reaches a terminal state.
	// A transaction not landed by lastValidBlockHeight is expired.
	ConfirmTransaction(ctx context.Context, sig Signature, lastValidBlockHeight uint64) (*Confirmation, error)
}

// StoreError wraps a failure of the AccountStore with the operation and,
// where relevant, the address involved.
type StoreError struct {
	Op      string
	Address ed25519.PublicKey
	Err     error
}

// NewStoreError returns a StoreError. A nil err yields nil.
func NewStoreError(op string, address ed25519.PublicKey, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Address: address, Err: err}
}

func (e *StoreError) Error() string {
	if len(e.Address) > 0 {
		return fmt.Sprintf("account store: %s %s: %v", e.Op, base58.Encode(e.Address), e.Err)
	}
	return fmt.Sprintf("account store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err originated from the AccountStore.
func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

// IsNotFound reports whether err is a not-found signal from the AccountStore.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
