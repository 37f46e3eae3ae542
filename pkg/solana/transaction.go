package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"
	"math"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/solana/shortvec"
)

const (
	// MaxTransactionSize taken from: https://github.com/solana-labs/solana/blob/39b3ac6a8d29e14faa1de73d8b46d390ad41797b/sdk/src/packet.rs#L9-L13
	MaxTransactionSize = 1232

	// maxAccounts is bounded by the single byte used for account indexes.
	maxAccounts = math.MaxUint8 + 1
)

var (
	// ErrSerialization indicates a transaction could not be compiled into a
	// valid wire representation. Nothing is ever truncated to fit.
	ErrSerialization = errors.New("transaction serialization failed")

	// ErrBuilderConsumed is returned when a builder is serialized twice.
	ErrBuilderConsumed = errors.New("transaction builder already serialized")
)

type Signature [ed25519.SignatureSize]byte
type Blockhash [sha256.Size]byte

// ParseBlockhash parses a base58 encoded freshness token. Values shorter than
// 32 bytes are left padded with zeros.
func ParseBlockhash(value string) (Blockhash, error) {
	var bh Blockhash

	decoded, err := base58.Decode(value)
	if err != nil {
		return bh, errors.Wrap(err, "invalid base58 blockhash")
	}
	if len(decoded) > len(bh) {
		return bh, errors.Errorf("blockhash exceeds %d bytes", len(bh))
	}

	copy(bh[len(bh)-len(decoded):], decoded)
	return bh, nil
}

func (b Blockhash) String() string {
	return base58.Encode(b[:])
}

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// IsZero reports whether the signature is an unfilled placeholder.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

type Header struct {
	NumSignatures     byte
	NumReadonlySigned byte
	NumReadOnly       byte
}

type Message struct {
	Header          Header
	Accounts        []ed25519.PublicKey
	RecentBlockhash Blockhash
	Instructions    []CompiledInstruction
}

type Transaction struct {
	Signatures []Signature
	Message    Message
}

// TransactionBuilder assembles an unsigned legacy transaction. A builder is
// owned by a single caller and can be serialized exactly once.
type TransactionBuilder struct {
	feePayer     ed25519.PublicKey
	blockhash    Blockhash
	instructions []Instruction
	signatures   []attachedSignature
	consumed     bool
}

type attachedSignature struct {
	signer    ed25519.PublicKey
	signature Signature
}

// NewTransactionBuilder returns an empty builder for the provided fee payer and
// freshness token.
func NewTransactionBuilder(feePayer ed25519.PublicKey, blockhash Blockhash) *TransactionBuilder {
	return &TransactionBuilder{
		feePayer:  feePayer,
		blockhash: blockhash,
	}
}

// AddInstruction appends instructions as-is. Account roles across instructions
// are not cross-validated.
func (b *TransactionBuilder) AddInstruction(instructions ...Instruction) *TransactionBuilder {
	b.instructions = append(b.instructions, instructions...)
	return b
}

// AttachSignature records an externally produced signature for signer. It is
// verified against the compiled message during Serialize.
func (b *TransactionBuilder) AttachSignature(signer ed25519.PublicKey, signature Signature) *TransactionBuilder {
	b.signatures = append(b.signatures, attachedSignature{signer: signer, signature: signature})
	return b
}

// Compile compiles the builder contents into a transaction without consuming
// the builder.
func (b *TransactionBuilder) Compile() (Transaction, error) {
	if len(b.feePayer) != ed25519.PublicKeySize {
		return Transaction{}, errors.Wrap(ErrSerialization, "invalid fee payer")
	}

	accounts := []AccountMeta{
		{
			PublicKey:  b.feePayer,
			IsSigner:   true,
			IsWritable: true,
		},
	}
	for i, ixn := range b.instructions {
		if len(ixn.Program) != ed25519.PublicKeySize {
			return Transaction{}, errors.Wrapf(ErrSerialization, "instruction %d has an invalid program", i)
		}

		for j, account := range ixn.Accounts {
			if len(account.PublicKey) != ed25519.PublicKeySize {
				return Transaction{}, errors.Wrapf(ErrSerialization, "instruction %d account %d is invalid", i, j)
			}
		}

		accounts = append(accounts, ixn.Accounts...)
		accounts = append(accounts, AccountMeta{PublicKey: ixn.Program})
	}

	accounts = partitionAccounts(mergeAccounts(accounts))
	if len(accounts) > maxAccounts {
		return Transaction{}, errors.Wrapf(ErrSerialization, "%d accounts exceeds the limit of %d", len(accounts), maxAccounts)
	}

	var m Message
	m.RecentBlockhash = b.blockhash
	for _, account := range accounts {
		m.Accounts = append(m.Accounts, account.PublicKey)

		if account.IsSigner {
			m.Header.NumSignatures++

			if !account.IsWritable {
				m.Header.NumReadonlySigned++
			}
		} else if !account.IsWritable {
			m.Header.NumReadOnly++
		}
	}

	// Generate the compiled instruction, which uses indices instead
	// of raw account keys.
	for _, i := range b.instructions {
		c := CompiledInstruction{
			ProgramIndex: byte(indexOf(m.Accounts, i.Program)),
			Accounts:     make([]byte, 0, len(i.Accounts)),
			Data:         i.Data,
		}

		for _, a := range i.Accounts {
			c.Accounts = append(c.Accounts, byte(indexOf(m.Accounts, a.PublicKey)))
		}

		m.Instructions = append(m.Instructions, c)
	}

	txn := Transaction{
		Signatures: make([]Signature, m.Header.NumSignatures),
		Message:    m,
	}

	if len(b.signatures) > 0 {
		messageBytes := m.Marshal()
		for _, attached := range b.signatures {
			index := indexOf(m.Accounts, attached.signer)
			if index < 0 || index >= len(txn.Signatures) {
				return Transaction{}, errors.Wrapf(ErrSerialization, "%s is not a required signer", base58.Encode(attached.signer))
			}
			if !ed25519.Verify(attached.signer, messageBytes, attached.signature[:]) {
				return Transaction{}, errors.Wrapf(ErrSerialization, "invalid signature for %s", base58.Encode(attached.signer))
			}

			txn.Signatures[index] = attached.signature
		}
	}

	return txn, nil
}

// Serialize compiles and encodes the transaction into its wire format. Each
// required signer gets a 64 byte slot, zero filled unless a signature was
// attached. When requireAllSignatures is set, any unfilled slot is an error.
//
// The builder is consumed, and subsequent calls return ErrBuilderConsumed.
func (b *TransactionBuilder) Serialize(requireAllSignatures bool) ([]byte, error) {
	if b.consumed {
		return nil, ErrBuilderConsumed
	}
	b.consumed = true

	txn, err := b.Compile()
	if err != nil {
		return nil, err
	}

	if requireAllSignatures {
		for i, sig := range txn.Signatures {
			if sig.IsZero() {
				return nil, errors.Wrapf(ErrSerialization, "missing signature for %s", base58.Encode(txn.Message.Accounts[i]))
			}
		}
	}

	raw := txn.Marshal()
	if len(raw) > MaxTransactionSize {
		return nil, errors.Wrapf(ErrSerialization, "transaction size %d exceeds %d bytes", len(raw), MaxTransactionSize)
	}

	return raw, nil
}

// EncodedSize returns the exact wire size of a transaction without encoding it.
func (t *Transaction) EncodedSize() int {
	size := shortvec.EncodedLenSize(len(t.Signatures)) + len(t.Signatures)*ed25519.SignatureSize

	size += 3
	size += shortvec.EncodedLenSize(len(t.Message.Accounts)) + len(t.Message.Accounts)*ed25519.PublicKeySize
	size += len(t.Message.RecentBlockhash)
	size += shortvec.EncodedLenSize(len(t.Message.Instructions))
	for _, i := range t.Message.Instructions {
		size += 1
		size += shortvec.EncodedLenSize(len(i.Accounts)) + len(i.Accounts)
		size += shortvec.EncodedLenSize(len(i.Data)) + len(i.Data)
	}

	return size
}

// Signature returns the fee payer's signature, which identifies the transaction.
func (t *Transaction) Signature() []byte {
	return t.Signatures[0][:]
}

// Signers returns the accounts that must sign, in signature slot order.
func (t *Transaction) Signers() []ed25519.PublicKey {
	return t.Message.Accounts[:t.Message.Header.NumSignatures]
}

// IsFullySigned reports whether every signature slot holds a valid signature.
func (t *Transaction) IsFullySigned() bool {
	if len(t.Signatures) == 0 || len(t.Signatures) != int(t.Message.Header.NumSignatures) {
		return false
	}

	messageBytes := t.Message.Marshal()
	for i, sig := range t.Signatures {
		if !ed25519.Verify(t.Message.Accounts[i], messageBytes, sig[:]) {
			return false
		}
	}
	return true
}

func (t *Transaction) String() string {
	var sb strings.Builder
	sb.WriteString("Signatures:\n")
	for i, s := range t.Signatures {
		sb.WriteString(fmt.Sprintf("  %d: %s\n", i, s.String()))
	}
	sb.WriteString("Message:\n")
	sb.WriteString("  Header:\n")
	sb.WriteString(fmt.Sprintf("    NumSignatures: %d\n", t.Message.Header.NumSignatures))
	sb.WriteString(fmt.Sprintf("    NumReadonlySigned: %d\n", t.Message.Header.NumReadonlySigned))
	sb.WriteString(fmt.Sprintf("    NumReadOnly: %d\n", t.Message.Header.NumReadOnly))
	sb.WriteString(fmt.Sprintf("  RecentBlockhash: %s\n", t.Message.RecentBlockhash.String()))
	sb.WriteString("  Accounts:\n")
	for i, a := range t.Message.Accounts {
		sb.WriteString(fmt.Sprintf("    %d: %s\n", i, base58.Encode(a)))
	}
	sb.WriteString("  Instructions:\n")
	for i := range t.Message.Instructions {
		sb.WriteString(fmt.Sprintf("    %d:\n", i))
		sb.WriteString(fmt.Sprintf("      ProgramIndex: %d\n", t.Message.Instructions[i].ProgramIndex))
		sb.WriteString(fmt.Sprintf("      Accounts: %v\n", t.Message.Instructions[i].Accounts))
		sb.WriteString(fmt.Sprintf("      Data: %v\n", t.Message.Instructions[i].Data))
	}
	return sb.String()
}

// Sign signs the message with the provided keys. Used by tooling and tests;
// production signing happens outside this process.
func (t *Transaction) Sign(signers ...ed25519.PrivateKey) error {
	messageBytes := t.Message.Marshal()

	for _, s := range signers {
		pub := s.Public().(ed25519.PublicKey)
		index := indexOf(t.Message.Accounts, pub)
		if index < 0 {
			return errors.Errorf("signing account %s is not in the account list", base58.Encode(pub))
		}
		if index >= len(t.Signatures) {
			return errors.Errorf("signing account %s is not in the list of signers", base58.Encode(pub))
		}

		copy(t.Signatures[index][:], ed25519.Sign(s, messageBytes))
	}

	return nil
}

func indexOf(slice []ed25519.PublicKey, item ed25519.PublicKey) int {
	for i, val := range slice {
		if bytes.Equal(val, item) {
			return i
		}
	}

	return -1
}
