package memo

import (
	"bytes"
	"crypto/ed25519"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

// ProgramKey is the SPL memo program (v2):
// MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr
var ProgramKey = ed25519.PublicKey{5, 74, 83, 90, 153, 41, 33, 6, 77, 36, 232, 113, 96, 218, 56, 124, 124, 53, 181, 221, 188, 146, 187, 129, 228, 31, 168, 64, 65, 5, 68, 141}

// MaxLength bounds memos attached by the adapter. The program itself only
// limits memos by transaction size.
const MaxLength = 566

var ErrInvalidMemo = errors.New("invalid memo")

// Reference: https://github.com/solana-labs/solana-program-library/blob/master/memo/program/src/processor.rs
//
// Every signer must sign the transaction for the memo to be accepted.
func Instruction(data string, signers ...ed25519.PublicKey) solana.Instruction {
	accounts := make([]solana.AccountMeta, len(signers))
	for i, signer := range signers {
		accounts[i] = solana.NewReadonlyAccountMeta(signer, true)
	}

	return solana.NewInstruction(ProgramKey, []byte(data), accounts...)
}

// Validate checks that data is a memo the program will accept.
func Validate(data string) error {
	if len(data) == 0 {
		return errors.Wrap(ErrInvalidMemo, "memo is empty")
	}
	if len(data) > MaxLength {
		return errors.Wrapf(ErrInvalidMemo, "memo exceeds %d bytes", MaxLength)
	}
	if !utf8.ValidString(data) {
		return errors.Wrap(ErrInvalidMemo, "memo is not valid utf-8")
	}
	return nil
}

type DecompiledMemo struct {
	Data    []byte
	Signers []ed25519.PublicKey
}

func DecompileMemo(m solana.Message, index int) (*DecompiledMemo, error) {
	if index >= len(m.Instructions) {
		return nil, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]
	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey) {
		return nil, solana.ErrIncorrectProgram
	}

	decompiled := &DecompiledMemo{Data: i.Data}
	for _, account := range i.Accounts {
		decompiled.Signers = append(decompiled.Signers, m.Accounts[account])
	}
	return decompiled, nil
}
