package solana

import (
	"bytes"
	"crypto/ed25519"
	"errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta represents the account information required
// for building transactions.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
}

// NewAccountMeta creates a new AccountMeta representing a writable
// account.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta creates a new AccountMeta representing a readonly
// account.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: false,
	}
}

// group orders accounts in the compiled address table:
// signer+writable, signer+readonly, writable, readonly.
func (a AccountMeta) group() int {
	switch {
	case a.IsSigner && a.IsWritable:
		return 0
	case a.IsSigner:
		return 1
	case a.IsWritable:
		return 2
	default:
		return 3
	}
}

// Instruction represents a transaction instruction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

// NewInstruction creates a new instruction.
func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// CompiledInstruction represents an instruction that has been compiled into a transaction.
type CompiledInstruction struct {
	ProgramIndex byte
	Accounts     []byte
	Data         []byte
}

// mergeAccounts deduplicates accounts by public key, keeping first-seen order
// and promoting signer and writable roles of repeated entries.
func mergeAccounts(accounts []AccountMeta) []AccountMeta {
	merged := make([]AccountMeta, 0, len(accounts))

	for _, account := range accounts {
		var found bool
		for j := range merged {
			if bytes.Equal(account.PublicKey, merged[j].PublicKey) {
				merged[j].IsSigner = merged[j].IsSigner || account.IsSigner
				merged[j].IsWritable = merged[j].IsWritable || account.IsWritable
				found = true
				break
			}
		}

		if !found {
			merged = append(merged, account)
		}
	}

	return merged
}

// partitionAccounts stably partitions accounts into the four role groups.
func partitionAccounts(accounts []AccountMeta) []AccountMeta {
	partitioned := make([]AccountMeta, 0, len(accounts))
	for g := 0; g < 4; g++ {
		for _, account := range accounts {
			if account.group() == g {
				partitioned = append(partitioned, account)
			}
		}
	}
	return partitioned
}
