package marketplace

import (
	"crypto/ed25519"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

type ReleasePaymentInstructionAccounts struct {
	Escrow     ed25519.PublicKey
	Project    ed25519.PublicKey
	Freelancer ed25519.PublicKey
	Authority  ed25519.PublicKey
}

// NewReleasePaymentInstruction pays the escrowed amount out to Freelancer and
// completes the project. Freelancer must match the escrow's recorded
// freelancer.
//
//  0. [WRITE] Escrow
//  1. [WRITE] Project
//  2. [WRITE] Freelancer
//  3. [SIGNER] Authority (client)
func (p *Program) NewReleasePaymentInstruction(
	accounts *ReleasePaymentInstructionAccounts,
) solana.Instruction {
	return solana.Instruction{
		Program: p.ID,

		// Instruction args
		Data: instructionData(InstructionReleasePayment, nil),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Escrow,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Project,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Freelancer,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: false,
				IsSigner:   true,
			},
		},
	}
}
