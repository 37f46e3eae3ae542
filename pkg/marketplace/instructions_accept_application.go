package marketplace

import (
	"crypto/ed25519"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

type AcceptApplicationInstructionAccounts struct {
	Project     ed25519.PublicKey
	Application ed25519.PublicKey
	Escrow      ed25519.PublicKey
	Authority   ed25519.PublicKey
}

// NewAcceptApplicationInstruction hires the applicant and moves the project
// to in progress. Authority must own the project.
//
//  0. [WRITE] Project
//  1. [WRITE] Application
//  2. [WRITE] Escrow (freelancer)
//  3. [SIGNER] Authority
func (p *Program) NewAcceptApplicationInstruction(
	accounts *AcceptApplicationInstructionAccounts,
) solana.Instruction {
	return solana.Instruction{
		Program: p.ID,

		// Instruction args
		Data: instructionData(InstructionAcceptApplication, nil),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Project,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Application,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Escrow,
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
