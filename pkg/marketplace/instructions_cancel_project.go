package marketplace

import (
	"crypto/ed25519"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

type CancelProjectInstructionAccounts struct {
	Project   ed25519.PublicKey
	Escrow    ed25519.PublicKey
	Authority ed25519.PublicKey
}

// NewCancelProjectInstruction cancels an open project and refunds any
// unreleased escrow to Authority.
//
//  0. [WRITE] Project
//  1. [WRITE] Escrow
//  2. [WRITE, SIGNER] Authority (client, refund destination)
func (p *Program) NewCancelProjectInstruction(
	accounts *CancelProjectInstructionAccounts,
) solana.Instruction {
	return solana.Instruction{
		Program: p.ID,

		// Instruction args
		Data: instructionData(InstructionCancelProject, nil),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Project,
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
				IsWritable: true,
				IsSigner:   true,
			},
		},
	}
}
