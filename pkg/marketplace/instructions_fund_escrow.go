package marketplace

import (
	"crypto/ed25519"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

type FundEscrowInstructionArgs struct {
	Amount uint64
}

func (args *FundEscrowInstructionArgs) Validate() error {
	if args.Amount == 0 {
		return errInvalidArg("amount must be positive")
	}
	return nil
}

type FundEscrowInstructionAccounts struct {
	Escrow    ed25519.PublicKey
	Project   ed25519.PublicKey
	Authority ed25519.PublicKey
}

// NewFundEscrowInstruction moves Amount lamports from Authority into the
// project's escrow.
//
//  0. [WRITE] Escrow
//  1. [] Project
//  2. [WRITE, SIGNER] Authority (client)
//  3. [] System program
func (p *Program) NewFundEscrowInstruction(
	accounts *FundEscrowInstructionAccounts,
	args *FundEscrowInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: p.ID,

		// Instruction args
		Data: instructionData(InstructionFundEscrow, *args),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Escrow,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Project,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
