package marketplace

import (
	"crypto/ed25519"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

type ApplyToProjectInstructionArgs struct {
	ProposalUri string
}

func (args *ApplyToProjectInstructionArgs) Validate() error {
	return validateText("proposal_uri", args.ProposalUri, MaxUriLength, true)
}

type ApplyToProjectInstructionAccounts struct {
	Application ed25519.PublicKey
	Project     ed25519.PublicKey
	Applicant   ed25519.PublicKey
	Authority   ed25519.PublicKey
}

// NewApplyToProjectInstruction records an application by Applicant, a user
// account owned by Authority.
//
//  0. [WRITE] Application
//  1. [WRITE] Project (application counter)
//  2. [] Applicant user
//  3. [WRITE, SIGNER] Authority (payer)
//  4. [] System program
func (p *Program) NewApplyToProjectInstruction(
	accounts *ApplyToProjectInstructionAccounts,
	args *ApplyToProjectInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: p.ID,

		// Instruction args
		Data: instructionData(InstructionApplyToProject, *args),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Application,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Project,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Applicant,
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
