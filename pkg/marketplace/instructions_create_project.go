package marketplace

import (
	"crypto/ed25519"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

type CreateProjectInstructionArgs struct {
	Index       uint64
	Title       string
	MetadataUri string
	Budget      uint64
}

func (args *CreateProjectInstructionArgs) Validate() error {
	if err := validateText("title", args.Title, MaxTitleLength, true); err != nil {
		return err
	}
	if err := validateText("metadata_uri", args.MetadataUri, MaxUriLength, false); err != nil {
		return err
	}
	if args.Budget == 0 {
		return errInvalidArg("budget must be positive")
	}
	return nil
}

type CreateProjectInstructionAccounts struct {
	Project   ed25519.PublicKey
	Escrow    ed25519.PublicKey
	User      ed25519.PublicKey
	Authority ed25519.PublicKey
}

// NewCreateProjectInstruction opens a project and its empty escrow. Index
// must equal the user's current project count.
//
//  0. [WRITE] Project
//  1. [WRITE] Escrow
//  2. [WRITE] User (project counter)
//  3. [WRITE, SIGNER] Authority (payer)
//  4. [] System program
func (p *Program) NewCreateProjectInstruction(
	accounts *CreateProjectInstructionAccounts,
	args *CreateProjectInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: p.ID,

		// Instruction args
		Data: instructionData(InstructionCreateProject, *args),

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
				PublicKey:  accounts.User,
				IsWritable: true,
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
