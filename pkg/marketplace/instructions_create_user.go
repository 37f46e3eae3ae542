package marketplace

import (
	"crypto/ed25519"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

type CreateUserInstructionArgs struct {
	Name        string
	MetadataUri string
}

func (args *CreateUserInstructionArgs) Validate() error {
	if err := validateText("name", args.Name, MaxNameLength, true); err != nil {
		return err
	}
	return validateText("metadata_uri", args.MetadataUri, MaxUriLength, false)
}

type CreateUserInstructionAccounts struct {
	User      ed25519.PublicKey
	Authority ed25519.PublicKey
}

// NewCreateUserInstruction initializes the user account of Authority.
//
//  0. [WRITE] User
//  1. [WRITE, SIGNER] Authority (payer)
//  2. [] System program
func (p *Program) NewCreateUserInstruction(
	accounts *CreateUserInstructionAccounts,
	args *CreateUserInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: p.ID,

		// Instruction args
		Data: instructionData(InstructionCreateUser, *args),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
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
