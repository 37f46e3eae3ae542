package marketplace

import (
	"crypto/ed25519"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

type UpdateUserInstructionArgs struct {
	Name        string
	MetadataUri string
}

func (args *UpdateUserInstructionArgs) Validate() error {
	if err := validateText("name", args.Name, MaxNameLength, true); err != nil {
		return err
	}
	return validateText("metadata_uri", args.MetadataUri, MaxUriLength, false)
}

type UpdateUserInstructionAccounts struct {
	User      ed25519.PublicKey
	Authority ed25519.PublicKey
}

// NewUpdateUserInstruction replaces the user's name and metadata URI.
//
//  0. [WRITE] User
//  1. [SIGNER] Authority
func (p *Program) NewUpdateUserInstruction(
	accounts *UpdateUserInstructionAccounts,
	args *UpdateUserInstructionArgs,
) solana.Instruction {
	return solana.Instruction{
		Program: p.ID,

		// Instruction args
		Data: instructionData(InstructionUpdateUser, *args),

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.User,
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
