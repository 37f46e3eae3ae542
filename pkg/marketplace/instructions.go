package marketplace

import (
	"unicode/utf8"

	"github.com/near/borsh-go"
	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/solana/codec"
)

const (
	MaxNameLength  = 50
	MaxTitleLength = 100
	MaxUriLength   = 200
)

const (
	InstructionCreateUser        = "create_user"
	InstructionUpdateUser        = "update_user"
	InstructionCreateProject     = "create_project"
	InstructionApplyToProject    = "apply_to_project"
	InstructionAcceptApplication = "accept_application"
	InstructionFundEscrow        = "fund_escrow"
	InstructionReleasePayment    = "release_payment"
	InstructionCancelProject     = "cancel_project"
)

// instructionData is the 8 byte discriminator of name followed by the Borsh
// encoding of args. args must be a struct value of fixed width integers, bools
// and strings. Pointers encode as Borsh options.
func instructionData(name string, args interface{}) []byte {
	data := codec.InstructionDiscriminator(name)
	if args == nil {
		return data
	}

	encoded, err := borsh.Serialize(args)
	if err != nil {
		panic(errors.Wrapf(err, "failed to serialize %s args", name))
	}
	return append(data, encoded...)
}

// InstructionName returns the instruction whose discriminator prefixes data.
func InstructionName(data []byte) (string, bool) {
	if len(data) < codec.DiscriminatorSize {
		return "", false
	}

	for _, name := range []string{
		InstructionCreateUser,
		InstructionUpdateUser,
		InstructionCreateProject,
		InstructionApplyToProject,
		InstructionAcceptApplication,
		InstructionFundEscrow,
		InstructionReleasePayment,
		InstructionCancelProject,
	} {
		if string(codec.InstructionDiscriminator(name)) == string(data[:codec.DiscriminatorSize]) {
			return name, true
		}
	}
	return "", false
}

func validateText(field, value string, max int, required bool) error {
	if required && len(value) == 0 {
		return errors.Wrapf(ErrInvalidInstructionArgs, "%s is required", field)
	}
	if len(value) > max {
		return errors.Wrapf(ErrInvalidInstructionArgs, "%s exceeds %d bytes", field, max)
	}
	if !utf8.ValidString(value) {
		return errors.Wrapf(ErrInvalidInstructionArgs, "%s is not valid utf-8", field)
	}
	return nil
}

func errInvalidArg(msg string) error {
	return errors.Wrap(ErrInvalidInstructionArgs, msg)
}
