package marketplace

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/solana/codec"
)

// DefaultProgramAddress is the devnet deployment of the marketplace program.
const DefaultProgramAddress = "6Fb5tKjQBpZFVrHc5VsBNkJvKDmo5p3KSesA23Z4eGdC"

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionArgs = errors.New("invalid instruction arguments")
)

var (
	SYSTEM_PROGRAM_ID = ed25519.PublicKey(make([]byte, ed25519.PublicKeySize))
)

// Program binds the marketplace program at a specific address. All address
// derivation, decoding and instruction building goes through a Program so
// that deployments other than the default can be targeted.
type Program struct {
	ID       ed25519.PublicKey
	Registry *codec.Registry
}

// NewProgram returns a Program at id with every account schema registered.
func NewProgram(id ed25519.PublicKey) (*Program, error) {
	if len(id) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(ErrInvalidProgram, "expected %d bytes, got %d", ed25519.PublicKeySize, len(id))
	}

	registry := codec.NewRegistry()
	if err := RegisterSchemas(registry); err != nil {
		return nil, err
	}

	return &Program{
		ID:       id,
		Registry: registry,
	}, nil
}

// NewProgramFromAddress parses a base58 program address.
func NewProgramFromAddress(address string) (*Program, error) {
	id, err := base58.Decode(address)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidProgram, "%s: %v", address, err)
	}
	return NewProgram(id)
}

// DefaultProgram returns the devnet deployment.
func DefaultProgram() *Program {
	p, err := NewProgramFromAddress(DefaultProgramAddress)
	if err != nil {
		panic(err)
	}
	return p
}

// Schema returns the registered schema for kind.
func (p *Program) Schema(kind string) *codec.Schema {
	s, err := p.Registry.Schema(kind)
	if err != nil {
		panic(err)
	}
	return s
}
