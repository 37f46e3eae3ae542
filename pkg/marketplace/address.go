package marketplace

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

var (
	UserPrefix        = []byte(KindUser)
	ProjectPrefix     = []byte(KindProject)
	ApplicationPrefix = []byte(KindApplication)
	EscrowPrefix      = []byte(KindEscrow)
)

type GetUserAddressArgs struct {
	Wallet ed25519.PublicKey
}

func (p *Program) GetUserAddress(args *GetUserAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		p.ID,
		UserPrefix,
		args.Wallet,
	)
}

type GetProjectAddressArgs struct {
	User  ed25519.PublicKey
	Index uint64
}

// GetProjectAddress derives the project at Index for a user account. New
// projects use the user's current project count as their index.
func (p *Program) GetProjectAddress(args *GetProjectAddressArgs) (ed25519.PublicKey, uint8, error) {
	var index [8]byte
	binary.LittleEndian.PutUint64(index[:], args.Index)

	return solana.FindProgramAddressAndBump(
		p.ID,
		ProjectPrefix,
		args.User,
		index[:],
	)
}

type GetApplicationAddressArgs struct {
	Applicant ed25519.PublicKey
	Project   ed25519.PublicKey
}

func (p *Program) GetApplicationAddress(args *GetApplicationAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		p.ID,
		ApplicationPrefix,
		args.Applicant,
		args.Project,
	)
}

type GetEscrowAddressArgs struct {
	Project ed25519.PublicKey
}

func (p *Program) GetEscrowAddress(args *GetEscrowAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		p.ID,
		EscrowPrefix,
		args.Project,
	)
}
