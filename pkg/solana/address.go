package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"math"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32

	programAddressMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrAddressDerivation indicates every bump seed produced an on-curve
	// address. It points at a broken seed scheme and must not be retried.
	ErrAddressDerivation = errors.New("unable to find a viable program address bump seed")
)

var (
	programHashCtor = sha256.New
)

// CreateProgramAddress mirrors the implementation of the Solana SDK's CreateProgramAddress.
//
// ProgramAddresses are public keys that _do not_ lie on the ed25519 curve to ensure that
// there is no associated private key. In the event that the program and seed parameters
// result in a valid public key, ErrInvalidPublicKey is returned.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L158
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if len(seeds) > maxSeeds {
		return nil, ErrTooManySeeds
	}

	h := programHashCtor()
	for _, s := range seeds {
		if len(s) > maxSeedLength {
			return nil, ErrMaxSeedLengthExceeded
		}

		if _, err := h.Write(s); err != nil {
			return nil, errors.Wrap(err, "failed to hash seed")
		}
	}

	for _, v := range [][]byte{program, []byte(programAddressMarker)} {
		if _, err := h.Write(v); err != nil {
			return nil, errors.Wrap(err, "failed to hash seed")
		}
	}

	hash := h.Sum(nil)
	var pub [32]byte
	copy(pub[:], hash)

	// A candidate that decodes as a compressed Edwards point could have a
	// private key, so it's rejected. The point type lives in an internal
	// package of x/crypto, hence the standalone edwards25519 import.
	//
	// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L182-L187
	var A edwards25519.ExtendedGroupElement
	if A.FromBytes(&pub) {
		return nil, ErrInvalidPublicKey
	}

	return pub[:], nil
}

// FindProgramAddressAndBump searches bump seeds from 255 down to 0 (inclusive)
// and returns the first off-curve address along with its bump.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L234
func FindProgramAddressAndBump(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	if len(seeds) >= maxSeeds {
		// The bump occupies the last seed slot
		return nil, 0, ErrTooManySeeds
	}
	for _, s := range seeds {
		if len(s) > maxSeedLength {
			return nil, 0, ErrMaxSeedLengthExceeded
		}
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := math.MaxUint8; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}

		pub, err := CreateProgramAddress(program, withBump...)
		if err == nil {
			return pub, uint8(bump), nil
		}
		if err != ErrInvalidPublicKey {
			return nil, 0, err
		}
	}

	return nil, 0, ErrAddressDerivation
}

// FindProgramAddress is FindProgramAddressAndBump without the bump.
func FindProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	pub, _, err := FindProgramAddressAndBump(program, seeds...)
	return pub, err
}

// DerivedAddress is a program derived address together with the bump seed
// that produced it.
type DerivedAddress struct {
	Address ed25519.PublicKey
	Bump    uint8
}

// AddressDeriver derives program addresses for a single program.
type AddressDeriver struct {
	program ed25519.PublicKey
}

// NewAddressDeriver returns an AddressDeriver bound to program.
func NewAddressDeriver(program ed25519.PublicKey) *AddressDeriver {
	return &AddressDeriver{program: program}
}

// Program returns the program the deriver is bound to.
func (d *AddressDeriver) Program() ed25519.PublicKey {
	return d.program
}

// Derive returns the canonical address and bump for seeds.
func (d *AddressDeriver) Derive(seeds ...[]byte) (DerivedAddress, error) {
	pub, bump, err := FindProgramAddressAndBump(d.program, seeds...)
	if err != nil {
		return DerivedAddress{}, err
	}
	return DerivedAddress{Address: pub, Bump: bump}, nil
}
