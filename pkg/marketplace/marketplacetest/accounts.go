// Package marketplacetest encodes marketplace accounts the way the program
// lays them out on chain, for seeding stores in tests.
package marketplacetest

import (
	"crypto/ed25519"
	"time"

	"github.com/near/borsh-go"

	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
	"github.com/code-payments/marketplace-adapter/pkg/solana/codec"
)

type key [ed25519.PublicKeySize]byte

type disc [codec.DiscriminatorSize]byte

func toKey(k ed25519.PublicKey) (out key) {
	copy(out[:], k)
	return out
}

func discriminator(kind string) (out disc) {
	copy(out[:], codec.AccountDiscriminator(kind))
	return out
}

func mustSerialize(v interface{}) []byte {
	b, err := borsh.Serialize(v)
	if err != nil {
		panic(err)
	}
	return b
}

func EncodeUser(a *marketplace.UserAccount) []byte {
	return mustSerialize(struct {
		Discriminator disc
		Authority     key
		Bump          uint8
		ProjectCount  uint64
		Reputation    uint32
		IsVerified    bool
		Name          string
		MetadataUri   string
		CreatedAt     int64
	}{
		Discriminator: discriminator(marketplace.KindUser),
		Authority:     toKey(a.Authority),
		Bump:          a.Bump,
		ProjectCount:  a.ProjectCount,
		Reputation:    a.Reputation,
		IsVerified:    a.IsVerified,
		Name:          a.Name,
		MetadataUri:   a.MetadataUri,
		CreatedAt:     unix(a.CreatedAt),
	})
}

func EncodeProject(a *marketplace.ProjectAccount) []byte {
	return mustSerialize(struct {
		Discriminator    disc
		Owner            key
		Authority        key
		Index            uint64
		Budget           uint64
		Status           uint8
		ApplicationCount uint32
		Hired            key
		Bump             uint8
		Title            string
		MetadataUri      string
		CreatedAt        int64
	}{
		Discriminator:    discriminator(marketplace.KindProject),
		Owner:            toKey(a.Owner),
		Authority:        toKey(a.Authority),
		Index:            a.Index,
		Budget:           a.Budget,
		Status:           uint8(a.Status),
		ApplicationCount: a.ApplicationCount,
		Hired:            toKey(a.Hired),
		Bump:             a.Bump,
		Title:            a.Title,
		MetadataUri:      a.MetadataUri,
		CreatedAt:        unix(a.CreatedAt),
	})
}

func EncodeApplication(a *marketplace.ApplicationAccount) []byte {
	return mustSerialize(struct {
		Discriminator disc
		Applicant     key
		Project       key
		Authority     key
		Status        uint8
		Bump          uint8
		ProposalUri   string
		CreatedAt     int64
	}{
		Discriminator: discriminator(marketplace.KindApplication),
		Applicant:     toKey(a.Applicant),
		Project:       toKey(a.Project),
		Authority:     toKey(a.Authority),
		Status:        uint8(a.Status),
		Bump:          a.Bump,
		ProposalUri:   a.ProposalUri,
		CreatedAt:     unix(a.CreatedAt),
	})
}

func EncodeEscrow(a *marketplace.EscrowAccount) []byte {
	return mustSerialize(struct {
		Discriminator disc
		Project       key
		Client        key
		Freelancer    key
		Amount        uint64
		Released      bool
		Bump          uint8
	}{
		Discriminator: discriminator(marketplace.KindEscrow),
		Project:       toKey(a.Project),
		Client:        toKey(a.Client),
		Freelancer:    toKey(a.Freelancer),
		Amount:        a.Amount,
		Released:      a.Released,
		Bump:          a.Bump,
	})
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
