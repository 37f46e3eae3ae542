package marketplace

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/solana/codec"
)

const (
	KindUser        = "User"
	KindProject     = "Project"
	KindApplication = "Application"
	KindEscrow      = "Escrow"
)

// Field names, shared by decoding and filtering.
const (
	FieldAuthority        = "authority"
	FieldBump             = "bump"
	FieldProjectCount     = "project_count"
	FieldReputation       = "reputation"
	FieldIsVerified       = "is_verified"
	FieldName             = "name"
	FieldMetadataUri      = "metadata_uri"
	FieldCreatedAt        = "created_at"
	FieldOwner            = "owner"
	FieldIndex            = "index"
	FieldBudget           = "budget"
	FieldStatus           = "status"
	FieldApplicationCount = "application_count"
	FieldHired            = "hired"
	FieldTitle            = "title"
	FieldApplicant        = "applicant"
	FieldProject          = "project"
	FieldProposalUri      = "proposal_uri"
	FieldClient           = "client"
	FieldFreelancer       = "freelancer"
	FieldAmount           = "amount"
	FieldReleased         = "released"
)

type ProjectStatus uint8

const (
	ProjectStatusOpen ProjectStatus = iota
	ProjectStatusInProgress
	ProjectStatusCompleted
	ProjectStatusCancelled
)

func (s ProjectStatus) String() string {
	switch s {
	case ProjectStatusOpen:
		return "open"
	case ProjectStatusInProgress:
		return "in_progress"
	case ProjectStatusCompleted:
		return "completed"
	case ProjectStatusCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// ParseProjectStatus is the inverse of ProjectStatus.String.
func ParseProjectStatus(value string) (ProjectStatus, error) {
	for s := ProjectStatusOpen; s <= ProjectStatusCancelled; s++ {
		if s.String() == value {
			return s, nil
		}
	}
	return 0, errors.Errorf("unknown project status: %s", value)
}

type ApplicationStatus uint8

const (
	ApplicationStatusPending ApplicationStatus = iota
	ApplicationStatusAccepted
	ApplicationStatusRejected
)

func (s ApplicationStatus) String() string {
	switch s {
	case ApplicationStatusPending:
		return "pending"
	case ApplicationStatusAccepted:
		return "accepted"
	case ApplicationStatusRejected:
		return "rejected"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// RegisterSchemas adds the marketplace account layouts to r. Field order is
// the on-chain layout; offsets follow from it.
func RegisterSchemas(r *codec.Registry) error {
	schemas := []struct {
		kind   string
		fields []codec.Field
	}{
		{
			kind: KindUser,
			fields: []codec.Field{
				codec.Address(FieldAuthority),   // 8
				codec.U8(FieldBump),             // 40
				codec.U64(FieldProjectCount),    // 41
				codec.U32(FieldReputation),      // 49
				codec.Bool(FieldIsVerified),     // 53
				codec.String(FieldName),         // 54, variable from here
				codec.String(FieldMetadataUri),  // variable
				codec.Timestamp(FieldCreatedAt), // last 8 bytes
			},
		},
		{
			kind: KindProject,
			fields: []codec.Field{
				codec.Address(FieldOwner),        // 8
				codec.Address(FieldAuthority),    // 40
				codec.U64(FieldIndex),            // 72
				codec.U64(FieldBudget),           // 80
				codec.U8(FieldStatus),            // 88
				codec.U32(FieldApplicationCount), // 89
				codec.Address(FieldHired),        // 93
				codec.U8(FieldBump),              // 125
				codec.String(FieldTitle),         // 126, variable from here
				codec.String(FieldMetadataUri),   // variable
				codec.Timestamp(FieldCreatedAt),  // last 8 bytes
			},
		},
		{
			kind: KindApplication,
			fields: []codec.Field{
				codec.Address(FieldApplicant),   // 8
				codec.Address(FieldProject),     // 40
				codec.Address(FieldAuthority),   // 72
				codec.U8(FieldStatus),           // 104
				codec.U8(FieldBump),             // 105
				codec.String(FieldProposalUri),  // 106, variable from here
				codec.Timestamp(FieldCreatedAt), // last 8 bytes
			},
		},
		{
			kind: KindEscrow,
			fields: []codec.Field{
				codec.Address(FieldProject),    // 8
				codec.Address(FieldClient),     // 40
				codec.Address(FieldFreelancer), // 72
				codec.U64(FieldAmount),         // 104
				codec.Bool(FieldReleased),      // 112
				codec.U8(FieldBump),            // 113
			},
		},
	}

	for _, s := range schemas {
		if _, err := r.Register(s.kind, codec.AccountDiscriminator(s.kind), s.fields...); err != nil {
			return errors.Wrapf(err, "failed to register %s", s.kind)
		}
	}
	return nil
}

// Account is one decoded marketplace account: *UserAccount, *ProjectAccount,
// *ApplicationAccount or *EscrowAccount.
type Account interface {
	Kind() string
	AccountAddress() ed25519.PublicKey
}

type UserAccount struct {
	Address      ed25519.PublicKey
	Authority    ed25519.PublicKey
	Bump         uint8
	ProjectCount uint64
	Reputation   uint32
	IsVerified   bool
	Name         string
	MetadataUri  string
	CreatedAt    time.Time
}

type ProjectAccount struct {
	Address          ed25519.PublicKey
	Owner            ed25519.PublicKey
	Authority        ed25519.PublicKey
	Index            uint64
	Budget           uint64
	Status           ProjectStatus
	ApplicationCount uint32
	Hired            ed25519.PublicKey // nil when nobody was hired
	Bump             uint8
	Title            string
	MetadataUri      string
	CreatedAt        time.Time
}

type ApplicationAccount struct {
	Address     ed25519.PublicKey
	Applicant   ed25519.PublicKey
	Project     ed25519.PublicKey
	Authority   ed25519.PublicKey
	Status      ApplicationStatus
	Bump        uint8
	ProposalUri string
	CreatedAt   time.Time
}

type EscrowAccount struct {
	Address    ed25519.PublicKey
	Project    ed25519.PublicKey
	Client     ed25519.PublicKey
	Freelancer ed25519.PublicKey
	Amount     uint64
	Released   bool
	Bump       uint8
}

func (*UserAccount) Kind() string        { return KindUser }
func (*ProjectAccount) Kind() string     { return KindProject }
func (*ApplicationAccount) Kind() string { return KindApplication }
func (*EscrowAccount) Kind() string      { return KindEscrow }

func (a *UserAccount) AccountAddress() ed25519.PublicKey        { return a.Address }
func (a *ProjectAccount) AccountAddress() ed25519.PublicKey     { return a.Address }
func (a *ApplicationAccount) AccountAddress() ed25519.PublicKey { return a.Address }
func (a *EscrowAccount) AccountAddress() ed25519.PublicKey      { return a.Address }

// FromRecord resolves a decoded record into its typed account.
func FromRecord(address ed25519.PublicKey, r *codec.Record) (Account, error) {
	switch r.Kind() {
	case KindUser:
		return &UserAccount{
			Address:      address,
			Authority:    r.Address(FieldAuthority),
			Bump:         r.Uint8(FieldBump),
			ProjectCount: r.Uint64(FieldProjectCount),
			Reputation:   r.Uint32(FieldReputation),
			IsVerified:   r.Bool(FieldIsVerified),
			Name:         r.Text(FieldName),
			MetadataUri:  r.Text(FieldMetadataUri),
			CreatedAt:    r.Timestamp(FieldCreatedAt),
		}, nil
	case KindProject:
		hired := r.Address(FieldHired)
		if isZeroKey(hired) {
			hired = nil
		}
		return &ProjectAccount{
			Address:          address,
			Owner:            r.Address(FieldOwner),
			Authority:        r.Address(FieldAuthority),
			Index:            r.Uint64(FieldIndex),
			Budget:           r.Uint64(FieldBudget),
			Status:           ProjectStatus(r.Uint8(FieldStatus)),
			ApplicationCount: r.Uint32(FieldApplicationCount),
			Hired:            hired,
			Bump:             r.Uint8(FieldBump),
			Title:            r.Text(FieldTitle),
			MetadataUri:      r.Text(FieldMetadataUri),
			CreatedAt:        r.Timestamp(FieldCreatedAt),
		}, nil
	case KindApplication:
		return &ApplicationAccount{
			Address:     address,
			Applicant:   r.Address(FieldApplicant),
			Project:     r.Address(FieldProject),
			Authority:   r.Address(FieldAuthority),
			Status:      ApplicationStatus(r.Uint8(FieldStatus)),
			Bump:        r.Uint8(FieldBump),
			ProposalUri: r.Text(FieldProposalUri),
			CreatedAt:   r.Timestamp(FieldCreatedAt),
		}, nil
	case KindEscrow:
		return &EscrowAccount{
			Address:    address,
			Project:    r.Address(FieldProject),
			Client:     r.Address(FieldClient),
			Freelancer: r.Address(FieldFreelancer),
			Amount:     r.Uint64(FieldAmount),
			Released:   r.Bool(FieldReleased),
			Bump:       r.Uint8(FieldBump),
		}, nil
	}
	return nil, errors.Wrapf(ErrInvalidAccountData, "unsupported kind %s", r.Kind())
}

// DecodeAccount decodes raw account data of any marketplace kind.
func (p *Program) DecodeAccount(address ed25519.PublicKey, data []byte) (Account, error) {
	r, err := p.Registry.Decode(data)
	if err != nil {
		return nil, err
	}
	return FromRecord(address, r)
}

func (a *UserAccount) String() string {
	return fmt.Sprintf(
		"User{address=%s,authority=%s,bump=%d,project_count=%d,reputation=%d,is_verified=%t,name=%s,metadata_uri=%s,created_at=%s}",
		base58.Encode(a.Address),
		base58.Encode(a.Authority),
		a.Bump,
		a.ProjectCount,
		a.Reputation,
		a.IsVerified,
		a.Name,
		a.MetadataUri,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
}

func (a *ProjectAccount) String() string {
	hired := "none"
	if a.Hired != nil {
		hired = base58.Encode(a.Hired)
	}
	return fmt.Sprintf(
		"Project{address=%s,owner=%s,authority=%s,index=%d,budget=%d,status=%s,application_count=%d,hired=%s,bump=%d,title=%s,metadata_uri=%s,created_at=%s}",
		base58.Encode(a.Address),
		base58.Encode(a.Owner),
		base58.Encode(a.Authority),
		a.Index,
		a.Budget,
		a.Status,
		a.ApplicationCount,
		hired,
		a.Bump,
		a.Title,
		a.MetadataUri,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
}

func (a *ApplicationAccount) String() string {
	return fmt.Sprintf(
		"Application{address=%s,applicant=%s,project=%s,authority=%s,status=%s,bump=%d,proposal_uri=%s,created_at=%s}",
		base58.Encode(a.Address),
		base58.Encode(a.Applicant),
		base58.Encode(a.Project),
		base58.Encode(a.Authority),
		a.Status,
		a.Bump,
		a.ProposalUri,
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
}

func (a *EscrowAccount) String() string {
	return fmt.Sprintf(
		"Escrow{address=%s,project=%s,client=%s,freelancer=%s,amount=%d,released=%t,bump=%d}",
		base58.Encode(a.Address),
		base58.Encode(a.Project),
		base58.Encode(a.Client),
		base58.Encode(a.Freelancer),
		a.Amount,
		a.Released,
		a.Bump,
	)
}

func isZeroKey(key ed25519.PublicKey) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
