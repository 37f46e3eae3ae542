package codec

import (
	"bytes"
	"crypto/sha256"

	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

// DiscriminatorSize is the length of the type tag at the start of every
// record.
const DiscriminatorSize = 8

var (
	// ErrSchemaMismatch indicates data does not match any registered schema,
	// or is too short or malformed for the schema its discriminator names.
	ErrSchemaMismatch = errors.New("codec: schema mismatch")

	// ErrSchemaConflict indicates a kind or discriminator was registered
	// twice with different definitions.
	ErrSchemaConflict = errors.New("codec: schema conflict")

	// ErrFilterBounds indicates a predicate would read outside the statically
	// known prefix of a schema.
	ErrFilterBounds = errors.New("codec: filter out of bounds")

	// ErrUnknownField indicates a field name is not part of a schema.
	ErrUnknownField = errors.New("codec: unknown field")

	// ErrUnknownKind indicates no schema is registered for a kind.
	ErrUnknownKind = errors.New("codec: unknown kind")
)

// AccountDiscriminator returns the 8 byte tag of an account type.
func AccountDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("account:" + name))
	return h[:DiscriminatorSize]
}

// InstructionDiscriminator returns the 8 byte tag of an instruction, given
// its snake_case name.
func InstructionDiscriminator(name string) []byte {
	h := sha256.Sum256([]byte("global:" + name))
	return h[:DiscriminatorSize]
}

// Schema is the binary layout of one record kind.
//
// Fields before the first variable length field have offsets that are
// known statically. Together with the discriminator they form the fixed
// prefix, and only they can be the target of a filter predicate.
type Schema struct {
	kind          string
	discriminator [DiscriminatorSize]byte
	fields        []Field

	offsets      map[string]int
	types        map[string]FieldType
	fixedSize    int
	minSize      int
	hasTimestamp bool
}

func newSchema(kind string, discriminator []byte, fields []Field) (*Schema, error) {
	if len(kind) == 0 {
		return nil, errors.New("kind is required")
	}
	if len(discriminator) != DiscriminatorSize {
		return nil, errors.Errorf("discriminator must be %d bytes, got %d", DiscriminatorSize, len(discriminator))
	}

	s := &Schema{
		kind:    kind,
		fields:  append([]Field(nil), fields...),
		offsets: make(map[string]int),
		types:   make(map[string]FieldType),
	}
	copy(s.discriminator[:], discriminator)

	offset := DiscriminatorSize
	static := true
	s.minSize = DiscriminatorSize
	for i, f := range fields {
		if len(f.Name) == 0 {
			return nil, errors.Errorf("field %d has no name", i)
		}
		if !f.Type.valid() {
			return nil, errors.Errorf("field %s has invalid type", f.Name)
		}
		if _, ok := s.types[f.Name]; ok {
			return nil, errors.Errorf("duplicate field %s", f.Name)
		}
		s.types[f.Name] = f.Type

		switch {
		case f.Type == FieldTypeTimestamp:
			if i != len(fields)-1 {
				return nil, errors.Errorf("timestamp field %s must be last", f.Name)
			}
			s.hasTimestamp = true
			s.minSize += timestampSize
		case f.Type.IsVariable():
			static = false
			s.minSize += 4
		default:
			if static {
				s.offsets[f.Name] = offset
				offset += f.Type.Size()
			}
			s.minSize += f.Type.Size()
		}
	}
	s.fixedSize = offset

	return s, nil
}

// Kind returns the record kind name.
func (s *Schema) Kind() string {
	return s.kind
}

// Discriminator returns a copy of the record's type tag.
func (s *Schema) Discriminator() []byte {
	return append([]byte(nil), s.discriminator[:]...)
}

// Fields returns the declared fields, in order.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// FixedSize is the length of the statically addressable prefix, including
// the discriminator.
func (s *Schema) FixedSize() int {
	return s.fixedSize
}

// MinSize is the smallest encoding of the record, with every variable length
// field empty.
func (s *Schema) MinSize() int {
	return s.minSize
}

// Offset returns the static offset of a field.
func (s *Schema) Offset(field string) (uint, error) {
	if _, ok := s.types[field]; !ok {
		return 0, errors.Wrapf(ErrUnknownField, "%s.%s", s.kind, field)
	}

	offset, ok := s.offsets[field]
	if !ok {
		return 0, errors.Wrapf(ErrFilterBounds, "%s.%s has no static offset", s.kind, field)
	}
	return uint(offset), nil
}

// DiscriminatorFilter matches records of this schema's kind.
func (s *Schema) DiscriminatorFilter() solana.Filter {
	return solana.NewFilter(0, s.discriminator[:])
}

// FieldFilter returns a predicate matching records whose field equals value.
// value must be the Go type of the field: uint8, uint16, uint32, uint64,
// int64, bool, or a 32 byte address.
func (s *Schema) FieldFilter(field string, value interface{}) (solana.Filter, error) {
	offset, err := s.Offset(field)
	if err != nil {
		return solana.Filter{}, err
	}

	encoded, err := s.types[field].EncodeValue(value)
	if err != nil {
		return solana.Filter{}, errors.Wrapf(err, "%s.%s", s.kind, field)
	}

	f := solana.NewFilter(offset, encoded)
	if err := s.ValidateFilter(f); err != nil {
		return solana.Filter{}, err
	}
	return f, nil
}

// ValidateFilter checks that f reads entirely within the fixed prefix.
func (s *Schema) ValidateFilter(f solana.Filter) error {
	if len(f.Bytes) == 0 {
		return errors.Wrap(ErrFilterBounds, "empty predicate")
	}
	if int(f.Offset)+len(f.Bytes) > s.fixedSize {
		return errors.Wrapf(ErrFilterBounds, "%s: [%d, %d) exceeds fixed prefix of %d bytes", s.kind, f.Offset, int(f.Offset)+len(f.Bytes), s.fixedSize)
	}
	return nil
}

func (s *Schema) equal(other *Schema) bool {
	if s.kind != other.kind || s.discriminator != other.discriminator || len(s.fields) != len(other.fields) {
		return false
	}
	for i := range s.fields {
		if s.fields[i] != other.fields[i] {
			return false
		}
	}
	return true
}

func (s *Schema) matches(data []byte) bool {
	return len(data) >= DiscriminatorSize && bytes.Equal(data[:DiscriminatorSize], s.discriminator[:])
}
