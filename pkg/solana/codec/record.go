package codec

import (
	"crypto/ed25519"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// Record is a decoded account. Values are keyed by field name and hold the
// field's Go type: uint8, uint16, uint32, uint64, int64, bool,
// ed25519.PublicKey, string, []byte or time.Time.
//
// The typed getters return the zero value for unknown fields or fields of a
// different type. Use Value to distinguish the two.
type Record struct {
	schema *Schema
	values map[string]interface{}
}

// Decode decodes data according to the schema.
//
// Fields are read in declaration order from just past the discriminator. A
// timestamp field is always read from the final 8 bytes of data, regardless
// of the variable length fields before it. Trailing bytes are ignored, since
// accounts are commonly allocated with room to grow.
func (s *Schema) Decode(data []byte) (*Record, error) {
	if !s.matches(data) {
		return nil, errors.Wrapf(ErrSchemaMismatch, "discriminator is not %s", s.kind)
	}
	if len(data) < s.minSize {
		return nil, errors.Wrapf(ErrSchemaMismatch, "%s requires at least %d bytes, got %d", s.kind, s.minSize, len(data))
	}

	r := &Record{
		schema: s,
		values: make(map[string]interface{}, len(s.fields)),
	}

	offset := DiscriminatorSize
	for _, f := range s.fields {
		if f.Type == FieldTypeTimestamp {
			secs := int64(binary.LittleEndian.Uint64(data[len(data)-timestampSize:]))
			r.values[f.Name] = time.Unix(secs, 0).UTC()
			continue
		}

		value, n, err := readField(f.Type, data, offset)
		if err != nil {
			return nil, errors.Wrapf(ErrSchemaMismatch, "%s.%s: %v", s.kind, f.Name, err)
		}
		r.values[f.Name] = value
		offset += n
	}

	return r, nil
}

func readField(t FieldType, data []byte, offset int) (interface{}, int, error) {
	if t.IsVariable() {
		if offset+4 > len(data) {
			return nil, 0, errors.New("length prefix out of range")
		}
		length := int(binary.LittleEndian.Uint32(data[offset:]))
		start := offset + 4
		if length > len(data)-start {
			return nil, 0, errors.Errorf("length %d out of range", length)
		}

		raw := data[start : start+length]
		if t == FieldTypeString {
			return string(raw), 4 + length, nil
		}
		return append([]byte(nil), raw...), 4 + length, nil
	}

	size := t.Size()
	if offset+size > len(data) {
		return nil, 0, errors.New("value out of range")
	}
	raw := data[offset : offset+size]

	switch t {
	case FieldTypeU8:
		return raw[0], size, nil
	case FieldTypeBool:
		switch raw[0] {
		case 0:
			return false, size, nil
		case 1:
			return true, size, nil
		default:
			return nil, 0, errors.Errorf("invalid bool %d", raw[0])
		}
	case FieldTypeU16:
		return binary.LittleEndian.Uint16(raw), size, nil
	case FieldTypeU32:
		return binary.LittleEndian.Uint32(raw), size, nil
	case FieldTypeU64:
		return binary.LittleEndian.Uint64(raw), size, nil
	case FieldTypeI64:
		return int64(binary.LittleEndian.Uint64(raw)), size, nil
	case FieldTypeAddress:
		return ed25519.PublicKey(append([]byte(nil), raw...)), size, nil
	default:
		return nil, 0, errors.Errorf("unsupported field type %s", t)
	}
}

// Kind returns the record's kind.
func (r *Record) Kind() string {
	return r.schema.kind
}

// Schema returns the schema the record was decoded with.
func (r *Record) Schema() *Schema {
	return r.schema
}

// Value returns the raw decoded value of a field.
func (r *Record) Value(field string) (interface{}, bool) {
	v, ok := r.values[field]
	return v, ok
}

func (r *Record) Uint8(field string) uint8 {
	v, _ := r.values[field].(uint8)
	return v
}

func (r *Record) Uint16(field string) uint16 {
	v, _ := r.values[field].(uint16)
	return v
}

func (r *Record) Uint32(field string) uint32 {
	v, _ := r.values[field].(uint32)
	return v
}

func (r *Record) Uint64(field string) uint64 {
	v, _ := r.values[field].(uint64)
	return v
}

func (r *Record) Int64(field string) int64 {
	v, _ := r.values[field].(int64)
	return v
}

func (r *Record) Bool(field string) bool {
	v, _ := r.values[field].(bool)
	return v
}

func (r *Record) Address(field string) ed25519.PublicKey {
	v, _ := r.values[field].(ed25519.PublicKey)
	return v
}

func (r *Record) Text(field string) string {
	v, _ := r.values[field].(string)
	return v
}

func (r *Record) Bytes(field string) []byte {
	v, _ := r.values[field].([]byte)
	return v
}

func (r *Record) Timestamp(field string) time.Time {
	v, _ := r.values[field].(time.Time)
	return v
}
