package codec

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// FieldType is the wire type of a single record field.
type FieldType uint8

const (
	FieldTypeU8 FieldType = iota + 1
	FieldTypeU16
	FieldTypeU32
	FieldTypeU64
	FieldTypeI64
	FieldTypeBool
	FieldTypeAddress
	FieldTypeString
	FieldTypeBytes

	// FieldTypeTimestamp is a little endian i64 of unix seconds, always read
	// from the final 8 bytes of the record.
	FieldTypeTimestamp
)

const timestampSize = 8

func (t FieldType) String() string {
	switch t {
	case FieldTypeU8:
		return "u8"
	case FieldTypeU16:
		return "u16"
	case FieldTypeU32:
		return "u32"
	case FieldTypeU64:
		return "u64"
	case FieldTypeI64:
		return "i64"
	case FieldTypeBool:
		return "bool"
	case FieldTypeAddress:
		return "address"
	case FieldTypeString:
		return "string"
	case FieldTypeBytes:
		return "bytes"
	case FieldTypeTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("FieldType(%d)", t)
	}
}

// Size returns the encoded width of fixed size types. Variable sized types
// return 0.
func (t FieldType) Size() int {
	switch t {
	case FieldTypeU8, FieldTypeBool:
		return 1
	case FieldTypeU16:
		return 2
	case FieldTypeU32:
		return 4
	case FieldTypeU64, FieldTypeI64:
		return 8
	case FieldTypeAddress:
		return ed25519.PublicKeySize
	default:
		return 0
	}
}

// IsVariable reports whether values are u32 length prefixed.
func (t FieldType) IsVariable() bool {
	return t == FieldTypeString || t == FieldTypeBytes
}

func (t FieldType) valid() bool {
	return t >= FieldTypeU8 && t <= FieldTypeTimestamp
}

// Field is a named, typed slot in a record layout.
type Field struct {
	Name string
	Type FieldType
}

func U8(name string) Field        { return Field{Name: name, Type: FieldTypeU8} }
func U16(name string) Field       { return Field{Name: name, Type: FieldTypeU16} }
func U32(name string) Field       { return Field{Name: name, Type: FieldTypeU32} }
func U64(name string) Field       { return Field{Name: name, Type: FieldTypeU64} }
func I64(name string) Field       { return Field{Name: name, Type: FieldTypeI64} }
func Bool(name string) Field      { return Field{Name: name, Type: FieldTypeBool} }
func Address(name string) Field   { return Field{Name: name, Type: FieldTypeAddress} }
func String(name string) Field    { return Field{Name: name, Type: FieldTypeString} }
func Bytes(name string) Field     { return Field{Name: name, Type: FieldTypeBytes} }
func Timestamp(name string) Field { return Field{Name: name, Type: FieldTypeTimestamp} }

// EncodeValue returns the fixed width encoding of value for t, as it would
// appear in account data. It is used to build filter predicates.
func (t FieldType) EncodeValue(value interface{}) ([]byte, error) {
	switch t {
	case FieldTypeU8:
		if v, ok := value.(uint8); ok {
			return []byte{v}, nil
		}
	case FieldTypeBool:
		if v, ok := value.(bool); ok {
			if v {
				return []byte{1}, nil
			}
			return []byte{0}, nil
		}
	case FieldTypeU16:
		if v, ok := value.(uint16); ok {
			return binary.LittleEndian.AppendUint16(nil, v), nil
		}
	case FieldTypeU32:
		if v, ok := value.(uint32); ok {
			return binary.LittleEndian.AppendUint32(nil, v), nil
		}
	case FieldTypeU64:
		if v, ok := value.(uint64); ok {
			return binary.LittleEndian.AppendUint64(nil, v), nil
		}
	case FieldTypeI64:
		if v, ok := value.(int64); ok {
			return binary.LittleEndian.AppendUint64(nil, uint64(v)), nil
		}
	case FieldTypeAddress:
		var raw []byte
		switch v := value.(type) {
		case ed25519.PublicKey:
			raw = v
		case []byte:
			raw = v
		}
		if len(raw) == ed25519.PublicKeySize {
			return append([]byte(nil), raw...), nil
		}
	}

	return nil, errors.Errorf("cannot encode %T as %s", value, t)
}
