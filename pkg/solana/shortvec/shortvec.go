// Package shortvec implements the compact length prefix used for every array
// in the legacy transaction wire format: 7 bits per byte, little-endian, with
// the high bit set on every byte but the last.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// MaxEncodedSize is the number of bytes needed to encode math.MaxUint16.
const MaxEncodedSize = 3

var (
	ErrLenOutOfRange = errors.New("shortvec: len out of range")
	ErrNonCanonical  = errors.New("shortvec: non-canonical encoding")
)

// EncodeLen writes the encoding of length to w, returning the number of bytes
// written.
func EncodeLen(w io.ByteWriter, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, errors.Wrapf(ErrLenOutOfRange, "%d", length)
	}

	var written int
	for {
		b := byte(length & 0x7f)
		length >>= 7
		if length != 0 {
			b |= 0x80
		}

		if err := w.WriteByte(b); err != nil {
			return written, err
		}
		written++

		if length == 0 {
			return written, nil
		}
	}
}

// DecodeLen reads an encoded length from r. Encodings longer than
// MaxEncodedSize, above math.MaxUint16, or with a redundant trailing zero byte
// are rejected.
func DecodeLen(r io.ByteReader) (int, error) {
	var length int
	for i := 0; i < MaxEncodedSize; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && i > 0 {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}

		if i > 0 && b == 0 {
			return 0, ErrNonCanonical
		}

		length |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			if length > math.MaxUint16 {
				return 0, errors.Wrapf(ErrLenOutOfRange, "%d", length)
			}
			return length, nil
		}
	}
	return 0, errors.Wrapf(ErrLenOutOfRange, "more than %d bytes", MaxEncodedSize)
}

// EncodedLenSize returns the number of bytes EncodeLen uses for length.
func EncodedLenSize(length int) int {
	size := 1
	for length >>= 7; length > 0; length >>= 7 {
		size++
	}
	return size
}
