package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueOr(t *testing.T) {
	assert.EqualValues(t, 5, ValueOr(To[uint64](5), 100))
	assert.EqualValues(t, 100, ValueOr[uint64](nil, 100))
	assert.Equal(t, "", ValueOr(To(""), "default"))
}

func TestIfValid(t *testing.T) {
	assert.Nil(t, IfValid(false, 1))
	assert.Equal(t, 1, *IfValid(true, 1))
}

func TestCopy(t *testing.T) {
	assert.Nil(t, Copy[string](nil))

	original := To("memo")
	copied := Copy(original)
	assert.Equal(t, *original, *copied)
	assert.NotSame(t, original, copied)
}
