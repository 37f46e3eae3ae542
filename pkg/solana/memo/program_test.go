package memo

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

func TestProgramKey(t *testing.T) {
	assert.Equal(t, "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr", base58.Encode(ProgramKey))
}

func TestInstruction(t *testing.T) {
	i := Instruction("hello, world!")
	assert.Equal(t, ProgramKey, i.Program)
	assert.Empty(t, i.Accounts)
	assert.Equal(t, "hello, world!", string(i.Data))

	signer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	i = Instruction("signed", signer)
	require.Len(t, i.Accounts, 1)
	assert.True(t, i.Accounts[0].IsSigner)
	assert.False(t, i.Accounts[0].IsWritable)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("gm"))
	assert.ErrorIs(t, Validate(""), ErrInvalidMemo)
	assert.ErrorIs(t, Validate(strings.Repeat("a", MaxLength+1)), ErrInvalidMemo)
	assert.ErrorIs(t, Validate(string([]byte{0xff, 0xfe})), ErrInvalidMemo)
}

func TestDecompile(t *testing.T) {
	payer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	tx, err := solana.NewTransactionBuilder(payer, solana.Blockhash{}).
		AddInstruction(Instruction("hello, world", payer)).
		Compile()
	require.NoError(t, err)

	i, err := DecompileMemo(tx.Message, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(i.Data))
	require.Len(t, i.Signers, 1)
	assert.Equal(t, payer, i.Signers[0])

	_, err = DecompileMemo(tx.Message, 1)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "instruction doesn't exist")

	tx.Message.Accounts[1], _, err = ed25519.GenerateKey(nil)
	require.NoError(t, err)
	_, err = DecompileMemo(tx.Message, 0)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}
