package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Taken from: https://github.com/solana-labs/solana/blob/14339dec0a960e8161d1165b6a8e5cfb73e78f23/sdk/src/transaction.rs#L523,
// with the keypair corrected so the public key matches the seed.
const rustGeneratedAdjusted = "ATMfBMZ8phHEheLph8K9TJhRKhnE4qNZvWiXdUdJRmlTCRsQjWmW2CkQJeRHBCcsqFm2gynjL40M9mTe0Dxp4QIBAAEDfEya6wnC7f3Cv53qnOEywwIJ928rIdqAlfXYI1adXroBAQEEBQYHCAkJCQkJCQkJCQkJCQkJCQkIBwYFBAEBAQICAgQFBgcICQEBAQEBAQEBAQEBAQEBCQgHBgUEAgICAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAABAgIAAQMBAgM="

func generateKeys(t *testing.T, n int) []ed25519.PrivateKey {
	keys := make([]ed25519.PrivateKey, n)
	for i := 0; i < n; i++ {
		_, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = priv
	}
	return keys
}

func public(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}

func TestTransactionBuilder_CrossImpl(t *testing.T) {
	keypair := ed25519.NewKeyFromSeed([]byte{48, 83, 2, 1, 1, 48, 5, 6, 3, 43, 101, 112, 4, 34, 4, 32, 255, 101, 36, 24, 124, 23,
		167, 21, 132, 204, 155, 5, 185, 58, 121, 75})
	programID := ed25519.PublicKey{2, 2, 2, 4, 5, 6, 7, 8, 9, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 9, 8, 7, 6, 5, 4,
		2, 2, 2}
	to := ed25519.PublicKey{1, 1, 1, 4, 5, 6, 7, 8, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 8, 7, 6, 5, 4, 1, 1, 1}

	builder := NewTransactionBuilder(public(keypair), Blockhash{})
	builder.AddInstruction(NewInstruction(
		programID,
		[]byte{1, 2, 3},
		NewAccountMeta(public(keypair), true),
		NewAccountMeta(to, false),
	))

	txn, err := builder.Compile()
	require.NoError(t, err)
	require.NoError(t, txn.Sign(keypair))
	assert.Equal(t, rustGeneratedAdjusted, base64.StdEncoding.EncodeToString(txn.Marshal()))
}

func TestTransactionBuilder_AccountLayout(t *testing.T) {
	keys := generateKeys(t, 5)
	payer := public(keys[0])
	writable := public(keys[1])
	readonlySigner := public(keys[2])
	readonly := public(keys[3])
	program := public(keys[4])

	builder := NewTransactionBuilder(payer, Blockhash{1})
	builder.AddInstruction(NewInstruction(
		program,
		[]byte{9},
		NewAccountMeta(writable, false),
		NewReadonlyAccountMeta(readonlySigner, true),
		NewReadonlyAccountMeta(readonly, false),
	))

	txn, err := builder.Compile()
	require.NoError(t, err)

	assert.Equal(t, Header{NumSignatures: 2, NumReadonlySigned: 1, NumReadOnly: 2}, txn.Message.Header)
	assert.Equal(t, []ed25519.PublicKey{payer, readonlySigner, writable, readonly, program}, txn.Message.Accounts)
	require.Len(t, txn.Message.Instructions, 1)
	assert.EqualValues(t, 4, txn.Message.Instructions[0].ProgramIndex)
	assert.Equal(t, []byte{2, 1, 3}, txn.Message.Instructions[0].Accounts)
	assert.Equal(t, []byte{9}, txn.Message.Instructions[0].Data)
	assert.Equal(t, []ed25519.PublicKey{payer, readonlySigner}, txn.Signers())
	assert.Len(t, txn.Signatures, 2)
}

func TestTransactionBuilder_FirstSeenOrderAndPromotion(t *testing.T) {
	keys := generateKeys(t, 5)
	payer := public(keys[0])
	a := public(keys[1])
	b := public(keys[2])
	c := public(keys[3])
	program := public(keys[4])

	builder := NewTransactionBuilder(payer, Blockhash{})
	builder.AddInstruction(
		NewInstruction(program, nil, NewReadonlyAccountMeta(c, false), NewReadonlyAccountMeta(a, false), NewReadonlyAccountMeta(b, false)),
		NewInstruction(program, nil, NewAccountMeta(a, false), NewReadonlyAccountMeta(b, true), NewReadonlyAccountMeta(payer, false)),
	)

	txn, err := builder.Compile()
	require.NoError(t, err)

	// a is promoted to writable and b to signer; both keep first-seen order
	// within their group.
	assert.Equal(t, []ed25519.PublicKey{payer, b, a, c, program}, txn.Message.Accounts)
	assert.Equal(t, Header{NumSignatures: 2, NumReadonlySigned: 1, NumReadOnly: 2}, txn.Message.Header)
	assert.Equal(t, []byte{3, 2, 1}, txn.Message.Instructions[0].Accounts)
	assert.Equal(t, []byte{2, 1, 0}, txn.Message.Instructions[1].Accounts)
}

func TestTransactionBuilder_Deterministic(t *testing.T) {
	keys := generateKeys(t, 4)

	build := func() []byte {
		builder := NewTransactionBuilder(public(keys[0]), Blockhash{7})
		builder.AddInstruction(
			NewInstruction(public(keys[3]), []byte("first"), NewAccountMeta(public(keys[1]), false)),
			NewInstruction(public(keys[3]), []byte("second"), NewReadonlyAccountMeta(public(keys[2]), false)),
		)
		raw, err := builder.Serialize(false)
		require.NoError(t, err)
		return raw
	}

	assert.Equal(t, build(), build())
}

func TestTransactionBuilder_ExactSize(t *testing.T) {
	keys := generateKeys(t, 6)
	payer := public(keys[0])
	program := public(keys[5])

	var instructions []Instruction
	for i := 1; i <= 4; i++ {
		instructions = append(instructions, NewInstruction(
			program,
			make([]byte, 10*i),
			NewAccountMeta(public(keys[i]), false),
			NewReadonlyAccountMeta(payer, true),
		))
	}

	builder := NewTransactionBuilder(payer, Blockhash{})
	builder.AddInstruction(instructions...)
	raw, err := builder.Serialize(false)
	require.NoError(t, err)

	signatureSlots := 1 + 1*ed25519.SignatureSize
	header := 3
	addressTable := 1 + 6*ed25519.PublicKeySize + 32
	var instructionBytes int
	instructionBytes++ // instruction count
	for _, ixn := range instructions {
		instructionBytes += 1 + 1 + len(ixn.Accounts) + 1 + len(ixn.Data)
	}

	assert.Equal(t, signatureSlots+header+addressTable+instructionBytes, len(raw))

	// Unsigned slots are zero filled placeholders
	assert.EqualValues(t, 1, raw[0])
	assert.Equal(t, make([]byte, ed25519.SignatureSize), raw[1:1+ed25519.SignatureSize])

	var txn Transaction
	require.NoError(t, txn.Unmarshal(raw))
	assert.Equal(t, len(raw), txn.EncodedSize())
}

func TestTransactionBuilder_TooLarge(t *testing.T) {
	keys := generateKeys(t, 2)

	builder := NewTransactionBuilder(public(keys[0]), Blockhash{})
	builder.AddInstruction(NewInstruction(public(keys[1]), make([]byte, MaxTransactionSize)))

	raw, err := builder.Serialize(false)
	assert.True(t, errors.Is(err, ErrSerialization))
	assert.Nil(t, raw)

	// Right at the limit is accepted.
	overhead := 1 + 64 + 3 + 1 + 2*32 + 32 + 1 + 1 + 1 + 2
	builder = NewTransactionBuilder(public(keys[0]), Blockhash{})
	builder.AddInstruction(NewInstruction(public(keys[1]), make([]byte, MaxTransactionSize-overhead)))

	raw, err = builder.Serialize(false)
	require.NoError(t, err)
	assert.Len(t, raw, MaxTransactionSize)
}

func TestTransactionBuilder_TooManyAccounts(t *testing.T) {
	payer := generateKeys(t, 1)[0]
	program := generateKeys(t, 1)[0]

	var accounts []AccountMeta
	for _, key := range generateKeys(t, maxAccounts) {
		accounts = append(accounts, NewReadonlyAccountMeta(public(key), false))
	}

	builder := NewTransactionBuilder(public(payer), Blockhash{})
	builder.AddInstruction(NewInstruction(public(program), nil, accounts...))

	_, err := builder.Compile()
	assert.True(t, errors.Is(err, ErrSerialization))
}

func TestTransactionBuilder_InvalidKeys(t *testing.T) {
	keys := generateKeys(t, 2)

	_, err := NewTransactionBuilder(nil, Blockhash{}).Serialize(false)
	assert.True(t, errors.Is(err, ErrSerialization))

	builder := NewTransactionBuilder(public(keys[0]), Blockhash{})
	builder.AddInstruction(NewInstruction(public(keys[1]), nil, NewAccountMeta(nil, false)))
	_, err = builder.Serialize(false)
	assert.True(t, errors.Is(err, ErrSerialization))

	builder = NewTransactionBuilder(public(keys[0]), Blockhash{})
	builder.AddInstruction(NewInstruction(nil, nil))
	_, err = builder.Serialize(false)
	assert.True(t, errors.Is(err, ErrSerialization))
}

func TestTransactionBuilder_SingleUse(t *testing.T) {
	keys := generateKeys(t, 2)

	builder := NewTransactionBuilder(public(keys[0]), Blockhash{})
	builder.AddInstruction(NewInstruction(public(keys[1]), []byte{1}))

	_, err := builder.Serialize(false)
	require.NoError(t, err)

	_, err = builder.Serialize(false)
	assert.Equal(t, ErrBuilderConsumed, err)
}

func TestTransactionBuilder_Signatures(t *testing.T) {
	keys := generateKeys(t, 3)
	payer := keys[0]
	program := public(keys[1])
	outsider := keys[2]

	newBuilder := func() *TransactionBuilder {
		builder := NewTransactionBuilder(public(payer), Blockhash{3})
		builder.AddInstruction(NewInstruction(program, []byte{1}))
		return builder
	}

	_, err := newBuilder().Serialize(true)
	assert.True(t, errors.Is(err, ErrSerialization))

	unsigned, err := newBuilder().Compile()
	require.NoError(t, err)
	messageBytes := unsigned.Message.Marshal()

	var sig Signature
	copy(sig[:], ed25519.Sign(payer, messageBytes))

	raw, err := newBuilder().AttachSignature(public(payer), sig).Serialize(true)
	require.NoError(t, err)

	var txn Transaction
	require.NoError(t, txn.Unmarshal(raw))
	assert.True(t, txn.IsFullySigned())
	assert.Equal(t, sig[:], txn.Signature())

	var invalid Signature
	copy(invalid[:], ed25519.Sign(outsider, messageBytes))
	_, err = newBuilder().AttachSignature(public(payer), invalid).Serialize(false)
	assert.True(t, errors.Is(err, ErrSerialization))

	_, err = newBuilder().AttachSignature(public(outsider), invalid).Serialize(false)
	assert.True(t, errors.Is(err, ErrSerialization))
}

func TestTransaction_MarshalRoundTrip(t *testing.T) {
	expected := "AaZAGNONKTsNypCfvwHGipcWmAX/J03VfLQEHgMDSuHz0ktydqlLb7I4tZnX0Yw8KMTbma28M+yiZPaRolOJGgwBAAgQCR2hNbdxjAiYwC9CSEo2Vso3yq8OXlgoCbepyseaRXoIFE8MTz2ZtOsdNl55fj/zi0S+ArjIP4zJ3Y+MC4tKyQu7s1JPy6Hur6YbU0nF+1XBJYwii/dKtLsNFU/pTo19J7jOgutpJBZbNIhC5ppqC/OYlbzW1KqamkV3p+cslAoyBJxvWrSMXX+X0Ih0+sEzarslIYSV0T/NuLFcjpX8S7ajCdht+3+POhvGcGFzDyc4kIgjN/SAdypJM1Grs+eEtzXhQGM4VMy0p0J2CiOH+k2kwfya5F7fSaYXWOi3CJUGp9UXGSxWjuCKhF9z0peIzwNcMUWyGrNE2AYuqUAAAAan1RcZLFxRIYzJTD1K8X9Y2u4Im6H9ROPb2YoAAAAABt324ddloZPZy+FGzut5rBy0he1fWzeROoz1hX7/AKlDDB9w5G7eh4xhLJIgxblM0E4dxW+ZTABRcCVBt2LcH8b6evO+2606PWXzaqvJdDGxu+TC0vbg5HymAgNFL11hDcYoaKd+VYB6HNWIyaKadms+4q7NwH3gjP6RB91LMWUAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAMGRm/lIRcy/+ytunLDm+e8jOW7xfcSayxDmzpAAAAAjJclj04kifG7PRApFI4NgwtaE5na/xCEBI572Nvp+FmMVCZzhQC2pwD9u6aAm8haUDNRSZG/a7c1U/ltYtc+KAUNAwIHAAQEAAAADgAJA+gDAAAAAAAADgAFAkjoAQAPBwADCgsNCQgBAQwLAAUBBAwMBgwMAwlcCAoCAAAAmhMJCgIAAAAAAUgAAABlmEW1THFmZqyjBehuSli5bMSJBNiQMkZcr19LINSM4KF/whE1IayV174tmVwC9MMlQSmG3j6aJVhIDGMUITUNXRMTAAAAAAA="
	decoded, err := base64.StdEncoding.DecodeString(expected)
	require.NoError(t, err)

	var txn Transaction
	require.NoError(t, txn.Unmarshal(decoded))
	assert.Equal(t, decoded, txn.Marshal())
	assert.Equal(t, len(decoded), txn.EncodedSize())
}

func TestTransaction_UnmarshalInvalid(t *testing.T) {
	keys := generateKeys(t, 2)

	builder := NewTransactionBuilder(public(keys[0]), Blockhash{})
	builder.AddInstruction(NewInstruction(public(keys[1]), []byte{1, 2, 3}))
	raw, err := builder.Serialize(false)
	require.NoError(t, err)

	var txn Transaction
	assert.Error(t, txn.Unmarshal(raw[:len(raw)-1]))
	assert.Error(t, txn.Unmarshal(append(append([]byte{}, raw...), 0)))
	assert.Error(t, txn.Unmarshal(nil))

	versioned := append([]byte{}, raw...)
	versioned[1+ed25519.SignatureSize] = 0x80
	assert.Error(t, txn.Unmarshal(versioned))
}

func TestTransportEncoding_RoundTrip(t *testing.T) {
	keys := generateKeys(t, 3)

	builder := NewTransactionBuilder(public(keys[0]), Blockhash{5})
	builder.AddInstruction(NewInstruction(public(keys[2]), []byte("payload"), NewAccountMeta(public(keys[1]), false)))
	raw, err := builder.Serialize(false)
	require.NoError(t, err)

	for _, encoding := range []Encoding{EncodingBase64, EncodingBase58} {
		encoded, err := EncodeTransaction(raw, encoding)
		require.NoError(t, err)

		decoded, err := DecodeTransaction(encoded, encoding)
		require.NoError(t, err)
		assert.Equal(t, raw, decoded)
	}

	_, err = EncodeTransaction(raw, Encoding("hex"))
	assert.True(t, errors.Is(err, ErrUnsupportedEncoding))
	_, err = DecodeTransaction("!!", EncodingBase64)
	assert.Error(t, err)
	_, err = DecodeTransaction("0OIl", EncodingBase58)
	assert.Error(t, err)
}

func TestParseEncoding(t *testing.T) {
	for input, expected := range map[string]Encoding{
		"":       EncodingBase64,
		"base64": EncodingBase64,
		"BASE58": EncodingBase58,
	} {
		actual, err := ParseEncoding(input)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	_, err := ParseEncoding("hex")
	assert.True(t, errors.Is(err, ErrUnsupportedEncoding))
}

func TestParseBlockhash(t *testing.T) {
	bh, err := ParseBlockhash("abc123")
	require.NoError(t, err)

	again, err := ParseBlockhash("abc123")
	require.NoError(t, err)
	assert.Equal(t, bh, again)
	assert.NotEqual(t, Blockhash{}, bh)
	assert.EqualValues(t, 0, bh[0])

	full := Blockhash{}
	for i := range full {
		full[i] = byte(i + 1)
	}
	parsed, err := ParseBlockhash(full.String())
	require.NoError(t, err)
	assert.Equal(t, full, parsed)

	_, err = ParseBlockhash("0OIl")
	assert.Error(t, err)

	_, err = ParseBlockhash(Signature{1}.String())
	assert.Error(t, err)
}
