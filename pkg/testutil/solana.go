package testutil

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/marketplace-adapter/pkg/solana"
	"github.com/code-payments/marketplace-adapter/pkg/solana/system"
)

func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, p, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return p
}

// GenerateSolanaKeys returns n random public keys, usable as wallets or
// account addresses.
func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := range keys {
		keys[i] = GenerateSolanaKeypair(t).Public().(ed25519.PublicKey)
	}
	return keys
}

// NewTransferTransaction compiles an unsigned system transfer paid for by a
// fresh keypair, which is returned for signing.
func NewTransferTransaction(t *testing.T, blockhash solana.Blockhash) (solana.Transaction, ed25519.PrivateKey) {
	signer := GenerateSolanaKeypair(t)
	payer := signer.Public().(ed25519.PublicKey)

	txn, err := solana.NewTransactionBuilder(payer, blockhash).
		AddInstruction(system.Transfer(payer, GenerateSolanaKeys(t, 1)[0], 10)).
		Compile()
	require.NoError(t, err)
	return txn, signer
}
