package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEndpoint(t *testing.T) {
	assert.Equal(t, string(EnvironmentDev), ResolveEndpoint("devnet"))
	assert.Equal(t, string(EnvironmentProd), ResolveEndpoint(" Mainnet-Beta "))
	assert.Equal(t, string(EnvironmentLocal), ResolveEndpoint("localnet"))
	assert.Equal(t, "https://rpc.example.com", ResolveEndpoint("https://rpc.example.com"))
}
