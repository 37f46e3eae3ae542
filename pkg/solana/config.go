package solana

import "strings"

// Environment is the JSON-RPC endpoint of a public cluster.
type Environment string

const (
	EnvironmentLocal Environment = "http://127.0.0.1:8899"
	EnvironmentDev   Environment = "https://api.devnet.solana.com"
	EnvironmentTest  Environment = "https://api.testnet.solana.com"
	EnvironmentProd  Environment = "https://api.mainnet-beta.solana.com"
)

var environmentsByName = map[string]Environment{
	"localnet":     EnvironmentLocal,
	"devnet":       EnvironmentDev,
	"testnet":      EnvironmentTest,
	"mainnet":      EnvironmentProd,
	"mainnet-beta": EnvironmentProd,
}

// ResolveEndpoint maps a cluster name such as "devnet" to its public RPC
// endpoint. Anything else is assumed to already be an endpoint URL.
func ResolveEndpoint(value string) string {
	if env, ok := environmentsByName[strings.ToLower(strings.TrimSpace(value))]; ok {
		return string(env)
	}
	return value
}
