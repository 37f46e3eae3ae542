package main

import (
	"github.com/mr-tron/base58"

	"github.com/code-payments/marketplace-adapter/pkg/config"
	"github.com/code-payments/marketplace-adapter/pkg/config/env"
	"github.com/code-payments/marketplace-adapter/pkg/marketplace"
	metadatacache "github.com/code-payments/marketplace-adapter/pkg/metadata/cache"
	"github.com/code-payments/marketplace-adapter/pkg/metadata/gateway"
	"github.com/code-payments/marketplace-adapter/pkg/solana"
)

const (
	envConfigPrefix = "MARKETPLACE_ADAPTER_"

	ProgramIdConfigEnvName = envConfigPrefix + "PROGRAM_ID"

	RpcEndpointConfigEnvName = envConfigPrefix + "RPC_ENDPOINT"
	defaultRpcEndpoint       = string(solana.EnvironmentDev)

	RpcRateConfigEnvName = envConfigPrefix + "RPC_RATE"
	defaultRpcRate       = 0

	FanoutConcurrencyConfigEnvName = envConfigPrefix + "FANOUT_CONCURRENCY"
	defaultFanoutConcurrency       = 8

	IpfsGatewayConfigEnvName = envConfigPrefix + "METADATA_IPFS_GATEWAY"
	defaultIpfsGateway       = gateway.DefaultIPFSGateway

	ArweaveGatewayConfigEnvName = envConfigPrefix + "METADATA_ARWEAVE_GATEWAY"
	defaultArweaveGateway       = gateway.DefaultArweaveGateway

	MetadataCacheBudgetConfigEnvName = envConfigPrefix + "METADATA_CACHE_BUDGET"
	defaultMetadataCacheBudget       = metadatacache.DefaultBudget

	MetadataCacheTTLConfigEnvName = envConfigPrefix + "METADATA_CACHE_TTL"
	defaultMetadataCacheTTL       = metadatacache.DefaultTTL
)

type conf struct {
	programId         config.PublicKey
	rpcEndpoint       config.String
	rpcRate           config.Float64
	fanoutConcurrency config.Uint64
	ipfsGateway       config.String
	arweaveGateway    config.String
	cacheBudget       config.Uint64
	cacheTTL          config.Duration
}

func withEnvConfigs() *conf {
	defaultProgramId, err := base58.Decode(marketplace.DefaultProgramAddress)
	if err != nil {
		panic(err)
	}

	return &conf{
		programId:         env.NewPublicKeyConfig(ProgramIdConfigEnvName, defaultProgramId),
		rpcEndpoint:       env.NewStringConfig(RpcEndpointConfigEnvName, defaultRpcEndpoint),
		rpcRate:           env.NewFloat64Config(RpcRateConfigEnvName, defaultRpcRate),
		fanoutConcurrency: env.NewUint64Config(FanoutConcurrencyConfigEnvName, defaultFanoutConcurrency),
		ipfsGateway:       env.NewStringConfig(IpfsGatewayConfigEnvName, defaultIpfsGateway),
		arweaveGateway:    env.NewStringConfig(ArweaveGatewayConfigEnvName, defaultArweaveGateway),
		cacheBudget:       env.NewUint64Config(MetadataCacheBudgetConfigEnvName, defaultMetadataCacheBudget),
		cacheTTL:          env.NewDurationConfig(MetadataCacheTTLConfigEnvName, defaultMetadataCacheTTL),
	}
}
