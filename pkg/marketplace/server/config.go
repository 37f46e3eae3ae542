package server

import (
	"time"

	"github.com/code-payments/marketplace-adapter/pkg/config"
	"github.com/code-payments/marketplace-adapter/pkg/config/env"
	"github.com/code-payments/marketplace-adapter/pkg/config/memory"
	"github.com/code-payments/marketplace-adapter/pkg/config/wrapper"
)

const (
	envConfigPrefix = "MARKETPLACE_ADAPTER_"

	MetadataConcurrencyConfigEnvName = envConfigPrefix + "METADATA_CONCURRENCY"
	defaultMetadataConcurrency       = 8

	MetadataTimeoutConfigEnvName = envConfigPrefix + "METADATA_TIMEOUT"
	defaultMetadataTimeout       = 3 * time.Second

	DefaultComputeUnitPriceConfigEnvName = envConfigPrefix + "DEFAULT_COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice              = 0

	ComputeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = 0

	MaxRequestBodySizeConfigEnvName = envConfigPrefix + "MAX_REQUEST_BODY_SIZE"
	defaultMaxRequestBodySize       = 64 * 1024
)

type conf struct {
	metadataConcurrency     config.Uint64
	metadataTimeout         config.Duration
	defaultComputeUnitPrice config.Uint64
	computeUnitLimit        config.Uint64
	maxRequestBodySize      config.Int64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			metadataConcurrency:     env.NewUint64Config(MetadataConcurrencyConfigEnvName, defaultMetadataConcurrency),
			metadataTimeout:         env.NewDurationConfig(MetadataTimeoutConfigEnvName, defaultMetadataTimeout),
			defaultComputeUnitPrice: env.NewUint64Config(DefaultComputeUnitPriceConfigEnvName, defaultComputeUnitPrice),
			computeUnitLimit:        env.NewUint64Config(ComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			maxRequestBodySize:      env.NewInt64Config(MaxRequestBodySizeConfigEnvName, defaultMaxRequestBodySize),
		}
	}
}

type testOverrides struct {
	metadataConcurrency     uint64
	metadataTimeout         time.Duration
	defaultComputeUnitPrice uint64
	computeUnitLimit        uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		metadataConcurrency := overrides.metadataConcurrency
		if metadataConcurrency == 0 {
			metadataConcurrency = defaultMetadataConcurrency
		}
		metadataTimeout := overrides.metadataTimeout
		if metadataTimeout == 0 {
			metadataTimeout = defaultMetadataTimeout
		}

		return &conf{
			metadataConcurrency:     wrapper.NewUint64Config(memory.NewConfig(metadataConcurrency), metadataConcurrency),
			metadataTimeout:         wrapper.NewDurationConfig(memory.NewConfig(metadataTimeout), metadataTimeout),
			defaultComputeUnitPrice: wrapper.NewUint64Config(memory.NewConfig(overrides.defaultComputeUnitPrice), overrides.defaultComputeUnitPrice),
			computeUnitLimit:        wrapper.NewUint64Config(memory.NewConfig(overrides.computeUnitLimit), overrides.computeUnitLimit),
			maxRequestBodySize:      wrapper.NewInt64Config(memory.NewConfig(int64(defaultMaxRequestBodySize)), defaultMaxRequestBodySize),
		}
	}
}
