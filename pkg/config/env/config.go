package env

import (
	"context"
	"crypto/ed25519"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/config"
	"github.com/code-payments/marketplace-adapter/pkg/config/wrapper"
)

// FileSuffix marks a variable that names a file holding the value, for
// secrets mounted into the container rather than exported.
const FileSuffix = "_FILE"

type conf struct {
	val []byte
	err error
}

// NewConfig returns a config backed by the environment variable key, read
// once at construction. When key is unset or empty, key+FileSuffix is
// consulted instead.
func NewConfig(key string) config.Config {
	key = strings.ToUpper(key)

	if val := os.Getenv(key); len(val) > 0 {
		return &conf{val: []byte(val)}
	}

	path := os.Getenv(key + FileSuffix)
	if len(path) == 0 {
		return &conf{}
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return &conf{err: errors.Wrapf(err, "failed to read %s%s", key, FileSuffix)}
	}
	return &conf{val: []byte(strings.TrimRight(string(contents), "\r\n"))}
}

// Get implements Config.Get
func (c *conf) Get(_ context.Context) (interface{}, error) {
	if c.err != nil {
		return nil, c.err
	}
	if len(c.val) == 0 {
		return nil, config.ErrNoValue
	}
	return c.val, nil
}

// Shutdown implements Config.Shutdown
func (c *conf) Shutdown() {}

func NewBytesConfig(key string, defaultValue []byte) config.Bytes {
	return wrapper.NewBytesConfig(NewConfig(key), defaultValue)
}

func NewInt64Config(key string, defaultValue int64) config.Int64 {
	return wrapper.NewInt64Config(NewConfig(key), defaultValue)
}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewFloat64Config(key string, defaultValue float64) config.Float64 {
	return wrapper.NewFloat64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}

// NewPublicKeyConfig creates an env-based base58 public key config
func NewPublicKeyConfig(key string, defaultValue ed25519.PublicKey) config.PublicKey {
	return wrapper.NewPublicKeyConfig(NewConfig(key), defaultValue)
}
