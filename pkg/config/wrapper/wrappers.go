package wrapper

import (
	"context"
	"crypto/ed25519"
	"strconv"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/marketplace-adapter/pkg/config"
)

// ErrUnsuportedConversion indicates the wrapper does not implement conversion from the source type
var ErrUnsuportedConversion = errors.New("config: wrapper conversion from source type not implemented")

// converter turns a raw value from the underlying config into T. Raw values
// arrive either as []byte (env) or already typed (memory).
type converter[T any] func(raw interface{}) (T, error)

// typedConfig is a utility wrapper that remembers the last known good value
// of an underlying config.
type typedConfig[T any] struct {
	override     config.Config
	defaultValue T
	convert      converter[T]

	stateMu   sync.RWMutex
	lastValue T
}

func newTypedConfig[T any](override config.Config, defaultValue T, convert converter[T]) *typedConfig[T] {
	return &typedConfig[T]{
		override:     override,
		defaultValue: defaultValue,
		convert:      convert,
		lastValue:    defaultValue,
	}
}

// GetSafe gets a config value and propagates any errors that arise. A best-effort
// attempt is made to return the last known value
func (c *typedConfig[T]) GetSafe(ctx context.Context) (T, error) {
	override, err := c.override.Get(ctx)

	c.stateMu.RLock()
	lastValue := c.lastValue
	c.stateMu.RUnlock()

	if err == config.ErrNoValue {
		c.stateMu.Lock()
		c.lastValue = c.defaultValue
		c.stateMu.Unlock()
		return c.defaultValue, nil
	} else if err != nil {
		return lastValue, err
	}

	newValue, err := c.convert(override)
	if err != nil {
		return lastValue, err
	}

	c.stateMu.Lock()
	c.lastValue = newValue
	c.stateMu.Unlock()
	return newValue, nil
}

// Get is a wrapper for GetSafe that ignores the returned error
func (c *typedConfig[T]) Get(ctx context.Context) T {
	val, _ := c.GetSafe(ctx)
	return val
}

// Shutdown signals the config to stop all underlying resources
func (c *typedConfig[T]) Shutdown() {
	c.override.Shutdown()
}

// parsed builds a converter that accepts T directly, or parses it from bytes.
func parsed[T any](parse func(string) (T, error)) converter[T] {
	return func(raw interface{}) (T, error) {
		switch typed := raw.(type) {
		case T:
			return typed, nil
		case []byte:
			return parse(string(typed))
		default:
			var zero T
			return zero, ErrUnsuportedConversion
		}
	}
}

// fromInt extends convert to accept untyped int literals, as set by in
// memory configs.
func fromInt[T any](convert converter[T], cast func(int) (T, bool)) converter[T] {
	return func(raw interface{}) (T, error) {
		if v, ok := raw.(int); ok {
			if typed, ok := cast(v); ok {
				return typed, nil
			}
			var zero T
			return zero, errors.Errorf("config: %d out of range", v)
		}
		return convert(raw)
	}
}

// NewBytesConfig returns a new byte array config utility wrapper
func NewBytesConfig(override config.Config, defaultValue []byte) config.Bytes {
	return newTypedConfig(override, defaultValue, func(raw interface{}) ([]byte, error) {
		if typed, ok := raw.([]byte); ok {
			return typed, nil
		}
		return nil, ErrUnsuportedConversion
	})
}

// NewBoolConfig returns a new bool config utility wrapper
func NewBoolConfig(override config.Config, defaultValue bool) config.Bool {
	return newTypedConfig(override, defaultValue, parsed(strconv.ParseBool))
}

// NewInt64Config returns a new int64 config utility wrapper
func NewInt64Config(override config.Config, defaultValue int64) config.Int64 {
	return newTypedConfig(override, defaultValue, fromInt(parsed(func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	}), func(v int) (int64, bool) { return int64(v), true }))
}

// NewUint64Config returns a new uint64 config utility wrapper
func NewUint64Config(override config.Config, defaultValue uint64) config.Uint64 {
	return newTypedConfig(override, defaultValue, fromInt(parsed(func(s string) (uint64, error) {
		return strconv.ParseUint(s, 10, 64)
	}), func(v int) (uint64, bool) { return uint64(v), v >= 0 }))
}

// NewFloat64Config returns a new float64 config utility wrapper
func NewFloat64Config(override config.Config, defaultValue float64) config.Float64 {
	return newTypedConfig(override, defaultValue, parsed(func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}))
}

// NewStringConfig returns a new string config utility wrapper
func NewStringConfig(override config.Config, defaultValue string) config.String {
	return newTypedConfig(override, defaultValue, parsed(func(s string) (string, error) {
		return s, nil
	}))
}

// NewDurationConfig returns a new duration config utility wrapper
func NewDurationConfig(override config.Config, defaultValue time.Duration) config.Duration {
	return newTypedConfig(override, defaultValue, parsed(time.ParseDuration))
}

// NewPublicKeyConfig returns a new config utility wrapper for a base58
// encoded ed25519 public key
func NewPublicKeyConfig(override config.Config, defaultValue ed25519.PublicKey) config.PublicKey {
	return newTypedConfig(override, defaultValue, parsed(func(s string) (ed25519.PublicKey, error) {
		decoded, err := base58.Decode(s)
		if err != nil {
			return nil, errors.Wrap(err, "invalid base58 public key")
		}
		if len(decoded) != ed25519.PublicKeySize {
			return nil, errors.Errorf("invalid public key length: %d", len(decoded))
		}
		return decoded, nil
	}))
}
