package memory

import (
	"context"
	"sync/atomic"

	"github.com/code-payments/marketplace-adapter/pkg/config"
)

type state struct {
	value    interface{}
	err      error
	shutdown bool
}

// Config is an in memory config.Config. It backs test overrides, and values
// that are fixed for the lifetime of the process.
type Config struct {
	state atomic.Pointer[state]
}

// NewConfig returns a new in memory config. A nil value means no value is set.
func NewConfig(value interface{}) *Config {
	c := &Config{}
	c.state.Store(&state{value: value})
	return c
}

// Get implements config.Config.Get
func (c *Config) Get(_ context.Context) (interface{}, error) {
	s := c.state.Load()
	switch {
	case s.shutdown:
		return nil, config.ErrShutdown
	case s.err != nil:
		return nil, s.err
	case s.value == nil:
		return nil, config.ErrNoValue
	}
	return s.value, nil
}

// Shutdown implements config.Config.Shutdown
func (c *Config) Shutdown() {
	c.update(func(s *state) { s.shutdown = true })
}

// SetValue sets the value returned by subsequent Get calls.
func (c *Config) SetValue(value interface{}) {
	c.update(func(s *state) { s.value = value })
}

// ClearValue makes subsequent Get calls return config.ErrNoValue.
func (c *Config) ClearValue() {
	c.SetValue(nil)
}

// SetError makes subsequent Get calls fail with err until it is cleared with
// a nil error.
func (c *Config) SetError(err error) {
	c.update(func(s *state) { s.err = err })
}

func (c *Config) update(fn func(*state)) {
	for {
		old := c.state.Load()
		next := *old
		fn(&next)
		if c.state.CompareAndSwap(old, &next) {
			return
		}
	}
}
