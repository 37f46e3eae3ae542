package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/marketplace-adapter/pkg/config"
)

func TestConfig(t *testing.T) {
	ctx := context.Background()

	c := NewConfig(nil)
	_, err := c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	c.SetValue(uint64(5))
	val, err := c.Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, val)

	induced := errors.New("unavailable")
	c.SetError(induced)
	_, err = c.Get(ctx)
	assert.Equal(t, induced, err)

	c.SetError(nil)
	val, err = c.Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, val)

	c.ClearValue()
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrNoValue, err)

	c.SetValue("value")
	c.Shutdown()
	_, err = c.Get(ctx)
	assert.Equal(t, config.ErrShutdown, err)
}

func TestConfig_ConcurrentUpdates(t *testing.T) {
	c := NewConfig(0)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.SetValue(i)
			_, _ = c.Get(context.Background())
		}(i)
	}
	c.SetError(errors.New("induced"))
	wg.Wait()

	_, err := c.Get(context.Background())
	assert.EqualError(t, err, "induced")
}
