package env

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/marketplace-adapter/pkg/config"
)

func TestConfig(t *testing.T) {
	const key = "ENV_CONFIG_TEST_VAR"
	ctx := context.Background()

	t.Setenv(key, "value")
	v, err := NewConfig(key).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), v)

	t.Setenv(key, "")
	v, err = NewConfig(key).Get(ctx)
	assert.Nil(t, v)
	assert.Equal(t, config.ErrNoValue, err)
}

func TestConfig_File(t *testing.T) {
	const key = "ENV_CONFIG_TEST_SECRET"
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	t.Setenv(key+FileSuffix, path)

	v, err := NewConfig(key).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("from-file"), v)

	t.Setenv(key, "from-env")
	v, err = NewConfig(key).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("from-env"), v)

	t.Setenv(key, "")
	t.Setenv(key+FileSuffix, filepath.Join(t.TempDir(), "missing"))
	_, err = NewConfig(key).Get(ctx)
	assert.Error(t, err)
	assert.Equal(t, "fallback", NewStringConfig(key, "fallback").Get(ctx))
}

func TestTypedConfigs(t *testing.T) {
	const (
		durationEnv = "ENV_CONFIG_TEST_DURATION"
		keyEnv      = "ENV_CONFIG_TEST_PUBLIC_KEY"
	)
	ctx := context.Background()
	t.Setenv(durationEnv, "3s")
	t.Setenv(keyEnv, "11111111111111111111111111111111")

	assert.Equal(t, 3*time.Second, NewDurationConfig(durationEnv, time.Second).Get(ctx))
	assert.Equal(t, make([]byte, 32), []byte(NewPublicKeyConfig(keyEnv, nil).Get(ctx)))
	assert.Equal(t, "fallback", NewStringConfig("ENV_CONFIG_TEST_UNSET", "fallback").Get(ctx))
}
