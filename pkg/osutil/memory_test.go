package osutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalMemory(t *testing.T) {
	dir := t.TempDir()
	write := func(name, value string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(value), 0o600))
		return path
	}

	limited := write("limited", "1024\n")
	unrestricted := write("unrestricted", "9223372036854771712\n")
	unlimited := write("max", "max\n")
	missing := filepath.Join(dir, "missing")

	assert.EqualValues(t, 1024, totalMemory(4096, missing, limited))
	assert.EqualValues(t, 4096, totalMemory(4096, unrestricted, unlimited, missing))
	assert.EqualValues(t, 4096, totalMemory(4096, write("large", "8192")))
	assert.Positive(t, GetTotalMemory())
}
