package osutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/pbnjay/memory"
)

const (
	// This is the default value for cgroup's limit_in_bytes. This is not a
	// valid value and indicates that the memory is not restricted.
	// See https://unix.stackexchange.com/questions/420906/what-is-the-value-for-the-cgroups-limit-in-bytes-if-the-memory-is-not-restricte
	unrestrictedMemoryLimit = 9223372036854771712
)

var cgroupMemoryLimitLocations = []string{
	"/sys/fs/cgroup/memory/memory.limit_in_bytes", // v1
	"/sys/fs/cgroup/memory.max",                   // v2, "max" when unrestricted
}

// GetTotalMemory returns the total available memory size. The call is
// container-aware.
func GetTotalMemory() uint64 {
	return totalMemory(memory.TotalMemory(), cgroupMemoryLimitLocations...)
}

func totalMemory(system uint64, limitFiles ...string) uint64 {
	for _, location := range limitFiles {
		raw, err := os.ReadFile(location)
		if err != nil {
			continue
		}

		limit, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
		if err != nil || limit == unrestrictedMemoryLimit {
			continue
		}
		if limit < system {
			return limit
		}
	}
	return system
}
