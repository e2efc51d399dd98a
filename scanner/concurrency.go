package scanner

import (
	"runtime"

	"dupfinder/logger"

	"github.com/shirou/gopsutil/v4/cpu"
)

// defaultConcurrency prefers the logical CPU count reported by the host and
// falls back to the Go runtime's view.
func defaultConcurrency() int {
	count, err := cpu.Counts(true)
	if err != nil || count < 1 {
		if err != nil {
			logger.Debugf("CPU count unavailable, using runtime.NumCPU: %v", err)
		}
		count = runtime.NumCPU()
	}
	return maxInt(1, count)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
