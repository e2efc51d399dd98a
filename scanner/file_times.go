package scanner

import (
	"os"

	"github.com/djherbis/times"
)

// modifiedDate returns the modification time of info in Unix seconds, clamped
// at zero for pre-epoch timestamps.
func modifiedDate(info os.FileInfo) uint64 {
	sec := times.Get(info).ModTime().Unix()
	if sec < 0 {
		return 0
	}
	return uint64(sec)
}
