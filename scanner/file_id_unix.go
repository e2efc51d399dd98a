//go:build !windows
// +build !windows

package scanner

import (
	"os"
	"syscall"
)

type fileID struct {
	dev uint64
	ino uint64
}

func getFileID(path string, info os.FileInfo) (fileID, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok || stat == nil {
		return fileID{}, false
	}
	return fileID{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true
}
