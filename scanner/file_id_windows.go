//go:build windows
// +build windows

package scanner

import (
	"os"

	"golang.org/x/sys/windows"
)

type fileID struct {
	dev uint64
	ino uint64
}

func getFileID(path string, info os.FileInfo) (fileID, bool) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return fileID{}, false
	}
	handle, err := windows.CreateFile(
		p,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return fileID{}, false
	}
	defer windows.CloseHandle(handle)

	var data windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(handle, &data); err != nil {
		return fileID{}, false
	}
	return fileID{
		dev: uint64(data.VolumeSerialNumber),
		ino: uint64(data.FileIndexHigh)<<32 | uint64(data.FileIndexLow),
	}, true
}
