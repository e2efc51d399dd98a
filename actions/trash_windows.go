//go:build windows
// +build windows

package actions

import "errors"

// TODO: send files to the Recycle Bin through SHFileOperationW.
func moveToTrash(path string) (string, error) {
	return "", errors.New("trash is not supported on windows")
}
