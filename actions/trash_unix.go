//go:build !windows
// +build !windows

package actions

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// trashDir follows the freedesktop.org home trash, or ~/.Trash on macOS.
func trashDir() (string, error) {
	home, err := os.UserHomeDir()
	if runtime.GOOS == "darwin" {
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".Trash"), nil
	}
	if data := os.Getenv("XDG_DATA_HOME"); data != "" {
		return filepath.Join(data, "Trash"), nil
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "Trash"), nil
}

// moveToTrash returns where path ended up.
func moveToTrash(path string) (string, error) {
	dir, err := trashDir()
	if err != nil {
		return "", fmt.Errorf("trash unavailable: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return "", err
		}
		dst := uniquePath(dir, filepath.Base(abs))
		return dst, moveFile(abs, dst)
	}

	filesDir := filepath.Join(dir, "files")
	infoDir := filepath.Join(dir, "info")
	for _, d := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return "", err
		}
	}

	// The .trashinfo file is created exclusively first; it reserves the name.
	name := filepath.Base(abs)
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	var infoPath string
	for n := 1; ; n++ {
		if n > 1 {
			name = fmt.Sprintf("%s.%d%s", stem, n, ext)
		}
		infoPath = filepath.Join(infoDir, name+".trashinfo")
		f, err := os.OpenFile(infoPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		escaped := (&url.URL{Path: abs}).EscapedPath()
		_, werr := fmt.Fprintf(f, "[Trash Info]\nPath=%s\nDeletionDate=%s\n",
			escaped, time.Now().Format("2006-01-02T15:04:05"))
		cerr := f.Close()
		if werr == nil {
			werr = cerr
		}
		if werr != nil {
			_ = os.Remove(infoPath)
			return "", werr
		}
		break
	}

	dst := filepath.Join(filesDir, name)
	if err := moveFile(abs, dst); err != nil {
		_ = os.Remove(infoPath)
		return "", err
	}
	return dst, nil
}
