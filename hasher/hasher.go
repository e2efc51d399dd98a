package hasher

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/crc32"
	"github.com/zeebo/xxh3"
	"lukechampine.com/blake3"
)

// HashType selects the content hash used to confirm duplicates.
type HashType int

const (
	Blake3 HashType = iota
	Crc32
	Xxh3
)

// PrehashSize is how many leading bytes the prehash stage reads.
const PrehashSize = 4 * 1024

const (
	hashBufferSmallSize      = 32 * 1024
	hashBufferLargeSize      = 128 * 1024
	hashLargeBufferThreshold = 256 * 1024
)

var ErrUnsupported = errors.New("unsupported hash type")

var hashBufferSmallPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferSmallSize)
		return &buf
	},
}

var hashBufferLargePool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferLargeSize)
		return &buf
	},
}

func (t HashType) String() string {
	switch t {
	case Blake3:
		return "blake3"
	case Crc32:
		return "crc32"
	case Xxh3:
		return "xxh3"
	default:
		return fmt.Sprintf("hashtype(%d)", int(t))
	}
}

// Parse maps a configuration name onto a HashType.
func Parse(name string) (HashType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "blake3":
		return Blake3, nil
	case "crc32":
		return Crc32, nil
	case "xxh3":
		return Xxh3, nil
	default:
		return Blake3, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
}

// New returns a fresh streaming hash for t.
func (t HashType) New() (hash.Hash, error) {
	switch t {
	case Blake3:
		return blake3.New(32, nil), nil
	case Crc32:
		return crc32.NewIEEE(), nil
	case Xxh3:
		return xxh3.New(), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupported, int(t))
	}
}

// HashFile hashes at most limit bytes of path (limit <= 0 reads the whole file)
// and returns the lowercase hex digest.
func HashFile(path string, t HashType, limit int64) (string, error) {
	h, err := t.New()
	if err != nil {
		return "", err
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var r io.Reader = file
	bufferPool := &hashBufferSmallPool
	if limit > 0 {
		r = io.LimitReader(file, limit)
		if limit >= hashLargeBufferThreshold {
			bufferPool = &hashBufferLargePool
		}
	} else if info, statErr := file.Stat(); statErr == nil && info.Size() >= hashLargeBufferThreshold {
		bufferPool = &hashBufferLargePool
	}

	bufferPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufferPtr)
	if _, err := io.CopyBuffer(h, r, *bufferPtr); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Prehash hashes the first PrehashSize bytes of path.
func Prehash(path string, t HashType) (string, error) {
	return HashFile(path, t, PrehashSize)
}
