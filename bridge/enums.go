package bridge

import (
	"fmt"
	"strings"

	"dupfinder/hasher"
	"dupfinder/scanner"
)

// CheckingMethod is the boundary tag for the grouping key. Values are part of
// the C ABI and never change.
type CheckingMethod uint32

const (
	MethodHash     CheckingMethod = 0
	MethodName     CheckingMethod = 1
	MethodSize     CheckingMethod = 2
	MethodSizeName CheckingMethod = 3
)

// HashAlgorithm is the boundary tag for the content hash. Values are part of
// the C ABI and never change.
type HashAlgorithm uint32

const (
	HashBlake3 HashAlgorithm = 0
	HashCrc32  HashAlgorithm = 1
	HashXxh3   HashAlgorithm = 2
)

var checkingMethodNames = map[CheckingMethod]string{
	MethodHash:     "hash",
	MethodName:     "name",
	MethodSize:     "size",
	MethodSizeName: "size_name",
}

func (m CheckingMethod) String() string {
	if name, ok := checkingMethodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("checking_method(%d)", uint32(m))
}

// Valid reports whether m is one of the declared tags.
func (m CheckingMethod) Valid() bool {
	_, ok := checkingMethodNames[m]
	return ok
}

// ParseCheckingMethod accepts the names printed by String.
func ParseCheckingMethod(name string) (CheckingMethod, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "-", "_")
	for method, methodName := range checkingMethodNames {
		if methodName == key {
			return method, nil
		}
	}
	return MethodHash, fmt.Errorf("unknown checking method: %s", name)
}

func (a HashAlgorithm) String() string {
	if !a.Valid() {
		return fmt.Sprintf("hash_algorithm(%d)", uint32(a))
	}
	return a.engine().String()
}

func (a HashAlgorithm) Valid() bool {
	return a <= HashXxh3
}

// ParseHashAlgorithm accepts blake3, crc32 and xxh3.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	hashType, err := hasher.Parse(name)
	if err != nil {
		return HashBlake3, err
	}
	alg, _ := algorithmFromEngine(hashType)
	return alg, nil
}

// engine maps a boundary tag onto the engine's method. Undeclared tags map to
// scanner.MethodNone, which scans and exports nothing.
func (m CheckingMethod) engine() scanner.CheckingMethod {
	switch m {
	case MethodHash:
		return scanner.MethodHash
	case MethodName:
		return scanner.MethodName
	case MethodSize:
		return scanner.MethodSize
	case MethodSizeName:
		return scanner.MethodSizeName
	default:
		return scanner.MethodNone
	}
}

func methodFromEngine(m scanner.CheckingMethod) (CheckingMethod, bool) {
	switch m {
	case scanner.MethodHash:
		return MethodHash, true
	case scanner.MethodName:
		return MethodName, true
	case scanner.MethodSize:
		return MethodSize, true
	case scanner.MethodSizeName:
		return MethodSizeName, true
	default:
		return 0, false
	}
}

// engine maps a boundary tag onto the engine's hash type. Undeclared tags
// fall back to Blake3.
func (a HashAlgorithm) engine() hasher.HashType {
	switch a {
	case HashBlake3:
		return hasher.Blake3
	case HashCrc32:
		return hasher.Crc32
	case HashXxh3:
		return hasher.Xxh3
	default:
		return hasher.Blake3
	}
}

func algorithmFromEngine(t hasher.HashType) (HashAlgorithm, bool) {
	switch t {
	case hasher.Blake3:
		return HashBlake3, true
	case hasher.Crc32:
		return HashCrc32, true
	case hasher.Xxh3:
		return HashXxh3, true
	default:
		return 0, false
	}
}
