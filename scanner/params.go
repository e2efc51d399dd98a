package scanner

import "dupfinder/hasher"

// Parameters are fixed for the lifetime of a Finder.
type Parameters struct {
	CheckMethod                 CheckingMethod
	HashType                    hasher.HashType
	IgnoreHardLinks             bool
	UseCache                    bool
	MinimalCacheFileSize        uint64
	MinimalPrehashCacheFileSize uint64
	CaseSensitiveNameComparison bool
}

func NewParameters(
	checkMethod CheckingMethod,
	hashType hasher.HashType,
	ignoreHardLinks bool,
	useCache bool,
	minimalCacheFileSize uint64,
	minimalPrehashCacheFileSize uint64,
	caseSensitiveNameComparison bool,
) Parameters {
	return Parameters{
		CheckMethod:                 checkMethod,
		HashType:                    hashType,
		IgnoreHardLinks:             ignoreHardLinks,
		UseCache:                    useCache,
		MinimalCacheFileSize:        minimalCacheFileSize,
		MinimalPrehashCacheFileSize: minimalPrehashCacheFileSize,
		CaseSensitiveNameComparison: caseSensitiveNameComparison,
	}
}
