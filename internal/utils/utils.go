package utils

import (
	"strconv"

	"github.com/zeebo/xxh3"
)

func Hash(s string) uint64 {
	return xxh3.HashString(s)
}

// Hash32 folds Hash into the 32 bits expected by the LRU caches.
func Hash32(s string) uint32 {
	h := Hash(s)
	return uint32(h ^ h>>32)
}

// ETag is the strong entity tag of body.
func ETag(body []byte) string {
	return strconv.Quote(strconv.FormatUint(xxh3.Hash(body), 16))
}
