package vector

import (
	"unicode/utf16"
)

// StableNumericID maps a string id onto the unsigned integer id space of the
// index. It is the 31-multiplier string hash over UTF-16 code units with
// 32-bit wrap-around, made non-negative, so ids written by earlier
// deployments keep resolving to the same points. Distinct ids can collide.
func StableNumericID(id string) uint64 {
	var h int32
	for _, unit := range utf16.Encode([]rune(id)) {
		h = h*31 + int32(unit)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return uint64(v)
}
