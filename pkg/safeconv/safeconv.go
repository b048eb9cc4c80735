// Package safeconv converts between the unsigned offsets tree-sitter reports
// and the signed sizes used elsewhere, panicking when a value cannot fit.
package safeconv

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// MustUintToInt converts uint to int, panics on overflow.
// Use only when overflow is logically impossible.
func MustUintToInt(v uint) int {
	if v > uint(MaxInt) {
		panic("safeconv: uint to int overflow")
	}

	return int(v)
}

// MustUint64 converts a byte count to uint64, panics if negative.
func MustUint64[T ~int | ~int64](v T) uint64 {
	if v < 0 {
		panic("safeconv: negative size")
	}

	return uint64(v)
}
