// SPDX-License-Identifier: MIT
/*
Package bitint provides the power-of-two helpers used to size FFT buffers.

Both functions are O(1), allocation free and safe on the audio path.

	size := bitint.NextPowerOfTwo(1000) // 1024
	ok := bitint.IsPowerOfTwo(size)     // true
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size, and 1 for
// size <= 0. Subtracting 1 first keeps exact powers of 2 unchanged.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of 2 <= size, and 0 for
// size <= 0.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of 2: only then does
// n&(n-1) clear its single set bit.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NearestPowerOfTwo returns the power of 2 closest to n, preferring the
// larger one on ties.
func NearestPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	lo, hi := PrevPowerOfTwo(n), NextPowerOfTwo(n)
	if n-lo < hi-n {
		return lo
	}
	return hi
}
