package idgen

import (
	"errors"
	"math"
)

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var ErrInvalidBase62 = errors.New("invalid base62 string")

var charIndex = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		idx[alphabet[i]] = int8(i)
	}
	return idx
}()

// Encode returns the base62 form of n, most significant digit first.
func Encode(n uint64) string {
	if n == 0 {
		return "0"
	}
	// 11 digits cover the full uint64 range.
	var buf [11]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = alphabet[n%62]
		n /= 62
	}
	return string(buf[i:])
}

// Decode parses a base62 string produced by Encode.
func Decode(s string) (uint64, error) {
	if s == "" {
		return 0, ErrInvalidBase62
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		d := charIndex[s[i]]
		if d < 0 {
			return 0, ErrInvalidBase62
		}
		if n > (math.MaxUint64-uint64(d))/62 {
			return 0, ErrInvalidBase62
		}
		n = n*62 + uint64(d)
	}
	return n, nil
}
