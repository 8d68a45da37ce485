package idgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
)

const (
	MinRandomLength     = 6
	MaxRandomLength     = 16
	DefaultRandomLength = 8
)

// RandomGenerator draws codes uniformly from the base62 alphabet using
// crypto/rand. A code of length L has 62^L possible values, so with n live
// links the probability that a single new code collides is n / 62^L
// (about 4.6e-9 per create at one million links with L=8).
type RandomGenerator struct {
	length int
	reader io.Reader
}

func NewRandomGenerator(length int) (*RandomGenerator, error) {
	if length < MinRandomLength || length > MaxRandomLength {
		return nil, fmt.Errorf("code length must be between %d and %d", MinRandomLength, MaxRandomLength)
	}
	return &RandomGenerator{length: length, reader: rand.Reader}, nil
}

// Generate returns a fresh random code.
func (g *RandomGenerator) Generate(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	code := make([]byte, 0, g.length)
	// 248 = 4*62: bytes at or above it are rejected so every symbol is equally likely.
	buf := make([]byte, g.length+g.length/2)
	for len(code) < g.length {
		if _, err := io.ReadFull(g.reader, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= 248 {
				continue
			}
			code = append(code, alphabet[b%62])
			if len(code) == g.length {
				break
			}
		}
	}
	return string(code), nil
}
