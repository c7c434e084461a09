package otp

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Generator generates one-time verification codes
type Generator struct {
	length int
}

// NewGenerator creates a new code generator
func NewGenerator(length int) *Generator {
	if length < 4 {
		length = 4
	}
	if length > 10 {
		length = 10
	}
	return &Generator{
		length: length,
	}
}

// Generate generates a random numeric code
func (g *Generator) Generate() (string, error) {
	max := new(big.Int)
	max.Exp(big.NewInt(10), big.NewInt(int64(g.length)), nil)

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	// Format with leading zeros to ensure exact length
	code := fmt.Sprintf("%0*d", g.length, n)
	return code, nil
}

// Length returns the configured code length
func (g *Generator) Length() int {
	return g.length
}

// GenerateToken generates an unguessable hex token with 128 bits of randomness,
// used as the sole credential for verification links.
func GenerateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Validate checks if the provided code matches the numeric format
func (g *Generator) Validate(code string) bool {
	if len(code) != g.length {
		return false
	}

	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}

	return true
}

// NormalizeCode normalizes a submitted code by removing spaces and separators
func NormalizeCode(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, " ", "")
	code = strings.ReplaceAll(code, "-", "")
	return code
}
