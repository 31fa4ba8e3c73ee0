// Package auth issues and checks the bearer keys that guard the relay API.
//
// A key reads dxrelay_<prefix>_<secret>. The prefix is stored in clear to
// look the key up; only a SHA-256 hash of the secret is stored.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"math/big"
	"strings"
)

const (
	keyPrefix    = "dxrelay_"
	prefixLength = 12
	secretBytes  = 32
)

var ErrInvalidKeyFormat = errors.New("invalid API key format")

// Key is a freshly generated API key. Display is shown once to the
// operator; Prefix and Hash are what gets stored.
type Key struct {
	Display string
	Prefix  string
	Hash    []byte
}

func Generate() (Key, error) {
	raw := make([]byte, prefixLength+secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return Key{}, err
	}

	prefix := make([]byte, prefixLength)
	for i, b := range raw[:prefixLength] {
		prefix[i] = lowerAlnum[int(b)%len(lowerAlnum)]
	}
	secret := base62(raw[prefixLength:])

	return Key{
		Display: keyPrefix + string(prefix) + "_" + secret,
		Prefix:  string(prefix),
		Hash:    HashSecret(secret),
	}, nil
}

func HashSecret(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

// Parse splits a display key into its lookup prefix and secret.
func Parse(display string) (prefix, secret string, err error) {
	rest, ok := strings.CutPrefix(display, keyPrefix)
	if !ok {
		return "", "", ErrInvalidKeyFormat
	}
	prefix, secret, ok = strings.Cut(rest, "_")
	if !ok || secret == "" || len(prefix) != prefixLength {
		return "", "", ErrInvalidKeyFormat
	}
	if strings.IndexFunc(prefix, func(r rune) bool { return !strings.ContainsRune(lowerAlnum, r) }) >= 0 {
		return "", "", ErrInvalidKeyFormat
	}
	return prefix, secret, nil
}

// Verify reports whether display's secret hashes to stored.
func Verify(display string, stored []byte) bool {
	_, secret, err := Parse(display)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(HashSecret(secret), stored) == 1
}

const (
	lowerAlnum     = "abcdefghijklmnopqrstuvwxyz0123456789"
	base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

func base62(data []byte) string {
	num := new(big.Int).SetBytes(data)
	radix := big.NewInt(62)
	mod := new(big.Int)

	var out []byte
	for num.Sign() > 0 {
		num.DivMod(num, radix, mod)
		out = append(out, base62Alphabet[mod.Int64()])
	}
	// leading zero bytes carry no value in num
	for _, b := range data {
		if b != 0 {
			break
		}
		out = append(out, '0')
	}
	if len(out) == 0 {
		return "0"
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}
