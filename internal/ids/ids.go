// Package ids mints the opaque identifiers handed out for shared outputs.
//
// Identifiers are 22-character strings over a 57-symbol alphabet that omits
// look-alike characters (0/O, 1/I/l). Each one encodes the 122 random bits of
// a version 4 UUID, so public ids and delete tokens minted by separate calls
// are independent and cannot be derived from one another.
package ids

import (
	"math/big"

	"github.com/google/uuid"
)

// Alphabet is the symbol set used for encoding.
const Alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Length is the fixed length of every identifier returned by New.
const Length = 22

var base = big.NewInt(int64(len(Alphabet)))

// Generator mints a new identifier. Services accept a Generator so tests can
// force collisions.
type Generator func() string

// New returns a fresh URL-safe identifier.
func New() string {
	return Encode(uuid.New())
}

// Encode renders u in the identifier alphabet, left-padded to Length.
func Encode(u uuid.UUID) string {
	n := new(big.Int).SetBytes(u[:])
	out := make([]byte, Length)
	rem := new(big.Int)
	for i := Length - 1; i >= 0; i-- {
		n.DivMod(n, base, rem)
		out[i] = Alphabet[rem.Int64()]
	}
	return string(out)
}

// Valid reports whether s has the shape of an identifier produced by New.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isSymbol(s[i]) {
			return false
		}
	}
	return true
}

func isSymbol(c byte) bool {
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] == c {
			return true
		}
	}
	return false
}
