package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, for log lines.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// Hasher accumulates length-prefixed fields so that ("ab","c") and ("a","bc")
// never collide.
type Hasher struct {
	b strings.Builder
}

// Field appends one field.
func (h *Hasher) Field(s string) *Hasher {
	h.b.WriteString(itoa(len(s)))
	h.b.WriteByte(':')
	h.b.WriteString(s)
	return h
}

// Fields appends a field count followed by every field.
func (h *Hasher) Fields(values []string) *Hasher {
	h.Field(itoa(len(values)))
	for _, v := range values {
		h.Field(v)
	}
	return h
}

// SortedFields appends values in lexical order without mutating the input.
func (h *Hasher) SortedFields(values []string) *Hasher {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return h.Fields(sorted)
}

// Sum returns the hash of everything written so far.
func (h *Hasher) Sum() Hash {
	return NewHash([]byte(h.b.String()))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
