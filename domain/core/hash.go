package core

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"math"
	"strconv"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashReader hashes everything readable from r
func HashReader(r io.Reader) (Hash, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return Hash(hex.EncodeToString(h.Sum(nil))), nil
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Short returns the first 12 hex characters, for log lines
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// HashFields hashes an ordered list of labelled values. Floats are encoded by
// their bit pattern so the hash is exact.
type HashFields struct {
	b strings.Builder
}

func (f *HashFields) String(key, value string) *HashFields {
	f.b.WriteString(key)
	f.b.WriteByte('=')
	f.b.WriteString(strconv.Quote(value))
	f.b.WriteByte(';')
	return f
}

func (f *HashFields) Float(key string, value float64) *HashFields {
	return f.String(key, strconv.FormatUint(math.Float64bits(value), 16))
}

func (f *HashFields) Floats(key string, values []float64) *HashFields {
	for i, v := range values {
		f.Float(key+"["+strconv.Itoa(i)+"]", v)
	}
	return f
}

func (f *HashFields) Int(key string, value int) *HashFields {
	return f.String(key, strconv.Itoa(value))
}

// Sum returns the hash of everything written so far
func (f *HashFields) Sum() Hash {
	return NewHash([]byte(f.b.String()))
}
