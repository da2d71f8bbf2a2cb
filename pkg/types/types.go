// Package types provides the shared identity types for Intcode programs.
package types

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// HashSize is the size of a program hash in bytes.
const HashSize = blake2b.Size256

// Hash is a 32-byte BLAKE2b-256 digest.
type Hash [HashSize]byte

// ZeroHash is an all-zero hash.
var ZeroHash Hash

// HashFromBytes creates a Hash from a byte slice.
func HashFromBytes(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// HashFromBase58 decodes a base58 string into a Hash.
func HashFromBase58(s string) (Hash, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid base58: %w", err)
	}
	return HashFromBytes(b)
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// String returns the base58 representation.
func (h Hash) String() string {
	return base58.Encode(h[:])
}

// Hex returns the hex representation.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Short returns the first eight base58 characters, for log lines.
func (h Hash) Short() string {
	s := h.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// ProgramHash hashes a program image. Cells are hashed as little-endian
// 64-bit words, so equal images always hash equally regardless of how the
// source text was formatted.
func ProgramHash(image []int64) Hash {
	hasher, _ := blake2b.New256(nil)

	var buf [8]byte
	for _, cell := range image {
		binary.LittleEndian.PutUint64(buf[:], uint64(cell))
		hasher.Write(buf[:])
	}

	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}

// Program is a parsed program image together with its hash.
type Program struct {
	Image []int64
	Hash  Hash
}

// NewProgram wraps image and computes its hash. The image is not copied.
func NewProgram(image []int64) Program {
	return Program{Image: image, Hash: ProgramHash(image)}
}

// Len returns the number of cells in the image.
func (p Program) Len() int {
	return len(p.Image)
}
