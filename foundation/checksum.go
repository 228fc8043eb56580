// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package foundation

import "io"

// Checksummable is implemented by every value that must support a
// deterministic, total checksum — including values that embed floats,
// which is why it is kept separate from hash.Hash: implementations fold
// FloatBits rather than raw float64 bit patterns obtained via bit-casting
// NaN payloads that are not canonicalized.
type Checksummable interface {
	// Checksum folds the value's bytes into acc using a simple running
	// FNV-1a accumulator and returns the updated value.
	Checksum(acc uint64) uint64
}

// ToBytes serializes a value as writer/provider pair: the provider is the
// only allocation source available to the writer.
type ToBytes interface {
	ToBytes(w io.Writer, p *MemoryProvider) error
}

// FromBytes deserializes a value previously produced by ToBytes.
type FromBytes interface {
	FromBytes(r io.Reader, p *MemoryProvider) error
}

// FNV1aOffset and FNV1aPrime are the 64-bit FNV-1a constants used by
// every Checksummable implementation in this module so that checksums
// compose predictably across nested bounded containers.
const (
	FNV1aOffset uint64 = 14695981039346656037
	FNV1aPrime  uint64 = 1099511628211
)

// ChecksumBytes folds raw bytes into an FNV-1a accumulator.
func ChecksumBytes(acc uint64, b []byte) uint64 {
	for _, c := range b {
		acc ^= uint64(c)
		acc *= FNV1aPrime
	}
	return acc
}
