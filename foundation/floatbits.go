// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package foundation

import "math"

// FloatBits32 stores an IEEE-754 single-precision value as its raw bit
// pattern so that equality, hashing, and checksums are total: two NaNs
// with different payloads compare unequal by bit pattern rather than
// colliding (or panicking) under Go's native float equality, which is
// never total for NaN.
type FloatBits32 uint32

// NewFloatBits32 captures the bit pattern of f.
func NewFloatBits32(f float32) FloatBits32 {
	return FloatBits32(math.Float32bits(f))
}

// Float32 reinterprets the stored bits as a float32. Arithmetic should go
// through the Wasm-semantics math helpers, not this accessor, whenever
// canonical-NaN behavior matters.
func (b FloatBits32) Float32() float32 {
	return math.Float32frombits(uint32(b))
}

// Checksum implements Checksummable.
func (b FloatBits32) Checksum(acc uint64) uint64 {
	return ChecksumBytes(acc, []byte{byte(b), byte(b >> 8), byte(b >> 16), byte(b >> 24)})
}

// FloatBits64 is the double-precision counterpart of FloatBits32.
type FloatBits64 uint64

// NewFloatBits64 captures the bit pattern of f.
func NewFloatBits64(f float64) FloatBits64 {
	return FloatBits64(math.Float64bits(f))
}

// Float64 reinterprets the stored bits as a float64.
func (b FloatBits64) Float64() float64 {
	return math.Float64frombits(uint64(b))
}

// Checksum implements Checksummable.
func (b FloatBits64) Checksum(acc uint64) uint64 {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(b >> (8 * i))
	}
	return ChecksumBytes(acc, buf)
}

// CanonicalNaN32 is the canonical NaN bit pattern Wasm arithmetic must
// produce whenever a NaN result is unspecified by the spec.
const CanonicalNaN32 FloatBits32 = 0x7fc00000

// CanonicalNaN64 is the 64-bit counterpart of CanonicalNaN32.
const CanonicalNaN64 FloatBits64 = 0x7ff8000000000000

// AddF32 adds two f32 values with Wasm NaN-propagation semantics: if
// either operand is NaN, the result is the canonical NaN rather than
// whatever payload the host FPU happens to propagate.
func AddF32(a, b FloatBits32) FloatBits32 {
	af, bf := a.Float32(), b.Float32()
	if isNaN32(af) || isNaN32(bf) {
		return CanonicalNaN32
	}
	return NewFloatBits32(af + bf)
}

// AddF64 is the double-precision counterpart of AddF32.
func AddF64(a, b FloatBits64) FloatBits64 {
	af, bf := a.Float64(), b.Float64()
	if isNaN64(af) || isNaN64(bf) {
		return CanonicalNaN64
	}
	return NewFloatBits64(af + bf)
}

func isNaN32(f float32) bool { return f != f }
func isNaN64(f float64) bool { return f != f }
