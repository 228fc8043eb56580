// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memory

import (
	"encoding/binary"

	"github.com/pulseengine/wrt-go/foundation"
)

// Typed load/store for every Wasm integer width plus f32/f64/v128, all
// little-endian. Each is implemented atop ReadBytes/WriteBytes so that
// every access still goes through region classification exactly once.

// LoadI8 reads a signed 8-bit integer.
func (m *LinearMemory) LoadI8(addr uint32) (int8, error) {
	b, err := m.ReadBytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

// LoadU8 reads an unsigned 8-bit integer.
func (m *LinearMemory) LoadU8(addr uint32) (uint8, error) {
	b, err := m.ReadBytes(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// StoreU8 writes an unsigned 8-bit integer.
func (m *LinearMemory) StoreU8(addr uint32, v uint8) error {
	return m.WriteBytes(addr, []byte{v})
}

// LoadI16 reads a little-endian signed 16-bit integer.
func (m *LinearMemory) LoadI16(addr uint32) (int16, error) {
	b, err := m.ReadBytes(addr, 2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

// LoadU16 reads a little-endian unsigned 16-bit integer.
func (m *LinearMemory) LoadU16(addr uint32) (uint16, error) {
	b, err := m.ReadBytes(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// StoreU16 writes a little-endian unsigned 16-bit integer.
func (m *LinearMemory) StoreU16(addr uint32, v uint16) error {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return m.WriteBytes(addr, b)
}

// LoadI32 reads a little-endian signed 32-bit integer.
func (m *LinearMemory) LoadI32(addr uint32) (int32, error) {
	b, err := m.ReadBytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// LoadU32 reads a little-endian unsigned 32-bit integer.
func (m *LinearMemory) LoadU32(addr uint32) (uint32, error) {
	b, err := m.ReadBytes(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// StoreU32 writes a little-endian unsigned 32-bit integer.
func (m *LinearMemory) StoreU32(addr uint32, v uint32) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return m.WriteBytes(addr, b)
}

// LoadI64 reads a little-endian signed 64-bit integer.
func (m *LinearMemory) LoadI64(addr uint32) (int64, error) {
	b, err := m.ReadBytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// LoadU64 reads a little-endian unsigned 64-bit integer.
func (m *LinearMemory) LoadU64(addr uint32) (uint64, error) {
	b, err := m.ReadBytes(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// StoreU64 writes a little-endian unsigned 64-bit integer.
func (m *LinearMemory) StoreU64(addr uint32, v uint64) error {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return m.WriteBytes(addr, b)
}

// LoadF32 reads a little-endian IEEE-754 single-precision value as its
// bit pattern, per §3.1's float-bits-everywhere rule.
func (m *LinearMemory) LoadF32(addr uint32) (foundation.FloatBits32, error) {
	v, err := m.LoadU32(addr)
	if err != nil {
		return 0, err
	}
	return foundation.FloatBits32(v), nil
}

// StoreF32 writes a FloatBits32 bit pattern.
func (m *LinearMemory) StoreF32(addr uint32, v foundation.FloatBits32) error {
	return m.StoreU32(addr, uint32(v))
}

// LoadF64 reads a little-endian IEEE-754 double-precision value as its
// bit pattern.
func (m *LinearMemory) LoadF64(addr uint32) (foundation.FloatBits64, error) {
	v, err := m.LoadU64(addr)
	if err != nil {
		return 0, err
	}
	return foundation.FloatBits64(v), nil
}

// StoreF64 writes a FloatBits64 bit pattern.
func (m *LinearMemory) StoreF64(addr uint32, v foundation.FloatBits64) error {
	return m.StoreU64(addr, uint64(v))
}

// LoadV128 reads a 128-bit SIMD lane group as raw bytes.
func (m *LinearMemory) LoadV128(addr uint32) ([16]byte, error) {
	var out [16]byte
	b, err := m.ReadBytes(addr, 16)
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// StoreV128 writes a 128-bit SIMD lane group.
func (m *LinearMemory) StoreV128(addr uint32, v [16]byte) error {
	return m.WriteBytes(addr, v[:])
}
