// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memory

import "fmt"

func (m *LinearMemory) slice(addr, length uint32) ([]byte, error) {
	region, err := m.classify(addr, length)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	switch region {
	case RegionStandard:
		return m.data[addr : addr+length], nil
	case RegionStack:
		stackOffset := uint64(0xFFFFFFFF) - uint64(addr+length-1)
		return m.stackData[stackOffset : stackOffset+uint64(length)], nil
	default:
		return nil, fmt.Errorf("%w: address %d is unmapped", ErrOutOfBounds, addr)
	}
}

// ReadByte reads a single byte at addr.
func (m *LinearMemory) ReadByte(addr uint32) (byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	defer m.touchRLocked()

	b, err := m.slice(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteByte writes a single byte at addr.
func (m *LinearMemory) WriteByte(addr uint32, value byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.touch()

	b, err := m.slice(addr, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

// ReadBytes reads length bytes starting at addr. A zero-length read at
// any address, including beyond memory size, always succeeds and
// returns an empty slice (spec §8 boundary behavior).
func (m *LinearMemory) ReadBytes(addr uint32, length uint32) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	defer m.touchRLocked()

	if length == 0 {
		return []byte{}, nil
	}
	src, err := m.slice(addr, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, src)
	return out, nil
}

// WriteBytes writes data starting at addr. A zero-length write always
// succeeds.
func (m *LinearMemory) WriteBytes(addr uint32, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.touch()

	if len(data) == 0 {
		return nil
	}
	dst, err := m.slice(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// touchRLocked increments the access counter while holding only the read
// lock; the counter itself is atomic so concurrent readers never race.
func (m *LinearMemory) touchRLocked() {
	m.touch()
}

// CheckAlignment validates that addr is aligned to 2^log2Align bytes.
// log2Align == 0 means "no alignment requirement" per §4.1's relaxed
// reading, preserved per the spec's open question rather than guessed
// away.
func (m *LinearMemory) CheckAlignment(addr uint32, accessSizeBytes uint32, log2Align uint32) error {
	if log2Align == 0 {
		return nil
	}
	if log2Align > 31 {
		return fmt.Errorf("%w: log2 alignment %d out of range", ErrInvalidAlignment, log2Align)
	}
	align := uint32(1) << log2Align
	if addr%align != 0 {
		return &AlignmentError{Addr: addr, Align: align}
	}
	_ = accessSizeBytes
	return nil
}

// Fill sets len bytes starting at addr to value.
func (m *LinearMemory) Fill(addr uint32, value byte, length uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.touch()

	if length == 0 {
		return nil
	}
	dst, err := m.slice(addr, length)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = value
	}
	return nil
}

// CopyWithin copies length bytes from src to dst within the same region,
// correctly handling overlapping ranges (matching Go's builtin copy,
// which already does this for overlapping same-direction slices).
func (m *LinearMemory) CopyWithin(dst, src, length uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer m.touch()

	if length == 0 {
		return nil
	}

	srcRegion, err := m.classify(src, length)
	if err != nil {
		return err
	}
	dstRegion, err := m.classify(dst, length)
	if err != nil {
		return err
	}
	if srcRegion != dstRegion {
		return fmt.Errorf("%w: copy_within requires src and dst in the same region", ErrOutOfBounds)
	}

	srcSlice, err := m.slice(src, length)
	if err != nil {
		return err
	}
	dstSlice, err := m.slice(dst, length)
	if err != nil {
		return err
	}
	copy(dstSlice, srcSlice)
	return nil
}

// InitFromDataSegment copies length bytes from data[srcOff:srcOff+length]
// into this memory at dst, bounds-checking both the segment and the
// destination span.
func (m *LinearMemory) InitFromDataSegment(dst uint32, data []byte, srcOff uint32, length uint32) error {
	if uint64(srcOff)+uint64(length) > uint64(len(data)) {
		return fmt.Errorf("%w: segment span [%d,%d) exceeds segment length %d", ErrInvalidSegment, srcOff, uint64(srcOff)+uint64(length), len(data))
	}
	return m.WriteBytes(dst, data[srcOff:srcOff+length])
}

// CopyBetween copies length bytes from src memory at srcAddr into dst
// memory at dstAddr. Unlike CopyWithin, src and dst are distinct memory
// instances, so this is implemented as a plain read-then-write.
func CopyBetween(dst *LinearMemory, dstAddr uint32, src *LinearMemory, srcAddr uint32, length uint32) error {
	buf, err := src.ReadBytes(srcAddr, length)
	if err != nil {
		return err
	}
	return dst.WriteBytes(dstAddr, buf)
}
