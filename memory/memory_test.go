// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulseengine/wrt-go/foundation"
)

// TestGrowAndWrite covers scenario S1 from the specification: grow,
// write, read back, then observe the grow sentinel on refusal.
func TestGrowAndWrite(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1).WithMaxPages(2))
	require.NoError(err)

	prev := m.Grow(1)
	require.Equal(uint32(1), prev)

	require.NoError(m.WriteBytes(PageSize, []byte{1, 2, 3}))
	got, err := m.ReadBytes(PageSize, 3)
	require.NoError(err)
	require.Equal([]byte{1, 2, 3}, got)

	require.Equal(GrowFailed, m.Grow(1))
}

// TestCheckAlignment covers scenario S2.
func TestCheckAlignment(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1))
	require.NoError(err)

	require.NoError(m.CheckAlignment(4, 4, 2))

	err = m.CheckAlignment(1, 4, 2)
	require.Error(err)
	var alignErr *AlignmentError
	require.True(errors.As(err, &alignErr))
	require.Equal(uint32(1), alignErr.Addr)
	require.Equal(uint32(4), alignErr.Align)
}

func TestGrowDeltaZeroReturnsCurrentPages(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(3))
	require.NoError(err)

	require.Equal(uint32(3), m.Grow(0))
}

func TestZeroLengthAccessAlwaysSucceeds(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1))
	require.NoError(err)

	_, err = m.ReadBytes(1_000_000_000, 0)
	require.NoError(err)

	require.NoError(m.WriteBytes(1_000_000_000, nil))
}

func TestCrossRegionSpanFails(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1).WithStackPages(1))
	require.NoError(err)

	// A span starting one byte before the end of the single standard
	// page and extending past it is out of bounds, even though the
	// stack region (reachable only at much higher addresses) is valid.
	_, err = m.ReadBytes(PageSize-1, 2)
	require.Error(err)
	require.True(errors.Is(err, ErrOutOfBounds))
}

func TestStackRegionReadWrite(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1).WithStackPages(1))
	require.NoError(err)

	topAddr := uint32(0xFFFFFFFF)
	require.NoError(m.WriteByte(topAddr, 0x42))
	got, err := m.ReadByte(topAddr)
	require.NoError(err)
	require.Equal(byte(0x42), got)
}

func TestUnmappedRegionFails(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1))
	require.NoError(err)

	_, err = m.ReadBytes(stackRegionBase-10, 1)
	require.Error(err)
	require.True(errors.Is(err, ErrOutOfBounds))
}

func TestReadWriteReadIdentity(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1))
	require.NoError(err)

	orig, err := m.ReadBytes(0, 16)
	require.NoError(err)

	require.NoError(m.WriteBytes(0, orig))
	again, err := m.ReadBytes(0, 16)
	require.NoError(err)
	require.Equal(orig, again)
}

func TestPeakMonotonic(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1).WithMaxPages(4))
	require.NoError(err)

	require.Equal(uint64(PageSize), m.Peak())
	m.Grow(2)
	require.Equal(uint64(3*PageSize), m.Peak())
	m.Grow(0)
	require.Equal(uint64(3*PageSize), m.Peak())
}

func TestTypedRoundTrip(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1))
	require.NoError(err)

	require.NoError(m.StoreU32(0, 0xDEADBEEF))
	v, err := m.LoadU32(0)
	require.NoError(err)
	require.Equal(uint32(0xDEADBEEF), v)

	require.NoError(m.StoreF64(8, foundation.NewFloatBits64(3.5)))
	f, err := m.LoadF64(8)
	require.NoError(err)
	require.Equal(3.5, f.Float64())
}

func TestCopyWithinOverlapping(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1))
	require.NoError(err)

	require.NoError(m.WriteBytes(0, []byte{1, 2, 3, 4, 5}))
	require.NoError(m.CopyWithin(2, 0, 3))

	got, err := m.ReadBytes(0, 5)
	require.NoError(err)
	require.Equal([]byte{1, 2, 1, 2, 3}, got)
}

func TestInitFromDataSegmentBoundsBothSides(t *testing.T) {
	require := require.New(t)

	m, err := New(NewConfig(1))
	require.NoError(err)

	seg := []byte{1, 2, 3, 4}
	err = m.InitFromDataSegment(0, seg, 2, 10)
	require.Error(err)
	require.True(errors.Is(err, ErrInvalidSegment))

	require.NoError(m.InitFromDataSegment(0, seg, 1, 2))
	got, err := m.ReadBytes(0, 2)
	require.NoError(err)
	require.Equal([]byte{2, 3}, got)
}
