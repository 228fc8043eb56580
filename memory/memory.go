// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memory implements the bounded-memory runtime substrate: a
// linear Wasm memory with standard/stack/unmapped region classification,
// page-granular growth and a reader/writer lock matching the teacher's
// wasmtime.Memory wrapper (x/programs/runtime), reimplemented here as a
// native byte-backed store since this core owns memory rather than
// delegating to an embedded engine.
package memory

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// PageSize is the fixed Wasm page size in bytes.
const PageSize = 65536

// MaxPages is the hard ceiling on pages any single linear memory may
// grow to, matching the 32-bit address space.
const MaxPages = 65536

// GrowFailed is the sentinel value Grow returns when a growth request is
// refused, matching core Wasm's `memory.grow` semantics.
const GrowFailed uint32 = 0xFFFFFFFF

// stackRegionBase is the first address considered part of the
// descending-address stack region.
const stackRegionBase uint32 = 0xFFFF_0000

// Region classifies an address span into one of the three regions a
// LinearMemory recognizes.
type Region int

const (
	// RegionStandard covers 0 <= addr < len(data).
	RegionStandard Region = iota
	// RegionStack covers addr >= stackRegionBase, mapped into stackData.
	RegionStack
	// RegionUnmapped is everything else: any access here fails.
	RegionUnmapped
)

func (r Region) String() string {
	switch r {
	case RegionStandard:
		return "standard"
	case RegionStack:
		return "stack"
	default:
		return "unmapped"
	}
}

// Config bounds a LinearMemory's page count, following the teacher's
// functional-options Config builder (x/programs/runtime/config.go).
type Config struct {
	minPages    uint32
	maxPages    uint32
	hasMax      bool
	stackPages  uint32
}

// NewConfig returns a Config requiring at least minPages pages.
func NewConfig(minPages uint32) *Config {
	return &Config{minPages: minPages}
}

// WithMaxPages declares a maximum page count; Grow refuses past it.
func (c *Config) WithMaxPages(maxPages uint32) *Config {
	c.maxPages = maxPages
	c.hasMax = true
	return c
}

// WithStackPages reserves a fixed number of pages for the descending
// stack region addressed at stackRegionBase and above.
func (c *Config) WithStackPages(stackPages uint32) *Config {
	c.stackPages = stackPages
	return c
}

// LinearMemory is a Wasm linear memory: { min_pages, max_pages?, data,
// stack_data, peak, access_count } per the specification's §3.2 data
// model, guarded by a single reader/writer lock (writers exclusive,
// readers shared) since memory may be accessed from multiple concurrent
// tasks per §5.
type LinearMemory struct {
	mu sync.RWMutex

	minPages uint32
	maxPages uint32
	hasMax   bool

	data      []byte
	stackData []byte

	peak        uint64
	accessCount uint64 // incremented via sync/atomic; read under either lock

	metrics *metricsSet
}

type metricsSet struct {
	peakBytes   prometheus.Gauge
	accessTotal prometheus.Counter
}

// New constructs a LinearMemory from cfg. Construction touches no global
// registry: the metrics field is left nil and no gauge is registered, so
// peak size and access count are available only through Peak and
// AccessCount.
func New(cfg *Config) (*LinearMemory, error) {
	if cfg.hasMax && cfg.maxPages < cfg.minPages {
		return nil, fmt.Errorf("memory: max pages %d less than min pages %d", cfg.maxPages, cfg.minPages)
	}
	if cfg.minPages > MaxPages || (cfg.hasMax && cfg.maxPages > MaxPages) {
		return nil, fmt.Errorf("memory: page count exceeds hard maximum %d", MaxPages)
	}

	m := &LinearMemory{
		minPages: cfg.minPages,
		maxPages: cfg.maxPages,
		hasMax:   cfg.hasMax,
		data:     make([]byte, uint64(cfg.minPages)*PageSize),
	}
	if cfg.stackPages > 0 {
		m.stackData = make([]byte, uint64(cfg.stackPages)*PageSize)
	}
	m.peak = uint64(len(m.data))
	return m, nil
}

// SizePages returns the current number of standard-region pages.
func (m *LinearMemory) SizePages() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint32(len(m.data) / PageSize)
}

// SizeBytes returns the current standard-region size in bytes.
func (m *LinearMemory) SizeBytes() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.data))
}

// Peak returns the largest standard-region size ever observed. Peak
// usage is observational only and must never gate correctness
// decisions.
func (m *LinearMemory) Peak() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.peak
}

// AccessCount returns the number of read/write operations observed so
// far. Observational only, per §4.1.
func (m *LinearMemory) AccessCount() uint64 {
	return atomic.LoadUint64(&m.accessCount)
}

// Grow extends the standard region by delta pages unless doing so would
// exceed a declared maximum or MaxPages. On success it returns the
// previous page count; on refusal it returns GrowFailed, matching core
// Wasm's memory.grow sentinel rather than an error. delta=0 is always
// accepted and returns the current page count.
func (m *LinearMemory) Grow(delta uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := uint32(len(m.data) / PageSize)
	if delta == 0 {
		return prev
	}

	next := uint64(prev) + uint64(delta)
	if next > MaxPages {
		return GrowFailed
	}
	if m.hasMax && next > uint64(m.maxPages) {
		return GrowFailed
	}

	m.data = append(m.data, make([]byte, uint64(delta)*PageSize)...)
	if uint64(len(m.data)) > m.peak {
		m.peak = uint64(len(m.data))
	}
	return prev
}

// classify determines which region the span [addr, addr+length) falls
// entirely within, failing if the span straddles two regions.
func (m *LinearMemory) classify(addr uint32, length uint32) (Region, error) {
	if length == 0 {
		// A zero-length access always succeeds regardless of address,
		// matching core Wasm semantics (spec §9 open question, preserved
		// as intentional).
		if uint64(addr) < uint64(len(m.data)) || addr >= stackRegionBase {
			if addr >= stackRegionBase {
				return RegionStack, nil
			}
			return RegionStandard, nil
		}
		return RegionStandard, nil
	}

	end := uint64(addr) + uint64(length)

	if addr < stackRegionBase {
		if end <= uint64(len(m.data)) {
			return RegionStandard, nil
		}
		if end > stackRegionBase {
			return RegionUnmapped, fmt.Errorf("%w: span [%d,%d) crosses standard/stack boundary", ErrOutOfBounds, addr, end)
		}
		return RegionUnmapped, fmt.Errorf("%w: span [%d,%d) out of bounds (standard size %d)", ErrOutOfBounds, addr, end, len(m.data))
	}

	// addr >= stackRegionBase: stack region, mapped as stack_data[MaxUint32 - addr].
	if end-1 > 0xFFFFFFFF {
		return RegionUnmapped, fmt.Errorf("%w: span [%d,%d) overflows address space", ErrOutOfBounds, addr, end)
	}
	stackOffset := uint64(0xFFFFFFFF) - uint64(addr+length-1)
	if stackOffset+uint64(length) > uint64(len(m.stackData)) {
		return RegionUnmapped, fmt.Errorf("%w: span [%d,%d) out of bounds (stack size %d)", ErrOutOfBounds, addr, end, len(m.stackData))
	}
	return RegionStack, nil
}

func (m *LinearMemory) touch() {
	atomic.AddUint64(&m.accessCount, 1)
}
