// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package foundation implements the bounded, budgeted primitives that every
// other package in this module is built from: fixed-capacity containers,
// wire-format serialization, and NaN-stable float values. Nothing here
// allocates beyond the budget handed to it at construction time.
package foundation

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrCapacityExceeded is returned whenever a bounded container is asked to
// grow past its fixed maximum.
var ErrCapacityExceeded = fmt.Errorf("foundation: capacity exceeded")

// ErrBudgetExceeded is returned by SafeManagedAlloc when a crate has
// already consumed its allotted byte budget.
var ErrBudgetExceeded = fmt.Errorf("foundation: memory budget exceeded")

// MemoryProvider is a budgeted arena. Every bounded container is
// parameterized by one; creating a container consumes from the arena,
// dropping it returns nothing because the arena is reclaimed as a whole
// (matching the teacher's single-shot wasmtime memory limit model, but
// applied per-crate instead of per-module).
type MemoryProvider struct {
	crateID  string
	capacity uint64
	used     uint64
}

// CrateID reports the budget bucket this provider draws from.
func (p *MemoryProvider) CrateID() string { return p.crateID }

// Capacity reports the total bytes this provider was granted.
func (p *MemoryProvider) Capacity() uint64 { return p.capacity }

// Reserve consumes n bytes from the provider's remaining capacity. It
// never grows the provider: a provider that runs out fails every further
// reservation until it is replaced.
func (p *MemoryProvider) Reserve(n uint64) error {
	if p.used+n > p.capacity {
		return fmt.Errorf("%w: crate %q requested %d bytes, %d remaining",
			ErrBudgetExceeded, p.crateID, n, p.capacity-p.used)
	}
	p.used += n
	return nil
}

// budgetRegistry tracks the outstanding bytes granted per crate so that
// SafeManagedAlloc can enforce a process-wide ceiling per crate id, with
// the running total exported for observability the same way the
// scheduler and NN capability layer export their own counters.
type budgetRegistry struct {
	mu      sync.Mutex
	budgets map[string]uint64 // configured ceiling per crate
	granted map[string]uint64 // bytes already granted per crate
	gauge   *prometheus.GaugeVec
}

var defaultRegistry = newBudgetRegistry()

func newBudgetRegistry() *budgetRegistry {
	return &budgetRegistry{
		budgets: make(map[string]uint64),
		granted: make(map[string]uint64),
		gauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "wrt",
			Subsystem: "foundation",
			Name:      "crate_bytes_granted",
			Help:      "Bytes granted to memory providers, by crate id.",
		}, []string{"crate"}),
	}
}

// SetCrateBudget configures the maximum number of bytes any single crate
// id may have outstanding across all providers it has been granted. A
// budget of 0 means unlimited.
func SetCrateBudget(crateID string, maxBytes uint64) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.budgets[crateID] = maxBytes
}

// SafeManagedAlloc returns a provider whose capacity is tracked against
// the per-crate budget configured with SetCrateBudget. Over-budget
// requests fail without granting anything.
func SafeManagedAlloc(bytes uint64, crateID string) (*MemoryProvider, error) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	if ceiling, ok := defaultRegistry.budgets[crateID]; ok && ceiling > 0 {
		if defaultRegistry.granted[crateID]+bytes > ceiling {
			return nil, fmt.Errorf("%w: crate %q budget %d, already granted %d, requested %d",
				ErrBudgetExceeded, crateID, ceiling, defaultRegistry.granted[crateID], bytes)
		}
	}

	defaultRegistry.granted[crateID] += bytes
	defaultRegistry.gauge.WithLabelValues(crateID).Set(float64(defaultRegistry.granted[crateID]))

	return &MemoryProvider{crateID: crateID, capacity: bytes}, nil
}

// Collector exposes the crate budget gauge for registration with a
// prometheus.Registerer.
func Collector() prometheus.Collector { return defaultRegistry.gauge }

// outstandingBytes is used only by tests to assert the registry's view of
// a crate's granted total without racing the package-level mutex.
func outstandingBytes(crateID string) uint64 {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	return defaultRegistry.granted[crateID]
}
