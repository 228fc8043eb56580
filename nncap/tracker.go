// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package nncap

import (
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// RateLimits bounds how often load/inference operations may occur,
// independent of the per-operation resource quotas.
type RateLimits struct {
	MaxLoadsPerMinute        int
	MaxInferencesPerSecond   int
	MaxConcurrentOperations  int
	WindowSize               time.Duration
}

// DefaultRateLimits mirrors the tracker's built-in defaults.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		MaxLoadsPerMinute:       10,
		MaxInferencesPerSecond:  100,
		MaxConcurrentOperations: 5,
		WindowSize:              time.Minute,
	}
}

type operationRecord struct {
	kind      operationType
	timestamp time.Time
}

type operationType uint8

const (
	opTypeLoad operationType = iota
	opTypeInference
	opTypeCreateContext
	opTypeSetInput
	opTypeGetOutput
)

func classify(op Operation) (operationType, bool) {
	switch op.Kind {
	case OpLoad:
		return opTypeLoad, true
	case OpCompute:
		return opTypeInference, true
	case OpCreateContext:
		return opTypeCreateContext, true
	case OpSetInput:
		return opTypeSetInput, true
	case OpGetOutput:
		return opTypeGetOutput, true
	default:
		return 0, false
	}
}

var trackerMetrics = struct {
	once            sync.Once
	activeModels    prometheus.Gauge
	activeContexts  prometheus.Gauge
	totalMemoryUsed prometheus.Gauge
}{}

func registerTrackerMetrics() {
	trackerMetrics.once.Do(func() {
		trackerMetrics.activeModels = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nncap_active_models",
			Help: "Number of currently loaded neural network models.",
		})
		trackerMetrics.activeContexts = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nncap_active_contexts",
			Help: "Number of currently open inference execution contexts.",
		})
		trackerMetrics.totalMemoryUsed = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nncap_total_memory_used_bytes",
			Help: "Total bytes currently allocated to model and tensor memory.",
		})
		prometheus.MustRegister(trackerMetrics.activeModels, trackerMetrics.activeContexts, trackerMetrics.totalMemoryUsed)
	})
}

// ResourceTracker enforces per-operation resource quotas and a
// sliding-window rate limit shared across all capability tiers that
// opt into tracking.
type ResourceTracker struct {
	mu sync.Mutex

	activeModels        int
	activeContexts      int
	totalMemoryUsed     int
	concurrentOps       int
	operationsWindow    []operationRecord

	limits     ResourceLimits
	rateLimits RateLimits
	log        logging.Logger
}

// NewResourceTracker returns a tracker enforcing limits and rateLimits,
// registering its prometheus gauges on first use. Logging defaults to
// a no-op sink; call SetLogger to attach one.
func NewResourceTracker(limits ResourceLimits, rateLimits RateLimits) *ResourceTracker {
	registerTrackerMetrics()
	return &ResourceTracker{limits: limits, rateLimits: rateLimits, log: logging.NoLog{}}
}

// SetLogger attaches log for subsequent quota and rate-limit rejection
// reporting.
func (t *ResourceTracker) SetLogger(log logging.Logger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if log == nil {
		log = logging.NoLog{}
	}
	t.log = log
}

// OperationGuard releases the concurrent-operation slot it was issued
// for when the caller is done, mirroring an RAII drop guard.
type OperationGuard struct {
	tracker   *ResourceTracker
	released  bool
}

// Release decrements the tracker's concurrent-operation count. Safe to
// call multiple times; only the first call has effect.
func (g *OperationGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.tracker.mu.Lock()
	g.tracker.concurrentOps--
	g.tracker.mu.Unlock()
}

// CheckOperationAllowed verifies op against concurrency, resource, and
// rate limits, returning a guard that must be released when the
// operation completes.
func (t *ResourceTracker) CheckOperationAllowed(op Operation) (*OperationGuard, error) {
	kind, tracked := classify(op)

	t.mu.Lock()
	if t.concurrentOps >= t.rateLimits.MaxConcurrentOperations {
		t.mu.Unlock()
		t.log.Warn("operation rejected", zap.String("reason", "too many concurrent operations"), zap.Int("limit", t.rateLimits.MaxConcurrentOperations))
		return nil, &ErrCapabilityViolation{Reason: "too many concurrent operations"}
	}
	t.mu.Unlock()

	if err := t.checkResourceQuotas(op); err != nil {
		t.log.Warn("operation rejected", zap.Error(err), zap.Uint8("kind", uint8(op.Kind)))
		return nil, err
	}
	if tracked {
		if err := t.checkRateLimit(kind); err != nil {
			t.log.Warn("operation rejected", zap.Error(err), zap.Uint8("kind", uint8(kind)))
			return nil, err
		}
	}

	t.mu.Lock()
	t.concurrentOps++
	t.recordOperationLocked(kind)
	t.mu.Unlock()

	return &OperationGuard{tracker: t}, nil
}

func (t *ResourceTracker) checkResourceQuotas(op Operation) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch op.Kind {
	case OpLoad:
		if t.activeModels >= t.limits.MaxConcurrentModels {
			return &ErrCapabilityViolation{Reason: "maximum concurrent models reached"}
		}
		if op.Size > t.limits.MaxModelSize {
			return &ErrCapabilityViolation{Reason: "model size exceeds limit"}
		}
		if t.totalMemoryUsed+op.Size > t.limits.MaxTensorMemory {
			return &ErrCapabilityViolation{Reason: "total memory limit would be exceeded"}
		}
	case OpCreateContext:
		if t.activeContexts >= t.limits.MaxConcurrentContexts {
			return &ErrCapabilityViolation{Reason: "maximum concurrent contexts reached"}
		}
	case OpSetInput:
		if t.totalMemoryUsed+op.Size > t.limits.MaxTensorMemory {
			return &ErrCapabilityViolation{Reason: "tensor memory limit would be exceeded"}
		}
	}
	return nil
}

func (t *ResourceTracker) checkRateLimit(kind operationType) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-t.rateLimits.WindowSize)
	pruned := t.operationsWindow[:0]
	for _, rec := range t.operationsWindow {
		if !rec.timestamp.Before(windowStart) {
			pruned = append(pruned, rec)
		}
	}
	t.operationsWindow = pruned

	switch kind {
	case opTypeLoad:
		minuteStart := now.Add(-time.Minute)
		count := 0
		for _, rec := range t.operationsWindow {
			if rec.kind == opTypeLoad && !rec.timestamp.Before(minuteStart) {
				count++
			}
		}
		if count >= t.rateLimits.MaxLoadsPerMinute {
			return &ErrCapabilityViolation{Reason: "load rate limit exceeded"}
		}
	case opTypeInference:
		secondStart := now.Add(-time.Second)
		count := 0
		for _, rec := range t.operationsWindow {
			if rec.kind == opTypeInference && !rec.timestamp.Before(secondStart) {
				count++
			}
		}
		if count >= t.rateLimits.MaxInferencesPerSecond {
			return &ErrCapabilityViolation{Reason: "inference rate limit exceeded"}
		}
	}
	return nil
}

const maxOperationWindow = 10_000

func (t *ResourceTracker) recordOperationLocked(kind operationType) {
	t.operationsWindow = append(t.operationsWindow, operationRecord{kind: kind, timestamp: time.Now()})
	if len(t.operationsWindow) > maxOperationWindow {
		t.operationsWindow = t.operationsWindow[len(t.operationsWindow)-maxOperationWindow:]
	}
}

// AllocateModel records size bytes of model memory as in use.
func (t *ResourceTracker) AllocateModel(size int) {
	t.mu.Lock()
	t.activeModels++
	t.totalMemoryUsed += size
	models, mem := t.activeModels, t.totalMemoryUsed
	t.mu.Unlock()
	trackerMetrics.activeModels.Set(float64(models))
	trackerMetrics.totalMemoryUsed.Set(float64(mem))
}

// DeallocateModel releases size bytes of model memory.
func (t *ResourceTracker) DeallocateModel(size int) {
	t.mu.Lock()
	t.activeModels--
	t.totalMemoryUsed -= size
	models, mem := t.activeModels, t.totalMemoryUsed
	t.mu.Unlock()
	trackerMetrics.activeModels.Set(float64(models))
	trackerMetrics.totalMemoryUsed.Set(float64(mem))
}

// AllocateContext records one execution context as open.
func (t *ResourceTracker) AllocateContext() {
	t.mu.Lock()
	t.activeContexts++
	contexts := t.activeContexts
	t.mu.Unlock()
	trackerMetrics.activeContexts.Set(float64(contexts))
}

// DeallocateContext records one execution context as closed.
func (t *ResourceTracker) DeallocateContext() {
	t.mu.Lock()
	t.activeContexts--
	contexts := t.activeContexts
	t.mu.Unlock()
	trackerMetrics.activeContexts.Set(float64(contexts))
}

// ResourceUsageStats is a snapshot of the tracker's current counters.
type ResourceUsageStats struct {
	ActiveModels        int
	ActiveContexts       int
	TotalMemoryUsed      int
	ConcurrentOperations int
}

// UsageStats returns a snapshot of t's current counters.
func (t *ResourceTracker) UsageStats() ResourceUsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ResourceUsageStats{
		ActiveModels:         t.activeModels,
		ActiveContexts:       t.activeContexts,
		TotalMemoryUsed:      t.totalMemoryUsed,
		ConcurrentOperations: t.concurrentOps,
	}
}
