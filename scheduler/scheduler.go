// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scheduler implements a fuel-accounted, deadline-aware task
// scheduler for mixed-criticality workloads: a Rate-Monotonic priority
// assignment hybridized with Earliest-Deadline-First tie-breaking
// within a priority band, criticality-mode degradation under overload,
// and priority inheritance to bound blocking time.
package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"github.com/ava-labs/avalanchego/utils/wrappers"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// admissionCheck returns err when ok is false, nil otherwise; used to
// feed AddDeadlineTask's validation checks into a wrappers.Errs so the
// first failing check (not necessarily the first one attempted) is
// reported without short-circuiting the rest.
func admissionCheck(ok bool, err error) error {
	if ok {
		return nil
	}
	return err
}

// Fuel costs for scheduler bookkeeping operations, charged against the
// scheduler's own fuel ledger independent of task WCET budgets.
const (
	FuelDeadlineAnalysis    uint64 = 25
	FuelWCETVerification    uint64 = 15
	FuelSchedulabilityTest  uint64 = 20
	FuelDeadlineMissPenalty uint64 = 100
	FuelCriticalitySwitch   uint64 = 50
)

const (
	maxDeadlineTasks    = 256
	maxCriticalityLevels = 4
	maxTasksPerLevel    = 64
)

// ASILLevel orders criticality from QM (none) to ASIL-D (highest).
type ASILLevel uint8

const (
	ASILQM ASILLevel = iota
	ASILA
	ASILB
	ASILC
	ASILD
)

func (l ASILLevel) String() string {
	switch l {
	case ASILQM:
		return "QM"
	case ASILA:
		return "A"
	case ASILB:
		return "B"
	case ASILC:
		return "C"
	case ASILD:
		return "D"
	default:
		return "unknown"
	}
}

// CriticalityMode gates which ASIL levels are schedulable.
type CriticalityMode uint8

const (
	ModeLow CriticalityMode = iota
	ModeHigh
	ModeCritical
)

// Priority is the coarse rate-monotonic priority band a task's period
// maps to.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// TaskState is a task's current lifecycle state.
type TaskState uint8

const (
	TaskReady TaskState = iota
	TaskRunning
	TaskBlocked
	TaskCompleted
)

// TaskID identifies a scheduled task.
type TaskID uint64

// ComponentInstanceID identifies the component instance that owns a
// task, for accounting and quota purposes.
type ComponentInstanceID uint64

// DeadlineConstrainedTask is one periodic task with a constrained
// deadline (deadline <= period) and a fuel-denominated WCET/BCET
// budget.
type DeadlineConstrainedTask struct {
	TaskID               TaskID
	ComponentID          ComponentInstanceID
	ASILLevel            ASILLevel
	BasePriority         Priority
	Period               time.Duration
	Deadline             time.Duration
	WCETFuel             uint64
	BCETFuel             uint64
	CurrentFuelConsumed  uint64
	ReleaseTime          uint64 // fuel-time
	AbsoluteDeadline     uint64 // fuel-time
	DeadlineMisses       int
	State                TaskState
	ActiveInMode         bool
	Utilization          float64
}

// CriticalityLevelQueue holds the rate-monotonic ordered task list and
// EDF-ready sub-queue for one ASIL level.
type CriticalityLevelQueue struct {
	ASILLevel        ASILLevel
	RMTasks          []TaskID
	EDFReadyQueue    []TaskID
	TotalUtilization float64
	FuelConsumed     uint64
	DeadlineMisses   int
}

// Config tunes the scheduler's admission and overload thresholds,
// mirroring the teacher's functional-options Config builder idiom.
type Config struct {
	enableHybridScheduling     bool
	enableCriticalitySwitching bool
	enableWCETEnforcement      bool
	enableDeadlineMonitoring   bool
	maxUtilizationPerLevel     float64
	globalUtilizationBound     float64
	deadlineMissThreshold      int
	schedulingOverheadFactor   float64
}

// NewConfig returns the scheduler's default configuration: hybrid
// RM+EDF scheduling, criticality switching, and WCET enforcement all
// enabled, with a conservative Rate-Monotonic utilization bound.
func NewConfig() *Config {
	return &Config{
		enableHybridScheduling:     true,
		enableCriticalitySwitching: true,
		enableWCETEnforcement:      true,
		enableDeadlineMonitoring:   true,
		maxUtilizationPerLevel:     0.7,
		globalUtilizationBound:     0.69,
		deadlineMissThreshold:      3,
		schedulingOverheadFactor:   1.1,
	}
}

func (c *Config) WithHybridScheduling(v bool) *Config     { c.enableHybridScheduling = v; return c }
func (c *Config) WithCriticalitySwitching(v bool) *Config { c.enableCriticalitySwitching = v; return c }
func (c *Config) WithWCETEnforcement(v bool) *Config      { c.enableWCETEnforcement = v; return c }
func (c *Config) WithDeadlineMonitoring(v bool) *Config   { c.enableDeadlineMonitoring = v; return c }
func (c *Config) WithMaxUtilizationPerLevel(v float64) *Config { c.maxUtilizationPerLevel = v; return c }
func (c *Config) WithGlobalUtilizationBound(v float64) *Config { c.globalUtilizationBound = v; return c }
func (c *Config) WithDeadlineMissThreshold(v int) *Config { c.deadlineMissThreshold = v; return c }
func (c *Config) WithSchedulingOverheadFactor(v float64) *Config {
	c.schedulingOverheadFactor = v
	return c
}

// Stats accumulates scheduler-wide observational counters.
type Stats struct {
	TotalTasks            int
	ActiveTasks           int
	TotalDeadlineMisses    int
	SuccessfulDeadlines    int
	SchedulerFuelConsumed uint64
	AverageResponseTime   uint64
	CriticalitySwitches   int
	TasksDropped          int
	CurrentUtilizationPPM uint64 // utilization * 1_000_000
	WCETViolations        int
}

// SchedulabilityResult is the outcome of an offline (or incremental)
// Rate-Monotonic schedulability analysis.
type SchedulabilityResult struct {
	Schedulable        bool
	TotalUtilization   float64
	UtilizationBound   float64
	CriticalPathFuel   uint64
	MaxResponseTime    uint64
	ProblematicTasks   []TaskID
}

// ErrDeadlineExceedsPeriod is returned by AddDeadlineTask when a task's
// deadline is not constrained (deadline > period).
var ErrDeadlineExceedsPeriod = fmt.Errorf("scheduler: deadline must not exceed period")

// ErrWCETLessThanBCET is returned when WCET < BCET, an impossible
// execution-time relationship.
var ErrWCETLessThanBCET = fmt.Errorf("scheduler: WCET must be >= BCET")

// ErrUnschedulable is returned when admitting a task would push the
// task set's utilization beyond the configured bound.
var ErrUnschedulable = fmt.Errorf("scheduler: task set would become unschedulable")

// ErrTooManyTasks is returned when the task table is at capacity.
var ErrTooManyTasks = fmt.Errorf("scheduler: too many deadline tasks")

// Scheduler is a fuel-aware, mixed-criticality deadline scheduler.
type Scheduler struct {
	mu sync.Mutex

	tasks              map[TaskID]*DeadlineConstrainedTask
	criticalityQueues  [maxCriticalityLevels + 1]*CriticalityLevelQueue
	currentMode        CriticalityMode
	priorityProtocol   *PriorityInheritanceProtocol
	config             *Config
	stats              Stats
	currentFuelTime    uint64
	overloadDetected   bool
	log                logging.Logger
	tracer             trace.Tracer
}

// New returns a scheduler with empty criticality queues for all five
// ASIL levels. Logging defaults to a no-op sink; call SetLogger to
// attach one.
func New(config *Config) *Scheduler {
	s := &Scheduler{
		tasks:            make(map[TaskID]*DeadlineConstrainedTask),
		config:           config,
		priorityProtocol: NewPriorityInheritanceProtocol(),
		log:              logging.NoLog{},
		tracer:           otel.Tracer("github.com/pulseengine/wrt-go/scheduler"),
	}
	for _, lvl := range []ASILLevel{ASILQM, ASILA, ASILB, ASILC, ASILD} {
		s.criticalityQueues[lvl] = &CriticalityLevelQueue{ASILLevel: lvl}
	}
	return s
}

// SetLogger attaches log for subsequent scheduling-policy decisions:
// Debug for routine admission and selection, Warn for recoverable
// violations (deadline misses, WCET overruns), Error for
// terminate-policy escalation (criticality mode switches that drop
// tasks).
func (s *Scheduler) SetLogger(log logging.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log == nil {
		log = logging.NoLog{}
	}
	s.log = log
}

func (s *Scheduler) queueFor(level ASILLevel) *CriticalityLevelQueue {
	return s.criticalityQueues[level]
}

// StartTick opens one otel span covering a ScheduleNextTask call,
// tagged with the queue depth and criticality mode the decision was
// made under. Callers defer span.End() themselves.
func (s *Scheduler) StartTick(ctx context.Context) (context.Context, trace.Span) {
	s.mu.Lock()
	activeTasks := len(s.tasks)
	mode := s.currentMode
	misses := s.stats.TotalDeadlineMisses
	s.mu.Unlock()

	return s.tracer.Start(ctx, "scheduler.tick", trace.WithAttributes(
		attribute.Int("scheduler.active_tasks", activeTasks),
		attribute.Int("scheduler.criticality_mode", int(mode)),
		attribute.Int64("scheduler.deadline_misses", int64(misses)),
	))
}

// AddDeadlineTask admits a new periodic task after validating its
// deadline/period and WCET/BCET relationships and running a
// schedulability check against the task set that would result.
func (s *Scheduler) AddDeadlineTask(id TaskID, componentID ComponentInstanceID, asil ASILLevel, period, deadline time.Duration, wcetFuel, bcetFuel uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consumeSchedulerFuel(FuelDeadlineAnalysis)

	var errs wrappers.Errs
	errs.Add(
		admissionCheck(deadline <= period, ErrDeadlineExceedsPeriod),
		admissionCheck(wcetFuel >= bcetFuel, ErrWCETLessThanBCET),
		admissionCheck(len(s.tasks) < maxDeadlineTasks, ErrTooManyTasks),
	)
	if errs.Errored() {
		s.log.Warn("task admission rejected",
			zap.Uint64("taskID", uint64(id)),
			zap.Error(errs.Err),
		)
		return errs.Err
	}

	periodMs := float64(period.Milliseconds())
	utilization := float64(wcetFuel) / periodMs

	task := &DeadlineConstrainedTask{
		TaskID:           id,
		ComponentID:      componentID,
		ASILLevel:        asil,
		BasePriority:     rmPriority(period),
		Period:           period,
		Deadline:         deadline,
		WCETFuel:         wcetFuel,
		BCETFuel:         bcetFuel,
		ReleaseTime:      s.currentFuelTime,
		AbsoluteDeadline: s.currentFuelTime + uint64(deadline.Milliseconds()),
		State:            TaskReady,
		ActiveInMode:     s.isTaskActiveInMode(asil),
		Utilization:      utilization,
	}

	result := s.analyzeSchedulabilityWithNewTask(task)
	if !result.Schedulable {
		s.log.Warn("admission would make task set unschedulable",
			zap.Uint64("taskID", uint64(id)),
			zap.Float64("totalUtilization", result.TotalUtilization),
			zap.Float64("bound", result.UtilizationBound),
		)
		return ErrUnschedulable
	}

	s.tasks[id] = task
	s.addTaskToCriticalityQueue(id, asil)
	s.priorityProtocol.SetBasePriority(id, task.BasePriority)

	s.stats.TotalTasks++
	s.stats.ActiveTasks++
	s.stats.CurrentUtilizationPPM = uint64(result.TotalUtilization * 1_000_000)

	s.log.Debug("task admitted",
		zap.Uint64("taskID", uint64(id)),
		zap.String("asil", asil.String()),
		zap.Float64("utilization", utilization),
	)

	return nil
}

func rmPriority(period time.Duration) Priority {
	ms := period.Milliseconds()
	switch {
	case ms <= 10:
		return PriorityCritical
	case ms <= 50:
		return PriorityHigh
	case ms <= 200:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

func (s *Scheduler) isTaskActiveInMode(asil ASILLevel) bool {
	switch s.currentMode {
	case ModeLow:
		return true
	case ModeHigh:
		return asil >= ASILB
	case ModeCritical:
		return asil >= ASILC
	default:
		return true
	}
}

func (s *Scheduler) addTaskToCriticalityQueue(id TaskID, asil ASILLevel) {
	q := s.queueFor(asil)
	pos := 0
	task := s.tasks[id]
	for pos < len(q.RMTasks) {
		other := s.tasks[q.RMTasks[pos]]
		if other == nil || other.Period >= task.Period {
			break
		}
		pos++
	}
	q.RMTasks = append(q.RMTasks, 0)
	copy(q.RMTasks[pos+1:], q.RMTasks[pos:])
	q.RMTasks[pos] = id
	q.TotalUtilization += task.Utilization
}

func (s *Scheduler) removeTaskFromCriticalityQueues(id TaskID) {
	task := s.tasks[id]
	if task == nil {
		return
	}
	q := s.queueFor(task.ASILLevel)
	for i, t := range q.RMTasks {
		if t == id {
			q.RMTasks = append(q.RMTasks[:i], q.RMTasks[i+1:]...)
			q.TotalUtilization -= task.Utilization
			break
		}
	}
}

// ScheduleNextTask selects the next task to run via criticality-aware
// hybrid RM+EDF scheduling: criticality level first (highest ASIL
// wins), then rate-monotonic priority, with EDF as the tie-break among
// tasks sharing a period band.
func (s *Scheduler) ScheduleNextTask() (TaskID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consumeSchedulerFuel(FuelDeadlineAnalysis)

	s.checkDeadlineMisses(s.currentFuelTime)
	s.checkCriticalityModeSwitch()

	selected, ok := s.selectHighestCriticalityTask()
	if ok && s.config.enableWCETEnforcement {
		if err := s.verifyWCETBudget(selected); err != nil {
			return 0, false, err
		}
	}
	return selected, ok, nil
}

func (s *Scheduler) selectHighestCriticalityTask() (TaskID, bool) {
	for lvl := ASILD; ; lvl-- {
		q := s.queueFor(lvl)
		if id, ok := s.selectFromLevel(q); ok {
			return id, true
		}
		if lvl == ASILQM {
			break
		}
	}
	return 0, false
}

func (s *Scheduler) selectFromLevel(q *CriticalityLevelQueue) (TaskID, bool) {
	var best TaskID
	found := false
	var bestPriority Priority
	var bestDeadline uint64
	for _, id := range q.RMTasks {
		task := s.tasks[id]
		if task == nil || !task.ActiveInMode || task.State != TaskReady {
			continue
		}
		priority := s.priorityProtocol.EffectivePriority(id)
		if !found || priority > bestPriority || (priority == bestPriority && task.AbsoluteDeadline < bestDeadline) {
			best = id
			bestPriority = priority
			bestDeadline = task.AbsoluteDeadline
			found = true
		}
	}
	return best, found
}

// AcquireResource records that task now holds resource, at task's
// current scheduling priority, through the priority inheritance
// protocol.
func (s *Scheduler) AcquireResource(task TaskID, resource ResourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tasks[task]
	if t == nil {
		return
	}
	s.priorityProtocol.Acquire(task, resource, t.BasePriority)
}

// ReleaseResource records that task no longer holds resource, dropping
// any priority task inherited solely from blockers on it.
func (s *Scheduler) ReleaseResource(task TaskID, resource ResourceID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priorityProtocol.Release(task, resource)
}

// BlockOnResource records that task is blocked waiting on resource,
// boosting the resource's current holder (and transitively, up the
// blocked-on chain) to task's priority if that's higher. Returns
// ErrPriorityInheritanceDeadlock if the wait graph now cycles back to
// task.
func (s *Scheduler) BlockOnResource(task TaskID, resource ResourceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tasks[task]
	if t == nil {
		return nil
	}
	return s.priorityProtocol.Block(task, resource, s.priorityProtocol.EffectivePriority(task))
}

// UnblockFromResource clears task's blocked-on record, e.g. once the
// resource it was waiting for becomes available.
func (s *Scheduler) UnblockFromResource(task TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priorityProtocol.Unblock(task)
}

func (s *Scheduler) verifyWCETBudget(id TaskID) error {
	s.consumeSchedulerFuel(FuelWCETVerification)
	task := s.tasks[id]
	if task == nil {
		return nil
	}
	if task.CurrentFuelConsumed > task.WCETFuel {
		s.stats.WCETViolations++
		s.log.Warn("task exceeded WCET budget",
			zap.Uint64("taskID", uint64(id)),
			zap.Uint64("consumed", task.CurrentFuelConsumed),
			zap.Uint64("budget", task.WCETFuel),
		)
		return fmt.Errorf("scheduler: task %d exceeded WCET budget (%d > %d)", id, task.CurrentFuelConsumed, task.WCETFuel)
	}
	return nil
}

// UpdateTaskExecution records fuel consumed by the running task and
// advances the scheduler's fuel-time clock, checking for WCET
// violations and deadline misses along the way.
func (s *Scheduler) UpdateTaskExecution(id TaskID, fuelConsumed uint64, newState TaskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consumeSchedulerFuel(FuelWCETVerification)

	s.currentFuelTime += fuelConsumed
	currentTime := s.currentFuelTime

	task, ok := s.tasks[id]
	if !ok {
		return nil
	}
	task.CurrentFuelConsumed += fuelConsumed
	task.State = newState

	if task.CurrentFuelConsumed > task.WCETFuel {
		s.stats.WCETViolations++
	}
	if currentTime > task.AbsoluteDeadline && newState != TaskCompleted {
		s.handleDeadlineMiss(id, currentTime)
	}
	if newState == TaskCompleted {
		s.handleTaskCompletion(id)
	}

	q := s.queueFor(task.ASILLevel)
	q.FuelConsumed += fuelConsumed

	return nil
}

func (s *Scheduler) handleDeadlineMiss(id TaskID, currentTime uint64) {
	task := s.tasks[id]
	task.DeadlineMisses++
	s.stats.TotalDeadlineMisses++
	s.consumeSchedulerFuel(FuelDeadlineMissPenalty)

	q := s.queueFor(task.ASILLevel)
	q.DeadlineMisses++

	s.log.Warn("deadline miss",
		zap.Uint64("taskID", uint64(id)),
		zap.String("asil", task.ASILLevel.String()),
		zap.Uint64("absoluteDeadline", task.AbsoluteDeadline),
		zap.Uint64("fuelTime", currentTime),
	)
}

func (s *Scheduler) handleTaskCompletion(id TaskID) {
	task := s.tasks[id]
	s.stats.SuccessfulDeadlines++
	task.CurrentFuelConsumed = 0
	task.ReleaseTime = s.currentFuelTime
	task.AbsoluteDeadline = s.currentFuelTime + uint64(task.Deadline.Milliseconds())
	task.State = TaskReady
}

func (s *Scheduler) checkDeadlineMisses(currentTime uint64) {
	if !s.config.enableDeadlineMonitoring {
		return
	}
	for id, task := range s.tasks {
		if task.State != TaskCompleted && currentTime > task.AbsoluteDeadline {
			s.handleDeadlineMiss(id, currentTime)
		}
	}
}

func (s *Scheduler) checkCriticalityModeSwitch() {
	if !s.config.enableCriticalitySwitching {
		return
	}
	if s.stats.TotalDeadlineMisses >= s.config.deadlineMissThreshold && s.currentMode == ModeLow {
		_ = s.switchCriticalityModeLocked(ModeHigh)
	}
}

// SwitchCriticalityMode transitions the scheduler between Low, High,
// and Critical modes, dropping tasks whose ASIL level is no longer
// active and re-admitting any that become active again.
func (s *Scheduler) SwitchCriticalityMode(mode CriticalityMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.switchCriticalityModeLocked(mode)
}

func (s *Scheduler) switchCriticalityModeLocked(mode CriticalityMode) error {
	s.consumeSchedulerFuel(FuelCriticalitySwitch)
	if s.currentMode == mode {
		return nil
	}
	previousMode := s.currentMode
	s.currentMode = mode

	var dropped []TaskID
	for id, task := range s.tasks {
		wasActive := task.ActiveInMode
		task.ActiveInMode = s.isTaskActiveInMode(task.ASILLevel)
		if wasActive && !task.ActiveInMode {
			s.removeTaskFromCriticalityQueues(id)
			s.stats.TasksDropped++
			dropped = append(dropped, id)
		} else if !wasActive && task.ActiveInMode {
			s.addTaskToCriticalityQueue(id, task.ASILLevel)
		}
	}
	s.stats.CriticalitySwitches++

	logFn := s.log.Warn
	if mode == ModeCritical {
		logFn = s.log.Error
	}
	logFn("criticality mode switch",
		zap.Uint8("from", uint8(previousMode)),
		zap.Uint8("to", uint8(mode)),
		zap.Int("tasksDropped", len(dropped)),
	)
	return nil
}

// AnalyzeSchedulability runs a Rate-Monotonic schedulability test
// across all criticality levels.
func (s *Scheduler) AnalyzeSchedulability() SchedulabilityResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumeSchedulerFuel(FuelSchedulabilityTest)
	return s.analyzeSchedulability()
}

func (s *Scheduler) analyzeSchedulabilityWithNewTask(newTask *DeadlineConstrainedTask) SchedulabilityResult {
	q := s.queueFor(newTask.ASILLevel)
	prevUtil := q.TotalUtilization
	q.TotalUtilization += newTask.Utilization
	result := s.analyzeSchedulability()
	q.TotalUtilization = prevUtil
	return result
}

func (s *Scheduler) analyzeSchedulability() SchedulabilityResult {
	var totalUtilization float64
	var maxResponseTime uint64
	var problematic []TaskID

	for _, lvl := range []ASILLevel{ASILQM, ASILA, ASILB, ASILC, ASILD} {
		q := s.queueFor(lvl)
		totalUtilization += q.TotalUtilization

		rmBound := rmBound(len(q.RMTasks))
		adjustedBound := rmBound / s.config.schedulingOverheadFactor

		if q.TotalUtilization > adjustedBound {
			for _, id := range q.RMTasks {
				if task := s.tasks[id]; task != nil && task.Utilization > s.config.maxUtilizationPerLevel {
					problematic = append(problematic, id)
				}
			}
		}

		responseTime := s.worstCaseResponseTime(q)
		if responseTime > maxResponseTime {
			maxResponseTime = responseTime
		}
	}

	schedulable := totalUtilization <= s.config.globalUtilizationBound && len(problematic) == 0

	return SchedulabilityResult{
		Schedulable:      schedulable,
		TotalUtilization: totalUtilization,
		UtilizationBound: s.config.globalUtilizationBound,
		CriticalPathFuel: maxResponseTime,
		MaxResponseTime:  maxResponseTime,
		ProblematicTasks: problematic,
	}
}

// rmBound computes the classical Liu & Layland utilization bound
// n * (2^(1/n) - 1) for n harmonic-unrelated periodic tasks.
func rmBound(n int) float64 {
	if n == 0 {
		return 1.0
	}
	nf := float64(n)
	return nf * (math.Pow(2.0, 1.0/nf) - 1.0)
}

// worstCaseResponseTime estimates response time for the worst task in
// q as its own WCET plus interference from every higher-or-equal
// criticality level's shorter-period tasks.
func (s *Scheduler) worstCaseResponseTime(q *CriticalityLevelQueue) uint64 {
	var maxResponse uint64
	for _, id := range q.RMTasks {
		task := s.tasks[id]
		if task == nil {
			continue
		}
		response := task.WCETFuel
		for lvl := ASILD; ; lvl-- {
			if lvl < q.ASILLevel {
				break
			}
			higherQueue := s.queueFor(lvl)
			for _, higherID := range higherQueue.RMTasks {
				higher := s.tasks[higherID]
				if higher == nil || higher.Period >= task.Period {
					continue
				}
				interference := uint64(task.Deadline.Milliseconds()) / uint64(higher.Period.Milliseconds())
				response += interference * higher.WCETFuel
			}
			if lvl == q.ASILLevel {
				break
			}
			if lvl == ASILQM {
				break
			}
		}
		if response > maxResponse {
			maxResponse = response
		}
	}
	return maxResponse
}

func (s *Scheduler) consumeSchedulerFuel(amount uint64) {
	s.stats.SchedulerFuelConsumed += amount
}

// Statistics returns a snapshot of the scheduler's counters.
func (s *Scheduler) Statistics() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// TaskInfo returns the recorded state for id.
func (s *Scheduler) TaskInfo(id TaskID) (DeadlineConstrainedTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return DeadlineConstrainedTask{}, false
	}
	return *t, true
}
