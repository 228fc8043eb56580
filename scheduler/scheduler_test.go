// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddDeadlineTaskRejectsDeadlineExceedingPeriod(t *testing.T) {
	s := New(NewConfig())
	err := s.AddDeadlineTask(1, 1, ASILB, 10*time.Millisecond, 20*time.Millisecond, 5, 2)
	require.ErrorIs(t, err, ErrDeadlineExceedsPeriod)
}

func TestAddDeadlineTaskRejectsWCETBelowBCET(t *testing.T) {
	s := New(NewConfig())
	err := s.AddDeadlineTask(1, 1, ASILB, 20*time.Millisecond, 10*time.Millisecond, 2, 5)
	require.ErrorIs(t, err, ErrWCETLessThanBCET)
}

func TestAddDeadlineTaskAdmitsValidTask(t *testing.T) {
	s := New(NewConfig())
	err := s.AddDeadlineTask(1, 1, ASILB, 100*time.Millisecond, 50*time.Millisecond, 10, 5)
	require.NoError(t, err)

	stats := s.Statistics()
	require.Equal(t, 1, stats.TotalTasks)
	require.Equal(t, 1, stats.ActiveTasks)
}

func TestScheduleNextTaskPicksEarliestDeadlineAtHighestCriticality(t *testing.T) {
	s := New(NewConfig())
	require.NoError(t, s.AddDeadlineTask(1, 1, ASILA, 100*time.Millisecond, 50*time.Millisecond, 5, 1))
	require.NoError(t, s.AddDeadlineTask(2, 1, ASILD, 200*time.Millisecond, 100*time.Millisecond, 5, 1))

	id, ok, err := s.ScheduleNextTask()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, TaskID(2), id, "ASIL-D task must be preferred over ASIL-A")
}

func TestUpdateTaskExecutionDetectsWCETViolation(t *testing.T) {
	s := New(NewConfig())
	require.NoError(t, s.AddDeadlineTask(1, 1, ASILB, 100*time.Millisecond, 50*time.Millisecond, 10, 5))

	require.NoError(t, s.UpdateTaskExecution(1, 20, TaskRunning))
	stats := s.Statistics()
	require.Equal(t, 1, stats.WCETViolations)
}

func TestUpdateTaskExecutionDetectsDeadlineMiss(t *testing.T) {
	s := New(NewConfig())
	require.NoError(t, s.AddDeadlineTask(1, 1, ASILB, 100*time.Millisecond, 5*time.Millisecond, 10, 5))

	require.NoError(t, s.UpdateTaskExecution(1, 50, TaskRunning))
	stats := s.Statistics()
	require.GreaterOrEqual(t, stats.TotalDeadlineMisses, 1)
}

func TestSwitchCriticalityModeDropsLowerASILTasks(t *testing.T) {
	s := New(NewConfig())
	require.NoError(t, s.AddDeadlineTask(1, 1, ASILA, 100*time.Millisecond, 50*time.Millisecond, 5, 1))
	require.NoError(t, s.AddDeadlineTask(2, 1, ASILD, 100*time.Millisecond, 50*time.Millisecond, 5, 1))

	require.NoError(t, s.SwitchCriticalityMode(ModeCritical))

	taskA, _ := s.TaskInfo(1)
	require.False(t, taskA.ActiveInMode)
	taskD, _ := s.TaskInfo(2)
	require.True(t, taskD.ActiveInMode)

	stats := s.Statistics()
	require.Equal(t, 1, stats.TasksDropped)
	require.Equal(t, 1, stats.CriticalitySwitches)
}

func TestAnalyzeSchedulabilityReportsUtilization(t *testing.T) {
	s := New(NewConfig())
	require.NoError(t, s.AddDeadlineTask(1, 1, ASILB, 100*time.Millisecond, 100*time.Millisecond, 10, 5))

	result := s.AnalyzeSchedulability()
	require.True(t, result.TotalUtilization > 0)
}

func TestRMBoundMatchesLiuLaylandFormula(t *testing.T) {
	require.InDelta(t, 1.0, rmBound(0), 1e-9)
	require.InDelta(t, 0.828427, rmBound(2), 1e-5)
}

func TestSelectFromLevelPrefersInheritedPriorityOverDeadline(t *testing.T) {
	s := New(NewConfig())
	// All three share ASIL-B. Without priority inheritance, holder
	// (low base priority) would lose to medium on plain RM/EDF
	// ordering; with inheritance, holder picks up blocker's critical
	// priority and must win instead, even though blocker itself is
	// blocked and not in the ready set.
	require.NoError(t, s.AddDeadlineTask(1 /* holder */, 1, ASILB, 500*time.Millisecond, 490*time.Millisecond, 5, 1))
	require.NoError(t, s.AddDeadlineTask(2 /* medium */, 1, ASILB, 100*time.Millisecond, 90*time.Millisecond, 5, 1))
	require.NoError(t, s.AddDeadlineTask(3 /* blocker */, 1, ASILB, 5*time.Millisecond, 4*time.Millisecond, 1, 1))

	s.AcquireResource(1, 42)
	require.NoError(t, s.BlockOnResource(3, 42))
	require.NoError(t, s.UpdateTaskExecution(3, 0, TaskBlocked))

	id, ok, err := s.ScheduleNextTask()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, TaskID(1), id, "resource holder must inherit blocker's priority and win selection")

	s.UnblockFromResource(3)
	s.ReleaseResource(1, 42)
}

func TestPriorityInheritanceBoostsHolderAndDetectsDeadlock(t *testing.T) {
	p := NewPriorityInheritanceProtocol()
	p.Acquire(1, 100, PriorityLow)
	require.NoError(t, p.Block(2, 100, PriorityCritical))
	require.Equal(t, PriorityCritical, p.EffectivePriority(1))

	p.Acquire(2, 200, PriorityNormal)
	err := p.Block(1, 200, PriorityLow)
	require.ErrorIs(t, err, ErrPriorityInheritanceDeadlock)
}
