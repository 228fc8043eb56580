// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package scheduler

import (
	"fmt"
	"sync"
)

// ErrPriorityInheritanceDeadlock is returned when a blocked-on chain
// forms a cycle: task A waits on a resource held by B, which
// (transitively) waits on a resource held by A.
var ErrPriorityInheritanceDeadlock = fmt.Errorf("scheduler: priority inheritance cycle detected")

// PriorityInheritanceProtocol tracks which task holds which resource
// and which task is blocked waiting for it, temporarily boosting a
// resource holder's effective priority to that of the highest-priority
// task blocked on it.
type PriorityInheritanceProtocol struct {
	mu sync.Mutex

	holders   map[ResourceID]TaskID
	blockedOn map[TaskID]ResourceID
	inherited map[TaskID]Priority
	base      map[TaskID]Priority
}

// ResourceID identifies a contended resource (a mutex, a queue slot,
// anything tasks can block on).
type ResourceID uint64

// NewPriorityInheritanceProtocol returns an empty protocol instance.
func NewPriorityInheritanceProtocol() *PriorityInheritanceProtocol {
	return &PriorityInheritanceProtocol{
		holders:   make(map[ResourceID]TaskID),
		blockedOn: make(map[TaskID]ResourceID),
		inherited: make(map[TaskID]Priority),
		base:      make(map[TaskID]Priority),
	}
}

// SetBasePriority records task's own scheduling priority without it
// holding or blocking on any resource, e.g. at task registration time.
func (p *PriorityInheritanceProtocol) SetBasePriority(task TaskID, basePriority Priority) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base[task] = basePriority
}

// Acquire records that task holds resource at its own basePriority.
func (p *PriorityInheritanceProtocol) Acquire(task TaskID, resource ResourceID, basePriority Priority) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holders[resource] = task
	p.base[task] = basePriority
}

// Release records that task no longer holds resource, dropping any
// inherited priority that was owed solely to blockers on it.
func (p *PriorityInheritanceProtocol) Release(task TaskID, resource ResourceID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.holders[resource] == task {
		delete(p.holders, resource)
	}
	delete(p.inherited, task)
}

// Block records that blocker is waiting on resource, currently held by
// some other task, and propagates blocker's priority to the holder
// (and transitively up the blocked-on chain) if it's higher. Returns
// ErrPriorityInheritanceDeadlock if following the chain revisits
// blocker, meaning the wait graph has a cycle.
func (p *PriorityInheritanceProtocol) Block(blocker TaskID, resource ResourceID, blockerPriority Priority) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.blockedOn[blocker] = resource

	visited := map[TaskID]bool{blocker: true}
	current := resource
	priority := blockerPriority

	for {
		holder, ok := p.holders[current]
		if !ok {
			return nil
		}
		if visited[holder] {
			return ErrPriorityInheritanceDeadlock
		}
		visited[holder] = true

		if p.effectivePriorityLocked(holder) < priority {
			p.inherited[holder] = priority
		}

		nextResource, blocked := p.blockedOn[holder]
		if !blocked {
			return nil
		}
		current = nextResource
	}
}

// Unblock clears blocker's blocked-on record, e.g. once the resource
// it was waiting for becomes available.
func (p *PriorityInheritanceProtocol) Unblock(blocker TaskID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.blockedOn, blocker)
}

// EffectivePriority returns task's inherited priority if one is owed,
// else its recorded base priority.
func (p *PriorityInheritanceProtocol) EffectivePriority(task TaskID) Priority {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.effectivePriorityLocked(task)
}

// effectivePriorityLocked is EffectivePriority's body, called while p.mu
// is already held (e.g. from within Block's chain walk).
func (p *PriorityInheritanceProtocol) effectivePriorityLocked(task TaskID) Priority {
	if inherited, ok := p.inherited[task]; ok {
		return inherited
	}
	return p.base[task]
}
