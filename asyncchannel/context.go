// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asyncchannel

import (
	"fmt"
	"sync"

	"github.com/ava-labs/avalanchego/utils/logging"
	"go.uber.org/zap"
)

// Limits bounds what a single component instance may do with channels.
type Limits struct {
	MaxChannels      int
	MaxTotalCapacity int
	MaxMessageSize   int
	FuelBudget       uint64
}

// DefaultLimits returns a conservative set of quota limits suitable for
// an untrusted component instance.
func DefaultLimits() Limits {
	return Limits{
		MaxChannels:      64,
		MaxTotalCapacity: 4096,
		MaxMessageSize:   64 * 1024,
		FuelBudget:       1_000_000,
	}
}

// ChannelID identifies one channel within a Context.
type ChannelID uint64

// Context enforces per-component-instance channel quotas and owns the
// channels a component instance has created.
type Context struct {
	mu sync.Mutex

	limits       Limits
	channels     map[ChannelID]*Channel
	nextID       ChannelID
	usedCapacity int
	fuelSpent    uint64
	log          logging.Logger
}

// ErrQuotaExceeded is returned when creating a channel would violate
// the component instance's Limits.
type ErrQuotaExceeded struct {
	Reason string
}

func (e *ErrQuotaExceeded) Error() string {
	return fmt.Sprintf("asyncchannel: quota exceeded: %s", e.Reason)
}

// NewContext returns a channel context enforcing limits for one
// component instance.
func NewContext(limits Limits) *Context {
	return &Context{limits: limits, channels: make(map[ChannelID]*Channel), log: logging.NoLog{}}
}

// SetLogger attaches log for subsequent quota-rejection reporting.
func (c *Context) SetLogger(log logging.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if log == nil {
		log = logging.NoLog{}
	}
	c.log = log
}

// CreateChannel creates and registers a new channel of kind/capacity,
// subject to the context's quota, charging FuelCreate against the
// fuel budget.
const FuelCreate uint64 = 10

func (c *Context) CreateChannel(kind Kind, capacity int, enableBackpressure bool) (ChannelID, *Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.channels) >= c.limits.MaxChannels {
		c.log.Warn("channel creation rejected", zap.String("reason", "max channels reached"), zap.Int("limit", c.limits.MaxChannels))
		return 0, nil, &ErrQuotaExceeded{Reason: "max channels reached"}
	}
	effectiveCapacity := capacity
	if effectiveCapacity <= 0 {
		effectiveCapacity = 1
	}
	if c.usedCapacity+effectiveCapacity > c.limits.MaxTotalCapacity {
		c.log.Warn("channel creation rejected", zap.String("reason", "max total capacity reached"), zap.Int("limit", c.limits.MaxTotalCapacity))
		return 0, nil, &ErrQuotaExceeded{Reason: "max total capacity reached"}
	}
	if c.fuelSpent+FuelCreate > c.limits.FuelBudget {
		c.log.Warn("channel creation rejected", zap.String("reason", "fuel budget exhausted"), zap.Uint64("fuelBudget", c.limits.FuelBudget))
		return 0, nil, &ErrQuotaExceeded{Reason: "fuel budget exhausted"}
	}

	ch, err := New(kind, capacity, enableBackpressure)
	if err != nil {
		return 0, nil, err
	}

	c.nextID++
	id := c.nextID
	c.channels[id] = ch
	c.usedCapacity += effectiveCapacity
	c.fuelSpent += FuelCreate
	return id, ch, nil
}

// SendChecked sends msg on the channel identified by id, rejecting
// messages larger than MaxMessageSize and charging the channel's send
// fuel against the context's fuel budget.
func (c *Context) SendChecked(id ChannelID, msg Message, sizeBytes int) (SendResult, error) {
	c.mu.Lock()
	ch, ok := c.channels[id]
	if !ok {
		c.mu.Unlock()
		return SendClosed, fmt.Errorf("asyncchannel: unknown channel %d", id)
	}
	if sizeBytes > c.limits.MaxMessageSize {
		c.mu.Unlock()
		c.log.Warn("send rejected", zap.String("reason", "message exceeds max message size"), zap.Uint64("channelID", uint64(id)), zap.Int("sizeBytes", sizeBytes))
		return SendFull, &ErrQuotaExceeded{Reason: "message exceeds max message size"}
	}
	if c.fuelSpent+FuelSend > c.limits.FuelBudget {
		c.mu.Unlock()
		c.log.Warn("send rejected", zap.String("reason", "fuel budget exhausted"), zap.Uint64("channelID", uint64(id)))
		return SendWouldBlock, &ErrQuotaExceeded{Reason: "fuel budget exhausted"}
	}
	c.fuelSpent += FuelSend
	c.mu.Unlock()

	return ch.Send(msg), nil
}

// Channel returns the channel registered under id, if any.
func (c *Context) Channel(id ChannelID) (*Channel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[id]
	return ch, ok
}

// CloseChannel closes and unregisters the channel identified by id,
// releasing its reserved capacity back to the quota.
func (c *Context) CloseChannel(id ChannelID, capacity int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, ok := c.channels[id]
	if !ok {
		return fmt.Errorf("asyncchannel: unknown channel %d", id)
	}
	ch.Close()
	delete(c.channels, id)
	effectiveCapacity := capacity
	if effectiveCapacity <= 0 {
		effectiveCapacity = 1
	}
	c.usedCapacity -= effectiveCapacity
	if c.usedCapacity < 0 {
		c.usedCapacity = 0
	}
	return nil
}

// FuelSpent returns the total fuel charged against this context so far.
func (c *Context) FuelSpent() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fuelSpent
}

// ChannelCount returns the number of channels currently registered.
func (c *Context) ChannelCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}
