// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package asyncchannel implements typed, backpressured message passing
// between component instances, with per-component quota enforcement
// and bounded waker queues for pending receivers/senders — the
// transport the fuel-async scheduler's tasks communicate over.
package asyncchannel

import (
	"fmt"
	"sync"
	"time"
)

// Fuel costs for channel operations.
const (
	FuelSend  uint64 = 5
	FuelRecv  uint64 = 5
	FuelClose uint64 = 2
)

const maxWakers = 32

// Kind enumerates the five channel buffering strategies.
type Kind uint8

const (
	KindUnbounded Kind = iota
	KindBounded
	KindOneshot
	KindBroadcast
	KindPriority
)

// Message is one value in transit, tagged with its sender and
// send-time priority (priority channels only).
type Message struct {
	Value    interface{}
	SenderID uint64
	SentAt   time.Time
	Priority uint8
}

// SendResult is the outcome of a Send attempt.
type SendResult uint8

const (
	SendSent SendResult = iota
	SendWouldBlock
	SendFull
	SendClosed
)

// ReceiveOutcome is the outcome of a Receive attempt.
type ReceiveOutcome uint8

const (
	ReceiveReceived ReceiveOutcome = iota
	ReceiveWouldBlock
	ReceiveClosed
)

// ReceiveResult pairs a ReceiveOutcome with its message, when present.
type ReceiveResult struct {
	Outcome ReceiveOutcome
	Message Message
}

// Waker is called to resume a task blocked on Send or Receive.
type Waker func()

type buffer interface {
	push(m Message) (SendResult, bool)
	pop() (Message, bool)
	len() int
}

type ringBuffer struct {
	data     []Message
	head     int
	tail     int
	count    int
	capacity int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{data: make([]Message, capacity), capacity: capacity}
}

func (r *ringBuffer) push(m Message) (SendResult, bool) {
	if r.count >= r.capacity {
		return SendFull, false
	}
	r.data[r.tail] = m
	r.tail = (r.tail + 1) % r.capacity
	r.count++
	return SendSent, true
}

func (r *ringBuffer) pop() (Message, bool) {
	if r.count == 0 {
		return Message{}, false
	}
	m := r.data[r.head]
	r.head = (r.head + 1) % r.capacity
	r.count--
	return m, true
}

func (r *ringBuffer) len() int { return r.count }

type vectorBuffer struct {
	data    []Message
	maxSize int
}

func (v *vectorBuffer) push(m Message) (SendResult, bool) {
	if len(v.data) >= v.maxSize {
		return SendFull, false
	}
	v.data = append(v.data, m)
	return SendSent, true
}

func (v *vectorBuffer) pop() (Message, bool) {
	if len(v.data) == 0 {
		return Message{}, false
	}
	m := v.data[0]
	v.data = v.data[1:]
	return m, true
}

func (v *vectorBuffer) len() int { return len(v.data) }

type singleBuffer struct {
	data *Message
}

func (s *singleBuffer) push(m Message) (SendResult, bool) {
	if s.data != nil {
		return SendFull, false
	}
	s.data = &m
	return SendSent, true
}

func (s *singleBuffer) pop() (Message, bool) {
	if s.data == nil {
		return Message{}, false
	}
	m := *s.data
	s.data = nil
	return m, true
}

func (s *singleBuffer) len() int {
	if s.data == nil {
		return 0
	}
	return 1
}

type priorityBuffer struct {
	data    []Message
	maxSize int
}

func (p *priorityBuffer) push(m Message) (SendResult, bool) {
	if len(p.data) >= p.maxSize {
		return SendFull, false
	}
	p.data = append(p.data, m)
	return SendSent, true
}

func (p *priorityBuffer) pop() (Message, bool) {
	if len(p.data) == 0 {
		return Message{}, false
	}
	best := 0
	for i, m := range p.data {
		if m.Priority > p.data[best].Priority {
			best = i
		}
	}
	m := p.data[best]
	p.data = append(p.data[:best], p.data[best+1:]...)
	return m, true
}

func (p *priorityBuffer) len() int { return len(p.data) }

// broadcastBuffer is a bounded FIFO vector shared by all receivers:
// each message is handed to exactly one Receive call and is not copied
// to every receiver.
type broadcastBuffer struct {
	vectorBuffer
}

// Channel is one message-passing endpoint with a Kind-specific buffer,
// waker queues, and observational counters.
type Channel struct {
	mu sync.Mutex

	kind               Kind
	buf                buffer
	closed             bool
	senderCount        int
	receiverCount      int
	totalSent          uint64
	totalReceived      uint64
	fuelConsumed       uint64
	createdAt          time.Time
	enableBackpressure bool

	senderWakers   []Waker
	receiverWakers []Waker
}

// New constructs a channel of the given kind and capacity (ignored for
// Unbounded/Oneshot). enableBackpressure selects WouldBlock vs. Full
// for a bounded-buffer send that finds no room.
func New(kind Kind, capacity int, enableBackpressure bool) (*Channel, error) {
	c := &Channel{kind: kind, createdAt: time.Now(), enableBackpressure: enableBackpressure}
	switch kind {
	case KindUnbounded:
		c.buf = &vectorBuffer{maxSize: 1 << 20}
	case KindBounded:
		if capacity <= 0 {
			return nil, fmt.Errorf("asyncchannel: bounded channel requires capacity > 0")
		}
		c.buf = newRingBuffer(capacity)
	case KindOneshot:
		c.buf = &singleBuffer{}
	case KindBroadcast:
		if capacity <= 0 {
			return nil, fmt.Errorf("asyncchannel: broadcast channel requires capacity > 0")
		}
		c.buf = &broadcastBuffer{vectorBuffer{maxSize: capacity}}
	case KindPriority:
		if capacity <= 0 {
			capacity = 256
		}
		c.buf = &priorityBuffer{maxSize: capacity}
	default:
		return nil, fmt.Errorf("asyncchannel: unknown channel kind %d", kind)
	}
	return c, nil
}

// Send attempts to enqueue msg. On SendSent, every pending receiver
// waker is drained and invoked. On backpressure (buffer full with
// backpressure enabled), returns WouldBlock without registering a
// waker — callers driving a future poll loop register one via
// RegisterSenderWaker themselves before returning Pending.
func (c *Channel) Send(msg Message) SendResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return SendClosed
	}

	result, ok := c.buf.push(msg)
	if !ok {
		if c.enableBackpressure && result == SendFull {
			return SendWouldBlock
		}
		return result
	}

	c.totalSent++
	c.fuelConsumed += FuelSend
	c.drainWakers(&c.receiverWakers)
	return SendSent
}

// Receive attempts to dequeue the next message. On success, every
// pending sender waker is drained and invoked when backpressure is
// enabled.
func (c *Channel) Receive() ReceiveResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, ok := c.buf.pop()
	if !ok {
		if c.closed {
			return ReceiveResult{Outcome: ReceiveClosed}
		}
		return ReceiveResult{Outcome: ReceiveWouldBlock}
	}

	c.totalReceived++
	c.fuelConsumed += FuelRecv
	if c.enableBackpressure {
		c.drainWakers(&c.senderWakers)
	}
	return ReceiveResult{Outcome: ReceiveReceived, Message: msg}
}

// Close marks the channel closed; pending sends fail with SendClosed,
// and Receive drains any remaining buffered messages before reporting
// ReceiveClosed.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.fuelConsumed += FuelClose
}

// RegisterSenderWaker enqueues w to be invoked the next time a
// Receive drains space. Duplicate registrations are not collapsed:
// each queued entry is invoked once per drain, and a drain empties the
// queue, so a waker fires again only after it is registered again.
func (c *Channel) RegisterSenderWaker(w Waker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.senderWakers) >= maxWakers {
		return
	}
	c.senderWakers = append(c.senderWakers, w)
}

// RegisterReceiverWaker enqueues w to be invoked the next time a Send
// succeeds.
func (c *Channel) RegisterReceiverWaker(w Waker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.receiverWakers) >= maxWakers {
		return
	}
	c.receiverWakers = append(c.receiverWakers, w)
}

// drainWakers invokes and clears every queued waker in *wakers. Must
// be called with c.mu held.
func (c *Channel) drainWakers(wakers *[]Waker) {
	pending := *wakers
	*wakers = nil
	for _, w := range pending {
		w()
	}
}

// Stats is a snapshot of a channel's observational counters.
type Stats struct {
	Kind          Kind
	Closed        bool
	SenderCount   int
	ReceiverCount int
	TotalSent     uint64
	TotalReceived uint64
	FuelConsumed  uint64
	BufferedLen   int
	CreatedAt     time.Time
}

// Statistics returns a snapshot of c's counters.
func (c *Channel) Statistics() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Kind:          c.kind,
		Closed:        c.closed,
		SenderCount:   c.senderCount,
		ReceiverCount: c.receiverCount,
		TotalSent:     c.totalSent,
		TotalReceived: c.totalReceived,
		FuelConsumed:  c.fuelConsumed,
		BufferedLen:   c.buf.len(),
		CreatedAt:     c.createdAt,
	}
}

// AddSender/AddReceiver increment handle counts for diagnostics; they
// don't affect Send/Receive behavior.
func (c *Channel) AddSender()   { c.mu.Lock(); c.senderCount++; c.mu.Unlock() }
func (c *Channel) AddReceiver() { c.mu.Lock(); c.receiverCount++; c.mu.Unlock() }
