// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package asyncchannel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoundedChannelSendAndReceive(t *testing.T) {
	ch, err := New(KindBounded, 2, true)
	require.NoError(t, err)

	require.Equal(t, SendSent, ch.Send(Message{Value: 1}))
	require.Equal(t, SendSent, ch.Send(Message{Value: 2}))

	result := ch.Receive()
	require.Equal(t, ReceiveReceived, result.Outcome)
	require.Equal(t, 1, result.Message.Value)
}

func TestBoundedChannelWouldBlockWhenBackpressureEnabled(t *testing.T) {
	ch, err := New(KindBounded, 1, true)
	require.NoError(t, err)

	require.Equal(t, SendSent, ch.Send(Message{Value: "a"}))
	require.Equal(t, SendWouldBlock, ch.Send(Message{Value: "b"}))
}

func TestBoundedChannelFullWhenBackpressureDisabled(t *testing.T) {
	ch, err := New(KindBounded, 1, false)
	require.NoError(t, err)

	require.Equal(t, SendSent, ch.Send(Message{Value: "a"}))
	require.Equal(t, SendFull, ch.Send(Message{Value: "b"}))
}

func TestClosedChannelRejectsSendAndDrainsOnReceive(t *testing.T) {
	ch, err := New(KindBounded, 2, true)
	require.NoError(t, err)
	require.Equal(t, SendSent, ch.Send(Message{Value: 1}))

	ch.Close()
	require.Equal(t, SendClosed, ch.Send(Message{Value: 2}))

	result := ch.Receive()
	require.Equal(t, ReceiveReceived, result.Outcome, "buffered message must still drain after close")

	result = ch.Receive()
	require.Equal(t, ReceiveClosed, result.Outcome)
}

func TestEmptyOpenChannelReceiveWouldBlock(t *testing.T) {
	ch, err := New(KindBounded, 2, true)
	require.NoError(t, err)
	result := ch.Receive()
	require.Equal(t, ReceiveWouldBlock, result.Outcome)
}

func TestPriorityChannelReceivesHighestPriorityFirst(t *testing.T) {
	ch, err := New(KindPriority, 8, true)
	require.NoError(t, err)

	require.Equal(t, SendSent, ch.Send(Message{Value: "low", Priority: 1}))
	require.Equal(t, SendSent, ch.Send(Message{Value: "high", Priority: 9}))
	require.Equal(t, SendSent, ch.Send(Message{Value: "mid", Priority: 5}))

	r1 := ch.Receive()
	require.Equal(t, "high", r1.Message.Value)
	r2 := ch.Receive()
	require.Equal(t, "mid", r2.Message.Value)
	r3 := ch.Receive()
	require.Equal(t, "low", r3.Message.Value)
}

func TestOneshotChannelAcceptsOnlyOneMessage(t *testing.T) {
	ch, err := New(KindOneshot, 0, true)
	require.NoError(t, err)

	require.Equal(t, SendSent, ch.Send(Message{Value: 1}))
	require.Equal(t, SendWouldBlock, ch.Send(Message{Value: 2}))

	result := ch.Receive()
	require.Equal(t, ReceiveReceived, result.Outcome)
	require.Equal(t, 1, result.Message.Value)
}

func TestUnboundedChannelNeverBlocksOnSend(t *testing.T) {
	ch, err := New(KindUnbounded, 0, true)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.Equal(t, SendSent, ch.Send(Message{Value: i}))
	}
	stats := ch.Statistics()
	require.Equal(t, 100, stats.BufferedLen)
}

func TestSendWakesRegisteredReceiverWaker(t *testing.T) {
	ch, err := New(KindBounded, 1, true)
	require.NoError(t, err)

	woke := false
	ch.RegisterReceiverWaker(func() { woke = true })

	require.Equal(t, SendSent, ch.Send(Message{Value: 1}))
	require.True(t, woke)
}

func TestReceiveWakesRegisteredSenderWakerWhenBackpressureEnabled(t *testing.T) {
	ch, err := New(KindBounded, 1, true)
	require.NoError(t, err)
	require.Equal(t, SendSent, ch.Send(Message{Value: 1}))

	woke := false
	ch.RegisterSenderWaker(func() { woke = true })

	result := ch.Receive()
	require.Equal(t, ReceiveReceived, result.Outcome)
	require.True(t, woke)
}

func TestWakeCoalescingInvokesEachRegisteredWakerOnce(t *testing.T) {
	ch, err := New(KindBounded, 4, true)
	require.NoError(t, err)

	calls := 0
	waker := func() { calls++ }
	ch.RegisterReceiverWaker(waker)
	ch.RegisterReceiverWaker(waker)

	require.Equal(t, SendSent, ch.Send(Message{Value: 1}))
	require.Equal(t, 2, calls, "each registered waker fires once per drain")

	require.Equal(t, SendSent, ch.Send(Message{Value: 2}))
	require.Equal(t, 2, calls, "wakers already drained must not fire again without re-registration")
}

func TestContextEnforcesMaxChannels(t *testing.T) {
	ctx := NewContext(Limits{MaxChannels: 1, MaxTotalCapacity: 100, MaxMessageSize: 1024, FuelBudget: 1000})

	_, _, err := ctx.CreateChannel(KindBounded, 4, true)
	require.NoError(t, err)

	_, _, err = ctx.CreateChannel(KindBounded, 4, true)
	require.Error(t, err)
	var quotaErr *ErrQuotaExceeded
	require.ErrorAs(t, err, &quotaErr)
}

func TestContextEnforcesMaxTotalCapacity(t *testing.T) {
	ctx := NewContext(Limits{MaxChannels: 10, MaxTotalCapacity: 4, MaxMessageSize: 1024, FuelBudget: 1000})

	_, _, err := ctx.CreateChannel(KindBounded, 3, true)
	require.NoError(t, err)

	_, _, err = ctx.CreateChannel(KindBounded, 3, true)
	require.Error(t, err)
}

func TestContextRejectsOversizedMessage(t *testing.T) {
	ctx := NewContext(Limits{MaxChannels: 10, MaxTotalCapacity: 100, MaxMessageSize: 8, FuelBudget: 1000})
	id, _, err := ctx.CreateChannel(KindBounded, 4, true)
	require.NoError(t, err)

	_, err = ctx.SendChecked(id, Message{Value: "too big"}, 16)
	require.Error(t, err)
	var quotaErr *ErrQuotaExceeded
	require.ErrorAs(t, err, &quotaErr)
}

func TestContextSendCheckedSucceedsWithinLimits(t *testing.T) {
	ctx := NewContext(DefaultLimits())
	id, _, err := ctx.CreateChannel(KindBounded, 4, true)
	require.NoError(t, err)

	result, err := ctx.SendChecked(id, Message{Value: "ok"}, 4)
	require.NoError(t, err)
	require.Equal(t, SendSent, result)
}

func TestContextCloseChannelReleasesCapacity(t *testing.T) {
	ctx := NewContext(Limits{MaxChannels: 10, MaxTotalCapacity: 4, MaxMessageSize: 1024, FuelBudget: 1000})
	id, _, err := ctx.CreateChannel(KindBounded, 4, true)
	require.NoError(t, err)

	require.NoError(t, ctx.CloseChannel(id, 4))
	require.Equal(t, 0, ctx.ChannelCount())

	_, _, err = ctx.CreateChannel(KindBounded, 4, true)
	require.NoError(t, err, "capacity must be released after close")
}

func TestContextFuelBudgetExhaustion(t *testing.T) {
	ctx := NewContext(Limits{MaxChannels: 10, MaxTotalCapacity: 100, MaxMessageSize: 1024, FuelBudget: FuelCreate})
	_, _, err := ctx.CreateChannel(KindBounded, 4, true)
	require.NoError(t, err)

	_, _, err = ctx.CreateChannel(KindBounded, 4, true)
	require.Error(t, err, "fuel budget exhausted after first creation")
}
