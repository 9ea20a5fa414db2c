package federation

import (
	"testing"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/stretchr/testify/require"
)

func (m *testMember) regulate(lookahead int64) {
	m.ok(&message.Request{Op: message.OpEnableTimeRegulation, Lookahead: interval(lookahead)})
	require.Len(m.h.t, m.takeKind(message.TimeRegulationEnabled), 1)
}

func (m *testMember) constrain() {
	m.ok(&message.Request{Op: message.OpEnableTimeConstrained})
	require.Len(m.h.t, m.takeKind(message.TimeConstrainedEnabled), 1)
}

func (m *testMember) advance(op message.Op, t int64) {
	m.ok(&message.Request{Op: op, Time: at(t)})
}

func (m *testMember) galt() (logicaltime.Time, bool) {
	resp := m.ok(&message.Request{Op: message.OpQueryGALT})
	return resp.Time, resp.Valid
}

func (m *testMember) logicalTime() logicaltime.Time {
	return m.ok(&message.Request{Op: message.OpQueryLogicalTime}).Time
}

func (m *testMember) grants() []logicaltime.Time {
	var res []logicaltime.Time
	for _, cb := range m.takeKind(message.TimeAdvanceGrant) {
		res = append(res, cb.Time)
	}
	return res
}

func (m *testMember) sendCollision(t int64) *message.Response {
	return m.ok(&message.Request{
		Op:          message.OpSendInteraction,
		Interaction: interCollision,
		Parameters:  map[handle.Parameter][]byte{paramForce: []byte("9")},
		Timestamped: true,
		Time:        at(t),
	})
}

func TestGALTTracksRegulatingFederates(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")
	c := h.join("fx", "c")

	_, valid := a.galt()
	require.False(t, valid)

	a.regulate(1)
	b.regulate(3)
	g, valid := c.galt()
	require.True(t, valid)
	require.Equal(t, at(1), g)

	// Unconstrained federates are never held back.
	c.advance(message.OpTimeAdvanceRequest, 100)
	require.Equal(t, []logicaltime.Time{at(100)}, c.grants())

	a.advance(message.OpTimeAdvanceRequest, 4)
	require.Equal(t, []logicaltime.Time{at(4)}, a.grants())
	g, _ = c.galt()
	require.Equal(t, at(3), g)

	b.ok(&message.Request{Op: message.OpDisableTimeRegulation})
	g, _ = c.galt()
	require.Equal(t, at(5), g)

	a.ok(&message.Request{Op: message.OpResign})
	_, valid = c.galt()
	require.False(t, valid)
}

func TestConstrainedWaitsForGALT(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.regulate(2)
	b.constrain()

	b.advance(message.OpTimeAdvanceRequest, 5)
	require.Empty(t, b.grants())
	b.fails(cm.InTimeAdvancingState, &message.Request{Op: message.OpTimeAdvanceRequest, Time: at(6)})
	b.fails(cm.InTimeAdvancingState, &message.Request{Op: message.OpDisableTimeConstrained})

	a.advance(message.OpTimeAdvanceRequest, 2)
	require.Empty(t, b.grants())

	a.advance(message.OpTimeAdvanceRequest, 3)
	require.Equal(t, []logicaltime.Time{at(5)}, b.grants())
	require.Equal(t, at(5), b.logicalTime())

	b.fails(cm.InvalidLogicalTime, &message.Request{Op: message.OpTimeAdvanceRequest, Time: at(4)})
}

func TestConstrainedEnablePending(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.regulate(1)
	b.advance(message.OpTimeAdvanceRequest, 10)
	require.Equal(t, []logicaltime.Time{at(10)}, b.grants())

	// b is at 10 while GALT is 1.
	b.ok(&message.Request{Op: message.OpEnableTimeConstrained})
	require.Empty(t, b.takeKind(message.TimeConstrainedEnabled))
	b.fails(cm.RequestForTimeConstrainedPending, &message.Request{Op: message.OpEnableTimeConstrained})
	b.fails(cm.RequestForTimeConstrainedPending, &message.Request{Op: message.OpTimeAdvanceRequest, Time: at(11)})

	a.advance(message.OpTimeAdvanceRequest, 9)
	enabled := b.takeKind(message.TimeConstrainedEnabled)
	require.Len(t, enabled, 1)
	require.Equal(t, at(10), enabled[0].Time)
}

func TestRegulationStartsAtConstrainedTime(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.constrain()
	a.advance(message.OpTimeAdvanceRequest, 7)
	require.Equal(t, []logicaltime.Time{at(7)}, a.grants())

	b.ok(&message.Request{Op: message.OpEnableTimeRegulation, Lookahead: interval(1)})
	enabled := b.takeKind(message.TimeRegulationEnabled)
	require.Len(t, enabled, 1)
	require.Equal(t, at(7), enabled[0].Time)

	g, _ := b.galt()
	require.Equal(t, at(8), g)

	b.fails(cm.TimeRegulationAlreadyEnabled, &message.Request{Op: message.OpEnableTimeRegulation, Lookahead: interval(1)})
}

func TestSendBelowLookaheadRejected(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")

	a.regulate(2)
	a.ok(&message.Request{Op: message.OpPublishInteractionClass, Interaction: interCollision})
	a.advance(message.OpTimeAdvanceRequest, 10)
	require.Equal(t, []logicaltime.Time{at(10)}, a.grants())

	a.fails(cm.InvalidLogicalTime, &message.Request{
		Op:          message.OpSendInteraction,
		Interaction: interCollision,
		Timestamped: true,
		Time:        at(11),
	})
	a.sendCollision(12)
	a.sendCollision(20)

	// Receive-order sends carry no promise.
	a.ok(&message.Request{Op: message.OpSendInteraction, Interaction: interCollision})

	a.fails(cm.InvalidLookahead, &message.Request{Op: message.OpModifyLookahead, Lookahead: interval(-1)})
	a.ok(&message.Request{Op: message.OpModifyLookahead, Lookahead: interval(1)})
	require.Equal(t, interval(1), a.ok(&message.Request{Op: message.OpQueryLookahead}).Lookahead)

	// The bound reached before the change still holds.
	a.fails(cm.InvalidLogicalTime, &message.Request{
		Op:          message.OpSendInteraction,
		Interaction: interCollision,
		Timestamped: true,
		Time:        at(11),
	})
}

func TestNextMessageRequestGrantsEarliestMessage(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.regulate(1)
	b.constrain()
	b.ok(&message.Request{Op: message.OpSubscribeInteractionClass, Interaction: interCollision})
	a.ok(&message.Request{Op: message.OpPublishInteractionClass, Interaction: interCollision})

	a.sendCollision(3)
	require.Empty(t, b.take())

	b.advance(message.OpNextMessageRequest, 10)
	require.Empty(t, b.take())

	a.advance(message.OpTimeAdvanceRequest, 5)
	cbs := b.take()
	require.Equal(t, []message.Kind{message.ReceiveInteraction, message.TimeAdvanceGrant}, kinds(cbs))
	require.Equal(t, at(3), cbs[0].Time)
	require.Equal(t, message.TimestampOrder, cbs[0].ReceivedOrder)
	require.Equal(t, at(3), cbs[1].Time)
}

func TestNextMessageRequestWithoutMessages(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.regulate(1)
	b.constrain()
	b.advance(message.OpNextMessageRequestAvailable, 4)
	a.advance(message.OpTimeAdvanceRequest, 10)
	require.Equal(t, []logicaltime.Time{at(4)}, b.grants())
}

func TestFlushQueueDeliversEverything(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.regulate(1)
	b.constrain()
	b.ok(&message.Request{Op: message.OpSubscribeInteractionClass, Interaction: interCollision})
	a.ok(&message.Request{Op: message.OpPublishInteractionClass, Interaction: interCollision})
	a.sendCollision(7)
	a.sendCollision(3)

	b.advance(message.OpFlushQueueRequest, 5)
	cbs := b.take()
	require.Equal(t, []message.Kind{message.ReceiveInteraction, message.ReceiveInteraction, message.TimeAdvanceGrant}, kinds(cbs))
	require.Equal(t, at(3), cbs[0].Time)
	require.Equal(t, at(7), cbs[1].Time)
	require.Equal(t, at(5), cbs[2].Time)
}

func TestUnconstrainedReceiveOrder(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	c := h.join("fx", "c")

	a.regulate(1)
	c.ok(&message.Request{Op: message.OpSubscribeInteractionClass, Interaction: interCollision})
	a.ok(&message.Request{Op: message.OpPublishInteractionClass, Interaction: interCollision})
	a.sendCollision(50)

	cbs := c.takeKind(message.ReceiveInteraction)
	require.Len(t, cbs, 1)
	require.Equal(t, message.TimestampOrder, cbs[0].SentOrder)
	require.Equal(t, message.ReceiveOrder, cbs[0].ReceivedOrder)
	require.True(t, cbs[0].Timestamped)
	require.Equal(t, at(50), cbs[0].Time)
}

func TestDisableConstrainedReleasesQueue(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.regulate(1)
	b.constrain()
	b.ok(&message.Request{Op: message.OpSubscribeInteractionClass, Interaction: interCollision})
	a.ok(&message.Request{Op: message.OpPublishInteractionClass, Interaction: interCollision})
	a.sendCollision(9)
	require.Empty(t, b.take())

	b.ok(&message.Request{Op: message.OpDisableTimeConstrained})
	cbs := b.takeKind(message.ReceiveInteraction)
	require.Len(t, cbs, 1)
	require.Equal(t, message.ReceiveOrder, cbs[0].ReceivedOrder)

	b.fails(cm.TimeConstrainedIsNotEnabled, &message.Request{Op: message.OpDisableTimeConstrained})
}

func TestRetract(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")
	c := h.join("fx", "c")

	a.regulate(1)
	b.constrain()
	for _, m := range []*testMember{b, c} {
		m.ok(&message.Request{Op: message.OpSubscribeInteractionClass, Interaction: interCollision})
	}
	a.ok(&message.Request{Op: message.OpPublishInteractionClass, Interaction: interCollision})

	r := a.sendCollision(5).Retraction
	require.NotZero(t, r)
	require.Len(t, c.takeKind(message.ReceiveInteraction), 1)

	b.fails(cm.InvalidRetractionHandle, &message.Request{Op: message.OpRetract, Retraction: r})
	a.ok(&message.Request{Op: message.OpRetract, Retraction: r})
	retracted := c.takeKind(message.RequestRetraction)
	require.Len(t, retracted, 1)
	require.Equal(t, r, retracted[0].Retraction)
	a.fails(cm.InvalidRetractionHandle, &message.Request{Op: message.OpRetract, Retraction: 999})

	// The queued copy is gone.
	a.advance(message.OpTimeAdvanceRequest, 20)
	b.advance(message.OpTimeAdvanceRequest, 10)
	require.Equal(t, []message.Kind{message.TimeAdvanceGrant}, kinds(b.take()))

	late := a.sendCollision(25).Retraction
	a.advance(message.OpTimeAdvanceRequest, 30)
	a.fails(cm.MessageCanNoLongerBeRetracted, &message.Request{Op: message.OpRetract, Retraction: late})
}

func TestRetractDeleteRefused(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.regulate(1)
	b.constrain()
	a.publish(classVehicle, attrPosition)
	b.subscribe(classVehicle, attrPosition)

	obj := a.register(classVehicle, "")
	require.Len(t, b.takeKind(message.DiscoverObjectInstance), 1)

	r := a.ok(&message.Request{
		Op:          message.OpDeleteObjectInstance,
		Instance:    obj,
		Timestamped: true,
		Time:        at(5),
	}).Retraction
	require.NotZero(t, r)
	a.fails(cm.MessageCanNoLongerBeRetracted, &message.Request{Op: message.OpRetract, Retraction: r})

	// The queued remove still reaches the subscriber, exactly once.
	a.advance(message.OpTimeAdvanceRequest, 20)
	b.advance(message.OpTimeAdvanceRequest, 10)
	cbs := b.take()
	require.Equal(t, []message.Kind{message.RemoveObjectInstance, message.TimeAdvanceGrant}, kinds(cbs))
	require.Equal(t, obj, cbs[0].Instance)
	require.Equal(t, at(5), cbs[0].Time)
}

// Three federates, two of them regulating and constrained with lookahead 1,
// advance in rounds while the regulating ones exchange timestamp-order
// interactions. Every advance is granted and no constrained federate sees a
// timestamp-order message later than the grant that follows it.
func TestThreeFederateRounds(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")
	c := h.join("fx", "c")
	all := []*testMember{a, b, c}
	timed := []*testMember{a, b}

	for _, m := range timed {
		m.regulate(1)
		m.constrain()
		m.ok(&message.Request{Op: message.OpPublishInteractionClass, Interaction: interCollision})
	}
	for _, m := range all {
		m.ok(&message.Request{Op: message.OpSubscribeInteractionClass, Interaction: interCollision})
	}

	var log = map[handle.Federate][]*message.Callback{}
	const rounds = 10
	for r := int64(1); r <= rounds; r++ {
		for _, m := range all {
			if m != c {
				m.sendCollision(r)
			}
			m.advance(message.OpTimeAdvanceRequest, r)
		}
		for _, m := range all {
			log[m.fd] = append(log[m.fd], m.take()...)
		}
	}

	for _, m := range all {
		var granted []logicaltime.Time
		var pending []logicaltime.Time
		for _, cb := range log[m.fd] {
			switch {
			case cb.Kind == message.TimeAdvanceGrant:
				for _, p := range pending {
					require.True(t, p.LessEqual(cb.Time), "message at %s delivered before grant %s", p, cb.Time)
				}
				pending = pending[:0]
				granted = append(granted, cb.Time)
			case cb.Kind == message.ReceiveInteraction && cb.ReceivedOrder == message.TimestampOrder:
				pending = append(pending, cb.Time)
			}
		}
		require.Len(t, granted, rounds, "federate %d", m.fd)
		require.Equal(t, at(rounds), granted[rounds-1])
		require.Equal(t, at(rounds), m.logicalTime())
	}
}
