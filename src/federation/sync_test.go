package federation

import (
	"testing"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/stretchr/testify/require"
)

func TestSyncPointWholeFederation(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.ok(&message.Request{Op: message.OpRegisterSyncPoint, Name: "ready", Tag: []byte("go")})
	require.Equal(t, []message.Kind{
		message.SynchronizationPointRegistrationSucceeded,
		message.AnnounceSynchronizationPoint,
	}, kinds(a.take()))
	announced := b.take()
	require.Equal(t, []message.Kind{message.AnnounceSynchronizationPoint}, kinds(announced))
	require.Equal(t, "ready", announced[0].Name)
	require.Equal(t, []byte("go"), announced[0].Tag)

	a.ok(&message.Request{Op: message.OpRegisterSyncPoint, Name: "ready"})
	require.Equal(t, []message.Kind{message.SynchronizationPointRegistrationFailed}, kinds(a.take()))

	// Late joiners are announced open whole-federation points.
	c := h.join("fx", "c")
	require.Equal(t, []message.Kind{message.AnnounceSynchronizationPoint}, kinds(c.take()))

	a.ok(&message.Request{Op: message.OpSyncPointAchieved, Name: "ready"})
	b.ok(&message.Request{Op: message.OpSyncPointAchieved, Name: "ready"})
	require.Empty(t, a.take())

	// c leaving completes the point.
	c.ok(&message.Request{Op: message.OpResign})
	for _, m := range []*testMember{a, b} {
		cbs := m.take()
		require.Equal(t, []message.Kind{message.FederationSynchronized}, kinds(cbs))
		require.Equal(t, "ready", cbs[0].Name)
	}

	a.fails(cm.SynchronizationPointLabelNotAnnounced, &message.Request{Op: message.OpSyncPointAchieved, Name: "ready"})
}

func TestSyncPointSubset(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")
	c := h.join("fx", "c")

	a.ok(&message.Request{Op: message.OpRegisterSyncPoint, Name: "bad", Federates: []handle.Federate{b.fd, 99}})
	require.Equal(t, []message.Kind{message.SynchronizationPointRegistrationFailed}, kinds(a.take()))
	require.Empty(t, b.take())

	a.ok(&message.Request{Op: message.OpRegisterSyncPoint, Name: "pair", Federates: []handle.Federate{b.fd, c.fd}})
	require.Equal(t, []message.Kind{message.SynchronizationPointRegistrationSucceeded}, kinds(a.take()))
	require.Len(t, b.takeKind(message.AnnounceSynchronizationPoint), 1)
	require.Len(t, c.takeKind(message.AnnounceSynchronizationPoint), 1)

	a.fails(cm.SynchronizationPointLabelNotAnnounced, &message.Request{Op: message.OpSyncPointAchieved, Name: "pair"})

	d := h.join("fx", "d")
	require.Empty(t, d.take())

	b.ok(&message.Request{Op: message.OpSyncPointAchieved, Name: "pair"})
	require.Empty(t, b.take())
	c.ok(&message.Request{Op: message.OpSyncPointAchieved, Name: "pair"})
	require.Len(t, b.takeKind(message.FederationSynchronized), 1)
	require.Len(t, c.takeKind(message.FederationSynchronized), 1)
	require.Empty(t, a.take())
}
