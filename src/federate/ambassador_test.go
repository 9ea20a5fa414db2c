package federate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/mosaicnetworks/rtinet/src/net"
	"github.com/mosaicnetworks/rtinet/src/node"
	"github.com/mosaicnetworks/rtinet/src/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testModel = `
name: traffic
time: HLAinteger64Time
dimensions:
  - name: Lane
    upperBound: 100
objectClasses:
  - name: HLAobjectRoot
  - name: Vehicle
    parent: HLAobjectRoot
    attributes:
      - name: Position
        dimensions: [Lane]
interactionClasses:
  - name: HLAinteractionRoot
  - name: Collision
    parent: HLAinteractionRoot
    parameters:
      - name: Force
`

// Handles follow declaration order. HLAprivilegeToDeleteObject is attribute 1.
const (
	classVehicle   handle.ObjectClass      = 2
	attrPosition   handle.Attribute        = 2
	interCollision handle.InteractionClass = 2
	paramForce     handle.Parameter        = 1
	dimLane        handle.Dimension        = 1
)

const testTimeout = 5 * time.Second

type testNode struct {
	*node.Node
	trans *net.InmemTransport
}

func newTestNode(t *testing.T, name string, parent *testNode) *testNode {
	_, trans := net.NewInmemTransport(name)

	conf := node.TestConfig(t, name)
	if parent != nil {
		conf.ParentAddr = parent.trans.LocalAddr()
		trans.Connect(conf.ParentAddr, parent.trans)
	}

	n, err := node.NewNode(conf, trans, store.NewInmemStore(), prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, n.Init())
	n.RunAsync()
	t.Cleanup(n.Shutdown)

	return &testNode{Node: n, trans: trans}
}

func connect(t *testing.T, n *testNode, name string) *Ambassador {
	_, trans := net.NewInmemTransport("")
	trans.Connect(n.trans.LocalAddr(), n.trans)

	a, err := Connect(trans, n.trans.LocalAddr(), TestConfig(t, name))
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Close()
		trans.Close()
	})
	return a
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	t.Cleanup(cancel)
	return ctx
}

func loadModel(t *testing.T) *fom.Model {
	m, err := fom.Decode(strings.NewReader(testModel))
	require.NoError(t, err)
	return m
}

func at(v int64) logicaltime.Time {
	return logicaltime.Integer64.Time(float64(v))
}

// next returns the next callback, failing the test if none comes.
func next(t *testing.T, a *Ambassador) *message.Callback {
	t.Helper()
	cb, err := a.Evoke(testContext(t))
	require.NoError(t, err, "%s waiting for a callback", a.conf.Name)
	return cb
}

// expect returns the next callback and checks its kind.
func expect(t *testing.T, a *Ambassador, k message.Kind) *message.Callback {
	t.Helper()
	cb := next(t, a)
	require.Equal(t, k, cb.Kind, "%s: got %s, want %s", a.conf.Name, cb.Kind, k)
	return cb
}

func TestLifecycle(t *testing.T) {
	root := newTestNode(t, "root", nil)
	a := connect(t, root, "alice")
	ctx := testContext(t)

	require.NoError(t, a.CreateFederationExecution(ctx, "traffic", loadModel(t)))

	err := a.CreateFederationExecution(ctx, "traffic", loadModel(t))
	assert.True(t, cm.IsRTI(err, cm.FederationExecutionAlreadyExists), "second create: %v", err)

	fd, err := a.JoinFederationExecution(ctx, "", "", "traffic")
	require.NoError(t, err)
	assert.NotZero(t, fd)
	assert.Equal(t, fd, a.Federate())
	assert.Equal(t, "alice", a.FederateName())
	assert.Equal(t, logicaltime.Integer64, a.Domain())
	assert.True(t, a.LogicalTime().Equal(at(0)))

	_, err = a.JoinFederationExecution(ctx, "other", "", "traffic")
	assert.True(t, cm.IsRTI(err, cm.FederateAlreadyExecutionMember), "second join: %v", err)

	infos, err := a.ListFederationExecutions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "traffic", infos[0].Name)
	assert.Equal(t, 1, infos[0].Federates)

	err = a.DestroyFederationExecution(ctx, "traffic")
	assert.True(t, cm.IsRTI(err, cm.FederatesCurrentlyJoined), "destroy while joined: %v", err)

	require.NoError(t, a.ResignFederationExecution(ctx, message.CancelThenDeleteThenDivest))
	assert.Zero(t, a.Federate())

	err = a.ResignFederationExecution(ctx, message.NoAction)
	assert.True(t, cm.IsRTI(err, cm.FederateNotExecutionMember), "resign while not joined: %v", err)

	require.NoError(t, a.DestroyFederationExecution(ctx, "traffic"))

	infos, err = a.ListFederationExecutions(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestConcurrentCreate(t *testing.T) {
	root := newTestNode(t, "root", nil)
	leaf := newTestNode(t, "leaf", root)
	model := loadModel(t)

	const n = 8
	ambassadors := make([]*Ambassador, n)
	for i := range ambassadors {
		target := root
		if i%2 == 1 {
			target = leaf
		}
		ambassadors[i] = connect(t, target, fmt.Sprintf("fed%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, a := range ambassadors {
		wg.Add(1)
		go func(i int, a *Ambassador) {
			defer wg.Done()
			errs[i] = a.CreateFederationExecution(context.Background(), "race", model)
		}(i, a)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, cm.IsRTI(err, cm.FederationExecutionAlreadyExists), "unexpected error %v", err)
	}
	assert.Equal(t, 1, winners)
}

func TestObjectExchange(t *testing.T) {
	root := newTestNode(t, "root", nil)
	leaf := newTestNode(t, "leaf", root)
	ctx := testContext(t)

	a := connect(t, leaf, "alice")
	b := connect(t, root, "bob")

	require.NoError(t, a.CreateFederationExecution(ctx, "traffic", loadModel(t)))
	_, err := a.JoinFederationExecution(ctx, "", "", "traffic")
	require.NoError(t, err)
	_, err = b.JoinFederationExecution(ctx, "", "", "traffic")
	require.NoError(t, err)

	require.NoError(t, b.SubscribeObjectClassAttributes(ctx, classVehicle, []handle.Attribute{attrPosition}))
	require.NoError(t, b.SubscribeInteractionClass(ctx, interCollision))
	require.NoError(t, a.PublishObjectClassAttributes(ctx, classVehicle, []handle.Attribute{attrPosition}))
	require.NoError(t, a.PublishInteractionClass(ctx, interCollision))

	require.NoError(t, a.ReserveObjectInstanceName(ctx, "car-1"))
	cb := expect(t, a, message.ObjectInstanceNameReservationSucceeded)
	assert.Equal(t, "car-1", cb.Name)

	obj, name, err := a.RegisterObjectInstance(ctx, classVehicle, "car-1")
	require.NoError(t, err)
	assert.Equal(t, "car-1", name)

	cb = expect(t, b, message.DiscoverObjectInstance)
	assert.Equal(t, obj, cb.Instance)
	assert.Equal(t, classVehicle, cb.ObjectClass)
	assert.Equal(t, "car-1", cb.Name)

	owned, err := a.IsAttributeOwnedByFederate(ctx, obj, attrPosition)
	require.NoError(t, err)
	assert.True(t, owned)

	values := map[handle.Attribute][]byte{attrPosition: []byte("12,7")}
	require.NoError(t, a.UpdateAttributeValues(ctx, obj, values, []byte("tick")))

	cb = expect(t, b, message.ReflectAttributeValues)
	assert.Equal(t, obj, cb.Instance)
	assert.Equal(t, values, cb.Values)
	assert.Equal(t, []byte("tick"), cb.Tag)
	assert.Equal(t, message.ReceiveOrder, cb.ReceivedOrder)

	params := map[handle.Parameter][]byte{paramForce: []byte("3")}
	require.NoError(t, a.SendInteraction(ctx, interCollision, params, nil))

	cb = expect(t, b, message.ReceiveInteraction)
	assert.Equal(t, interCollision, cb.Interaction)
	assert.Equal(t, params, cb.Parameters)
	assert.Equal(t, a.Federate(), cb.Federate)

	require.NoError(t, a.DeleteObjectInstance(ctx, obj, []byte("bye")))
	cb = expect(t, b, message.RemoveObjectInstance)
	assert.Equal(t, obj, cb.Instance)

	err = a.UpdateAttributeValues(ctx, obj, values, nil)
	assert.True(t, cm.IsRTI(err, cm.ObjectInstanceNotKnown), "update after delete: %v", err)
}

func TestTimeAdvance(t *testing.T) {
	root := newTestNode(t, "root", nil)
	leaf := newTestNode(t, "leaf", root)
	ctx := testContext(t)

	a := connect(t, root, "alice")
	b := connect(t, leaf, "bob")

	require.NoError(t, a.CreateFederationExecution(ctx, "traffic", loadModel(t)))
	_, err := a.JoinFederationExecution(ctx, "", "", "traffic")
	require.NoError(t, err)
	_, err = b.JoinFederationExecution(ctx, "", "", "traffic")
	require.NoError(t, err)

	require.NoError(t, a.PublishInteractionClass(ctx, interCollision))
	require.NoError(t, b.SubscribeInteractionClass(ctx, interCollision))

	_, valid, err := b.QueryGALT(ctx)
	require.NoError(t, err)
	assert.False(t, valid, "no federate regulates yet")

	require.NoError(t, a.EnableTimeRegulation(ctx, logicaltime.Integer64.Interval(1)))
	expect(t, a, message.TimeRegulationEnabled)

	require.NoError(t, b.EnableTimeConstrained(ctx))
	expect(t, b, message.TimeConstrainedEnabled)

	// Bob cannot pass Alice's time plus lookahead.
	require.NoError(t, b.TimeAdvanceRequest(ctx, at(3)))
	err = b.TimeAdvanceRequest(ctx, at(4))
	assert.True(t, cm.IsRTI(err, cm.InTimeAdvancingState), "second advance: %v", err)

	require.NoError(t, a.TimeAdvanceRequest(ctx, at(5)))
	cb := expect(t, a, message.TimeAdvanceGrant)
	assert.True(t, cb.Time.Equal(at(5)), "alice granted %s", cb.Time)
	assert.True(t, a.LogicalTime().Equal(at(5)))

	cb = expect(t, b, message.TimeAdvanceGrant)
	assert.True(t, cb.Time.Equal(at(3)), "bob granted %s", cb.Time)
	assert.True(t, b.LogicalTime().Equal(at(3)))

	galt, valid, err := b.QueryGALT(ctx)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.True(t, galt.Equal(at(6)), "GALT %s", galt)
	cached, cachedValid := b.GALT()
	assert.True(t, cachedValid)
	assert.True(t, cached.Equal(galt))

	// Stamped before Alice's time plus lookahead.
	_, err = a.SendInteractionAt(ctx, interCollision, nil, nil, at(5))
	assert.True(t, cm.IsRTI(err, cm.InvalidLogicalTime), "send in the past: %v", err)

	r, err := a.SendInteractionAt(ctx, interCollision, nil, []byte("late"), at(7))
	require.NoError(t, err)
	assert.NotZero(t, r)

	// Held back until Bob may advance past 7.
	require.NoError(t, b.TimeAdvanceRequest(ctx, at(10)))
	require.NoError(t, a.TimeAdvanceRequest(ctx, at(20)))
	expect(t, a, message.TimeAdvanceGrant)

	cb = expect(t, b, message.ReceiveInteraction)
	assert.Equal(t, message.TimestampOrder, cb.ReceivedOrder)
	assert.True(t, cb.Time.Equal(at(7)))
	assert.Equal(t, r, cb.Retraction)

	cb = expect(t, b, message.TimeAdvanceGrant)
	assert.True(t, cb.Time.Equal(at(10)))

	now, err := b.QueryLogicalTime(ctx)
	require.NoError(t, err)
	assert.True(t, now.Equal(at(10)))

	la, err := a.QueryLookahead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, la.Compare(logicaltime.Integer64.Interval(1)))
}

func TestConnectionLost(t *testing.T) {
	root := newTestNode(t, "root", nil)
	leaf := newTestNode(t, "leaf", root)
	ctx := testContext(t)

	a := connect(t, leaf, "alice")
	b := connect(t, root, "bob")

	require.NoError(t, b.CreateFederationExecution(ctx, "traffic", loadModel(t)))
	_, err := a.JoinFederationExecution(ctx, "", "", "traffic")
	require.NoError(t, err)
	_, err = b.JoinFederationExecution(ctx, "", "", "traffic")
	require.NoError(t, err)

	require.NoError(t, b.SubscribeObjectClassAttributes(ctx, classVehicle, []handle.Attribute{attrPosition}))
	require.NoError(t, a.PublishObjectClassAttributes(ctx, classVehicle, []handle.Attribute{attrPosition}))
	obj, _, err := a.RegisterObjectInstance(ctx, classVehicle, "")
	require.NoError(t, err)
	expect(t, b, message.DiscoverObjectInstance)

	fx, fd := a.Federation(), a.Federate()
	leaf.Shutdown()

	var lost *message.Callback
	err = a.Dispatch(ctx, func(cb *message.Callback) { lost = cb })
	assert.True(t, errors.Is(err, ErrConnectionLost), "dispatch returned %v", err)
	require.NotNil(t, lost)
	assert.Equal(t, message.ConnectionLost, lost.Kind)
	assert.Equal(t, fx, lost.Federation)
	assert.Equal(t, []handle.Federate{fd}, lost.To)

	select {
	case <-a.Done():
	case <-time.After(testTimeout):
		t.Fatal("link not closed")
	}

	_, err = a.ListFederationExecutions(ctx)
	assert.True(t, cm.IsRTI(err, cm.NotConnected), "call after loss: %v", err)

	// Alice is resigned as if she had deleted her objects.
	cb := expect(t, b, message.RemoveObjectInstance)
	assert.Equal(t, obj, cb.Instance)
	assert.Equal(t, fd, cb.Federate)
}

func TestCallTimeout(t *testing.T) {
	_, nodeTrans := net.NewInmemTransport("")
	_, trans := net.NewInmemTransport("")
	trans.Connect(nodeTrans.LocalAddr(), nodeTrans)
	defer nodeTrans.Close()
	defer trans.Close()

	// The other end accepts the link and never answers.
	go func() {
		var links []net.Link
		for l := range nodeTrans.Accept() {
			links = append(links, l)
		}
		for _, l := range links {
			l.Close()
		}
	}()

	a, err := Connect(trans, nodeTrans.LocalAddr(), TestConfig(t, "alice"))
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = a.ListFederationExecutions(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = a.QueryLogicalTime(context.Background())
	assert.True(t, cm.IsRTI(err, cm.FederateNotExecutionMember), "query before join: %v", err)
}

// recvRequest returns the next request the node side of link receives,
// skipping the hello.
func recvRequest(t *testing.T, link net.Link, op message.Op) *message.Request {
	t.Helper()
	for {
		select {
		case f, ok := <-link.Recv():
			require.True(t, ok, "link closed waiting for %s", op)
			if f.Type != net.FrameRequest {
				continue
			}
			require.Equal(t, op, f.Request.Op)
			return f.Request
		case <-time.After(testTimeout):
			t.Fatalf("no %s request", op)
			return nil
		}
	}
}

func TestAbandonedJoinResigned(t *testing.T) {
	_, nodeTrans := net.NewInmemTransport("")
	_, trans := net.NewInmemTransport("")
	trans.Connect(nodeTrans.LocalAddr(), nodeTrans)
	defer nodeTrans.Close()
	defer trans.Close()

	a, err := Connect(trans, nodeTrans.LocalAddr(), TestConfig(t, "alice"))
	require.NoError(t, err)
	defer a.Close()

	var link net.Link
	select {
	case link = <-nodeTrans.Accept():
	case <-time.After(testTimeout):
		t.Fatal("link not accepted")
	}
	defer link.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = a.JoinFederationExecution(ctx, "alice", "", "traffic")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The join is answered after the caller gave up.
	join := recvRequest(t, link, message.OpJoin)
	require.NoError(t, link.Send(net.NewResponseFrame(&message.Response{
		ID:         join.ID,
		Federation: 1,
		Federate:   7,
		Name:       "alice",
	})))

	resign := recvRequest(t, link, message.OpResign)
	assert.Equal(t, handle.Federation(1), resign.Federation)
	assert.Equal(t, handle.Federate(7), resign.Federate)
	assert.Equal(t, message.CancelThenDeleteThenDivest, resign.ResignAction)
	assert.Zero(t, a.Federate())
}

func TestConnectRefused(t *testing.T) {
	_, trans := net.NewInmemTransport("")
	defer trans.Close()

	_, err := Connect(trans, "nowhere", TestConfig(t, "alice"))
	assert.True(t, cm.IsRTI(err, cm.ConnectionFailed), "connect: %v", err)
}
