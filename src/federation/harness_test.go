package federation

import (
	"strings"
	"sync"
	"testing"
	"time"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/mosaicnetworks/rtinet/src/store"
	"github.com/stretchr/testify/require"
)

// Handles follow declaration order:
//
//	object classes  HLAobjectRoot=1 Vehicle=2 Car=3
//	attributes      HLAprivilegeToDeleteObject=1 Position=2 Label=3 Wheels=4
//	interactions    HLAinteractionRoot=1 Collision=2 Crash=3
//	parameters      Force=1 Speed=2
//	dimensions      Lane=1
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
      - name: Label
        order: Receive
  - name: Car
    parent: Vehicle
    attributes:
      - name: Wheels
interactionClasses:
  - name: HLAinteractionRoot
  - name: Collision
    parent: HLAinteractionRoot
    dimensions: [Lane]
    parameters:
      - name: Force
  - name: Crash
    parent: Collision
    parameters:
      - name: Speed
`

const (
	classRoot    handle.ObjectClass = 1
	classVehicle handle.ObjectClass = 2
	classCar     handle.ObjectClass = 3

	attrPrivilege handle.Attribute = 1
	attrPosition  handle.Attribute = 2
	attrLabel     handle.Attribute = 3
	attrWheels    handle.Attribute = 4

	interCollision handle.InteractionClass = 2
	interCrash     handle.InteractionClass = 3

	paramForce handle.Parameter = 1
	paramSpeed handle.Parameter = 2

	dimLane handle.Dimension = 1
)

func loadTestModel(t *testing.T) *fom.Model {
	m, err := fom.Decode(strings.NewReader(testModel))
	require.NoError(t, err)
	return m
}

func at(v int64) logicaltime.Time {
	return logicaltime.Integer64.Time(float64(v))
}

func interval(v int64) logicaltime.Interval {
	return logicaltime.Integer64.Interval(float64(v))
}

// harness drives a Registry the way a root node does and records every
// callback per federate.
type harness struct {
	t     *testing.T
	reg   *Registry
	store store.Store

	mu        sync.Mutex
	callbacks map[handle.Federate][]*message.Callback
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithStore(t, store.NewInmemStore())
}

func newHarnessWithStore(t *testing.T, s store.Store) *harness {
	h := &harness{
		t:         t,
		store:     s,
		callbacks: make(map[handle.Federate][]*message.Callback),
	}
	reg, err := NewRegistry(s, EmitterFunc(h.collect), cm.NewTestEntry(t, cm.TestLogLevel))
	require.NoError(t, err)
	h.reg = reg
	t.Cleanup(reg.Close)
	return h
}

func (h *harness) collect(cb *message.Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, f := range cb.To {
		h.callbacks[f] = append(h.callbacks[f], cb)
	}
}

// send posts req and waits for its response only.
func (h *harness) send(req *message.Request) *message.Response {
	ch := make(chan *message.Response, 1)
	h.reg.Handle(req, func(resp *message.Response) { ch <- resp })
	select {
	case resp := <-ch:
		return resp
	case <-time.After(5 * time.Second):
		h.t.Fatalf("no response to %s", req.Op)
		return nil
	}
}

// do is send followed by a barrier, so every callback caused by req has
// been collected when it returns.
func (h *harness) do(req *message.Request) *message.Response {
	resp := h.send(req)
	if resp.Federation != 0 {
		h.send(&message.Request{Op: message.OpQueryLogicalTime, Federation: resp.Federation})
	}
	return resp
}

func (h *harness) ok(req *message.Request) *message.Response {
	resp := h.do(req)
	require.Equal(h.t, cm.NoError, resp.Err, "%s: %s", req.Op, resp.ErrText)
	return resp
}

func (h *harness) fails(code cm.ErrType, req *message.Request) {
	resp := h.do(req)
	require.Equal(h.t, code, resp.Err, "%s: %s", req.Op, resp.ErrText)
}

func (h *harness) create(name string) {
	h.ok(&message.Request{Op: message.OpCreate, Name: name, Model: loadTestModel(h.t)})
}

// testMember is a federate joined through the harness.
type testMember struct {
	h  *harness
	fx handle.Federation
	fd handle.Federate
}

func (h *harness) join(federation, name string) *testMember {
	resp := h.ok(&message.Request{Op: message.OpJoin, Name: federation, FederateName: name, FederateType: "test"})
	require.NotZero(h.t, resp.Federate)
	return &testMember{h: h, fx: resp.Federation, fd: resp.Federate}
}

func (m *testMember) ok(req *message.Request) *message.Response {
	req.Federation, req.Federate = m.fx, m.fd
	return m.h.ok(req)
}

func (m *testMember) fails(code cm.ErrType, req *message.Request) {
	req.Federation, req.Federate = m.fx, m.fd
	m.h.fails(code, req)
}

// take returns and forgets the callbacks collected for m.
func (m *testMember) take() []*message.Callback {
	m.h.mu.Lock()
	defer m.h.mu.Unlock()
	res := m.h.callbacks[m.fd]
	delete(m.h.callbacks, m.fd)
	return res
}

func (m *testMember) takeKind(k message.Kind) []*message.Callback {
	var res []*message.Callback
	for _, cb := range m.take() {
		if cb.Kind == k {
			res = append(res, cb)
		}
	}
	return res
}

func kinds(cbs []*message.Callback) []message.Kind {
	res := make([]message.Kind, 0, len(cbs))
	for _, cb := range cbs {
		res = append(res, cb.Kind)
	}
	return res
}
