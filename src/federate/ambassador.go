package federate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/mosaicnetworks/rtinet/src/net"
	"github.com/sirupsen/logrus"
)

var (
	// ErrClosed is returned once the ambassador was closed.
	ErrClosed = errors.New("ambassador closed")

	// ErrConnectionLost is returned by Dispatch after delivering the
	// ConnectionLost callback.
	ErrConnectionLost = errors.New("connection to relay node lost")
)

// CallbackHandler consumes callbacks in Dispatch.
type CallbackHandler func(*message.Callback)

// membership is the execution the ambassador is joined to.
type membership struct {
	federation handle.Federation
	federate   handle.Federate
	name       string
	model      *fom.Model
	domain     logicaltime.Domain
}

type galtValue struct {
	time  logicaltime.Time
	valid bool
}

// call is a request waiting for its response.
type call struct {
	op     message.Op
	respCh chan *message.Response
	// abandoned calls stay pending until their response arrives, so that
	// a join the caller gave up on can be undone.
	abandoned bool
}

// Ambassador is the federate side of a link to a relay node. Its methods are
// safe for concurrent use. Responses are matched to calls by request id;
// callbacks are queued in arrival order and read with Callbacks, Evoke or
// Dispatch.
type Ambassador struct {
	conf   *Config
	logger *logrus.Entry
	link   net.Link

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]*call
	lost    bool

	joined atomic.Pointer[membership]
	time   atomic.Pointer[logicaltime.Time]
	galt   atomic.Pointer[galtValue]

	callbacks *cm.Queue[*message.Callback]

	closing   atomic.Bool
	closeOnce sync.Once
	doneCh    chan struct{}
}

// Connect dials a relay node through trans and introduces itself as a
// federate.
func Connect(trans net.Transport, target string, conf *Config) (*Ambassador, error) {
	logger := conf.Logger.WithField("federate", conf.Name)

	link, err := trans.Dial(target)
	if err != nil {
		return nil, cm.NewRTIErr(cm.ConnectionFailed, "dialing %s: %v", target, err)
	}
	if err := link.Send(&net.Frame{
		Type:  net.FrameHello,
		Hello: &net.Hello{Kind: net.PeerFederate, Name: conf.Name},
	}); err != nil {
		link.Close()
		return nil, cm.NewRTIErr(cm.ConnectionFailed, "%v", err)
	}

	a := &Ambassador{
		conf:      conf,
		logger:    logger,
		link:      link,
		pending:   make(map[uint64]*call),
		callbacks: cm.NewQueue[*message.Callback](),
		doneCh:    make(chan struct{}),
	}
	go a.readLoop()

	logger.WithField("node", target).Debug("Connected")

	return a, nil
}

// Close closes the link and the callback queue. The node resigns a federate
// still joined through the link.
func (a *Ambassador) Close() error {
	a.closeOnce.Do(func() {
		a.closing.Store(true)
		a.link.Close()
		<-a.doneCh
		a.callbacks.Close()
	})
	return nil
}

// Done is closed once the link is down.
func (a *Ambassador) Done() <-chan struct{} {
	return a.doneCh
}

// Callbacks delivers callbacks in the order the node sent them. A lost
// connection is reported as a ConnectionLost callback. The channel is closed
// by Close.
func (a *Ambassador) Callbacks() <-chan *message.Callback {
	return a.callbacks.Out()
}

// Evoke waits for the next callback.
func (a *Ambassador) Evoke(ctx context.Context) (*message.Callback, error) {
	select {
	case cb, ok := <-a.callbacks.Out():
		if !ok {
			return nil, ErrClosed
		}
		return cb, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dispatch passes callbacks to h until ctx is done or the connection is
// lost. The ConnectionLost callback is passed to h before Dispatch returns
// ErrConnectionLost.
func (a *Ambassador) Dispatch(ctx context.Context, h CallbackHandler) error {
	for {
		cb, err := a.Evoke(ctx)
		if err != nil {
			return err
		}
		h(cb)
		if cb.Kind == message.ConnectionLost {
			return ErrConnectionLost
		}
	}
}

// Federation returns the handle of the joined execution, or 0.
func (a *Ambassador) Federation() handle.Federation {
	if m := a.joined.Load(); m != nil {
		return m.federation
	}
	return 0
}

// Federate returns the federate handle assigned on join, or 0.
func (a *Ambassador) Federate() handle.Federate {
	if m := a.joined.Load(); m != nil {
		return m.federate
	}
	return 0
}

// FederateName returns the name the execution knows the federate by.
func (a *Ambassador) FederateName() string {
	if m := a.joined.Load(); m != nil {
		return m.name
	}
	return ""
}

// Model returns the object model of the joined execution.
func (a *Ambassador) Model() *fom.Model {
	if m := a.joined.Load(); m != nil {
		return m.model
	}
	return nil
}

// Domain returns the logical time domain of the joined execution.
func (a *Ambassador) Domain() logicaltime.Domain {
	if m := a.joined.Load(); m != nil {
		return m.domain
	}
	return logicaltime.Integer64
}

// LogicalTime returns the last granted logical time without a round trip.
func (a *Ambassador) LogicalTime() logicaltime.Time {
	if t := a.time.Load(); t != nil {
		return *t
	}
	return a.Domain().Initial()
}

// GALT returns the value seen by the last QueryGALT without a round trip.
func (a *Ambassador) GALT() (logicaltime.Time, bool) {
	if g := a.galt.Load(); g != nil {
		return g.time, g.valid
	}
	return logicaltime.Time{}, false
}

func (a *Ambassador) readLoop() {
	defer close(a.doneCh)

	for f := range a.link.Recv() {
		switch f.Type {
		case net.FrameResponse:
			a.respond(f.Response)
		case net.FrameCallback:
			a.observe(f.Callback)
			a.callbacks.Put(f.Callback)
		default:
			a.logger.WithField("type", f.Type.String()).Warn("Unexpected frame from node")
		}
	}

	a.disconnect()
}

// respond hands resp to its caller. Cached state is updated here rather than
// by the caller so that it follows the order of the link.
func (a *Ambassador) respond(resp *message.Response) {
	a.mu.Lock()
	c, ok := a.pending[resp.ID]
	delete(a.pending, resp.ID)
	abandoned := ok && c.abandoned
	a.mu.Unlock()

	if !ok {
		a.logger.WithField("id", resp.ID).Warn("Dropping response to unknown call")
		return
	}
	if abandoned {
		a.logger.WithFields(logrus.Fields{
			"id": resp.ID,
			"op": c.op,
		}).Debug("Dropping response to abandoned call")
		if c.op == message.OpJoin && resp.Err == cm.NoError {
			a.undoJoin(resp)
		}
		return
	}

	if resp.Err == cm.NoError {
		a.learn(c.op, resp)
	}
	c.respCh <- resp
}

func (a *Ambassador) learn(op message.Op, resp *message.Response) {
	switch op {
	case message.OpJoin:
		m := &membership{
			federation: resp.Federation,
			federate:   resp.Federate,
			name:       resp.Name,
			model:      resp.Model,
		}
		if resp.Model != nil {
			// The execution accepted this name at creation.
			m.domain, _ = logicaltime.ParseDomain(resp.Model.TimeImplementation)
		}
		t := m.domain.Initial()
		a.time.Store(&t)
		a.galt.Store(nil)
		a.joined.Store(m)
	case message.OpResign:
		a.joined.Store(nil)
		a.galt.Store(nil)
	case message.OpQueryLogicalTime:
		t := resp.Time
		a.time.Store(&t)
	case message.OpQueryGALT:
		a.galt.Store(&galtValue{time: resp.Time, valid: resp.Valid})
	}
}

func (a *Ambassador) observe(cb *message.Callback) {
	switch cb.Kind {
	case message.TimeAdvanceGrant,
		message.TimeRegulationEnabled,
		message.TimeConstrainedEnabled:
		t := cb.Time
		a.time.Store(&t)
	}
}

// disconnect fails every call in flight and reports the lost connection.
func (a *Ambassador) disconnect() {
	a.mu.Lock()
	a.lost = true
	calls := a.pending
	a.pending = make(map[uint64]*call)
	a.mu.Unlock()

	for id, c := range calls {
		c.respCh <- message.NewResponse(&message.Request{ID: id}, cm.NewRTIErr(cm.NotConnected, "link closed"))
	}

	m := a.joined.Swap(nil)
	if a.closing.Load() {
		return
	}

	a.logger.Warn("Lost connection to relay node")

	cb := &message.Callback{Kind: message.ConnectionLost, Text: "link closed"}
	if m != nil {
		cb.Federation = m.federation
		cb.To = []handle.Federate{m.federate}
	}
	a.callbacks.Put(cb)
}

// call sends req and waits for its response. Calls made with a context
// without deadline are bounded by the configured timeout.
func (a *Ambassador) call(ctx context.Context, req *message.Request) (*message.Response, error) {
	if _, ok := ctx.Deadline(); !ok && a.conf.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.conf.Timeout)
		defer cancel()
	}

	c := &call{op: req.Op, respCh: make(chan *message.Response, 1)}

	a.mu.Lock()
	if a.lost {
		a.mu.Unlock()
		return nil, cm.NewRTIErr(cm.NotConnected, "link closed")
	}
	a.nextID++
	req.ID = a.nextID
	a.pending[req.ID] = c
	a.mu.Unlock()

	if err := a.link.Send(net.NewRequestFrame(req)); err != nil {
		a.forget(req.ID)
		return nil, cm.NewRTIErr(cm.NotConnected, "%v", err)
	}

	select {
	case resp := <-c.respCh:
		return resp, resp.Error()
	case <-ctx.Done():
		if !a.abandon(req.ID) {
			// The response is already on its way.
			resp := <-c.respCh
			return resp, resp.Error()
		}
		return nil, ctx.Err()
	}
}

func (a *Ambassador) forget(id uint64) {
	a.mu.Lock()
	delete(a.pending, id)
	a.mu.Unlock()
}

// abandon marks a pending call as given up. It returns false when the call
// was already answered.
func (a *Ambassador) abandon(id uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.pending[id]
	if ok {
		c.abandoned = true
	}
	return ok
}

// undoJoin resigns the federate created by a join whose caller gave up
// waiting, so that its name is free again.
func (a *Ambassador) undoJoin(resp *message.Response) {
	req := &message.Request{
		Op:           message.OpResign,
		Federation:   resp.Federation,
		Federate:     resp.Federate,
		ResignAction: message.CancelThenDeleteThenDivest,
	}

	a.mu.Lock()
	if a.lost {
		a.mu.Unlock()
		return
	}
	a.nextID++
	req.ID = a.nextID
	a.pending[req.ID] = &call{op: req.Op, respCh: make(chan *message.Response, 1), abandoned: true}
	a.mu.Unlock()

	a.logger.WithFields(logrus.Fields{
		"federation": resp.Federation,
		"federate":   resp.Federate,
	}).Debug("Resigning abandoned join")

	if err := a.link.Send(net.NewRequestFrame(req)); err != nil {
		a.forget(req.ID)
	}
}

// memberCall addresses req to the joined execution.
func (a *Ambassador) memberCall(ctx context.Context, req *message.Request) (*message.Response, error) {
	m := a.joined.Load()
	if m == nil {
		return nil, cm.NewRTIErr(cm.FederateNotExecutionMember, "not joined")
	}
	req.Federation, req.Federate = m.federation, m.federate
	return a.call(ctx, req)
}

func (a *Ambassador) do(ctx context.Context, req *message.Request) error {
	_, err := a.memberCall(ctx, req)
	return err
}
