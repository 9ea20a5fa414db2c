package node

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/federation"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/mosaicnetworks/rtinet/src/net"
	"github.com/mosaicnetworks/rtinet/src/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Node is one relay node of a relay tree. All routing state is owned by the
// goroutine started by Run; everything else talks to it through the inbox.
type Node struct {
	state

	conf   *Config
	logger *logrus.Entry

	trans  net.Transport
	parent net.Link

	// registry is only set on the root.
	registry *federation.Registry

	inbox *cm.Queue[event]

	children map[string]*child
	routes   map[route]*child
	pending  map[uint64]*pending
	nextID   uint64

	metrics *Metrics

	start        time.Time
	started      atomic.Bool
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	doneCh       chan struct{}
}

// NewNode is a factory method that returns a Node instance. A node without
// a parent address creates the federation registry over s; s is unused
// otherwise. Metrics are registered on reg.
func NewNode(conf *Config,
	trans net.Transport,
	s store.Store,
	reg prometheus.Registerer,
) (*Node, error) {

	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	n := &Node{
		conf:       conf,
		logger:     conf.Logger.WithField("node", conf.Name),
		trans:      trans,
		inbox:      cm.NewQueue[event](),
		children:   make(map[string]*child),
		routes:     make(map[route]*child),
		pending:    make(map[uint64]*pending),
		metrics:    metrics,
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	if conf.ParentAddr == "" {
		n.registry, err = federation.NewRegistry(s, federation.EmitterFunc(n.emit), n.logger)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(newGALTCollector(n.registry)); err != nil {
			return nil, err
		}
		n.metrics.Federations.Set(float64(len(n.registry.Executions())))
	}

	return n, nil
}

// Init dials the parent, if any. A root node has nothing to do.
func (n *Node) Init() error {
	if n.IsRoot() {
		n.logger.Debug("Root node")
		return nil
	}

	n.logger.WithField("parent", n.conf.ParentAddr).Debug("Dialing parent")

	link, err := n.trans.Dial(n.conf.ParentAddr)
	if err != nil {
		return fmt.Errorf("dialing parent %s: %v", n.conf.ParentAddr, err)
	}
	if err := link.Send(&net.Frame{
		Type:  net.FrameHello,
		Hello: &net.Hello{Kind: net.PeerNode, Name: n.conf.Name},
	}); err != nil {
		link.Close()
		return err
	}

	n.parent = link
	go n.readParent(link)

	return nil
}

// IsRoot reports whether the node owns the federation registry.
func (n *Node) IsRoot() bool {
	return n.conf.ParentAddr == ""
}

// RunAsync calls Run as a separate thread
func (n *Node) RunAsync() {
	n.logger.Debug("runasync")
	n.started.Store(true)
	go n.Run()
}

// Run accepts links and routes frames until Shutdown, or until the parent
// link is lost.
func (n *Node) Run() {
	n.started.Store(true)
	defer close(n.doneCh)
	defer n.cleanup()

	if n.getState() == Shutdown {
		return
	}
	n.start = time.Now()
	n.setState(Running)

	go n.trans.Listen()
	go n.acceptLinks()

	for {
		select {
		case ev, ok := <-n.inbox.Out():
			if !ok {
				return
			}
			n.handle(ev)
		case <-n.shutdownCh:
			return
		}
	}
}

// Shutdown stops the node and waits for its loop to exit. Child links are
// closed, so every federate below observes a lost connection.
func (n *Node) Shutdown() {
	n.stop()
	if n.started.Load() {
		<-n.doneCh
	} else {
		n.cleanup()
	}
}

// Done is closed once the node loop has exited.
func (n *Node) Done() <-chan struct{} {
	return n.doneCh
}

func (n *Node) stop() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")
		n.setState(Shutdown)
		close(n.shutdownCh)
		n.trans.Close()
	})
}

// cleanup runs on the node goroutine, or in Shutdown if Run never started.
func (n *Node) cleanup() {
	n.stop()
	n.inbox.Close()

	if n.parent != nil {
		n.parent.Close()
	}
	for _, c := range n.children {
		c.link.Close()
	}
	if n.registry != nil {
		n.registry.Close()
	}
}

func (n *Node) acceptLinks() {
	for l := range n.trans.Accept() {
		if !n.inbox.Put(event{kind: evLink, link: l}) {
			l.Close()
		}
	}
}

func (n *Node) readParent(l net.Link) {
	for f := range l.Recv() {
		n.inbox.Put(event{kind: evParentFrame, frame: f})
	}
	n.inbox.Put(event{kind: evParentLost})
}

func (n *Node) readChild(c *child) {
	for f := range c.link.Recv() {
		n.inbox.Put(event{kind: evChildFrame, child: c, frame: f})
	}
	n.inbox.Put(event{kind: evChildLost, child: c})
}

// emit is the registry's Emitter. It must not block.
func (n *Node) emit(cb *message.Callback) {
	n.inbox.Put(event{kind: evCallback, callback: cb})
}

// Request sends req up the tree on behalf of the node itself and waits for
// the response. It serves local tooling such as the HTTP service.
func (n *Node) Request(ctx context.Context, req *message.Request) (*message.Response, error) {
	respCh := make(chan *message.Response, 1)
	if !n.inbox.Put(event{kind: evLocal, request: req, reply: func(r *message.Response) { respCh <- r }}) {
		return nil, net.ErrTransportShutdown
	}

	select {
	case resp := <-respCh:
		return resp, resp.Error()
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-n.doneCh:
		return nil, net.ErrTransportShutdown
	}
}

// Federations lists the live federation executions of the tree.
func (n *Node) Federations(ctx context.Context) ([]message.FederationInfo, error) {
	resp, err := n.Request(ctx, &message.Request{Op: message.OpList})
	if err != nil {
		return nil, err
	}
	return resp.Federations, nil
}

// GetStats returns a snapshot of the routing state, taken on the node
// goroutine.
func (n *Node) GetStats() map[string]string {
	statsCh := make(chan map[string]string, 1)
	if n.started.Load() && n.inbox.Put(event{kind: evStats, stats: statsCh}) {
		select {
		case s := <-statsCh:
			return s
		case <-n.doneCh:
		}
	}
	return map[string]string{
		"name":  n.conf.Name,
		"state": n.getState().String(),
	}
}

func (n *Node) stats() map[string]string {
	federations := make(map[handle.Federation]bool)
	for r := range n.routes {
		federations[r.federation] = true
	}

	s := map[string]string{
		"name":        n.conf.Name,
		"state":       n.getState().String(),
		"root":        strconv.FormatBool(n.IsRoot()),
		"links":       strconv.Itoa(len(n.children)),
		"federates":   strconv.Itoa(len(n.routes)),
		"federations": strconv.Itoa(len(federations)),
		"pending":     strconv.Itoa(len(n.pending)),
		"uptime":      time.Since(n.start).Truncate(time.Second).String(),
	}
	if n.IsRoot() {
		s["federations"] = strconv.Itoa(len(n.registry.Executions()))
	} else {
		s["parent"] = n.conf.ParentAddr
	}
	return s
}
