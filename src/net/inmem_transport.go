package net

import (
	"bufio"
	"bytes"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/rtinet/src/common"
	"github.com/ugorji/go/codec"
)

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return uuid.NewString()
}

// InmemTransport Implements the Transport interface, to allow whole relay
// trees to be tested in-memory without going over a network. Frames still go
// through the wire codec.
type InmemTransport struct {
	sync.RWMutex
	localAddr  string
	peers      map[string]*InmemTransport
	accepts    *common.Queue[Link]
	shutdownCh chan struct{}
	closeOnce  sync.Once
}

// NewInmemTransport is used to initialize a new transport
// and generates a random local address if none is specified
func NewInmemTransport(addr string) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	trans := &InmemTransport{
		localAddr:  addr,
		peers:      make(map[string]*InmemTransport),
		accepts:    common.NewQueue[Link](),
		shutdownCh: make(chan struct{}),
	}
	return addr, trans
}

// Accept implements the Transport interface.
func (i *InmemTransport) Accept() <-chan Link {
	return i.accepts.Out()
}

// LocalAddr implements the Transport interface.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// AdvertiseAddr implements the Transport interface.
func (i *InmemTransport) AdvertiseAddr() string {
	return i.localAddr
}

// IsShutdown ...
func (i *InmemTransport) IsShutdown() bool {
	select {
	case <-i.shutdownCh:
		return true
	default:
		return false
	}
}

// Dial implements the Transport interface.
func (i *InmemTransport) Dial(target string) (Link, error) {
	if i.IsShutdown() {
		return nil, ErrTransportShutdown
	}

	i.RLock()
	peer, ok := i.peers[target]
	i.RUnlock()

	if !ok || peer.IsShutdown() {
		return nil, fmt.Errorf("failed to connect to peer: %v", target)
	}

	local, remote := newInmemPair(i.localAddr, target)
	if !peer.accepts.Put(remote) {
		local.Close()
		return nil, fmt.Errorf("failed to connect to peer: %v", target)
	}
	return local, nil
}

// Connect is used to connect this transport to another transport for
// a given peer name. This allows for local routing.
func (i *InmemTransport) Connect(peer string, t Transport) {
	trans := t.(*InmemTransport)
	i.Lock()
	defer i.Unlock()
	i.peers[peer] = trans
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer string) {
	i.Lock()
	defer i.Unlock()
	delete(i.peers, peer)
}

// DisconnectAll is used to remove all routes to peers.
func (i *InmemTransport) DisconnectAll() {
	i.Lock()
	defer i.Unlock()
	i.peers = make(map[string]*InmemTransport)
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.closeOnce.Do(func() {
		close(i.shutdownCh)
		i.accepts.Close()
		i.DisconnectAll()
	})
	return nil
}

// Listen is an empty function as there is no need to defer
// initialisation of the InMem service
func (i *InmemTransport) Listen() {
}

// inmemLink is one end of an in-memory link. Each end pumps its outbound
// queue into the other end's receive channel.
type inmemLink struct {
	id     string
	remote string
	peer   *inmemLink

	out       *common.Queue[*Frame]
	recvCh    chan *Frame
	doneCh    chan struct{}
	closeOnce sync.Once
}

func newInmemPair(localAddr, remoteAddr string) (*inmemLink, *inmemLink) {
	a := &inmemLink{
		id:     uuid.NewString(),
		remote: remoteAddr,
		out:    common.NewQueue[*Frame](),
		recvCh: make(chan *Frame),
		doneCh: make(chan struct{}),
	}
	b := &inmemLink{
		id:     uuid.NewString(),
		remote: localAddr,
		out:    common.NewQueue[*Frame](),
		recvCh: make(chan *Frame),
		doneCh: make(chan struct{}),
	}
	a.peer, b.peer = b, a

	go a.pump()
	go b.pump()

	return a, b
}

// ID implements the Link interface.
func (l *inmemLink) ID() string {
	return l.id
}

// RemoteAddr implements the Link interface.
func (l *inmemLink) RemoteAddr() string {
	return l.remote
}

// Send implements the Link interface.
func (l *inmemLink) Send(f *Frame) error {
	if !l.out.Put(f) {
		return ErrLinkClosed
	}
	return nil
}

// Recv implements the Link interface.
func (l *inmemLink) Recv() <-chan *Frame {
	return l.recvCh
}

// Done implements the Link interface.
func (l *inmemLink) Done() <-chan struct{} {
	return l.doneCh
}

// Close implements the Link interface.
func (l *inmemLink) Close() error {
	l.closeOnce.Do(func() {
		close(l.doneCh)
		l.out.Close()
		l.peer.Close()
	})
	return nil
}

// pump is the only sender on the peer's receive channel.
func (l *inmemLink) pump() {
	defer close(l.peer.recvCh)

	for f := range l.out.Out() {
		g, err := roundTrip(f)
		if err != nil {
			l.Close()
			return
		}

		select {
		case l.peer.recvCh <- g:
		case <-l.peer.doneCh:
			return
		}
	}
}

// roundTrip passes f through the wire encoding, so in-memory links share
// the copy semantics and codec limits of network links.
func roundTrip(f *Frame) (*Frame, error) {
	var buf bytes.Buffer
	h := newHandle()

	w := bufio.NewWriter(&buf)
	if err := writeFrame(w, codec.NewEncoder(w, h), f); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	r := bufio.NewReader(&buf)
	return readFrame(r, codec.NewDecoder(r, h))
}
