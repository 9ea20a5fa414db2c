package net

import (
	"bufio"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/rtinet/src/common"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const (
	bufSize = 64 * 1024
)

/*
NetworkTransport provides a network based transport between relay nodes and
federates. It requires an underlying stream layer to provide a stream
abstraction, which can be simple TCP, TLS, etc.

Each connection carries one Link for its whole lifetime. Every frame is a
byte that indicates the frame type, followed by the msgpack encoded body.
Outbound frames go through an unbounded queue drained by a dedicated writer,
so a slow remote end never blocks the sender.
*/
type NetworkTransport struct {
	logger *logrus.Entry

	accepts *common.Queue[Link]

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	stream StreamLayer

	timeout  time.Duration
	maxQueue int
}

// NewNetworkTransport creates a new network transport with the given dialer
// and listener. The timeout applies to dials and writes. A link whose
// outbound queue grows past maxQueue frames is closed; 0 means no limit.
func NewNetworkTransport(
	stream StreamLayer,
	timeout time.Duration,
	maxQueue int,
	logger *logrus.Entry,
) *NetworkTransport {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	trans := &NetworkTransport{
		accepts:    common.NewQueue[Link](),
		logger:     logger,
		shutdownCh: make(chan struct{}),
		stream:     stream,
		timeout:    timeout,
		maxQueue:   maxQueue,
	}

	return trans
}

// Close is used to stop the network transport.
func (n *NetworkTransport) Close() error {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if !n.shutdown {
		close(n.shutdownCh)
		n.stream.Close()
		n.accepts.Close()

		n.shutdown = true
	}
	return nil
}

// Accept implements the Transport interface.
func (n *NetworkTransport) Accept() <-chan Link {
	return n.accepts.Out()
}

// LocalAddr implements the Transport interface.
func (n *NetworkTransport) LocalAddr() string {
	addr := n.stream.Addr()

	if addr != nil {
		return addr.String()
	}

	return ""
}

// AdvertiseAddr implements the Transport interface.
func (n *NetworkTransport) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the transport is shutdown.
func (n *NetworkTransport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// Dial implements the Transport interface.
func (n *NetworkTransport) Dial(target string) (Link, error) {
	if n.IsShutdown() {
		return nil, ErrTransportShutdown
	}

	conn, err := n.stream.Dial(target, n.timeout)
	if err != nil {
		return nil, err
	}

	return n.newLink(conn), nil
}

// Listen opens the stream and handles incoming connections.
func (n *NetworkTransport) Listen() {
	for {
		// Accept incoming connections
		conn, err := n.stream.Accept()
		if err != nil {
			if n.IsShutdown() {
				return
			}
			n.logger.WithField("error", err).Error("Failed to accept connection")
			continue
		}
		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		l := n.newLink(conn)
		if !n.accepts.Put(l) {
			l.Close()
			return
		}
	}
}

func (n *NetworkTransport) newLink(conn net.Conn) *netLink {
	h := newHandle()

	l := &netLink{
		id:       uuid.NewString(),
		conn:     conn,
		r:        bufio.NewReaderSize(conn, bufSize),
		w:        bufio.NewWriterSize(conn, bufSize),
		out:      common.NewQueue[*Frame](),
		recvCh:   make(chan *Frame),
		doneCh:   make(chan struct{}),
		timeout:  n.timeout,
		maxQueue: n.maxQueue,
	}
	l.dec = codec.NewDecoder(l.r, h)
	l.enc = codec.NewEncoder(l.w, h)
	l.logger = n.logger.WithFields(logrus.Fields{
		"link":   l.id,
		"remote": conn.RemoteAddr().String(),
	})

	go l.readLoop()
	go l.writeLoop()

	return l
}

// netLink is a Link over one stream connection.
type netLink struct {
	id     string
	conn   net.Conn
	r      *bufio.Reader
	w      *bufio.Writer
	dec    *codec.Decoder
	enc    *codec.Encoder
	logger *logrus.Entry

	out      *common.Queue[*Frame]
	maxQueue int
	timeout  time.Duration

	recvCh    chan *Frame
	doneCh    chan struct{}
	closeOnce sync.Once
}

// ID implements the Link interface.
func (l *netLink) ID() string {
	return l.id
}

// RemoteAddr implements the Link interface.
func (l *netLink) RemoteAddr() string {
	return l.conn.RemoteAddr().String()
}

// Send implements the Link interface.
func (l *netLink) Send(f *Frame) error {
	if l.maxQueue > 0 && l.out.Len() >= l.maxQueue {
		l.logger.WithField("queued", l.out.Len()).Warn("Outbound queue full, closing link")
		l.Close()
		return ErrLinkClosed
	}
	if !l.out.Put(f) {
		return ErrLinkClosed
	}
	return nil
}

// Recv implements the Link interface.
func (l *netLink) Recv() <-chan *Frame {
	return l.recvCh
}

// Done implements the Link interface.
func (l *netLink) Done() <-chan struct{} {
	return l.doneCh
}

// Close implements the Link interface.
func (l *netLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.doneCh)
		l.out.Close()
		err = l.conn.Close()
	})
	return err
}

func (l *netLink) isClosed() bool {
	select {
	case <-l.doneCh:
		return true
	default:
		return false
	}
}

func (l *netLink) readLoop() {
	defer close(l.recvCh)

	for {
		f, err := readFrame(l.r, l.dec)
		if err != nil {
			if err != io.EOF && !l.isClosed() {
				l.logger.WithField("error", err).Debug("Failed to decode incoming frame")
			}
			l.Close()
			return
		}

		select {
		case l.recvCh <- f:
		case <-l.doneCh:
			return
		}
	}
}

// writeLoop encodes queued frames and flushes whenever the queue runs dry.
func (l *netLink) writeLoop() {
	for f := range l.out.Out() {
		if l.timeout > 0 {
			l.conn.SetWriteDeadline(time.Now().Add(l.timeout))
		}

		err := writeFrame(l.w, l.enc, f)
		if err == nil && l.out.Len() == 0 {
			err = l.w.Flush()
		}
		if err != nil {
			if !l.isClosed() {
				l.logger.WithField("error", err).Debug("Failed to write frame")
			}
			l.Close()
			return
		}
	}
}
