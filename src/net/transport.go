package net

import "errors"

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	// ErrLinkClosed is returned by Send once either end closed the link.
	ErrLinkClosed = errors.New("link closed")
)

// Link is one long-lived bidirectional connection between two parts of a
// relay tree, or between a federate and its node. Frames are delivered in
// the order they were sent.
type Link interface {
	// ID is unique within the process.
	ID() string

	// RemoteAddr is the address of the other end, for logs.
	RemoteAddr() string

	// Send queues f for delivery. It never blocks on the remote end.
	Send(f *Frame) error

	// Recv delivers incoming frames. It is closed once the link is down.
	Recv() <-chan *Frame

	// Done is closed once the link is down.
	Done() <-chan struct{}

	// Close tears the link down. Both ends observe it.
	Close() error
}

// Transport accepts and dials Links.
type Transport interface {
	// Listen accepts incoming connections until the transport is closed.
	// Call it in a goroutine.
	Listen()

	// Accept delivers the links opened by remote ends.
	Accept() <-chan Link

	// Dial opens a link to target.
	Dial(target string) (Link, error)

	// LocalAddr returns the local address.
	LocalAddr() string

	// AdvertiseAddr returns the address other ends should dial.
	AdvertiseAddr() string

	// Close stops accepting links. Links already open stay up.
	Close() error
}
