// Package net implements the links that tie a relay tree together.
//
// A Link is a long-lived, ordered, bidirectional stream of Frames. Requests
// travel up a link toward the root, responses and callbacks travel down. Both
// ends can send at any time; sending only queues the frame, so a slow remote
// end never blocks the sender.
//
// There are two implementations of the Transport interface:
//
// - Inmem: in-memory transport used to run whole relay trees in one process
//
// - TCP: communicating over plain TCP
//
// TCP
//
// To use a TCP transport, set the following configuration options in the
// Config object (cf config package):
//
// - Listen: the IP:PORT of the TCP socket the node binds to.
//
// - Advertise: (optional) The address that is advertised to other nodes. If
// the listen address is a local address not reachable by children, it is
// usefull to set Advertise to the reachable public address.
//
// Framing
//
// Every frame is one byte carrying the FrameType, followed by the msgpack
// encoding of the matching body. A dialer sends a Hello frame first.
package net
