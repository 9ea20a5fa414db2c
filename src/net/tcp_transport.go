package net

import (
	"errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	errNotAdvertisable = errors.New("local bind address is not advertisable")
	errNotTCP          = errors.New("local address is not a TCP address")
)

// NewTCPTransport binds bindAddr and returns a NetworkTransport over plain
// TCP. Links are closed when more than maxQueue frames wait to be written
// (0 for no limit).
func NewTCPTransport(
	bindAddr string,
	advertiseAddr string,
	timeout time.Duration,
	maxQueue int,
	logger *logrus.Entry,
) (*NetworkTransport, error) {

	list, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, err
	}

	advertise, err := resolveAdvertise(list, advertiseAddr)
	if err != nil {
		list.Close()
		return nil, err
	}

	stream := &TCPStreamLayer{
		advertise: advertise,
		listener:  list.(*net.TCPListener),
	}

	return NewNetworkTransport(stream, timeout, maxQueue, logger), nil
}

// resolveAdvertise checks that the address other ends will dial is a
// concrete TCP address. It returns advertiseAddr unchanged, or "" when the
// bound address should be used.
func resolveAdvertise(list net.Listener, advertiseAddr string) (string, error) {
	var addr net.Addr = list.Addr()
	if advertiseAddr != "" {
		resolved, err := net.ResolveTCPAddr("tcp", advertiseAddr)
		if err != nil {
			return "", err
		}
		addr = resolved
	}

	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return "", errNotTCP
	}
	if tcpAddr.IP.IsUnspecified() {
		return "", errNotAdvertisable
	}
	return advertiseAddr, nil
}
