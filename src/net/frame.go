package net

import (
	"bufio"
	"fmt"

	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/ugorji/go/codec"
)

// FrameType is the byte that precedes every encoded frame body on the wire.
type FrameType uint8

const (
	// FrameHello is the first frame a dialer sends.
	FrameHello FrameType = iota + 1
	// FrameRequest travels from a federate toward the root.
	FrameRequest
	// FrameResponse travels back down along the request's path.
	FrameResponse
	// FrameCallback travels down from the root.
	FrameCallback
)

// String ...
func (t FrameType) String() string {
	switch t {
	case FrameHello:
		return "Hello"
	case FrameRequest:
		return "Request"
	case FrameResponse:
		return "Response"
	case FrameCallback:
		return "Callback"
	default:
		return fmt.Sprintf("FrameType(%d)", uint8(t))
	}
}

// PeerKind says what sits at the dialing end of a link.
type PeerKind uint8

const (
	// PeerFederate is a federate ambassador.
	PeerFederate PeerKind = iota + 1
	// PeerNode is a child relay node.
	PeerNode
)

// String ...
func (k PeerKind) String() string {
	switch k {
	case PeerFederate:
		return "Federate"
	case PeerNode:
		return "Node"
	default:
		return "Unknown"
	}
}

// Hello introduces the dialing end of a link.
type Hello struct {
	Kind PeerKind `codec:"k"`
	Name string   `codec:"n"`
}

// Frame is the unit exchanged over a Link. Exactly one of the pointer fields
// matches Type.
type Frame struct {
	Type     FrameType
	Hello    *Hello
	Request  *message.Request
	Response *message.Response
	Callback *message.Callback
}

// NewRequestFrame ...
func NewRequestFrame(req *message.Request) *Frame {
	return &Frame{Type: FrameRequest, Request: req}
}

// NewResponseFrame ...
func NewResponseFrame(resp *message.Response) *Frame {
	return &Frame{Type: FrameResponse, Response: resp}
}

// NewCallbackFrame ...
func NewCallbackFrame(cb *message.Callback) *Frame {
	return &Frame{Type: FrameCallback, Callback: cb}
}

func newHandle() *codec.MsgpackHandle {
	return &codec.MsgpackHandle{}
}

// writeFrame writes the type byte followed by the msgpack body. It does not
// flush w.
func writeFrame(w *bufio.Writer, enc *codec.Encoder, f *Frame) error {
	if err := w.WriteByte(byte(f.Type)); err != nil {
		return err
	}
	switch f.Type {
	case FrameHello:
		return enc.Encode(f.Hello)
	case FrameRequest:
		return enc.Encode(f.Request)
	case FrameResponse:
		return enc.Encode(f.Response)
	case FrameCallback:
		return enc.Encode(f.Callback)
	default:
		return fmt.Errorf("cannot encode frame of type %s", f.Type)
	}
}

// readFrame decodes one frame. The decoder must read from r.
func readFrame(r *bufio.Reader, dec *codec.Decoder) (*Frame, error) {
	t, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	f := &Frame{Type: FrameType(t)}
	switch f.Type {
	case FrameHello:
		f.Hello = new(Hello)
		err = dec.Decode(f.Hello)
	case FrameRequest:
		f.Request = new(message.Request)
		err = dec.Decode(f.Request)
	case FrameResponse:
		f.Response = new(message.Response)
		err = dec.Decode(f.Response)
	case FrameCallback:
		f.Callback = new(message.Callback)
		err = dec.Decode(f.Callback)
	default:
		return nil, fmt.Errorf("unknown frame type %d", t)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
