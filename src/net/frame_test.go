package net

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/ugorji/go/codec"
)

func TestFrameConcatenated(t *testing.T) {
	var buf bytes.Buffer
	h := newHandle()

	w := bufio.NewWriter(&buf)
	enc := codec.NewEncoder(w, h)
	for i := uint64(1); i <= 3; i++ {
		if err := writeFrame(w, enc, NewRequestFrame(&message.Request{ID: i, Name: "fed"})); err != nil {
			t.Fatalf("err: %v", err)
		}
	}
	w.Flush()

	r := bufio.NewReader(&buf)
	dec := codec.NewDecoder(r, h)
	for i := uint64(1); i <= 3; i++ {
		f, err := readFrame(r, dec)
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if f.Type != FrameRequest || f.Request.ID != i || f.Request.Name != "fed" {
			t.Fatalf("bad frame %d: %#v", i, f.Request)
		}
	}
}

func TestFrameUnknownType(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader([]byte{0xff, 0x00}))
	if _, err := readFrame(r, codec.NewDecoder(r, newHandle())); err == nil {
		t.Fatalf("expected error for unknown frame type")
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := writeFrame(w, codec.NewEncoder(w, newHandle()), &Frame{Type: 0}); err == nil {
		t.Fatalf("expected error encoding a frame without type")
	}
}
