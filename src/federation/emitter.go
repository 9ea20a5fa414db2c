package federation

import (
	"github.com/mosaicnetworks/rtinet/src/message"
)

// ReplyFunc delivers the response to one request.
type ReplyFunc func(*message.Response)

// Emitter delivers callbacks to the federates listed in their To set. Emit
// must not block; it is called from execution goroutines.
type Emitter interface {
	Emit(cb *message.Callback)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(cb *message.Callback)

// Emit ...
func (f EmitterFunc) Emit(cb *message.Callback) {
	f(cb)
}
