package message

import (
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
)

// Request is a federate call on its way to the federation owner. ID is
// unique per link; relay nodes rewrite it hop by hop.
type Request struct {
	ID         uint64            `codec:"id"`
	Op         Op                `codec:"op"`
	Federation handle.Federation `codec:"fx,omitempty"`
	Federate   handle.Federate   `codec:"fd,omitempty"`

	// Name is the federation name for lifecycle operations and join, the
	// object instance name, or a synchronization label.
	Name         string       `codec:"n,omitempty"`
	FederateName string       `codec:"fn,omitempty"`
	FederateType string       `codec:"ft,omitempty"`
	Model        *fom.Model   `codec:"m,omitempty"`
	ResignAction ResignAction `codec:"ra,omitempty"`

	ObjectClass handle.ObjectClass          `codec:"oc,omitempty"`
	Instance    handle.ObjectInstance       `codec:"oi,omitempty"`
	Attributes  []handle.Attribute          `codec:"as,omitempty"`
	Values      map[handle.Attribute][]byte `codec:"av,omitempty"`
	Interaction handle.InteractionClass     `codec:"ic,omitempty"`
	Parameters  map[handle.Parameter][]byte `codec:"pv,omitempty"`
	Federates   []handle.Federate           `codec:"fs,omitempty"`
	Tag         []byte                      `codec:"tg,omitempty"`

	// Timestamped marks calls that carry Time, such as a timestamp-order
	// update or a time advance request.
	Timestamped bool                 `codec:"ts,omitempty"`
	Time        logicaltime.Time     `codec:"t"`
	Lookahead   logicaltime.Interval `codec:"la"`
	Retraction  handle.Retraction    `codec:"rh,omitempty"`

	// Regions scope a subscription, registration or interaction. None means
	// the default region, which overlaps every other.
	Region     handle.Region              `codec:"rg,omitempty"`
	Regions    []handle.Region            `codec:"rs,omitempty"`
	Dimensions []handle.Dimension         `codec:"ds,omitempty"`
	Ranges     map[handle.Dimension]Range `codec:"rr,omitempty"`
}

// Range is the half-open interval [Lower, Upper) of a region along one
// dimension.
type Range struct {
	Lower uint64 `codec:"l"`
	Upper uint64 `codec:"u"`
}

// Overlaps ...
func (r Range) Overlaps(o Range) bool {
	return r.Lower < o.Upper && o.Lower < r.Upper
}

// Copy returns a shallow copy. Relay nodes copy before rewriting ID.
func (r *Request) Copy() *Request {
	c := *r
	return &c
}
