package message

import (
	"github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
)

// FederationInfo describes one live federation execution.
type FederationInfo struct {
	Name      string            `codec:"n" json:"name" yaml:"name"`
	Handle    handle.Federation `codec:"h" json:"handle" yaml:"handle"`
	Time      string            `codec:"t" json:"time" yaml:"time"`
	Federates int               `codec:"f" json:"federates" yaml:"federates"`
}

// Response answers the Request with the same ID.
type Response struct {
	ID      uint64         `codec:"id"`
	Err     common.ErrType `codec:"e,omitempty"`
	ErrText string         `codec:"et,omitempty"`

	Federation  handle.Federation     `codec:"fx,omitempty"`
	Federate    handle.Federate       `codec:"fd,omitempty"`
	Name        string                `codec:"n,omitempty"`
	Model       *fom.Model            `codec:"m,omitempty"`
	Instance    handle.ObjectInstance `codec:"oi,omitempty"`
	Attributes  []handle.Attribute    `codec:"as,omitempty"`
	Owned       bool                  `codec:"ow,omitempty"`
	Retraction  handle.Retraction     `codec:"rh,omitempty"`
	Time        logicaltime.Time      `codec:"t"`
	Valid       bool                  `codec:"v,omitempty"`
	Lookahead   logicaltime.Interval  `codec:"la"`
	Federations []FederationInfo      `codec:"fl,omitempty"`
	Region      handle.Region         `codec:"rg,omitempty"`
}

// NewResponse builds the response to req, carrying err if not nil.
func NewResponse(req *Request, err error) *Response {
	code, text := common.ErrCode(err)
	return &Response{
		ID:         req.ID,
		Err:        code,
		ErrText:    text,
		Federation: req.Federation,
		Federate:   req.Federate,
	}
}

// Error rebuilds the error carried by the response, if any.
func (r *Response) Error() error {
	if r.Err == common.NoError {
		return nil
	}
	return common.NewRTIErr(r.Err, "%s", r.ErrText)
}

// Copy returns a shallow copy.
func (r *Response) Copy() *Response {
	c := *r
	return &c
}
