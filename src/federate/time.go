package federate

import (
	"context"

	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
)

// EnableTimeRegulation starts regulating with the given lookahead. The
// TimeRegulationEnabled callback carries the time the federate starts at.
func (a *Ambassador) EnableTimeRegulation(ctx context.Context, lookahead logicaltime.Interval) error {
	return a.do(ctx, &message.Request{
		Op:        message.OpEnableTimeRegulation,
		Lookahead: lookahead,
	})
}

// DisableTimeRegulation ...
func (a *Ambassador) DisableTimeRegulation(ctx context.Context) error {
	return a.do(ctx, &message.Request{Op: message.OpDisableTimeRegulation})
}

// EnableTimeConstrained asks to become constrained. The TimeConstrainedEnabled
// callback follows once no regulating federate can send in the past of the
// federate's current time.
func (a *Ambassador) EnableTimeConstrained(ctx context.Context) error {
	return a.do(ctx, &message.Request{Op: message.OpEnableTimeConstrained})
}

// DisableTimeConstrained ...
func (a *Ambassador) DisableTimeConstrained(ctx context.Context) error {
	return a.do(ctx, &message.Request{Op: message.OpDisableTimeConstrained})
}

func (a *Ambassador) advance(ctx context.Context, op message.Op, t logicaltime.Time) error {
	return a.do(ctx, &message.Request{
		Op:          op,
		Time:        t,
		Timestamped: true,
	})
}

// TimeAdvanceRequest asks to advance to t. The grant arrives as a
// TimeAdvanceGrant callback.
func (a *Ambassador) TimeAdvanceRequest(ctx context.Context, t logicaltime.Time) error {
	return a.advance(ctx, message.OpTimeAdvanceRequest, t)
}

// TimeAdvanceRequestAvailable is TimeAdvanceRequest, except that messages
// stamped exactly t may still arrive after the grant.
func (a *Ambassador) TimeAdvanceRequestAvailable(ctx context.Context, t logicaltime.Time) error {
	return a.advance(ctx, message.OpTimeAdvanceRequestAvailable, t)
}

// NextMessageRequest advances to the earlier of t and the next timestamp
// order message.
func (a *Ambassador) NextMessageRequest(ctx context.Context, t logicaltime.Time) error {
	return a.advance(ctx, message.OpNextMessageRequest, t)
}

// NextMessageRequestAvailable ...
func (a *Ambassador) NextMessageRequestAvailable(ctx context.Context, t logicaltime.Time) error {
	return a.advance(ctx, message.OpNextMessageRequestAvailable, t)
}

// FlushQueueRequest delivers every queued message and advances toward t.
func (a *Ambassador) FlushQueueRequest(ctx context.Context, t logicaltime.Time) error {
	return a.advance(ctx, message.OpFlushQueueRequest, t)
}

// QueryLogicalTime asks the execution for the federate's time and refreshes
// the value returned by LogicalTime.
func (a *Ambassador) QueryLogicalTime(ctx context.Context) (logicaltime.Time, error) {
	resp, err := a.memberCall(ctx, &message.Request{Op: message.OpQueryLogicalTime})
	if err != nil {
		return logicaltime.Time{}, err
	}
	return resp.Time, nil
}

// QueryGALT asks for the greatest available logical time. valid is false
// while no federate regulates.
func (a *Ambassador) QueryGALT(ctx context.Context) (t logicaltime.Time, valid bool, err error) {
	resp, err := a.memberCall(ctx, &message.Request{Op: message.OpQueryGALT})
	if err != nil {
		return logicaltime.Time{}, false, err
	}
	return resp.Time, resp.Valid, nil
}

// QueryLITS returns the least timestamp the federate could still receive in
// timestamp order.
func (a *Ambassador) QueryLITS(ctx context.Context) (t logicaltime.Time, valid bool, err error) {
	resp, err := a.memberCall(ctx, &message.Request{Op: message.OpQueryLITS})
	if err != nil {
		return logicaltime.Time{}, false, err
	}
	return resp.Time, resp.Valid, nil
}

// ModifyLookahead ...
func (a *Ambassador) ModifyLookahead(ctx context.Context, lookahead logicaltime.Interval) error {
	return a.do(ctx, &message.Request{
		Op:        message.OpModifyLookahead,
		Lookahead: lookahead,
	})
}

// QueryLookahead ...
func (a *Ambassador) QueryLookahead(ctx context.Context) (logicaltime.Interval, error) {
	resp, err := a.memberCall(ctx, &message.Request{Op: message.OpQueryLookahead})
	if err != nil {
		return logicaltime.Interval{}, err
	}
	return resp.Lookahead, nil
}

// Retract withdraws a timestamp order send. Receivers that already got the
// message are sent a RequestRetraction callback.
func (a *Ambassador) Retract(ctx context.Context, r handle.Retraction) error {
	return a.do(ctx, &message.Request{
		Op:         message.OpRetract,
		Retraction: r,
	})
}
