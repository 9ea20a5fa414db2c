package federation

import (
	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/sirupsen/logrus"
)

// timeState is the time management state of a federate. A federate is
// either granted (not advancing) or has exactly one pending advance.
type timeState struct {
	regulating         bool
	constrained        bool
	constrainedPending bool

	time      logicaltime.Time
	lookahead logicaltime.Interval
	// floor keeps the bound from moving back after the lookahead shrinks.
	floor logicaltime.Time

	advancing bool
	advance   message.Op
	target    logicaltime.Time

	queue       tsoQueue
	retractions []handle.Retraction
}

func newTimeState(d logicaltime.Domain) timeState {
	return timeState{
		time:      d.Initial(),
		lookahead: d.Zero(),
		floor:     d.Initial(),
		target:    d.Initial(),
	}
}

// bound is the earliest timestamp m may still send in timestamp order.
func (m *member) bound() logicaltime.Time {
	base := m.time
	if m.advancing {
		base = m.target
		if m.advance == message.OpNextMessageRequest || m.advance == message.OpNextMessageRequestAvailable {
			if q, ok := m.queue.peek(); ok && q.time.Less(base) {
				base = q.time
			}
		}
	}
	return logicaltime.Max(base.Add(m.lookahead), m.floor)
}

// retraction tracks one timestamp-order send until it can no longer be
// retracted. A final send, such as an instance deletion, already changed
// the directory and is never withdrawn.
type retraction struct {
	handle    handle.Retraction
	sender    handle.Federate
	time      logicaltime.Time
	final     bool
	queued    map[handle.Federate]bool
	delivered map[handle.Federate]bool
}

// delivery is one callback for one receiver.
type delivery struct {
	to handle.Federate
	cb *message.Callback
}

func (e *Execution) refreshBound(m *member) {
	if m.regulating {
		e.galt.Update(m.handle, m.bound())
	}
}

// checkSendTime rejects timestamps a regulating federate has promised not
// to use.
func (e *Execution) checkSendTime(m *member, req *message.Request) error {
	if !req.Timestamped {
		return nil
	}
	if err := e.domain.CheckTime(req.Time); err != nil {
		return cm.NewRTIErr(cm.InvalidLogicalTime, "%v", err)
	}
	if m.regulating {
		if b := m.bound(); req.Time.Less(b) {
			return cm.NewRTIErr(cm.InvalidLogicalTime, "%s is before %s, logical time plus lookahead", req.Time, b)
		}
	}
	return nil
}

// send hands each delivery to its receiver. Timestamp order applies when the
// sender is regulating and asked for it; constrained receivers then queue
// the message, everybody else gets it in receive order. The returned
// retraction handle is 0 for receive-order sends.
func (e *Execution) send(sender *member, deliveries []delivery, timestamped, preferTSO bool, t logicaltime.Time) handle.Retraction {
	tso := timestamped && preferTSO && sender.regulating

	var r *retraction
	if tso {
		r = &retraction{
			handle:    e.retractionHandles.Next(),
			sender:    sender.handle,
			time:      t,
			queued:    make(map[handle.Federate]bool),
			delivered: make(map[handle.Federate]bool),
		}
		e.retractions[r.handle] = r
		sender.retractions = append(sender.retractions, r.handle)
	}

	for _, d := range deliveries {
		rcv, ok := e.federates[d.to]
		if !ok {
			continue
		}
		cb := d.cb
		cb.To = []handle.Federate{d.to}
		cb.Timestamped = timestamped
		if timestamped {
			cb.Time = t
		}
		cb.SentOrder = message.ReceiveOrder
		if tso {
			cb.SentOrder = message.TimestampOrder
			cb.Retraction = r.handle
		}

		if tso && rcv.constrained {
			cb.ReceivedOrder = message.TimestampOrder
			e.seq++
			rcv.queue.push(&queued{time: t, seq: e.seq, retraction: r.handle, cb: cb})
			r.queued[d.to] = true
			if rcv.advancing {
				e.refreshBound(rcv)
			}
			continue
		}

		cb.ReceivedOrder = message.ReceiveOrder
		e.emit(cb)
		if r != nil {
			r.delivered[d.to] = true
		}
	}

	if r == nil {
		return 0
	}
	return r.handle
}

// settle grants every advance and constrained enable that GALT allows,
// until nothing changes, then publishes GALT.
func (e *Execution) settle() {
	for progressed := true; progressed; {
		progressed = false
		galt, bounded := e.galt.Min()
		for _, m := range sortedMembers(e.waiting) {
			if m.constrainedPending && (!bounded || m.time.LessEqual(galt)) {
				m.constrainedPending = false
				m.constrained = true
				e.emit(&message.Callback{
					Kind: message.TimeConstrainedEnabled,
					To:   []handle.Federate{m.handle},
					Time: m.time,
				})
				progressed = true
			}
			if m.advancing && e.tryGrant(m, galt, bounded) {
				progressed = true
			}
			if !m.advancing && !m.constrainedPending {
				delete(e.waiting, m.handle)
			}
			if progressed {
				break
			}
		}
	}
	e.galt.Publish()
}

func (e *Execution) tryGrant(m *member, galt logicaltime.Time, bounded bool) bool {
	allowed := func(t logicaltime.Time) bool {
		return !m.constrained || !bounded || t.LessEqual(galt)
	}

	switch m.advance {
	case message.OpFlushQueueRequest:
		e.deliverQueued(m, nil)
		e.grant(m, m.target)
		return true
	case message.OpNextMessageRequest, message.OpNextMessageRequestAvailable:
		next := m.target
		if q, ok := m.queue.peek(); ok && q.time.Less(next) {
			next = q.time
		}
		if !allowed(next) {
			return false
		}
		e.deliverQueued(m, &next)
		e.grant(m, next)
		return true
	default:
		if !allowed(m.target) {
			return false
		}
		target := m.target
		e.deliverQueued(m, &target)
		e.grant(m, target)
		return true
	}
}

// deliverQueued emits queued messages up to and including upTo, or all of
// them when upTo is nil.
func (e *Execution) deliverQueued(m *member, upTo *logicaltime.Time) {
	for {
		q, ok := m.queue.peek()
		if !ok || (upTo != nil && upTo.Less(q.time)) {
			return
		}
		m.queue.pop()
		e.emit(q.cb)
		if r, ok := e.retractions[q.retraction]; ok {
			delete(r.queued, m.handle)
			r.delivered[m.handle] = true
		}
	}
}

func (e *Execution) grant(m *member, t logicaltime.Time) {
	m.time = t
	m.advancing = false
	e.refreshBound(m)
	e.pruneRetractions(m)

	e.emit(&message.Callback{
		Kind: message.TimeAdvanceGrant,
		To:   []handle.Federate{m.handle},
		Time: t,
	})

	e.logger.WithFields(logrus.Fields{
		"federate": m.handle,
		"time":     t,
	}).Debug("Time advance granted")
}

// pruneRetractions forgets sends of m stamped before its current time.
func (e *Execution) pruneRetractions(m *member) {
	kept := m.retractions[:0]
	for _, h := range m.retractions {
		r, ok := e.retractions[h]
		if !ok {
			continue
		}
		if r.time.Less(m.time) {
			delete(e.retractions, h)
			continue
		}
		kept = append(kept, h)
	}
	m.retractions = kept
}

func (e *Execution) retireTimeStateOf(m *member) {
	e.galt.Remove(m.handle)
	for _, q := range m.queue.drain() {
		if r, ok := e.retractions[q.retraction]; ok {
			delete(r.queued, m.handle)
		}
	}
	for _, h := range m.retractions {
		delete(e.retractions, h)
	}
	m.retractions = nil
	for _, r := range e.retractions {
		delete(r.delivered, m.handle)
	}
}

func (e *Execution) enableTimeRegulation(m *member, req *message.Request, resp *message.Response) error {
	if m.regulating {
		return cm.NewRTIErr(cm.TimeRegulationAlreadyEnabled, "")
	}
	if m.advancing {
		return cm.NewRTIErr(cm.InTimeAdvancingState, "")
	}
	if err := e.domain.CheckInterval(req.Lookahead); err != nil {
		return cm.NewRTIErr(cm.InvalidLookahead, "%v", err)
	}

	// Never promise less than a constrained federate was already granted.
	t := m.time
	for _, o := range e.federates {
		if o != m && o.constrained {
			t = logicaltime.Max(t, o.time)
		}
	}

	m.time = t
	m.lookahead = req.Lookahead
	m.floor = e.domain.Initial()
	m.regulating = true
	e.refreshBound(m)

	e.emit(&message.Callback{
		Kind: message.TimeRegulationEnabled,
		To:   []handle.Federate{m.handle},
		Time: t,
	})
	return nil
}

func (e *Execution) disableTimeRegulation(m *member, req *message.Request, resp *message.Response) error {
	if !m.regulating {
		return cm.NewRTIErr(cm.TimeRegulationIsNotEnabled, "")
	}
	if m.advancing {
		return cm.NewRTIErr(cm.InTimeAdvancingState, "")
	}
	m.regulating = false
	e.galt.Remove(m.handle)
	return nil
}

func (e *Execution) enableTimeConstrained(m *member, req *message.Request, resp *message.Response) error {
	if m.constrained {
		return cm.NewRTIErr(cm.TimeConstrainedAlreadyEnabled, "")
	}
	if m.constrainedPending {
		return cm.NewRTIErr(cm.RequestForTimeConstrainedPending, "")
	}
	if m.advancing {
		return cm.NewRTIErr(cm.InTimeAdvancingState, "")
	}
	m.constrainedPending = true
	e.waiting[m.handle] = m
	return nil
}

func (e *Execution) disableTimeConstrained(m *member, req *message.Request, resp *message.Response) error {
	if !m.constrained {
		return cm.NewRTIErr(cm.TimeConstrainedIsNotEnabled, "")
	}
	if m.advancing {
		return cm.NewRTIErr(cm.InTimeAdvancingState, "")
	}
	m.constrained = false
	for _, q := range m.queue.drain() {
		q.cb.ReceivedOrder = message.ReceiveOrder
		e.emit(q.cb)
		if r, ok := e.retractions[q.retraction]; ok {
			delete(r.queued, m.handle)
			r.delivered[m.handle] = true
		}
	}
	return nil
}

// timeAdvance handles TAR, TARA, NMR, NMRA and FQR. The grant comes later,
// from settle.
func (e *Execution) timeAdvance(m *member, req *message.Request, resp *message.Response) error {
	if m.advancing {
		return cm.NewRTIErr(cm.InTimeAdvancingState, "%s pending", m.advance)
	}
	if m.constrainedPending {
		return cm.NewRTIErr(cm.RequestForTimeConstrainedPending, "")
	}
	if err := e.domain.CheckTime(req.Time); err != nil {
		return cm.NewRTIErr(cm.InvalidLogicalTime, "%v", err)
	}
	if req.Time.Less(m.time) {
		return cm.NewRTIErr(cm.InvalidLogicalTime, "%s is before the current time %s", req.Time, m.time)
	}

	m.advancing = true
	m.advance = req.Op
	m.target = req.Time
	e.waiting[m.handle] = m
	e.refreshBound(m)
	return nil
}

func (e *Execution) queryLogicalTime(m *member, req *message.Request, resp *message.Response) error {
	resp.Time = m.time
	resp.Valid = true
	return nil
}

// queryLITS returns the least timestamp m could still receive in timestamp
// order.
func (e *Execution) queryLITS(m *member, req *message.Request, resp *message.Response) error {
	galt, bounded := e.galt.Min()
	q, queued := m.queue.peek()
	switch {
	case bounded && queued:
		resp.Time, resp.Valid = logicaltime.Min(galt, q.time), true
	case bounded:
		resp.Time, resp.Valid = galt, true
	case queued:
		resp.Time, resp.Valid = q.time, true
	}
	return nil
}

func (e *Execution) modifyLookahead(m *member, req *message.Request, resp *message.Response) error {
	if !m.regulating {
		return cm.NewRTIErr(cm.TimeRegulationIsNotEnabled, "")
	}
	if m.advancing {
		return cm.NewRTIErr(cm.InTimeAdvancingState, "")
	}
	if err := e.domain.CheckInterval(req.Lookahead); err != nil {
		return cm.NewRTIErr(cm.InvalidLookahead, "%v", err)
	}
	m.floor = m.bound()
	m.lookahead = req.Lookahead
	e.refreshBound(m)
	return nil
}

func (e *Execution) queryLookahead(m *member, req *message.Request, resp *message.Response) error {
	if !m.regulating {
		return cm.NewRTIErr(cm.TimeRegulationIsNotEnabled, "")
	}
	resp.Lookahead = m.lookahead
	return nil
}

// retract withdraws a timestamp-order send. Copies still queued are
// dropped; receivers that already got it are asked to retract it.
func (e *Execution) retract(m *member, req *message.Request, resp *message.Response) error {
	r, ok := e.retractions[req.Retraction]
	if !ok && e.retractionHandles.Valid(req.Retraction) {
		// Pruned once its sender advanced past it.
		return cm.NewRTIErr(cm.MessageCanNoLongerBeRetracted, "%s", handle.Format(handle.RetractionKind, req.Retraction))
	}
	if !ok || r.sender != m.handle {
		return cm.NewRTIErr(cm.InvalidRetractionHandle, "%s", handle.Format(handle.RetractionKind, req.Retraction))
	}
	if r.time.Less(m.time) {
		return cm.NewRTIErr(cm.MessageCanNoLongerBeRetracted, "stamped %s, now %s", r.time, m.time)
	}
	if r.final {
		return cm.NewRTIErr(cm.MessageCanNoLongerBeRetracted, "%s removed an object instance", handle.Format(handle.RetractionKind, r.handle))
	}

	for f := range r.queued {
		if rcv, ok := e.federates[f]; ok {
			rcv.queue.remove(r.handle)
			if rcv.advancing {
				e.refreshBound(rcv)
			}
		}
	}
	if len(r.delivered) > 0 {
		e.emit(&message.Callback{
			Kind:       message.RequestRetraction,
			To:         sortedFederates(r.delivered),
			Federate:   m.handle,
			Retraction: r.handle,
		})
	}

	delete(e.retractions, r.handle)
	kept := m.retractions[:0]
	for _, h := range m.retractions {
		if h != r.handle {
			kept = append(kept, h)
		}
	}
	m.retractions = kept
	return nil
}
