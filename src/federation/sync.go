package federation

import (
	"sort"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/sirupsen/logrus"
)

// syncPoint is a registered synchronization label. whole is set when the
// point covers the entire federation, in which case joining federates are
// added to it.
type syncPoint struct {
	label    string
	tag      []byte
	whole    bool
	set      map[handle.Federate]bool
	achieved map[handle.Federate]bool
}

func (e *Execution) registerSyncPoint(m *member, req *message.Request, resp *message.Response) error {
	fail := func(reason string) error {
		e.emit(&message.Callback{
			Kind: message.SynchronizationPointRegistrationFailed,
			To:   []handle.Federate{m.handle},
			Name: req.Name,
			Text: reason,
		})
		return nil
	}

	if _, ok := e.syncPoints[req.Name]; ok {
		return fail("label not unique")
	}

	sp := &syncPoint{
		label:    req.Name,
		tag:      req.Tag,
		whole:    len(req.Federates) == 0,
		set:      make(map[handle.Federate]bool),
		achieved: make(map[handle.Federate]bool),
	}
	if sp.whole {
		for f := range e.federates {
			sp.set[f] = true
		}
	} else {
		for _, f := range req.Federates {
			if _, ok := e.federates[f]; !ok {
				return fail("synchronization set member not joined")
			}
			sp.set[f] = true
		}
	}
	e.syncPoints[req.Name] = sp

	e.emit(&message.Callback{
		Kind: message.SynchronizationPointRegistrationSucceeded,
		To:   []handle.Federate{m.handle},
		Name: req.Name,
	})
	e.emit(&message.Callback{
		Kind: message.AnnounceSynchronizationPoint,
		To:   sortedFederates(sp.set),
		Name: sp.label,
		Tag:  sp.tag,
	})

	e.logger.WithFields(logrus.Fields{
		"label":    sp.label,
		"federate": m.handle,
		"members":  len(sp.set),
	}).Debug("Synchronization point registered")

	return nil
}

func (e *Execution) syncPointAchieved(m *member, req *message.Request, resp *message.Response) error {
	sp, ok := e.syncPoints[req.Name]
	if !ok || !sp.set[m.handle] {
		return cm.NewRTIErr(cm.SynchronizationPointLabelNotAnnounced, "%q", req.Name)
	}
	sp.achieved[m.handle] = true
	e.checkSynchronized(sp)
	return nil
}

// checkSynchronized completes sp once every federate of its set achieved
// it.
func (e *Execution) checkSynchronized(sp *syncPoint) {
	for f := range sp.set {
		if !sp.achieved[f] {
			return
		}
	}
	delete(e.syncPoints, sp.label)
	e.emit(&message.Callback{
		Kind: message.FederationSynchronized,
		To:   sortedFederates(sp.set),
		Name: sp.label,
	})
	e.logger.WithField("label", sp.label).Debug("Federation synchronized")
}

func (e *Execution) joinSyncPoints(m *member) {
	for _, label := range e.sortedLabels() {
		sp := e.syncPoints[label]
		if !sp.whole {
			continue
		}
		sp.set[m.handle] = true
		e.emit(&message.Callback{
			Kind: message.AnnounceSynchronizationPoint,
			To:   []handle.Federate{m.handle},
			Name: sp.label,
			Tag:  sp.tag,
		})
	}
}

// leaveSyncPoints drops m from every point, which may complete some.
func (e *Execution) leaveSyncPoints(m *member) {
	for _, label := range e.sortedLabels() {
		sp := e.syncPoints[label]
		if !sp.set[m.handle] {
			continue
		}
		delete(sp.set, m.handle)
		delete(sp.achieved, m.handle)
		if len(sp.set) == 0 {
			delete(e.syncPoints, label)
			continue
		}
		e.checkSynchronized(sp)
	}
}

func (e *Execution) sortedLabels() []string {
	res := make([]string, 0, len(e.syncPoints))
	for l := range e.syncPoints {
		res = append(res, l)
	}
	sort.Strings(res)
	return res
}
