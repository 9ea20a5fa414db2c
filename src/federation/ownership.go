package federation

import (
	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
)

// ownership is the state of one instance attribute:
//
//	owned(F)      owner != 0, !divesting
//	divesting(F)  owner != 0, divesting
//	unowned       owner == 0
//
// acquirers queue up behind the owner. Ownership only moves through
// release, which hands the attribute to the first acquirer or leaves it
// unowned.
type ownership struct {
	owner     handle.Federate
	divesting bool
	acquirers []handle.Federate
}

func (o *ownership) acquiring(f handle.Federate) bool {
	for _, a := range o.acquirers {
		if a == f {
			return true
		}
	}
	return false
}

func (o *ownership) dropAcquirer(f handle.Federate) bool {
	for i, a := range o.acquirers {
		if a == f {
			o.acquirers = append(o.acquirers[:i], o.acquirers[i+1:]...)
			return true
		}
	}
	return false
}

// attrBatch groups attributes per federate so that one callback per
// federate carries all of them.
type attrBatch struct {
	order []handle.Federate
	sets  map[handle.Federate][]handle.Attribute
}

func newAttrBatch() *attrBatch {
	return &attrBatch{sets: make(map[handle.Federate][]handle.Attribute)}
}

func (b *attrBatch) add(f handle.Federate, a handle.Attribute) {
	if _, ok := b.sets[f]; !ok {
		b.order = append(b.order, f)
	}
	b.sets[f] = append(b.sets[f], a)
}

func (e *Execution) flushBatch(obj *object, b *attrBatch, kind message.Kind, tag []byte) {
	for _, f := range b.order {
		e.emit(&message.Callback{
			Kind:       kind,
			To:         []handle.Federate{f},
			Instance:   obj.handle,
			Attributes: b.sets[f],
			Tag:        tag,
		})
	}
}

// release takes a away from its owner and gives it to the first acquirer,
// recording the new owner in notify.
func (e *Execution) release(obj *object, a handle.Attribute, notify *attrBatch) {
	own := obj.attrs[a]
	own.owner = 0
	own.divesting = false
	if len(own.acquirers) == 0 {
		return
	}
	next := own.acquirers[0]
	own.acquirers = own.acquirers[1:]
	own.owner = next
	notify.add(next, a)
}

// ownedBy checks that m owns every attribute of attrs on obj.
func (e *Execution) ownedBy(m *member, obj *object, attrs []handle.Attribute) error {
	if _, err := e.checkObjectClass(obj.class, attrs); err != nil {
		return err
	}
	for _, a := range attrs {
		if obj.attrs[a].owner != m.handle {
			return cm.NewRTIErr(cm.AttributeNotOwned, "%s of %s", handle.Format(handle.AttributeKind, a), obj.name)
		}
	}
	return nil
}

// acquirable checks that m may ask for every attribute of attrs on obj.
func (e *Execution) acquirable(m *member, obj *object, attrs []handle.Attribute) error {
	if _, err := e.checkObjectClass(obj.class, attrs); err != nil {
		return err
	}
	for _, a := range attrs {
		own := obj.attrs[a]
		switch {
		case !e.publishes(m, obj.class, a):
			return cm.NewRTIErr(cm.AttributeNotPublished, "%s", handle.Format(handle.AttributeKind, a))
		case own.owner == m.handle:
			return cm.NewRTIErr(cm.AttributeAlreadyOwned, "%s", handle.Format(handle.AttributeKind, a))
		case own.acquiring(m.handle):
			return cm.NewRTIErr(cm.AttributeAlreadyBeingAcquired, "%s", handle.Format(handle.AttributeKind, a))
		}
	}
	return nil
}

func (e *Execution) unconditionalDivestiture(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if err := e.ownedBy(m, obj, req.Attributes); err != nil {
		return err
	}
	notify := newAttrBatch()
	for _, a := range req.Attributes {
		e.release(obj, a, notify)
	}
	e.flushBatch(obj, notify, message.AttributeOwnershipAcquisitionNotification, req.Tag)
	return nil
}

// negotiatedDivestiture marks the attributes as divesting. Pending
// acquirers make the owner confirm; otherwise publishers are asked to
// assume ownership.
func (e *Execution) negotiatedDivestiture(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if err := e.ownedBy(m, obj, req.Attributes); err != nil {
		return err
	}
	for _, a := range req.Attributes {
		if obj.attrs[a].divesting {
			return cm.NewRTIErr(cm.AttributeAlreadyBeingDivested, "%s", handle.Format(handle.AttributeKind, a))
		}
	}

	confirm := newAttrBatch()
	assume := newAttrBatch()
	for _, a := range req.Attributes {
		own := obj.attrs[a]
		own.divesting = true
		if len(own.acquirers) > 0 {
			confirm.add(m.handle, a)
			continue
		}
		for _, o := range sortedMembers(e.federates) {
			if o != m && e.publishes(o, obj.class, a) {
				assume.add(o.handle, a)
			}
		}
	}
	e.flushBatch(obj, confirm, message.RequestDivestitureConfirmation, req.Tag)
	e.flushBatch(obj, assume, message.RequestAttributeOwnershipAssumption, req.Tag)
	return nil
}

func (e *Execution) confirmDivestiture(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if err := e.ownedBy(m, obj, req.Attributes); err != nil {
		return err
	}
	for _, a := range req.Attributes {
		own := obj.attrs[a]
		if !own.divesting || len(own.acquirers) == 0 {
			return cm.NewRTIErr(cm.AttributeDivestitureWasNotRequested, "%s", handle.Format(handle.AttributeKind, a))
		}
	}
	notify := newAttrBatch()
	for _, a := range req.Attributes {
		e.release(obj, a, notify)
	}
	e.flushBatch(obj, notify, message.AttributeOwnershipAcquisitionNotification, req.Tag)
	return nil
}

func (e *Execution) cancelNegotiatedDivestiture(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if err := e.ownedBy(m, obj, req.Attributes); err != nil {
		return err
	}
	for _, a := range req.Attributes {
		if !obj.attrs[a].divesting {
			return cm.NewRTIErr(cm.AttributeDivestitureWasNotRequested, "%s", handle.Format(handle.AttributeKind, a))
		}
	}
	for _, a := range req.Attributes {
		obj.attrs[a].divesting = false
	}
	return nil
}

// acquisition takes unowned attributes at once and queues for the others,
// asking their owners to release or to confirm a divestiture in progress.
func (e *Execution) acquisition(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if err := e.acquirable(m, obj, req.Attributes); err != nil {
		return err
	}

	got := newAttrBatch()
	confirm := newAttrBatch()
	release := newAttrBatch()
	for _, a := range req.Attributes {
		own := obj.attrs[a]
		switch {
		case own.owner == 0:
			own.owner = m.handle
			got.add(m.handle, a)
		case own.divesting:
			own.acquirers = append(own.acquirers, m.handle)
			confirm.add(own.owner, a)
		default:
			own.acquirers = append(own.acquirers, m.handle)
			release.add(own.owner, a)
		}
	}
	e.flushBatch(obj, got, message.AttributeOwnershipAcquisitionNotification, req.Tag)
	e.flushBatch(obj, confirm, message.RequestDivestitureConfirmation, req.Tag)
	e.flushBatch(obj, release, message.RequestAttributeOwnershipRelease, req.Tag)
	return nil
}

// acquisitionIfAvailable never asks an owner to release; attributes that
// are neither unowned nor being divested are reported unavailable.
func (e *Execution) acquisitionIfAvailable(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if err := e.acquirable(m, obj, req.Attributes); err != nil {
		return err
	}

	got := newAttrBatch()
	confirm := newAttrBatch()
	unavailable := newAttrBatch()
	for _, a := range req.Attributes {
		own := obj.attrs[a]
		switch {
		case own.owner == 0:
			own.owner = m.handle
			got.add(m.handle, a)
		case own.divesting:
			own.acquirers = append(own.acquirers, m.handle)
			confirm.add(own.owner, a)
		default:
			unavailable.add(m.handle, a)
		}
	}
	e.flushBatch(obj, got, message.AttributeOwnershipAcquisitionNotification, req.Tag)
	e.flushBatch(obj, confirm, message.RequestDivestitureConfirmation, req.Tag)
	e.flushBatch(obj, unavailable, message.AttributeOwnershipUnavailable, req.Tag)
	return nil
}

// releaseResponse hands over the listed attributes that have an acquirer
// waiting and answers with those attributes.
func (e *Execution) releaseResponse(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if err := e.ownedBy(m, obj, req.Attributes); err != nil {
		return err
	}
	notify := newAttrBatch()
	for _, a := range req.Attributes {
		if len(obj.attrs[a].acquirers) == 0 {
			continue
		}
		e.release(obj, a, notify)
		resp.Attributes = append(resp.Attributes, a)
	}
	e.flushBatch(obj, notify, message.AttributeOwnershipAcquisitionNotification, req.Tag)
	return nil
}

func (e *Execution) cancelAcquisition(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if _, err := e.checkObjectClass(obj.class, req.Attributes); err != nil {
		return err
	}
	for _, a := range req.Attributes {
		if !obj.attrs[a].acquiring(m.handle) {
			return cm.NewRTIErr(cm.AttributeAcquisitionWasNotRequested, "%s", handle.Format(handle.AttributeKind, a))
		}
	}
	cancelled := newAttrBatch()
	for _, a := range req.Attributes {
		obj.attrs[a].dropAcquirer(m.handle)
		cancelled.add(m.handle, a)
	}
	e.flushBatch(obj, cancelled, message.ConfirmAttributeOwnershipAcquisitionCancellation, nil)
	return nil
}

// queryAttributeOwnership answers with one InformAttributeOwnership per
// attribute. Federate 0 in the callback means unowned.
func (e *Execution) queryAttributeOwnership(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if _, err := e.checkObjectClass(obj.class, req.Attributes); err != nil {
		return err
	}
	for _, a := range req.Attributes {
		e.emit(&message.Callback{
			Kind:       message.InformAttributeOwnership,
			To:         []handle.Federate{m.handle},
			Federate:   obj.attrs[a].owner,
			Instance:   obj.handle,
			Attributes: []handle.Attribute{a},
		})
	}
	return nil
}

func (e *Execution) isAttributeOwnedByFederate(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if len(req.Attributes) != 1 {
		return cm.NewRTIErr(cm.AttributeNotDefined, "expected exactly one attribute")
	}
	if _, err := e.checkObjectClass(obj.class, req.Attributes); err != nil {
		return err
	}
	resp.Owned = obj.attrs[req.Attributes[0]].owner == m.handle
	return nil
}

func (e *Execution) cancelAcquisitionsOf(m *member) {
	for _, obj := range e.objects {
		for _, own := range obj.attrs {
			own.dropAcquirer(m.handle)
		}
	}
}

// divestAllOf releases everything m still owns.
func (e *Execution) divestAllOf(m *member) {
	for _, obj := range e.sortedObjects() {
		notify := newAttrBatch()
		for _, a := range sortedAttributes(obj.classAttrs) {
			if obj.attrs[a].owner == m.handle {
				e.release(obj, a, notify)
			}
		}
		e.flushBatch(obj, notify, message.AttributeOwnershipAcquisitionNotification, nil)
	}
}
