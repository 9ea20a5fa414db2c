package federation

import (
	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
)

func (e *Execution) checkObjectClass(c handle.ObjectClass, attrs []handle.Attribute) (*fom.ObjectClassInfo, error) {
	info, ok := e.index.ObjectClass(c)
	if !ok {
		return nil, cm.NewRTIErr(cm.ObjectClassNotDefined, "%s", handle.Format(handle.ObjectClassKind, c))
	}
	for _, a := range attrs {
		if !info.Attributes[a] {
			return nil, cm.NewRTIErr(cm.AttributeNotDefined, "%s in %s", handle.Format(handle.AttributeKind, a), info.Name)
		}
	}
	return info, nil
}

func (e *Execution) checkInteractionClass(c handle.InteractionClass) (*fom.InteractionClassInfo, error) {
	info, ok := e.index.InteractionClass(c)
	if !ok {
		return nil, cm.NewRTIErr(cm.InteractionClassNotDefined, "%s", handle.Format(handle.InteractionClassKind, c))
	}
	return info, nil
}

// publishes reports whether m publishes attribute a at class c. The delete
// privilege comes with publishing the class at all.
func (e *Execution) publishes(m *member, c handle.ObjectClass, a handle.Attribute) bool {
	attrs, ok := m.publishedObjects[c]
	if !ok {
		return false
	}
	return attrs[a] || a == e.index.PrivilegeToDeleteOf(c)
}

// knownClass returns the most specific class, c itself or an ancestor, that
// m subscribes to.
func (e *Execution) knownClass(m *member, c handle.ObjectClass) (handle.ObjectClass, bool) {
	for _, a := range e.index.ObjectAncestors(c) {
		if _, ok := m.subscribedObjects[a]; ok {
			return a, true
		}
	}
	return 0, false
}

// visible is knownClass further limited by the subscription regions of
// the known class.
func (e *Execution) visible(m *member, obj *object) (handle.ObjectClass, bool) {
	known, ok := e.knownClass(m, obj.class)
	if !ok || !e.overlap(obj.regions, m.objectRegions[known]) {
		return 0, false
	}
	return known, true
}

// receivedInteractionClass is knownClass for interactions.
func (e *Execution) receivedInteractionClass(m *member, c handle.InteractionClass) (handle.InteractionClass, bool) {
	for _, a := range e.index.InteractionAncestors(c) {
		if m.subscribedInteractions[a] {
			return a, true
		}
	}
	return 0, false
}

func (e *Execution) publishObjectClassAttributes(m *member, req *message.Request, resp *message.Response) error {
	if _, err := e.checkObjectClass(req.ObjectClass, req.Attributes); err != nil {
		return err
	}
	attrs, ok := m.publishedObjects[req.ObjectClass]
	if !ok {
		attrs = make(map[handle.Attribute]bool)
		m.publishedObjects[req.ObjectClass] = attrs
	}
	for _, a := range req.Attributes {
		attrs[a] = true
	}
	return nil
}

// unpublishObjectClassAttributes drops the listed attributes, or the whole
// class when none are listed. Attributes m owns on instances of that class
// and no longer publishes are divested unconditionally.
func (e *Execution) unpublishObjectClassAttributes(m *member, req *message.Request, resp *message.Response) error {
	if _, err := e.checkObjectClass(req.ObjectClass, req.Attributes); err != nil {
		return err
	}
	attrs, ok := m.publishedObjects[req.ObjectClass]
	if !ok {
		return nil
	}
	for _, a := range req.Attributes {
		delete(attrs, a)
	}
	if len(req.Attributes) == 0 || len(attrs) == 0 {
		delete(m.publishedObjects, req.ObjectClass)
	}

	for _, obj := range e.sortedObjects() {
		if obj.class != req.ObjectClass {
			continue
		}
		b := newAttrBatch()
		for _, a := range sortedAttributes(obj.classAttrs) {
			own := obj.attrs[a]
			if own.owner == m.handle && !e.publishes(m, obj.class, a) {
				e.release(obj, a, b)
			}
		}
		e.flushBatch(obj, b, message.AttributeOwnershipAcquisitionNotification, nil)
	}
	return nil
}

// subscribeObjectClassAttributes adds attributes to m's subscription. With
// regions the subscription is limited to them, unless the class is already
// subscribed without any.
func (e *Execution) subscribeObjectClassAttributes(m *member, req *message.Request, resp *message.Response) error {
	if _, err := e.checkObjectClass(req.ObjectClass, req.Attributes); err != nil {
		return err
	}
	if err := e.ownRegions(m, req.Regions); err != nil {
		return err
	}
	attrs, ok := m.subscribedObjects[req.ObjectClass]
	if !ok {
		attrs = make(map[handle.Attribute]bool)
		m.subscribedObjects[req.ObjectClass] = attrs
	}
	for _, a := range req.Attributes {
		attrs[a] = true
	}
	switch rs, limited := m.objectRegions[req.ObjectClass]; {
	case len(req.Regions) == 0:
		delete(m.objectRegions, req.ObjectClass)
	case !ok || limited:
		m.objectRegions[req.ObjectClass] = addRegions(rs, req.Regions)
	}

	for _, obj := range e.sortedObjects() {
		e.discover(m, obj)
	}
	return nil
}

// unsubscribeObjectClassAttributes drops the listed attributes, or the whole
// class when none are listed. With regions it drops those regions instead,
// and the class once none is left. Instances that stop being visible are
// removed.
func (e *Execution) unsubscribeObjectClassAttributes(m *member, req *message.Request, resp *message.Response) error {
	if _, err := e.checkObjectClass(req.ObjectClass, req.Attributes); err != nil {
		return err
	}
	if err := e.ownRegions(m, req.Regions); err != nil {
		return err
	}
	attrs, ok := m.subscribedObjects[req.ObjectClass]
	if !ok {
		return nil
	}
	if len(req.Regions) > 0 {
		rs, limited := m.objectRegions[req.ObjectClass]
		if !limited {
			return nil
		}
		if rs = removeRegions(rs, req.Regions); len(rs) > 0 {
			m.objectRegions[req.ObjectClass] = rs
		} else {
			delete(m.objectRegions, req.ObjectClass)
			delete(m.subscribedObjects, req.ObjectClass)
		}
	} else {
		for _, a := range req.Attributes {
			delete(attrs, a)
		}
		if len(req.Attributes) == 0 || len(attrs) == 0 {
			delete(m.subscribedObjects, req.ObjectClass)
			delete(m.objectRegions, req.ObjectClass)
		}
	}

	for _, obj := range e.sortedObjects() {
		if _, discovered := obj.discovered[m.handle]; !discovered {
			continue
		}
		if _, visible := e.visible(m, obj); visible {
			continue
		}
		delete(obj.discovered, m.handle)
		e.emit(&message.Callback{
			Kind:     message.RemoveObjectInstance,
			To:       []handle.Federate{m.handle},
			Instance: obj.handle,
			Name:     obj.name,
		})
	}
	return nil
}

func (e *Execution) publishInteractionClass(m *member, req *message.Request, resp *message.Response) error {
	if _, err := e.checkInteractionClass(req.Interaction); err != nil {
		return err
	}
	m.publishedInteractions[req.Interaction] = true
	return nil
}

func (e *Execution) unpublishInteractionClass(m *member, req *message.Request, resp *message.Response) error {
	if _, err := e.checkInteractionClass(req.Interaction); err != nil {
		return err
	}
	delete(m.publishedInteractions, req.Interaction)
	return nil
}

// subscribeInteractionClass handles regions the way
// subscribeObjectClassAttributes does.
func (e *Execution) subscribeInteractionClass(m *member, req *message.Request, resp *message.Response) error {
	if _, err := e.checkInteractionClass(req.Interaction); err != nil {
		return err
	}
	if err := e.ownRegions(m, req.Regions); err != nil {
		return err
	}
	already := m.subscribedInteractions[req.Interaction]
	m.subscribedInteractions[req.Interaction] = true
	switch rs, limited := m.interactionRegions[req.Interaction]; {
	case len(req.Regions) == 0:
		delete(m.interactionRegions, req.Interaction)
	case !already || limited:
		m.interactionRegions[req.Interaction] = addRegions(rs, req.Regions)
	}
	return nil
}

func (e *Execution) unsubscribeInteractionClass(m *member, req *message.Request, resp *message.Response) error {
	if _, err := e.checkInteractionClass(req.Interaction); err != nil {
		return err
	}
	if err := e.ownRegions(m, req.Regions); err != nil {
		return err
	}
	if len(req.Regions) > 0 {
		rs, limited := m.interactionRegions[req.Interaction]
		if !limited {
			return nil
		}
		if rs = removeRegions(rs, req.Regions); len(rs) > 0 {
			m.interactionRegions[req.Interaction] = rs
			return nil
		}
	}
	delete(m.subscribedInteractions, req.Interaction)
	delete(m.interactionRegions, req.Interaction)
	return nil
}

// forgetDeclarationsOf clears everything m published and subscribed, and
// its discovery state.
func (e *Execution) forgetDeclarationsOf(m *member) {
	m.publishedObjects = make(map[handle.ObjectClass]map[handle.Attribute]bool)
	m.subscribedObjects = make(map[handle.ObjectClass]map[handle.Attribute]bool)
	m.publishedInteractions = make(map[handle.InteractionClass]bool)
	m.subscribedInteractions = make(map[handle.InteractionClass]bool)
	m.objectRegions = make(map[handle.ObjectClass][]handle.Region)
	m.interactionRegions = make(map[handle.InteractionClass][]handle.Region)
	for _, obj := range e.objects {
		delete(obj.discovered, m.handle)
	}
}
