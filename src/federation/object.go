package federation

import (
	"fmt"
	"sort"
	"strings"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/sirupsen/logrus"
)

// object is a registered object instance.
type object struct {
	handle     handle.ObjectInstance
	name       string
	class      handle.ObjectClass
	registrar  handle.Federate
	classAttrs map[handle.Attribute]bool
	attrs      map[handle.Attribute]*ownership
	// discovered maps each federate that was told about the object to the
	// class it was discovered as.
	discovered map[handle.Federate]handle.ObjectClass
	// regions the instance was registered with.
	regions    []handle.Region
}

// reservation holds an object instance name. A used name stays taken after
// its instance is deleted.
type reservation struct {
	owner handle.Federate
	used  bool
}

func (e *Execution) sortedObjects() []*object {
	res := make([]*object, 0, len(e.objects))
	for _, obj := range e.objects {
		res = append(res, obj)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].handle < res[j].handle })
	return res
}

func (e *Execution) lookupObject(h handle.ObjectInstance) (*object, error) {
	obj, ok := e.objects[h]
	if !ok {
		return nil, cm.NewRTIErr(cm.ObjectInstanceNotKnown, "%s", handle.Format(handle.ObjectInstanceKind, h))
	}
	return obj, nil
}

// discover tells m about obj if m subscribes to its class or an ancestor
// in a region obj overlaps, and was not told before.
func (e *Execution) discover(m *member, obj *object) {
	if m.handle == obj.registrar {
		return
	}
	if _, ok := obj.discovered[m.handle]; ok {
		return
	}
	known, ok := e.visible(m, obj)
	if !ok {
		return
	}
	obj.discovered[m.handle] = known
	e.emit(&message.Callback{
		Kind:        message.DiscoverObjectInstance,
		To:          []handle.Federate{m.handle},
		Federate:    obj.registrar,
		Instance:    obj.handle,
		ObjectClass: known,
		Name:        obj.name,
	})
}

func (e *Execution) reserveObjectInstanceName(m *member, req *message.Request, resp *message.Response) error {
	if req.Name == "" || strings.HasPrefix(req.Name, "HLA") {
		return cm.NewRTIErr(cm.IllegalName, "object instance name %q", req.Name)
	}

	// The callback is sent either way; a loser also gets the error on its
	// response.
	if _, taken := e.reservations[req.Name]; taken {
		e.emit(&message.Callback{
			Kind: message.ObjectInstanceNameReservationFailed,
			To:   []handle.Federate{m.handle},
			Name: req.Name,
		})
		return cm.NewRTIErr(cm.ObjectInstanceNameInUse, "%q", req.Name)
	}

	e.reservations[req.Name] = &reservation{owner: m.handle}
	e.emit(&message.Callback{
		Kind: message.ObjectInstanceNameReservationSucceeded,
		To:   []handle.Federate{m.handle},
		Name: req.Name,
	})
	return nil
}

func (e *Execution) releaseObjectInstanceName(m *member, req *message.Request, resp *message.Response) error {
	r, ok := e.reservations[req.Name]
	if !ok || r.owner != m.handle {
		return cm.NewRTIErr(cm.ObjectInstanceNameNotReserved, "%q", req.Name)
	}
	if r.used {
		return cm.NewRTIErr(cm.ObjectInstanceNameInUse, "%q", req.Name)
	}
	delete(e.reservations, req.Name)
	return nil
}

func (e *Execution) releaseReservationsOf(m *member) {
	for name, r := range e.reservations {
		if r.owner == m.handle && !r.used {
			delete(e.reservations, name)
		}
	}
}

// registerObjectInstance creates an instance of a class m publishes. m
// becomes the owner of every attribute it publishes at that class.
func (e *Execution) registerObjectInstance(m *member, req *message.Request, resp *message.Response) error {
	info, err := e.checkObjectClass(req.ObjectClass, nil)
	if err != nil {
		return err
	}
	if _, ok := m.publishedObjects[req.ObjectClass]; !ok {
		return cm.NewRTIErr(cm.ObjectClassNotPublished, "%s", info.Name)
	}
	if err := e.ownRegions(m, req.Regions); err != nil {
		return err
	}

	if req.Name != "" {
		r, ok := e.reservations[req.Name]
		if !ok || r.owner != m.handle {
			return cm.NewRTIErr(cm.ObjectInstanceNameNotReserved, "%q", req.Name)
		}
		if r.used {
			return cm.NewRTIErr(cm.ObjectInstanceNameInUse, "%q", req.Name)
		}
	}

	h := e.instanceHandles.Next()
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("HLAobject_%d", h)
		for _, taken := e.reservations[name]; taken; _, taken = e.reservations[name] {
			name = name + "_"
		}
	}
	e.reservations[name] = &reservation{owner: m.handle, used: true}

	obj := &object{
		handle:     h,
		name:       name,
		class:      req.ObjectClass,
		registrar:  m.handle,
		classAttrs: info.Attributes,
		attrs:      make(map[handle.Attribute]*ownership, len(info.Attributes)),
		discovered: make(map[handle.Federate]handle.ObjectClass),
		regions:    addRegions(nil, req.Regions),
	}
	for a := range info.Attributes {
		own := &ownership{}
		if e.publishes(m, obj.class, a) {
			own.owner = m.handle
		}
		obj.attrs[a] = own
	}
	e.objects[h] = obj

	for _, o := range sortedMembers(e.federates) {
		e.discover(o, obj)
	}

	resp.Instance = h
	resp.Name = name

	e.logger.WithFields(logrus.Fields{
		"federate": m.handle,
		"instance": h,
		"class":    info.Name,
	}).Debug("Object instance registered")

	return nil
}

// updateAttributeValues reflects owned attribute values to every federate
// that discovered the instance, still has it in view and subscribes to some
// of them. Attributes
// preferring receive order travel separately from timestamp-order ones.
func (e *Execution) updateAttributeValues(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	for a := range req.Values {
		own, ok := obj.attrs[a]
		if !ok {
			return cm.NewRTIErr(cm.AttributeNotDefined, "%s", handle.Format(handle.AttributeKind, a))
		}
		if own.owner != m.handle {
			return cm.NewRTIErr(cm.AttributeNotOwned, "%s of %s", handle.Format(handle.AttributeKind, a), obj.name)
		}
	}
	if err := e.checkSendTime(m, req); err != nil {
		return err
	}

	for _, tso := range []bool{true, false} {
		var deliveries []delivery
		for _, f := range e.sortedDiscoverers(obj) {
			rcv := e.federates[f]
			known, ok := e.visible(rcv, obj)
			if !ok {
				continue
			}
			subscribed := rcv.subscribedObjects[known]
			values := make(map[handle.Attribute][]byte)
			for a, v := range req.Values {
				info, _ := e.index.Attribute(a)
				if subscribed[a] && (info.Order == fom.TimeStamp) == tso {
					values[a] = v
				}
			}
			if len(values) == 0 {
				continue
			}
			deliveries = append(deliveries, delivery{to: f, cb: &message.Callback{
				Kind:        message.ReflectAttributeValues,
				Federate:    m.handle,
				Instance:    obj.handle,
				ObjectClass: known,
				Values:      values,
				Tag:         req.Tag,
			}})
		}
		if len(deliveries) == 0 {
			continue
		}
		if r := e.send(m, deliveries, req.Timestamped, tso, req.Time); r != 0 {
			resp.Retraction = r
		}
	}
	return nil
}

func (e *Execution) sortedDiscoverers(obj *object) []handle.Federate {
	res := make([]handle.Federate, 0, len(obj.discovered))
	for f := range obj.discovered {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// sendInteraction delivers an interaction to every federate subscribed to
// its class or an ancestor in a region req.Regions overlaps, received as the
// most specific subscribed class with the parameters that class declares or
// inherits.
func (e *Execution) sendInteraction(m *member, req *message.Request, resp *message.Response) error {
	info, err := e.checkInteractionClass(req.Interaction)
	if err != nil {
		return err
	}
	if !m.publishedInteractions[req.Interaction] {
		return cm.NewRTIErr(cm.InteractionClassNotPublished, "%s", info.Name)
	}
	for p := range req.Parameters {
		if !info.Parameters[p] {
			return cm.NewRTIErr(cm.InteractionParameterNotDefined, "%s in %s", handle.Format(handle.ParameterKind, p), info.Name)
		}
	}
	if err := e.ownRegions(m, req.Regions); err != nil {
		return err
	}
	if err := e.checkSendTime(m, req); err != nil {
		return err
	}

	var deliveries []delivery
	for _, rcv := range sortedMembers(e.federates) {
		if rcv == m {
			continue
		}
		received, ok := e.receivedInteractionClass(rcv, req.Interaction)
		if !ok || !e.overlap(req.Regions, rcv.interactionRegions[received]) {
			continue
		}
		rinfo, _ := e.index.InteractionClass(received)
		params := make(map[handle.Parameter][]byte)
		for p, v := range req.Parameters {
			if rinfo.Parameters[p] {
				params[p] = v
			}
		}
		deliveries = append(deliveries, delivery{to: rcv.handle, cb: &message.Callback{
			Kind:        message.ReceiveInteraction,
			Federate:    m.handle,
			Interaction: received,
			Parameters:  params,
			Tag:         req.Tag,
		}})
	}

	resp.Retraction = e.send(m, deliveries, req.Timestamped, info.Order == fom.TimeStamp, req.Time)
	return nil
}

// deleteObjectInstance needs the delete privilege of the instance.
func (e *Execution) deleteObjectInstance(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	priv := e.index.PrivilegeToDeleteOf(obj.class)
	if own := obj.attrs[priv]; own == nil || own.owner != m.handle {
		return cm.NewRTIErr(cm.DeletePrivilegeNotHeld, "%s", obj.name)
	}
	if err := e.checkSendTime(m, req); err != nil {
		return err
	}

	info, _ := e.index.Attribute(priv)
	resp.Retraction = e.removeObject(m, obj, req.Tag, req.Timestamped, info.Order == fom.TimeStamp, req.Time)
	return nil
}

// removeObject retires obj and sends exactly one remove to each federate
// that discovered it.
func (e *Execution) removeObject(m *member, obj *object, tag []byte, timestamped, tso bool, t logicaltime.Time) handle.Retraction {
	var deliveries []delivery
	for _, f := range e.sortedDiscoverers(obj) {
		deliveries = append(deliveries, delivery{to: f, cb: &message.Callback{
			Kind:     message.RemoveObjectInstance,
			Federate: m.handle,
			Instance: obj.handle,
			Name:     obj.name,
			Tag:      tag,
		}})
	}
	delete(e.objects, obj.handle)
	obj.discovered = nil

	e.logger.WithFields(logrus.Fields{
		"federate": m.handle,
		"instance": obj.handle,
	}).Debug("Object instance deleted")

	if len(deliveries) == 0 {
		return 0
	}
	h := e.send(m, deliveries, timestamped, tso, t)
	if r, ok := e.retractions[h]; ok {
		r.final = true
	}
	return h
}

// deleteObjectsOf deletes every instance m holds the delete privilege of.
func (e *Execution) deleteObjectsOf(m *member) {
	for _, obj := range e.sortedObjects() {
		priv := e.index.PrivilegeToDeleteOf(obj.class)
		if own := obj.attrs[priv]; own != nil && own.owner == m.handle {
			e.removeObject(m, obj, nil, false, false, e.domain.Initial())
		}
	}
}

func (e *Execution) requestAttributeValueUpdate(m *member, req *message.Request, resp *message.Response) error {
	obj, err := e.lookupObject(req.Instance)
	if err != nil {
		return err
	}
	if _, err := e.checkObjectClass(obj.class, req.Attributes); err != nil {
		return err
	}
	e.requestProvide(m, obj, req.Attributes, req.Tag)
	return nil
}

func (e *Execution) requestClassAttributeValueUpdate(m *member, req *message.Request, resp *message.Response) error {
	if _, err := e.checkObjectClass(req.ObjectClass, req.Attributes); err != nil {
		return err
	}
	for _, obj := range e.sortedObjects() {
		if e.index.IsObjectSubclass(obj.class, req.ObjectClass) {
			e.requestProvide(m, obj, req.Attributes, req.Tag)
		}
	}
	return nil
}

// requestProvide asks the owners of attrs on obj, other than m, to provide
// their current values.
func (e *Execution) requestProvide(m *member, obj *object, attrs []handle.Attribute, tag []byte) {
	b := newAttrBatch()
	for _, a := range attrs {
		if own := obj.attrs[a]; own != nil && own.owner != 0 && own.owner != m.handle {
			b.add(own.owner, a)
		}
	}
	e.flushBatch(obj, b, message.ProvideAttributeValueUpdate, tag)
}
