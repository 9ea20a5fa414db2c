package federate

import (
	"context"

	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
)

// PublishObjectClassAttributes ...
func (a *Ambassador) PublishObjectClassAttributes(ctx context.Context, class handle.ObjectClass, attrs []handle.Attribute) error {
	return a.do(ctx, &message.Request{
		Op:          message.OpPublishObjectClassAttributes,
		ObjectClass: class,
		Attributes:  attrs,
	})
}

// UnpublishObjectClassAttributes stops publishing attrs, or the whole class
// when attrs is empty. Owned attributes are released.
func (a *Ambassador) UnpublishObjectClassAttributes(ctx context.Context, class handle.ObjectClass, attrs []handle.Attribute) error {
	return a.do(ctx, &message.Request{
		Op:          message.OpUnpublishObjectClassAttributes,
		ObjectClass: class,
		Attributes:  attrs,
	})
}

// SubscribeObjectClassAttributes subscribes to attrs of class. Instances of
// the class and of its subclasses are discovered as a result.
func (a *Ambassador) SubscribeObjectClassAttributes(ctx context.Context, class handle.ObjectClass, attrs []handle.Attribute) error {
	return a.do(ctx, &message.Request{
		Op:          message.OpSubscribeObjectClassAttributes,
		ObjectClass: class,
		Attributes:  attrs,
	})
}

// UnsubscribeObjectClassAttributes ...
func (a *Ambassador) UnsubscribeObjectClassAttributes(ctx context.Context, class handle.ObjectClass, attrs []handle.Attribute) error {
	return a.do(ctx, &message.Request{
		Op:          message.OpUnsubscribeObjectClassAttributes,
		ObjectClass: class,
		Attributes:  attrs,
	})
}

// PublishInteractionClass ...
func (a *Ambassador) PublishInteractionClass(ctx context.Context, class handle.InteractionClass) error {
	return a.do(ctx, &message.Request{
		Op:          message.OpPublishInteractionClass,
		Interaction: class,
	})
}

// UnpublishInteractionClass ...
func (a *Ambassador) UnpublishInteractionClass(ctx context.Context, class handle.InteractionClass) error {
	return a.do(ctx, &message.Request{
		Op:          message.OpUnpublishInteractionClass,
		Interaction: class,
	})
}

// SubscribeInteractionClass ...
func (a *Ambassador) SubscribeInteractionClass(ctx context.Context, class handle.InteractionClass) error {
	return a.do(ctx, &message.Request{
		Op:          message.OpSubscribeInteractionClass,
		Interaction: class,
	})
}

// UnsubscribeInteractionClass ...
func (a *Ambassador) UnsubscribeInteractionClass(ctx context.Context, class handle.InteractionClass) error {
	return a.do(ctx, &message.Request{
		Op:          message.OpUnsubscribeInteractionClass,
		Interaction: class,
	})
}

// ReserveObjectInstanceName asks for name. A name that is already taken
// fails with ObjectInstanceNameInUse. An ObjectInstanceNameReservationSucceeded
// or Failed callback follows in both cases.
func (a *Ambassador) ReserveObjectInstanceName(ctx context.Context, name string) error {
	return a.do(ctx, &message.Request{
		Op:   message.OpReserveObjectInstanceName,
		Name: name,
	})
}

// ReleaseObjectInstanceName gives back a reserved name no object uses.
func (a *Ambassador) ReleaseObjectInstanceName(ctx context.Context, name string) error {
	return a.do(ctx, &message.Request{
		Op:   message.OpReleaseObjectInstanceName,
		Name: name,
	})
}

// RegisterObjectInstance creates an instance of a published class. name must
// have been reserved; an empty name lets the execution pick one.
func (a *Ambassador) RegisterObjectInstance(ctx context.Context, class handle.ObjectClass, name string) (handle.ObjectInstance, string, error) {
	resp, err := a.memberCall(ctx, &message.Request{
		Op:          message.OpRegisterObjectInstance,
		ObjectClass: class,
		Name:        name,
	})
	if err != nil {
		return 0, "", err
	}
	return resp.Instance, resp.Name, nil
}

// UpdateAttributeValues sends values in receive order.
func (a *Ambassador) UpdateAttributeValues(ctx context.Context,
	obj handle.ObjectInstance,
	values map[handle.Attribute][]byte,
	tag []byte,
) error {

	return a.do(ctx, &message.Request{
		Op:       message.OpUpdateAttributeValues,
		Instance: obj,
		Values:   values,
		Tag:      tag,
	})
}

// UpdateAttributeValuesAt sends values stamped with t. The retraction handle
// is 0 unless the update travels in timestamp order.
func (a *Ambassador) UpdateAttributeValuesAt(ctx context.Context,
	obj handle.ObjectInstance,
	values map[handle.Attribute][]byte,
	tag []byte,
	t logicaltime.Time,
) (handle.Retraction, error) {

	resp, err := a.memberCall(ctx, &message.Request{
		Op:          message.OpUpdateAttributeValues,
		Instance:    obj,
		Values:      values,
		Tag:         tag,
		Timestamped: true,
		Time:        t,
	})
	if err != nil {
		return 0, err
	}
	return resp.Retraction, nil
}

// SendInteraction sends an interaction in receive order.
func (a *Ambassador) SendInteraction(ctx context.Context,
	class handle.InteractionClass,
	params map[handle.Parameter][]byte,
	tag []byte,
) error {

	return a.do(ctx, &message.Request{
		Op:          message.OpSendInteraction,
		Interaction: class,
		Parameters:  params,
		Tag:         tag,
	})
}

// SendInteractionAt sends an interaction stamped with t.
func (a *Ambassador) SendInteractionAt(ctx context.Context,
	class handle.InteractionClass,
	params map[handle.Parameter][]byte,
	tag []byte,
	t logicaltime.Time,
) (handle.Retraction, error) {

	resp, err := a.memberCall(ctx, &message.Request{
		Op:          message.OpSendInteraction,
		Interaction: class,
		Parameters:  params,
		Tag:         tag,
		Timestamped: true,
		Time:        t,
	})
	if err != nil {
		return 0, err
	}
	return resp.Retraction, nil
}

// DeleteObjectInstance deletes obj in receive order. It requires the
// HLAprivilegeToDeleteObject attribute.
func (a *Ambassador) DeleteObjectInstance(ctx context.Context, obj handle.ObjectInstance, tag []byte) error {
	return a.do(ctx, &message.Request{
		Op:       message.OpDeleteObjectInstance,
		Instance: obj,
		Tag:      tag,
	})
}

// DeleteObjectInstanceAt deletes obj at logical time t.
func (a *Ambassador) DeleteObjectInstanceAt(ctx context.Context,
	obj handle.ObjectInstance,
	tag []byte,
	t logicaltime.Time,
) (handle.Retraction, error) {

	resp, err := a.memberCall(ctx, &message.Request{
		Op:          message.OpDeleteObjectInstance,
		Instance:    obj,
		Tag:         tag,
		Timestamped: true,
		Time:        t,
	})
	if err != nil {
		return 0, err
	}
	return resp.Retraction, nil
}

// RequestAttributeValueUpdate asks the owners of attrs to provide their
// current values.
func (a *Ambassador) RequestAttributeValueUpdate(ctx context.Context,
	obj handle.ObjectInstance,
	attrs []handle.Attribute,
	tag []byte,
) error {

	return a.do(ctx, &message.Request{
		Op:         message.OpRequestAttributeValueUpdate,
		Instance:   obj,
		Attributes: attrs,
		Tag:        tag,
	})
}

// RequestClassAttributeValueUpdate does the same for every instance of
// class.
func (a *Ambassador) RequestClassAttributeValueUpdate(ctx context.Context,
	class handle.ObjectClass,
	attrs []handle.Attribute,
	tag []byte,
) error {

	return a.do(ctx, &message.Request{
		Op:          message.OpRequestClassAttributeValueUpdate,
		ObjectClass: class,
		Attributes:  attrs,
		Tag:         tag,
	})
}
