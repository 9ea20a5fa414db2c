package federate

import (
	"context"

	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
)

// CreateRegion makes a region over dims, spanning each dimension fully until
// CommitRegionModifications narrows it.
func (a *Ambassador) CreateRegion(ctx context.Context, dims ...handle.Dimension) (handle.Region, error) {
	resp, err := a.memberCall(ctx, &message.Request{
		Op:         message.OpCreateRegion,
		Dimensions: dims,
	})
	if err != nil {
		return 0, err
	}
	return resp.Region, nil
}

// CommitRegionModifications sets the ranges of some of the dimensions of r.
func (a *Ambassador) CommitRegionModifications(ctx context.Context,
	r handle.Region,
	ranges map[handle.Dimension]message.Range,
) error {

	return a.do(ctx, &message.Request{
		Op:     message.OpCommitRegionModifications,
		Region: r,
		Ranges: ranges,
	})
}

// DeleteRegion fails while r scopes a subscription or a registered instance.
func (a *Ambassador) DeleteRegion(ctx context.Context, r handle.Region) error {
	return a.do(ctx, &message.Request{
		Op:     message.OpDeleteRegion,
		Region: r,
	})
}

// SubscribeObjectClassAttributesWithRegions only discovers instances
// registered in a region overlapping one of regions.
func (a *Ambassador) SubscribeObjectClassAttributesWithRegions(ctx context.Context,
	class handle.ObjectClass,
	attrs []handle.Attribute,
	regions []handle.Region,
) error {

	return a.do(ctx, &message.Request{
		Op:          message.OpSubscribeObjectClassAttributes,
		ObjectClass: class,
		Attributes:  attrs,
		Regions:     regions,
	})
}

// UnsubscribeObjectClassAttributesWithRegions drops regions from the
// subscription to class. The class is unsubscribed once none is left.
func (a *Ambassador) UnsubscribeObjectClassAttributesWithRegions(ctx context.Context,
	class handle.ObjectClass,
	regions []handle.Region,
) error {

	return a.do(ctx, &message.Request{
		Op:          message.OpUnsubscribeObjectClassAttributes,
		ObjectClass: class,
		Regions:     regions,
	})
}

// SubscribeInteractionClassWithRegions ...
func (a *Ambassador) SubscribeInteractionClassWithRegions(ctx context.Context,
	class handle.InteractionClass,
	regions []handle.Region,
) error {

	return a.do(ctx, &message.Request{
		Op:          message.OpSubscribeInteractionClass,
		Interaction: class,
		Regions:     regions,
	})
}

// UnsubscribeInteractionClassWithRegions ...
func (a *Ambassador) UnsubscribeInteractionClassWithRegions(ctx context.Context,
	class handle.InteractionClass,
	regions []handle.Region,
) error {

	return a.do(ctx, &message.Request{
		Op:          message.OpUnsubscribeInteractionClass,
		Interaction: class,
		Regions:     regions,
	})
}

// RegisterObjectInstanceWithRegions registers an instance only subscribers
// with an overlapping region discover.
func (a *Ambassador) RegisterObjectInstanceWithRegions(ctx context.Context,
	class handle.ObjectClass,
	name string,
	regions []handle.Region,
) (handle.ObjectInstance, string, error) {

	resp, err := a.memberCall(ctx, &message.Request{
		Op:          message.OpRegisterObjectInstance,
		ObjectClass: class,
		Name:        name,
		Regions:     regions,
	})
	if err != nil {
		return 0, "", err
	}
	return resp.Instance, resp.Name, nil
}

// SendInteractionWithRegions sends an interaction in receive order to
// subscribers with a region overlapping one of regions.
func (a *Ambassador) SendInteractionWithRegions(ctx context.Context,
	class handle.InteractionClass,
	params map[handle.Parameter][]byte,
	regions []handle.Region,
	tag []byte,
) error {

	return a.do(ctx, &message.Request{
		Op:          message.OpSendInteraction,
		Interaction: class,
		Parameters:  params,
		Regions:     regions,
		Tag:         tag,
	})
}
