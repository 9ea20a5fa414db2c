package federate

import (
	"context"

	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
)

func (a *Ambassador) ownership(ctx context.Context, op message.Op, obj handle.ObjectInstance, attrs []handle.Attribute, tag []byte) (*message.Response, error) {
	return a.memberCall(ctx, &message.Request{
		Op:         op,
		Instance:   obj,
		Attributes: attrs,
		Tag:        tag,
	})
}

// UnconditionalAttributeOwnershipDivestiture releases attrs at once.
func (a *Ambassador) UnconditionalAttributeOwnershipDivestiture(ctx context.Context, obj handle.ObjectInstance, attrs []handle.Attribute) error {
	_, err := a.ownership(ctx, message.OpUnconditionalDivestiture, obj, attrs, nil)
	return err
}

// NegotiatedAttributeOwnershipDivestiture offers attrs to other publishers.
// Ownership stays until ConfirmDivestiture follows a
// RequestDivestitureConfirmation callback.
func (a *Ambassador) NegotiatedAttributeOwnershipDivestiture(ctx context.Context, obj handle.ObjectInstance, attrs []handle.Attribute, tag []byte) error {
	_, err := a.ownership(ctx, message.OpNegotiatedDivestiture, obj, attrs, tag)
	return err
}

// ConfirmDivestiture ...
func (a *Ambassador) ConfirmDivestiture(ctx context.Context, obj handle.ObjectInstance, attrs []handle.Attribute, tag []byte) error {
	_, err := a.ownership(ctx, message.OpConfirmDivestiture, obj, attrs, tag)
	return err
}

// CancelNegotiatedAttributeOwnershipDivestiture ...
func (a *Ambassador) CancelNegotiatedAttributeOwnershipDivestiture(ctx context.Context, obj handle.ObjectInstance, attrs []handle.Attribute) error {
	_, err := a.ownership(ctx, message.OpCancelNegotiatedDivestiture, obj, attrs, nil)
	return err
}

// AttributeOwnershipAcquisition asks for attrs, taking them at once when
// unowned and asking their owners to release them otherwise.
func (a *Ambassador) AttributeOwnershipAcquisition(ctx context.Context, obj handle.ObjectInstance, attrs []handle.Attribute, tag []byte) error {
	_, err := a.ownership(ctx, message.OpAcquisition, obj, attrs, tag)
	return err
}

// AttributeOwnershipAcquisitionIfAvailable takes attrs only if nobody owns
// them. Owned ones are reported by an AttributeOwnershipUnavailable callback.
func (a *Ambassador) AttributeOwnershipAcquisitionIfAvailable(ctx context.Context, obj handle.ObjectInstance, attrs []handle.Attribute) error {
	_, err := a.ownership(ctx, message.OpAcquisitionIfAvailable, obj, attrs, nil)
	return err
}

// AttributeOwnershipReleaseResponse releases those of attrs somebody is
// waiting to acquire, and returns them.
func (a *Ambassador) AttributeOwnershipReleaseResponse(ctx context.Context, obj handle.ObjectInstance, attrs []handle.Attribute) ([]handle.Attribute, error) {
	resp, err := a.ownership(ctx, message.OpReleaseResponse, obj, attrs, nil)
	if err != nil {
		return nil, err
	}
	return resp.Attributes, nil
}

// CancelAttributeOwnershipAcquisition ...
func (a *Ambassador) CancelAttributeOwnershipAcquisition(ctx context.Context, obj handle.ObjectInstance, attrs []handle.Attribute) error {
	_, err := a.ownership(ctx, message.OpCancelAcquisition, obj, attrs, nil)
	return err
}

// QueryAttributeOwnership is answered by one InformAttributeOwnership
// callback per attribute.
func (a *Ambassador) QueryAttributeOwnership(ctx context.Context, obj handle.ObjectInstance, attrs []handle.Attribute) error {
	_, err := a.ownership(ctx, message.OpQueryAttributeOwnership, obj, attrs, nil)
	return err
}

// IsAttributeOwnedByFederate ...
func (a *Ambassador) IsAttributeOwnedByFederate(ctx context.Context, obj handle.ObjectInstance, attr handle.Attribute) (bool, error) {
	resp, err := a.ownership(ctx, message.OpIsAttributeOwnedByFederate, obj, []handle.Attribute{attr}, nil)
	if err != nil {
		return false, err
	}
	return resp.Owned, nil
}
