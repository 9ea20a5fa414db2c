package federate

import (
	"context"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/fom"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/sirupsen/logrus"
)

// CreateFederationExecution creates a named execution seeded with model.
// Of several concurrent creates of one name, exactly one succeeds; the
// others fail with FederationExecutionAlreadyExists.
func (a *Ambassador) CreateFederationExecution(ctx context.Context, name string, model *fom.Model) error {
	_, err := a.call(ctx, &message.Request{
		Op:    message.OpCreate,
		Name:  name,
		Model: model,
	})
	return err
}

// DestroyFederationExecution removes an execution nobody is joined to.
func (a *Ambassador) DestroyFederationExecution(ctx context.Context, name string) error {
	_, err := a.call(ctx, &message.Request{
		Op:   message.OpDestroy,
		Name: name,
	})
	return err
}

// ListFederationExecutions ...
func (a *Ambassador) ListFederationExecutions(ctx context.Context) ([]message.FederationInfo, error) {
	resp, err := a.call(ctx, &message.Request{Op: message.OpList})
	if err != nil {
		return nil, err
	}
	return resp.Federations, nil
}

// JoinFederationExecution joins the named execution. An empty federateName
// or federateType falls back to the configured one; with no name at all the
// execution picks a unique one.
func (a *Ambassador) JoinFederationExecution(ctx context.Context,
	federateName string,
	federateType string,
	federation string,
) (handle.Federate, error) {

	if a.joined.Load() != nil {
		return 0, cm.NewRTIErr(cm.FederateAlreadyExecutionMember, "%s", a.FederateName())
	}
	if federateName == "" {
		federateName = a.conf.Name
	}
	if federateType == "" {
		federateType = a.conf.Type
	}

	resp, err := a.call(ctx, &message.Request{
		Op:           message.OpJoin,
		Name:         federation,
		FederateName: federateName,
		FederateType: federateType,
	})
	if err != nil {
		return 0, err
	}

	a.logger.WithFields(logrus.Fields{
		"federation": federation,
		"federate":   resp.Federate,
		"name":       resp.Name,
	}).Debug("Joined")

	return resp.Federate, nil
}

// ResignFederationExecution leaves the joined execution. action says what
// happens to owned attributes and registered objects.
func (a *Ambassador) ResignFederationExecution(ctx context.Context, action message.ResignAction) error {
	return a.do(ctx, &message.Request{
		Op:           message.OpResign,
		ResignAction: action,
	})
}

// RegisterFederationSynchronizationPoint registers label for the given
// federates, or for the whole execution when none are named. The outcome
// arrives as a SynchronizationPointRegistrationSucceeded or Failed callback.
func (a *Ambassador) RegisterFederationSynchronizationPoint(ctx context.Context,
	label string,
	tag []byte,
	federates ...handle.Federate,
) error {

	return a.do(ctx, &message.Request{
		Op:        message.OpRegisterSyncPoint,
		Name:      label,
		Tag:       tag,
		Federates: federates,
	})
}

// SynchronizationPointAchieved ...
func (a *Ambassador) SynchronizationPointAchieved(ctx context.Context, label string) error {
	return a.do(ctx, &message.Request{
		Op:   message.OpSyncPointAchieved,
		Name: label,
	})
}
