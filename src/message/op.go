package message

// Op is the operation a Request asks for.
type Op uint8

const (
	OpNone Op = iota

	// Federation management
	OpCreate
	OpDestroy
	OpList
	OpJoin
	OpResign
	OpRegisterSyncPoint
	OpSyncPointAchieved

	// Declaration management
	OpPublishObjectClassAttributes
	OpUnpublishObjectClassAttributes
	OpSubscribeObjectClassAttributes
	OpUnsubscribeObjectClassAttributes
	OpPublishInteractionClass
	OpUnpublishInteractionClass
	OpSubscribeInteractionClass
	OpUnsubscribeInteractionClass

	// Object management
	OpReserveObjectInstanceName
	OpReleaseObjectInstanceName
	OpRegisterObjectInstance
	OpUpdateAttributeValues
	OpSendInteraction
	OpDeleteObjectInstance
	OpRequestAttributeValueUpdate
	OpRequestClassAttributeValueUpdate

	// Ownership management
	OpUnconditionalDivestiture
	OpNegotiatedDivestiture
	OpConfirmDivestiture
	OpCancelNegotiatedDivestiture
	OpAcquisition
	OpAcquisitionIfAvailable
	OpReleaseResponse
	OpCancelAcquisition
	OpQueryAttributeOwnership
	OpIsAttributeOwnedByFederate

	// Time management
	OpEnableTimeRegulation
	OpDisableTimeRegulation
	OpEnableTimeConstrained
	OpDisableTimeConstrained
	OpTimeAdvanceRequest
	OpTimeAdvanceRequestAvailable
	OpNextMessageRequest
	OpNextMessageRequestAvailable
	OpFlushQueueRequest
	OpQueryGALT
	OpQueryLogicalTime
	OpQueryLITS
	OpModifyLookahead
	OpQueryLookahead
	OpRetract

	// Data distribution management
	OpCreateRegion
	OpCommitRegionModifications
	OpDeleteRegion

	numOps
)

var opNames = [...]string{
	OpNone:                             "None",
	OpCreate:                           "Create",
	OpDestroy:                          "Destroy",
	OpList:                             "List",
	OpJoin:                             "Join",
	OpResign:                           "Resign",
	OpRegisterSyncPoint:                "RegisterSyncPoint",
	OpSyncPointAchieved:                "SyncPointAchieved",
	OpPublishObjectClassAttributes:     "PublishObjectClassAttributes",
	OpUnpublishObjectClassAttributes:   "UnpublishObjectClassAttributes",
	OpSubscribeObjectClassAttributes:   "SubscribeObjectClassAttributes",
	OpUnsubscribeObjectClassAttributes: "UnsubscribeObjectClassAttributes",
	OpPublishInteractionClass:          "PublishInteractionClass",
	OpUnpublishInteractionClass:        "UnpublishInteractionClass",
	OpSubscribeInteractionClass:        "SubscribeInteractionClass",
	OpUnsubscribeInteractionClass:      "UnsubscribeInteractionClass",
	OpReserveObjectInstanceName:        "ReserveObjectInstanceName",
	OpReleaseObjectInstanceName:        "ReleaseObjectInstanceName",
	OpRegisterObjectInstance:           "RegisterObjectInstance",
	OpUpdateAttributeValues:            "UpdateAttributeValues",
	OpSendInteraction:                  "SendInteraction",
	OpDeleteObjectInstance:             "DeleteObjectInstance",
	OpRequestAttributeValueUpdate:      "RequestAttributeValueUpdate",
	OpRequestClassAttributeValueUpdate: "RequestClassAttributeValueUpdate",
	OpUnconditionalDivestiture:         "UnconditionalDivestiture",
	OpNegotiatedDivestiture:            "NegotiatedDivestiture",
	OpConfirmDivestiture:               "ConfirmDivestiture",
	OpCancelNegotiatedDivestiture:      "CancelNegotiatedDivestiture",
	OpAcquisition:                      "Acquisition",
	OpAcquisitionIfAvailable:           "AcquisitionIfAvailable",
	OpReleaseResponse:                  "ReleaseResponse",
	OpCancelAcquisition:                "CancelAcquisition",
	OpQueryAttributeOwnership:          "QueryAttributeOwnership",
	OpIsAttributeOwnedByFederate:       "IsAttributeOwnedByFederate",
	OpEnableTimeRegulation:             "EnableTimeRegulation",
	OpDisableTimeRegulation:            "DisableTimeRegulation",
	OpEnableTimeConstrained:            "EnableTimeConstrained",
	OpDisableTimeConstrained:           "DisableTimeConstrained",
	OpTimeAdvanceRequest:               "TimeAdvanceRequest",
	OpTimeAdvanceRequestAvailable:      "TimeAdvanceRequestAvailable",
	OpNextMessageRequest:               "NextMessageRequest",
	OpNextMessageRequestAvailable:      "NextMessageRequestAvailable",
	OpFlushQueueRequest:                "FlushQueueRequest",
	OpQueryGALT:                        "QueryGALT",
	OpQueryLogicalTime:                 "QueryLogicalTime",
	OpQueryLITS:                        "QueryLITS",
	OpModifyLookahead:                  "ModifyLookahead",
	OpQueryLookahead:                   "QueryLookahead",
	OpRetract:                          "Retract",
	OpCreateRegion:                     "CreateRegion",
	OpCommitRegionModifications:        "CommitRegionModifications",
	OpDeleteRegion:                     "DeleteRegion",
}

// String ...
func (o Op) String() string {
	if o < numOps {
		return opNames[o]
	}
	return "Unknown"
}

// Lifecycle reports whether o is addressed to a federation by name rather
// than by handle.
func (o Op) Lifecycle() bool {
	switch o {
	case OpCreate, OpDestroy, OpList, OpJoin:
		return true
	}
	return false
}

// ResignAction says what happens to a resigning federate's objects and
// attributes.
type ResignAction uint8

const (
	// CancelThenDeleteThenDivest is also applied when a federate's
	// connection is lost.
	CancelThenDeleteThenDivest ResignAction = iota
	UnconditionallyDivestAttributes
	DeleteObjects
	CancelPendingOwnershipAcquisitions
	DeleteObjectsThenDivest
	NoAction
)

// Deletes reports whether objects the federate may delete are deleted.
func (a ResignAction) Deletes() bool {
	return a == CancelThenDeleteThenDivest || a == DeleteObjects || a == DeleteObjectsThenDivest
}
