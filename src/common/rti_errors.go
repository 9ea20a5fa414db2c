package common

import (
	"fmt"
)

// ErrType identifies the exception an RTI operation failed with. The values
// travel on the wire, so new codes are only ever appended.
type ErrType uint16

const (
	// NoError is the zero code carried by successful responses.
	NoError ErrType = iota
	// FederationExecutionAlreadyExists ...
	FederationExecutionAlreadyExists
	// FederationExecutionDoesNotExist ...
	FederationExecutionDoesNotExist
	// FederatesCurrentlyJoined ...
	FederatesCurrentlyJoined
	// FederateNotExecutionMember ...
	FederateNotExecutionMember
	// FederateNameAlreadyInUse ...
	FederateNameAlreadyInUse
	// InconsistentFDD ...
	InconsistentFDD
	// CouldNotCreateLogicalTimeFactory ...
	CouldNotCreateLogicalTimeFactory
	// InvalidLogicalTime ...
	InvalidLogicalTime
	// InvalidLookahead ...
	InvalidLookahead
	// InTimeAdvancingState ...
	InTimeAdvancingState
	// RequestForTimeRegulationPending ...
	RequestForTimeRegulationPending
	// RequestForTimeConstrainedPending ...
	RequestForTimeConstrainedPending
	// TimeRegulationAlreadyEnabled ...
	TimeRegulationAlreadyEnabled
	// TimeConstrainedAlreadyEnabled ...
	TimeConstrainedAlreadyEnabled
	// TimeRegulationIsNotEnabled ...
	TimeRegulationIsNotEnabled
	// TimeConstrainedIsNotEnabled ...
	TimeConstrainedIsNotEnabled
	// ObjectClassNotDefined ...
	ObjectClassNotDefined
	// AttributeNotDefined ...
	AttributeNotDefined
	// InteractionClassNotDefined ...
	InteractionClassNotDefined
	// InteractionParameterNotDefined ...
	InteractionParameterNotDefined
	// ObjectClassNotPublished ...
	ObjectClassNotPublished
	// InteractionClassNotPublished ...
	InteractionClassNotPublished
	// ObjectInstanceNotKnown ...
	ObjectInstanceNotKnown
	// ObjectInstanceNameNotReserved ...
	ObjectInstanceNameNotReserved
	// ObjectInstanceNameInUse ...
	ObjectInstanceNameInUse
	// IllegalName ...
	IllegalName
	// DeletePrivilegeNotHeld ...
	DeletePrivilegeNotHeld
	// AttributeNotOwned ...
	AttributeNotOwned
	// AttributeNotPublished ...
	AttributeNotPublished
	// AttributeAlreadyOwned ...
	AttributeAlreadyOwned
	// AttributeAlreadyBeingDivested ...
	AttributeAlreadyBeingDivested
	// AttributeDivestitureWasNotRequested ...
	AttributeDivestitureWasNotRequested
	// AttributeAlreadyBeingAcquired ...
	AttributeAlreadyBeingAcquired
	// AttributeAcquisitionWasNotRequested ...
	AttributeAcquisitionWasNotRequested
	// InvalidRetractionHandle ...
	InvalidRetractionHandle
	// MessageCanNoLongerBeRetracted ...
	MessageCanNoLongerBeRetracted
	// SynchronizationPointLabelNotAnnounced ...
	SynchronizationPointLabelNotAnnounced
	// FederateAlreadyExecutionMember ...
	FederateAlreadyExecutionMember
	// NotConnected ...
	NotConnected
	// ConnectionFailed ...
	ConnectionFailed
	// Unsupported ...
	Unsupported
	// RTIinternalError ...
	RTIinternalError
	// InvalidDimensionHandle ...
	InvalidDimensionHandle
	// InvalidRegion ...
	InvalidRegion
	// RegionNotCreatedByThisFederate ...
	RegionNotCreatedByThisFederate
	// RegionDoesNotContainSpecifiedDimension ...
	RegionDoesNotContainSpecifiedDimension
	// InvalidRangeBound ...
	InvalidRangeBound
	// RegionInUseForUpdateOrSubscription ...
	RegionInUseForUpdateOrSubscription
)

var errNames = map[ErrType]string{
	NoError:                                "NoError",
	FederationExecutionAlreadyExists:       "FederationExecutionAlreadyExists",
	FederationExecutionDoesNotExist:        "FederationExecutionDoesNotExist",
	FederatesCurrentlyJoined:               "FederatesCurrentlyJoined",
	FederateNotExecutionMember:             "FederateNotExecutionMember",
	FederateNameAlreadyInUse:               "FederateNameAlreadyInUse",
	InconsistentFDD:                        "InconsistentFDD",
	CouldNotCreateLogicalTimeFactory:       "CouldNotCreateLogicalTimeFactory",
	InvalidLogicalTime:                     "InvalidLogicalTime",
	InvalidLookahead:                       "InvalidLookahead",
	InTimeAdvancingState:                   "InTimeAdvancingState",
	RequestForTimeRegulationPending:        "RequestForTimeRegulationPending",
	RequestForTimeConstrainedPending:       "RequestForTimeConstrainedPending",
	TimeRegulationAlreadyEnabled:           "TimeRegulationAlreadyEnabled",
	TimeConstrainedAlreadyEnabled:          "TimeConstrainedAlreadyEnabled",
	TimeRegulationIsNotEnabled:             "TimeRegulationIsNotEnabled",
	TimeConstrainedIsNotEnabled:            "TimeConstrainedIsNotEnabled",
	ObjectClassNotDefined:                  "ObjectClassNotDefined",
	AttributeNotDefined:                    "AttributeNotDefined",
	InteractionClassNotDefined:             "InteractionClassNotDefined",
	InteractionParameterNotDefined:         "InteractionParameterNotDefined",
	ObjectClassNotPublished:                "ObjectClassNotPublished",
	InteractionClassNotPublished:           "InteractionClassNotPublished",
	ObjectInstanceNotKnown:                 "ObjectInstanceNotKnown",
	ObjectInstanceNameNotReserved:          "ObjectInstanceNameNotReserved",
	ObjectInstanceNameInUse:                "ObjectInstanceNameInUse",
	IllegalName:                            "IllegalName",
	DeletePrivilegeNotHeld:                 "DeletePrivilegeNotHeld",
	AttributeNotOwned:                      "AttributeNotOwned",
	AttributeNotPublished:                  "AttributeNotPublished",
	AttributeAlreadyOwned:                  "AttributeAlreadyOwned",
	AttributeAlreadyBeingDivested:          "AttributeAlreadyBeingDivested",
	AttributeDivestitureWasNotRequested:    "AttributeDivestitureWasNotRequested",
	AttributeAlreadyBeingAcquired:          "AttributeAlreadyBeingAcquired",
	AttributeAcquisitionWasNotRequested:    "AttributeAcquisitionWasNotRequested",
	InvalidRetractionHandle:                "InvalidRetractionHandle",
	MessageCanNoLongerBeRetracted:          "MessageCanNoLongerBeRetracted",
	SynchronizationPointLabelNotAnnounced:  "SynchronizationPointLabelNotAnnounced",
	FederateAlreadyExecutionMember:         "FederateAlreadyExecutionMember",
	NotConnected:                           "NotConnected",
	ConnectionFailed:                       "ConnectionFailed",
	Unsupported:                            "Unsupported",
	RTIinternalError:                       "RTIinternalError",
	InvalidDimensionHandle:                 "InvalidDimensionHandle",
	InvalidRegion:                          "InvalidRegion",
	RegionNotCreatedByThisFederate:         "RegionNotCreatedByThisFederate",
	RegionDoesNotContainSpecifiedDimension: "RegionDoesNotContainSpecifiedDimension",
	InvalidRangeBound:                      "InvalidRangeBound",
	RegionInUseForUpdateOrSubscription:     "RegionInUseForUpdateOrSubscription",
}

// String ...
func (t ErrType) String() string {
	if s, ok := errNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ErrType(%d)", uint16(t))
}

// ErrClass groups error codes the way callers are expected to react to them.
type ErrClass uint8

const (
	// ProtocolState errors report an operation invalid in the current state.
	ProtocolState ErrClass = iota
	// NamingConflict errors lose a single-winner race on a name.
	NamingConflict
	// UnknownHandle errors reference something the execution does not know.
	UnknownHandle
	// Transport errors come from the connection, not the federation.
	Transport
	// Internal errors are bugs or unsupported operations.
	Internal
)

// Class returns the category of t.
func (t ErrType) Class() ErrClass {
	switch t {
	case FederationExecutionAlreadyExists,
		FederateNameAlreadyInUse,
		ObjectInstanceNameInUse,
		ObjectInstanceNameNotReserved,
		IllegalName:
		return NamingConflict
	case FederationExecutionDoesNotExist,
		ObjectClassNotDefined,
		AttributeNotDefined,
		InteractionClassNotDefined,
		InteractionParameterNotDefined,
		ObjectInstanceNotKnown,
		InvalidRetractionHandle,
		InvalidDimensionHandle,
		InvalidRegion:
		return UnknownHandle
	case NotConnected, ConnectionFailed:
		return Transport
	case Unsupported, RTIinternalError:
		return Internal
	default:
		return ProtocolState
	}
}

// RTIErr is the error returned by every federation operation.
type RTIErr struct {
	errType ErrType
	text    string
}

// NewRTIErr ...
func NewRTIErr(t ErrType, format string, args ...interface{}) RTIErr {
	return RTIErr{
		errType: t,
		text:    fmt.Sprintf(format, args...),
	}
}

// Type ...
func (e RTIErr) Type() ErrType {
	return e.errType
}

// Text ...
func (e RTIErr) Text() string {
	return e.text
}

// Error ...
func (e RTIErr) Error() string {
	if e.text == "" {
		return e.errType.String()
	}
	return fmt.Sprintf("%s: %s", e.errType, e.text)
}

// IsRTI checks that an error is of type RTIErr and that it's code matches
// the provided ErrType.
func IsRTI(err error, t ErrType) bool {
	rtiErr, ok := err.(RTIErr)
	return ok && rtiErr.errType == t
}

// ErrCode extracts the code and text of err for transmission. Errors that
// are not RTIErr become RTIinternalError.
func ErrCode(err error) (ErrType, string) {
	if err == nil {
		return NoError, ""
	}
	if rtiErr, ok := err.(RTIErr); ok {
		return rtiErr.errType, rtiErr.text
	}
	return RTIinternalError, err.Error()
}
