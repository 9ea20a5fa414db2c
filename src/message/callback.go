package message

import (
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
)

// Kind is the callback a federate receives.
type Kind uint8

const (
	KindNone Kind = iota

	ObjectInstanceNameReservationSucceeded
	ObjectInstanceNameReservationFailed
	DiscoverObjectInstance
	RemoveObjectInstance
	ReflectAttributeValues
	ReceiveInteraction
	ProvideAttributeValueUpdate
	RequestRetraction

	RequestAttributeOwnershipAssumption
	RequestAttributeOwnershipRelease
	RequestDivestitureConfirmation
	AttributeOwnershipAcquisitionNotification
	AttributeOwnershipUnavailable
	ConfirmAttributeOwnershipAcquisitionCancellation
	InformAttributeOwnership

	TimeRegulationEnabled
	TimeConstrainedEnabled
	TimeAdvanceGrant

	SynchronizationPointRegistrationSucceeded
	SynchronizationPointRegistrationFailed
	AnnounceSynchronizationPoint
	FederationSynchronized

	// ConnectionLost is raised locally by a federate ambassador, it never
	// travels on the wire.
	ConnectionLost

	numKinds
)

var kindNames = [...]string{
	KindNone:                                         "None",
	ObjectInstanceNameReservationSucceeded:           "ObjectInstanceNameReservationSucceeded",
	ObjectInstanceNameReservationFailed:              "ObjectInstanceNameReservationFailed",
	DiscoverObjectInstance:                           "DiscoverObjectInstance",
	RemoveObjectInstance:                             "RemoveObjectInstance",
	ReflectAttributeValues:                           "ReflectAttributeValues",
	ReceiveInteraction:                               "ReceiveInteraction",
	ProvideAttributeValueUpdate:                      "ProvideAttributeValueUpdate",
	RequestRetraction:                                "RequestRetraction",
	RequestAttributeOwnershipAssumption:              "RequestAttributeOwnershipAssumption",
	RequestAttributeOwnershipRelease:                 "RequestAttributeOwnershipRelease",
	RequestDivestitureConfirmation:                   "RequestDivestitureConfirmation",
	AttributeOwnershipAcquisitionNotification:        "AttributeOwnershipAcquisitionNotification",
	AttributeOwnershipUnavailable:                    "AttributeOwnershipUnavailable",
	ConfirmAttributeOwnershipAcquisitionCancellation: "ConfirmAttributeOwnershipAcquisitionCancellation",
	InformAttributeOwnership:                         "InformAttributeOwnership",
	TimeRegulationEnabled:                            "TimeRegulationEnabled",
	TimeConstrainedEnabled:                           "TimeConstrainedEnabled",
	TimeAdvanceGrant:                                 "TimeAdvanceGrant",
	SynchronizationPointRegistrationSucceeded:        "SynchronizationPointRegistrationSucceeded",
	SynchronizationPointRegistrationFailed:           "SynchronizationPointRegistrationFailed",
	AnnounceSynchronizationPoint:                     "AnnounceSynchronizationPoint",
	FederationSynchronized:                           "FederationSynchronized",
	ConnectionLost:                                   "ConnectionLost",
}

// String ...
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return "Unknown"
}

// Order is the delivery discipline of a message.
type Order uint8

const (
	// ReceiveOrder messages are delivered as soon as they arrive.
	ReceiveOrder Order = iota
	// TimestampOrder messages are delivered in logical time order.
	TimestampOrder
)

// String ...
func (o Order) String() string {
	if o == TimestampOrder {
		return "TimeStamp"
	}
	return "Receive"
}

// Callback is a notification for the federates in To.
type Callback struct {
	Kind       Kind              `codec:"k"`
	Federation handle.Federation `codec:"fx"`
	To         []handle.Federate `codec:"to"`

	// Federate is the subject of the callback: the sender of an update, the
	// owner of an attribute, or the federate whose resignation caused it.
	Federate    handle.Federate             `codec:"fd,omitempty"`
	Name        string                      `codec:"n,omitempty"`
	ObjectClass handle.ObjectClass          `codec:"oc,omitempty"`
	Instance    handle.ObjectInstance       `codec:"oi,omitempty"`
	Attributes  []handle.Attribute          `codec:"as,omitempty"`
	Values      map[handle.Attribute][]byte `codec:"av,omitempty"`
	Interaction handle.InteractionClass     `codec:"ic,omitempty"`
	Parameters  map[handle.Parameter][]byte `codec:"pv,omitempty"`
	Federates   []handle.Federate           `codec:"fs,omitempty"`
	Tag         []byte                      `codec:"tg,omitempty"`
	Text        string                      `codec:"tx,omitempty"`

	// SentOrder is the order the sender asked for, ReceivedOrder the one
	// the receiver got. They differ when either end is not regulating or
	// constrained.
	SentOrder     Order             `codec:"so,omitempty"`
	ReceivedOrder Order             `codec:"ro,omitempty"`
	Timestamped   bool              `codec:"ts,omitempty"`
	Time          logicaltime.Time  `codec:"t"`
	Retraction    handle.Retraction `codec:"rh,omitempty"`
}

// Readdress returns a copy of c sent to the given federates only.
func (c *Callback) Readdress(to []handle.Federate) *Callback {
	n := *c
	n.To = to
	return &n
}
