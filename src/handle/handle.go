package handle

import "fmt"

// Federation identifies a federation execution within a relay tree.
type Federation uint64

// Federate identifies a joined federate within a federation execution.
type Federate uint64

// ObjectClass identifies an object class of the federation object model.
type ObjectClass uint64

// ObjectInstance identifies a registered object instance.
type ObjectInstance uint64

// Attribute identifies an object class attribute. Inherited attributes keep
// the handle of the class that declares them.
type Attribute uint64

// InteractionClass identifies an interaction class.
type InteractionClass uint64

// Parameter identifies an interaction class parameter.
type Parameter uint64

// Dimension identifies a routing space dimension.
type Dimension uint64

// Region identifies a region.
type Region uint64

// Retraction identifies one timestamp-order message that may be retracted.
type Retraction uint64

// Kind names a handle space. It is only used to render errors and logs.
type Kind uint8

const (
	FederationKind Kind = iota
	FederateKind
	ObjectClassKind
	ObjectInstanceKind
	AttributeKind
	InteractionClassKind
	ParameterKind
	DimensionKind
	RegionKind
	RetractionKind
)

// String ...
func (k Kind) String() string {
	switch k {
	case FederationKind:
		return "Federation"
	case FederateKind:
		return "Federate"
	case ObjectClassKind:
		return "ObjectClass"
	case ObjectInstanceKind:
		return "ObjectInstance"
	case AttributeKind:
		return "Attribute"
	case InteractionClassKind:
		return "InteractionClass"
	case ParameterKind:
		return "Parameter"
	case DimensionKind:
		return "Dimension"
	case RegionKind:
		return "Region"
	case RetractionKind:
		return "Retraction"
	default:
		return "Unknown"
	}
}

// Format renders a handle of the given kind, e.g. "Federate(3)".
func Format[H ~uint64](k Kind, h H) string {
	return fmt.Sprintf("%s(%d)", k, uint64(h))
}
