package fom

import (
	"fmt"
	"math"

	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
)

// PrivilegeToDelete is the attribute every root object class carries. The
// federate owning it for an instance may delete that instance.
const PrivilegeToDelete = "HLAprivilegeToDeleteObject"

// ObjectClassInfo is a resolved object class.
type ObjectClassInfo struct {
	Handle handle.ObjectClass
	Name   string
	Parent handle.ObjectClass
	// Attributes holds declared and inherited attributes.
	Attributes map[handle.Attribute]bool
}

// AttributeInfo is a resolved attribute.
type AttributeInfo struct {
	Handle     handle.Attribute
	Name       string
	Class      handle.ObjectClass
	Order      Order
	Dimensions []handle.Dimension
}

// InteractionClassInfo is a resolved interaction class.
type InteractionClassInfo struct {
	Handle     handle.InteractionClass
	Name       string
	Parent     handle.InteractionClass
	Order      Order
	Parameters map[handle.Parameter]bool
	Dimensions []handle.Dimension
}

// ParameterInfo is a resolved parameter.
type ParameterInfo struct {
	Handle handle.Parameter
	Name   string
	Class  handle.InteractionClass
}

// Index assigns handles to a model and answers lookups by handle or name.
// Handles follow declaration order, so every party that indexes the same
// model agrees on them.
type Index struct {
	Model  *Model
	Domain logicaltime.Domain

	classes      []*ObjectClassInfo
	classNames   map[string]handle.ObjectClass
	attributes   []*AttributeInfo
	interactions []*InteractionClassInfo
	interNames   map[string]handle.InteractionClass
	parameters   []*ParameterInfo
	dimensions   map[string]handle.Dimension
	dimNames     []string
}

// NewIndex validates m and assigns its handles.
func NewIndex(m *Model) (*Index, error) {
	if m == nil {
		return nil, fmt.Errorf("no object model")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	domain, err := logicaltime.ParseDomain(m.TimeImplementation)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		Model:      m,
		Domain:     domain,
		classNames: make(map[string]handle.ObjectClass),
		interNames: make(map[string]handle.InteractionClass),
		dimensions: make(map[string]handle.Dimension),
	}

	dims := handle.NewAllocator[handle.Dimension]()
	for _, d := range m.Dimensions {
		idx.dimensions[d.Name] = dims.Next()
		idx.dimNames = append(idx.dimNames, d.Name)
	}

	classes := handle.NewAllocator[handle.ObjectClass]()
	attrs := handle.NewAllocator[handle.Attribute]()
	for _, oc := range m.ObjectClasses {
		info := &ObjectClassInfo{
			Handle:     classes.Next(),
			Name:       oc.Name,
			Attributes: make(map[handle.Attribute]bool),
		}
		idx.classes = append(idx.classes, info)
		idx.classNames[oc.Name] = info.Handle

		declared := oc.Attributes
		if oc.Parent == "" && !declares(oc.Attributes, PrivilegeToDelete) {
			declared = append([]Attribute{{Name: PrivilegeToDelete}}, declared...)
		}
		for _, a := range declared {
			ai := &AttributeInfo{
				Handle:     attrs.Next(),
				Name:       a.Name,
				Class:      info.Handle,
				Order:      a.Order.OrderOrDefault(),
				Dimensions: idx.resolveDimensions(a.Dimensions),
			}
			idx.attributes = append(idx.attributes, ai)
			info.Attributes[ai.Handle] = true
		}
	}
	for i, oc := range m.ObjectClasses {
		if oc.Parent != "" {
			idx.classes[i].Parent = idx.classNames[oc.Parent]
		}
	}
	for _, info := range idx.classes {
		for p := info.Parent; p != 0; p = idx.classes[p-1].Parent {
			for a := range idx.classes[p-1].Attributes {
				if idx.attributes[a-1].Class == p {
					info.Attributes[a] = true
				}
			}
		}
	}

	interactions := handle.NewAllocator[handle.InteractionClass]()
	params := handle.NewAllocator[handle.Parameter]()
	for _, ic := range m.InteractionClasses {
		info := &InteractionClassInfo{
			Handle:     interactions.Next(),
			Name:       ic.Name,
			Order:      ic.Order.OrderOrDefault(),
			Parameters: make(map[handle.Parameter]bool),
			Dimensions: idx.resolveDimensions(ic.Dimensions),
		}
		idx.interactions = append(idx.interactions, info)
		idx.interNames[ic.Name] = info.Handle
		for _, p := range ic.Parameters {
			pi := &ParameterInfo{Handle: params.Next(), Name: p.Name, Class: info.Handle}
			idx.parameters = append(idx.parameters, pi)
			info.Parameters[pi.Handle] = true
		}
	}
	for i, ic := range m.InteractionClasses {
		if ic.Parent != "" {
			idx.interactions[i].Parent = idx.interNames[ic.Parent]
		}
	}
	for _, info := range idx.interactions {
		for p := info.Parent; p != 0; p = idx.interactions[p-1].Parent {
			for ph := range idx.interactions[p-1].Parameters {
				if idx.parameters[ph-1].Class == p {
					info.Parameters[ph] = true
				}
			}
		}
	}

	return idx, nil
}

func declares(attrs []Attribute, name string) bool {
	for _, a := range attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

func (idx *Index) resolveDimensions(names []string) []handle.Dimension {
	var out []handle.Dimension
	for _, n := range names {
		out = append(out, idx.dimensions[n])
	}
	return out
}

// ObjectClass ...
func (idx *Index) ObjectClass(h handle.ObjectClass) (*ObjectClassInfo, bool) {
	if h == 0 || int(h) > len(idx.classes) {
		return nil, false
	}
	return idx.classes[h-1], true
}

// ObjectClassByName ...
func (idx *Index) ObjectClassByName(name string) (handle.ObjectClass, bool) {
	h, ok := idx.classNames[name]
	return h, ok
}

// Attribute ...
func (idx *Index) Attribute(h handle.Attribute) (*AttributeInfo, bool) {
	if h == 0 || int(h) > len(idx.attributes) {
		return nil, false
	}
	return idx.attributes[h-1], true
}

// AttributeByName finds an attribute available at class c, declared there
// or inherited.
func (idx *Index) AttributeByName(c handle.ObjectClass, name string) (handle.Attribute, bool) {
	info, ok := idx.ObjectClass(c)
	if !ok {
		return 0, false
	}
	for a := range info.Attributes {
		if idx.attributes[a-1].Name == name {
			return a, true
		}
	}
	return 0, false
}

// PrivilegeToDeleteOf returns the delete privilege attribute of class c.
func (idx *Index) PrivilegeToDeleteOf(c handle.ObjectClass) handle.Attribute {
	a, _ := idx.AttributeByName(c, PrivilegeToDelete)
	return a
}

// IsObjectSubclass reports whether c is sub, or derives from it.
func (idx *Index) IsObjectSubclass(c, sub handle.ObjectClass) bool {
	for ; c != 0; c = idx.classes[c-1].Parent {
		if c == sub {
			return true
		}
	}
	return false
}

// ObjectAncestors returns c followed by its ancestors up to the root.
func (idx *Index) ObjectAncestors(c handle.ObjectClass) []handle.ObjectClass {
	var out []handle.ObjectClass
	for ; c != 0 && int(c) <= len(idx.classes); c = idx.classes[c-1].Parent {
		out = append(out, c)
	}
	return out
}

// NumObjectClasses ...
func (idx *Index) NumObjectClasses() int {
	return len(idx.classes)
}

// InteractionClass ...
func (idx *Index) InteractionClass(h handle.InteractionClass) (*InteractionClassInfo, bool) {
	if h == 0 || int(h) > len(idx.interactions) {
		return nil, false
	}
	return idx.interactions[h-1], true
}

// InteractionClassByName ...
func (idx *Index) InteractionClassByName(name string) (handle.InteractionClass, bool) {
	h, ok := idx.interNames[name]
	return h, ok
}

// Parameter ...
func (idx *Index) Parameter(h handle.Parameter) (*ParameterInfo, bool) {
	if h == 0 || int(h) > len(idx.parameters) {
		return nil, false
	}
	return idx.parameters[h-1], true
}

// ParameterByName finds a parameter available at interaction class c.
func (idx *Index) ParameterByName(c handle.InteractionClass, name string) (handle.Parameter, bool) {
	info, ok := idx.InteractionClass(c)
	if !ok {
		return 0, false
	}
	for p := range info.Parameters {
		if idx.parameters[p-1].Name == name {
			return p, true
		}
	}
	return 0, false
}

// InteractionAncestors returns c followed by its ancestors up to the root.
func (idx *Index) InteractionAncestors(c handle.InteractionClass) []handle.InteractionClass {
	var out []handle.InteractionClass
	for ; c != 0 && int(c) <= len(idx.interactions); c = idx.interactions[c-1].Parent {
		out = append(out, c)
	}
	return out
}

// Dimension ...
func (idx *Index) Dimension(name string) (handle.Dimension, bool) {
	h, ok := idx.dimensions[name]
	return h, ok
}

// DimensionName ...
func (idx *Index) DimensionName(h handle.Dimension) (string, bool) {
	if h == 0 || int(h) > len(idx.dimNames) {
		return "", false
	}
	return idx.dimNames[h-1], true
}

// DimensionUpperBound returns the exclusive upper bound of dimension h. A
// dimension declared without one spans the whole uint64 range.
func (idx *Index) DimensionUpperBound(h handle.Dimension) (uint64, bool) {
	if h == 0 || int(h) > len(idx.dimNames) {
		return 0, false
	}
	ub := idx.Model.Dimensions[h-1].UpperBound
	if ub == 0 {
		ub = math.MaxUint64
	}
	return ub, true
}
