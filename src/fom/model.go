package fom

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Order is the preferred delivery order of an attribute or interaction.
type Order string

const (
	// TimeStamp order is used when the sender provides a time stamp.
	TimeStamp Order = "TimeStamp"
	// Receive order is always used, time stamps are only informative.
	Receive Order = "Receive"
)

// Model is a resolved federation object model.
type Model struct {
	Name               string             `yaml:"name" codec:"name"`
	TimeImplementation string             `yaml:"time" codec:"time"`
	ObjectClasses      []ObjectClass      `yaml:"objectClasses" codec:"objectClasses"`
	InteractionClasses []InteractionClass `yaml:"interactionClasses" codec:"interactionClasses"`
	Dimensions         []Dimension        `yaml:"dimensions" codec:"dimensions"`
}

// ObjectClass declares an object class. Parent is empty for a root class.
type ObjectClass struct {
	Name       string      `yaml:"name" codec:"name"`
	Parent     string      `yaml:"parent" codec:"parent"`
	Attributes []Attribute `yaml:"attributes" codec:"attributes"`
}

// Attribute declares an attribute of an object class.
type Attribute struct {
	Name       string   `yaml:"name" codec:"name"`
	Order      Order    `yaml:"order" codec:"order"`
	Dimensions []string `yaml:"dimensions" codec:"dimensions"`
}

// InteractionClass declares an interaction class.
type InteractionClass struct {
	Name       string      `yaml:"name" codec:"name"`
	Parent     string      `yaml:"parent" codec:"parent"`
	Order      Order       `yaml:"order" codec:"order"`
	Parameters []Parameter `yaml:"parameters" codec:"parameters"`
	Dimensions []string    `yaml:"dimensions" codec:"dimensions"`
}

// Parameter declares a parameter of an interaction class.
type Parameter struct {
	Name string `yaml:"name" codec:"name"`
}

// Dimension declares a routing space dimension.
type Dimension struct {
	Name       string `yaml:"name" codec:"name"`
	UpperBound uint64 `yaml:"upperBound" codec:"upperBound"`
}

// Decode reads a YAML model document and validates it.
func Decode(r io.Reader) (*Model, error) {
	var m Model
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding model: %v", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that class names are unique, parents exist, the
// hierarchies are acyclic, and that no class redeclares an inherited
// attribute or parameter.
func (m *Model) Validate() error {
	dims := make(map[string]bool, len(m.Dimensions))
	for _, d := range m.Dimensions {
		if d.Name == "" {
			return fmt.Errorf("dimension without a name")
		}
		if dims[d.Name] {
			return fmt.Errorf("duplicate dimension %q", d.Name)
		}
		dims[d.Name] = true
	}

	objects := make(map[string]*ObjectClass, len(m.ObjectClasses))
	for i := range m.ObjectClasses {
		oc := &m.ObjectClasses[i]
		if oc.Name == "" {
			return fmt.Errorf("object class without a name")
		}
		if _, ok := objects[oc.Name]; ok {
			return fmt.Errorf("duplicate object class %q", oc.Name)
		}
		if err := checkOrders(oc.Name, oc.attributeOrders()); err != nil {
			return err
		}
		for _, a := range oc.Attributes {
			if err := checkDimensions(dims, oc.Name+"."+a.Name, a.Dimensions); err != nil {
				return err
			}
		}
		objects[oc.Name] = oc
	}
	for _, oc := range m.ObjectClasses {
		seen := make(map[string]bool)
		steps := 0
		for c := &oc; c != nil; {
			for _, a := range c.Attributes {
				if a.Name == "" {
					return fmt.Errorf("object class %q has an attribute without a name", c.Name)
				}
				if seen[a.Name] {
					return fmt.Errorf("object class %q redeclares attribute %q", oc.Name, a.Name)
				}
				seen[a.Name] = true
			}
			if c.Parent == "" {
				break
			}
			p, ok := objects[c.Parent]
			if !ok {
				return fmt.Errorf("object class %q has unknown parent %q", c.Name, c.Parent)
			}
			if steps++; steps > len(m.ObjectClasses) {
				return fmt.Errorf("object class %q is part of a cycle", oc.Name)
			}
			c = p
		}
	}

	interactions := make(map[string]*InteractionClass, len(m.InteractionClasses))
	for i := range m.InteractionClasses {
		ic := &m.InteractionClasses[i]
		if ic.Name == "" {
			return fmt.Errorf("interaction class without a name")
		}
		if _, ok := interactions[ic.Name]; ok {
			return fmt.Errorf("duplicate interaction class %q", ic.Name)
		}
		if err := checkOrders(ic.Name, []Order{ic.Order}); err != nil {
			return err
		}
		if err := checkDimensions(dims, ic.Name, ic.Dimensions); err != nil {
			return err
		}
		interactions[ic.Name] = ic
	}
	for _, ic := range m.InteractionClasses {
		seen := make(map[string]bool)
		steps := 0
		for c := &ic; c != nil; {
			for _, p := range c.Parameters {
				if p.Name == "" {
					return fmt.Errorf("interaction class %q has a parameter without a name", c.Name)
				}
				if seen[p.Name] {
					return fmt.Errorf("interaction class %q redeclares parameter %q", ic.Name, p.Name)
				}
				seen[p.Name] = true
			}
			if c.Parent == "" {
				break
			}
			p, ok := interactions[c.Parent]
			if !ok {
				return fmt.Errorf("interaction class %q has unknown parent %q", c.Name, c.Parent)
			}
			if steps++; steps > len(m.InteractionClasses) {
				return fmt.Errorf("interaction class %q is part of a cycle", ic.Name)
			}
			c = p
		}
	}

	return nil
}

func (oc *ObjectClass) attributeOrders() []Order {
	orders := make([]Order, 0, len(oc.Attributes))
	for _, a := range oc.Attributes {
		orders = append(orders, a.Order)
	}
	return orders
}

func checkOrders(owner string, orders []Order) error {
	for _, o := range orders {
		switch o {
		case "", TimeStamp, Receive:
		default:
			return fmt.Errorf("%s: unknown order type %q", owner, o)
		}
	}
	return nil
}

func checkDimensions(known map[string]bool, owner string, names []string) error {
	for _, n := range names {
		if !known[n] {
			return fmt.Errorf("%s: unknown dimension %q", owner, n)
		}
	}
	return nil
}

// OrderOrDefault returns o, or TimeStamp when o is unset.
func (o Order) OrderOrDefault() Order {
	if o == "" {
		return TimeStamp
	}
	return o
}
