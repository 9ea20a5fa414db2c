package fom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const demo = `
name: demo
time: HLAfloat64Time
dimensions:
  - name: X
    upperBound: 100
objectClasses:
  - name: HLAobjectRoot
  - name: Vehicle
    parent: HLAobjectRoot
    attributes:
      - name: Position
        dimensions: [X]
      - name: Name
        order: Receive
  - name: Car
    parent: Vehicle
    attributes:
      - name: Wheels
interactionClasses:
  - name: HLAinteractionRoot
  - name: Collision
    parent: HLAinteractionRoot
    order: TimeStamp
    parameters:
      - name: Force
`

func TestDecode(t *testing.T) {
	m, err := Decode(strings.NewReader(demo))
	require.NoError(t, err)
	require.Equal(t, "demo", m.Name)
	require.Len(t, m.ObjectClasses, 3)
	require.Equal(t, Receive, m.ObjectClasses[1].Attributes[1].Order)
	require.Equal(t, TimeStamp, m.ObjectClasses[1].Attributes[0].Order.OrderOrDefault())
}

func TestDecodeUnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader("name: x\nbogus: 1\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]Model{
		"unknown parent": {ObjectClasses: []ObjectClass{{Name: "A", Parent: "B"}}},
		"duplicate class": {ObjectClasses: []ObjectClass{{Name: "A"}, {Name: "A"}}},
		"cycle": {ObjectClasses: []ObjectClass{{Name: "A", Parent: "B"}, {Name: "B", Parent: "A"}}},
		"redeclared attribute": {ObjectClasses: []ObjectClass{
			{Name: "A", Attributes: []Attribute{{Name: "x"}}},
			{Name: "B", Parent: "A", Attributes: []Attribute{{Name: "x"}}},
		}},
		"unknown order": {InteractionClasses: []InteractionClass{{Name: "I", Order: "Sometimes"}}},
		"unknown dimension": {InteractionClasses: []InteractionClass{{Name: "I", Dimensions: []string{"Z"}}}},
		"redeclared parameter": {InteractionClasses: []InteractionClass{
			{Name: "I", Parameters: []Parameter{{Name: "p"}}},
			{Name: "J", Parent: "I", Parameters: []Parameter{{Name: "p"}}},
		}},
	}
	for name, m := range cases {
		m := m
		t.Run(name, func(t *testing.T) {
			require.Error(t, m.Validate())
		})
	}
}
