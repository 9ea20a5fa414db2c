package federation

import (
	"testing"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/stretchr/testify/require"
)

func lane(lower, upper uint64) map[handle.Dimension]message.Range {
	return map[handle.Dimension]message.Range{dimLane: {Lower: lower, Upper: upper}}
}

// createRegion makes a region covering [lower, upper) of the Lane dimension.
func (m *testMember) createRegion(lower, upper uint64) handle.Region {
	r := m.ok(&message.Request{Op: message.OpCreateRegion, Dimensions: []handle.Dimension{dimLane}}).Region
	require.NotZero(m.h.t, r)
	m.ok(&message.Request{Op: message.OpCommitRegionModifications, Region: r, Ranges: lane(lower, upper)})
	return r
}

func (m *testMember) subscribeIn(c handle.ObjectClass, r handle.Region, attrs ...handle.Attribute) {
	m.ok(&message.Request{
		Op:          message.OpSubscribeObjectClassAttributes,
		ObjectClass: c,
		Attributes:  attrs,
		Regions:     []handle.Region{r},
	})
}

func TestRegionLifecycle(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.fails(cm.InvalidDimensionHandle, &message.Request{Op: message.OpCreateRegion, Dimensions: []handle.Dimension{9}})

	r := a.createRegion(10, 20)
	b.fails(cm.RegionNotCreatedByThisFederate, &message.Request{
		Op:     message.OpCommitRegionModifications,
		Region: r,
		Ranges: lane(0, 5),
	})
	a.fails(cm.InvalidRangeBound, &message.Request{Op: message.OpCommitRegionModifications, Region: r, Ranges: lane(5, 5)})
	a.fails(cm.InvalidRangeBound, &message.Request{Op: message.OpCommitRegionModifications, Region: r, Ranges: lane(0, 101)})

	empty := a.ok(&message.Request{Op: message.OpCreateRegion}).Region
	require.NotEqual(t, r, empty)
	a.fails(cm.RegionDoesNotContainSpecifiedDimension, &message.Request{
		Op:     message.OpCommitRegionModifications,
		Region: empty,
		Ranges: lane(0, 5),
	})

	a.subscribeIn(classVehicle, r, attrPosition)
	a.fails(cm.RegionInUseForUpdateOrSubscription, &message.Request{Op: message.OpDeleteRegion, Region: r})
	b.fails(cm.RegionNotCreatedByThisFederate, &message.Request{Op: message.OpSubscribeObjectClassAttributes, ObjectClass: classVehicle, Regions: []handle.Region{r}})

	a.ok(&message.Request{Op: message.OpUnsubscribeObjectClassAttributes, ObjectClass: classVehicle, Regions: []handle.Region{r}})
	a.ok(&message.Request{Op: message.OpDeleteRegion, Region: r})
	a.fails(cm.InvalidRegion, &message.Request{Op: message.OpDeleteRegion, Region: r})
}

func TestRegionOverlapFiltersDiscoveryAndReflect(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")
	c := h.join("fx", "c")
	d := h.join("fx", "d")

	a.publish(classVehicle, attrPosition, attrLabel)
	ra := a.createRegion(10, 20)
	b.subscribeIn(classVehicle, b.createRegion(15, 30), attrLabel)
	rc := c.createRegion(50, 60)
	c.subscribeIn(classVehicle, rc, attrLabel)
	d.subscribe(classVehicle, attrLabel)

	resp := a.ok(&message.Request{
		Op:          message.OpRegisterObjectInstance,
		ObjectClass: classVehicle,
		Regions:     []handle.Region{ra},
	})
	obj := resp.Instance

	require.Len(t, b.takeKind(message.DiscoverObjectInstance), 1)
	require.Len(t, d.takeKind(message.DiscoverObjectInstance), 1)
	require.Empty(t, c.take())

	update := func() {
		a.ok(&message.Request{
			Op:       message.OpUpdateAttributeValues,
			Instance: obj,
			Values:   map[handle.Attribute][]byte{attrLabel: []byte("red")},
		})
	}
	update()
	require.Len(t, b.takeKind(message.ReflectAttributeValues), 1)
	require.Len(t, d.takeKind(message.ReflectAttributeValues), 1)
	require.Empty(t, c.take())

	// Growing c's region brings the instance into view.
	c.ok(&message.Request{Op: message.OpCommitRegionModifications, Region: rc, Ranges: lane(0, 60)})
	cbs := c.take()
	require.Equal(t, []message.Kind{message.DiscoverObjectInstance}, kinds(cbs))
	require.Equal(t, obj, cbs[0].Instance)

	update()
	require.Len(t, c.takeKind(message.ReflectAttributeValues), 1)

	b.fails(cm.RegionNotCreatedByThisFederate, &message.Request{
		Op:          message.OpRegisterObjectInstance,
		ObjectClass: classVehicle,
		Regions:     []handle.Region{ra},
	})
}

func TestRegionOverlapFiltersInteractions(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")
	c := h.join("fx", "c")

	a.ok(&message.Request{Op: message.OpPublishInteractionClass, Interaction: interCollision})
	ra := a.createRegion(0, 10)
	rb := b.createRegion(5, 15)
	b.ok(&message.Request{Op: message.OpSubscribeInteractionClass, Interaction: interCollision, Regions: []handle.Region{rb}})
	c.ok(&message.Request{Op: message.OpSubscribeInteractionClass, Interaction: interCollision, Regions: []handle.Region{c.createRegion(20, 30)}})

	a.ok(&message.Request{Op: message.OpSendInteraction, Interaction: interCollision, Regions: []handle.Region{ra}})
	require.Len(t, b.takeKind(message.ReceiveInteraction), 1)
	require.Empty(t, c.take())

	// Without regions the interaction goes to the default region.
	a.ok(&message.Request{Op: message.OpSendInteraction, Interaction: interCollision})
	require.Len(t, b.takeKind(message.ReceiveInteraction), 1)
	require.Len(t, c.takeKind(message.ReceiveInteraction), 1)

	a.fails(cm.RegionNotCreatedByThisFederate, &message.Request{
		Op:          message.OpSendInteraction,
		Interaction: interCollision,
		Regions:     []handle.Region{rb},
	})

	// Dropping b's last region ends its subscription.
	b.ok(&message.Request{Op: message.OpUnsubscribeInteractionClass, Interaction: interCollision, Regions: []handle.Region{rb}})
	a.ok(&message.Request{Op: message.OpSendInteraction, Interaction: interCollision})
	require.Empty(t, b.take())
	b.ok(&message.Request{Op: message.OpDeleteRegion, Region: rb})
}

func TestResignReleasesRegions(t *testing.T) {
	h := newHarness(t)
	h.create("fx")
	a := h.join("fx", "a")
	b := h.join("fx", "b")

	a.publish(classVehicle, attrPosition)
	ra := a.createRegion(0, 10)
	b.subscribeIn(classVehicle, b.createRegion(50, 60), attrPosition)
	a.ok(&message.Request{
		Op:          message.OpRegisterObjectInstance,
		ObjectClass: classVehicle,
		Regions:     []handle.Region{ra},
	})
	require.Empty(t, b.take())

	// The instance survives a and loses its region.
	a.ok(&message.Request{Op: message.OpResign, ResignAction: message.UnconditionallyDivestAttributes})
	require.Len(t, b.takeKind(message.DiscoverObjectInstance), 1)
}
