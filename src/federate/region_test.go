package federate

import (
	"testing"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func laneRegion(t *testing.T, a *Ambassador, lower, upper uint64) handle.Region {
	t.Helper()
	ctx := testContext(t)
	r, err := a.CreateRegion(ctx, dimLane)
	require.NoError(t, err)
	require.NoError(t, a.CommitRegionModifications(ctx, r, map[handle.Dimension]message.Range{
		dimLane: {Lower: lower, Upper: upper},
	}))
	return r
}

func TestRegionScopedExchange(t *testing.T) {
	root := newTestNode(t, "root", nil)
	leaf := newTestNode(t, "leaf", root)
	ctx := testContext(t)

	a := connect(t, leaf, "alice")
	b := connect(t, root, "bob")
	c := connect(t, root, "carol")

	require.NoError(t, a.CreateFederationExecution(ctx, "traffic", loadModel(t)))
	for _, m := range []*Ambassador{a, b, c} {
		_, err := m.JoinFederationExecution(ctx, "", "", "traffic")
		require.NoError(t, err)
	}

	attrs := []handle.Attribute{attrPosition}
	rb := laneRegion(t, b, 0, 10)
	require.NoError(t, b.SubscribeObjectClassAttributesWithRegions(ctx, classVehicle, attrs, []handle.Region{rb}))
	require.NoError(t, b.SubscribeInteractionClassWithRegions(ctx, interCollision, []handle.Region{rb}))
	rc := laneRegion(t, c, 50, 60)
	require.NoError(t, c.SubscribeObjectClassAttributesWithRegions(ctx, classVehicle, attrs, []handle.Region{rc}))
	require.NoError(t, c.SubscribeInteractionClassWithRegions(ctx, interCollision, []handle.Region{rc}))

	require.NoError(t, a.PublishObjectClassAttributes(ctx, classVehicle, attrs))
	require.NoError(t, a.PublishInteractionClass(ctx, interCollision))
	ra := laneRegion(t, a, 5, 8)

	obj, _, err := a.RegisterObjectInstanceWithRegions(ctx, classVehicle, "", []handle.Region{ra})
	require.NoError(t, err)
	cb := expect(t, b, message.DiscoverObjectInstance)
	assert.Equal(t, obj, cb.Instance)

	params := map[handle.Parameter][]byte{paramForce: []byte("3")}
	require.NoError(t, a.SendInteractionWithRegions(ctx, interCollision, params, []handle.Region{ra}, nil))
	expect(t, b, message.ReceiveInteraction)

	// Out of every region, c sees only the unscoped interaction.
	require.NoError(t, a.SendInteraction(ctx, interCollision, params, nil))
	expect(t, b, message.ReceiveInteraction)
	cb = expect(t, c, message.ReceiveInteraction)
	assert.Equal(t, a.Federate(), cb.Federate)

	err = c.DeleteRegion(ctx, rc)
	assert.True(t, cm.IsRTI(err, cm.RegionInUseForUpdateOrSubscription), "delete in use: %v", err)
	require.NoError(t, c.UnsubscribeInteractionClassWithRegions(ctx, interCollision, []handle.Region{rc}))
	require.NoError(t, c.UnsubscribeObjectClassAttributesWithRegions(ctx, classVehicle, []handle.Region{rc}))
	require.NoError(t, c.DeleteRegion(ctx, rc))
}
