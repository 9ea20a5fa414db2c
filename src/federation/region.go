package federation

import (
	"sort"

	cm "github.com/mosaicnetworks/rtinet/src/common"
	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/message"
	"github.com/sirupsen/logrus"
)

// region bounds a subscription, registration or interaction along some
// dimensions. Dimensions it does not list are unbounded.
type region struct {
	handle handle.Region
	owner  handle.Federate
	ranges map[handle.Dimension]message.Range
}

// overlaps compares the dimensions both regions list.
func (r *region) overlaps(o *region) bool {
	for d, a := range r.ranges {
		if b, ok := o.ranges[d]; ok && !a.Overlaps(b) {
			return false
		}
	}
	return true
}

// createRegion makes a region spanning the full range of each dimension.
func (e *Execution) createRegion(m *member, req *message.Request, resp *message.Response) error {
	ranges := make(map[handle.Dimension]message.Range, len(req.Dimensions))
	for _, d := range req.Dimensions {
		ub, ok := e.index.DimensionUpperBound(d)
		if !ok {
			return cm.NewRTIErr(cm.InvalidDimensionHandle, "%s", handle.Format(handle.DimensionKind, d))
		}
		ranges[d] = message.Range{Upper: ub}
	}
	r := &region{
		handle: e.regionHandles.Next(),
		owner:  m.handle,
		ranges: ranges,
	}
	e.regions[r.handle] = r
	resp.Region = r.handle

	e.logger.WithFields(logrus.Fields{
		"federate":   m.handle,
		"region":     r.handle,
		"dimensions": len(ranges),
	}).Debug("Region created")

	return nil
}

func (e *Execution) ownRegion(m *member, h handle.Region) (*region, error) {
	r, ok := e.regions[h]
	if !ok {
		return nil, cm.NewRTIErr(cm.InvalidRegion, "%s", handle.Format(handle.RegionKind, h))
	}
	if r.owner != m.handle {
		return nil, cm.NewRTIErr(cm.RegionNotCreatedByThisFederate, "%s", handle.Format(handle.RegionKind, h))
	}
	return r, nil
}

func (e *Execution) ownRegions(m *member, hs []handle.Region) error {
	for _, h := range hs {
		if _, err := e.ownRegion(m, h); err != nil {
			return err
		}
	}
	return nil
}

// commitRegionModifications replaces the ranges of the listed dimensions.
// Instances that come into view are discovered. Instances already
// discovered stay known when a region shrinks.
func (e *Execution) commitRegionModifications(m *member, req *message.Request, resp *message.Response) error {
	r, err := e.ownRegion(m, req.Region)
	if err != nil {
		return err
	}
	for d, rg := range req.Ranges {
		if _, ok := r.ranges[d]; !ok {
			return cm.NewRTIErr(cm.RegionDoesNotContainSpecifiedDimension, "%s in %s",
				handle.Format(handle.DimensionKind, d), handle.Format(handle.RegionKind, r.handle))
		}
		ub, _ := e.index.DimensionUpperBound(d)
		if rg.Lower >= rg.Upper || rg.Upper > ub {
			return cm.NewRTIErr(cm.InvalidRangeBound, "[%d, %d) for %s", rg.Lower, rg.Upper,
				handle.Format(handle.DimensionKind, d))
		}
	}
	for d, rg := range req.Ranges {
		r.ranges[d] = rg
	}

	objects := e.sortedObjects()
	for _, o := range sortedMembers(e.federates) {
		for _, obj := range objects {
			e.discover(o, obj)
		}
	}
	return nil
}

func (e *Execution) deleteRegion(m *member, req *message.Request, resp *message.Response) error {
	r, err := e.ownRegion(m, req.Region)
	if err != nil {
		return err
	}
	if e.regionInUse(r.handle) {
		return cm.NewRTIErr(cm.RegionInUseForUpdateOrSubscription, "%s", handle.Format(handle.RegionKind, r.handle))
	}
	delete(e.regions, r.handle)
	return nil
}

func (e *Execution) regionInUse(h handle.Region) bool {
	for _, m := range e.federates {
		for _, rs := range m.objectRegions {
			if containsRegion(rs, h) {
				return true
			}
		}
		for _, rs := range m.interactionRegions {
			if containsRegion(rs, h) {
				return true
			}
		}
	}
	for _, obj := range e.objects {
		if containsRegion(obj.regions, h) {
			return true
		}
	}
	return false
}

// overlap reports whether some update region meets some subscription
// region. An empty set is the default region and meets everything.
func (e *Execution) overlap(update, subscription []handle.Region) bool {
	if len(update) == 0 || len(subscription) == 0 {
		return true
	}
	for _, u := range update {
		ur, ok := e.regions[u]
		if !ok {
			continue
		}
		for _, s := range subscription {
			if sr, ok := e.regions[s]; ok && ur.overlaps(sr) {
				return true
			}
		}
	}
	return false
}

// forgetRegionsOf deletes the regions m created. Instances m registered
// that outlive it fall back to the default region and may come into view.
func (e *Execution) forgetRegionsOf(m *member) {
	for h, r := range e.regions {
		if r.owner == m.handle {
			delete(e.regions, h)
		}
	}
	for _, obj := range e.sortedObjects() {
		if len(obj.regions) == 0 {
			continue
		}
		kept := obj.regions[:0]
		for _, h := range obj.regions {
			if _, ok := e.regions[h]; ok {
				kept = append(kept, h)
			}
		}
		obj.regions = kept
		for _, o := range sortedMembers(e.federates) {
			e.discover(o, obj)
		}
	}
}

func containsRegion(rs []handle.Region, h handle.Region) bool {
	for _, r := range rs {
		if r == h {
			return true
		}
	}
	return false
}

// addRegions returns the sorted union of rs and more.
func addRegions(rs, more []handle.Region) []handle.Region {
	res := append([]handle.Region(nil), rs...)
	for _, h := range more {
		if !containsRegion(res, h) {
			res = append(res, h)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// removeRegions returns rs without the regions in less.
func removeRegions(rs, less []handle.Region) []handle.Region {
	var res []handle.Region
	for _, h := range rs {
		if !containsRegion(less, h) {
			res = append(res, h)
		}
	}
	return res
}
