package mesh

import (
	"github.com/paulmach/orb"
)

// Aggregate merges member geometries into a single MultiPolygon whose ring
// sets are the concatenation of every member's ring sets, in member order.
//
// Nothing is dissolved, deduplicated or hulled: shared borders between
// members stay as separate rings and the topology encoder turns them into
// shared arcs. Coordinates and winding are copied untouched, so callers may
// keep using the inputs afterwards.
//
// Returns ErrEmptyZone when members is empty and an UnsupportedGeometryError
// when a member is not a Polygon or MultiPolygon.
func Aggregate(members []orb.Geometry) (orb.MultiPolygon, error) {
	if len(members) == 0 {
		return nil, ErrEmptyZone
	}

	size := 0
	for _, g := range members {
		polys, ok := polygons(g)
		if !ok {
			return nil, &UnsupportedGeometryError{Type: geometryTypeName(g)}
		}
		size += len(polys)
	}

	merged := make(orb.MultiPolygon, 0, size)
	for _, g := range members {
		polys, _ := polygons(g)
		for _, p := range polys {
			merged = append(merged, p.Clone())
		}
	}

	return merged, nil
}
