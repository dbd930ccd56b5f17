package mesh

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// CheckCenter reports a CenterOutsideWarning when c does not fall inside any
// polygon of g. Archipelagos and ring-shaped zones legitimately have their
// mass centroid in open water, so this is a diagnostic only.
func CheckCenter(name string, g orb.Geometry, c orb.Point) error {
	polys, ok := polygons(g)
	if !ok || len(polys) == 0 {
		return nil
	}

	for _, p := range polys {
		u := framePolygon(p)
		if len(u) == 0 || len(u[0]) == 0 {
			continue
		}
		probe := orb.Point{shiftNear(c[0], u[0][0][0]), c[1]}
		if planar.PolygonContains(u, probe) || planar.PolygonContains(u, c) {
			return nil
		}
	}

	return &CenterOutsideWarning{
		Name:       name,
		Center:     c,
		DistanceKM: nearestVertexKM(polys, c),
	}
}

// nearestVertexKM is the geodesic distance from c to the closest vertex.
func nearestVertexKM(polys []orb.Polygon, c orb.Point) float64 {
	best := math.Inf(1)
	for _, p := range polys {
		for _, ring := range p {
			for _, pt := range ring {
				if d := geo.Distance(c, pt); d < best {
					best = d
				}
			}
		}
	}
	return best / 1000
}
