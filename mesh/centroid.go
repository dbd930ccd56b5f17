package mesh

import (
	"math"

	"github.com/paulmach/orb"
)

// minPolygonArea is the planar area (square degrees) below which a polygon
// carries no weight in the center computation.
const minPolygonArea = 1e-12

// Center is the representative point of a polygonal geometry.
type Center struct {
	Point orb.Point
	// Degenerate is set when the geometry had zero total area and Point is
	// the plain average of its vertices.
	Degenerate bool
}

// ComputeCenter returns the area-weighted centroid of a Polygon or
// MultiPolygon in [lon, lat] degrees.
//
// Each polygon is unwrapped on its own so that no ring jumps more than 180°
// of longitude between consecutive points (polygons with a ring circling a
// pole are kept on raw longitudes instead), then its shoelace centroid is
// computed with holes subtracted. Polygon centroids are averaged weighted by
// absolute area, in the longitude frame of the largest polygon, and the result
// is wrapped back into [-180, 180].
//
// For a single polygon that does not cross the antimeridian the result is its
// exact area centroid. Geometries with zero total area fall back to the
// vertex average and are flagged Degenerate.
func ComputeCenter(g orb.Geometry) Center {
	polys, ok := polygons(g)
	if !ok {
		return Center{Degenerate: true}
	}

	type part struct {
		centroid orb.Point
		area     float64
	}

	parts := make([]part, 0, len(polys))
	largest := -1
	for _, p := range polys {
		c, a := polygonCentroidArea(framePolygon(p))
		if a <= minPolygonArea {
			continue
		}
		parts = append(parts, part{centroid: c, area: a})
		if largest < 0 || a > parts[largest].area {
			largest = len(parts) - 1
		}
	}

	if len(parts) == 0 {
		return Center{Point: vertexAverage(polys), Degenerate: true}
	}

	ref := parts[largest].centroid[0]
	var sumX, sumY, total float64
	for _, pt := range parts {
		sumX += shiftNear(pt.centroid[0], ref) * pt.area
		sumY += pt.centroid[1] * pt.area
		total += pt.area
	}

	return Center{Point: orb.Point{wrapLongitude(sumX / total), sumY / total}}
}

// polygonCentroidArea returns the centroid and area of a polygon with its
// holes subtracted. Area is zero for degenerate polygons.
func polygonCentroidArea(p orb.Polygon) (orb.Point, float64) {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Point{}, 0
	}

	// Moments are taken relative to the first vertex to keep the cross
	// products small.
	base := p[0][0]
	area, mx, my := ringMoments(p[0], base)
	for _, hole := range p[1:] {
		ha, hx, hy := ringMoments(hole, base)
		area -= ha
		mx -= hx
		my -= hy
	}

	if area <= minPolygonArea {
		return orb.Point{}, 0
	}
	return orb.Point{base[0] + mx/area, base[1] + my/area}, area
}

// ringMoments returns the absolute area of a ring and its first moments
// (area times centroid) relative to base. Winding does not matter. Rings may
// be closed or open.
func ringMoments(r orb.Ring, base orb.Point) (area, mx, my float64) {
	n := len(r)
	if n < 3 {
		return 0, 0, 0
	}

	var a2, cx, cy float64
	for i := 0; i < n; i++ {
		x0, y0 := r[i][0]-base[0], r[i][1]-base[1]
		x1, y1 := r[(i+1)%n][0]-base[0], r[(i+1)%n][1]-base[1]
		cross := x0*y1 - x1*y0
		a2 += cross
		cx += (x0 + x1) * cross
		cy += (y0 + y1) * cross
	}

	if a2 == 0 {
		return 0, 0, 0
	}

	// a2 is twice the signed area; the centroid is (cx, cy) / (3 * a2).
	area = math.Abs(a2) / 2
	mx = area * cx / (3 * a2)
	my = area * cy / (3 * a2)
	return area, mx, my
}

// framePolygon returns p in the longitude frame its centroid is computed in:
// unwrapped, unless one of its rings circles a pole. Unwrapping such a ring
// leaves its ends 360° apart, so it is used as drawn, spanning [-180, 180].
func framePolygon(p orb.Polygon) orb.Polygon {
	for _, ring := range p {
		if circlesPole(ring) {
			return p
		}
	}
	return unwrapPolygon(p)
}

// circlesPole reports whether walking r, taking the short way round at every
// step including the closing one, travels a full turn of longitude.
func circlesPole(r orb.Ring) bool {
	n := len(r)
	if n < 3 {
		return false
	}
	var turn float64
	for i := 0; i < n; i++ {
		x0, x1 := r[i][0], r[(i+1)%n][0]
		turn += shiftNear(x1, x0) - x0
	}
	return math.Abs(turn) > 180
}

// unwrapPolygon returns a copy of p whose longitudes never jump more than
// 180° between consecutive points. Every ring starts near the polygon's first
// outer vertex, so holes share the outer ring's frame.
func unwrapPolygon(p orb.Polygon) orb.Polygon {
	if len(p) == 0 || len(p[0]) == 0 {
		return p
	}

	anchor := p[0][0][0]
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		r := make(orb.Ring, len(ring))
		prev := anchor
		for j, pt := range ring {
			x := shiftNear(pt[0], prev)
			r[j] = orb.Point{x, pt[1]}
			prev = x
		}
		out[i] = r
	}
	return out
}

// vertexAverage is the unweighted mean of all vertices, each polygon
// unwrapped and shifted into the frame of the first one. The closing vertex
// of a ring is not counted twice.
func vertexAverage(polys []orb.Polygon) orb.Point {
	var sumX, sumY float64
	var n int
	anchor := math.NaN()

	for _, p := range polys {
		u := framePolygon(p)
		if len(u) == 0 || len(u[0]) == 0 {
			continue
		}
		if math.IsNaN(anchor) {
			anchor = u[0][0][0]
		}
		offset := shiftNear(u[0][0][0], anchor) - u[0][0][0]

		for _, ring := range u {
			pts := ring
			if len(pts) > 1 && pts[0] == pts[len(pts)-1] {
				pts = pts[:len(pts)-1]
			}
			for _, pt := range pts {
				sumX += pt[0] + offset
				sumY += pt[1]
				n++
			}
		}
	}

	if n == 0 {
		return orb.Point{}
	}
	return orb.Point{wrapLongitude(sumX / float64(n)), sumY / float64(n)}
}

// shiftNear moves longitude x by multiples of 360° so it lies within 180° of
// ref. Values already within range are returned unchanged.
func shiftNear(x, ref float64) float64 {
	d := x - ref
	if math.Abs(d) <= 180 {
		return x
	}
	return ref + math.Remainder(d, 360)
}

// wrapLongitude maps a longitude into [-180, 180].
func wrapLongitude(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
