package mesh

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// rect returns a closed counter-clockwise rectangle polygon
func rect(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

// circle approximates a disc with n vertices
func circle(cx, cy, r float64, n int) orb.Polygon {
	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		ring = append(ring, orb.Point{cx + r*math.Cos(a), cy + r*math.Sin(a)})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

func region(id string, g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.Properties["zoneName"] = id
	f.Properties["source"] = "fixture"
	return f
}

// usWorld is a coarse world: the contiguous US split in three bands, three
// outlying territories (one across the Pacific), Canada and France.
//
// The mainland tiles lon -124..-73.2, lat 30.8..48.8, whose centroid is
// (-98.6, 39.8). The bounding box of all US parts is centered near -5.5,
// which is where a naive bbox center lands (Europe).
func usWorld() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(region("US-WEST", rect(-124, 30.8, -107, 48.8)))
	fc.Append(region("CA", rect(-140, 49, -60, 70)))
	fc.Append(region("US-CENTRAL", rect(-107, 30.8, -90, 48.8)))
	fc.Append(region("US-HI", rect(-156, 19.1, -155, 20.1)))
	fc.Append(region("FR", orb.MultiPolygon{rect(0, 43, 8, 51), rect(8.5, 41.4, 9.5, 43)}))
	fc.Append(region("US-EAST", rect(-90, 30.8, -73.2, 48.8)))
	fc.Append(region("US-PR", rect(-67.15, 18.0, -65.85, 18.4)))
	fc.Append(region("US-GU", rect(144.7, 13.3, 144.9, 13.6)))
	return fc
}

func usZones() []ZoneDefinition {
	return []ZoneDefinition{
		{
			ID:         "US",
			Members:    []string{"US-WEST", "US-CENTRAL", "US-EAST", "US-HI", "US-PR", "US-GU"},
			Properties: map[string]interface{}{"label": "United States"},
		},
	}
}

// featureByName finds an output feature by its zoneName property
func featureByName(fc *geojson.FeatureCollection, name string) *geojson.Feature {
	for _, f := range fc.Features {
		if n, _ := f.Properties[PropZoneName].(string); n == name {
			return f
		}
	}
	return nil
}
