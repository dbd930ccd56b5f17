package mesh

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const featureCollectionType = "FeatureCollection"

// ParseWorld decodes a GeoJSON FeatureCollection of region features
func ParseWorld(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing world GeoJSON: %w", err)
	}
	if fc.Type != featureCollectionType {
		return nil, fmt.Errorf("parsing world GeoJSON: type %q is not a %s", fc.Type, featureCollectionType)
	}
	return fc, nil
}

// ReadWorld loads the world collection from a local path or an http(s) URL.
// URLs are fetched with retries (see FetchWorld); options are ignored for
// local files.
func ReadWorld(ctx context.Context, source string, opts ...FetchOption) (*geojson.FeatureCollection, error) {
	if source == "" {
		return nil, fmt.Errorf("read world: source is empty")
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return FetchWorld(ctx, source, opts...)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read world: %w", err)
	}
	return ParseWorld(data)
}

// RegionID returns the identifier of a region feature: the string value of
// the given property, falling back to the feature ID.
func RegionID(f *geojson.Feature, property string) (string, bool) {
	if f == nil {
		return "", false
	}
	if property != "" {
		if v, ok := f.Properties[property].(string); ok && v != "" {
			return v, true
		}
	}

	switch id := f.ID.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case int:
		return strconv.Itoa(id), true
	case nil:
		return "", false
	default:
		s := fmt.Sprint(id)
		return s, s != ""
	}
}

// polygons returns the ring sets of a Polygon or MultiPolygon geometry.
// The bool is false for any other geometry type.
func polygons(g orb.Geometry) ([]orb.Polygon, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}, true
	case orb.MultiPolygon:
		return v, true
	default:
		return nil, false
	}
}

// geometryTypeName names a geometry for error messages
func geometryTypeName(g orb.Geometry) string {
	if g == nil {
		return "null"
	}
	return g.GeoJSONType()
}

// cloneProperties returns a shallow copy of a property bag (never nil)
func cloneProperties(p geojson.Properties) geojson.Properties {
	out := make(geojson.Properties, len(p)+4)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// centerValue renders a center as the [lon, lat] property value, rounding to
// precision decimals when precision > 0.
func centerValue(p orb.Point, precision int) []float64 {
	if precision <= 0 {
		return []float64{p[0], p[1]}
	}
	scale := math.Pow(10, float64(precision))
	return []float64{
		math.Round(p[0]*scale) / scale,
		math.Round(p[1]*scale) / scale,
	}
}

// newZoneFeature builds the aggregated output feature for a zone
func newZoneFeature(zone ZoneDefinition, geom orb.MultiPolygon, members []string, center []float64) *geojson.Feature {
	f := geojson.NewFeature(geom)
	f.ID = zone.ID
	props := make(geojson.Properties, len(zone.Properties)+4)
	for k, v := range zone.Properties {
		props[k] = v
	}
	props[PropZoneName] = zone.ID
	props[PropMembers] = members
	props[PropAggregatedView] = true
	props[PropCenter] = center
	f.Properties = props
	return f
}

// newPassthroughFeature copies an unassigned region into the output
func newPassthroughFeature(id string, region *geojson.Feature, center []float64) *geojson.Feature {
	f := geojson.NewFeature(orb.Clone(region.Geometry))
	f.ID = id
	f.BBox = region.BBox
	props := cloneProperties(region.Properties)
	props[PropZoneName] = id
	props[PropAggregatedView] = false
	props[PropCenter] = center
	f.Properties = props
	return f
}
