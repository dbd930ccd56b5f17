package mesh

import (
	"errors"
	"fmt"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// BuildOption configures BuildZones behavior.
type BuildOption func(*buildConfig)

type buildConfig struct {
	idProperty   string
	precision    int
	checkCenters bool
}

func defaultBuildConfig() buildConfig {
	return buildConfig{
		idProperty:   DefaultIDProperty,
		checkCenters: true,
	}
}

// WithIDProperty sets the region property that holds the region identifier.
func WithIDProperty(property string) BuildOption {
	return func(c *buildConfig) {
		if property != "" {
			c.idProperty = property
		}
	}
}

// WithCenterPrecision rounds output centers to the given number of decimals.
// Zero or negative keeps full precision.
func WithCenterPrecision(decimals int) BuildOption {
	return func(c *buildConfig) {
		c.precision = decimals
	}
}

// WithCenterCheck enables or disables the CenterOutsideWarning diagnostic.
func WithCenterCheck(enabled bool) BuildOption {
	return func(c *buildConfig) {
		c.checkCenters = enabled
	}
}

// BuildResult is the aggregated collection plus non-fatal diagnostics.
type BuildResult struct {
	Collection  *geojson.FeatureCollection
	Warnings    []error
	Zones       int
	Passthrough int
}

// BuildZones folds the regions of world into one feature per zone definition
// and passes every unassigned region through as its own feature. Every output
// feature gets a center property.
//
// Output order is the zone definition order followed by the unassigned
// regions in world order. The world collection is not modified.
func BuildZones(world *geojson.FeatureCollection, zones []ZoneDefinition, opts ...BuildOption) (*BuildResult, error) {
	if world == nil {
		return nil, fmt.Errorf("build zones: world collection is nil")
	}

	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ids, index, err := indexRegions(world, cfg.idProperty)
	if err != nil {
		return nil, err
	}
	owner, err := claimRegions(zones)
	if err != nil {
		return nil, err
	}

	result := &BuildResult{Collection: geojson.NewFeatureCollection()}
	names := make(map[string]bool, len(zones)+len(ids))

	for _, zone := range zones {
		if names[zone.ID] {
			return nil, &DuplicateObjectError{Name: zone.ID}
		}
		names[zone.ID] = true

		members := make([]orb.Geometry, 0, len(zone.Members))
		for _, m := range zone.Members {
			i, ok := index[m]
			if !ok {
				return nil, &UnknownRegionError{Zone: zone.ID, Region: m}
			}
			members = append(members, world.Features[i].Geometry)
		}

		geom, err := Aggregate(members)
		if err != nil {
			if errors.Is(err, ErrEmptyZone) {
				return nil, &EmptyZoneError{Zone: zone.ID}
			}
			return nil, fmt.Errorf("zone %q: %w", zone.ID, err)
		}

		center := cfg.center(result, zone.ID, geom, &zone)
		memberIDs := append([]string(nil), zone.Members...)
		result.Collection.Append(newZoneFeature(zone, geom, memberIDs, center))
		result.Zones++
	}

	for i, f := range world.Features {
		id := ids[i]
		if _, assigned := owner[id]; assigned {
			continue
		}
		if names[id] {
			return nil, &DuplicateObjectError{Name: id}
		}
		names[id] = true

		center := cfg.center(result, id, f.Geometry, nil)
		result.Collection.Append(newPassthroughFeature(id, f, center))
		result.Passthrough++
	}

	return result, nil
}

// center computes (or takes the pinned) center for one output object and
// records diagnostics on result.
func (c buildConfig) center(result *BuildResult, name string, g orb.Geometry, zone *ZoneDefinition) []float64 {
	if zone != nil {
		if p, ok := zone.CenterOverride(); ok {
			return centerValue(p, c.precision)
		}
	}

	ctr := ComputeCenter(g)
	if ctr.Degenerate {
		w := &DegenerateGeometryWarning{Name: name, Center: ctr.Point}
		log.Printf("[BUILD] warning: %v", w)
		result.Warnings = append(result.Warnings, w)
	} else if c.checkCenters {
		if w := CheckCenter(name, g, ctr.Point); w != nil {
			log.Printf("[BUILD] warning: %v", w)
			result.Warnings = append(result.Warnings, w)
		}
	}

	return centerValue(ctr.Point, c.precision)
}

// indexRegions resolves every world feature to its region ID and rejects
// missing IDs, duplicates and non-polygonal or empty geometries.
func indexRegions(world *geojson.FeatureCollection, property string) ([]string, map[string]int, error) {
	ids := make([]string, len(world.Features))
	index := make(map[string]int, len(world.Features))

	for i, f := range world.Features {
		id, ok := RegionID(f, property)
		if !ok {
			return nil, nil, &MissingRegionIDError{Index: i, Property: property}
		}
		if _, dup := index[id]; dup {
			return nil, nil, &DuplicateRegionError{Region: id}
		}
		polys, ok := polygons(f.Geometry)
		if !ok {
			return nil, nil, &UnsupportedGeometryError{Region: id, Type: geometryTypeName(f.Geometry)}
		}
		if !hasVertices(polys) {
			return nil, nil, &UnsupportedGeometryError{Region: id, Type: "empty " + geometryTypeName(f.Geometry)}
		}
		index[id] = i
		ids[i] = id
	}

	return ids, index, nil
}

// claimRegions maps each region to the zone that claims it. A region claimed
// twice is a configuration error.
func claimRegions(zones []ZoneDefinition) (map[string]string, error) {
	owner := make(map[string]string)
	for _, zone := range zones {
		for _, m := range zone.Members {
			if prev, ok := owner[m]; ok {
				return nil, &DuplicateRegionError{Region: m, Zones: []string{prev, zone.ID}}
			}
			owner[m] = zone.ID
		}
	}
	return owner, nil
}

// hasVertices reports whether any outer ring has a point
func hasVertices(polys []orb.Polygon) bool {
	for _, p := range polys {
		if len(p) > 0 && len(p[0]) > 0 {
			return true
		}
	}
	return false
}
