package mesh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
)

// ErrEmptyZone is returned by Aggregate when a zone has no member geometries.
var ErrEmptyZone = errors.New("zone has no member geometries")

// EmptyZoneError reports a zone that resolved to zero regions.
type EmptyZoneError struct {
	Zone string
}

func (e *EmptyZoneError) Error() string {
	return fmt.Sprintf("zone %q: %v", e.Zone, ErrEmptyZone)
}

func (e *EmptyZoneError) Unwrap() error { return ErrEmptyZone }

// UnknownRegionError reports a zone member missing from the world collection.
type UnknownRegionError struct {
	Zone   string
	Region string
}

func (e *UnknownRegionError) Error() string {
	return fmt.Sprintf("zone %q references unknown region %q", e.Zone, e.Region)
}

// DuplicateRegionError reports a region ID that appears twice, either in the
// world collection or across zone definitions.
type DuplicateRegionError struct {
	Region string
	Zones  []string // claiming zones; empty when the world itself has the duplicate
}

func (e *DuplicateRegionError) Error() string {
	if len(e.Zones) == 0 {
		return fmt.Sprintf("region %q appears more than once in the world collection", e.Region)
	}
	return fmt.Sprintf("region %q is claimed by zones %s", e.Region, strings.Join(e.Zones, ", "))
}

// DuplicateObjectError reports two output objects with the same name.
type DuplicateObjectError struct {
	Name string
}

func (e *DuplicateObjectError) Error() string {
	return fmt.Sprintf("output object %q is produced twice (zone ID collides with an unassigned region)", e.Name)
}

// MissingRegionIDError reports a world feature with no usable identifier.
type MissingRegionIDError struct {
	Index    int
	Property string
}

func (e *MissingRegionIDError) Error() string {
	return fmt.Sprintf("feature %d has no %q property and no id", e.Index, e.Property)
}

// UnsupportedGeometryError reports a non-polygonal geometry.
type UnsupportedGeometryError struct {
	Region string
	Type   string
}

func (e *UnsupportedGeometryError) Error() string {
	if e.Region == "" {
		return fmt.Sprintf("unsupported geometry type %s", e.Type)
	}
	return fmt.Sprintf("region %q: unsupported geometry type %s", e.Region, e.Type)
}

// UnexpectedChangeError is returned in verify mode when the freshly computed
// topology differs from the artifact on disk.
type UnexpectedChangeError struct {
	Path    string
	Changed []string // object names that were added, removed or modified
	Missing bool     // no previous artifact at Path
}

func (e *UnexpectedChangeError) Error() string {
	if e.Missing {
		return fmt.Sprintf("verify %s: no previous artifact to compare against", e.Path)
	}
	if len(e.Changed) == 0 {
		return fmt.Sprintf("verify %s: topology changed", e.Path)
	}
	return fmt.Sprintf("verify %s: topology changed for %s", e.Path, strings.Join(e.Changed, ", "))
}

// DegenerateGeometryWarning is a non-fatal diagnostic: the geometry had zero
// total area and its center is a plain vertex average.
type DegenerateGeometryWarning struct {
	Name   string
	Center orb.Point
}

func (w *DegenerateGeometryWarning) Error() string {
	return fmt.Sprintf("%s: zero-area geometry, center %v is a vertex average", w.Name, w.Center)
}

// CenterOutsideWarning is a non-fatal diagnostic: the center does not fall
// inside any polygon of its own geometry.
type CenterOutsideWarning struct {
	Name       string
	Center     orb.Point
	DistanceKM float64 // to the closest vertex
}

func (w *CenterOutsideWarning) Error() string {
	return fmt.Sprintf("%s: center %v lies outside its geometry (%.0f km from nearest vertex)", w.Name, w.Center, w.DistanceKM)
}

// warningKind labels a diagnostic for metrics.
func warningKind(err error) string {
	var dg *DegenerateGeometryWarning
	var co *CenterOutsideWarning
	switch {
	case errors.As(err, &dg):
		return "degenerate"
	case errors.As(err, &co):
		return "center_outside"
	default:
		return "other"
	}
}
