package mesh

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rubenv/topojson"
)

// Encoder turns a feature collection into a serialized topology document.
type Encoder interface {
	Encode(fc *geojson.FeatureCollection) ([]byte, error)
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc func(fc *geojson.FeatureCollection) ([]byte, error)

// Encode calls f(fc).
func (f EncoderFunc) Encode(fc *geojson.FeatureCollection) ([]byte, error) { return f(fc) }

// TopoJSONEncoder encodes with github.com/rubenv/topojson. Objects are keyed
// by the zoneName property set by BuildZones.
type TopoJSONEncoder struct {
	PreQuantize  float64
	PostQuantize float64
}

// NewTopoJSONEncoder creates an encoder from the topology config section
func NewTopoJSONEncoder(cfg TopologyConfig) *TopoJSONEncoder {
	return &TopoJSONEncoder{
		PreQuantize:  cfg.PreQuantize,
		PostQuantize: cfg.PostQuantize,
	}
}

// Encode builds the shared-arc topology. The input collection is cloned first
// because quantization rewrites coordinates in place.
func (e *TopoJSONEncoder) Encode(fc *geojson.FeatureCollection) (data []byte, err error) {
	if fc == nil {
		return nil, fmt.Errorf("encode topology: feature collection is nil")
	}
	defer func() {
		if r := recover(); r != nil {
			data, err = nil, fmt.Errorf("encode topology: %v", r)
		}
	}()

	topo := topojson.NewTopology(cloneCollection(fc), &topojson.TopologyOptions{
		PreQuantize:  e.PreQuantize,
		PostQuantize: e.PostQuantize,
		IDProperty:   PropZoneName,
	})

	data, err = json.Marshal(topo)
	if err != nil {
		return nil, fmt.Errorf("encode topology: %w", err)
	}
	return data, nil
}

func cloneCollection(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		c := geojson.NewFeature(orb.Clone(f.Geometry))
		c.ID = f.ID
		c.Properties = cloneProperties(f.Properties)
		out.Append(c)
	}
	return out
}

// TopologyTransform is the quantization transform of a topology document
type TopologyTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

// TopologyObject is one named object of a topology document. Arcs are kept
// raw since their nesting depends on the geometry type.
type TopologyObject struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	BBox       []float64              `json:"bbox,omitempty"`
	Arcs       json.RawMessage        `json:"arcs,omitempty"`
}

// Center returns the object's center property
func (o *TopologyObject) Center() (orb.Point, bool) {
	if o == nil {
		return orb.Point{}, false
	}
	raw, ok := o.Properties[PropCenter].([]interface{})
	if !ok || len(raw) != 2 {
		return orb.Point{}, false
	}
	lon, ok1 := raw[0].(float64)
	lat, ok2 := raw[1].(float64)
	if !ok1 || !ok2 {
		return orb.Point{}, false
	}
	return orb.Point{lon, lat}, true
}

// TopologyDocument is the decoded output artifact
type TopologyDocument struct {
	Type      string                     `json:"type"`
	Transform *TopologyTransform         `json:"transform,omitempty"`
	BBox      []float64                  `json:"bbox,omitempty"`
	Objects   map[string]*TopologyObject `json:"objects"`
	Arcs      json.RawMessage            `json:"arcs"`
}

// ParseTopology decodes a serialized topology document. Objects are keyed by
// their zoneName property where they carry one.
func ParseTopology(data []byte) (*TopologyDocument, error) {
	var doc TopologyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing topology: %w", err)
	}

	objects := make(map[string]*TopologyObject, len(doc.Objects))
	for key, obj := range doc.Objects {
		if obj == nil {
			continue
		}
		if name, ok := obj.Properties[PropZoneName].(string); ok && name != "" {
			key = name
		}
		if _, dup := objects[key]; dup {
			return nil, fmt.Errorf("parsing topology: object %q appears twice", key)
		}
		objects[key] = obj
	}
	doc.Objects = objects
	return &doc, nil
}

// Centers returns the center of every object that has one
func (d *TopologyDocument) Centers() map[string]orb.Point {
	centers := make(map[string]orb.Point, len(d.Objects))
	for name, obj := range d.Objects {
		if c, ok := obj.Center(); ok {
			centers[name] = c
		}
	}
	return centers
}

// diffTopology lists the object names that differ between two documents. The
// second return is true when anything outside the objects (arcs, transform,
// bbox) differs.
func diffTopology(prev, next *TopologyDocument) ([]string, bool) {
	var changed []string
	for name, obj := range next.Objects {
		old, ok := prev.Objects[name]
		if !ok || !sameJSON(old, obj) {
			changed = append(changed, name)
		}
	}
	for name := range prev.Objects {
		if _, ok := next.Objects[name]; !ok {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)

	shared := !bytes.Equal(canonicalJSON(prev.Arcs), canonicalJSON(next.Arcs)) ||
		!sameJSON(prev.Transform, next.Transform) ||
		!sameJSON(prev.BBox, next.BBox) ||
		prev.Type != next.Type
	return changed, shared
}

// sameJSON compares two values by their canonical JSON encoding
func sameJSON(a, b interface{}) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(canonicalJSON(ja), canonicalJSON(jb))
}

// canonicalJSON re-encodes raw JSON so object keys are sorted and whitespace
// is dropped. Invalid input is returned unchanged.
func canonicalJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}
