package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kwv/zonemesh/mesh"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// populatedState returns an ArtifactState holding the topology emitted for
// testWorld with a single US zone.
func populatedState(t *testing.T) (*mesh.ArtifactState, *mesh.EmitResult) {
	t.Helper()
	world, err := mesh.ParseWorld([]byte(testWorld))
	if err != nil {
		t.Fatalf("ParseWorld: %v", err)
	}
	res, err := mesh.BuildZones(world, []mesh.ZoneDefinition{
		{ID: "US", Members: []string{"US-WEST", "US-EAST"}},
	}, mesh.WithCenterPrecision(2))
	if err != nil {
		t.Fatalf("BuildZones: %v", err)
	}

	out := filepath.Join(t.TempDir(), "world.topo.json")
	emitted, err := mesh.NewEmitter(mesh.NewTopoJSONEncoder(mesh.TopologyConfig{}), nil).
		Emit(res.Collection, mesh.EmitOptions{OutPath: out})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	st := mesh.NewArtifactState()
	st.Update(out, emitted, 1)
	return st, emitted
}

func testCollector(t *testing.T) *mesh.Collector {
	t.Helper()
	collector, err := mesh.NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	return collector
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// ---------------------------------------------------------------------------
// /health
// ---------------------------------------------------------------------------

func TestHealth_NoArtifact(t *testing.T) {
	h := newHTTPServer(mesh.NewArtifactState(), testCollector(t))

	rr := serve(h, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["ready"] != false {
		t.Errorf("ready = %v, want false", body["ready"])
	}
	if _, ok := body["updatedAt"]; ok {
		t.Error("updatedAt should be omitted before the first emit")
	}
}

func TestHealth_WithArtifact(t *testing.T) {
	st, _ := populatedState(t)
	h := newHTTPServer(st, testCollector(t))

	rr := serve(h, http.MethodGet, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var body struct {
		Ready     bool   `json:"ready"`
		Artifact  string `json:"artifact"`
		UpdatedAt string `json:"updatedAt"`
		Warnings  int    `json:"warnings"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !body.Ready {
		t.Error("ready should be true")
	}
	if !strings.HasSuffix(body.Artifact, "world.topo.json") {
		t.Errorf("artifact = %q", body.Artifact)
	}
	if body.UpdatedAt == "" {
		t.Error("updatedAt should be set")
	}
	if body.Warnings != 1 {
		t.Errorf("warnings = %d, want 1", body.Warnings)
	}
}

// ---------------------------------------------------------------------------
// /topology.json, /zones
// ---------------------------------------------------------------------------

func TestEndpoints_NoArtifact_503(t *testing.T) {
	h := newHTTPServer(mesh.NewArtifactState(), testCollector(t))

	for _, path := range []string{"/topology.json", "/zones", "/zones/US"} {
		t.Run(path, func(t *testing.T) {
			rr := serve(h, http.MethodGet, path)
			if rr.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", rr.Code)
			}
		})
	}
}

func TestTopology_ServesEmittedBytes(t *testing.T) {
	st, emitted := populatedState(t)
	h := newHTTPServer(st, testCollector(t))

	rr := serve(h, http.MethodGet, "/topology.json")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rr.Header().Get("Last-Modified") == "" {
		t.Error("Last-Modified should be set")
	}
	if rr.Body.String() != string(emitted.Raw) {
		t.Error("body should be the emitted topology byte for byte")
	}

	doc, err := mesh.ParseTopology(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("served topology does not parse: %v", err)
	}
	if len(doc.Objects) != 3 {
		t.Errorf("objects = %d, want 3", len(doc.Objects))
	}
}

func TestZones_Centers(t *testing.T) {
	st, _ := populatedState(t)
	h := newHTTPServer(st, testCollector(t))

	rr := serve(h, http.MethodGet, "/zones")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var centers map[string]orb.Point
	if err := json.Unmarshal(rr.Body.Bytes(), &centers); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(centers) != 3 {
		t.Fatalf("centers = %v, want US, CA, FR", centers)
	}
	if us := centers["US"]; us != (orb.Point{-99.5, 40}) {
		t.Errorf("US center = %v, want [-99.5 40]", us)
	}
	if fr := centers["FR"]; fr != (orb.Point{4, 47}) {
		t.Errorf("FR center = %v, want [4 47]", fr)
	}
}

func TestZone_ByName(t *testing.T) {
	st, _ := populatedState(t)
	h := newHTTPServer(st, testCollector(t))

	rr := serve(h, http.MethodGet, "/zones/US")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var zone mesh.ZoneSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &zone); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if zone.Name != "US" || !zone.IsAggregatedView {
		t.Errorf("zone = %+v", zone)
	}
	if len(zone.Members) != 2 || zone.Members[0] != "US-WEST" || zone.Members[1] != "US-EAST" {
		t.Errorf("members = %v, want [US-WEST US-EAST]", zone.Members)
	}

	rr = serve(h, http.MethodGet, "/zones/CA")
	if rr.Code != http.StatusOK {
		t.Fatalf("CA status = %d, want 200", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &zone); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if zone.IsAggregatedView {
		t.Error("CA is a passthrough region")
	}

	rr = serve(h, http.MethodGet, "/zones/US-WEST")
	if rr.Code != http.StatusNotFound {
		t.Errorf("member region status = %d, want 404", rr.Code)
	}
}

func TestEndpoints_MethodNotAllowed(t *testing.T) {
	st, _ := populatedState(t)
	h := newHTTPServer(st, testCollector(t))

	rr := serve(h, http.MethodPost, "/topology.json")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// /metrics
// ---------------------------------------------------------------------------

func TestMetrics(t *testing.T) {
	collector := testCollector(t)
	collector.ObserveEmit(mesh.EmitWritten)
	h := newHTTPServer(mesh.NewArtifactState(), collector)

	rr := serve(h, http.MethodGet, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `zonemesh_emits_total{result="written"} 1`) {
		t.Errorf("metrics output missing emit counter:\n%s", rr.Body.String())
	}
}
