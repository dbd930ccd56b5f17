package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/kwv/zonemesh/mesh"
	"github.com/paulmach/orb"
)

// newHTTPServer creates an HTTP server with all endpoints
func newHTTPServer(state *mesh.ArtifactState, collector *mesh.Collector) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		_, updated := state.Raw()
		status := struct {
			Status    string     `json:"status"`
			Timestamp time.Time  `json:"timestamp"`
			Ready     bool       `json:"ready"`
			Artifact  string     `json:"artifact,omitempty"`
			UpdatedAt *time.Time `json:"updatedAt,omitempty"`
			Warnings  int        `json:"warnings"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Ready:     state.Ready(),
			Artifact:  state.Path(),
			Warnings:  state.Warnings(),
		}
		if !updated.IsZero() {
			status.UpdatedAt = &updated
		}
		writeJSON(w, http.StatusOK, status)
	})

	// Emitted topology, byte for byte
	mux.HandleFunc("GET /topology.json", func(w http.ResponseWriter, r *http.Request) {
		raw, updated := state.Raw()
		if raw == nil {
			http.Error(w, "No topology available", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Last-Modified", updated.UTC().Format(http.TimeFormat))
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(raw); err != nil {
			log.Printf("[HTTP] Error writing topology: %v", err)
		}
	})

	// Zone name -> center
	mux.HandleFunc("GET /zones", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "No topology available", http.StatusServiceUnavailable)
			return
		}
		centers := make(map[string]orb.Point)
		for _, z := range state.Zones() {
			centers[z.Name] = z.Center
		}
		writeJSON(w, http.StatusOK, centers)
	})

	mux.HandleFunc("GET /zones/{name}", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "No topology available", http.StatusServiceUnavailable)
			return
		}
		name := r.PathValue("name")
		z, ok := state.Zone(name)
		if !ok {
			http.Error(w, "Unknown zone: "+name, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, z)
	})

	mux.Handle("GET /metrics", collector.Handler())

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] Error encoding response: %v", err)
	}
}
