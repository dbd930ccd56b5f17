package mesh

import (
	"sort"
	"sync"
	"time"

	"github.com/paulmach/orb"
)

// ZoneSummary is the per-object view served over HTTP
type ZoneSummary struct {
	Name             string    `json:"name"`
	Center           orb.Point `json:"center"`
	IsAggregatedView bool      `json:"isAggregatedView"`
	Members          []string  `json:"members,omitempty"`
}

// ArtifactState holds the last emitted topology for HTTP endpoints
type ArtifactState struct {
	mu        sync.RWMutex
	path      string
	raw       []byte
	doc       *TopologyDocument
	warnings  int
	updatedAt time.Time
}

// NewArtifactState creates an empty state
func NewArtifactState() *ArtifactState {
	return &ArtifactState{}
}

// Update stores the result of an emit
func (s *ArtifactState) Update(path string, res *EmitResult, warnings int) {
	if res == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = path
	s.raw = res.Raw
	s.doc = res.Document
	s.warnings = warnings
	s.updatedAt = time.Now()
}

// Ready reports whether a topology has been stored
func (s *ArtifactState) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc != nil
}

// Raw returns the serialized topology and when it was stored
func (s *ArtifactState) Raw() ([]byte, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw, s.updatedAt
}

// Path returns the artifact path of the last emit
func (s *ArtifactState) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path
}

// Warnings returns the number of build warnings of the last emit
func (s *ArtifactState) Warnings() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.warnings
}

// Zones returns every object summary sorted by name
func (s *ArtifactState) Zones() []ZoneSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil
	}

	out := make([]ZoneSummary, 0, len(s.doc.Objects))
	for name, obj := range s.doc.Objects {
		out = append(out, summarize(name, obj))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Zone returns the summary of one object
func (s *ArtifactState) Zone(name string) (ZoneSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return ZoneSummary{}, false
	}
	obj, ok := s.doc.Objects[name]
	if !ok {
		return ZoneSummary{}, false
	}
	return summarize(name, obj), true
}

func summarize(name string, obj *TopologyObject) ZoneSummary {
	z := ZoneSummary{Name: name}
	z.Center, _ = obj.Center()
	z.IsAggregatedView, _ = obj.Properties[PropAggregatedView].(bool)
	if raw, ok := obj.Properties[PropMembers].([]interface{}); ok {
		for _, m := range raw {
			if s, ok := m.(string); ok {
				z.Members = append(z.Members, s)
			}
		}
	}
	return z
}
