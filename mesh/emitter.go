package mesh

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
)

// ArtifactStore reads and writes emitted artifacts.
type ArtifactStore interface {
	// Read returns the artifact at path, or an error wrapping fs.ErrNotExist.
	Read(path string) ([]byte, error)
	// Write replaces the artifact at path. Implementations must not leave a
	// partial artifact behind on failure.
	Write(path string, data []byte) error
}

// FileStore is the on-disk ArtifactStore.
type FileStore struct{}

// Read reads the artifact file
func (FileStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// Write writes data to a temp file next to path and renames it into place.
func (FileStore) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// EmitOptions controls a single Emit call.
type EmitOptions struct {
	OutPath string
	// VerifyNoUpdates compares against the artifact at OutPath instead of
	// writing, failing with UnexpectedChangeError on any difference.
	VerifyNoUpdates bool
}

// EmitResult describes an emitted (or verified) topology.
type EmitResult struct {
	Document *TopologyDocument
	Raw      []byte
	Written  bool
}

// Emitter encodes aggregated collections and stores the resulting topology.
type Emitter struct {
	encoder Encoder
	store   ArtifactStore
}

// NewEmitter creates an emitter. A nil store means FileStore.
func NewEmitter(encoder Encoder, store ArtifactStore) *Emitter {
	if store == nil {
		store = FileStore{}
	}
	return &Emitter{encoder: encoder, store: store}
}

// Emit encodes fc and writes it to opts.OutPath, or in verify mode checks it
// against the artifact already there. Encoder and store errors are returned
// wrapped; nothing is written unless encoding succeeded.
func (e *Emitter) Emit(fc *geojson.FeatureCollection, opts EmitOptions) (*EmitResult, error) {
	if opts.OutPath == "" {
		return nil, fmt.Errorf("emit: output path is empty")
	}
	if e.encoder == nil {
		return nil, fmt.Errorf("emit: no encoder configured")
	}

	raw, err := e.encoder.Encode(fc)
	if err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}
	doc, err := ParseTopology(raw)
	if err != nil {
		return nil, fmt.Errorf("emit: encoder output: %w", err)
	}

	result := &EmitResult{Document: doc, Raw: raw}

	if opts.VerifyNoUpdates {
		if err := e.verify(opts.OutPath, doc); err != nil {
			return nil, err
		}
		log.Printf("[EMIT] %s is up to date (%d objects)", opts.OutPath, len(doc.Objects))
		return result, nil
	}

	if err := e.store.Write(opts.OutPath, raw); err != nil {
		return nil, fmt.Errorf("emit: %w", err)
	}
	result.Written = true
	log.Printf("[EMIT] wrote %s (%d objects, %d bytes)", opts.OutPath, len(doc.Objects), len(raw))
	return result, nil
}

// verify compares doc with the stored artifact at path.
func (e *Emitter) verify(path string, doc *TopologyDocument) error {
	prevRaw, err := e.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &UnexpectedChangeError{Path: path, Missing: true}
		}
		return fmt.Errorf("emit: %w", err)
	}

	prev, err := ParseTopology(prevRaw)
	if err != nil {
		// an unreadable artifact is as good as a changed one
		log.Printf("[EMIT] previous artifact %s is not valid topology: %v", path, err)
		return &UnexpectedChangeError{Path: path}
	}

	changed, shared := diffTopology(prev, doc)
	if len(changed) > 0 || shared {
		return &UnexpectedChangeError{Path: path, Changed: changed}
	}
	return nil
}
