package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/inodb/gem-gsc/internal/model"
)

// ModelCache manages gob-serialized models on disk, one entry per source
// file and format:
//
//	~/.gem-gsc/cache/{name}-{hash}.gob       (serialized model)
//	~/.gem-gsc/cache/{name}-{hash}.gob.meta  (source file fingerprint)
type ModelCache struct {
	dir    string // cache directory (e.g. ~/.gem-gsc/cache)
	key    string // FileFingerprint.CacheKey
	format string
}

// NewModelCache creates a model cache for the source file parsed as format
// (empty for auto-detection).
func NewModelCache(dir string, src FileFingerprint, format string) *ModelCache {
	return &ModelCache{dir: dir, key: src.CacheKey(format), format: format}
}

func (mc *ModelCache) gobPath() string {
	return filepath.Join(mc.dir, mc.key+".gob")
}

func (mc *ModelCache) metaPath() string {
	return filepath.Join(mc.dir, mc.key+".gob.meta")
}

// modelSnapshot is the serialized form of a model. Indices are rebuilt on load.
type modelSnapshot struct {
	ID           string
	Name         string
	Compartments []*model.Compartment
	Metabolites  []*model.Metabolite
	Genes        []*model.Gene
	Reactions    []*model.Reaction
}

// Valid checks whether the cached model matches the current source file.
func (mc *ModelCache) Valid(src FileFingerprint) bool {
	data, err := os.ReadFile(mc.metaPath())
	if err != nil {
		return false
	}
	cached, err := parseCacheMeta(data)
	if err != nil || !cached.matches(src.meta(mc.format)) {
		return false
	}

	if _, err := os.Stat(mc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the serialized model from disk and rebuilds its indices.
func (mc *ModelCache) Load() (*model.Model, error) {
	f, err := os.Open(mc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open model cache: %w", err)
	}
	defer f.Close()

	var snap modelSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode model cache: %w", err)
	}

	b := model.NewBuilder(snap.ID, snap.Name)
	for _, c := range snap.Compartments {
		b.AddCompartment(c)
	}
	for _, mt := range snap.Metabolites {
		b.AddMetabolite(mt)
	}
	for _, g := range snap.Genes {
		b.AddGene(g)
	}
	for _, r := range snap.Reactions {
		b.AddReaction(r)
	}
	m, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("rebuild cached model: %w", err)
	}
	return m, nil
}

// Write serializes the model to disk along with the source fingerprint.
func (mc *ModelCache) Write(m *model.Model, src FileFingerprint) error {
	if err := os.MkdirAll(mc.dir, 0755); err != nil {
		return fmt.Errorf("create model cache directory: %w", err)
	}

	snap := modelSnapshot{
		ID:           m.ID,
		Name:         m.Name,
		Compartments: m.Compartments,
		Metabolites:  m.Metabolites,
		Genes:        m.Genes,
		Reactions:    m.Reactions,
	}

	f, err := os.Create(mc.gobPath())
	if err != nil {
		return fmt.Errorf("create model cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(snap); err != nil {
		f.Close()
		os.Remove(mc.gobPath())
		return fmt.Errorf("encode model cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close model cache: %w", err)
	}

	return mc.writeMeta(src)
}

// Clear removes the cached model files.
func (mc *ModelCache) Clear() {
	os.Remove(mc.gobPath())
	os.Remove(mc.metaPath())
}

func (mc *ModelCache) writeMeta(src FileFingerprint) error {
	return os.WriteFile(mc.metaPath(), src.meta(mc.format).marshal(), 0644)
}
