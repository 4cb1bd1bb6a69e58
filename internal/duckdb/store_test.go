package duckdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/gem-gsc/internal/gsc"
	"github.com/inodb/gem-gsc/internal/model"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testCollection() *gsc.Collection {
	return &gsc.Collection{Sets: []gsc.Set{
		{Name: "Glycolysis / Gluconeogenesis", Genes: []string{"ENSG00000156515", "ENSG00000159399"}},
		{Name: "5-nucleotide metabolism", Genes: []string{"ENSG00000125458"}},
		{Name: "Purine metabolism", Genes: []string{"ENSG00000159399", "ENSG00000125458", "ENSG00000159399"}},
	}}
}

// --- Extraction run tests (DuckDB) ---

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "gsc.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestRecordAndLoadCollection(t *testing.T) {
	s := openInMemory(t)

	fp := FileFingerprint{Path: "/data/Human-GEM.yml", Size: 1234, ModTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	run := NewRun("Human-GEM", fp, gsc.BySubsystem)
	require.NotEmpty(t, run.ID)
	require.NoError(t, s.RecordRun(run, testCollection()))

	c, err := s.LoadCollection(run.ID)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	assert.Equal(t, "Glycolysis / Gluconeogenesis", c.Sets[0].Name)
	assert.Equal(t, []string{"ENSG00000156515", "ENSG00000159399"}, c.Sets[0].Genes)
	assert.Equal(t, "5-nucleotide metabolism", c.Sets[1].Name)
	assert.Equal(t, []string{"ENSG00000159399", "ENSG00000125458"}, c.Sets[2].Genes, "duplicate gene written once")
	assert.Equal(t, gsc.DescriptionPlaceholder, c.Sets[0].Description)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, "Human-GEM", runs[0].ModelID)
	assert.Equal(t, gsc.BySubsystem, runs[0].Mode)
	assert.Equal(t, 3, runs[0].SetCount)
	assert.Equal(t, int64(1234), runs[0].Model.Size)
	assert.True(t, fp.ModTime.Equal(runs[0].Model.ModTime))
}

func TestLoadCollection_UnknownRun(t *testing.T) {
	s := openInMemory(t)

	c, err := s.LoadCollection("nope")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLatestRun(t *testing.T) {
	s := openInMemory(t)

	none, err := s.LatestRun("Human-GEM", gsc.BySubsystem)
	require.NoError(t, err)
	assert.Nil(t, none)

	fp := FileFingerprint{Size: 1, ModTime: time.Now()}
	older := NewRun("Human-GEM", fp, gsc.BySubsystem)
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := NewRun("Human-GEM", fp, gsc.BySubsystem)
	other := NewRun("Human-GEM", fp, gsc.ByMetabolite)

	for _, r := range []Run{older, newer, other} {
		require.NoError(t, s.RecordRun(r, testCollection()))
	}

	latest, err := s.LatestRun("Human-GEM", gsc.BySubsystem)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.ID, latest.ID)

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, older.ID, runs[2].ID, "oldest last")
}

func TestSetsForGene(t *testing.T) {
	s := openInMemory(t)

	run := NewRun("Human-GEM", FileFingerprint{}, gsc.BySubsystem)
	require.NoError(t, s.RecordRun(run, testCollection()))

	hits, err := s.SetsForGene("ENSG00000159399")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Glycolysis / Gluconeogenesis", hits[0].SetName)
	assert.Equal(t, "Purine metabolism", hits[1].SetName)
	assert.Equal(t, gsc.BySubsystem, hits[0].Mode)
	assert.Equal(t, run.ID, hits[0].RunID)

	hits, err = s.SetsForGene("ENSG00000000000")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestClearRuns(t *testing.T) {
	s := openInMemory(t)

	run := NewRun("m", FileFingerprint{}, gsc.ByMetaboliteMerged)
	require.NoError(t, s.RecordRun(run, testCollection()))
	require.NoError(t, s.ClearRuns())

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)

	hits, err := s.SetsForGene("ENSG00000125458")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

// --- Model cache tests (gob) ---

func testModel(t *testing.T) *model.Model {
	t.Helper()
	b := model.NewBuilder("toy", "Toy model")
	b.AddCompartment(&model.Compartment{ID: "c", Name: "cytosol"})
	b.AddMetabolite(&model.Metabolite{ID: "h2o_c", Name: "water", Compartment: "c"})
	b.AddGene(&model.Gene{ID: "G1", Name: "HK1"})
	b.AddGene(&model.Gene{ID: "G2"})
	b.AddReaction(&model.Reaction{
		ID: "R1", Name: "hexokinase",
		Subsystems: []string{"Glycolysis"}, Genes: []string{"G1", "G2"},
		Metabolites: []string{"h2o_c"}, GeneRule: "G1 or G2",
	})
	b.AddReaction(&model.Reaction{ID: "R2", Metabolites: []string{"h2o_c"}})
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestModelCacheWriteAndLoad(t *testing.T) {
	fp := FileFingerprint{Path: "/data/toy.xml", Size: 1000, ModTime: time.Now()}
	mc := NewModelCache(t.TempDir(), fp, "")
	require.NoError(t, mc.Write(testModel(t), fp))

	m, err := mc.Load()
	require.NoError(t, err)

	assert.Equal(t, "toy", m.ID)
	assert.Equal(t, "Toy model", m.Name)
	r1 := m.Reaction("R1")
	require.NotNil(t, r1)
	assert.Equal(t, []string{"G1", "G2"}, r1.Genes)
	assert.Equal(t, "G1 or G2", r1.GeneRule)
	assert.Len(t, m.ReactionsForMetabolite("h2o_c"), 2, "indices rebuilt")
	assert.Equal(t, []string{"Glycolysis"}, m.Subsystems())
	assert.Equal(t, "HK1", m.Gene("G1").Name)
}

func TestModelCacheValidation(t *testing.T) {
	now := time.Now()
	src := FileFingerprint{Path: "/data/toy.xml", Size: 1000, ModTime: now}
	mc := NewModelCache(t.TempDir(), src, "")

	// No cache yet → invalid
	assert.False(t, mc.Valid(src))

	require.NoError(t, mc.Write(testModel(t), src))

	// Same fingerprint → valid
	assert.True(t, mc.Valid(src))

	// Different size → stale
	changed := src
	changed.Size = 9999
	assert.False(t, mc.Valid(changed))

	// Different modtime → stale
	changed = src
	changed.ModTime = now.Add(time.Hour)
	assert.False(t, mc.Valid(changed))

	// Different file with the same stat data → not this entry
	changed = src
	changed.Path = "/other/toy.xml"
	assert.False(t, mc.Valid(changed))
}

func TestModelCacheKeyedByPathAndFormat(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	a := FileFingerprint{Path: "/data/a/toy.xml", Size: 1000, ModTime: now}
	b := FileFingerprint{Path: "/data/b/toy.xml", Size: 1000, ModTime: now}

	assert.NotEqual(t, a.CacheKey(""), b.CacheKey(""))
	assert.NotEqual(t, a.CacheKey(""), a.CacheKey("sbml"))
	assert.Equal(t, a.CacheKey("sbml"), a.CacheKey("sbml"))
	assert.True(t, strings.HasPrefix(a.CacheKey(""), "toy.xml-"))

	require.NoError(t, NewModelCache(dir, a, "").Write(testModel(t), a))

	assert.True(t, NewModelCache(dir, a, "").Valid(a))
	assert.False(t, NewModelCache(dir, b, "").Valid(b), "same name in another directory")
	assert.False(t, NewModelCache(dir, a, "sbml").Valid(a), "forced format is a separate entry")
}

func TestModelCacheCorruptMeta(t *testing.T) {
	dir := t.TempDir()
	fp := FileFingerprint{Path: "/data/toy.xml", Size: 10, ModTime: time.Now()}
	mc := NewModelCache(dir, fp, "")
	require.NoError(t, mc.Write(testModel(t), fp))

	require.NoError(t, os.WriteFile(filepath.Join(dir, fp.CacheKey("")+".gob.meta"), []byte("size=abc\n"), 0644))
	assert.False(t, mc.Valid(fp))
}

func TestModelCacheClear(t *testing.T) {
	fp := FileFingerprint{Path: "/data/toy.xml", Size: 100, ModTime: time.Now()}
	mc := NewModelCache(t.TempDir(), fp, "")
	require.NoError(t, mc.Write(testModel(t), fp))
	assert.True(t, mc.Valid(fp))

	mc.Clear()
	assert.False(t, mc.Valid(fp))
}

func TestStatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.xml")
	require.NoError(t, os.WriteFile(path, []byte("<sbml/>"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), fp.Size)
	assert.True(t, filepath.IsAbs(fp.Path))

	// Relative paths resolve to the same absolute path
	t.Chdir(dir)
	rel, err := StatFile("m.xml")
	require.NoError(t, err)
	assert.Equal(t, fp.Path, rel.Path)
	assert.Equal(t, fp.CacheKey(""), rel.CacheKey(""))

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
