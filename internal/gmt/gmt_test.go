package gmt

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/gem-gsc/internal/gsc"
	"github.com/inodb/gem-gsc/internal/model"
)

func TestWriter_Glycolysis(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.Write(gsc.Set{Name: "Glycolysis", Genes: []string{"G1", "G2", "G3"}}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "Glycolysis\tna\tG1\tG2\tG3\n", buf.String())
}

func TestWriter_FieldCount(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	c := &gsc.Collection{Sets: []gsc.Set{
		{Name: "A", Genes: []string{"G1"}},
		{Name: "B", Description: "ignored", Genes: []string{"G1", "G2", "G3", "G4"}},
	}}
	require.NoError(t, w.WriteCollection(c))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	for i, line := range lines {
		fields := strings.Split(line, "\t")
		assert.Len(t, fields, 2+len(c.Sets[i].Genes))
		assert.Equal(t, "na", fields[1])
		assert.False(t, strings.HasSuffix(line, "\t"), "no trailing delimiter")
	}
}

func TestWriter_RejectsInvalidSets(t *testing.T) {
	w := NewWriter(&bytes.Buffer{})

	assert.Error(t, w.Write(gsc.Set{Name: "", Genes: []string{"G1"}}))
	assert.Error(t, w.Write(gsc.Set{Name: "a\tb", Genes: []string{"G1"}}))
	assert.Error(t, w.Write(gsc.Set{Name: "empty"}))
}

func TestParse(t *testing.T) {
	input := "Glycolysis\tna\tG1\tG2\tG3\n\nTCA cycle\tna\tG4\r\n"
	c, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"G1", "G2", "G3"}, c.Sets[0].Genes)
	assert.Equal(t, "TCA cycle", c.Sets[1].Name)
	assert.Equal(t, []string{"G4"}, c.Sets[1].Genes)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader("A\tna\tG1\nB\tna\n"))
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)

	_, err = Parse(strings.NewReader("\tna\tG1\n"))
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 1, pe.Line)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	b := model.NewBuilder("toy", "")
	for _, g := range []string{"G1", "G2", "G3", "G4"} {
		b.AddGene(&model.Gene{ID: g})
	}
	b.AddReaction(&model.Reaction{ID: "R1", Subsystems: []string{"Glycolysis"}, Genes: []string{"G1", "G2"}})
	b.AddReaction(&model.Reaction{ID: "R2", Subsystems: []string{"Glycolysis"}, Genes: []string{"G2", "G3"}})
	b.AddReaction(&model.Reaction{ID: "R3", Subsystems: []string{"5'-nucleotide metabolism"}, Genes: []string{"G4"}})
	b.AddReaction(&model.Reaction{ID: "R4", Subsystems: []string{"Exchange"}})
	m, err := b.Build()
	require.NoError(t, err)

	raw, err := gsc.Extract(m, gsc.BySubsystem, gsc.Options{})
	require.NoError(t, err)
	c, _ := gsc.NewFilter(gsc.FilterOptions{}).Apply(raw)

	path := filepath.Join(t.TempDir(), "toy.subsystem.gmt")
	require.NoError(t, WriteFile(path, c))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Glycolysis\tna\tG1\tG2\tG3\n5-nucleotide metabolism\tna\tG4\n", string(data))

	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, c.Map(), back.Map())
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.gmt")
	require.NoError(t, os.WriteFile(path, []byte("old content that is longer than the new one\n"), 0644))

	c := &gsc.Collection{Sets: []gsc.Set{{Name: "A", Genes: []string{"G1"}}}}
	require.NoError(t, WriteFile(path, c))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "A\tna\tG1\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.gmt")
	c := &gsc.Collection{Sets: []gsc.Set{{Name: "A", Genes: []string{"G1"}}}}

	err := WriteFile(path, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestWriteFile_InvalidSetLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.gmt")
	c := &gsc.Collection{Sets: []gsc.Set{{Name: "A", Genes: []string{"G1"}}, {Name: "B"}}}

	require.Error(t, WriteFile(path, c))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
