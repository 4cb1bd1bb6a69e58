package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Trimmed-down Human-GEM layout.
const testYAML = `---
- metaData:
    short_name: "Human-GEM"
    full_name: "Generic genome-scale metabolic model of Homo sapiens"
    version: "1.18.0"
- metabolites:
    - !!omap
      - id: "MAM02040c"
      - name: "H2O"
      - compartment: "c"
    - !!omap
      - id: "MAM02040m"
      - name: "H2O"
      - compartment: "m"
    - !!omap
      - id: "MAM01965c"
      - name: "glucose"
      - compartment: "c"
- reactions:
    - !!omap
      - id: "MAR04394"
      - name: "hexokinase"
      - metabolites: !!omap
        - MAM01965c: -1
        - MAM02040c: 1
      - lower_bound: 0
      - upper_bound: 1000
      - gene_reaction_rule: "ENSG00000156515 or ENSG00000159399"
      - subsystem:
        - "Glycolysis / Gluconeogenesis"
    - !!omap
      - id: "MAR04740"
      - name: "water transport"
      - metabolites: !!omap
        - MAM02040c: -1
        - MAM02040m: 1
      - gene_reaction_rule: "(ENSG00000161798 and ENSG00000159399)"
      - subsystem: "Transport reactions"
- genes:
    - !!omap
      - id: "ENSG00000156515"
    - !!omap
      - id: "ENSG00000159399"
    - !!omap
      - id: "ENSG00000161798"
- compartments: !!omap
    - c: "Cytosol"
    - m: "Mitochondria"
`

func TestParseYAML(t *testing.T) {
	m, err := ParseYAML(strings.NewReader(testYAML))
	require.NoError(t, err)

	assert.Equal(t, "Human-GEM", m.ID)
	assert.Equal(t, "Generic genome-scale metabolic model of Homo sapiens", m.Name)
	assert.Len(t, m.Metabolites, 3)
	assert.Len(t, m.Genes, 3)
	require.Len(t, m.Compartments, 2)
	assert.Equal(t, "Mitochondria", m.CompartmentName("m"))

	hk := m.Reaction("MAR04394")
	require.NotNil(t, hk)
	assert.Equal(t, []string{"ENSG00000156515", "ENSG00000159399"}, hk.Genes)
	assert.Equal(t, []string{"MAM01965c", "MAM02040c"}, hk.Metabolites)
	assert.Equal(t, []string{"Glycolysis / Gluconeogenesis"}, hk.Subsystems)

	tr := m.Reaction("MAR04740")
	require.NotNil(t, tr)
	assert.Equal(t, []string{"Transport reactions"}, tr.Subsystems)
	assert.Equal(t, []string{"ENSG00000161798", "ENSG00000159399"}, tr.Genes)
}

func TestParseYAML_PlainMaps(t *testing.T) {
	doc := `
- metabolites:
    - {id: a_c, name: A, compartment: c}
- reactions:
    - {id: R1, metabolites: {a_c: -1}, gene_reaction_rule: "G1 or G2", subsystem: S1}
`
	m, err := ParseYAML(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Len(t, m.Genes, 2, "genes declared by rules when no genes section")
	assert.Equal(t, []string{"G1", "G2"}, m.Reaction("R1").Genes)
}

func TestParseYAML_UnknownMetabolite(t *testing.T) {
	doc := strings.Replace(testYAML, "- MAM01965c: -1", "- MAM99999c: -1", 1)
	_, err := ParseYAML(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIntegrity))
}

func TestParseYAML_Empty(t *testing.T) {
	_, err := ParseYAML(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseYAML_NotAList(t *testing.T) {
	_, err := ParseYAML(strings.NewReader("reactions: 5\n"))
	assert.Error(t, err)
}
