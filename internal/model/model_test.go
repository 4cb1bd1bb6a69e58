package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildGlycolysis(t *testing.T) *Model {
	t.Helper()
	b := NewBuilder("toy", "Toy model")
	b.AddCompartment(&Compartment{ID: "c", Name: "cytosol"})
	b.AddCompartment(&Compartment{ID: "m", Name: "mitochondria"})
	b.AddMetabolite(&Metabolite{ID: "h2o_c", Name: "water", Compartment: "c"})
	b.AddMetabolite(&Metabolite{ID: "h2o_m", Name: "water", Compartment: "m"})
	b.AddMetabolite(&Metabolite{ID: "glc_c", Name: "glucose", Compartment: "c"})
	for _, g := range []string{"G1", "G2", "G3", "G4"} {
		b.AddGene(&Gene{ID: g})
	}
	b.AddReaction(&Reaction{ID: "R1", Subsystems: []string{"Glycolysis"}, Genes: []string{"G1", "G2"}, Metabolites: []string{"glc_c", "h2o_c"}})
	b.AddReaction(&Reaction{ID: "R2", Subsystems: []string{"Glycolysis", " Glycolysis "}, Genes: []string{"G2", "G3", "G2"}, Metabolites: []string{"h2o_m"}})
	b.AddReaction(&Reaction{ID: "R3", Genes: []string{"G4"}, Metabolites: []string{"h2o_m"}})
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestBuild_Indices(t *testing.T) {
	m := buildGlycolysis(t)

	assert.Equal(t, []string{"Glycolysis"}, m.Subsystems())
	assert.Len(t, m.ReactionsInSubsystem("Glycolysis"), 2)
	assert.Equal(t, []string{"G2", "G3"}, m.Reaction("R2").Genes, "duplicates removed")
	assert.Equal(t, []string{"Glycolysis"}, m.Reaction("R2").Subsystems, "labels trimmed and deduplicated")

	rxns := m.ReactionsForMetabolite("h2o_m")
	require.Len(t, rxns, 2)
	assert.Equal(t, "R2", rxns[0].ID)
	assert.Equal(t, "R3", rxns[1].ID)

	assert.Len(t, m.ReactionsForGene("G2"), 2)
	assert.Equal(t, "mitochondria", m.CompartmentName("m"))
	assert.Equal(t, "x", m.CompartmentName("x"))
	assert.Nil(t, m.Gene("missing"))
}

func TestBuild_Stats(t *testing.T) {
	st := buildGlycolysis(t).Stats()

	assert.Equal(t, 3, st.Reactions)
	assert.Equal(t, 3, st.Metabolites)
	assert.Equal(t, 4, st.Genes)
	assert.Equal(t, 2, st.Compartments)
	assert.Equal(t, 1, st.Subsystems)
	assert.Equal(t, 0, st.ReactionsNoGenes)
	assert.Equal(t, 1, st.ReactionsNoSubsystem)
}

func TestLargestSubsystems(t *testing.T) {
	b := NewBuilder("m", "")
	b.AddReaction(&Reaction{ID: "R1", Subsystems: []string{"B"}})
	b.AddReaction(&Reaction{ID: "R2", Subsystems: []string{"A"}})
	b.AddReaction(&Reaction{ID: "R3", Subsystems: []string{"C", "B"}})
	m, err := b.Build()
	require.NoError(t, err)

	top := m.LargestSubsystems(2)
	require.Len(t, top, 2)
	assert.Equal(t, SubsystemSize{Name: "B", Reactions: 2}, top[0])
	assert.Equal(t, SubsystemSize{Name: "A", Reactions: 1}, top[1], "ties sorted by name")
}

func TestBuild_IntegrityErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
	}{
		{"unknown gene", func(b *Builder) {
			b.AddReaction(&Reaction{ID: "R1", Genes: []string{"G9"}})
		}},
		{"unknown metabolite", func(b *Builder) {
			b.AddReaction(&Reaction{ID: "R1", Metabolites: []string{"m9"}})
		}},
		{"duplicate reaction", func(b *Builder) {
			b.AddReaction(&Reaction{ID: "R1"})
			b.AddReaction(&Reaction{ID: "R1"})
		}},
		{"duplicate gene", func(b *Builder) {
			b.AddGene(&Gene{ID: "G1"})
			b.AddGene(&Gene{ID: "G1"})
		}},
		{"empty metabolite key", func(b *Builder) {
			b.AddMetabolite(&Metabolite{Name: "water"})
		}},
		{"gene key with tab", func(b *Builder) {
			b.AddGene(&Gene{ID: "G\t1"})
		}},
		{"unknown compartment", func(b *Builder) {
			b.AddCompartment(&Compartment{ID: "c"})
			b.AddMetabolite(&Metabolite{ID: "x_e", Compartment: "e"})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder("m", "")
			tt.build(b)
			_, err := b.Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIntegrity), "got %v", err)
		})
	}
}
