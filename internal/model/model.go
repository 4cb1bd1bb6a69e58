// Package model provides typed genome-scale metabolic model entities and loaders.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrIntegrity is returned when a model references entities that do not exist
// or declares the same key twice.
var ErrIntegrity = errors.New("model integrity")

// Reaction is a single metabolic reaction.
type Reaction struct {
	ID          string   // Reaction key (e.g., MAR04358)
	Name        string   // Human-readable name
	Subsystems  []string // Subsystem labels in model order, may be empty
	Genes       []string // Associated gene keys, unique, first-seen order
	Metabolites []string // Reactant and product metabolite keys, unique
	GeneRule    string   // Gene-protein-reaction rule as written in the model
}

// Metabolite is a chemical species in a specific compartment.
type Metabolite struct {
	ID          string // Metabolite key (e.g., MAM02040c)
	Name        string // Display name (e.g., H2O)
	Compartment string // Compartment key (e.g., c)
}

// Gene is a gene product referenced by reactions.
type Gene struct {
	ID   string // Gene key (e.g., ENSG00000111640)
	Name string // Gene symbol, may be empty
}

// Compartment is a subcellular location.
type Compartment struct {
	ID   string // Compartment key (e.g., c)
	Name string // Compartment name (e.g., Cytosol)
}

// Model is a read-only metabolic model with precomputed cross-reference indices.
type Model struct {
	ID           string
	Name         string
	Reactions    []*Reaction
	Metabolites  []*Metabolite
	Genes        []*Gene
	Compartments []*Compartment

	reactionByID    map[string]*Reaction
	metaboliteByID  map[string]*Metabolite
	geneByID        map[string]*Gene
	compartmentByID map[string]*Compartment

	reactionsByMetabolite map[string][]*Reaction
	reactionsBySubsystem  map[string][]*Reaction
	reactionsByGene       map[string][]*Reaction
	subsystems            []string
}

// Reaction returns the reaction with the given key, or nil.
func (m *Model) Reaction(id string) *Reaction { return m.reactionByID[id] }

// Metabolite returns the metabolite with the given key, or nil.
func (m *Model) Metabolite(id string) *Metabolite { return m.metaboliteByID[id] }

// Gene returns the gene with the given key, or nil.
func (m *Model) Gene(id string) *Gene { return m.geneByID[id] }

// Compartment returns the compartment with the given key, or nil.
func (m *Model) Compartment(id string) *Compartment { return m.compartmentByID[id] }

// ReactionsForMetabolite returns reactions that consume or produce a metabolite, in model order.
func (m *Model) ReactionsForMetabolite(id string) []*Reaction {
	return m.reactionsByMetabolite[id]
}

// ReactionsInSubsystem returns reactions labelled with a subsystem, in model order.
func (m *Model) ReactionsInSubsystem(name string) []*Reaction {
	return m.reactionsBySubsystem[name]
}

// ReactionsForGene returns reactions associated with a gene, in model order.
func (m *Model) ReactionsForGene(id string) []*Reaction {
	return m.reactionsByGene[id]
}

// Subsystems returns distinct subsystem labels in first-seen reaction order.
func (m *Model) Subsystems() []string {
	return m.subsystems
}

// CompartmentName returns the display name for a compartment key, falling
// back to the key itself when no name is known.
func (m *Model) CompartmentName(id string) string {
	if c := m.compartmentByID[id]; c != nil && c.Name != "" {
		return c.Name
	}
	return id
}

// Stats summarizes model contents.
type Stats struct {
	Reactions            int
	Metabolites          int
	Genes                int
	Compartments         int
	Subsystems           int
	ReactionsNoGenes     int
	ReactionsNoSubsystem int
}

// Stats returns entity counts for the model.
func (m *Model) Stats() Stats {
	s := Stats{
		Reactions:    len(m.Reactions),
		Metabolites:  len(m.Metabolites),
		Genes:        len(m.Genes),
		Compartments: len(m.Compartments),
		Subsystems:   len(m.subsystems),
	}
	for _, r := range m.Reactions {
		if len(r.Genes) == 0 {
			s.ReactionsNoGenes++
		}
		if len(r.Subsystems) == 0 {
			s.ReactionsNoSubsystem++
		}
	}
	return s
}

// SubsystemSize pairs a subsystem with its reaction count.
type SubsystemSize struct {
	Name      string
	Reactions int
}

// LargestSubsystems returns up to n subsystems ordered by reaction count,
// ties broken by name.
func (m *Model) LargestSubsystems(n int) []SubsystemSize {
	sizes := make([]SubsystemSize, 0, len(m.subsystems))
	for _, name := range m.subsystems {
		sizes = append(sizes, SubsystemSize{Name: name, Reactions: len(m.reactionsBySubsystem[name])})
	}
	sort.SliceStable(sizes, func(i, j int) bool {
		if sizes[i].Reactions != sizes[j].Reactions {
			return sizes[i].Reactions > sizes[j].Reactions
		}
		return sizes[i].Name < sizes[j].Name
	})
	if n >= 0 && len(sizes) > n {
		sizes = sizes[:n]
	}
	return sizes
}

// Builder accumulates entities and produces a validated Model.
type Builder struct {
	m *Model
}

// NewBuilder creates a builder for a model with the given key and name.
func NewBuilder(id, name string) *Builder {
	return &Builder{m: &Model{ID: id, Name: name}}
}

// SetID sets the model key.
func (b *Builder) SetID(id string) { b.m.ID = id }

// SetName sets the model name.
func (b *Builder) SetName(name string) { b.m.Name = name }

// AddCompartment adds a compartment.
func (b *Builder) AddCompartment(c *Compartment) { b.m.Compartments = append(b.m.Compartments, c) }

// AddMetabolite adds a metabolite.
func (b *Builder) AddMetabolite(mt *Metabolite) { b.m.Metabolites = append(b.m.Metabolites, mt) }

// AddGene adds a gene.
func (b *Builder) AddGene(g *Gene) { b.m.Genes = append(b.m.Genes, g) }

// AddReaction adds a reaction.
func (b *Builder) AddReaction(r *Reaction) { b.m.Reactions = append(b.m.Reactions, r) }

// Build validates cross-references and builds the lookup indices.
// The builder must not be used afterwards.
func (b *Builder) Build() (*Model, error) {
	m := b.m
	b.m = nil

	m.compartmentByID = make(map[string]*Compartment, len(m.Compartments))
	for _, c := range m.Compartments {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: compartment with empty key", ErrIntegrity)
		}
		if _, dup := m.compartmentByID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate compartment %q", ErrIntegrity, c.ID)
		}
		m.compartmentByID[c.ID] = c
	}

	m.geneByID = make(map[string]*Gene, len(m.Genes))
	for _, g := range m.Genes {
		if g.ID == "" {
			return nil, fmt.Errorf("%w: gene with empty key", ErrIntegrity)
		}
		if strings.ContainsAny(g.ID, "\t\r\n") {
			return nil, fmt.Errorf("%w: gene key %q contains a tab or newline", ErrIntegrity, g.ID)
		}
		if _, dup := m.geneByID[g.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate gene %q", ErrIntegrity, g.ID)
		}
		m.geneByID[g.ID] = g
	}

	m.metaboliteByID = make(map[string]*Metabolite, len(m.Metabolites))
	for _, mt := range m.Metabolites {
		if mt.ID == "" {
			return nil, fmt.Errorf("%w: metabolite with empty key", ErrIntegrity)
		}
		if _, dup := m.metaboliteByID[mt.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate metabolite %q", ErrIntegrity, mt.ID)
		}
		if len(m.Compartments) > 0 && mt.Compartment != "" {
			if _, ok := m.compartmentByID[mt.Compartment]; !ok {
				return nil, fmt.Errorf("%w: metabolite %q references unknown compartment %q",
					ErrIntegrity, mt.ID, mt.Compartment)
			}
		}
		m.metaboliteByID[mt.ID] = mt
	}

	m.reactionByID = make(map[string]*Reaction, len(m.Reactions))
	m.reactionsByMetabolite = make(map[string][]*Reaction)
	m.reactionsBySubsystem = make(map[string][]*Reaction)
	m.reactionsByGene = make(map[string][]*Reaction)

	for _, r := range m.Reactions {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: reaction with empty key", ErrIntegrity)
		}
		if _, dup := m.reactionByID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate reaction %q", ErrIntegrity, r.ID)
		}
		m.reactionByID[r.ID] = r

		r.Genes = uniqueStrings(r.Genes)
		for _, g := range r.Genes {
			if _, ok := m.geneByID[g]; !ok {
				return nil, fmt.Errorf("%w: reaction %q references unknown gene %q", ErrIntegrity, r.ID, g)
			}
			m.reactionsByGene[g] = append(m.reactionsByGene[g], r)
		}

		r.Metabolites = uniqueStrings(r.Metabolites)
		for _, id := range r.Metabolites {
			if _, ok := m.metaboliteByID[id]; !ok {
				return nil, fmt.Errorf("%w: reaction %q references unknown metabolite %q", ErrIntegrity, r.ID, id)
			}
			m.reactionsByMetabolite[id] = append(m.reactionsByMetabolite[id], r)
		}

		subs := make([]string, 0, len(r.Subsystems))
		for _, s := range r.Subsystems {
			subs = append(subs, strings.TrimSpace(s))
		}
		r.Subsystems = uniqueStrings(subs)
		for _, s := range r.Subsystems {
			if _, seen := m.reactionsBySubsystem[s]; !seen {
				m.subsystems = append(m.subsystems, s)
			}
			m.reactionsBySubsystem[s] = append(m.reactionsBySubsystem[s], r)
		}
	}

	return m, nil
}

// uniqueStrings removes duplicates and empty strings, keeping first-seen order.
func uniqueStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
