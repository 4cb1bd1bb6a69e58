package gsc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/inodb/gem-gsc/internal/model"
)

// Mode selects how reactions are grouped into gene sets.
type Mode string

// Grouping modes.
const (
	BySubsystem        Mode = "subsystem"
	ByMetabolite       Mode = "metabolite"        // one set per (name, compartment)
	ByMetaboliteMerged Mode = "metabolite-merged" // one set per name across compartments
)

// AllModes returns every grouping mode in a stable order.
func AllModes() []Mode {
	return []Mode{BySubsystem, ByMetabolite, ByMetaboliteMerged}
}

// ParseMode converts a user-supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "subsystem", "subsystems", "sub":
		return BySubsystem, nil
	case "metabolite", "metabolites", "met", "met-comp":
		return ByMetabolite, nil
	case "metabolite-merged", "metabolites-merged", "met-merged":
		return ByMetaboliteMerged, nil
	}
	return "", fmt.Errorf("unknown grouping mode %q (want subsystem, metabolite or metabolite-merged)", s)
}

// Options tune extraction.
type Options struct {
	// ExcludeSubsystems lists subsystem labels to leave out (subsystem mode only).
	ExcludeSubsystems []string
	// ExcludeMetabolites lists metabolite names to leave out (metabolite modes only),
	// typically currency metabolites such as H2O or ATP.
	ExcludeMetabolites []string
}

// Extract groups the model's reactions by mode and unions the genes of each
// group's reactions. Sets appear in first-seen group order; genes in each set
// are sorted. Sets may be empty; Filter removes them.
//
// In ByMetaboliteMerged mode, metabolites that share a display name are
// treated as one entity even if they differ chemically (e.g. stereoisomers
// with the same name).
func Extract(m *model.Model, mode Mode, opts Options) (*Collection, error) {
	if m == nil {
		return nil, fmt.Errorf("extract %s: nil model", mode)
	}

	g := newGrouper()
	switch mode {
	case BySubsystem:
		excluded := toSet(opts.ExcludeSubsystems)
		for _, s := range m.Subsystems() {
			if excluded[s] {
				continue
			}
			g.add(s, m.ReactionsInSubsystem(s))
		}
	case ByMetabolite, ByMetaboliteMerged:
		excluded := toSet(opts.ExcludeMetabolites)
		for _, mt := range m.Metabolites {
			name := MetaboliteLabel(mt)
			if excluded[name] {
				continue
			}
			key := name
			if mode == ByMetabolite && mt.Compartment != "" {
				key = name + "[" + m.CompartmentName(mt.Compartment) + "]"
			}
			g.add(key, m.ReactionsForMetabolite(mt.ID))
		}
	default:
		return nil, fmt.Errorf("extract: unknown grouping mode %q", mode)
	}

	return g.collection(), nil
}

// MetaboliteLabel returns the metabolite's display name, or its key when unnamed.
func MetaboliteLabel(mt *model.Metabolite) string {
	if name := strings.TrimSpace(mt.Name); name != "" {
		return name
	}
	return mt.ID
}

// grouper accumulates reaction genes per group in first-seen group order.
type grouper struct {
	order []string
	genes map[string]map[string]struct{}
}

func newGrouper() *grouper {
	return &grouper{genes: make(map[string]map[string]struct{})}
}

func (g *grouper) add(name string, reactions []*model.Reaction) {
	set, ok := g.genes[name]
	if !ok {
		set = make(map[string]struct{})
		g.genes[name] = set
		g.order = append(g.order, name)
	}
	for _, r := range reactions {
		for _, gene := range r.Genes {
			set[gene] = struct{}{}
		}
	}
}

func (g *grouper) collection() *Collection {
	c := &Collection{Sets: make([]Set, 0, len(g.order))}
	for _, name := range g.order {
		genes := make([]string, 0, len(g.genes[name]))
		for gene := range g.genes[name] {
			genes = append(genes, gene)
		}
		sort.Strings(genes)
		c.Sets = append(c.Sets, Set{Name: name, Description: DescriptionPlaceholder, Genes: genes})
	}
	return c
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[strings.TrimSpace(s)] = true
	}
	return out
}
