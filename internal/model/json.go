package model

import (
	"encoding/json"
	"fmt"
	"io"
)

// cobraJSON mirrors the COBRA JSON model layout.
type cobraJSON struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Compartments map[string]string `json:"compartments"`
	Metabolites  []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Compartment string `json:"compartment"`
	} `json:"metabolites"`
	Genes []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"genes"`
	Reactions []struct {
		ID               string             `json:"id"`
		Name             string             `json:"name"`
		Metabolites      map[string]float64 `json:"metabolites"`
		GeneReactionRule string             `json:"gene_reaction_rule"`
		Subsystem        subsystemField     `json:"subsystem"`
	} `json:"reactions"`
}

// subsystemField accepts either a single label or a list of labels.
type subsystemField []string

func (s *subsystemField) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one != "" {
			*s = subsystemField{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("subsystem must be a string or list of strings: %w", err)
	}
	*s = many
	return nil
}

// ParseJSON parses a COBRA JSON model.
func ParseJSON(r io.Reader) (*Model, error) {
	var doc cobraJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json model: %w", err)
	}

	b := NewBuilder(doc.ID, doc.Name)
	for _, id := range sortedKeys(doc.Compartments) {
		b.AddCompartment(&Compartment{ID: id, Name: doc.Compartments[id]})
	}
	for _, mt := range doc.Metabolites {
		b.AddMetabolite(&Metabolite{ID: mt.ID, Name: mt.Name, Compartment: mt.Compartment})
	}
	for _, g := range doc.Genes {
		b.AddGene(&Gene{ID: g.ID, Name: g.Name})
	}
	for _, rx := range doc.Reactions {
		genes, err := ParseGeneRule(rx.GeneReactionRule)
		if err != nil {
			return nil, fmt.Errorf("reaction %q: %w", rx.ID, err)
		}
		b.AddReaction(&Reaction{
			ID:          rx.ID,
			Name:        rx.Name,
			Subsystems:  []string(rx.Subsystem),
			Genes:       genes,
			Metabolites: sortedKeys(rx.Metabolites),
			GeneRule:    rx.GeneReactionRule,
		})
	}
	return b.Build()
}
