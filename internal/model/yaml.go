package model

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlPair is one key/value entry of a YAML mapping or !!omap sequence.
type yamlPair struct {
	key   string
	value *yaml.Node
}

// ParseYAML parses a model in the Human-GEM YAML layout: a top-level list of
// single-key sections (metaData, metabolites, reactions, genes, compartments)
// whose entries are plain maps or !!omap sequences.
func ParseYAML(r io.Reader) (*Model, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("decode yaml model: empty document")
		}
		return nil, fmt.Errorf("decode yaml model: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	sections, err := yamlPairs(root)
	if err != nil {
		return nil, fmt.Errorf("decode yaml model: %w", err)
	}

	b := NewBuilder("", "")
	var reactions []*Reaction
	haveGenes := false

	for _, sec := range sections {
		switch sec.key {
		case "metaData":
			fields, err := yamlPairs(sec.value)
			if err != nil {
				return nil, fmt.Errorf("metaData: %w", err)
			}
			meta := make(map[string]string, len(fields))
			for _, f := range fields {
				meta[f.key] = f.value.Value
			}
			b.SetID(firstNonEmpty(meta["id"], meta["short_name"]))
			b.SetName(firstNonEmpty(meta["name"], meta["full_name"]))
		case "compartments":
			fields, err := yamlPairs(sec.value)
			if err != nil {
				return nil, fmt.Errorf("compartments: %w", err)
			}
			for _, f := range fields {
				b.AddCompartment(&Compartment{ID: f.key, Name: f.value.Value})
			}
		case "metabolites":
			err := yamlEntries(sec.value, func(fields []yamlPair) error {
				mt := &Metabolite{}
				for _, f := range fields {
					switch f.key {
					case "id":
						mt.ID = f.value.Value
					case "name":
						mt.Name = f.value.Value
					case "compartment":
						mt.Compartment = f.value.Value
					}
				}
				b.AddMetabolite(mt)
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("metabolites: %w", err)
			}
		case "genes":
			haveGenes = true
			err := yamlEntries(sec.value, func(fields []yamlPair) error {
				g := &Gene{}
				for _, f := range fields {
					switch f.key {
					case "id":
						g.ID = f.value.Value
					case "name":
						g.Name = f.value.Value
					}
				}
				b.AddGene(g)
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("genes: %w", err)
			}
		case "reactions":
			err := yamlEntries(sec.value, func(fields []yamlPair) error {
				rx, err := yamlReaction(fields)
				if err != nil {
					return err
				}
				reactions = append(reactions, rx)
				return nil
			})
			if err != nil {
				return nil, fmt.Errorf("reactions: %w", err)
			}
		}
	}

	// Without a genes section, genes are declared by the rules that use them.
	if !haveGenes {
		seen := make(map[string]bool)
		for _, rx := range reactions {
			for _, g := range rx.Genes {
				if !seen[g] {
					seen[g] = true
					b.AddGene(&Gene{ID: g})
				}
			}
		}
	}
	for _, rx := range reactions {
		b.AddReaction(rx)
	}
	return b.Build()
}

func yamlReaction(fields []yamlPair) (*Reaction, error) {
	rx := &Reaction{}
	for _, f := range fields {
		switch f.key {
		case "id":
			rx.ID = f.value.Value
		case "name":
			rx.Name = f.value.Value
		case "gene_reaction_rule":
			rx.GeneRule = f.value.Value
		case "subsystem":
			switch f.value.Kind {
			case yaml.ScalarNode:
				if f.value.Value != "" {
					rx.Subsystems = []string{f.value.Value}
				}
			case yaml.SequenceNode:
				for _, n := range f.value.Content {
					rx.Subsystems = append(rx.Subsystems, n.Value)
				}
			}
		case "metabolites":
			mets, err := yamlPairs(f.value)
			if err != nil {
				return nil, fmt.Errorf("reaction %q metabolites: %w", rx.ID, err)
			}
			for _, m := range mets {
				rx.Metabolites = append(rx.Metabolites, m.key)
			}
		}
	}
	genes, err := ParseGeneRule(rx.GeneRule)
	if err != nil {
		return nil, fmt.Errorf("reaction %q: %w", rx.ID, err)
	}
	rx.Genes = genes
	return rx, nil
}

// yamlEntries calls fn for each element of a sequence of maps/omaps.
func yamlEntries(n *yaml.Node, fn func([]yamlPair) error) error {
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a list", n.Line)
	}
	for _, item := range n.Content {
		fields, err := yamlPairs(item)
		if err != nil {
			return err
		}
		if err := fn(fields); err != nil {
			return err
		}
	}
	return nil
}

// yamlPairs flattens a mapping node, or a sequence of single-key mappings
// (the !!omap form), into ordered key/value pairs.
func yamlPairs(n *yaml.Node) ([]yamlPair, error) {
	switch n.Kind {
	case yaml.MappingNode:
		pairs := make([]yamlPair, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, yamlPair{key: n.Content[i].Value, value: n.Content[i+1]})
		}
		return pairs, nil
	case yaml.SequenceNode:
		var pairs []yamlPair
		for _, item := range n.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: expected key/value entry", item.Line)
			}
			for i := 0; i+1 < len(item.Content); i += 2 {
				pairs = append(pairs, yamlPair{key: item.Content[i].Value, value: item.Content[i+1]})
			}
		}
		return pairs, nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("line %d: expected a map", n.Line)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
