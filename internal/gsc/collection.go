// Package gsc builds gene set collections from metabolic models.
package gsc

// DescriptionPlaceholder is written in the description field of every set.
const DescriptionPlaceholder = "na"

// Set is a named group of gene keys.
type Set struct {
	Name        string
	Description string
	Genes       []string
}

// Collection is an ordered list of gene sets.
type Collection struct {
	Sets []Set
}

// Len returns the number of sets.
func (c *Collection) Len() int {
	return len(c.Sets)
}

// Map returns the collection as a name -> genes map. Later sets with a
// duplicate name overwrite earlier ones.
func (c *Collection) Map() map[string][]string {
	out := make(map[string][]string, len(c.Sets))
	for _, s := range c.Sets {
		out[s.Name] = s.Genes
	}
	return out
}

// Get returns the set with the given name.
func (c *Collection) Get(name string) (Set, bool) {
	for _, s := range c.Sets {
		if s.Name == name {
			return s, true
		}
	}
	return Set{}, false
}

// GeneCount returns the number of distinct genes across all sets.
func (c *Collection) GeneCount() int {
	seen := make(map[string]struct{})
	for _, s := range c.Sets {
		for _, g := range s.Genes {
			seen[g] = struct{}{}
		}
	}
	return len(seen)
}
