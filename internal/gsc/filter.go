package gsc

import (
	"strings"

	"go.uber.org/zap"
)

// IssueKind classifies why a set was dropped.
type IssueKind string

// Issue kinds reported by Filter.
const (
	IssueEmpty     IssueKind = "empty"     // no genes
	IssueUnnamed   IssueKind = "unnamed"   // name empty after sanitization
	IssueTooSmall  IssueKind = "too_small" // fewer genes than MinSize
	IssueTooLarge  IssueKind = "too_large" // more genes than MaxSize
	IssueCollision IssueKind = "collision" // sanitized name already used
)

// Issue records a dropped set.
type Issue struct {
	Kind     IssueKind
	Name     string // sanitized name
	Original string // name before sanitization
	Kept     string // original name of the set kept instead (collisions only)
	Size     int    // number of genes
}

// Report lists the sets Filter dropped, in input order.
type Report struct {
	Issues []Issue
}

// Count returns the number of issues of the given kind.
func (r *Report) Count(kind IssueKind) int {
	n := 0
	for _, is := range r.Issues {
		if is.Kind == kind {
			n++
		}
	}
	return n
}

// Collisions returns the collision issues.
func (r *Report) Collisions() []Issue {
	var out []Issue
	for _, is := range r.Issues {
		if is.Kind == IssueCollision {
			out = append(out, is)
		}
	}
	return out
}

// FilterOptions bound the size of kept sets.
type FilterOptions struct {
	MinSize int // sets with fewer genes are dropped; values below 1 mean 1
	MaxSize int // sets with more genes are dropped; 0 means unbounded
}

// Filter removes unusable sets and sanitizes set names.
type Filter struct {
	opts   FilterOptions
	logger *zap.Logger
}

// NewFilter creates a filter with the given size bounds.
func NewFilter(opts FilterOptions) *Filter {
	if opts.MinSize < 1 {
		opts.MinSize = 1
	}
	return &Filter{opts: opts, logger: zap.NewNop()}
}

// SetLogger sets the logger used to report dropped sets.
func (f *Filter) SetLogger(l *zap.Logger) {
	f.logger = l
}

// Apply returns a new collection in which every set has a sanitized,
// non-empty, unique name and a gene count within bounds. When two sets
// sanitize to the same name the first one is kept.
func (f *Filter) Apply(c *Collection) (*Collection, *Report) {
	out := &Collection{Sets: make([]Set, 0, len(c.Sets))}
	report := &Report{}
	kept := make(map[string]string) // sanitized name -> original name of kept set

	drop := func(is Issue) {
		report.Issues = append(report.Issues, is)
		switch is.Kind {
		case IssueCollision:
			f.logger.Warn("gene set name collision, keeping first",
				zap.String("name", is.Name),
				zap.String("dropped", is.Original),
				zap.String("kept", is.Kept))
		case IssueUnnamed:
			f.logger.Warn("gene set name empty after sanitization",
				zap.String("original", is.Original))
		default:
			f.logger.Debug("dropping gene set",
				zap.String("reason", string(is.Kind)),
				zap.String("name", is.Name),
				zap.Int("size", is.Size))
		}
	}

	for _, s := range c.Sets {
		name := Sanitize(s.Name)
		is := Issue{Name: name, Original: s.Name, Size: len(s.Genes)}

		switch {
		case len(s.Genes) == 0:
			is.Kind = IssueEmpty
		case name == "":
			is.Kind = IssueUnnamed
		case len(s.Genes) < f.opts.MinSize:
			is.Kind = IssueTooSmall
		case f.opts.MaxSize > 0 && len(s.Genes) > f.opts.MaxSize:
			is.Kind = IssueTooLarge
		default:
			if first, dup := kept[name]; dup {
				is.Kind = IssueCollision
				is.Kept = first
			}
		}
		if is.Kind != "" {
			drop(is)
			continue
		}

		kept[name] = s.Name
		desc := s.Description
		if desc == "" {
			desc = DescriptionPlaceholder
		}
		genes := make([]string, len(s.Genes))
		copy(genes, s.Genes)
		out.Sets = append(out.Sets, Set{Name: name, Description: desc, Genes: genes})
	}

	return out, report
}

// nameReplacer removes quote characters and turns line and field breaks into spaces.
var nameReplacer = strings.NewReplacer(
	"'", "",
	"‘", "",
	"’", "",
	"\"", "",
	"\t", " ",
	"\r", " ",
	"\n", " ",
)

// Sanitize makes a set name safe for tab-delimited output. It is idempotent.
func Sanitize(name string) string {
	return strings.TrimSpace(nameReplacer.Replace(name))
}
