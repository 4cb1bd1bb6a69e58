package model

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseGeneRule extracts gene keys from a gene-protein-reaction rule such as
// "ENSG01 or (ENSG02 and ENSG03)". Keys are returned unique, in first-seen order.
// Boolean operators are matched case-insensitively.
func ParseGeneRule(rule string) ([]string, error) {
	var genes []string
	seen := make(map[string]bool)
	depth := 0

	flush := func(tok string) {
		if tok == "" {
			return
		}
		switch strings.ToLower(tok) {
		case "and", "or":
			return
		}
		if !seen[tok] {
			seen[tok] = true
			genes = append(genes, tok)
		}
	}

	start := -1
	for i, r := range rule {
		switch {
		case r == '(' || r == ')':
			if start >= 0 {
				flush(rule[start:i])
				start = -1
			}
			if r == '(' {
				depth++
			} else {
				depth--
				if depth < 0 {
					return nil, fmt.Errorf("%w: unbalanced ')' in gene rule %q", ErrIntegrity, rule)
				}
			}
		case unicode.IsSpace(r):
			if start >= 0 {
				flush(rule[start:i])
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		flush(rule[start:])
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: unbalanced '(' in gene rule %q", ErrIntegrity, rule)
	}
	return genes, nil
}
