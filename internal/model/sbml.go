package model

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// ParseError is returned for a malformed SBML document. Err is the
// underlying cause, so errors.Is(err, ErrIntegrity) still holds for
// dangling references.
type ParseError struct {
	Line    int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sbml line %d: %s", e.Line, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newParseError(line int, err error) *ParseError {
	return &ParseError{Line: line, Message: err.Error(), Err: err}
}

// atLine wraps err with the decoder's current line.
func atLine(decoder *xml.Decoder, err error) *ParseError {
	line, _ := decoder.InputPos()
	return newParseError(line, err)
}

// ParseSBML parses an SBML Level 3 model using the FBC package for gene
// products and the groups package (or SUBSYSTEM notes) for subsystems.
func ParseSBML(r io.Reader) (*Model, error) {
	decoder := xml.NewDecoder(r)
	b := NewBuilder("", "")

	// gene product SBML id -> gene key (label when present)
	geneKeys := make(map[string]string)
	var pending []*sbmlReaction
	groupMembers := make(map[string][]string) // reaction id -> group names
	sawSBML := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, atLine(decoder, fmt.Errorf("read sbml: %w", err))
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "sbml":
			sawSBML = true
		case "model":
			b.SetID(attr(se, "id"))
			b.SetName(attr(se, "name"))
		case "compartment":
			b.AddCompartment(&Compartment{ID: attr(se, "id"), Name: attr(se, "name")})
			decoder.Skip()
		case "species":
			b.AddMetabolite(&Metabolite{
				ID:          attr(se, "id"),
				Name:        attr(se, "name"),
				Compartment: attr(se, "compartment"),
			})
			decoder.Skip()
		case "geneProduct":
			id := attr(se, "id")
			key := attr(se, "label")
			if key == "" {
				key = id
			}
			geneKeys[id] = key
			b.AddGene(&Gene{ID: key, Name: attr(se, "name")})
			decoder.Skip()
		case "reaction":
			rx, err := parseSBMLReaction(decoder, se)
			if err != nil {
				return nil, atLine(decoder, err)
			}
			pending = append(pending, rx)
		case "group":
			name, members, err := parseSBMLGroup(decoder, se)
			if err != nil {
				return nil, atLine(decoder, err)
			}
			if name == "" {
				continue
			}
			for _, id := range members {
				groupMembers[id] = append(groupMembers[id], name)
			}
		default:
			if strings.HasPrefix(se.Name.Local, "listOf") {
				continue
			}
			if !sawSBML {
				return nil, atLine(decoder, fmt.Errorf("read sbml: unexpected root element <%s>", se.Name.Local))
			}
			decoder.Skip()
		}
	}

	if !sawSBML {
		return nil, atLine(decoder, fmt.Errorf("read sbml: no <sbml> root element"))
	}

	for _, rx := range pending {
		genes := make([]string, 0, len(rx.geneRefs))
		for _, ref := range rx.geneRefs {
			key, ok := geneKeys[ref]
			if !ok {
				return nil, newParseError(rx.line,
					fmt.Errorf("%w: reaction %q references unknown gene product %q", ErrIntegrity, rx.r.ID, ref))
			}
			genes = append(genes, key)
		}
		rx.r.Genes = genes
		rx.r.GeneRule = rx.rule
		rx.r.Subsystems = append(rx.r.Subsystems, groupMembers[rx.r.ID]...)
		b.AddReaction(rx.r)
	}

	return b.Build()
}

type sbmlReaction struct {
	r        *Reaction
	geneRefs []string
	rule     string
	line     int // line of the <reaction> start tag
}

func parseSBMLReaction(decoder *xml.Decoder, se xml.StartElement) (*sbmlReaction, error) {
	rx := &sbmlReaction{r: &Reaction{ID: attr(se, "id"), Name: attr(se, "name")}}
	rx.line, _ = decoder.InputPos()
	depth := 0

	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("read sbml reaction %q: %w", rx.r.ID, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "listOfReactants", "listOfProducts":
				depth++
			case "speciesReference":
				rx.r.Metabolites = append(rx.r.Metabolites, attr(el, "species"))
				decoder.Skip()
			case "geneProductAssociation":
				rule, refs, err := parseSBMLAssociation(decoder)
				if err != nil {
					return nil, fmt.Errorf("read sbml reaction %q: %w", rx.r.ID, err)
				}
				rx.rule = rule
				rx.geneRefs = refs
			case "notes":
				paragraphs, err := readParagraphs(decoder)
				if err != nil {
					return nil, fmt.Errorf("read sbml reaction %q notes: %w", rx.r.ID, err)
				}
				for _, p := range paragraphs {
					if label, ok := cutSubsystemNote(p); ok {
						rx.r.Subsystems = append(rx.r.Subsystems, label)
					}
				}
			default:
				decoder.Skip()
			}
		case xml.EndElement:
			if depth == 0 {
				return rx, nil
			}
			depth--
		}
	}
}

// parseSBMLAssociation reads the children of fbc:geneProductAssociation and
// returns the rule text and the gene product references in first-seen order.
func parseSBMLAssociation(decoder *xml.Decoder) (string, []string, error) {
	var refs []string
	var parts []string

	for {
		tok, err := decoder.Token()
		if err != nil {
			return "", nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			text, err := parseSBMLAssociationNode(decoder, el, &refs)
			if err != nil {
				return "", nil, err
			}
			if text != "" {
				parts = append(parts, text)
			}
		case xml.EndElement:
			return strings.Join(parts, " and "), refs, nil
		}
	}
}

func parseSBMLAssociationNode(decoder *xml.Decoder, se xml.StartElement, refs *[]string) (string, error) {
	switch se.Name.Local {
	case "geneProductRef":
		ref := attr(se, "geneProduct")
		if ref == "" {
			return "", fmt.Errorf("%w: geneProductRef without geneProduct attribute", ErrIntegrity)
		}
		*refs = append(*refs, ref)
		return ref, decoder.Skip()
	case "and", "or":
		var children []string
		for {
			tok, err := decoder.Token()
			if err != nil {
				return "", err
			}
			switch el := tok.(type) {
			case xml.StartElement:
				text, err := parseSBMLAssociationNode(decoder, el, refs)
				if err != nil {
					return "", err
				}
				if text != "" {
					children = append(children, text)
				}
			case xml.EndElement:
				if len(children) == 1 {
					return children[0], nil
				}
				return "(" + strings.Join(children, " "+se.Name.Local+" ") + ")", nil
			}
		}
	default:
		return "", decoder.Skip()
	}
}

func parseSBMLGroup(decoder *xml.Decoder, se xml.StartElement) (string, []string, error) {
	name := attr(se, "name")
	if name == "" {
		name = attr(se, "id")
	}
	var members []string
	depth := 0

	for {
		tok, err := decoder.Token()
		if err != nil {
			return "", nil, fmt.Errorf("read sbml group %q: %w", name, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "listOfMembers":
				depth++
			case "member":
				if id := attr(el, "idRef"); id != "" {
					members = append(members, id)
				}
				decoder.Skip()
			default:
				decoder.Skip()
			}
		case xml.EndElement:
			if depth == 0 {
				return name, members, nil
			}
			depth--
		}
	}
}

// readParagraphs collects the text of each <p> element below the current
// element and consumes the element's end tag.
func readParagraphs(decoder *xml.Decoder) ([]string, error) {
	var paragraphs []string
	var sb strings.Builder
	depth, pDepth := 0, -1

	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			if el.Name.Local == "p" && pDepth < 0 {
				pDepth = depth
				sb.Reset()
			}
		case xml.CharData:
			if pDepth >= 0 {
				sb.Write(el)
			}
		case xml.EndElement:
			if depth == 0 {
				return paragraphs, nil
			}
			if depth == pDepth {
				paragraphs = append(paragraphs, strings.TrimSpace(sb.String()))
				pDepth = -1
			}
			depth--
		}
	}
}

func cutSubsystemNote(p string) (string, bool) {
	key, value, ok := strings.Cut(p, ":")
	if !ok || !strings.EqualFold(strings.TrimSpace(key), "SUBSYSTEM") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// attr returns the value of the first attribute with the given local name,
// regardless of namespace.
func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
