package gmt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/gem-gsc/internal/gsc"
)

// ParseError is returned for a malformed GMT line.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("gmt line %d: %s", e.Line, e.Message)
}

// Parse reads a GMT collection. Fields 3..N of each line are the genes.
// Blank lines are skipped.
func Parse(r io.Reader) (*gsc.Collection, error) {
	c := &gsc.Collection{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		fields := strings.Split(line, Delimiter)
		if len(fields) < 3 {
			return nil, &ParseError{
				Line:    lineNumber,
				Message: fmt.Sprintf("expected at least 3 fields, found %d", len(fields)),
			}
		}
		if fields[0] == "" {
			return nil, &ParseError{Line: lineNumber, Message: "empty set name"}
		}

		c.Sets = append(c.Sets, gsc.Set{
			Name:        fields[0],
			Description: fields[1],
			Genes:       fields[2:],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan gmt: %w", err)
	}
	return c, nil
}

// ReadFile reads a GMT collection from disk.
func ReadFile(path string) (*gsc.Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gmt file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}
