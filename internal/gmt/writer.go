// Package gmt reads and writes gene set collections in the GMT flat-file format:
// one set per line, tab-separated, as name, description, then gene keys.
package gmt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inodb/gem-gsc/internal/gsc"
)

// Delimiter separates fields on a GMT line.
const Delimiter = "\t"

// Writer writes gene sets in GMT format.
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a new GMT writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes a single set as one line. The description is always the
// placeholder "na".
func (gw *Writer) Write(s gsc.Set) error {
	if s.Name == "" {
		return fmt.Errorf("write gene set: empty name")
	}
	if strings.ContainsAny(s.Name, "\t\r\n") {
		return fmt.Errorf("write gene set %q: name contains a tab or newline", s.Name)
	}
	if len(s.Genes) == 0 {
		return fmt.Errorf("write gene set %q: no genes", s.Name)
	}

	fields := make([]string, 0, len(s.Genes)+2)
	fields = append(fields, s.Name, gsc.DescriptionPlaceholder)
	fields = append(fields, s.Genes...)

	_, err := gw.w.WriteString(strings.Join(fields, Delimiter) + "\n")
	return err
}

// WriteCollection writes every set in order.
func (gw *Writer) WriteCollection(c *gsc.Collection) error {
	for _, s := range c.Sets {
		if err := gw.Write(s); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (gw *Writer) Flush() error {
	return gw.w.Flush()
}

// WriteFile writes the collection to path, replacing any existing file.
// Output goes to a temporary file in the same directory and is renamed into
// place, so a failed run never leaves a partial file. The destination
// directory must already exist.
func WriteFile(path string, c *gsc.Collection) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create gmt file: %w", err)
	}
	tmpPath := f.Name()

	w := NewWriter(f)
	if err := w.WriteCollection(c); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write gmt file %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush gmt file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close gmt file %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod gmt file %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename gmt file: %w", err)
	}
	return nil
}
