package model

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// Format identifies a model file format.
type Format string

// Supported model formats.
const (
	FormatAuto Format = ""
	FormatSBML Format = "sbml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "sbml", "xml":
		return FormatSBML, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown model format %q (want sbml, json or yaml)", s)
}

// Loader reads a model file from disk.
type Loader struct {
	path   string
	format Format
	logger *zap.Logger
}

// NewLoader creates a loader for the model file at path.
func NewLoader(path string) *Loader {
	return &Loader{path: path, logger: zap.NewNop()}
}

// SetFormat forces the input format instead of detecting it.
func (l *Loader) SetFormat(f Format) {
	l.format = f
}

// SetLogger sets the logger for progress messages.
func (l *Loader) SetLogger(log *zap.Logger) {
	l.logger = log
}

// Load opens, decompresses if needed, and parses the model file.
func (l *Loader) Load() (*Model, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	r, closeFn, err := maybeGunzip(f)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	br := bufio.NewReaderSize(r, 64*1024)
	format := l.format
	if format == FormatAuto {
		format = DetectFormat(l.path, br)
	}
	if format == FormatAuto {
		return nil, fmt.Errorf("cannot detect model format of %s", l.path)
	}

	start := time.Now()
	m, err := Parse(br, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s model %s: %w", format, l.path, err)
	}

	st := m.Stats()
	l.logger.Info("loaded model",
		zap.String("path", l.path),
		zap.String("format", string(format)),
		zap.String("model", m.ID),
		zap.Int("reactions", st.Reactions),
		zap.Int("metabolites", st.Metabolites),
		zap.Int("genes", st.Genes),
		zap.Duration("elapsed", time.Since(start)))
	return m, nil
}

// Load reads the model at path, detecting its format.
func Load(path string) (*Model, error) {
	return NewLoader(path).Load()
}

// Parse parses a model of the given format from r.
func Parse(r io.Reader, format Format) (*Model, error) {
	switch format {
	case FormatSBML:
		return ParseSBML(r)
	case FormatJSON:
		return ParseJSON(r)
	case FormatYAML:
		return ParseYAML(r)
	}
	return nil, fmt.Errorf("unsupported model format %q", format)
}

// DetectFormat guesses the model format from the file extension, then from
// the first bytes of the (decompressed) content. Returns FormatAuto if unknown.
func DetectFormat(path string, br *bufio.Reader) Format {
	lower := strings.ToLower(path)
	lower = strings.TrimSuffix(lower, ".gz")

	switch filepath.Ext(lower) {
	case ".xml", ".sbml":
		return FormatSBML
	case ".json":
		return FormatJSON
	case ".yml", ".yaml":
		return FormatYAML
	}

	if br == nil {
		return FormatAuto
	}
	head, _ := br.Peek(512)
	head = bytes.TrimLeft(head, " \t\r\n\ufeff")
	switch {
	case bytes.HasPrefix(head, []byte("<")):
		return FormatSBML
	case bytes.HasPrefix(head, []byte("{")):
		return FormatJSON
	case bytes.HasPrefix(head, []byte("---")), bytes.HasPrefix(head, []byte("- ")):
		return FormatYAML
	}
	return FormatAuto
}

// maybeGunzip wraps f in a gzip reader when it starts with the gzip magic bytes.
func maybeGunzip(f *os.File) (io.Reader, func(), error) {
	buf := make([]byte, 2)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, nil, fmt.Errorf("read model header: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("seek model file: %w", err)
	}

	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, func() { gz.Close() }, nil
	}
	return f, func() {}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
