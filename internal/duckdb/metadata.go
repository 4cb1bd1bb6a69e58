package duckdb

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// FileFingerprint holds stat-based identity for a model file. Path is absolute.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk model file.
func StatFile(path string) (FileFingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileFingerprint{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// CacheKey names the cache entry for this file parsed as format. The base
// name keeps entries readable; the hash separates same-named files in
// different directories and forced formats.
func (fp FileFingerprint) CacheKey(format string) string {
	h := xxh3.HashString(fp.Path + "\x00" + format)
	return fmt.Sprintf("%s-%016x", filepath.Base(fp.Path), h)
}

// cacheMeta is the content of a .gob.meta file.
type cacheMeta struct {
	path    string
	format  string
	size    int64
	modtime time.Time
}

func (fp FileFingerprint) meta(format string) cacheMeta {
	return cacheMeta{path: fp.Path, format: format, size: fp.Size, modtime: fp.ModTime}
}

// matches reports whether the cached entry was built from the same file,
// read the same way, with unchanged size and modification time.
func (cm cacheMeta) matches(other cacheMeta) bool {
	return cm.path == other.path &&
		cm.format == other.format &&
		cm.size == other.size &&
		cm.modtime.Equal(other.modtime)
}

func (cm cacheMeta) marshal() []byte {
	lines := []string{
		"path=" + cm.path,
		"format=" + cm.format,
		"size=" + strconv.FormatInt(cm.size, 10),
		"modtime=" + cm.modtime.UTC().Format(time.RFC3339Nano),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return []byte(strings.Join(lines, "\n"))
}

func parseCacheMeta(data []byte) (cacheMeta, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			fields[k] = v
		}
	}

	size, err := strconv.ParseInt(fields["size"], 10, 64)
	if err != nil {
		return cacheMeta{}, fmt.Errorf("parse cache size: %w", err)
	}
	modtime, err := time.Parse(time.RFC3339Nano, fields["modtime"])
	if err != nil {
		return cacheMeta{}, fmt.Errorf("parse cache modtime: %w", err)
	}
	return cacheMeta{
		path:    fields["path"],
		format:  fields["format"],
		size:    size,
		modtime: modtime,
	}, nil
}
