package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/inodb/gem-gsc/internal/duckdb"
	"github.com/inodb/gem-gsc/internal/model"
)

// modelSource is a resolved model file and how to read it.
type modelSource struct {
	path    string
	format  model.Format
	noCache bool
}

// resolveModelPath returns arg if it names a file, otherwise looks it up
// among downloaded models (e.g. "human-gem").
func resolveModelPath(arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}
	if path, found := FindModel(arg); found {
		return path, nil
	}
	return "", fmt.Errorf("model %q not found: %w", arg, os.ErrNotExist)
}

// loadModel parses the model, going through the gob cache unless disabled.
// Cache failures are logged and never fatal.
func loadModel(src modelSource, logger *zap.Logger) (*model.Model, duckdb.FileFingerprint, error) {
	fp, err := duckdb.StatFile(src.path)
	if err != nil {
		return nil, duckdb.FileFingerprint{}, fmt.Errorf("stat model file: %w", err)
	}

	dir := cacheDir()
	useCache := !src.noCache && dir != ""
	mc := duckdb.NewModelCache(dir, fp, string(src.format))

	if useCache && mc.Valid(fp) {
		m, err := mc.Load()
		if err == nil {
			logger.Debug("loaded model from cache", zap.String("path", src.path), zap.String("cache", dir))
			return m, fp, nil
		}
		logger.Warn("model cache unreadable, reparsing", zap.Error(err))
		mc.Clear()
	}

	loader := model.NewLoader(src.path)
	loader.SetFormat(src.format)
	loader.SetLogger(logger)
	m, err := loader.Load()
	if err != nil {
		return nil, fp, err
	}

	if useCache {
		if err := mc.Write(m, fp); err != nil {
			logger.Warn("could not write model cache", zap.Error(err))
		}
	}
	return m, fp, nil
}
