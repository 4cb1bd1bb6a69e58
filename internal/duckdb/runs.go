package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/gem-gsc/internal/gsc"
)

// Run describes one extraction of a gene set collection from a model file.
type Run struct {
	ID        string
	ModelID   string
	Model     FileFingerprint
	Mode      gsc.Mode
	SetCount  int
	CreatedAt time.Time
}

// NewRun creates a run record with a fresh ID.
func NewRun(modelID string, model FileFingerprint, mode gsc.Mode) Run {
	return Run{
		ID:        uuid.NewString(),
		ModelID:   modelID,
		Model:     model,
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
	}
}

// GeneHit is a set containing a queried gene.
type GeneHit struct {
	RunID   string
	ModelID string
	Mode    gsc.Mode
	SetName string
}

// geneKey is the composite key for deduplicating gene rows before writing.
type geneKey struct {
	set, gene string
}

// RecordRun stores a run and its collection. Gene rows are bulk-inserted with
// the Appender API; duplicate (set, gene) pairs are written once.
func (s *Store) RecordRun(run Run, c *gsc.Collection) error {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "gene_sets")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	seen := make(map[geneKey]bool)
	rows := 0
	for si, set := range c.Sets {
		for gi, gene := range set.Genes {
			k := geneKey{set.Name, gene}
			if seen[k] {
				continue
			}
			seen[k] = true
			if err := appender.AppendRow(run.ID, set.Name, int32(si), int32(gi), gene); err != nil {
				appender.Close()
				s.deleteRun(run.ID)
				return fmt.Errorf("append gene set row: %w", err)
			}
			rows++
		}
	}
	if err := appender.Close(); err != nil {
		s.deleteRun(run.ID)
		return fmt.Errorf("flush gene set rows: %w", err)
	}

	run.SetCount = c.Len()
	if _, err := conn.ExecContext(ctx, `INSERT INTO extraction_runs
		(run_id, model_id, model_path, model_size, model_modtime, mode, set_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ModelID, run.Model.Path, run.Model.Size, run.Model.ModTime.UTC(),
		string(run.Mode), run.SetCount, run.CreatedAt); err != nil {
		s.deleteRun(run.ID)
		return fmt.Errorf("insert run: %w", err)
	}

	s.logger.Debug("recorded extraction run",
		zap.String("run", run.ID),
		zap.String("mode", string(run.Mode)),
		zap.Int("sets", run.SetCount),
		zap.Int("rows", rows))
	return nil
}

func (s *Store) deleteRun(runID string) {
	if _, err := s.db.Exec("DELETE FROM gene_sets WHERE run_id=?", runID); err != nil {
		s.logger.Warn("failed to clean up partial run", zap.String("run", runID), zap.Error(err))
	}
}

const runColumns = `run_id, model_id, model_path, model_size, model_modtime, mode, set_count, created_at`

// Runs returns all recorded runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM extraction_runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the newest run for a model and mode, or nil if none exists.
func (s *Store) LatestRun(modelID string, mode gsc.Mode) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM extraction_runs
		WHERE model_id=? AND mode=?
		ORDER BY created_at DESC LIMIT 1`, modelID, string(mode))
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadCollection returns the collection recorded for a run, with set and
// gene order preserved.
func (s *Store) LoadCollection(runID string) (*gsc.Collection, error) {
	rows, err := s.db.Query(`SELECT set_name, gene_id FROM gene_sets
		WHERE run_id=?
		ORDER BY set_position, gene_position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query gene sets: %w", err)
	}
	defer rows.Close()

	c := &gsc.Collection{}
	for rows.Next() {
		var name, gene string
		if err := rows.Scan(&name, &gene); err != nil {
			return nil, fmt.Errorf("scan gene set row: %w", err)
		}
		n := len(c.Sets)
		if n == 0 || c.Sets[n-1].Name != name {
			c.Sets = append(c.Sets, gsc.Set{Name: name, Description: gsc.DescriptionPlaceholder})
			n++
		}
		c.Sets[n-1].Genes = append(c.Sets[n-1].Genes, gene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gene sets: %w", err)
	}
	return c, nil
}

// SetsForGene returns every recorded set containing the gene.
func (s *Store) SetsForGene(geneID string) ([]GeneHit, error) {
	rows, err := s.db.Query(`SELECT r.run_id, r.model_id, r.mode, g.set_name
		FROM gene_sets g JOIN extraction_runs r ON g.run_id = r.run_id
		WHERE g.gene_id=?
		ORDER BY r.created_at DESC, g.set_position`, geneID)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	var hits []GeneHit
	for rows.Next() {
		var h GeneHit
		var mode string
		if err := rows.Scan(&h.RunID, &h.ModelID, &mode, &h.SetName); err != nil {
			return nil, fmt.Errorf("scan gene hit: %w", err)
		}
		h.Mode = gsc.Mode(mode)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gene hits: %w", err)
	}
	return hits, nil
}

// ClearRuns removes all recorded runs and gene sets.
func (s *Store) ClearRuns() error {
	if _, err := s.db.Exec("DELETE FROM gene_sets"); err != nil {
		return fmt.Errorf("clear gene sets: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM extraction_runs"); err != nil {
		return fmt.Errorf("clear runs: %w", err)
	}
	return nil
}

// scanRun scans a single run from a row.
func scanRun(row interface{ Scan(dest ...any) error }) (Run, error) {
	var r Run
	var mode string
	var setCount int32
	if err := row.Scan(&r.ID, &r.ModelID, &r.Model.Path, &r.Model.Size, &r.Model.ModTime,
		&mode, &setCount, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Mode = gsc.Mode(mode)
	r.SetCount = int(setCount)
	return r, nil
}
