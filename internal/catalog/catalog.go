// Package catalog records rendered batches in a SQLite database so that a
// run's output can be queried without re-reading the batch files.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mvp-joe/formulax/internal/batch"
)

// RunInfo describes a batch run.
type RunInfo struct {
	RootDir   string
	Format    string
	BatchSize int
}

// Summary aggregates what a run recorded.
type Summary struct {
	Batches         int
	Documents       int
	Formulas        int
	InvalidFormulas int
}

// Catalog is an open catalog database bound to one run.
type Catalog struct {
	db    *sql.DB
	runID string
}

// Open opens or creates the catalog at path and starts a new run.
func Open(ctx context.Context, path string, info RunInfo) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	// A single connection keeps :memory: databases and the foreign_keys
	// pragma consistent across statements.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	c := &Catalog{db: db, runID: uuid.NewString()}
	_, err = db.ExecContext(ctx,
		`INSERT INTO runs (run_id, root_dir, format, batch_size, started_at) VALUES (?, ?, ?, ?, ?)`,
		c.runID, info.RootDir, info.Format, info.BatchSize, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return c, nil
}

// RunID returns the identifier of the run this catalog records.
func (c *Catalog) RunID() string {
	return c.runID
}

// RecordBatch inserts a batch with its documents and formula cells in one
// transaction.
func (c *Catalog) RecordBatch(ctx context.Context, file, format string, b *batch.Batch) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (run_id, batch_index, file_path, format, document_count, written_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.runID, b.Index, file, format, len(b.Documents), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert batch %d: %w", b.Index, err)
	}

	docStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (run_id, batch_index, position, file_path, sheet_count, formula_count, invalid_count, named_expression_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare document insert: %w", err)
	}
	defer docStmt.Close()

	formulaStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO formulas (run_id, batch_index, position, sheet, row_index, column_index, formula, valid, token_count, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare formula insert: %w", err)
	}
	defer formulaStmt.Close()

	for pos, doc := range b.Documents {
		_, err := docStmt.ExecContext(ctx, c.runID, b.Index, pos, doc.Filepath,
			len(doc.Sheets), len(doc.Formulas), doc.InvalidCount(), len(doc.NamedExpressions))
		if err != nil {
			return fmt.Errorf("failed to insert document %s: %w", doc.Filepath, err)
		}

		for _, f := range doc.Formulas {
			var tokenCount sql.NullInt64
			var errText sql.NullString
			if f.Valid() {
				tokenCount = sql.NullInt64{Int64: int64(len(f.Tokens())), Valid: true}
			} else {
				errText = sql.NullString{String: f.ErrorText(), Valid: true}
			}

			_, err := formulaStmt.ExecContext(ctx, c.runID, b.Index, pos,
				f.Sheet, f.Row, f.Column, f.Formula, f.Valid(), tokenCount, errText)
			if err != nil {
				return fmt.Errorf("failed to insert formula %s!R%dC%d: %w", f.Sheet, f.Row, f.Column, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch %d: %w", b.Index, err)
	}
	return nil
}

// Summary returns totals for this catalog's run.
func (c *Catalog) Summary(ctx context.Context) (*Summary, error) {
	s := &Summary{}

	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM batches WHERE run_id = ?`, c.runID).Scan(&s.Batches)
	if err != nil {
		return nil, fmt.Errorf("failed to count batches: %w", err)
	}

	err = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(formula_count), 0), COALESCE(SUM(invalid_count), 0)
		 FROM documents WHERE run_id = ?`, c.runID).Scan(&s.Documents, &s.Formulas, &s.InvalidFormulas)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize documents: %w", err)
	}

	return s, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
