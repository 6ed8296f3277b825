package catalog

import (
	"database/sql"
	"fmt"
)

// createSchema creates all catalog tables and indexes if they do not exist.
// Must be called with PRAGMA foreign_keys = ON.
func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	// Create all tables in dependency order
	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"batches", createBatchesTable},
		{"documents", createDocumentsTable},
		{"formulas", createFormulasTable},
	}

	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,           -- UUID
    root_dir TEXT NOT NULL,
    format TEXT NOT NULL,
    batch_size INTEGER NOT NULL,
    started_at TEXT NOT NULL           -- RFC 3339
)`

const createBatchesTable = `
CREATE TABLE IF NOT EXISTS batches (
    run_id TEXT NOT NULL,
    batch_index INTEGER NOT NULL,      -- 1-based
    file_path TEXT NOT NULL,
    format TEXT NOT NULL,
    document_count INTEGER NOT NULL,
    written_at TEXT NOT NULL,
    PRIMARY KEY (run_id, batch_index),
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)`

const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
    run_id TEXT NOT NULL,
    batch_index INTEGER NOT NULL,
    position INTEGER NOT NULL,         -- order within the batch
    file_path TEXT NOT NULL,
    sheet_count INTEGER NOT NULL,
    formula_count INTEGER NOT NULL,
    invalid_count INTEGER NOT NULL,
    named_expression_count INTEGER NOT NULL,
    PRIMARY KEY (run_id, batch_index, position),
    FOREIGN KEY (run_id, batch_index) REFERENCES batches(run_id, batch_index) ON DELETE CASCADE
)`

const createFormulasTable = `
CREATE TABLE IF NOT EXISTS formulas (
    run_id TEXT NOT NULL,
    batch_index INTEGER NOT NULL,
    position INTEGER NOT NULL,
    sheet TEXT NOT NULL,
    row_index INTEGER NOT NULL,
    column_index INTEGER NOT NULL,
    formula TEXT NOT NULL,
    valid INTEGER NOT NULL,            -- Boolean
    token_count INTEGER,               -- NULL for invalid formulas
    error TEXT,                        -- NULL for valid formulas
    FOREIGN KEY (run_id, batch_index, position) REFERENCES documents(run_id, batch_index, position) ON DELETE CASCADE
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(file_path)`,
	`CREATE INDEX IF NOT EXISTS idx_formulas_document ON formulas(run_id, batch_index, position)`,
	`CREATE INDEX IF NOT EXISTS idx_formulas_valid ON formulas(valid)`,
}
