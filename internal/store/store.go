// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists parsed guideline documents in SQLite and serves
// full-text recommendation search over them.
// Implements: results store (documents, charts, recommendations with FTS5,
//
//	reference entries, evidence records); docs/ARCHITECTURE § Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/guideline-engine/pkg/types"
)

const dbFile = "guidelines.db"

// Store manages the results database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates storeDir/guidelines.db and its schema.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.StoreDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(cfg.StoreDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	s := &Store{db: db, dir: cfg.StoreDir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			name TEXT PRIMARY KEY,
			charts INTEGER NOT NULL,
			rows INTEGER NOT NULL,
			diagnostics TEXT,
			ingested_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS charts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document TEXT NOT NULL REFERENCES documents(name),
			ordinal INTEGER NOT NULL,
			title TEXT,
			subtitle TEXT,
			position INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS recommendations (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			document TEXT NOT NULL REFERENCES documents(name),
			chart_id INTEGER NOT NULL REFERENCES charts(id),
			classification TEXT NOT NULL,
			evidence_level TEXT NOT NULL,
			text TEXT NOT NULL,
			citations TEXT,
			position INTEGER,
			truncated INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_document ON recommendations(document)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_class ON recommendations(classification)`,
		`CREATE TABLE IF NOT EXISTS reference_entries (
			document TEXT NOT NULL REFERENCES documents(name),
			key TEXT NOT NULL,
			citation_text TEXT,
			pmids TEXT,
			PRIMARY KEY (document, key)
		)`,
		`CREATE TABLE IF NOT EXISTS evidence_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document TEXT NOT NULL REFERENCES documents(name),
			pmid TEXT,
			acronym TEXT,
			author TEXT,
			year TEXT,
			table_title TEXT,
			confidence TEXT,
			fields TEXT,
			refs TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_pmid ON evidence_records(pmid)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='recommendations_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	fts := []string{
		`CREATE VIRTUAL TABLE recommendations_fts USING fts5(text, content=recommendations, content_rowid=rowid)`,
		`CREATE TRIGGER recommendations_ai AFTER INSERT ON recommendations BEGIN
			INSERT INTO recommendations_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER recommendations_ad AFTER DELETE ON recommendations BEGIN
			INSERT INTO recommendations_fts(recommendations_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER recommendations_au AFTER UPDATE ON recommendations BEGIN
			INSERT INTO recommendations_fts(recommendations_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO recommendations_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, stmt := range fts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from a store ingest run.
type IngestSummary struct {
	Indexed int
	Updated int
	Failed  int
}

// Total returns the number of documents processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Failed
}

// Ingest stores one parsed document. A document already in the store has
// all of its rows replaced in the same transaction. It reports whether the
// document was already present.
func (s *Store) Ingest(ctx context.Context, res *types.DocumentResult) (updated bool, err error) {
	if res.Name == "" {
		return false, fmt.Errorf("document has no name")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE name = ?`, res.Name).Scan(&n); err != nil {
		return false, fmt.Errorf("checking document: %w", err)
	}
	updated = n > 0
	if updated {
		for _, table := range []string{"recommendations", "charts", "reference_entries", "evidence_records", "documents"} {
			col := "document"
			if table == "documents" {
				col = "name"
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE `+col+` = ?`, res.Name); err != nil {
				return false, fmt.Errorf("deleting old %s: %w", table, err)
			}
		}
	}

	diagJSON, _ := json.Marshal(res.Diagnostics)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (name, charts, rows, diagnostics, ingested_at) VALUES (?, ?, ?, ?, ?)`,
		res.Name, len(res.Charts), res.RowCount(), string(diagJSON), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return false, fmt.Errorf("inserting document: %w", err)
	}

	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO recommendations (document, chart_id, classification, evidence_level, text, citations, position, truncated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return false, fmt.Errorf("preparing insert: %w", err)
	}
	defer recStmt.Close()

	for i, c := range res.Charts {
		r, err := tx.ExecContext(ctx,
			`INSERT INTO charts (document, ordinal, title, subtitle, position) VALUES (?, ?, ?, ?, ?)`,
			res.Name, i, c.Title, c.Subtitle, c.Position,
		)
		if err != nil {
			return false, fmt.Errorf("inserting chart %d: %w", i, err)
		}
		chartID, err := r.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("reading chart id: %w", err)
		}
		for _, row := range c.Rows {
			citJSON, _ := json.Marshal(row.Citations)
			if _, err := recStmt.ExecContext(ctx,
				res.Name, chartID, string(row.Classification), string(row.EvidenceLevel),
				row.Text, string(citJSON), row.Position, row.Truncated,
			); err != nil {
				return false, fmt.Errorf("inserting recommendation at %d: %w", row.Position, err)
			}
		}
	}

	if res.References != nil {
		for _, e := range res.References.Entries {
			pmids, _ := json.Marshal(e.PMIDs)
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO reference_entries (document, key, citation_text, pmids) VALUES (?, ?, ?, ?)`,
				res.Name, e.Key, e.CitationText, string(pmids),
			); err != nil {
				return false, fmt.Errorf("inserting reference %s: %w", e.Key, err)
			}
		}
	}

	for _, rec := range res.Records {
		fields, _ := json.Marshal(rec.Fields)
		refs, _ := json.Marshal(rec.References)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO evidence_records (document, pmid, acronym, author, year, table_title, confidence, fields, refs)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.Name, rec.PMID, rec.Acronym, rec.Author, rec.Year, rec.Table, string(rec.Confidence),
			string(fields), string(refs),
		); err != nil {
			return false, fmt.Errorf("inserting evidence record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing %s: %w", res.Name, err)
	}
	return updated, nil
}

// IngestAll stores each document, printing one status line per document to
// w and a summary at the end. A failing document does not stop the run.
func (s *Store) IngestAll(ctx context.Context, docs []*types.DocumentResult, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary
	for _, res := range docs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		updated, err := s.Ingest(ctx, res)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed  %s: %v\n", res.Name, err)
			summary.Failed++
		case updated:
			fmt.Fprintf(w, "updated %s (%d rows)\n", res.Name, res.RowCount())
			summary.Updated++
		default:
			fmt.Fprintf(w, "indexing %s (%d rows)\n", res.Name, res.RowCount())
			summary.Indexed++
		}
	}
	fmt.Fprintf(w, "\nindexed: %d, updated: %d, failed: %d\n", summary.Indexed, summary.Updated, summary.Failed)
	return summary, nil
}

// DocumentInfo summarises one stored document.
type DocumentInfo struct {
	Name       string `json:"name" yaml:"name"`
	Charts     int    `json:"charts" yaml:"charts"`
	Rows       int    `json:"rows" yaml:"rows"`
	IngestedAt string `json:"ingested_at" yaml:"ingested_at"`
}

// Documents lists stored documents by name.
func (s *Store) Documents(ctx context.Context) ([]DocumentInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, charts, rows, ingested_at FROM documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentInfo
	for rows.Next() {
		var d DocumentInfo
		if err := rows.Scan(&d.Name, &d.Charts, &d.Rows, &d.IngestedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Evidence returns the stored evidence records carrying pmid.
func (s *Store) Evidence(ctx context.Context, pmid string) ([]types.EvidenceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT pmid, acronym, author, year, table_title, confidence, fields, refs
		 FROM evidence_records WHERE pmid = ? ORDER BY document, id`, pmid)
	if err != nil {
		return nil, fmt.Errorf("querying evidence: %w", err)
	}
	defer rows.Close()

	var out []types.EvidenceRecord
	for rows.Next() {
		var (
			rec                types.EvidenceRecord
			confidence         string
			fieldsJSON, refsJS sql.NullString
		)
		if err := rows.Scan(&rec.PMID, &rec.Acronym, &rec.Author, &rec.Year, &rec.Table, &confidence, &fieldsJSON, &refsJS); err != nil {
			return nil, fmt.Errorf("scanning evidence: %w", err)
		}
		rec.Confidence = types.MappingConfidence(confidence)
		if fieldsJSON.Valid {
			json.Unmarshal([]byte(fieldsJSON.String), &rec.Fields)
		}
		if refsJS.Valid {
			json.Unmarshal([]byte(refsJS.String), &rec.References)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
