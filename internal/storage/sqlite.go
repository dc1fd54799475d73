package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/study"
	_ "modernc.org/sqlite"
)

// DB is the SQLite query cache over studies.jsonl. It is disposable: it can
// always be rebuilt from the JSONL file.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS studies (
			review_id TEXT NOT NULL,
			study_id INTEGER NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL,
			authors TEXT NOT NULL,
			year INTEGER NOT NULL,
			venue TEXT NOT NULL,
			doi TEXT,
			selection_status TEXT NOT NULL,
			extraction_status TEXT NOT NULL,
			reading_priority TEXT NOT NULL,
			document_json TEXT NOT NULL,
			UNIQUE (review_id, study_id)
		);

		CREATE INDEX IF NOT EXISTS idx_studies_doi ON studies(doi) WHERE doi IS NOT NULL AND doi != '';
		CREATE INDEX IF NOT EXISTS idx_studies_selection ON studies(review_id, selection_status);

		CREATE TABLE IF NOT EXISTS study_sources (
			review_id TEXT NOT NULL,
			study_id INTEGER NOT NULL,
			source TEXT NOT NULL,
			PRIMARY KEY (review_id, study_id, source)
		);

		-- rowid matches studies.rowid
		CREATE VIRTUAL TABLE IF NOT EXISTS studies_fts USING fts5(
			title,
			abstract,
			authors,
			keywords
		);

		CREATE TABLE IF NOT EXISTS _meta (
			key TEXT PRIMARY KEY,
			value TEXT
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and rebuilds it from a studies JSONL
// file, recording the file's hash so later calls to Sync can skip the work.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	docs, err := ReadStudies(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}
	hash, err := ComputeJSONLHash(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("hashing JSONL: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"studies", "study_sources", "studies_fts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	studyStmt, err := tx.Prepare(`
		INSERT INTO studies (
			review_id, study_id, type, title, authors, year, venue, doi,
			selection_status, extraction_status, reading_priority, document_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing studies insert: %w", err)
	}
	defer studyStmt.Close()

	sourceStmt, err := tx.Prepare(`INSERT OR IGNORE INTO study_sources (review_id, study_id, source) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing sources insert: %w", err)
	}
	defer sourceStmt.Close()

	ftsStmt, err := tx.Prepare(`INSERT INTO studies_fts (rowid, title, abstract, authors, keywords) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, doc := range docs {
		docJSON, err := json.Marshal(doc)
		if err != nil {
			return 0, fmt.Errorf("encoding study %d: %w", doc.StudyID, err)
		}
		res, err := studyStmt.Exec(
			doc.ReviewID.String(), doc.StudyID, string(doc.Type), doc.Title, doc.Authors, doc.Year, doc.Venue,
			nullableStringValue(string(doc.DOI)),
			string(orDefault(doc.SelectionStatus, study.SelectionUnclassified)),
			string(orDefault(doc.ExtractionStatus, study.ExtractionUnclassified)),
			string(orDefault(doc.ReadingPriority, study.PriorityLow)),
			string(docJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting study %d: %w", doc.StudyID, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("reading rowid of study %d: %w", doc.StudyID, err)
		}

		for _, src := range doc.SearchSources {
			if _, err := sourceStmt.Exec(doc.ReviewID.String(), doc.StudyID, src); err != nil {
				return 0, fmt.Errorf("inserting source of study %d: %w", doc.StudyID, err)
			}
		}

		if _, err := ftsStmt.Exec(rowID, doc.Title, doc.Abstract, doc.Authors, strings.Join(doc.Keywords, " ")); err != nil {
			return 0, fmt.Errorf("inserting fts for study %d: %w", doc.StudyID, err)
		}
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO _meta (key, value) VALUES ('jsonl_hash', ?)`, hash); err != nil {
		return 0, fmt.Errorf("storing JSONL hash: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(docs), nil
}

func orDefault[T ~string](v, def T) T {
	if v == "" {
		return def
	}
	return v
}

// Sync rebuilds the cache when the JSONL file changed since the last rebuild.
// It reports whether a rebuild happened.
func (d *DB) Sync(jsonlPath string) (bool, error) {
	hash, err := ComputeJSONLHash(jsonlPath)
	if err != nil {
		return false, err
	}
	var stored sql.NullString
	err = d.db.QueryRow("SELECT value FROM _meta WHERE key = 'jsonl_hash'").Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("reading stored hash: %w", err)
	}
	if stored.Valid && stored.String == hash {
		return false, nil
	}
	if _, err := d.RebuildFromJSONL(jsonlPath); err != nil {
		return false, err
	}
	return true, nil
}

// GetStudy retrieves one study review. It returns nil, nil when the study is not cached.
func (d *DB) GetStudy(reviewID uuid.UUID, studyID int64) (*study.Review, error) {
	row := d.db.QueryRow(`SELECT document_json FROM studies WHERE review_id = ? AND study_id = ?`,
		reviewID.String(), studyID)
	return scanStudy(row)
}

// StudyFilter narrows a study listing. Zero values mean "no filter".
type StudyFilter struct {
	Query      string                 // full-text search over title, abstract, authors and keywords
	Author     string                 // author name prefix search
	Source     string                 // search source label, exact
	Selection  study.SelectionStatus  // exact
	Extraction study.ExtractionStatus // exact
	Priority   study.ReadingPriority  // exact
	YearFrom   int
	YearTo     int
	DOI        study.DOI
	Limit      int
}

// ListStudies returns the study reviews of a systematic study matching every
// set filter, ordered by study id.
func (d *DB) ListStudies(reviewID uuid.UUID, f StudyFilter) ([]*study.Review, error) {
	query := `SELECT s.document_json FROM studies s WHERE s.review_id = ?`
	args := []interface{}{reviewID.String()}

	var ftsTerms []string
	if strings.TrimSpace(f.Query) != "" {
		ftsTerms = append(ftsTerms, prepareFTSQuery(f.Query))
	}
	if strings.TrimSpace(f.Author) != "" {
		ftsTerms = append(ftsTerms, "authors:"+prepareAuthorQuery(f.Author))
	}
	if len(ftsTerms) > 0 {
		query += ` AND s.rowid IN (SELECT rowid FROM studies_fts WHERE studies_fts MATCH ?)`
		args = append(args, strings.Join(ftsTerms, " AND "))
	}

	if f.Source != "" {
		query += ` AND EXISTS (SELECT 1 FROM study_sources ss
			WHERE ss.review_id = s.review_id AND ss.study_id = s.study_id AND ss.source = ?)`
		args = append(args, f.Source)
	}
	if f.Selection != "" {
		query += " AND s.selection_status = ?"
		args = append(args, string(f.Selection))
	}
	if f.Extraction != "" {
		query += " AND s.extraction_status = ?"
		args = append(args, string(f.Extraction))
	}
	if f.Priority != "" {
		query += " AND s.reading_priority = ?"
		args = append(args, string(f.Priority))
	}
	if f.YearFrom > 0 {
		query += " AND s.year >= ?"
		args = append(args, f.YearFrom)
	}
	if f.YearTo > 0 {
		query += " AND s.year <= ?"
		args = append(args, f.YearTo)
	}
	if f.DOI != "" {
		query += " AND s.doi = ?"
		args = append(args, string(f.DOI))
	}

	query += " ORDER BY s.study_id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing studies: %w", err)
	}
	defer rows.Close()

	return scanStudies(rows)
}

// Stats summarises the studies of one systematic study.
type Stats struct {
	Total     int            `json:"total"`
	Selection map[string]int `json:"selection"`
	Sources   map[string]int `json:"sources"`
}

// Stats counts studies per selection status and per search source.
func (d *DB) Stats(reviewID uuid.UUID) (Stats, error) {
	st := Stats{Selection: map[string]int{}, Sources: map[string]int{}}
	if err := d.countInto(st.Selection,
		`SELECT selection_status, COUNT(*) FROM studies WHERE review_id = ? GROUP BY selection_status`,
		reviewID.String()); err != nil {
		return Stats{}, err
	}
	if err := d.countInto(st.Sources,
		`SELECT source, COUNT(*) FROM study_sources WHERE review_id = ? GROUP BY source`,
		reviewID.String()); err != nil {
		return Stats{}, err
	}
	for _, n := range st.Selection {
		st.Total += n
	}
	return st, nil
}

func (d *DB) countInto(into map[string]int, query string, args ...interface{}) error {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return fmt.Errorf("counting studies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		into[key] = n
	}
	return rows.Err()
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStudy(s scanner) (*study.Review, error) {
	var docJSON string
	if err := s.Scan(&docJSON); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var doc study.Document
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return nil, fmt.Errorf("parsing cached study: %w", err)
	}
	return study.FromDocument(doc)
}

func scanStudies(rows *sql.Rows) ([]*study.Review, error) {
	out := []*study.Review{}
	for rows.Next() {
		r, err := scanStudy(rows)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery quotes every whitespace-separated term so punctuation and
// FTS5 operator words (AND, OR, NOT, NEAR) are matched as plain text. Terms
// are implicitly ANDed.
func prepareFTSQuery(query string) string {
	parts := strings.Fields(query)
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		terms = append(terms, "\""+strings.ReplaceAll(part, "\"", "\"\"")+"\"")
	}
	return strings.Join(terms, " ")
}

// prepareAuthorQuery adds a prefix wildcard to every name part so "Nas"
// matches "Nash". Parts are ORed.
func prepareAuthorQuery(author string) string {
	parts := strings.Fields(strings.ReplaceAll(author, ",", " "))
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		escaped := strings.ReplaceAll(part, "\"", "\"\"")
		terms = append(terms, "\""+escaped+"\"*")
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}
