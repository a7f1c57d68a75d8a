package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    document_id TEXT,
    label TEXT,
    ciphertext TEXT,
    letter_count INTEGER,
    likely_type TEXT,
    ic REAL,
    detect_confidence REAL,
    rerank_provider TEXT,
    created_at TEXT
);

CREATE TABLE IF NOT EXISTS candidates (
    analysis_id TEXT,
    rank INTEGER,
    type TEXT,
    formula TEXT,
    shift INTEGER,
    key TEXT,
    mapping TEXT,
    plaintext TEXT,
    ngram_score REAL,
    confidence REAL,
    plausibility REAL,
    rationale TEXT
);

CREATE INDEX IF NOT EXISTS candidates_by_analysis ON candidates(analysis_id, rank);
`

func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
