package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cipher_workbench/internal/engine"
)

// AnalysisRecord is the stored header row for one analysis run. The full
// report lives in the workspace; these columns are the queryable summary.
type AnalysisRecord struct {
	ID             string  `json:"id"`
	DocumentID     string  `json:"document_id"`
	Label          string  `json:"label"`
	Ciphertext     string  `json:"ciphertext"`
	LetterCount    int     `json:"letter_count"`
	LikelyType     string  `json:"likely_type"`
	IC             float64 `json:"ic"`
	Confidence     float64 `json:"confidence"`
	RerankProvider string  `json:"rerank_provider"`
	CreatedAt      string  `json:"created_at"`
}

// CandidateRecord is one stored candidate decryption.
type CandidateRecord struct {
	AnalysisID   string  `json:"analysis_id"`
	Rank         int     `json:"rank"`
	Type         string  `json:"type"`
	Formula      string  `json:"formula"`
	Shift        int     `json:"shift,omitempty"`
	Key          []int   `json:"key,omitempty"`
	Mapping      string  `json:"mapping,omitempty"`
	Plaintext    string  `json:"plaintext"`
	NgramScore   float64 `json:"ngram_score"`
	Confidence   float64 `json:"confidence"`
	Plausibility float64 `json:"plausibility,omitempty"`
	Rationale    string  `json:"rationale,omitempty"`
}

// PersistAnalysis stores one run and its candidates, returning the new
// analysis id.
func PersistAnalysis(dbPath, label, rerankProvider string, in engine.Input, rep engine.Report) (string, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	tx, err := conn.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	if strings.TrimSpace(label) == "" {
		label = rep.DocumentID
	}
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := tx.Exec(
		`INSERT INTO analyses(id, document_id, label, ciphertext, letter_count, likely_type, ic, detect_confidence, rerank_provider, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		id,
		rep.DocumentID,
		label,
		in.Ciphertext,
		rep.Detection.LetterCount,
		rep.Detection.LikelyType,
		rep.Detection.IndexOfCoincidence,
		rep.Detection.Confidence,
		rerankProvider,
		createdAt,
	); err != nil {
		return "", fmt.Errorf("insert analysis: %w", err)
	}

	for _, cand := range rep.Candidates {
		keyJSON := ""
		if len(cand.Key) > 0 {
			b, _ := json.Marshal(cand.Key)
			keyJSON = string(b)
		}
		if _, err := tx.Exec(
			`INSERT INTO candidates(analysis_id, rank, type, formula, shift, key, mapping, plaintext, ngram_score, confidence, plausibility, rationale)
			 VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
			id,
			cand.Rank,
			cand.Type,
			cand.Formula,
			cand.Shift,
			keyJSON,
			cand.Mapping,
			cand.Plaintext,
			cand.NgramScore,
			cand.Confidence,
			cand.Plausibility,
			cand.Rationale,
		); err != nil {
			return "", fmt.Errorf("insert candidate: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	return id, nil
}

// ListAnalyses returns stored runs newest first. limit <= 0 means all.
func ListAnalyses(dbPath string, limit int) ([]AnalysisRecord, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := `SELECT id, document_id, label, ciphertext, letter_count, likely_type, ic, detect_confidence, rerank_provider, created_at
		FROM analyses ORDER BY rowid DESC`
	var rows *sql.Rows
	if limit > 0 {
		rows, err = conn.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = conn.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.Label, &rec.Ciphertext, &rec.LetterCount,
			&rec.LikelyType, &rec.IC, &rec.Confidence, &rec.RerankProvider, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetAnalysis loads one run and its candidates in presentation order. A
// missing id surfaces sql.ErrNoRows for the caller to map to not-found.
func GetAnalysis(dbPath, id string) (AnalysisRecord, []CandidateRecord, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return AnalysisRecord{}, nil, err
	}
	defer conn.Close()

	var rec AnalysisRecord
	row := conn.QueryRow(
		`SELECT id, document_id, label, ciphertext, letter_count, likely_type, ic, detect_confidence, rerank_provider, created_at
		 FROM analyses WHERE id = ?`, id)
	if err := row.Scan(&rec.ID, &rec.DocumentID, &rec.Label, &rec.Ciphertext, &rec.LetterCount,
		&rec.LikelyType, &rec.IC, &rec.Confidence, &rec.RerankProvider, &rec.CreatedAt); err != nil {
		return AnalysisRecord{}, nil, fmt.Errorf("load analysis %s: %w", id, err)
	}

	rows, err := conn.Query(
		`SELECT analysis_id, rank, type, formula, shift, key, mapping, plaintext, ngram_score, confidence, plausibility, rationale
		 FROM candidates WHERE analysis_id = ? ORDER BY rank`, id)
	if err != nil {
		return AnalysisRecord{}, nil, fmt.Errorf("load candidates: %w", err)
	}
	defer rows.Close()

	var cands []CandidateRecord
	for rows.Next() {
		var c CandidateRecord
		var keyJSON string
		if err := rows.Scan(&c.AnalysisID, &c.Rank, &c.Type, &c.Formula, &c.Shift, &keyJSON, &c.Mapping,
			&c.Plaintext, &c.NgramScore, &c.Confidence, &c.Plausibility, &c.Rationale); err != nil {
			return AnalysisRecord{}, nil, fmt.Errorf("scan candidate: %w", err)
		}
		if keyJSON != "" {
			if err := json.Unmarshal([]byte(keyJSON), &c.Key); err != nil {
				return AnalysisRecord{}, nil, fmt.Errorf("decode candidate key: %w", err)
			}
		}
		cands = append(cands, c)
	}
	return rec, cands, rows.Err()
}

func CountRows(dbPath, table string) (int, error) {
	conn, err := Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer conn.Close()
	return countRowsConn(conn, table)
}

func countRowsConn(conn *sql.DB, table string) (int, error) {
	row := conn.QueryRow(`SELECT COUNT(*) FROM ` + table)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("scan count: %w", err)
	}
	return count, nil
}
