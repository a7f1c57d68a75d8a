package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cipher_workbench/internal/engine"
)

// ProjectInfo locates one ciphertext's project directory. The id is derived
// from the source bytes, so re-importing the same ciphertext lands in the
// same project.
type ProjectInfo struct {
	ID         string
	Root       string
	SourcePath string
	ReportPath string
}

// CreateProject lays out projects/<id>/ with the source material inside.
// The report file is written later by SaveReport; ReportPath says where.
func CreateProject(workspaceRoot, sourceFileName string, source []byte) (*ProjectInfo, error) {
	id := contentHash(source)
	projectRoot := filepath.Join(workspaceRoot, "projects", id)
	if err := os.MkdirAll(projectRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}

	sourceFileName = sanitizeSourceName(sourceFileName)
	sourcePath := filepath.Join(projectRoot, sourceFileName)
	if len(source) > 0 {
		if err := os.WriteFile(sourcePath, source, 0o644); err != nil {
			return nil, fmt.Errorf("write source file: %w", err)
		}
	} else if _, err := os.Stat(sourcePath); os.IsNotExist(err) {
		if err := os.WriteFile(sourcePath, nil, 0o644); err != nil {
			return nil, fmt.Errorf("create empty source file: %w", err)
		}
	}

	return &ProjectInfo{
		ID:         id,
		Root:       projectRoot,
		SourcePath: sourcePath,
		ReportPath: filepath.Join(projectRoot, "report.json"),
	}, nil
}

// SaveReport writes the full analysis report next to the source. The
// database keeps the queryable summary; this file is the complete artifact
// with traces and logs.
func SaveReport(path string, rep engine.Report) error {
	raw, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func LoadReport(path string) (engine.Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return engine.Report{}, fmt.Errorf("read report: %w", err)
	}
	var rep engine.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return engine.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return rep, nil
}

func contentHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])[:12]
}

func sanitizeSourceName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "ciphertext.txt"
	}
	return strings.ReplaceAll(base, "..", "")
}
