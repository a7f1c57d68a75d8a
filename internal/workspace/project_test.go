package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"cipher_workbench/internal/detect"
	"cipher_workbench/internal/engine"
)

func TestEnsureAt(t *testing.T) {
	base := filepath.Join(t.TempDir(), BaseDirName)
	root, err := EnsureAt(base)
	if err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}

	for _, p := range []string{
		filepath.Join(root, "configs"),
		filepath.Join(root, "cache", "models"),
		filepath.Join(root, "projects"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected dir %s: %v", p, err)
		}
	}

	settingsPath := filepath.Join(root, "configs", "settings.json")
	raw, err := os.ReadFile(settingsPath)
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	var s Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	if s.RerankProvider != "ollama" || s.DefaultModel == "" {
		t.Fatalf("settings = %+v", s)
	}
}

func TestEnsureAtKeepsEditedSettings(t *testing.T) {
	base := filepath.Join(t.TempDir(), BaseDirName)
	if _, err := EnsureAt(base); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}

	settingsPath := filepath.Join(base, "configs", "settings.json")
	edited := []byte(`{"rerank_provider":"openai","default_model":"gpt-4o-mini"}`)
	if err := os.WriteFile(settingsPath, edited, 0o644); err != nil {
		t.Fatalf("edit settings: %v", err)
	}

	if _, err := EnsureAt(base); err != nil {
		t.Fatalf("re-ensure workspace: %v", err)
	}
	raw, err := os.ReadFile(settingsPath)
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	if string(raw) != string(edited) {
		t.Fatal("re-ensure overwrote edited settings")
	}
}

func TestCreateProject(t *testing.T) {
	base := filepath.Join(t.TempDir(), BaseDirName)
	root, err := EnsureAt(base)
	if err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}

	source := []byte("WKDW LV D VHFUHW PHVVDJH")
	project, err := CreateProject(root, "intercept.txt", source)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if len(project.ID) != 12 {
		t.Fatalf("project id = %q, want 12 hex chars", project.ID)
	}
	for _, p := range []string{project.Root, project.SourcePath} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected path %s: %v", p, err)
		}
	}

	// Same bytes land in the same project; different bytes do not.
	again, err := CreateProject(root, "other-name.txt", source)
	if err != nil {
		t.Fatalf("recreate project: %v", err)
	}
	if again.ID != project.ID {
		t.Fatalf("ids differ for identical source: %q vs %q", again.ID, project.ID)
	}
	other, err := CreateProject(root, "intercept.txt", []byte("different bytes"))
	if err != nil {
		t.Fatalf("create other project: %v", err)
	}
	if other.ID == project.ID {
		t.Fatal("distinct sources share a project id")
	}
}

func TestSaveAndLoadReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	rep := engine.Report{
		DocumentID: "doc-123456789abc",
		Detection:  detect.Result{LikelyType: "caesar", Confidence: 0.8, LetterCount: 20},
		Flags:      []string{"rerank_skipped"},
	}

	if err := SaveReport(path, rep); err != nil {
		t.Fatalf("save report: %v", err)
	}
	loaded, err := LoadReport(path)
	if err != nil {
		t.Fatalf("load report: %v", err)
	}
	if loaded.DocumentID != rep.DocumentID || loaded.Detection.LikelyType != "caesar" {
		t.Fatalf("round-trip = %+v", loaded)
	}
	if len(loaded.Flags) != 1 || loaded.Flags[0] != "rerank_skipped" {
		t.Fatalf("flags = %v", loaded.Flags)
	}
}

func TestSanitizeSourceName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"intercept.txt", "intercept.txt"},
		{"/tmp/deep/path/scan.pdf", "scan.pdf"},
		{"  ", "ciphertext.txt"},
		{"../../escape.txt", "escape.txt"},
	}
	for _, tc := range cases {
		if got := sanitizeSourceName(tc.in); got != tc.want {
			t.Errorf("sanitizeSourceName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
