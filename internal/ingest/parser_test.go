package ingest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseFileTxt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intercept-07.txt")
	content := "WKDW LV D\n\n  VHFUHW   PHVVDJH  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}

	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if doc.Label != "intercept-07" {
		t.Errorf("label = %q", doc.Label)
	}
	if doc.Text != "WKDW LV D\nVHFUHW PHVVDJH" {
		t.Errorf("text = %q", doc.Text)
	}
	if string(doc.SourceBytes) != content {
		t.Error("source bytes not preserved verbatim")
	}
	if doc.SourcePath != path {
		t.Errorf("source path = %q", doc.SourcePath)
	}
}

func TestParseDOCX(t *testing.T) {
	raw := buildDOCX(t, `<w:document><w:body><w:p><w:r><w:t>WKDW LV D</w:t></w:r></w:p><w:p><w:r><w:t>VHFUHW PHVVDJH</w:t></w:r></w:p></w:body></w:document>`)
	got, err := parseDOCX(raw)
	if err != nil {
		t.Fatalf("parseDOCX failed: %v", err)
	}
	if got != "WKDW LV D\nVHFUHW PHVVDJH" {
		t.Fatalf("text = %q", got)
	}
}

func TestParseFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.png")
	if err := os.WriteFile(path, []byte("not text"), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if _, err := ParseFile(path); err == nil {
		t.Fatal("expected unsupported file type error")
	}
}

func TestFindSources(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", "scan.pdf", "notes.md", "image.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := FindSources(dir)
	if err != nil {
		t.Fatalf("FindSources: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "scan.pdf"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sources = %v, want %v", got, want)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	in := "  line one  \n\n\n\tline\t\ttwo  \n"
	got := normalizeWhitespace(in)
	if got != "line one\nline two" {
		t.Fatalf("normalized = %q", got)
	}
}

func buildDOCX(t *testing.T, bodyXML string) []byte {
	t.Helper()
	var b bytes.Buffer
	zw := zip.NewWriter(&b)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	xml := `<?xml version="1.0" encoding="UTF-8"?>` + bodyXML
	if _, err := f.Write([]byte(xml)); err != nil {
		t.Fatalf("write xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return b.Bytes()
}
