package fileio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePath_RejectsRelative(t *testing.T) {
	for _, p := range []string{"relative/path.go", "./file.go", "file.go"} {
		if _, err := ValidatePath(p); err == nil {
			t.Errorf("expected rejection of relative path %q", p)
		}
	}
}

func TestValidatePath_RejectsTraversal(t *testing.T) {
	cases := []string{
		"/tmp/../etc/passwd",
		"/tmp/..%2fetc",
		"/tmp/%2e%2e/secret",
		"/tmp/file%00.go",
	}
	for _, p := range cases {
		if _, err := ValidatePath(p); err == nil {
			t.Errorf("expected rejection of %q", p)
		}
	}
}

func TestValidatePath_RejectsSystemDirs(t *testing.T) {
	for _, p := range []string{"/etc", "/etc/passwd", "/proc/self", "/sys", "/"} {
		if _, err := ValidatePath(p); err == nil {
			t.Errorf("expected rejection of system path %q", p)
		}
	}
}

func TestValidatePath_AcceptsTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ok.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
	resolved, err := ValidatePath(path)
	if err != nil {
		t.Fatalf("unexpected rejection: %v", err)
	}
	if !filepath.IsAbs(resolved) {
		t.Errorf("resolved path %q is not absolute", resolved)
	}
}

func TestNormalizeLineEndings(t *testing.T) {
	if got := NormalizeLineEndings("a\r\nb\rc\nd"); got != "a\nb\nc\nd" {
		t.Errorf("unexpected normalization: %q", got)
	}
}

func TestAddLineNumbers_MinWidth(t *testing.T) {
	got := AddLineNumbers("first\nsecond")
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "   1│ first") {
		t.Errorf("expected 4-wide line number prefix, got %q", lines[0])
	}
}

func TestReadFile_Framing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	if err := os.WriteFile(path, []byte("hello\r\nworld"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := ReadFile(path, ReadOptions{})
	if !strings.Contains(out, "--- BEGIN FILE: ") || !strings.Contains(out, "--- END FILE: ") {
		t.Errorf("missing framing: %q", out)
	}
	if !strings.Contains(out, "hello\nworld") {
		t.Errorf("expected normalized body, got %q", out)
	}
}

func TestReadFile_MissingFileErrorBlock(t *testing.T) {
	dir := t.TempDir()
	out := ReadFile(filepath.Join(dir, "absent.txt"), ReadOptions{})
	if !strings.Contains(out, "--- ERROR READING FILE: ") {
		t.Errorf("expected framed error block, got %q", out)
	}
}

func TestReadFile_LineNumbers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "numbered.txt")
	if err := os.WriteFile(path, []byte("one\ntwo"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := ReadFile(path, ReadOptions{LineNumbers: true})
	if !strings.Contains(out, "   1│ one") || !strings.Contains(out, "   2│ two") {
		t.Errorf("expected numbered lines, got %q", out)
	}
}

func TestExpandPaths_SkipsExcludedAndHidden(t *testing.T) {
	dir := t.TempDir()
	mustWrite := func(rel, content string) {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("keep.go", "package keep")
	mustWrite("sub/also.go", "package sub")
	mustWrite("node_modules/dep/index.js", "skip")
	mustWrite(".git/config", "skip")
	mustWrite(".hidden.txt", "skip")

	files, errs := ExpandPaths([]string{dir})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
	for _, f := range files {
		if strings.Contains(f, "node_modules") || strings.Contains(f, ".git") || strings.Contains(f, ".hidden") {
			t.Errorf("excluded entry leaked: %s", f)
		}
	}
}

func TestExpandPaths_Deduplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.go")
	if err := os.WriteFile(path, []byte("package one"), 0o644); err != nil {
		t.Fatal(err)
	}
	files, _ := ExpandPaths([]string{path, path, dir})
	if len(files) != 1 {
		t.Errorf("expected 1 deduplicated file, got %d: %v", len(files), files)
	}
}
