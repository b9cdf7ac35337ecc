package fileproc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/detrace/detrace/pkg/parser"
)

func createTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

func TestMapFiles(t *testing.T) {
	tmpDir := t.TempDir()

	files := []string{
		createTestFile(t, tmpDir, "file1.js", "const a = 1;"),
		createTestFile(t, tmpDir, "file2.js", "const b = 2;"),
		createTestFile(t, tmpDir, "file3.js", "const c = 3;"),
	}

	ctx := context.Background()
	results, errs := MapFiles(ctx, files, func(p *parser.Parser, path string) (string, error) {
		return filepath.Base(path), nil
	})

	if errs != nil {
		t.Errorf("Unexpected errors: %v", errs)
	}
	if len(results) != len(files) {
		t.Errorf("Expected %d results, got %d", len(files), len(results))
	}

	resultMap := make(map[string]bool)
	for _, r := range results {
		resultMap[r] = true
	}
	for _, expected := range []string{"file1.js", "file2.js", "file3.js"} {
		if !resultMap[expected] {
			t.Errorf("Missing expected result: %s", expected)
		}
	}
}

func TestMapFiles_EmptyFileList(t *testing.T) {
	ctx := context.Background()
	results, errs := MapFiles(ctx, []string{}, func(p *parser.Parser, path string) (string, error) {
		return path, nil
	})

	if results != nil {
		t.Errorf("Expected nil for empty file list, got %v", results)
	}
	if errs != nil {
		t.Errorf("Expected nil errors for empty file list, got %v", errs)
	}
}

func TestMapFiles_ParserProvided(t *testing.T) {
	tmpDir := t.TempDir()
	file := createTestFile(t, tmpDir, "app.js", "const a = 1;\n")

	ctx := context.Background()
	results, errs := MapFiles(ctx, []string{file}, func(p *parser.Parser, path string) (parser.Language, error) {
		result, err := p.ParseFile(path)
		if err != nil {
			return parser.LangUnknown, err
		}
		return result.Language, nil
	})

	if errs != nil {
		t.Errorf("Unexpected errors: %v", errs)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0] != parser.LangJavaScript {
		t.Errorf("Expected javascript, got %s", results[0])
	}
}

func TestMapFiles_WithErrors(t *testing.T) {
	tmpDir := t.TempDir()

	files := []string{
		createTestFile(t, tmpDir, "good1.js", "const a = 1;"),
		createTestFile(t, tmpDir, "bad.js", "const b = 2;"),
		createTestFile(t, tmpDir, "good2.js", "const c = 3;"),
	}

	ctx := context.Background()
	results, errs := MapFiles(ctx, files, func(p *parser.Parser, path string) (string, error) {
		if strings.Contains(path, "bad") {
			return "", fmt.Errorf("intentional failure")
		}
		return filepath.Base(path), nil
	})

	if errs == nil || !errs.HasErrors() {
		t.Fatal("Expected errors for the failing file")
	}
	if len(errs.Errors) != 1 {
		t.Errorf("Expected 1 error, got %d", len(errs.Errors))
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}
}

func TestMapFiles_ContextCancellation(t *testing.T) {
	tmpDir := t.TempDir()

	files := make([]string, 10)
	for i := range files {
		files[i] = createTestFile(t, tmpDir, fmt.Sprintf("file%d.js", i), "const a = 1;")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, errs := MapFiles(ctx, files, func(p *parser.Parser, path string) (string, error) {
		return path, nil
	})

	if errs == nil || !errs.HasErrors() {
		t.Error("Expected context errors after cancellation")
	}
	if len(results) == len(files) {
		t.Error("Expected some files to be skipped after cancellation")
	}
}

func TestMapFilesWithProgress(t *testing.T) {
	tmpDir := t.TempDir()

	files := []string{
		createTestFile(t, tmpDir, "file1.js", "const a = 1;"),
		createTestFile(t, tmpDir, "file2.js", "const b = 2;"),
	}

	var progressed atomic.Int32
	ctx := context.Background()
	_, errs := MapFilesWithProgress(ctx, files, func(p *parser.Parser, path string) (string, error) {
		return path, nil
	}, func() {
		progressed.Add(1)
	})

	if errs != nil {
		t.Errorf("Unexpected errors: %v", errs)
	}
	if got := progressed.Load(); got != int32(len(files)) {
		t.Errorf("Progress callbacks = %d, want %d", got, len(files))
	}
}

func TestForEachFile(t *testing.T) {
	tmpDir := t.TempDir()

	files := []string{
		createTestFile(t, tmpDir, "a.txt", "aa"),
		createTestFile(t, tmpDir, "b.txt", "bbbb"),
	}

	ctx := context.Background()
	results, errs := ForEachFile(ctx, files, func(path string) (int, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		return len(data), nil
	})

	if errs != nil {
		t.Errorf("Unexpected errors: %v", errs)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	total := 0
	for _, n := range results {
		total += n
	}
	if total != 6 {
		t.Errorf("Total bytes = %d, want 6", total)
	}
}

func TestProcessingErrors(t *testing.T) {
	errs := &ProcessingErrors{}
	if errs.HasErrors() {
		t.Error("New collection should have no errors")
	}
	if errs.Error() != "no errors" {
		t.Errorf("Error() = %q", errs.Error())
	}

	errs.Add("a.js", fmt.Errorf("boom"))
	if !errs.HasErrors() {
		t.Error("Expected HasErrors after Add")
	}
	if !strings.Contains(errs.Error(), "a.js") {
		t.Errorf("Error() should name the file, got %q", errs.Error())
	}

	errs.Add("b.js", fmt.Errorf("bang"))
	if !strings.Contains(errs.Error(), "2 files failed") {
		t.Errorf("Error() should count failures, got %q", errs.Error())
	}
}
