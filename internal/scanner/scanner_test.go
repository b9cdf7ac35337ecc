package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/detrace/detrace/pkg/config"
	"github.com/detrace/detrace/pkg/parser"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file %s: %v", name, err)
		}
	}
}

func relSet(t *testing.T, root string, files []string) map[string]bool {
	t.Helper()
	found := make(map[string]bool)
	for _, f := range files {
		rel, _ := filepath.Rel(root, f)
		found[rel] = true
	}
	return found
}

func TestNew(t *testing.T) {
	s := New(nil)
	if s == nil {
		t.Fatal("New(nil) returned nil")
	}
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}

	cfg := config.DefaultConfig()
	s = New(cfg)
	if s.config != cfg {
		t.Error("scanner.config should be the provided config")
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"main.js":         "console.log(1);\n",
		"lib.ts":          "export const x = 1;\n",
		"ui/app.tsx":      "export const App = () => null;\n",
		"util/helper.mjs": "export default 1;\n",
		"script.py":       "# python\n",
		"style.css":       "body {}\n",
	})

	s := New(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 4 {
		t.Errorf("ScanDir() found %d files, want 4", len(result))
	}

	found := relSet(t, tmpDir, result)
	for _, want := range []string{"main.js", "lib.ts", filepath.Join("ui", "app.tsx"), filepath.Join("util", "helper.mjs")} {
		if !found[want] {
			t.Errorf("File %s was not found", want)
		}
	}
}

func TestScanDirExcludesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	for _, dir := range []string{"node_modules", "dist", ".git"} {
		writeTree(t, tmpDir, map[string]string{
			filepath.Join(dir, "file.js"): "console.log(1);\n",
		})
	}
	writeTree(t, tmpDir, map[string]string{"main.js": "console.log(1);\n"})

	s := New(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("ScanDir() found %d files, want 1 (excluded dirs should be skipped)", len(result))
		for _, f := range result {
			t.Logf("  Found: %s", f)
		}
	}
}

func TestScanDirExcludesPatterns(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"app.js":           "console.log(1);\n",
		"app.min.js":       "console.log(1);\n",
		"vendor.bundle.js": "console.log(1);\n",
	})

	s := New(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("ScanDir() found %d files, want 1", len(result))
		for _, f := range result {
			t.Logf("  Found: %s", f)
		}
	}
}

func TestScanDirExcludesExtensions(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"main.ts":    "export const x = 1;\n",
		"types.d.ts": "declare const x: number;\n",
		"app.js.map": "{}\n",
	})

	s := New(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	// types.d.ts parses as TypeScript, so only the extension rule
	// keeps declaration files out of a rewrite.
	if len(result) != 1 {
		t.Errorf("ScanDir() found %d files, want 1", len(result))
	}
	if len(result) == 1 && filepath.Base(result[0]) != "main.ts" {
		t.Errorf("ScanDir() found %s, want main.ts", result[0])
	}
}

func TestScanDirExplicitExcludedRoot(t *testing.T) {
	tmpDir := t.TempDir()
	distDir := filepath.Join(tmpDir, "dist")
	writeTree(t, tmpDir, map[string]string{
		filepath.Join("dist", "app.js"): "console.log(1);\n",
	})

	s := New(nil)
	result, err := s.ScanDir(distDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("scanning an excluded directory directly should still work, got %d files", len(result))
	}
}

func TestScanPaths(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"src/app.js":  "console.log(1);\n",
		"src/util.ts": "export const x = 1;\n",
		"lone.min.js": "console.log(1);\n",
	})

	s := New(nil)
	files, err := s.ScanPaths([]string{
		filepath.Join(tmpDir, "src"),
		filepath.Join(tmpDir, "lone.min.js"),
	})
	if err != nil {
		t.Fatalf("ScanPaths() error: %v", err)
	}

	// Directory expansion plus the explicit file, which bypasses
	// exclusion patterns.
	if len(files) != 3 {
		t.Errorf("ScanPaths() found %d files, want 3", len(files))
		for _, f := range files {
			t.Logf("  Found: %s", f)
		}
	}
}

func TestScanPathsInvalidPath(t *testing.T) {
	s := New(nil)
	_, err := s.ScanPaths([]string{"/nonexistent/path"})
	if err == nil {
		t.Fatal("ScanPaths() should return error for non-existent path")
	}

	var pathErr *PathError
	if !errors.As(err, &pathErr) {
		t.Errorf("error should be a *PathError, got %T", err)
	}
}

func TestScanFile(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name     string
		filename string
		want     bool
	}{
		{"javascript file", "main.js", true},
		{"typescript file", "app.ts", true},
		{"tsx file", "view.tsx", true},
		{"text file", "readme.txt", false},
		{"minified file", "app.min.js", false},
		{"directory", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			if tt.filename == "" {
				path = tmpDir
			} else {
				path = filepath.Join(tmpDir, tt.filename)
				if err := os.WriteFile(path, []byte("// content\n"), 0644); err != nil {
					t.Fatalf("Failed to create file: %v", err)
				}
			}

			s := New(nil)
			got, err := s.ScanFile(path)
			if err != nil {
				t.Fatalf("ScanFile() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ScanFile(%s) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestScanFileNonExistent(t *testing.T) {
	s := New(nil)
	_, err := s.ScanFile("/nonexistent/path/file.js")
	if err == nil {
		t.Error("ScanFile() should return error for non-existent file")
	}
}

func TestGroupByLanguage(t *testing.T) {
	files := []string{
		"/path/to/main.js",
		"/path/to/lib.mjs",
		"/path/to/app.ts",
		"/path/to/view.tsx",
		"/path/to/readme.txt",
	}

	s := New(nil)
	groups := s.GroupByLanguage(files)

	if len(groups[parser.LangJavaScript]) != 2 {
		t.Errorf("GroupByLanguage()[JavaScript] has %d files, want 2", len(groups[parser.LangJavaScript]))
	}
	if len(groups[parser.LangTypeScript]) != 1 {
		t.Errorf("GroupByLanguage()[TypeScript] has %d files, want 1", len(groups[parser.LangTypeScript]))
	}
	if len(groups[parser.LangTSX]) != 1 {
		t.Errorf("GroupByLanguage()[TSX] has %d files, want 1", len(groups[parser.LangTSX]))
	}
	if _, ok := groups[parser.LangUnknown]; ok {
		t.Error("GroupByLanguage() should not include LangUnknown")
	}
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("skipme\n"), 0644); err != nil {
		t.Fatalf("Failed to create .gitignore: %v", err)
	}

	writeTree(t, tmpDir, map[string]string{
		"main.js":        "console.log(1);\n",
		"skipme/skip.js": "console.log(1);\n",
		"src/app.js":     "console.log(1);\n",
	})

	s := New(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := relSet(t, tmpDir, result)
	if !found["main.js"] {
		t.Error("Should find main.js")
	}
	if !found[filepath.Join("src", "app.js")] {
		t.Error("Should find src/app.js")
	}
	if found[filepath.Join("skipme", "skip.js")] {
		t.Error("Should not find gitignored skipme/skip.js")
	}
}

func TestScanDirDisabledGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".gitignore"), []byte("ignored/\n"), 0644); err != nil {
		t.Fatalf("Failed to create .gitignore: %v", err)
	}
	writeTree(t, tmpDir, map[string]string{
		filepath.Join("ignored", "file.js"): "console.log(1);\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false

	s := New(cfg)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	found := false
	for _, f := range result {
		if filepath.Base(f) == "file.js" {
			found = true
			break
		}
	}
	if !found {
		t.Error("With gitignore disabled, should find files in 'ignored' directory")
	}
}

func TestScanDirEmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	s := New(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ScanDir() on empty dir returned %d files, want 0", len(result))
	}
}

func TestIsWithinRoot(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		path string
		root string
		want bool
	}{
		{"same path", tmpDir, tmpDir, true},
		{"child path", filepath.Join(tmpDir, "subdir", "file.js"), tmpDir, true},
		{"path outside root", "/some/other/path", tmpDir, false},
		{"parent path", filepath.Dir(tmpDir), tmpDir, false},
		{"similar prefix but different dir", tmpDir + "2/file.js", tmpDir, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isWithinRoot(tt.path, tt.root)
			if got != tt.want {
				t.Errorf("isWithinRoot(%q, %q) = %v, want %v", tt.path, tt.root, got, tt.want)
			}
		})
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	if result := findGitRoot(tmpDir); result != "" {
		t.Errorf("findGitRoot() on non-git dir should return empty string, got %q", result)
	}

	if err := os.Mkdir(filepath.Join(tmpDir, ".git"), 0755); err != nil {
		t.Fatalf("Failed to create .git dir: %v", err)
	}
	if result := findGitRoot(tmpDir); result != tmpDir {
		t.Errorf("findGitRoot() should return %q, got %q", tmpDir, result)
	}

	subDir := filepath.Join(tmpDir, "src", "pkg")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if result := findGitRoot(subDir); result != tmpDir {
		t.Errorf("findGitRoot() from subdir should return %q, got %q", tmpDir, result)
	}
}

func TestScanDirWithSymlinks(t *testing.T) {
	tmpDir := t.TempDir()

	realFile := filepath.Join(tmpDir, "real.js")
	if err := os.WriteFile(realFile, []byte("console.log(1);\n"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	symlinkPath := filepath.Join(tmpDir, "link.js")
	if err := os.Symlink(realFile, symlinkPath); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	s := New(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) < 1 {
		t.Errorf("ScanDir() should find at least the real file, got %d files", len(result))
	}
}

func TestScanDirWithUnresolvableSymlink(t *testing.T) {
	tmpDir := t.TempDir()

	symlinkPath := filepath.Join(tmpDir, "dangling.js")
	if err := os.Symlink("/nonexistent/path/file.js", symlinkPath); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	realFile := filepath.Join(tmpDir, "real.js")
	if err := os.WriteFile(realFile, []byte("console.log(1);\n"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	s := New(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ScanDir() should find 1 file (skipping dangling symlink), got %d", len(result))
	}
}

func TestScanDirWithSymlinkDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	writeTree(t, tmpDir, map[string]string{
		filepath.Join("real", "file.js"): "console.log(1);\n",
	})

	outsideDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(outsideDir, "outside.js"), []byte("console.log(1);\n"), 0644); err != nil {
		t.Fatalf("Failed to create outside file: %v", err)
	}

	symlinkDir := filepath.Join(tmpDir, "linked")
	if err := os.Symlink(outsideDir, symlinkDir); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	s := New(nil)
	result, err := s.ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	for _, f := range result {
		if filepath.Base(f) == "outside.js" {
			t.Error("ScanDir() should not follow symlinks outside the root directory")
		}
	}
}
