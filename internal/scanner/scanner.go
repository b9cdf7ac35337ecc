// Package scanner discovers the JavaScript and TypeScript sources a
// rewrite run should touch, honoring config excludes and .gitignore.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/detrace/detrace/pkg/config"
	"github.com/detrace/detrace/pkg/parser"
)

// Scanner finds source files in a directory tree.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
}

// New creates a file scanner. A nil config falls back to defaults.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot walks upward looking for a .git directory. Returns empty
// string when the path is not inside a repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines config exclude patterns with .gitignore
// files. Config patterns are parsed with gitignore syntax so anchored
// and directory patterns behave the way users expect.
func (s *Scanner) loadExcludePatterns(root string) {
	var patterns []gitignore.Pattern

	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	// ReadPatterns collects every .gitignore in the tree, so nested
	// ignore files are honored too.
	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			wt := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(wt, nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// isExcluded checks if a path matches any gitignore-style pattern.
func (s *Scanner) isExcluded(path string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}

	pathParts := strings.Split(path, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(pathParts, isDir) {
			return true
		}
	}
	return false
}

// excludedDir checks a directory name against the configured skip list.
func (s *Scanner) excludedDir(name string) bool {
	for _, dir := range s.config.Exclude.Dirs {
		if name == dir {
			return true
		}
	}
	return false
}

// ScanPaths expands a mix of files and directories into the list of
// sources to process. Directories are walked recursively; explicitly
// named files bypass exclusion rules but must still be a supported
// language.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, &PathError{Path: path, Err: err}
		}
		if !info.IsDir() {
			if parser.DetectLanguage(path) != parser.LangUnknown {
				files = append(files, path)
			}
			continue
		}
		found, err := s.ScanDir(path)
		if err != nil {
			return nil, &ScanError{Path: path, Err: err}
		}
		files = append(files, found...)
	}
	return files, nil
}

// ScanDir recursively scans a directory for source files. Paths are
// validated to stay within the root so symlinks cannot drag files from
// outside the tree into a rewrite.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			// The root itself is never pruned: scanning ./dist on
			// purpose must work even when "dist" is in the skip list.
			if path != root && (s.excludedDir(d.Name()) || s.isExcluded(relPath, true)) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.config.ShouldExclude(relPath) || s.isExcluded(relPath, false) {
			return nil
		}
		if parser.DetectLanguage(path) != parser.LangUnknown {
			files = append(files, path)
		}
		return nil
	})

	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Trailing separator prevents "/root2" matching "/root".
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile checks if a single file would be picked up by a scan.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	if info.IsDir() {
		return false, nil
	}

	if len(s.matchers) == 0 {
		s.loadExcludePatterns(filepath.Dir(path))
	}

	if s.config.ShouldExclude(filepath.Base(path)) || s.isExcluded(filepath.Base(path), false) {
		return false, nil
	}

	return parser.DetectLanguage(path) != parser.LangUnknown, nil
}

// GroupByLanguage groups files by their detected language.
func (s *Scanner) GroupByLanguage(files []string) map[parser.Language][]string {
	groups := make(map[parser.Language][]string)
	for _, f := range files {
		lang := parser.DetectLanguage(f)
		if lang != parser.LangUnknown {
			groups[lang] = append(groups[lang], f)
		}
	}
	return groups
}

// PathError indicates an invalid scan path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "invalid path " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ScanError indicates a directory scan failure.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return "failed to scan directory " + e.Path + ": " + e.Err.Error()
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
