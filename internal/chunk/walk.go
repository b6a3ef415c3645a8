package chunk

import (
	"os"
	"path/filepath"
)

// vcsDir is always skipped, ignore rules or not.
const vcsDir = ".git"

// defaultDependencyDirs are skipped only when no .gitignore was found
// under the root and the caller supplied no ShouldIncludePath.
var defaultDependencyDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"__pycache__":  true,
}

// WalkOptions configures a codebase walk.
type WalkOptions struct {
	// Languages restricts chunking to these language names; nil means
	// every built-in language is enabled.
	Languages []string

	// ShouldIncludePath replaces the default dependency-directory skip
	// (but never the VCS skip) when non-nil.
	ShouldIncludePath func(absPath, relPath string) bool
}

func (o WalkOptions) languageAllowed(name string, reg *LanguageRegistry) bool {
	if len(o.Languages) == 0 {
		return true
	}
	for _, l := range o.Languages {
		if l == name {
			return true
		}
	}
	return false
}

// walkCodebase visits every regular file under root whose extension is
// registered, skipping the VCS directory, applying gitignore rules
// loaded from .gitignore files along the way (falling back to the
// default dependency-directory skip when none are found and no
// ShouldIncludePath is set), and finally the caller's predicate. root is
// made absolute first, so visited paths are absolute.
func walkCodebase(root string, reg *LanguageRegistry, opts WalkOptions, visit func(absPath, relPath string) error) error {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	matcher := newIgnoreMatcher()
	foundIgnoreFile := loadGitignores(root, matcher)

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best-effort: a stat failure just skips this entry
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}

		if info.IsDir() {
			base := filepath.Base(path)
			if base == vcsDir {
				return filepath.SkipDir
			}
			if foundIgnoreFile {
				if matcher.match(rel, true) {
					return filepath.SkipDir
				}
			} else if opts.ShouldIncludePath == nil && defaultDependencyDirs[base] {
				return filepath.SkipDir
			}
			if opts.ShouldIncludePath != nil && rel != "." && !opts.ShouldIncludePath(path, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if foundIgnoreFile && matcher.match(rel, false) {
			return nil
		}
		if opts.ShouldIncludePath != nil && !opts.ShouldIncludePath(path, rel) {
			return nil
		}

		ext := filepath.Ext(path)
		config, ok := reg.GetByExtension(ext)
		if !ok || !opts.languageAllowed(config.Name, reg) {
			return nil
		}

		return visit(path, rel)
	})
}

// loadGitignores reads every .gitignore along root's tree into matcher
// and reports whether at least one was found.
func loadGitignores(root string, matcher *ignoreMatcher) bool {
	found := false
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if filepath.Base(path) != ".gitignore" {
			return nil
		}
		base, _ := filepath.Rel(root, filepath.Dir(path))
		if base == "." {
			base = ""
		}
		if addErr := matcher.addFromFile(path, base); addErr == nil {
			found = true
		}
		return nil
	})
	return found
}
