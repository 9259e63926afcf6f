package fileio

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// excludedDirs are skipped during recursive directory expansion:
// dependency trees, build output, VCS metadata, caches.
var excludedDirs = map[string]bool{
	// Python
	"__pycache__": true, ".venv": true, "venv": true, ".mypy_cache": true,
	".pytest_cache": true, ".tox": true, "htmlcov": true,
	// Node.js
	"node_modules": true, ".next": true, ".nuxt": true, "bower_components": true,
	// Version control
	".git": true, ".svn": true, ".hg": true,
	// Build output
	"build": true, "dist": true, "target": true, "out": true,
	// IDEs
	".idea": true, ".vscode": true,
	// Caches
	".cache": true, ".temp": true, ".tmp": true,
	// JVM
	".gradle": true, ".m2": true,
	// Package managers
	"vendor": true,
}

// ExpandPaths resolves each input to concrete files. Files pass
// through; directories are walked recursively, skipping hidden entries
// and the exclusion set. Invalid paths are dropped with their error
// collected so the caller can report them.
func ExpandPaths(paths []string) (files []string, errs []error) {
	seen := make(map[string]bool)

	for _, raw := range paths {
		resolved, err := ValidatePath(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		info, err := os.Stat(resolved)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if !info.IsDir() {
			if !seen[resolved] {
				seen[resolved] = true
				files = append(files, resolved)
			}
			continue
		}

		walkErr := filepath.WalkDir(resolved, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries, keep walking
			}
			name := d.Name()
			if d.IsDir() {
				if path != resolved && (strings.HasPrefix(name, ".") || excludedDirs[name]) {
					return filepath.SkipDir
				}
				if serverDir != "" && path == serverDir {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") {
				return nil
			}
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if walkErr != nil {
			errs = append(errs, walkErr)
		}
	}

	sort.Strings(files)
	return files, errs
}
