// Package extract finds translation keys in application source trees.
//
// Source files are discovered by extension under one or more roots and
// scanned with an ordered list of regular-expression patterns. Keys are
// normalized (escapes resolved, attribute wrappers removed, "/" turned
// into ".") and recorded with the files they were found in.
package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrRootUnreadable is returned when a scan root cannot be read.
var ErrRootUnreadable = errors.New("scan root is not readable")

// DefaultExtensions are the source file extensions scanned by default.
var DefaultExtensions = []string{"php", "blade.php", "vue", "js", "jsx", "ts", "tsx"}

// DefaultExclude lists sub-paths skipped by default, relative to a root.
var DefaultExclude = []string{
	"vendor", "node_modules", "storage", "public", "bootstrap", "tests",
	"lang", "config", "database", "routes", "app/Console",
	".phpunit.cache", "lang-output", ".fleet", ".idea", ".nova", ".vscode", ".zed",
}

// skipDirs are directory names skipped wherever they appear.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
}

// skipFiles are tool and manifest files that never carry keys.
var skipFiles = map[string]bool{
	"artisan":           true,
	"composer.json":     true,
	"composer.lock":     true,
	"package.json":      true,
	"package-lock.json": true,
	"yarn.lock":         true,
	"phpunit.xml":       true,
	"vite.config.js":    true,
	"webpack.mix.js":    true,
}

// ListFiles walks root and returns the sorted list of files whose names end
// in one of exts. An exclude entry containing "/" is a slash path relative
// to root; a bare name skips every directory of that name at any depth.
// VCS and dependency directories are skipped at any depth. Dot-files, log
// files and known manifest files are skipped. A root that cannot be read
// returns an error wrapping ErrRootUnreadable; directories below it that
// cannot be read are skipped and reported in warnings.
func ListFiles(root string, exts, exclude []string) (files, warnings []string, err error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrRootUnreadable, root, err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s is not a directory", ErrRootUnreadable, root)
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrRootUnreadable, root, err)
	}

	excludedPaths := make(map[string]bool, len(exclude))
	excludedNames := make(map[string]bool)
	for _, e := range exclude {
		e = strings.Trim(filepath.ToSlash(e), "/")
		switch {
		case e == "":
		case strings.Contains(e, "/"):
			excludedPaths[e] = true
		default:
			excludedNames[e] = true
		}
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if path == root {
			return nil
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("could not read %s: %v", path, err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if skipDirs[name] || strings.HasPrefix(name, ".") || excludedNames[name] || excludedPaths[rel] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || skipFiles[name] || strings.HasSuffix(name, ".log") || excludedPaths[rel] {
			return nil
		}
		if hasExt(name, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, warnings, fmt.Errorf("scanning %s: %w", root, err)
	}

	sort.Strings(files)
	return files, warnings, nil
}

// hasExt reports whether name ends in "."+ext for any ext. Extensions may
// contain dots themselves ("blade.php").
func hasExt(name string, exts []string) bool {
	for _, ext := range exts {
		ext = strings.TrimPrefix(ext, ".")
		if ext != "" && strings.HasSuffix(name, "."+ext) && len(name) > len(ext)+1 {
			return true
		}
	}
	return false
}

// ReadText reads a source file as text, dropping a leading UTF-8 BOM.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
