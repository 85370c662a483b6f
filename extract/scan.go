package extract

import (
	"fmt"
	"path/filepath"
	"sort"
)

// Target is one scanned source tree: the main application or a module.
type Target struct {
	// Origin identifies the target ("main" or a module name).
	Origin string
	// Root is the directory to scan.
	Root string
	// Exclude lists extra sub-paths of Root to skip.
	Exclude []string
}

// Options configures a Scan.
type Options struct {
	Targets []Target
	// BaseDir makes reported file paths relative to it. Empty means
	// relative to each target root.
	BaseDir    string
	Extensions []string
	// Exclude applies to every target, in addition to Target.Exclude.
	Exclude  []string
	Patterns []Pattern
	// ReadFile reads a source file; ReadText when nil.
	ReadFile func(path string) ([]byte, error)
}

// Result holds everything a scan discovered.
type Result struct {
	// Keys maps each key to the sorted, de-duplicated files it occurs in.
	Keys map[string][]string
	// Origins maps each key to the first target it was found in.
	Origins map[string]string
	// FilesScanned counts files that were read successfully.
	FilesScanned int
	// Warnings describes files that could not be read.
	Warnings []string
}

// SortedKeys returns the discovered keys in lexical order.
func (r *Result) SortedKeys() []string {
	keys := make([]string, 0, len(r.Keys))
	for k := range r.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ByOrigin groups the discovered keys by origin.
func (r *Result) ByOrigin() map[string][]string {
	out := make(map[string][]string)
	for _, k := range r.SortedKeys() {
		o := r.Origins[k]
		out[o] = append(out[o], k)
	}
	return out
}

// Scan walks every target in order and extracts keys from matching files.
// The first target a key is found in becomes its origin. A target root
// that cannot be read aborts the scan; unreadable files and directories
// below it are reported in Result.Warnings.
func Scan(opts Options) (*Result, error) {
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	readText := ReadText
	if opts.ReadFile != nil {
		readText = func(path string) (string, error) {
			data, err := opts.ReadFile(path)
			return string(data), err
		}
	}

	res := &Result{
		Keys:    make(map[string][]string),
		Origins: make(map[string]string),
	}
	seen := make(map[string]map[string]bool)

	for _, t := range opts.Targets {
		exclude := append(append([]string(nil), opts.Exclude...), t.Exclude...)
		files, warnings, err := ListFiles(t.Root, exts, exclude)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", t.Origin, err)
		}
		res.Warnings = append(res.Warnings, warnings...)

		for _, path := range files {
			text, err := readText(path)
			if err != nil {
				res.Warnings = append(res.Warnings, fmt.Sprintf("could not read %s: %v", path, err))
				continue
			}
			res.FilesScanned++

			display := displayPath(opts.BaseDir, t.Root, path)
			for _, key := range Keys(text, patterns) {
				if seen[key] == nil {
					seen[key] = make(map[string]bool)
				}
				if !seen[key][display] {
					seen[key][display] = true
					res.Keys[key] = append(res.Keys[key], display)
				}
				if _, ok := res.Origins[key]; !ok {
					res.Origins[key] = t.Origin
				}
			}
		}
	}

	for k := range res.Keys {
		sort.Strings(res.Keys[k])
	}
	return res, nil
}

func displayPath(base, root, path string) string {
	from := base
	if from == "" {
		from = root
	}
	if rel, err := filepath.Rel(from, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}
