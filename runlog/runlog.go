// Package runlog writes the machine-readable side artifacts of a run:
// the extraction log, describing every key found in code and the files it
// occurs in, and the failed-keys log, listing keys whose batches failed or
// were never sent.
//
// Both files live in the project root and are rewritten on every run.
// The failed-keys log is read back by --retry-failed.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/minios-linux/transync/store"
)

// Default file names, relative to the project root.
const (
	ExtractionLogName = "translation_extraction_log.json"
	FailedLogName     = "failed_translation_keys.json"
)

// TimeLayout is the timestamp format of both logs.
const TimeLayout = "2006-01-02 15:04:05"

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Extraction is the on-disk form of the extraction log.
type Extraction struct {
	ScanTimestamp string              `json:"scan_timestamp"`
	TotalKeys     int                 `json:"total_unique_keys_found_in_code"`
	Keys          map[string][]string `json:"keys"`
}

// Failed is the on-disk form of the failed-keys log. Both key maps are
// keyed by namespace ("main::auth", "main::*.json") and hold full keys.
// NotAttemptedKeys lists keys of batches a stopped or cancelled run never
// sent.
type Failed struct {
	Timestamp         string              `json:"timestamp"`
	FailedKeys        map[string][]string `json:"failed_keys_by_file"`
	TotalCount        int                 `json:"total_failed_count"`
	NotAttemptedKeys  map[string][]string `json:"not_attempted_keys_by_file,omitempty"`
	TotalNotAttempted int                 `json:"total_not_attempted_count,omitempty"`
}

// Keys returns every failed and not-attempted key, sorted and
// de-duplicated.
func (f *Failed) Keys() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range []map[string][]string{f.FailedKeys, f.NotAttemptedKeys} {
		for _, keys := range m {
			for _, k := range keys {
				if !seen[k] {
					seen[k] = true
					out = append(out, k)
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// Pending is what a run leaves behind for --retry-failed.
type Pending struct {
	// Failed and NotAttempted map each namespace to keys local to it, as
	// translate.Summary reports them.
	Failed       map[store.Ref][]string
	NotAttempted map[store.Ref][]string
	// Carried holds full keys by namespace string from an earlier log for
	// namespaces this run did not process. They stay listed as failed.
	Carried map[string][]string
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// WriteExtraction writes the extraction log for keys (key -> files) to
// path, stamped with at.
func WriteExtraction(path string, at time.Time, keys map[string][]string) error {
	log := Extraction{
		ScanTimestamp: at.Format(TimeLayout),
		TotalKeys:     len(keys),
		Keys:          keys,
	}
	if log.Keys == nil {
		log.Keys = map[string][]string{}
	}
	return writeJSON(path, log)
}

// WriteFailed writes the failed-keys log. The log stores full keys so they
// can be matched against a later scan.
func WriteFailed(path string, at time.Time, p Pending) error {
	log := Failed{
		Timestamp:  at.Format(TimeLayout),
		FailedKeys: fullKeys(p.Failed),
	}
	for name, keys := range p.Carried {
		log.FailedKeys[name] = append(log.FailedKeys[name], keys...)
	}
	if skipped := fullKeys(p.NotAttempted); len(skipped) > 0 {
		log.NotAttemptedKeys = skipped
	}
	log.TotalCount = normalize(log.FailedKeys)
	log.TotalNotAttempted = normalize(log.NotAttemptedKeys)
	return writeJSON(path, log)
}

// fullKeys converts local keys per ref into full keys per ref string,
// dropping empty namespaces.
func fullKeys(m map[store.Ref][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for ref, locals := range m {
		if len(locals) == 0 {
			continue
		}
		name := ref.String()
		for _, k := range locals {
			out[name] = append(out[name], ref.Lookup(k))
		}
	}
	return out
}

// normalize sorts and de-duplicates every key list in place and returns
// the total key count.
func normalize(m map[string][]string) int {
	total := 0
	for name, keys := range m {
		sort.Strings(keys)
		uniq := keys[:0]
		for _, k := range keys {
			if len(uniq) == 0 || k != uniq[len(uniq)-1] {
				uniq = append(uniq, k)
			}
		}
		m[name] = uniq
		total += len(uniq)
	}
	return total
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := store.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// LoadFailed reads a failed-keys log. A missing file yields an empty log.
func LoadFailed(path string) (*Failed, error) {
	log := &Failed{FailedKeys: make(map[string][]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return log, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, log); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if log.FailedKeys == nil {
		log.FailedKeys = make(map[string][]string)
	}
	return log, nil
}

// LoadExtraction reads an extraction log.
func LoadExtraction(path string) (*Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var log Extraction
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &log, nil
}
