// Package pipeline runs a full sync: scan the source trees, unify keys with
// the existing stores, plan the work under the sync mode, translate in
// batches, validate and merge the results, then write the stores and the
// run logs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/minios-linux/transync/catalog"
	"github.com/minios-linux/transync/config"
	"github.com/minios-linux/transync/extract"
	"github.com/minios-linux/transync/merge"
	"github.com/minios-linux/transync/operator"
	"github.com/minios-linux/transync/policy"
	"github.com/minios-linux/transync/runlog"
	"github.com/minios-linux/transync/store"
	"github.com/minios-linux/transync/translate"
)

// ErrNoKeys is returned when neither the code nor the stores hold a key.
var ErrNoKeys = errors.New("no translation keys found")

// Options configures a run.
type Options struct {
	// Root is the project root.
	Root string
	// Config is the validated configuration.
	Config *config.File
	// Translator is the backend. Required unless ScanOnly.
	Translator translate.Translator
	// Selector picks namespaces; operator.All when nil.
	Selector operator.Selector
	// Stop is polled between serial batches.
	Stop func() bool
	// RetryFailed limits the run to keys in the failed-keys log.
	RetryFailed bool
	// DryRun reports what would be written without writing.
	DryRun bool
	// ScanOnly stops after planning: nothing is translated or written
	// except the extraction log.
	ScanOnly bool
	Verbose  bool

	// Now stamps the run logs; time.Now when nil.
	Now func() time.Time
	// Sleep and Jitter are passed to translate.Options.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(lo, hi time.Duration) time.Duration

	OnLog      func(format string, args ...any)
	OnWarning  func(format string, args ...any)
	OnProgress func(done, total int)
	// OnPlan is called once the batches are known, before any is sent.
	OnPlan func(*Report)
	// OnEvent receives every validation fallback.
	OnEvent func(merge.Event)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) warn(format string, args ...any) {
	if o.OnWarning != nil {
		o.OnWarning(format, args...)
	} else {
		o.log(format, args...)
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Report describes a finished run.
type Report struct {
	Targets []config.ResolvedTarget
	Scan    *extract.Result
	Catalog *catalog.Catalog
	// Existing is the persisted store contents loaded for the run.
	Existing store.Snapshot
	// Unused is the stored keys no code or default pack refers to.
	Unused []string
	// Selected is the namespaces chosen for this run, local keys each.
	Selected map[store.Ref][]string
	// Missing is the missing-key report before translation.
	Missing policy.Report
	// Work is the planned (namespace, key) pairs.
	Work    []policy.WorkItem
	Batches []translate.Batch
	Summary translate.Summary
	Events  []merge.Event
	// Written lists store files written, or that would be with DryRun.
	Written []string
	// Bootstrapped lists files that received default-pack keys.
	Bootstrapped []string
	Warnings     []string
}

// run carries the state shared by the steps of one run.
type run struct {
	opts    *Options
	cfg     *config.File
	mode    policy.Mode
	refLang string
	stores  map[string]*store.Store
	order   []*store.Store
	main    *store.Store
	report  *Report
	final   store.Snapshot
}

// Run executes one sync. A run with nothing to translate still writes the
// extraction log. Batch failures never make Run fail; they are reported in
// Report.Summary and the failed-keys log.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Config == nil {
		return nil, errors.New("pipeline: no configuration")
	}
	mode, err := policy.ParseMode(opts.Config.Mode)
	if err != nil {
		return nil, err
	}
	r := &run{
		opts:    &opts,
		cfg:     opts.Config,
		mode:    mode,
		refLang: opts.Config.SourceLang,
		stores:  make(map[string]*store.Store),
		report:  &Report{},
	}
	if r.refLang == "" {
		r.refLang = "en"
	}

	if err := r.scan(); err != nil {
		return r.report, err
	}
	snap, err := r.load()
	if err != nil {
		return r.report, err
	}
	if err := r.unify(snap); err != nil {
		return r.report, err
	}
	if err := r.plan(snap); err != nil {
		return r.report, err
	}
	if opts.OnPlan != nil {
		opts.OnPlan(r.report)
	}
	if opts.ScanOnly {
		return r.report, nil
	}
	if opts.Translator == nil && len(r.report.Batches) > 0 {
		return r.report, errors.New("pipeline: no translator")
	}
	r.translate(ctx, snap)
	return r.report, r.finish()
}

// ---------------------------------------------------------------------------
// Steps
// ---------------------------------------------------------------------------

func (r *run) scan() error {
	targets, err := r.cfg.Resolve(r.opts.Root)
	if err != nil {
		return fmt.Errorf("resolving targets: %w", err)
	}
	r.report.Targets = targets

	patterns := extract.DefaultPatterns()
	if r.cfg.PatternsFile != "" {
		custom, err := extract.LoadPatterns(r.path(r.cfg.PatternsFile))
		if err != nil {
			return err
		}
		patterns = append(patterns, custom...)
	}

	format, err := store.ParseFormat(r.cfg.Format)
	if err != nil {
		return err
	}
	scanTargets := make([]extract.Target, 0, len(targets))
	for _, t := range targets {
		scanTargets = append(scanTargets, extract.Target{Origin: t.Origin, Root: t.AbsRoot, Exclude: t.Exclude})
		st := store.New(t.Origin, t.AbsLangDir, format)
		r.stores[t.Origin] = st
		r.order = append(r.order, st)
		if t.Main {
			r.main = st
		}
	}
	if r.main == nil {
		return fmt.Errorf("%w: no main target", config.ErrInvalid)
	}

	r.opts.log("Scanning %d target(s)", len(scanTargets))
	res, err := extract.Scan(extract.Options{
		Targets:    scanTargets,
		BaseDir:    r.opts.Root,
		Extensions: r.cfg.Extensions,
		Exclude:    r.cfg.Exclude,
		Patterns:   patterns,
	})
	if err != nil {
		return err
	}
	r.report.Scan = res
	r.report.Warnings = append(r.report.Warnings, res.Warnings...)
	for _, w := range res.Warnings {
		r.opts.warn("%s", w)
	}
	r.opts.log("Found %d unique keys in %d files", len(res.Keys), res.FilesScanned)

	if r.cfg.ExtractionLog != "" && !r.opts.DryRun {
		if err := runlog.WriteExtraction(r.path(r.cfg.ExtractionLog), r.opts.now(), res.Keys); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) load() (store.Snapshot, error) {
	if r.cfg.BootstrapDefaults {
		defaults, err := store.Defaults(r.main.Origin)
		if err != nil {
			return nil, err
		}
		written, err := store.Bootstrap(r.main, r.main.LangPath(r.refLang), defaults, r.opts.DryRun)
		if err != nil {
			return nil, fmt.Errorf("bootstrapping defaults: %w", err)
		}
		r.report.Bootstrapped = written
		for _, p := range written {
			r.opts.log("Default pack: %s", r.rel(p))
		}
	}

	langs := append([]string{r.refLang}, r.cfg.Languages...)
	snap, warnings := store.Load(r.order, langs)
	r.report.Existing = snap
	r.report.Warnings = append(r.report.Warnings, warnings...)
	for _, w := range warnings {
		r.opts.warn("%s", w)
	}
	return snap, nil
}

func (r *run) unify(snap store.Snapshot) error {
	if len(r.report.Scan.Keys) == 0 && snapshotEmpty(snap) {
		return ErrNoKeys
	}
	defaults, err := store.Defaults(r.main.Origin)
	if err != nil {
		return err
	}
	in := catalog.Input{
		Code:     r.report.Scan.Origins,
		Stores:   snap,
		Defaults: defaults,
		RefLang:  r.refLang,
	}
	cat := catalog.Unify(in)
	r.report.Unused = catalog.Unused(in)
	if r.cfg.ConsolidateModules {
		cat.Relabel(r.main.Origin)
	}
	r.report.Catalog = cat
	return nil
}

func (r *run) plan(snap store.Snapshot) error {
	cat := r.report.Catalog
	keys := cat.Keys
	if r.opts.RetryFailed {
		failed, err := runlog.LoadFailed(r.path(r.cfg.FailedLog))
		if err != nil {
			return err
		}
		keys = intersect(keys, failed.Keys())
		r.opts.log("Retrying %d failed keys", len(keys))
	}

	groups := cat.Group(keys)
	refs := catalog.Refs(groups)
	names := make([]string, len(refs))
	byName := make(map[string]store.Ref, len(refs))
	for i, ref := range refs {
		names[i] = ref.String()
		byName[names[i]] = ref
	}

	selector := r.opts.Selector
	if selector == nil {
		selector = operator.All{}
	}
	chosen, err := selector.SelectSubset(names)
	if err != nil {
		return err
	}
	selected := make(map[store.Ref][]string, len(chosen))
	for _, name := range chosen {
		ref := byName[name]
		selected[ref] = groups[ref]
	}
	r.report.Selected = selected

	langs := r.cfg.Languages
	if r.mode != policy.RefreshExisting {
		r.report.Missing = policy.Missing(selected, snap, langs)
	}
	r.report.Work = policy.Plan(selected, snap, langs, r.mode)
	r.report.Batches = translate.Chunk(r.report.Work, cat, langs, r.cfg.ChunkSize, r.cfg.Context)
	return nil
}

func (r *run) translate(ctx context.Context, snap store.Snapshot) {
	dispatch, _ := translate.ParseDispatch(r.cfg.Driver)
	echo, _ := merge.ParseEchoPolicy(r.cfg.EchoPolicy)
	resolver := merge.Resolver{Echo: echo}
	acc := merge.NewAccumulator(r.mode, snap)
	cat := r.report.Catalog

	if n := len(r.report.Batches); n > 0 {
		r.opts.log("Translating %d keys in %d batches (%s, %s)", len(r.report.Work), n, dispatch, r.mode)
	}
	r.report.Summary = translate.Run(ctx, r.report.Batches, translate.Options{
		Translator:    r.opts.Translator,
		Dispatch:      dispatch,
		MaxConcurrent: r.cfg.Concurrency,
		MaxRetries:    r.cfg.MaxRetries,
		RetryDelay:    r.cfg.RetryDelay,
		RequestDelay:  r.cfg.RequestDelay,
		Sleep:         r.opts.Sleep,
		Jitter:        r.opts.Jitter,
		Stop:          r.opts.Stop,
		Verbose:       r.opts.Verbose,
		OnLog:         r.opts.OnLog,
		OnError:       r.opts.OnWarning,
		OnProgress:    r.opts.OnProgress,
		OnResult: func(res translate.Result) {
			if res.Status != translate.Succeeded {
				return
			}
			resolved, events := resolver.Resolve(res, cat)
			acc.Fold(resolved)
			r.report.Events = append(r.report.Events, events...)
			if r.opts.OnEvent != nil {
				for _, e := range events {
					r.opts.OnEvent(e)
				}
			}
		},
	})
	r.final = acc.Final()
}

func (r *run) finish() error {
	var errs []error
	for _, lang := range r.final.Langs() {
		for _, ref := range store.SortRefs(refsOf(r.final[lang])) {
			st := r.storeFor(ref)
			dirLang := st.LangPath(lang)
			if r.opts.DryRun {
				p, err := st.Path(dirLang, ref)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				r.report.Written = append(r.report.Written, p)
				continue
			}
			p, err := st.WriteMap(dirLang, ref, r.final[lang][ref])
			if err != nil {
				errs = append(errs, err)
				continue
			}
			r.report.Written = append(r.report.Written, p)
		}
	}

	if r.cfg.FailedLog != "" && !r.opts.DryRun {
		path := r.path(r.cfg.FailedLog)
		pending := runlog.Pending{
			Failed:       r.report.Summary.FailedKeys,
			NotAttempted: r.report.Summary.SkippedKeys,
			Carried:      r.carried(path),
		}
		if err := runlog.WriteFailed(path, r.opts.now(), pending); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// carried returns the entries of the existing failed-keys log whose
// namespaces this run did not select, so they survive the rewrite.
func (r *run) carried(path string) map[string][]string {
	prev, err := runlog.LoadFailed(path)
	if err != nil {
		r.opts.warn("%v", err)
		return nil
	}
	selected := make(map[string]bool, len(r.report.Selected))
	for ref := range r.report.Selected {
		selected[ref.String()] = true
	}
	out := make(map[string][]string)
	for _, m := range []map[string][]string{prev.FailedKeys, prev.NotAttemptedKeys} {
		for name, keys := range m {
			if !selected[name] {
				out[name] = append(out[name], keys...)
			}
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *run) storeFor(ref store.Ref) *store.Store {
	if st, ok := r.stores[ref.Origin]; ok {
		return st
	}
	return r.main
}

func (r *run) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.opts.Root, p)
}

func (r *run) rel(p string) string {
	if rel, err := filepath.Rel(r.opts.Root, p); err == nil {
		return rel
	}
	return p
}

func intersect(keys, allowed []string) []string {
	set := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		set[k] = true
	}
	var out []string
	for _, k := range keys {
		if set[k] {
			out = append(out, k)
		}
	}
	return out
}

func snapshotEmpty(snap store.Snapshot) bool {
	for _, byRef := range snap {
		for _, ns := range byRef {
			if len(ns.Entries) > 0 {
				return false
			}
		}
	}
	return true
}

func refsOf(m map[store.Ref]store.Namespace) []store.Ref {
	refs := make([]store.Ref, 0, len(m))
	for ref := range m {
		refs = append(refs, ref)
	}
	return refs
}
