// Package translate runs translation batches against a text-generation
// backend with bounded concurrency, per-batch retries and class-specific
// backoff. Workers return immutable results; a single coordinator
// goroutine hands them to the caller one at a time.
package translate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/minios-linux/transync/store"
)

// ---------------------------------------------------------------------------
// Dispatch modes
// ---------------------------------------------------------------------------

// Dispatch selects how batches are scheduled.
type Dispatch int

const (
	// Concurrent runs batches on a bounded worker pool.
	Concurrent Dispatch = iota
	// Serial runs one batch at a time and honors a cooperative stop.
	Serial
)

func (d Dispatch) String() string {
	if d == Serial {
		return "serial"
	}
	return "concurrent"
}

// ParseDispatch accepts "concurrent" (alias "fork", "default") and "serial"
// (alias "sync").
func ParseDispatch(s string) (Dispatch, error) {
	switch s {
	case "", "concurrent", "fork", "default":
		return Concurrent, nil
	case "serial", "sync":
		return Serial, nil
	}
	return Concurrent, fmt.Errorf("unknown driver %q (want concurrent or serial)", s)
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Status is the outcome of one batch.
type Status int

const (
	Succeeded Status = iota
	Failed
	NotAttempted
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "not attempted"
}

// Result is the immutable outcome of one batch.
type Result struct {
	Batch        Batch
	Status       Status
	Translations Response
	// Err and Class describe the last failed attempt.
	Err   error
	Class Class
	// Attempts counts backend calls; Delay is the total backoff slept.
	Attempts int
	Delay    time.Duration
}

// Summary totals a run.
type Summary struct {
	Batches      int
	Succeeded    int
	Failed       int
	NotAttempted int

	Keys             int
	KeysSucceeded    int
	KeysFailed       int
	KeysNotAttempted int

	// FailedKeys lists local keys of failed batches per namespace.
	FailedKeys map[store.Ref][]string
	// SkippedKeys lists local keys of batches that never ran.
	SkippedKeys map[store.Ref][]string
	// Results holds every result in the order it was folded.
	Results []Result
}

// Attempted is the number of batches that reached the backend.
func (s *Summary) Attempted() int { return s.Succeeded + s.Failed }

func (s *Summary) add(r Result) {
	n := len(r.Batch.Items)
	switch r.Status {
	case Succeeded:
		s.Succeeded++
		s.KeysSucceeded += n
	case Failed:
		s.Failed++
		s.KeysFailed += n
		for _, it := range r.Batch.Items {
			s.FailedKeys[r.Batch.Ref] = append(s.FailedKeys[r.Batch.Ref], it.Key)
		}
	case NotAttempted:
		s.NotAttempted++
		s.KeysNotAttempted += n
		for _, it := range r.Batch.Items {
			s.SkippedKeys[r.Batch.Ref] = append(s.SkippedKeys[r.Batch.Ref], it.Key)
		}
	}
	s.Results = append(s.Results, r)
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls a run.
type Options struct {
	// Translator is the backend.
	Translator Translator
	// Dispatch selects concurrent or serial scheduling.
	Dispatch Dispatch
	// MaxConcurrent bounds the worker pool (default 15).
	MaxConcurrent int
	// MaxRetries is the number of attempts per batch (default 5).
	MaxRetries int
	// RetryDelay is the backoff base (default 3s).
	RetryDelay time.Duration
	// RequestDelay spaces out worker launches.
	RequestDelay time.Duration
	// Jitter overrides the backoff jitter source.
	Jitter func(lo, hi time.Duration) time.Duration
	// Sleep overrides the backoff wait; it must return early when ctx ends.
	Sleep func(ctx context.Context, d time.Duration) error
	// Stop is polled before every serial batch; once true, the remaining
	// batches are not attempted.
	Stop func() bool
	// OnResult receives every result on the coordinator goroutine.
	OnResult func(Result)
	// OnProgress is called after each folded result.
	OnProgress func(done, total int)
	// OnLog emits log messages.
	OnLog func(format string, args ...any)
	// OnError emits error messages.
	OnError func(format string, args ...any)
	// Verbose enables per-attempt logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 5
}

func (o *Options) effectiveMaxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return 15
}

func (o *Options) effectiveRetryDelay() time.Duration {
	if o.RetryDelay > 0 {
		return o.RetryDelay
	}
	return 3 * time.Second
}

func (o *Options) sleep(ctx context.Context, d time.Duration) error {
	if o.Sleep != nil {
		return o.Sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// Run translates batches and returns the run summary. Every batch yields
// exactly one result: succeeded, failed or not attempted. Failures never
// abort the run.
func Run(ctx context.Context, batches []Batch, opts Options) Summary {
	sum := Summary{
		Batches:     len(batches),
		FailedKeys:  make(map[store.Ref][]string),
		SkippedKeys: make(map[store.Ref][]string),
	}
	for _, b := range batches {
		sum.Keys += len(b.Items)
	}
	if len(batches) == 0 {
		return sum
	}

	done := 0
	fold := func(r Result) {
		sum.add(r)
		if opts.OnResult != nil {
			opts.OnResult(r)
		}
		done++
		if opts.OnProgress != nil {
			opts.OnProgress(done, len(batches))
		}
	}

	switch opts.Dispatch {
	case Serial:
		runSerial(ctx, batches, &opts, fold)
	default:
		runConcurrent(ctx, batches, &opts, fold)
	}

	for ref := range sum.FailedKeys {
		sort.Strings(sum.FailedKeys[ref])
	}
	for ref := range sum.SkippedKeys {
		sort.Strings(sum.SkippedKeys[ref])
	}
	return sum
}

func runSerial(ctx context.Context, batches []Batch, opts *Options, fold func(Result)) {
	for i, b := range batches {
		stopped := ctx.Err() != nil || (opts.Stop != nil && opts.Stop())
		if stopped {
			opts.log("Stop requested, %d batch(es) not attempted", len(batches)-i)
			for _, rest := range batches[i:] {
				fold(Result{Batch: rest, Status: NotAttempted})
			}
			return
		}
		fold(translateBatch(ctx, b, opts))
	}
}

func runConcurrent(ctx context.Context, batches []Batch, opts *Options, fold func(Result)) {
	results := make(chan Result)
	go func() {
		runParallel(ctx, batches, opts.effectiveMaxConcurrent(), opts.RequestDelay, func(ctx context.Context, b Batch) {
			results <- translateBatch(ctx, b, opts)
		})
		close(results)
	}()

	seen := make(map[int]bool, len(batches))
	for r := range results {
		seen[r.Batch.Index] = true
		fold(r)
	}
	for _, b := range batches {
		if !seen[b.Index] {
			fold(Result{Batch: b, Status: NotAttempted})
		}
	}
}

// translateBatch calls the backend up to MaxRetries times, sleeping the
// class-specific backoff between attempts.
func translateBatch(ctx context.Context, b Batch, opts *Options) Result {
	backoff := Backoff{Base: opts.effectiveRetryDelay(), Jitter: opts.Jitter}
	maxRetries := opts.effectiveMaxRetries()
	req := b.Request()

	res := Result{Batch: b, Status: Failed}
	for attempt := 1; attempt <= maxRetries; attempt++ {
		res.Attempts = attempt
		resp, err := opts.Translator.Translate(ctx, req)
		if err == nil {
			res.Status = Succeeded
			res.Translations = resp
			res.Err = nil
			res.Class = ClassNone
			return res
		}
		res.Err = err
		res.Class = Classify(err)

		if ctx.Err() != nil || attempt == maxRetries {
			break
		}
		wait := backoff.Delay(res.Class, attempt)
		if opts.Verbose {
			opts.log("%s batch %d: %s error on attempt %d/%d, retrying in %v: %v",
				b.Ref, b.Index+1, res.Class, attempt, maxRetries, wait.Round(time.Millisecond), err)
		}
		if err := opts.sleep(ctx, wait); err != nil {
			break
		}
		res.Delay += wait
	}

	opts.logError("%s batch %d failed after %d attempt(s): %v", b.Ref, b.Index+1, res.Attempts, res.Err)
	return res
}

// runParallel runs fn for every task with at most maxConcurrent in flight.
// Tasks not yet launched when ctx ends are skipped.
func runParallel[T any](ctx context.Context, tasks []T, maxConcurrent int, delay time.Duration, fn func(context.Context, T)) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

launch:
	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}

		// Delay between launching tasks (skip first)
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				break launch
			case <-time.After(delay):
			}
		}

		select {
		case <-ctx.Done():
			break launch
		case sem <- struct{}{}:
		}
		wg.Add(1)

		go func(t T) {
			defer func() {
				<-sem
				wg.Done()
			}()
			fn(ctx, t)
		}(task)
	}

	wg.Wait()
}
