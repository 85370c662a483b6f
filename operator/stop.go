package operator

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// Stop is a cooperative stop flag. A serial run polls Requested before
// each batch and leaves the rest unattempted once it is set.
type Stop struct {
	requested atomic.Bool
}

// Request sets the flag. It reports whether this call set it.
func (s *Stop) Request() bool {
	return s.requested.CompareAndSwap(false, true)
}

// Requested reports whether a stop was requested.
func (s *Stop) Requested() bool {
	return s.requested.Load()
}

// WatchInput reads lines from r until ctx ends or a line equal to key
// (case-insensitive) arrives, then requests a stop and calls onStop.
func (s *Stop) WatchInput(ctx context.Context, r io.Reader, key string, onStop func()) {
	if key == "" {
		return
	}
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-lines:
				if !ok {
					return
				}
				if strings.EqualFold(strings.TrimSpace(line), key) {
					if s.Request() && onStop != nil {
						onStop()
					}
					return
				}
			}
		}
	}()
}

// WatchSignals handles interrupts delivered on sigs. The first one requests
// a stop and calls onStop; the next one calls cancel.
func (s *Stop) WatchSignals(ctx context.Context, sigs <-chan os.Signal, cancel context.CancelFunc, onStop func()) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				if s.Request() {
					if onStop != nil {
						onStop()
					}
					continue
				}
				cancel()
				return
			}
		}
	}()
}
