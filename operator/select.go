// Package operator handles the interactive side of a run: choosing which
// namespaces to process, stopping a serial run early, and drawing progress.
package operator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoInput is returned when the operator closes input before choosing.
var ErrNoInput = errors.New("no selection received")

// Selector picks a subset of candidates. Implementations return the chosen
// candidates in their original order.
type Selector interface {
	SelectSubset(candidates []string) ([]string, error)
}

// All selects every candidate.
type All struct{}

func (All) SelectSubset(candidates []string) ([]string, error) {
	return candidates, nil
}

// Prompt asks the operator on Out and reads the answer from In. The answer
// is "all" (or empty) or a comma-separated list of numbers and ranges such
// as "1,3-5". Invalid answers are reported and asked again.
type Prompt struct {
	In    io.Reader
	Out   io.Writer
	Title string
}

func (p Prompt) SelectSubset(candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	title := p.Title
	if title == "" {
		title = "Select items"
	}
	fmt.Fprintf(p.Out, "\n%s:\n", title)
	for i, c := range candidates {
		fmt.Fprintf(p.Out, "  %3d) %s\n", i+1, c)
	}

	scanner := bufio.NewScanner(p.In)
	for {
		fmt.Fprintf(p.Out, "Enter numbers (e.g. 1,3-5) or 'all' [all]: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading selection: %w", err)
			}
			return nil, ErrNoInput
		}
		picked, err := ParseSelection(scanner.Text(), len(candidates))
		if err != nil {
			fmt.Fprintf(p.Out, "  %v\n", err)
			continue
		}
		out := make([]string, 0, len(picked))
		for _, i := range picked {
			out = append(out, candidates[i])
		}
		return out, nil
	}
}

// ParseSelection parses an answer against n candidates and returns sorted,
// de-duplicated zero-based indexes.
func ParseSelection(answer string, n int) ([]int, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" || strings.EqualFold(answer, "all") || answer == "*" {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	chosen := make([]bool, n)
	for _, part := range strings.Split(answer, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		if lo < 1 || hi > n || lo > hi {
			return nil, fmt.Errorf("%q is out of range 1-%d", part, n)
		}
		for i := lo; i <= hi; i++ {
			chosen[i-1] = true
		}
	}

	var out []int
	for i, ok := range chosen {
		if ok {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("nothing selected")
	}
	return out, nil
}

func parseRange(part string) (lo, hi int, err error) {
	if a, b, ok := strings.Cut(part, "-"); ok {
		if lo, err = strconv.Atoi(strings.TrimSpace(a)); err != nil {
			return 0, 0, fmt.Errorf("%q is not a range", part)
		}
		if hi, err = strconv.Atoi(strings.TrimSpace(b)); err != nil {
			return 0, 0, fmt.Errorf("%q is not a range", part)
		}
		return lo, hi, nil
	}
	if lo, err = strconv.Atoi(part); err != nil {
		return 0, 0, fmt.Errorf("%q is not a number", part)
	}
	return lo, lo, nil
}
