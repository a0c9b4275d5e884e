package processing

import (
	"fmt"

	"github.com/ternarybob/arbor"
)

// Baseline is the last-observed state per data category. It lives only in
// process memory: a restart re-baselines from current file contents, so rows
// added while the process was down are never reported as new. This is a known
// limitation of the count-based heuristic.
type Baseline struct {
	Counts  map[string]int
	NewRows map[string][]map[string]string
}

// NewBaseline returns an empty baseline.
func NewBaseline() Baseline {
	return Baseline{
		Counts:  map[string]int{},
		NewRows: map[string][]map[string]string{},
	}
}

// categoryDelta is the detector's result for one category in one pass.
type categoryDelta struct {
	NewRecords int
	NewData    []map[string]string
}

// detector implements the count-based change heuristic. It is intentionally
// NOT a content diff: in-place edits and shrink-then-grow sequences that
// return to the same count are invisible, and any net growth counts as new.
// The content-aware strategy lives in compare.go and must stay separate.
type detector struct {
	paths  map[string]string // category -> spreadsheet path
	logger arbor.ILogger
}

func newDetector(paths map[string]string, logger arbor.ILogger) *detector {
	return &detector{
		paths:  paths,
		logger: logger,
	}
}

// seed reads every category once and returns the initial baseline. Used at
// startup; errors are fatal because a detector without a baseline would
// report the entire file as new on the first run.
func (d *detector) seed() (Baseline, error) {
	baseline := NewBaseline()
	for category, path := range d.paths {
		count, err := countRows(path)
		if err != nil {
			return Baseline{}, fmt.Errorf("failed to establish baseline for %s: %w", category, err)
		}
		baseline.Counts[category] = count
		d.logger.Debug().
			Str("category", category).
			Int("rows", count).
			Msg("Record baseline established")
	}
	return baseline, nil
}

// check computes per-category deltas against the given baseline and returns
// the replacement baseline. The baseline is always replaced with the current
// counts; a missed delta cannot be recomputed later.
//
// New rows are approximated as the trailing slice of the current data, which
// is correct only while the pipeline strictly appends.
func (d *detector) check(baseline Baseline) (Baseline, map[string]categoryDelta, error) {
	next := NewBaseline()
	deltas := make(map[string]categoryDelta, len(d.paths))

	for category, path := range d.paths {
		rows, err := readRows(path)
		if err != nil {
			return Baseline{}, nil, fmt.Errorf("failed to read %s: %w", category, err)
		}

		current := len(rows)
		previous := baseline.Counts[category]

		newCount := current - previous
		if newCount < 0 {
			newCount = 0
		}

		var newData []map[string]string
		if newCount > 0 {
			newData = rows[current-newCount:]
		} else {
			newData = []map[string]string{}
		}

		next.Counts[category] = current
		next.NewRows[category] = newData
		deltas[category] = categoryDelta{
			NewRecords: newCount,
			NewData:    newData,
		}

		d.logger.Debug().
			Str("category", category).
			Int("previous", previous).
			Int("current", current).
			Int("new", newCount).
			Msg("Change detection pass")
	}

	return next, deltas, nil
}
