// Package runlog keeps the history of simulation runs.
package runlog

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/evfleet/core/model"
)

// RunRecord captures one simulation run.
type RunRecord struct {
	Timestamp time.Time `json:"timestamp"`
	RunID     string    `json:"run_id"`
	Target    string    `json:"target"`
	Scenarios []string  `json:"scenarios"`
	// FinalRatios maps scenario names to the electric share in percent at
	// the end of the horizon.
	FinalRatios map[string]float64 `json:"final_ratios"`
	DurationMS  int64              `json:"duration_ms"`
	Error       string             `json:"error,omitempty"`
}

// Failed reports whether the run ended with an error.
func (r RunRecord) Failed() bool { return r.Error != "" }

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start  time.Time
	End    time.Time
	Target model.Target
	// Limit keeps only the most recent records when positive.
	Limit int
}

func (q Query) match(r RunRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return q.Target == "" || r.Target == string(q.Target)
}

// Store persists RunRecords and supports querying. Query returns records
// oldest first.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q Query) ([]RunRecord, error)
	Close() error
}

// Options selects and configures a Store backend.
type Options struct {
	// Backend is "jsonl" or "sqlite".
	Backend    string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Open creates the store described by opts.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case "", "jsonl":
		return NewRotatingJSONLStore(opts.Path, opts.MaxSizeMB, opts.MaxBackups, opts.MaxAgeDays)
	case "sqlite":
		return NewSQLiteStore(opts.Path)
	default:
		return nil, fmt.Errorf("unknown runlog backend %q", opts.Backend)
	}
}

func limit(recs []RunRecord, n int) []RunRecord {
	if n > 0 && len(recs) > n {
		return recs[len(recs)-n:]
	}
	return recs
}
