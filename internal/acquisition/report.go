package acquisition

import (
	"errors"
	"fmt"
	"time"

	"github.com/javierballesterjack/crop-health-engine/internal/zonal"
)

type Status string

const (
	StatusFetchFailed Status = "fetch_failed"
	StatusRejected    Status = "rejected"
	StatusUnreadable  Status = "unreadable"
	StatusSkipped     Status = "skipped"
	StatusAggregated  Status = "aggregated"
)

// Verdict is what the scheduler remembers about a rejected date.
type Verdict struct {
	Status Status `json:"status"`
	Reason string `json:"reason"`
}

type FieldOutcome struct {
	FieldID string
	Result  zonal.Result
	Stored  bool
	Err     error
}

type DateOutcome struct {
	Date   time.Time
	Status Status
	Err    error
	Fields []FieldOutcome
}

// Stored counts the fields persisted for the date.
func (d DateOutcome) Stored() int {
	n := 0
	for _, f := range d.Fields {
		if f.Stored {
			n++
		}
	}
	return n
}

// Report summarises one scheduler run. Next is the first date a follow-up
// run should look at.
type Report struct {
	RunID     string
	ScenePath string
	Dates     []DateOutcome
	Next      time.Time
}

// Count returns how many dates ended with status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, d := range r.Dates {
		if d.Status == status {
			n++
		}
	}
	return n
}

// Results returns every stored field result, for summaries.
func (r *Report) Results() []zonal.Result {
	var out []zonal.Result
	for _, d := range r.Dates {
		for _, f := range d.Fields {
			if f.Stored {
				out = append(out, f.Result)
			}
		}
	}
	return out
}

// FieldErrors joins the per-field failures of aggregated dates.
func (r *Report) FieldErrors() error {
	var errs []error
	for _, d := range r.Dates {
		for _, f := range d.Fields {
			if f.Err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", d.Date.Format(time.DateOnly), f.Err))
			}
		}
	}
	return errors.Join(errs...)
}

func (r *Report) String() string {
	stored := 0
	for _, d := range r.Dates {
		stored += d.Stored()
	}
	return fmt.Sprintf("%s: %d dates, %d aggregated, %d rejected, %d unavailable, %d skipped, %d rows stored, next %s",
		r.ScenePath, len(r.Dates), r.Count(StatusAggregated), r.Count(StatusRejected),
		r.Count(StatusFetchFailed)+r.Count(StatusUnreadable), r.Count(StatusSkipped), stored, r.Next.Format(time.DateOnly))
}
