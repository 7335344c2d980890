package utils

import (
	"fmt"
	"time"

	"github.com/rickb777/period"
)

type Timestamp struct {
	t time.Time
}

func (ts *Timestamp) UnmarshalText(b []byte) error {
	// Hack for empty `--to` flag
	if string(b) == "now" {
		now, err := time.Parse(time.DateOnly, time.Now().UTC().Format(time.DateOnly))
		if err != nil {
			return err
		}
		ts.t = now
		return nil
	}

	t, err := time.Parse(time.DateOnly, string(b))
	if err != nil {
		return fmt.Errorf("Only the date-only format (\"YYYY-MM-DD\") is allowed. Got %s", b)
	}
	ts.t = t
	return nil
}

func (ts *Timestamp) Format(layout string) string {
	return ts.t.Format(layout)
}

func (ts *Timestamp) Time() *time.Time {
	if ts == nil || ts.t.IsZero() {
		return nil
	}
	t := ts.t
	return &t
}

// TimeSpan selects [From, To). A nil bound is open.
type TimeSpan struct {
	From *time.Time
	To   *time.Time
}

func NewTimespan(from, to *Timestamp) TimeSpan {
	return TimeSpan{From: from.Time(), To: to.Time()}
}

func (t *TimeSpan) Contains(other time.Time) bool {
	if t.From != nil && other.Before(*t.From) {
		return false
	}
	if t.To != nil && !other.Before(*t.To) {
		return false
	}
	return true
}

// Returns:
// - "",                                if both t.From and t.To are nil
// - "from_<timestamp>",                if t.From is not nil, and t.To is nil
// - "to_<timestamp>",                  if t.From is nil, and t.To is not nil
// - "from_<timestamp>_to_<timestamp>", if both t.From and t.To are not nil
func (t *TimeSpan) String() string {
	if t.From != nil && t.To != nil {
		from := "from_" + t.From.Format(time.DateOnly)
		to := "to_" + t.To.Format(time.DateOnly)
		return from + "_" + to
	} else if t.From != nil {
		return "from_" + t.From.Format(time.DateOnly)
	} else if t.To != nil {
		return "to_" + t.To.Format(time.DateOnly)
	}
	return ""
}

// ParseDuration converts an ISO 8601 period (e.g. "PT30S") to a duration.
// Calendar periods are measured from the Unix epoch.
func ParseDuration(iso string) (time.Duration, error) {
	p, err := period.Parse(iso)
	if err != nil {
		return 0, err
	}
	if p.IsZero() {
		return 0, nil
	}

	ref := time.Unix(0, 0).UTC()
	end, ok := p.AddTo(ref)
	if !ok {
		return 0, fmt.Errorf("period %s cannot be converted to a duration", iso)
	}
	return end.Sub(ref), nil
}
