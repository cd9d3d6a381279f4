package importer

import (
	"errors"
	"net/http"
	"time"
)

// Outcome is the terminal state of one work item within a run. Every state
// except Processed leaves the item pending for the next run.
type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeSkippedThrottled Outcome = "throttled"
	OutcomeSkippedBlocked   Outcome = "blocked"
	OutcomeSkippedError     Outcome = "error"
)

func (o Outcome) String() string { return string(o) }

// Pauses holds the blocking waits applied after each outcome.
type Pauses struct {
	Throttled time.Duration
	Blocked   time.Duration
	Error     time.Duration
	Pacing    time.Duration
}

func DefaultPauses() Pauses {
	return Pauses{
		Throttled: 10 * time.Second,
		Blocked:   60 * time.Second,
		Error:     3 * time.Second,
		Pacing:    3 * time.Second,
	}
}

func (p Pauses) withDefaults() Pauses {
	d := DefaultPauses()
	if p.Throttled <= 0 {
		p.Throttled = d.Throttled
	}
	if p.Blocked <= 0 {
		p.Blocked = d.Blocked
	}
	if p.Error <= 0 {
		p.Error = d.Error
	}
	if p.Pacing <= 0 {
		p.Pacing = d.Pacing
	}
	return p
}

// After returns the pause that follows outcome o.
func (p Pauses) After(o Outcome) time.Duration {
	switch o {
	case OutcomeSkippedThrottled:
		return p.Throttled
	case OutcomeSkippedBlocked:
		return p.Blocked
	case OutcomeSkippedError:
		return p.Error
	default:
		return p.Pacing
	}
}

// ClassifyFetchError maps an upstream failure to an item outcome:
// 429 is throttling, 403 is a block, everything else is a soft error.
func ClassifyFetchError(err error) Outcome {
	var fe *FetchError
	if errors.As(err, &fe) {
		switch fe.StatusCode {
		case http.StatusTooManyRequests:
			return OutcomeSkippedThrottled
		case http.StatusForbidden:
			return OutcomeSkippedBlocked
		}
	}
	return OutcomeSkippedError
}
