package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageCycleStart      Stage = "CYCLE_START"
	StageCycleDone       Stage = "CYCLE_DONE"
	StagePageFetched     Stage = "PAGE_FETCHED"
	StagePageFailed      Stage = "PAGE_FAILED"
	StageRecordStored    Stage = "RECORD_STORED"
	StageRecordDuplicate Stage = "RECORD_DUPLICATE"
	StageRecordSkipped   Stage = "RECORD_SKIPPED"
	StageRecordFailed    Stage = "RECORD_FAILED"
	StageWorkerStopped   Stage = "WORKER_STOPPED"
)

// Event captures a single step of a source worker's progress.
type Event struct {
	// Source is the source name the worker ingests from.
	Source string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Page is the 1-based page number for page and record events.
	Page int
	// Items is the number of raw postings on a fetched page.
	Items int
	// Key is the dedup key string for record events.
	Key string
	// Dur captures latency for page fetches and completed cycles.
	Dur time.Duration
	// Note carries low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.Source == "" {
		return errors.New("source is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageCycleStart, StageCycleDone, StageWorkerStopped:
	case StagePageFetched, StagePageFailed:
		if e.Page < 1 {
			return fmt.Errorf("%s requires a page number", e.Stage)
		}
	case StageRecordStored, StageRecordDuplicate, StageRecordSkipped, StageRecordFailed:
		if e.Key == "" {
			return fmt.Errorf("%s requires a key", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
