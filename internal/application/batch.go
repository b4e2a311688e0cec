package application

import (
	"errors"
	"fmt"
)

// BatchFailure records one record a multi-record write could not persist.
type BatchFailure struct {
	ID  string
	Err error
}

// BatchResult reports the per-record outcome of a multi-record write. Records
// are written one at a time in staged order and only successful writes are
// listed in Succeeded.
type BatchResult struct {
	Succeeded []string
	Failed    []BatchFailure
}

// Total is the number of records the batch attempted.
func (b BatchResult) Total() int {
	return len(b.Succeeded) + len(b.Failed)
}

// Err returns nil when every record was written. Otherwise the returned error
// matches ErrPartialFailure and each per-record cause.
func (b BatchResult) Err() error {
	if len(b.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(b.Failed)+1)
	errs = append(errs, fmt.Errorf("%w: %d of %d records failed", ErrPartialFailure, len(b.Failed), b.Total()))
	for _, failure := range b.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", failure.ID, failure.Err))
	}
	return errors.Join(errs...)
}

func (b *BatchResult) record(id string, err error) {
	if err != nil {
		b.Failed = append(b.Failed, BatchFailure{ID: id, Err: err})
		return
	}
	b.Succeeded = append(b.Succeeded, id)
}
