package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned for an unknown analysis id.
var ErrJobNotFound = errors.New("analysis job not found")

// Repository stores analysis jobs. Implementations hand out copies: a job
// read from the store is never shared with a concurrent Process call.
type Repository interface {
	// Save inserts or replaces the job with the same ID.
	Save(ctx context.Context, job *Job) error

	// FindByID returns ErrJobNotFound for an unknown id.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns every job, newest CreatedAt first, ties broken by ID.
	List(ctx context.Context) ([]*Job, error)

	// Delete returns ErrJobNotFound for an unknown id.
	Delete(ctx context.Context, id string) error
}
