package store

import (
	"context"
	"time"

	"github.com/sells-group/capstruct/internal/model"
	"github.com/sells-group/capstruct/pkg/marketcap"
)

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Ticker string          `json:"ticker,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the build service.
type Store interface {
	// Jobs
	CreateJob(ctx context.Context, ticker string) (*model.Job, error)
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error
	UpdateJobResult(ctx context.Context, jobID string, result *model.JobResult) error
	FailJob(ctx context.Context, jobID string, errMsg string) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)

	// Market-cap cache
	GetCachedMarketCap(ctx context.Context, ticker string) (*marketcap.Result, error)
	SetCachedMarketCap(ctx context.Context, ticker string, res *marketcap.Result, ttl time.Duration) error
	DeleteExpiredMarketCaps(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
