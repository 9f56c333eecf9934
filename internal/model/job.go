package model

import "time"

// JobStatus represents the current state of a build job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JobResult holds the artifacts and provenance recorded when a job
// finishes successfully.
type JobResult struct {
	BuiltJSONPath   string   `json:"built_json_path"`
	HTMLPath        string   `json:"html_path"`
	MarketCapMM     *float64 `json:"market_cap_mm,omitempty"`
	MarketCapSource string   `json:"market_cap_source,omitempty"`
	Score           int      `json:"score"`
}

// Job is one submitted build: four uploaded documents plus a resolved
// market cap, producing a built JSON artifact and a rendered HTML table.
type Job struct {
	ID        string     `json:"id"`
	Ticker    string     `json:"ticker,omitempty"`
	Status    JobStatus  `json:"status"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
