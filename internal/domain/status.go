package domain

import "time"

// RunStatus summarises the most recent output run of a long-running process.
type RunStatus struct {
	RunDate         string    `json:"run_date,omitempty"`
	StartedAt       time.Time `json:"started_at,omitzero"`
	FinishedAt      time.Time `json:"finished_at,omitzero"`
	InProgress      bool      `json:"in_progress"`
	Error           string    `json:"error,omitempty"`
	LastSuccessDate string    `json:"last_success_date,omitempty"`
}
