package domain

import "time"

// RunStatus represents the status of a scrape run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunTrigger records what started a scrape run.
type RunTrigger string

const (
	TriggerScheduled RunTrigger = "scheduled"
	TriggerManual    RunTrigger = "manual"
	TriggerCLI       RunTrigger = "cli"
)

// ScrapeRun is the persisted history entry of one scrape cycle.
// A run is failed only when every source failed.
type ScrapeRun struct {
	ID          string      `gorm:"type:text;primaryKey" json:"id"`
	Trigger     RunTrigger  `gorm:"type:text;not null" json:"trigger"`
	Status      RunStatus   `gorm:"type:text;index:idx_scrape_runs_status;default:running" json:"status"`
	TotalJobs   int         `gorm:"default:0" json:"totalJobs"`
	NewJobs     int         `gorm:"default:0" json:"newJobs"`
	Errors      StringArray `gorm:"type:text" json:"errors"`
	StartedAt   time.Time   `gorm:"index:idx_scrape_runs_started_at" json:"startedAt"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// TableName returns the database table name for ScrapeRun.
func (ScrapeRun) TableName() string {
	return "scrape_runs"
}

// ScrapeResult summarises one scrape cycle for callers.
type ScrapeResult struct {
	NewJobs   int      `json:"newJobs"`
	TotalJobs int      `json:"totalJobs"`
	Errors    []string `json:"errors"`
}
