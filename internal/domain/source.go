package domain

import "time"

// SourceState tracks the last fetch of a job board so the status endpoint
// can show which boards are healthy.
type SourceState struct {
	Name          SourceName `gorm:"type:text;primaryKey" json:"name"`
	DisplayName   string     `gorm:"type:text" json:"displayName"`
	DocumentURL   string     `gorm:"type:text" json:"documentUrl"`
	LastRunAt     *time.Time `json:"lastRunAt,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastJobCount  int        `gorm:"default:0" json:"lastJobCount"`
	LastNewCount  int        `gorm:"default:0" json:"lastNewCount"`
	LastError     string     `gorm:"type:text" json:"lastError,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TableName returns the database table name for SourceState.
func (SourceState) TableName() string {
	return "source_states"
}
