package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobStatus is the user-managed application status of a posting.
type JobStatus string

const (
	JobStatusNew        JobStatus = "new"
	JobStatusInterested JobStatus = "interested"
	JobStatusApplied    JobStatus = "applied"
	JobStatusInterview  JobStatus = "interview"
	JobStatusRejected   JobStatus = "rejected"
	JobStatusOffer      JobStatus = "offer"
)

// JobStatuses lists every valid JobStatus in pipeline order.
var JobStatuses = []JobStatus{
	JobStatusNew,
	JobStatusInterested,
	JobStatusApplied,
	JobStatusInterview,
	JobStatusRejected,
	JobStatusOffer,
}

// Valid reports whether s is one of JobStatuses.
func (s JobStatus) Valid() bool {
	for _, known := range JobStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// SourceName identifies a job board.
type SourceName string

const (
	SourceSummer2026Internships SourceName = "summer2026-internships"
	SourceSWECollegeJobs2025    SourceName = "2025-swe-college-jobs"
)

// JobPosting is a job listing discovered by a scrape and tracked by the user.
// The scraper creates rows and refreshes ScrapedAt; everything from Status
// down is owned by the user.
type JobPosting struct {
	ID             string     `gorm:"type:text;primaryKey" json:"id"`
	UniqueKey      string     `gorm:"type:text;not null;uniqueIndex:idx_job_postings_unique_key" json:"uniqueKey"`
	Title          string     `gorm:"type:text;not null" json:"title"`
	Company        string     `gorm:"type:text;not null" json:"company"`
	Location       string     `gorm:"type:text" json:"location"`
	Salary         string     `gorm:"type:text" json:"salary,omitempty"`
	ApplicationURL string     `gorm:"type:text;not null" json:"applicationUrl"`
	Source         SourceName `gorm:"type:text;not null;index:idx_job_postings_source_posted" json:"source"`
	SourceURL      string     `gorm:"type:text" json:"sourceUrl"`
	PostedDate     time.Time  `gorm:"index:idx_job_postings_source_posted" json:"postedDate"`
	AgeText        string     `gorm:"type:text" json:"ageText"`
	ScrapedAt      time.Time  `gorm:"index:idx_job_postings_scraped_at" json:"scrapedAt"`
	Status         JobStatus  `gorm:"type:text;index:idx_job_postings_status;default:new" json:"status"`
	AppliedAt      *time.Time `json:"appliedAt,omitempty"`
	Notes          string     `gorm:"type:text" json:"notes,omitempty"`
	IsActive       bool       `gorm:"default:true;index:idx_job_postings_active" json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// TableName returns the database table name for JobPosting.
func (JobPosting) TableName() string {
	return "job_postings"
}

// BeforeCreate assigns an ID to new postings.
func (j *JobPosting) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// BeforeSave keeps UniqueKey in step with company, title and location so an
// edited record is rekeyed before it is written. Partial updates that carry
// none of the three leave the key alone.
func (j *JobPosting) BeforeSave(tx *gorm.DB) error {
	if j.Company == "" && j.Title == "" && j.Location == "" {
		return nil
	}
	j.UniqueKey = UniqueKey(j.Company, j.Title, j.Location)
	return nil
}

var (
	keyInvalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	keyDashRuns     = regexp.MustCompile(`-+`)
)

// UniqueKey derives the dedup key of a posting.
// Parameters:
//   - company, title, location: display values as scraped.
// Returns:
//   - string: lowercase key of [a-z0-9-] with no repeated or edge dashes,
//     e.g. "acme-swe-intern-nyc-ny".
func UniqueKey(company, title, location string) string {
	raw := strings.ToLower(company) + "-" + strings.ToLower(title) + "-" + strings.ToLower(location)
	key := keyInvalidChars.ReplaceAllString(raw, "-")
	key = keyDashRuns.ReplaceAllString(key, "-")
	return strings.Trim(key, "-")
}

// ScrapedJob is a candidate posting produced by a source before dedup.
type ScrapedJob struct {
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	Salary         string    `json:"salary,omitempty"`
	ApplicationURL string    `json:"applicationUrl"`
	AgeText        string    `json:"ageText"`
	PostedDate     time.Time `json:"postedDate"`
}

// UniqueKey returns the dedup key the candidate will be stored under.
func (s ScrapedJob) UniqueKey() string {
	return UniqueKey(s.Company, s.Title, s.Location)
}
