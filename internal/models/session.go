package models

import "time"

// Session status values. A session only ever moves open -> closed.
const (
	SessionStatusOpen   = "open"
	SessionStatusClosed = "closed"
)

// Session scope types limiting which enrollments may check in.
const (
	ScopeNone  = "none"
	ScopeClass = "class"
	ScopeYear  = "year"
)

// AttendanceSession is a check-in window administered outside the scan
// pipeline; the pipeline only reads it. The secret is fixed at creation.
type AttendanceSession struct {
	ID               string    `gorm:"primaryKey;size:64" json:"id"`
	Secret           string    `gorm:"size:128;not null" json:"-"`
	TokenStepSeconds int       `gorm:"not null;default:20" json:"token_step_seconds"`
	Status           string    `gorm:"size:16;not null;default:open" json:"status"`
	ScopeType        string    `gorm:"size:16;not null;default:none" json:"scope_type"`
	ScopeClassID     *uint     `json:"scope_class_id"`
	ScopeYearID      *uint     `json:"scope_year_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsOpen reports whether the session still accepts scans.
func (s AttendanceSession) IsOpen() bool {
	return s.Status == SessionStatusOpen
}
