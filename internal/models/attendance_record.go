package models

import "time"

// AttendanceDateLayout is the calendar-date key format for attendance rows.
const AttendanceDateLayout = "2006-01-02"

// AttendanceRecord stores at most one presence per enrollment per calendar
// day. The composite unique index is the idempotency guarantee: concurrent
// writers race on the insert and the loser reads back a duplicate.
type AttendanceRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EnrollmentID uint      `gorm:"not null;uniqueIndex:idx_attendance_enrollment_date" json:"enrollment_id"`
	Date         string    `gorm:"size:10;not null;uniqueIndex:idx_attendance_enrollment_date" json:"date"`
	SessionID    string    `gorm:"size:64;not null" json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
}
