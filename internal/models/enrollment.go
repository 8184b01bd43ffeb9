package models

import "time"

// Student is the minimal identity record the scan pipeline resolves against.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SchoolClass groups enrollments and carries the academic year used by
// year-scoped sessions.
type SchoolClass struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	YearID    uint      `gorm:"not null;index" json:"year_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Enrollment binds a student to a class. A student may hold several
// enrollments across years; the lowest enrollment id is the deterministic
// tie-break wherever a single one must be chosen.
type Enrollment struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	StudentID uint        `gorm:"not null;index" json:"student_id"`
	ClassID   uint        `gorm:"not null;index" json:"class_id"`
	CreatedAt time.Time   `json:"created_at"`
	Student   Student     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Class     SchoolClass `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
