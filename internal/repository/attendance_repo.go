package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/absensi-go-api/internal/models"
)

// AttendanceRepository records at most one presence per enrollment per
// calendar day.
type AttendanceRepository interface {
	// CreateIdempotent inserts the (enrollment, date) row and reports whether
	// a new row was created. A pre-existing row and a lost insert race both
	// yield created=false, never an error.
	CreateIdempotent(ctx context.Context, enrollmentID uint, date, sessionID string) (bool, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository constructs an attendance repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) CreateIdempotent(ctx context.Context, enrollmentID uint, date, sessionID string) (bool, error) {
	record := models.AttendanceRecord{
		EnrollmentID: enrollmentID,
		Date:         date,
		SessionID:    sessionID,
	}

	// The unique index on (enrollment_id, date) is the cross-request
	// uniqueness guarantee; the losing writer sees zero rows affected.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "enrollment_id"}, {Name: "date"}},
			DoNothing: true,
		}).
		Create(&record)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
