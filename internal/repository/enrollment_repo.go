package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/absensi-go-api/internal/models"
)

// EnrollmentRepository provides access to student enrollments.
type EnrollmentRepository interface {
	// ListByStudent returns the student's enrollments with their classes
	// preloaded, ordered by enrollment id ascending. The ordering is the
	// tie-break policy for unscoped and multi-match sessions.
	ListByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs an enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Class").
		Where("student_id = ?", studentID).
		Order("id ASC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	return enrollments, nil
}
