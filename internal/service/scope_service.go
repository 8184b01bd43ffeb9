package service

import (
	"context"

	"github.com/noah-isme/absensi-go-api/internal/models"
	"github.com/noah-isme/absensi-go-api/internal/repository"
)

// ScopeResolution is the outcome of authorizing an identity against a
// session's scope.
type ScopeResolution struct {
	Allowed      bool
	EnrollmentID uint
	// Reason carries the wire code when not allowed: closed or not_allowed.
	Reason string
}

// ScopeResolver authorizes a scanning identity against the session scope and
// picks the enrollment the attendance will be recorded under.
type ScopeResolver struct {
	enrollments repository.EnrollmentRepository
}

// NewScopeResolver constructs a scope resolver.
func NewScopeResolver(enrollments repository.EnrollmentRepository) *ScopeResolver {
	return &ScopeResolver{enrollments: enrollments}
}

// Resolve applies the scope rules. Enrollments arrive ordered by id ascending,
// so whenever several qualify the lowest enrollment id wins; that ordering is
// the documented tie-break for unscoped and multi-enrollment cases.
func (r *ScopeResolver) Resolve(ctx context.Context, session models.AttendanceSession, studentID uint) (ScopeResolution, error) {
	if !session.IsOpen() {
		return ScopeResolution{Reason: models.ResultClosed}, nil
	}

	enrollments, err := r.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return ScopeResolution{}, err
	}
	if len(enrollments) == 0 {
		return ScopeResolution{Reason: models.ResultNotAllowed}, nil
	}

	switch session.ScopeType {
	case models.ScopeClass:
		if session.ScopeClassID == nil {
			break
		}
		for _, enrollment := range enrollments {
			if enrollment.ClassID == *session.ScopeClassID {
				return ScopeResolution{Allowed: true, EnrollmentID: enrollment.ID}, nil
			}
		}
	case models.ScopeYear:
		if session.ScopeYearID == nil {
			break
		}
		for _, enrollment := range enrollments {
			if enrollment.Class.YearID == *session.ScopeYearID {
				return ScopeResolution{Allowed: true, EnrollmentID: enrollment.ID}, nil
			}
		}
	case models.ScopeNone:
		return ScopeResolution{Allowed: true, EnrollmentID: enrollments[0].ID}, nil
	}

	return ScopeResolution{Reason: models.ResultNotAllowed}, nil
}
