package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/absensi-go-api/internal/models"
)

// SessionRepository provides access to attendance sessions.
type SessionRepository interface {
	// Find returns the session and whether it exists; the error is reserved
	// for storage faults.
	Find(ctx context.Context, id string) (models.AttendanceSession, bool, error)
	Create(ctx context.Context, session *models.AttendanceSession) error
	// Close transitions an open session to closed. Closing an already closed
	// session is a no-op.
	Close(ctx context.Context, id string) (models.AttendanceSession, error)
}

type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Find(ctx context.Context, id string) (models.AttendanceSession, bool, error) {
	var session models.AttendanceSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.AttendanceSession{}, false, nil
	}
	if err != nil {
		return models.AttendanceSession{}, false, err
	}

	return session, true, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *models.AttendanceSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) Close(ctx context.Context, id string) (models.AttendanceSession, error) {
	result := r.db.WithContext(ctx).
		Model(&models.AttendanceSession{}).
		Where("id = ? AND status = ?", id, models.SessionStatusOpen).
		Update("status", models.SessionStatusClosed)
	if result.Error != nil {
		return models.AttendanceSession{}, result.Error
	}

	session, found, err := r.Find(ctx, id)
	if err != nil {
		return models.AttendanceSession{}, err
	}
	if !found {
		return models.AttendanceSession{}, fmt.Errorf("session %s not found", id)
	}

	return session, nil
}
