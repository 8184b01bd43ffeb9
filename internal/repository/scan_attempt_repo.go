package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/absensi-go-api/internal/models"
)

// DeviceMatchQuery describes a lookup for recent attempts from the same
// device by a different enrollment.
type DeviceMatchQuery struct {
	// EnrollmentID is the enrollment performing the current scan; rows for
	// this enrollment never count as a match.
	EnrollmentID uint
	// Fingerprint is the current effective device fingerprint.
	Fingerprint string
	// FallbackHash is the current UA+IP hash, consulted only when
	// IncludeFallback is set.
	FallbackHash    string
	Since           time.Time
	IncludeFallback bool
}

// ScanAttemptRepository is the append-only audit trail. Rows are written once
// per scan request and never mutated.
type ScanAttemptRepository interface {
	Create(ctx context.Context, attempt *models.ScanAttempt) error
	// HasDeviceMatch reports whether any other enrollment produced an attempt
	// matching the queried fingerprints inside the window.
	HasDeviceMatch(ctx context.Context, q DeviceMatchQuery) (bool, error)
}

type scanAttemptRepository struct {
	db *gorm.DB
}

// NewScanAttemptRepository constructs a scan attempt repository.
func NewScanAttemptRepository(db *gorm.DB) ScanAttemptRepository {
	return &scanAttemptRepository{db: db}
}

func (r *scanAttemptRepository) Create(ctx context.Context, attempt *models.ScanAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *scanAttemptRepository) HasDeviceMatch(ctx context.Context, q DeviceMatchQuery) (bool, error) {
	if q.Fingerprint == "" && !(q.IncludeFallback && q.FallbackHash != "") {
		return false, nil
	}

	query := r.db.WithContext(ctx).
		Model(&models.ScanAttempt{}).
		Where("created_at >= ?", q.Since).
		Where("enrollment_id IS NOT NULL AND enrollment_id <> ?", q.EnrollmentID)

	if q.IncludeFallback && q.FallbackHash != "" {
		query = query.Where(
			"device_hash = ? OR device_hash_client = ? OR device_hash_fallback = ?",
			q.Fingerprint, q.Fingerprint, q.FallbackHash,
		)
	} else {
		query = query.Where(
			"device_hash = ? OR device_hash_client = ?",
			q.Fingerprint, q.Fingerprint,
		)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}
