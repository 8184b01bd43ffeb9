package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/absensi-go-api/internal/config"
	"github.com/noah-isme/absensi-go-api/internal/models"
	"github.com/noah-isme/absensi-go-api/internal/repository"
)

// FraudEvaluation is the detector's verdict for one attempt.
type FraudEvaluation struct {
	Flagged bool
	Reason  string
}

// DeviceFraudDetector flags scans whose device fingerprint was recently used
// by a different enrollment. Flagging is informational; turning it into a
// rejection is the pipeline's call via the block_multi_user switch.
type DeviceFraudDetector struct {
	attempts  repository.ScanAttemptRepository
	window    time.Duration
	matchMode string
	logger    zerolog.Logger
}

// NewDeviceFraudDetector constructs a fraud detector.
func NewDeviceFraudDetector(attempts repository.ScanAttemptRepository, cfg config.Attendance, logger zerolog.Logger) *DeviceFraudDetector {
	return &DeviceFraudDetector{
		attempts:  attempts,
		window:    cfg.DeviceWindow,
		matchMode: cfg.MultiMatch,
		logger:    logger.With().Str("component", "device_fraud_detector").Logger(),
	}
}

// FallbackFingerprint hashes User-Agent plus client IP. It is stored on every
// attempt and stands in as the device fingerprint when the client sends none.
func FallbackFingerprint(userAgent, clientIP string) string {
	sum := sha256.Sum256([]byte(userAgent + "|" + clientIP))
	return hex.EncodeToString(sum[:])
}

// EffectiveFingerprint picks the client hash when present, else the fallback.
func EffectiveFingerprint(clientHash, fallbackHash string) string {
	if clientHash != "" {
		return clientHash
	}
	return fallbackHash
}

// Evaluate scans the audit trail for a different enrollment using the same
// device inside the trailing window. Only the current attempt is judged:
// earlier scanners in the window are never flagged retroactively.
func (d *DeviceFraudDetector) Evaluate(ctx context.Context, clientHash, fallbackHash string, enrollmentID uint, now time.Time) (FraudEvaluation, error) {
	fingerprint := EffectiveFingerprint(clientHash, fallbackHash)

	matched, err := d.attempts.HasDeviceMatch(ctx, repository.DeviceMatchQuery{
		EnrollmentID:    enrollmentID,
		Fingerprint:     fingerprint,
		FallbackHash:    fallbackHash,
		Since:           now.Add(-d.window),
		IncludeFallback: d.matchMode == config.MultiMatchClientOrUAIP,
	})
	if err != nil {
		return FraudEvaluation{}, err
	}

	if matched {
		d.logger.Warn().
			Uint("enrollment_id", enrollmentID).
			Str("device_hash", fingerprint).
			Msg("device fingerprint shared across enrollments")
		return FraudEvaluation{Flagged: true, Reason: models.FlagDeviceMultiUser}, nil
	}

	return FraudEvaluation{}, nil
}
