package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/absensi-go-api/internal/models"
)

func insertAttempt(t *testing.T, repo ScanAttemptRepository, enrollmentID uint, clientHash, fallbackHash string, age time.Duration) {
	t.Helper()

	effective := clientHash
	if effective == "" {
		effective = fallbackHash
	}

	id := enrollmentID
	attempt := models.ScanAttempt{
		SessionID:          "sess-1",
		Result:             models.ResultOK,
		EnrollmentID:       &id,
		DeviceHash:         effective,
		DeviceHashClient:   clientHash,
		DeviceHashFallback: fallbackHash,
		CreatedAt:          time.Now().Add(-age),
	}
	require.NoError(t, repo.Create(context.Background(), &attempt))
}

func TestHasDeviceMatchFindsOtherEnrollment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScanAttemptRepository(db)

	insertAttempt(t, repo, 1, "fp-abc", "fb-1", 5*time.Minute)

	matched, err := repo.HasDeviceMatch(context.Background(), DeviceMatchQuery{
		EnrollmentID: 2,
		Fingerprint:  "fp-abc",
		Since:        time.Now().Add(-15 * time.Minute),
	})
	require.NoError(t, err)
	require.True(t, matched)
}

func TestHasDeviceMatchIgnoresOwnAttempts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScanAttemptRepository(db)

	insertAttempt(t, repo, 1, "fp-abc", "fb-1", 2*time.Minute)

	matched, err := repo.HasDeviceMatch(context.Background(), DeviceMatchQuery{
		EnrollmentID: 1,
		Fingerprint:  "fp-abc",
		Since:        time.Now().Add(-15 * time.Minute),
	})
	require.NoError(t, err)
	require.False(t, matched)
}

func TestHasDeviceMatchRespectsWindow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScanAttemptRepository(db)

	insertAttempt(t, repo, 1, "fp-abc", "fb-1", 20*time.Minute)

	matched, err := repo.HasDeviceMatch(context.Background(), DeviceMatchQuery{
		EnrollmentID: 2,
		Fingerprint:  "fp-abc",
		Since:        time.Now().Add(-15 * time.Minute),
	})
	require.NoError(t, err)
	require.False(t, matched)
}

func TestHasDeviceMatchFallbackModeOnly(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScanAttemptRepository(db)

	insertAttempt(t, repo, 1, "fp-one", "fb-shared", time.Minute)

	query := DeviceMatchQuery{
		EnrollmentID: 2,
		Fingerprint:  "fp-two",
		FallbackHash: "fb-shared",
		Since:        time.Now().Add(-15 * time.Minute),
	}

	matched, err := repo.HasDeviceMatch(context.Background(), query)
	require.NoError(t, err)
	require.False(t, matched, "strict mode must not consult the fallback hash")

	query.IncludeFallback = true
	matched, err = repo.HasDeviceMatch(context.Background(), query)
	require.NoError(t, err)
	require.True(t, matched)
}

func TestHasDeviceMatchSkipsAnonymousRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScanAttemptRepository(db)

	// Rejected attempts with no resolved enrollment are not evidence of a
	// second identity.
	attempt := models.ScanAttempt{
		SessionID:          "sess-1",
		Result:             models.ResultInvalid,
		DeviceHash:         "fp-abc",
		DeviceHashClient:   "fp-abc",
		DeviceHashFallback: "fb-1",
	}
	require.NoError(t, repo.Create(context.Background(), &attempt))

	matched, err := repo.HasDeviceMatch(context.Background(), DeviceMatchQuery{
		EnrollmentID: 2,
		Fingerprint:  "fp-abc",
		Since:        time.Now().Add(-15 * time.Minute),
	})
	require.NoError(t, err)
	require.False(t, matched)
}
