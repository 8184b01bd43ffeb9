package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/absensi-go-api/internal/models"
)

func TestCreateIdempotentInsertsOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	created, err := repo.CreateIdempotent(context.Background(), 7, "2026-08-28", "sess-1")
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.CreateIdempotent(context.Background(), 7, "2026-08-28", "sess-1")
	require.NoError(t, err)
	require.False(t, created, "second write for the same day must report duplicate")

	var count int64
	require.NoError(t, db.Model(&models.AttendanceRecord{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCreateIdempotentDistinguishesDays(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	created, err := repo.CreateIdempotent(context.Background(), 7, "2026-08-28", "sess-1")
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.CreateIdempotent(context.Background(), 7, "2026-08-29", "sess-1")
	require.NoError(t, err)
	require.True(t, created, "a new day is a new record")

	created, err = repo.CreateIdempotent(context.Background(), 8, "2026-08-28", "sess-1")
	require.NoError(t, err)
	require.True(t, created, "a different enrollment is a new record")
}

func TestCreateIdempotentKeepsFirstWriter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	created, err := repo.CreateIdempotent(context.Background(), 9, "2026-08-28", "sess-early")
	require.NoError(t, err)
	require.True(t, created)

	_, err = repo.CreateIdempotent(context.Background(), 9, "2026-08-28", "sess-late")
	require.NoError(t, err)

	var record models.AttendanceRecord
	require.NoError(t, db.First(&record, "enrollment_id = ?", 9).Error)
	require.Equal(t, "sess-early", record.SessionID, "losing writer must not mutate the stored row")
}
