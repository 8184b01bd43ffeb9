package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/absensi-go-api/internal/models"
)

// DailySecretRepository provides read and rotate access to the per-weekday
// rotating secrets consumed by the daily QR mode.
type DailySecretRepository interface {
	Get(ctx context.Context, weekday int) (models.DailySecret, bool, error)
	// Rotate replaces the weekday's secret, creating the row on first use.
	// Every QR printed under the previous secret stops validating at once.
	Rotate(ctx context.Context, weekday int, secret string) (models.DailySecret, error)
}

type dailySecretRepository struct {
	db *gorm.DB
}

// NewDailySecretRepository constructs a daily secret repository.
func NewDailySecretRepository(db *gorm.DB) DailySecretRepository {
	return &dailySecretRepository{db: db}
}

func (r *dailySecretRepository) Get(ctx context.Context, weekday int) (models.DailySecret, bool, error) {
	var secret models.DailySecret
	err := r.db.WithContext(ctx).First(&secret, "weekday = ?", weekday).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DailySecret{}, false, nil
	}
	if err != nil {
		return models.DailySecret{}, false, err
	}

	return secret, true, nil
}

func (r *dailySecretRepository) Rotate(ctx context.Context, weekday int, secret string) (models.DailySecret, error) {
	row := models.DailySecret{
		Weekday:   weekday,
		Secret:    secret,
		RotatedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "weekday"}},
			DoUpdates: clause.AssignmentColumns([]string{"secret", "rotated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return models.DailySecret{}, err
	}

	stored, _, err := r.Get(ctx, weekday)
	if err != nil {
		return models.DailySecret{}, err
	}

	return stored, nil
}
