package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/absensi-go-api/internal/dto"
	"github.com/noah-isme/absensi-go-api/internal/models"
	"github.com/noah-isme/absensi-go-api/internal/repository"
)

// ErrSessionNotFound is returned when an admin operation names a missing session.
var ErrSessionNotFound = errors.New("session not found")

// AdminService covers the administrative actions the scan pipeline only ever
// reads the results of: opening and closing sessions and rotating the
// per-weekday daily secrets.
type AdminService interface {
	CreateSession(ctx context.Context, payload dto.SessionCreateRequest) (dto.SessionResponse, error)
	CloseSession(ctx context.Context, id string) (dto.SessionResponse, error)
	RotateDailySecret(ctx context.Context, weekday int, payload dto.SecretRotateRequest) error
}

type adminService struct {
	sessions  repository.SessionRepository
	secrets   repository.DailySecretRepository
	cache     *redis.Client
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAdminService constructs the admin service.
func NewAdminService(sessions repository.SessionRepository, secrets repository.DailySecretRepository, cache *redis.Client, validate *validator.Validate, logger zerolog.Logger) AdminService {
	return &adminService{
		sessions:  sessions,
		secrets:   secrets,
		cache:     cache,
		validator: validate,
		logger:    logger.With().Str("component", "admin_service").Logger(),
	}
}

func (s *adminService) CreateSession(ctx context.Context, payload dto.SessionCreateRequest) (dto.SessionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SessionResponse{}, err
	}

	session := models.AttendanceSession{
		ID:               uuid.NewString(),
		Secret:           payload.Secret,
		TokenStepSeconds: payload.TokenStepSeconds,
		Status:           models.SessionStatusOpen,
		ScopeType:        payload.ScopeType,
		ScopeClassID:     payload.ScopeClassID,
		ScopeYearID:      payload.ScopeYearID,
	}
	if session.TokenStepSeconds <= 0 {
		session.TokenStepSeconds = 20
	}
	if session.ScopeType == "" {
		session.ScopeType = models.ScopeNone
	}

	if err := s.sessions.Create(ctx, &session); err != nil {
		return dto.SessionResponse{}, err
	}

	s.logger.Info().Str("session_id", session.ID).Str("scope_type", session.ScopeType).Msg("session opened")

	return sessionResponse(session), nil
}

func (s *adminService) CloseSession(ctx context.Context, id string) (dto.SessionResponse, error) {
	_, found, err := s.sessions.Find(ctx, id)
	if err != nil {
		return dto.SessionResponse{}, err
	}
	if !found {
		return dto.SessionResponse{}, ErrSessionNotFound
	}

	session, err := s.sessions.Close(ctx, id)
	if err != nil {
		return dto.SessionResponse{}, err
	}

	// Drop the cached copy so in-flight scans see the closed status.
	s.invalidate(ctx, sessionCacheKey(id))
	s.logger.Info().Str("session_id", id).Msg("session closed")

	return sessionResponse(session), nil
}

func (s *adminService) RotateDailySecret(ctx context.Context, weekday int, payload dto.SecretRotateRequest) error {
	if weekday < 1 || weekday > 7 {
		return ErrSessionNotFound
	}
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	if _, err := s.secrets.Rotate(ctx, weekday, payload.Secret); err != nil {
		return err
	}

	// Rotation must invalidate previously printed QR codes immediately, so
	// the cached secret cannot be allowed to linger for its TTL.
	s.invalidate(ctx, dailySecretCacheKey(weekday))
	s.logger.Info().Int("weekday", weekday).Msg("daily secret rotated")

	return nil
}

func (s *adminService) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to invalidate cache")
	}
}

func sessionResponse(session models.AttendanceSession) dto.SessionResponse {
	return dto.SessionResponse{
		ID:               session.ID,
		TokenStepSeconds: session.TokenStepSeconds,
		Status:           session.Status,
		ScopeType:        session.ScopeType,
		ScopeClassID:     session.ScopeClassID,
		ScopeYearID:      session.ScopeYearID,
	}
}
