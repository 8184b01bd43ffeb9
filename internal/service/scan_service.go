package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/absensi-go-api/internal/config"
	"github.com/noah-isme/absensi-go-api/internal/dto"
	"github.com/noah-isme/absensi-go-api/internal/models"
	"github.com/noah-isme/absensi-go-api/internal/observability"
	"github.com/noah-isme/absensi-go-api/internal/repository"
)

// Sentinel errors surfaced by the scan service.
var (
	// ErrUnknownSession means the sid resolved to nothing; there is no scope
	// to log an audit row against.
	ErrUnknownSession = errors.New("unknown session")
	// ErrNoDailySecret means no secret is provisioned for the weekday.
	ErrNoDailySecret = errors.New("no daily secret for weekday")
)

const dailySessionPrefix = "day-"

// ScanMeta carries request metadata used for the fallback fingerprint.
type ScanMeta struct {
	UserAgent string
	ClientIP  string
}

// ScanService runs the verification pipeline for one scan request and serves
// the companion daily-token read interface.
type ScanService interface {
	// Scan validates the request end to end and returns the wire result code.
	// Every outcome other than an unknown sid writes exactly one audit row
	// before returning.
	Scan(ctx context.Context, req dto.ScanRequest, meta ScanMeta) (string, error)
	// DailyToken returns the currently valid printable token for a weekday.
	DailyToken(ctx context.Context, weekday int) (dto.DailyTokenResponse, error)
}

type scanService struct {
	sessions   repository.SessionRepository
	secrets    repository.DailySecretRepository
	attempts   repository.ScanAttemptRepository
	attendance repository.AttendanceRepository
	tokens     TokenAuthority
	scopes     *ScopeResolver
	geofence   *GeofenceValidator
	fraud      *DeviceFraudDetector
	cache      *redis.Client
	cacheTTL   time.Duration
	policy     config.Attendance
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// ScanServiceDeps groups the collaborators of the scan pipeline.
type ScanServiceDeps struct {
	Sessions   repository.SessionRepository
	Secrets    repository.DailySecretRepository
	Attempts   repository.ScanAttemptRepository
	Attendance repository.AttendanceRepository
	Scopes     *ScopeResolver
	Geofence   *GeofenceValidator
	Fraud      *DeviceFraudDetector
	Cache      *redis.Client
	CacheTTL   time.Duration
	Policy     config.Attendance
}

// NewScanService constructs the scan pipeline.
func NewScanService(deps ScanServiceDeps, logger zerolog.Logger) ScanService {
	return &scanService{
		sessions:   deps.Sessions,
		secrets:    deps.Secrets,
		attempts:   deps.Attempts,
		attendance: deps.Attendance,
		tokens:     NewTokenAuthority(),
		scopes:     deps.Scopes,
		geofence:   deps.Geofence,
		fraud:      deps.Fraud,
		cache:      deps.Cache,
		cacheTTL:   deps.CacheTTL,
		policy:     deps.Policy,
		logger:     logger.With().Str("component", "scan_service").Logger(),
		tracer:     otel.Tracer("absensi-go-api/scan"),
		now:        time.Now,
	}
}

// attempt accumulates the audit row fields as the pipeline advances.
type attempt struct {
	sessionID     string
	mode          string
	slot          int64
	enrollmentID  *uint
	clientHash    string
	fallbackHash  string
	geo           datatypes.JSONMap
	flaggedReason string
}

func (s *scanService) Scan(ctx context.Context, req dto.ScanRequest, meta ScanMeta) (string, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "attendance.scan")
	defer span.End()

	session, mode, err := s.resolveSession(ctx, req.SID)
	if err != nil {
		return "", err
	}

	att := &attempt{
		sessionID:    session.ID,
		mode:         mode,
		clientHash:   strings.TrimSpace(req.DeviceHash),
		fallbackHash: FallbackFingerprint(meta.UserAgent, meta.ClientIP),
	}
	if req.Geo != nil && req.Geo.Lat != nil && req.Geo.Lng != nil {
		att.geo = datatypes.JSONMap{
			"lat":      *req.Geo.Lat,
			"lng":      *req.Geo.Lng,
			"accuracy": req.Geo.Accuracy,
		}
	}

	span.SetAttributes(
		attribute.String("scan.session_id", session.ID),
		attribute.String("scan.mode", mode),
	)

	result, err := s.runPipeline(ctx, session, req, att)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	span.SetAttributes(attribute.String("scan.result", result))
	observability.ScanRequests().WithLabelValues(mode, result).Inc()
	observability.ScanLatency().WithLabelValues(mode).Observe(s.now().Sub(start).Seconds())
	if att.flaggedReason != "" {
		observability.FraudFlags().WithLabelValues(mode).Inc()
	}

	return result, nil
}

// runPipeline walks the stages in order; the first rejection short-circuits.
// Every return path goes through finish, so the audit trail stays complete.
func (s *scanService) runPipeline(ctx context.Context, session models.AttendanceSession, req dto.ScanRequest, att *attempt) (string, error) {
	now := s.now()

	valid, slot, err := s.tokens.Validate(session.Secret, session.ID, session.TokenStepSeconds, req.Tok, now.Unix())
	if err != nil {
		return "", fmt.Errorf("session %s misconfigured: %w", session.ID, err)
	}
	att.slot = slot
	if !valid {
		return s.finish(ctx, att, models.ResultInvalid)
	}

	studentID, ok := req.UserID.Uint()
	if !ok {
		return s.finish(ctx, att, models.ResultUnauth)
	}

	resolution, err := s.scopes.Resolve(ctx, session, studentID)
	if err != nil {
		return "", err
	}
	if !resolution.Allowed {
		return s.finish(ctx, att, resolution.Reason)
	}
	att.enrollmentID = &resolution.EnrollmentID

	if att.geo == nil {
		return s.finish(ctx, att, models.ResultLocationRequired)
	}
	if !s.geofence.Check(*req.Geo.Lat, *req.Geo.Lng, req.Geo.Accuracy) {
		return s.finish(ctx, att, models.ResultOutsideGeofence)
	}

	evaluation, err := s.fraud.Evaluate(ctx, att.clientHash, att.fallbackHash, resolution.EnrollmentID, now)
	if err != nil {
		return "", err
	}
	if evaluation.Flagged {
		att.flaggedReason = evaluation.Reason
		if s.policy.BlockMultiUser {
			return s.finish(ctx, att, models.ResultDeviceMultiUser)
		}
	}

	date := now.Format(models.AttendanceDateLayout)
	created, err := s.attendance.CreateIdempotent(ctx, resolution.EnrollmentID, date, session.ID)
	if err != nil {
		return "", err
	}
	if !created {
		return s.finish(ctx, att, models.ResultDuplicate)
	}

	return s.finish(ctx, att, models.ResultOK)
}

// finish writes the audit row and returns the result code unchanged.
func (s *scanService) finish(ctx context.Context, att *attempt, result string) (string, error) {
	row := models.ScanAttempt{
		SessionID:          att.sessionID,
		TokenSlot:          att.slot,
		Result:             result,
		EnrollmentID:       att.enrollmentID,
		DeviceHash:         EffectiveFingerprint(att.clientHash, att.fallbackHash),
		DeviceHashClient:   att.clientHash,
		DeviceHashFallback: att.fallbackHash,
		Geo:                att.geo,
		FlaggedReason:      att.flaggedReason,
	}
	if err := s.attempts.Create(ctx, &row); err != nil {
		return "", fmt.Errorf("audit write failed: %w", err)
	}

	s.logger.Info().
		Str("session_id", att.sessionID).
		Str("result", result).
		Str("flagged_reason", att.flaggedReason).
		Msg("scan attempt recorded")

	return result, nil
}

func (s *scanService) DailyToken(ctx context.Context, weekday int) (dto.DailyTokenResponse, error) {
	if weekday < 1 || weekday > 7 {
		return dto.DailyTokenResponse{}, ErrNoDailySecret
	}

	secret, found, err := s.dailySecret(ctx, weekday)
	if err != nil {
		return dto.DailyTokenResponse{}, err
	}
	if !found {
		return dto.DailyTokenResponse{}, ErrNoDailySecret
	}

	scopeID := dailyScopeID(weekday)
	token, _, err := s.tokens.Generate(secret.Secret, scopeID, s.policy.DailyStepSeconds, s.now().Unix())
	if err != nil {
		return dto.DailyTokenResponse{}, err
	}

	return dto.DailyTokenResponse{Day: weekday, Tok: token}, nil
}

// resolveSession loads the attendance session for a sid. A sid of the form
// day-N selects the session-less daily QR mode, modeled as a synthetic
// unscoped session carrying that weekday's secret.
func (s *scanService) resolveSession(ctx context.Context, sid string) (models.AttendanceSession, string, error) {
	if weekday, ok := parseDailySID(sid); ok {
		secret, found, err := s.dailySecret(ctx, weekday)
		if err != nil {
			return models.AttendanceSession{}, "", err
		}
		if !found {
			return models.AttendanceSession{}, "", ErrUnknownSession
		}

		return models.AttendanceSession{
			ID:               dailyScopeID(weekday),
			Secret:           secret.Secret,
			TokenStepSeconds: s.policy.DailyStepSeconds,
			Status:           models.SessionStatusOpen,
			ScopeType:        models.ScopeNone,
		}, "daily", nil
	}

	session, found, err := s.cachedSession(ctx, sid)
	if err != nil {
		return models.AttendanceSession{}, "", err
	}
	if !found {
		return models.AttendanceSession{}, "", ErrUnknownSession
	}

	return session, "session", nil
}

// sessionCacheEntry mirrors the session fields the hot path needs. The model
// hides its secret from JSON, so the cache carries its own shape.
type sessionCacheEntry struct {
	ID               string `json:"id"`
	Secret           string `json:"secret"`
	TokenStepSeconds int    `json:"token_step_seconds"`
	Status           string `json:"status"`
	ScopeType        string `json:"scope_type"`
	ScopeClassID     *uint  `json:"scope_class_id"`
	ScopeYearID      *uint  `json:"scope_year_id"`
}

type secretCacheEntry struct {
	Weekday int    `json:"weekday"`
	Secret  string `json:"secret"`
}

func (s *scanService) cachedSession(ctx context.Context, sid string) (models.AttendanceSession, bool, error) {
	cacheKey := sessionCacheKey(sid)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var entry sessionCacheEntry
			if unmarshalErr := json.Unmarshal([]byte(cached), &entry); unmarshalErr == nil && entry.ID != "" {
				return models.AttendanceSession{
					ID:               entry.ID,
					Secret:           entry.Secret,
					TokenStepSeconds: entry.TokenStepSeconds,
					Status:           entry.Status,
					ScopeType:        entry.ScopeType,
					ScopeClassID:     entry.ScopeClassID,
					ScopeYearID:      entry.ScopeYearID,
				}, true, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read session cache")
		}
	}

	session, found, err := s.sessions.Find(ctx, sid)
	if err != nil || !found {
		return models.AttendanceSession{}, found, err
	}

	s.storeCache(ctx, cacheKey, sessionCacheEntry{
		ID:               session.ID,
		Secret:           session.Secret,
		TokenStepSeconds: session.TokenStepSeconds,
		Status:           session.Status,
		ScopeType:        session.ScopeType,
		ScopeClassID:     session.ScopeClassID,
		ScopeYearID:      session.ScopeYearID,
	})

	return session, true, nil
}

func (s *scanService) dailySecret(ctx context.Context, weekday int) (models.DailySecret, bool, error) {
	cacheKey := dailySecretCacheKey(weekday)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var entry secretCacheEntry
			if unmarshalErr := json.Unmarshal([]byte(cached), &entry); unmarshalErr == nil && entry.Secret != "" {
				return models.DailySecret{Weekday: entry.Weekday, Secret: entry.Secret}, true, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read daily secret cache")
		}
	}

	secret, found, err := s.secrets.Get(ctx, weekday)
	if err != nil || !found {
		return models.DailySecret{}, found, err
	}

	s.storeCache(ctx, cacheKey, secretCacheEntry{Weekday: secret.Weekday, Secret: secret.Secret})

	return secret, true, nil
}

func (s *scanService) storeCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store cache")
	}
}

func sessionCacheKey(sid string) string {
	return "absensi:session:" + sid
}

func dailySecretCacheKey(weekday int) string {
	return "absensi:secret:" + strconv.Itoa(weekday)
}

func dailyScopeID(weekday int) string {
	return dailySessionPrefix + strconv.Itoa(weekday)
}

func parseDailySID(sid string) (int, bool) {
	rest, ok := strings.CutPrefix(sid, dailySessionPrefix)
	if !ok {
		return 0, false
	}
	weekday, err := strconv.Atoi(rest)
	if err != nil || weekday < 1 || weekday > 7 {
		return 0, false
	}
	return weekday, true
}
