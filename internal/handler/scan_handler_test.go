package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/absensi-go-api/internal/config"
	"github.com/noah-isme/absensi-go-api/internal/handler"
	"github.com/noah-isme/absensi-go-api/internal/models"
	"github.com/noah-isme/absensi-go-api/internal/repository"
	"github.com/noah-isme/absensi-go-api/internal/router"
	"github.com/noah-isme/absensi-go-api/internal/service"
)

func setupScanApp(t *testing.T, policy config.Attendance) (*fiber.App, *gorm.DB) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Student{},
		&models.SchoolClass{},
		&models.Enrollment{},
		&models.AttendanceSession{},
		&models.DailySecret{},
		&models.ScanAttempt{},
		&models.AttendanceRecord{},
	))

	if policy.DeviceWindow == 0 {
		policy.DeviceWindow = 15 * time.Minute
	}
	if policy.MultiMatch == "" {
		policy.MultiMatch = config.MultiMatchClientStrict
	}
	if policy.DailyStepSeconds == 0 {
		policy.DailyStepSeconds = 86400
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	sessionRepo := repository.NewSessionRepository(db)
	secretRepo := repository.NewDailySecretRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attemptRepo := repository.NewScanAttemptRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	scanService := service.NewScanService(service.ScanServiceDeps{
		Sessions:   sessionRepo,
		Secrets:    secretRepo,
		Attempts:   attemptRepo,
		Attendance: attendanceRepo,
		Scopes:     service.NewScopeResolver(enrollmentRepo),
		Geofence:   service.NewGeofenceValidator(policy),
		Fraud:      service.NewDeviceFraudDetector(attemptRepo, policy, logger),
		Policy:     policy,
	}, logger)
	adminService := service.NewAdminService(sessionRepo, secretRepo, nil, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		ScanHandler:       handler.NewScanHandler(scanService, validate, logger),
		DailyTokenHandler: handler.NewDailyTokenHandler(scanService, logger),
		AdminHandler:      handler.NewAdminHandler(adminService, validate, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_role", "admin")
			return c.Next()
		},
	})

	return app, db
}

func seedScanData(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&models.Student{ID: 1, Name: "Jane"}).Error)
	require.NoError(t, db.Create(&models.SchoolClass{ID: 3, Name: "7A", YearID: 2026}).Error)
	require.NoError(t, db.Create(&models.Enrollment{ID: 10, StudentID: 1, ClassID: 3}).Error)
	require.NoError(t, db.Create(&models.AttendanceSession{
		ID:               "sess-1",
		Secret:           "s3cr3t",
		TokenStepSeconds: 20,
		Status:           models.SessionStatusOpen,
		ScopeType:        models.ScopeNone,
	}).Error)
}

func currentToken(scopeID, secret string, step int) string {
	authority := service.NewTokenAuthority()
	return authority.TokenForSlot(secret, scopeID, time.Now().Unix()/int64(step))
}

func postScan(t *testing.T, app *fiber.App, body map[string]any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/scan", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func scanBody() map[string]any {
	return map[string]any{
		"sid":        "sess-1",
		"tok":        currentToken("sess-1", "s3cr3t", 20),
		"user_id":    1,
		"deviceHash": "fp-abc",
		"geo":        map[string]any{"lat": 0.0, "lng": 0.0, "accuracy": 5.0},
	}
}

func TestScanEndpointRecordsAndDeduplicates(t *testing.T) {
	app, db := setupScanApp(t, config.Attendance{})
	seedScanData(t, db)

	resp := postScan(t, app, scanBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", decodeBody(t, resp)["status"])

	resp = postScan(t, app, scanBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "duplicate", decodeBody(t, resp)["status"])

	var records int64
	require.NoError(t, db.Model(&models.AttendanceRecord{}).Count(&records).Error)
	require.Equal(t, int64(1), records)

	var attempts int64
	require.NoError(t, db.Model(&models.ScanAttempt{}).Count(&attempts).Error)
	require.Equal(t, int64(2), attempts)
}

func TestScanEndpointRejectionCodes(t *testing.T) {
	app, db := setupScanApp(t, config.Attendance{})
	seedScanData(t, db)
	require.NoError(t, db.Model(&models.AttendanceSession{}).
		Where("id = ?", "sess-1").
		Update("status", models.SessionStatusClosed).Error)

	cases := []struct {
		name       string
		mutate     func(map[string]any)
		wantStatus int
		wantError  string
	}{
		{
			name:       "closed session",
			mutate:     func(map[string]any) {},
			wantStatus: http.StatusBadRequest,
			wantError:  "closed",
		},
		{
			name:       "missing token",
			mutate:     func(b map[string]any) { delete(b, "tok") },
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
		{
			name:       "unknown session",
			mutate:     func(b map[string]any) { b["sid"] = "nope" },
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := scanBody()
			tc.mutate(body)

			resp := postScan(t, app, body)
			require.Equal(t, tc.wantStatus, resp.StatusCode)
			require.Equal(t, tc.wantError, decodeBody(t, resp)["error"])
		})
	}
}

func TestScanEndpointInvalidToken(t *testing.T) {
	app, db := setupScanApp(t, config.Attendance{})
	seedScanData(t, db)

	body := scanBody()
	body["tok"] = "000000000000"

	resp := postScan(t, app, body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid", decodeBody(t, resp)["error"])
}

func TestScanEndpointUnauth(t *testing.T) {
	app, db := setupScanApp(t, config.Attendance{})
	seedScanData(t, db)

	body := scanBody()
	body["user_id"] = "not-a-number"

	resp := postScan(t, app, body)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "unauth", decodeBody(t, resp)["error"])
}

func TestScanEndpointLocationRequired(t *testing.T) {
	app, db := setupScanApp(t, config.Attendance{})
	seedScanData(t, db)

	body := scanBody()
	delete(body, "geo")

	resp := postScan(t, app, body)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "location_required", decodeBody(t, resp)["error"])
}

func TestScanEndpointPartialGeoIsLocationRequired(t *testing.T) {
	app, db := setupScanApp(t, config.Attendance{})
	seedScanData(t, db)

	// A lone coordinate must be classified by the pipeline, not bounced by
	// request validation, so the rejection is audited.
	for _, geo := range []map[string]any{
		{"lat": 1.0},
		{"lng": 1.0},
	} {
		body := scanBody()
		body["geo"] = geo

		resp := postScan(t, app, body)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Equal(t, "location_required", decodeBody(t, resp)["error"])
	}

	var attempts int64
	require.NoError(t, db.Model(&models.ScanAttempt{}).
		Where("result = ?", models.ResultLocationRequired).
		Count(&attempts).Error)
	require.Equal(t, int64(2), attempts)

	var records int64
	require.NoError(t, db.Model(&models.AttendanceRecord{}).Count(&records).Error)
	require.Zero(t, records)
}

func TestScanEndpointOutsideGeofence(t *testing.T) {
	app, db := setupScanApp(t, config.Attendance{RadiusMeters: 50})
	seedScanData(t, db)

	body := scanBody()
	body["geo"] = map[string]any{"lat": 0.0, "lng": 0.0006, "accuracy": 0.0}

	resp := postScan(t, app, body)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "outside_geofence", decodeBody(t, resp)["error"])
}

func TestScanEndpointBlocksSharedDevice(t *testing.T) {
	app, db := setupScanApp(t, config.Attendance{BlockMultiUser: true})
	seedScanData(t, db)
	require.NoError(t, db.Create(&models.Student{ID: 2, Name: "Jill"}).Error)
	require.NoError(t, db.Create(&models.Enrollment{ID: 11, StudentID: 2, ClassID: 3}).Error)

	resp := postScan(t, app, scanBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := scanBody()
	body["user_id"] = 2
	resp = postScan(t, app, body)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "device_multi_user", decodeBody(t, resp)["error"])

	var flagged models.ScanAttempt
	require.NoError(t, db.Where("result = ?", models.ResultDeviceMultiUser).First(&flagged).Error)
	require.Equal(t, models.FlagDeviceMultiUser, flagged.FlaggedReason)
}

func TestDailyTokenEndpoint(t *testing.T) {
	app, db := setupScanApp(t, config.Attendance{})
	seedScanData(t, db)
	secretRepo := repository.NewDailySecretRepository(db)
	_, err := secretRepo.Rotate(context.Background(), 5, "friday-secret")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/qr/daily-token?day=5", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	require.Equal(t, float64(5), payload["day"])
	token, _ := payload["tok"].(string)
	require.Len(t, token, service.TokenLength)

	// The printable token must validate through the scan pipeline.
	body := scanBody()
	body["sid"] = "day-5"
	body["tok"] = token
	scanResp := postScan(t, app, body)
	require.Equal(t, http.StatusOK, scanResp.StatusCode)
	require.Equal(t, "ok", decodeBody(t, scanResp)["status"])
}

func TestDailyTokenEndpointUnprovisioned(t *testing.T) {
	app, _ := setupScanApp(t, config.Attendance{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/qr/daily-token?day=2", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/qr/daily-token?day=8", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
