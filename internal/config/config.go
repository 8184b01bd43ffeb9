package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Device-fraud match modes. client_strict compares client fingerprints only;
// client_or_uaip additionally compares the UA+IP fallback hash.
const (
	MultiMatchClientStrict = "client_strict"
	MultiMatchClientOrUAIP = "client_or_uaip"
)

// Attendance holds the scan-pipeline policy knobs.
type Attendance struct {
	CenterLat        float64
	CenterLng        float64
	RadiusMeters     float64
	DeviceWindow     time.Duration
	BlockMultiUser   bool
	MultiMatch       string
	DailyStepSeconds int
}

// GeofenceEnabled reports whether a usable circular fence is configured.
// A non-positive radius or an out-of-range center disables the check.
func (a Attendance) GeofenceEnabled() bool {
	if a.RadiusMeters <= 0 {
		return false
	}
	if a.CenterLat < -90 || a.CenterLat > 90 || a.CenterLng < -180 || a.CenterLng > 180 {
		return false
	}
	return true
}

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	DatabaseURL     string
	RedisURL        string
	JWTSecret       string
	SessionCacheTTL time.Duration
	Attendance      Attendance
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Absensi API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("session.cache_ttl", "30s")
	v.SetDefault("attendance.device_window_min", 15)
	v.SetDefault("attendance.block_multi_user", false)
	v.SetDefault("attendance.multi_match", MultiMatchClientStrict)
	v.SetDefault("attendance.daily_step_seconds", 86400)

	ttlString := v.GetString("session.cache_ttl")
	if ttlString == "" {
		ttlString = "30s"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid session cache ttl: %w", err)
	}

	windowMin := v.GetInt("attendance.device_window_min")
	if windowMin <= 0 {
		windowMin = 15
	}

	dailyStep := v.GetInt("attendance.daily_step_seconds")
	if dailyStep <= 0 {
		dailyStep = 86400
	}

	matchMode := strings.ToLower(strings.TrimSpace(v.GetString("attendance.multi_match")))
	switch matchMode {
	case "":
		matchMode = MultiMatchClientStrict
	case MultiMatchClientStrict, MultiMatchClientOrUAIP:
	default:
		return Config{}, fmt.Errorf("invalid attendance multi match mode %q", matchMode)
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		AppPort:         v.GetString("app.port"),
		DatabaseURL:     v.GetString("database.url"),
		RedisURL:        v.GetString("redis.url"),
		JWTSecret:       v.GetString("jwt.secret"),
		SessionCacheTTL: ttl,
		Attendance: Attendance{
			CenterLat:        v.GetFloat64("attendance.center_lat"),
			CenterLng:        v.GetFloat64("attendance.center_lng"),
			RadiusMeters:     v.GetFloat64("attendance.radius_m"),
			DeviceWindow:     time.Duration(windowMin) * time.Minute,
			BlockMultiUser:   v.GetBool("attendance.block_multi_user"),
			MultiMatch:       matchMode,
			DailyStepSeconds: dailyStep,
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}
