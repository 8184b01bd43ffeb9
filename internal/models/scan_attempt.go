package models

import (
	"time"

	"gorm.io/datatypes"
)

// Scan results recorded in the audit trail and returned on the wire.
const (
	ResultOK               = "ok"
	ResultDuplicate        = "duplicate"
	ResultBadRequest       = "bad_request"
	ResultClosed           = "closed"
	ResultInvalid          = "invalid"
	ResultUnauth           = "unauth"
	ResultNotAllowed       = "not_allowed"
	ResultLocationRequired = "location_required"
	ResultOutsideGeofence  = "outside_geofence"
	ResultDeviceMultiUser  = "device_multi_user"
)

// FlagDeviceMultiUser marks an attempt whose device fingerprint was seen for a
// different enrollment inside the detection window.
const FlagDeviceMultiUser = "device_multi_user"

// ScanAttempt is the append-only audit row written once per scan request.
// Rows are never updated or deleted by the pipeline.
type ScanAttempt struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	SessionID          string            `gorm:"size:64;not null;index:idx_attempt_session" json:"session_id"`
	TokenSlot          int64             `gorm:"not null" json:"token_slot"`
	Result             string            `gorm:"size:32;not null" json:"result"`
	EnrollmentID       *uint             `gorm:"index:idx_attempt_enrollment" json:"enrollment_id"`
	DeviceHash         string            `gorm:"size:128;index:idx_attempt_device" json:"device_hash"`
	DeviceHashClient   string            `gorm:"size:128;index:idx_attempt_device_client" json:"device_hash_client"`
	DeviceHashFallback string            `gorm:"size:128;index:idx_attempt_device_fallback" json:"device_hash_fallback"`
	Geo                datatypes.JSONMap `gorm:"type:json" json:"geo"`
	FlaggedReason      string            `gorm:"size:64" json:"flagged_reason"`
	CreatedAt          time.Time         `gorm:"index:idx_attempt_created" json:"created_at"`
}

// Flagged reports whether the attempt carries a fraud flag.
func (a ScanAttempt) Flagged() bool {
	return a.FlaggedReason != ""
}
