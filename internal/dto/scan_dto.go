package dto

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexibleID accepts a JSON string or number for identity fields. Scanner
// clients are inconsistent about how they serialise user ids.
type FlexibleID string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*f = ""
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

// Uint returns the id as an unsigned integer; ok is false for empty or
// non-numeric values.
func (f FlexibleID) Uint() (uint, bool) {
	if f == "" {
		return 0, false
	}
	parsed, err := strconv.ParseUint(string(f), 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}

// GeoPoint carries the reported scan location. Lat and Lng are pointers so a
// missing coordinate is distinguishable from zero; the pipeline classifies
// absent or partial coordinates as location_required, so the validator must
// not reject them first.
type GeoPoint struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Accuracy float64  `json:"accuracy" validate:"gte=0"`
}

// ScanRequest is the wire payload for a QR scan check-in.
type ScanRequest struct {
	SID        string     `json:"sid" validate:"required,max=64"`
	Tok        string     `json:"tok" validate:"required,max=64"`
	UserID     FlexibleID `json:"user_id"`
	DeviceHash string     `json:"deviceHash" validate:"omitempty,max=128"`
	Geo        *GeoPoint  `json:"geo"`
}

// ScanOKResponse is returned on accepted or duplicate scans.
type ScanOKResponse struct {
	Status string `json:"status"`
}

// ScanErrorResponse is returned on every rejected scan.
type ScanErrorResponse struct {
	Error string `json:"error"`
}

// DailyTokenResponse is the printable QR payload for a weekday.
type DailyTokenResponse struct {
	Day int    `json:"day"`
	Tok string `json:"tok"`
}
