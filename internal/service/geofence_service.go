package service

import (
	"math"

	"github.com/noah-isme/absensi-go-api/internal/config"
)

const earthRadiusMeters = 6371000

// GeofenceValidator checks reported coordinates against the configured
// circular fence. Whether coordinates are present at all is the pipeline's
// concern; this only does the distance math.
type GeofenceValidator struct {
	cfg config.Attendance
}

// NewGeofenceValidator constructs a geofence validator.
func NewGeofenceValidator(cfg config.Attendance) *GeofenceValidator {
	return &GeofenceValidator{cfg: cfg}
}

// Enabled reports whether a usable fence is configured.
func (g *GeofenceValidator) Enabled() bool {
	return g.cfg.GeofenceEnabled()
}

// Check accepts the point when no fence is configured, or when its
// great-circle distance from the center is within the radius plus the
// reported GPS accuracy.
func (g *GeofenceValidator) Check(lat, lng, accuracyMeters float64) bool {
	if !g.Enabled() {
		return true
	}
	if accuracyMeters < 0 {
		accuracyMeters = 0
	}

	distance := haversineMeters(lat, lng, g.cfg.CenterLat, g.cfg.CenterLng)
	return distance <= g.cfg.RadiusMeters+accuracyMeters
}

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
