package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// TokenLength is the number of hex characters kept from the HMAC digest.
const TokenLength = 12

// TokenAuthority derives and validates time-rotating scan tokens. A token is
// the first 12 hex characters of HMAC-SHA256(secret, "{scopeID}:{slot}") where
// slot advances every stepSeconds.
type TokenAuthority struct{}

// NewTokenAuthority constructs a token authority.
func NewTokenAuthority() TokenAuthority {
	return TokenAuthority{}
}

// Slot returns the time bucket for the given instant.
func (TokenAuthority) Slot(nowEpochSeconds int64, stepSeconds int) int64 {
	return nowEpochSeconds / int64(stepSeconds)
}

// TokenForSlot derives the token for an explicit slot.
func (TokenAuthority) TokenForSlot(secret, scopeID string, slot int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s:%d", scopeID, slot)
	return hex.EncodeToString(mac.Sum(nil))[:TokenLength]
}

// Generate returns the currently valid token and its slot.
func (a TokenAuthority) Generate(secret, scopeID string, stepSeconds int, nowEpochSeconds int64) (string, int64, error) {
	if err := checkTokenConfig(secret, stepSeconds); err != nil {
		return "", 0, err
	}

	slot := a.Slot(nowEpochSeconds, stepSeconds)
	return a.TokenForSlot(secret, scopeID, slot), slot, nil
}

// Validate checks the presented token against the current slot and its two
// neighbours. The one-slot tolerance absorbs clock drift and QR refreshes in
// flight; replay inside the window is accepted here and handled by the ledger
// and the fraud detector. The returned slot is the matched slot, or the
// current one when nothing matched.
func (a TokenAuthority) Validate(secret, scopeID string, stepSeconds int, presented string, nowEpochSeconds int64) (bool, int64, error) {
	if err := checkTokenConfig(secret, stepSeconds); err != nil {
		return false, 0, err
	}

	slot := a.Slot(nowEpochSeconds, stepSeconds)
	for _, candidate := range []int64{slot - 1, slot, slot + 1} {
		expected := a.TokenForSlot(secret, scopeID, candidate)
		if hmac.Equal([]byte(expected), []byte(presented)) {
			return true, candidate, nil
		}
	}

	return false, slot, nil
}

// checkTokenConfig guards against misconfigured sessions. These are fatal
// configuration errors, not per-request rejections.
func checkTokenConfig(secret string, stepSeconds int) error {
	if secret == "" {
		return fmt.Errorf("token secret must not be empty")
	}
	if stepSeconds <= 0 {
		return fmt.Errorf("token step must be positive, got %d", stepSeconds)
	}
	return nil
}
