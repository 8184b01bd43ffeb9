package dto

// SessionCreateRequest opens a new attendance session. The secret is fixed at
// creation and never returned again in full.
type SessionCreateRequest struct {
	Secret           string `json:"secret" validate:"required,min=8,max=128"`
	TokenStepSeconds int    `json:"token_step_seconds" validate:"omitempty,gt=0,lte=3600"`
	ScopeType        string `json:"scope_type" validate:"omitempty,oneof=none class year"`
	ScopeClassID     *uint  `json:"scope_class_id" validate:"omitempty,gt=0"`
	ScopeYearID      *uint  `json:"scope_year_id" validate:"omitempty,gt=0"`
}

// SessionResponse describes a session without exposing its secret.
type SessionResponse struct {
	ID               string `json:"id"`
	TokenStepSeconds int    `json:"token_step_seconds"`
	Status           string `json:"status"`
	ScopeType        string `json:"scope_type"`
	ScopeClassID     *uint  `json:"scope_class_id,omitempty"`
	ScopeYearID      *uint  `json:"scope_year_id,omitempty"`
}

// SecretRotateRequest replaces a weekday's daily secret.
type SecretRotateRequest struct {
	Secret string `json:"secret" validate:"required,min=8,max=128"`
}
