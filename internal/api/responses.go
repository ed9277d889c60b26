package api

// Stable machine-readable error kinds. Clients branch on Kind, humans read
// Error.
const (
	KindInvalidInput    = "invalid_input"
	KindNotFound        = "not_found"
	KindSlotUnavailable = "slot_unavailable"
	KindAlreadyCanceled = "already_canceled"
	KindPartialFailure  = "partial_failure"
	KindUpstreamTimeout = "upstream_timeout"
	KindRateLimited     = "rate_limited"
	KindInternal        = "internal"
)

type ErrorResponse struct {
	Kind    string      `json:"kind" example:"slot_unavailable"`
	Error   string      `json:"error" example:"slot is already booked"`
	Details interface{} `json:"details,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
