package handlers

// ErrorResponse is the standard error body for internal-facing endpoints.
type ErrorResponse struct {
	// Reason is a stable machine-readable code.
	Reason string `json:"reason"`
	// Message is the human-readable explanation.
	Message string `json:"message"`
}
