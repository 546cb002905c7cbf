package dto

// ErrorResponse mirrors the {"error": "..."} shape clients rely on for
// surfacing server-reported messages.
type ErrorResponse struct {
	Message string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
