package dto

// ErrorResponse is the uniform failure envelope.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func Error(msg string) ErrorResponse {
	return ErrorResponse{Success: false, Error: msg}
}

// SuccessResponse is the minimal success envelope for operations without a
// dedicated payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}

func OK() SuccessResponse {
	return SuccessResponse{Success: true}
}
