package dto

// Response represents a standard API response
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one rejected request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return NewErrorResponseWithRequestID(code, message, "")
}

// NewErrorResponseWithRequestID creates an error response carrying the request id
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewValidationErrorResponse creates a validation error response with field details
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      ErrCodeValidation,
			Message:   message,
			RequestID: requestID,
			Details:   details,
		},
	}
}

// StatusResponse is the flat body the device facing endpoints answer with.
// Clients in the field match on these exact strings.
type StatusResponse struct {
	Status string `json:"status"`
	AppID  string `json:"app_id,omitempty"`
}

// Device facing status strings
const (
	StatusOK                = "ok"
	StatusInvalidBody       = "Invalid body"
	StatusNoAuthorization   = "Cannot find authorization"
	StatusNotAuthorized     = "not authorize"
	StatusCannotAccessApp   = "You can't access this app"
	StatusUnknownError      = "Error unknow"
	StatusInvalidServiceKey = "Invalid service key"
)

// URLResponse carries a signed download URL
type URLResponse struct {
	URL string `json:"url"`
}
