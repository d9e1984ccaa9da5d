package response

import (
	"query-gateway/internal/utils"
)

// ErrorEnvelope is the uniform body of every error response.
type ErrorEnvelope struct {
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	StatusCode int               `json:"statusCode"`
	Violations []utils.Violation `json:"violations,omitempty"`
}

// MessageResponse is returned by the liveness endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponseFromAppError creates an error envelope from AppError
func ErrorResponseFromAppError(appErr *utils.AppError) *ErrorEnvelope {
	return &ErrorEnvelope{
		Error:      appErr.Kind,
		Message:    appErr.Message,
		StatusCode: appErr.Status(),
		Violations: appErr.Violations,
	}
}

// UnauthorizedResponse creates the auth gate rejection envelope
func UnauthorizedResponse() *ErrorEnvelope {
	return ErrorResponseFromAppError(utils.NewAuthError())
}

// NotFoundResponse creates the unmatched route envelope
func NotFoundResponse(method, uri string) *ErrorEnvelope {
	return ErrorResponseFromAppError(utils.NewRouteNotFoundError(method, uri))
}

// SuccessMessageResponse creates a message-only response
func SuccessMessageResponse(message string) *MessageResponse {
	return &MessageResponse{Message: message}
}
