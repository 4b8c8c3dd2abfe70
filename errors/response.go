package errors

// ErrorResponse is the error body shape the client understands in remote
// responses: {"error": {"code": ..., "message": ..., "retryable": ...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody is the content of ErrorResponse.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse renders e as an ErrorResponse. Test servers use it to answer
// like a real API.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Code: e.Code, Message: e.Message, Retryable: e.Retryable, Details: e.Details}}
}

// FromResponse rebuilds the AppError carried by a decoded ErrorResponse
// body. It reports false when body has no error code.
func FromResponse(body map[string]any, httpStatus int) (*AppError, bool) {
	inner, _ := body["error"].(map[string]any)
	code, _ := inner["code"].(string)
	if code == "" {
		return nil, false
	}
	err := &AppError{Code: ErrorCode(code), HTTPStatus: httpStatus}
	err.Message, _ = inner["message"].(string)
	err.Retryable, _ = inner["retryable"].(bool)
	err.Details, _ = inner["details"].(map[string]any)
	return err, true
}
