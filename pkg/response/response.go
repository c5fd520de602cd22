package response

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Denied builds the rejection payload emitted by enforcement guards.
// Extra fields (current usage, required plan, ...) are merged flat into the payload.
func Denied(code, message string, extra map[string]any) map[string]any {
	payload := map[string]any{
		"success": false,
		"message": message,
		"code":    code,
	}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}
