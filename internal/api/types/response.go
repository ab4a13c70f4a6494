// internal/api/types/response.go
package types

// PaginatedResponse defines a generic structure for paginated API responses.
// T represents the type of data contained in the 'Data' slice.
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalCount int64 `json:"total_count"`
}

// Response is the envelope of every API reply. Exactly one of Data and Error is set.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request. Code is stable and machine readable.
type ErrorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// Ok builds a successful response.
func Ok(message string, data interface{}) Response {
	return Response{Success: true, Message: message, Data: data}
}

// Err builds a failed response.
func Err(code, message string, details ...string) Response {
	return Response{
		Success: false,
		Message: message,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
	}
}
