package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"portval/pkg/portval"
)

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// errorMessageSetter is implemented by the request logging writer so the
// completion log line carries the error text.
type errorMessageSetter interface {
	SetErrorMessage(message string)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes a plain error with the given status.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if setter, ok := w.(errorMessageSetter); ok {
		setter.SetErrorMessage(message)
	}
	writeJSON(w, status, ErrorResponse{
		Code:      status,
		Message:   message,
		RequestID: requestID(r),
	})
}

// writeErrorResponse writes an error response. Structured errors choose their
// own status; anything else uses httpStatus.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, httpStatus int, err error) {
	response := ErrorResponse{
		Code:      httpStatus,
		Message:   err.Error(),
		RequestID: requestID(r),
	}

	var pvErr *portval.Error
	if errors.As(err, &pvErr) {
		response.ErrorCode = string(pvErr.Code)
		response.Message = pvErr.Message
		httpStatus = mapErrorCodeToHTTPStatus(pvErr.Code)
		response.Code = httpStatus
	}

	if setter, ok := w.(errorMessageSetter); ok {
		setter.SetErrorMessage(err.Error())
	}
	writeJSON(w, httpStatus, response)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code portval.ErrorCode) int {
	switch code {
	case portval.ErrCodeInvalidInput, portval.ErrCodeValidation:
		return http.StatusBadRequest
	case portval.ErrCodeNotFound:
		return http.StatusNotFound
	case portval.ErrCodeMissingData:
		return http.StatusUnprocessableEntity
	case portval.ErrCodeDuplicate:
		return http.StatusConflict
	case portval.ErrCodeDatabase, portval.ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func requestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	return middleware.GetReqID(r.Context())
}
