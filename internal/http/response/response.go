// Package response writes the JSON envelope shared by every API response.
//
// Success:
//
//	{"status":"success","code":200,"message":"OK","data":{...}}
//
// Error:
//
//	{"status":"error","code":400,"error_code":"VALIDATION","message":"...","errors":{"field":["msg"]}}
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Status    string `json:"status" doc:"success or error"`
	Code      int    `json:"code" doc:"HTTP status code"`
	ErrorCode string `json:"error_code,omitempty" doc:"Machine-readable error code"`
	Message   string `json:"message" doc:"Human-readable message"`
	Data      any    `json:"data,omitempty" doc:"Response payload"`
	Errors    any    `json:"errors,omitempty" doc:"Field-level error messages, each field maps to a list"`
}

// FieldErrors maps a field name to its error messages. Errors that belong to
// no single field go under "non_field_errors".
type FieldErrors map[string][]string

// toFieldErrors lifts single-message field maps into FieldErrors so clients
// can always read errors[field][0]. Other detail values pass through.
func toFieldErrors(details any) any {
	switch d := details.(type) {
	case map[string]string:
		if len(d) == 0 {
			return nil
		}
		out := make(FieldErrors, len(d))
		for field, msg := range d {
			out[field] = []string{msg}
		}
		return out
	case map[string][]string:
		if len(d) == 0 {
			return nil
		}
		return FieldErrors(d)
	case FieldErrors:
		if len(d) == 0 {
			return nil
		}
		return d
	}
	return details
}

// Success builds a success envelope around data.
func Success(status int, data any) Envelope {
	return Envelope{
		Status:  StatusSuccess,
		Code:    status,
		Message: "OK",
		Data:    data,
	}
}

// Failure builds an error envelope.
func Failure(status int, code domainerrors.Code, message string, details any) Envelope {
	return Envelope{
		Status:    StatusError,
		Code:      status,
		ErrorCode: string(code),
		Message:   message,
		Errors:    toFieldErrors(details),
	}
}

// JSON writes an envelope with the given status code.
func JSON(w http.ResponseWriter, status int, envelope Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		if logger != nil {
			logger.Error("Failed to encode JSON response", "error", err)
		}
	}
}

// OK writes a 200 success response.
func OK(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, Success(http.StatusOK, data), logger)
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, code domainerrors.Code, message string, logger *slog.Logger) {
	JSON(w, status, Failure(status, code, message, nil), logger)
}

// Unauthorized writes a 401 Unauthorized response.
func Unauthorized(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusUnauthorized, domainerrors.CodeUnauthorized, message, logger)
}

// TooManyRequests writes a 429 Too Many Requests response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, domainerrors.CodeRateLimited, message, logger)
}

// HandleError writes an appropriate HTTP response based on the error type.
// Coded domain errors keep their status and code; anything else is a 500
// whose message is not exposed.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) && domainErr.Code != domainerrors.CodeInternal {
		status := domainErr.HTTPStatus()
		JSON(w, status, Failure(status, domainErr.Code, domainErr.Message, domainErr.Details), logger)
		return
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	Error(w, http.StatusInternalServerError, domainerrors.CodeInternal, "internal server error", logger)
}
