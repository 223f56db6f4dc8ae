// internal/app/system/httpjson/httpjson.go

// Package httpjson holds the JSON request/response conventions shared by all
// API handlers: decode with a size cap, encode with a status code, and a
// structured error body carrying the application error taxonomy.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Error codes exposed in API error bodies.
const (
	CodeValidation   = "VALIDATION"
	CodeNotFound     = "NOT_FOUND"
	CodeExpired      = "EXPIRED"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeInternal     = "INTERNAL"
)

// maxBodyBytes caps JSON request bodies. Attachments use multipart, not JSON,
// so 1 MiB is generous for every JSON endpoint.
const maxBodyBytes = 1 << 20

// ErrorBody is the wire shape for all API errors.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the taxonomy code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Decode reads a JSON body into dst. It rejects oversized bodies and
// trailing garbage. Returns a VALIDATION-worthy error on malformed input.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// A second token means trailing garbage after the object.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// Write encodes v with the given status code.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a structured error body.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// Convenience writers for the common cases.

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidation, message)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

func Unauthorized(w http.ResponseWriter) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, "authentication required")
}

func Forbidden(w http.ResponseWriter, message string) {
	if message == "" {
		message = "insufficient permissions"
	}
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

func Internal(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
}
