// Package httputil provides HTTP handler utilities for consistent error
// handling and JSON encoding.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/usos-inventory/server/pkg/apperr"
)

// ErrorResponse is the wire shape of every error the API returns
type ErrorResponse struct {
	Error   string `json:"error"`             // stable machine-readable kind
	Message string `json:"message,omitempty"` // human-readable detail
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 OK with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteCreated writes a 201 Created with JSON data
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, data)
}

// WriteNoContent writes a 204 No Content
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteErrorKind writes an error response with an explicit kind and status
func WriteErrorKind(w http.ResponseWriter, status int, kind apperr.Kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: string(kind), Message: message})
}

// WriteAppError maps an application error onto the wire: the kind drives
// the HTTP status, the message is passed through verbatim.
func WriteAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	WriteErrorKind(w, StatusFor(kind), kind, apperr.MessageOf(err))
}

// StatusFor returns the HTTP status code for an error kind
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindMissingCredential, apperr.KindValidationError:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteUnauthorized writes a 401 with the unauthorized kind
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteErrorKind(w, http.StatusUnauthorized, apperr.KindUnauthorized, message)
}

// WriteForbidden writes a 403 with the forbidden kind
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorKind(w, http.StatusForbidden, apperr.KindForbidden, message)
}

// WriteNotFound writes a 404 with the not_found kind
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorKind(w, http.StatusNotFound, apperr.KindNotFound, message)
}

// WriteValidationError writes a 400 with the validation_error kind
func WriteValidationError(w http.ResponseWriter, message string) {
	WriteErrorKind(w, http.StatusBadRequest, apperr.KindValidationError, message)
}

// WriteInternalError writes a 500 with the internal kind
func WriteInternalError(w http.ResponseWriter, err error) {
	WriteErrorKind(w, http.StatusInternalServerError, apperr.KindInternal, err.Error())
}
