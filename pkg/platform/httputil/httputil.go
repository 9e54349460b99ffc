// Package httputil writes the uniform response envelope shared by every route.
//
// Clients must treat success=false as the authoritative failure signal; the HTTP
// status is derived from the error code but is secondary.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	dErrors "engage/pkg/domain-errors"
)

// Envelope is the JSON body of every response.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Version    APIVersion  `json:"version"`
}

// ErrorBody is the error member of a failed envelope.
type ErrorBody struct {
	Code    dErrors.Code         `json:"code"`
	Details []dErrors.FieldError `json:"details,omitempty"`
}

// Pagination accompanies list responses.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	Limit       int  `json:"limit"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// NewPagination derives page counts from a total and a page size.
func NewPagination(page, limit, total int) *Pagination {
	if limit <= 0 {
		limit = 1
	}
	if page <= 0 {
		page = 1
	}
	pages := (total + limit - 1) / limit
	return &Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		TotalCount:  total,
		Limit:       limit,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Success builds a success envelope.
func Success(data any, message string, pagination *Pagination) Envelope {
	return Envelope{
		Success:    true,
		Data:       data,
		Message:    message,
		Pagination: pagination,
		Timestamp:  time.Now().UTC(),
		Version:    CurrentVersion,
	}
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Success(data, "", nil))
}

// WritePaginated writes a success envelope with pagination metadata.
func WritePaginated(w http.ResponseWriter, data any, p *Pagination) {
	WriteJSON(w, http.StatusOK, Success(data, "", p))
}

// ErrorEnvelope renders err as a failure envelope and returns the status to use.
// Internal errors have their message withheld unless devMode is set.
func ErrorEnvelope(err error, devMode bool) (int, Envelope) {
	code := dErrors.CodeInternal
	msg := "an unexpected error occurred"
	var fields []dErrors.FieldError

	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		fields = de.Fields
		if code != dErrors.CodeInternal {
			msg = de.Message
		}
	}
	if code == dErrors.CodeInternal && devMode && err != nil {
		msg = err.Error()
	}

	return dErrors.ToHTTPStatus(code), Envelope{
		Success:   false,
		Error:     &ErrorBody{Code: code, Details: fields},
		Message:   msg,
		Timestamp: time.Now().UTC(),
		Version:   CurrentVersion,
	}
}

// WriteError writes err as a failure envelope with production redaction.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorMode(w, err, false)
}

// WriteErrorMode writes err as a failure envelope, exposing internal messages
// only when devMode is set.
func WriteErrorMode(w http.ResponseWriter, err error, devMode bool) {
	status, env := ErrorEnvelope(err, devMode)
	WriteJSON(w, status, env)
}
