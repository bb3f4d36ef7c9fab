package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	tmerr "github.com/mrz1836/testament/pkg/errors"
)

// Error is a handler error with a stable code and the HTTP status to use.
//
// Codes 40001-49999 are client errors, 50001-59999 are server or upstream
// errors. Never reuse a retired code.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// Handler errors.
//
//nolint:gochecknoglobals // Error catalogue
var (
	ErrMalformedBody   = Error{Code: 40001, HTTPstatus: http.StatusBadRequest, Err: errors.New("malformed request body")}
	ErrMalformedWillID = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: errors.New("malformed will id")}
	ErrInvalidRequest  = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: errors.New("invalid request")}
	ErrNotConnected    = Error{Code: 40101, HTTPstatus: http.StatusUnauthorized, Err: errors.New("wallet not connected")}
	ErrRejected        = Error{Code: 40102, HTTPstatus: http.StatusUnauthorized, Err: errors.New("request rejected")}
	ErrForbiddenOrigin = Error{Code: 40301, HTTPstatus: http.StatusForbidden, Err: errors.New("request origin not allowed")}
	ErrNotFound        = Error{Code: 40401, HTTPstatus: http.StatusNotFound, Err: errors.New("resource not found")}
	ErrConflict        = Error{Code: 40901, HTTPstatus: http.StatusConflict, Err: errors.New("connection already in progress")}

	ErrMarshalingJSON = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: errors.New("marshaling JSON failed")}
	ErrRendering      = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: errors.New("rendering page failed")}
	ErrWalletUnusable = Error{Code: 50301, HTTPstatus: http.StatusServiceUnavailable, Err: errors.New("wallet environment unusable")}
	ErrUpstream       = Error{Code: 50201, HTTPstatus: http.StatusBadGateway, Err: errors.New("wallet or node request failed")}
)

// MarshalJSON renders {"error": "...", "code": N}.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}{
		Err:  e.Err.Error(),
		Code: e.Code,
	})
}

func (e Error) Error() string {
	return e.Err.Error()
}

// Write sends the error as a JSON body with e's status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(e.HTTPstatus)
	_, _ = w.Write(append(msg, '\n'))
}

// WithErr returns a copy of e with err's message appended.
func (e Error) WithErr(err error) Error {
	return Error{Err: fmt.Errorf("%w: %s", e.Err, err.Error()), Code: e.Code, HTTPstatus: e.HTTPstatus}
}

// fromTestament maps a structured error onto the handler error catalogue.
func fromTestament(err error) Error {
	switch {
	case tmerr.Is(err, tmerr.ErrNotConnected):
		return ErrNotConnected.WithErr(err)
	case tmerr.Is(err, tmerr.ErrUserRejected):
		return ErrRejected.WithErr(err)
	case tmerr.Is(err, tmerr.ErrInvalidMetadata),
		tmerr.Is(err, tmerr.ErrInvalidAddress),
		tmerr.Is(err, tmerr.ErrInvalidAmount):
		return ErrInvalidRequest.WithErr(err)
	}

	switch tmerr.ExitCode(err) {
	case tmerr.ExitInput:
		return ErrInvalidRequest.WithErr(err)
	case tmerr.ExitAuth:
		return ErrRejected.WithErr(err)
	case tmerr.ExitNotFound:
		return ErrNotFound.WithErr(err)
	case tmerr.ExitEnvironment:
		return ErrWalletUnusable.WithErr(err)
	default:
		return ErrUpstream.WithErr(err)
	}
}
