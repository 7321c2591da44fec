// Package respond writes the JSON bodies shared by every handler and maps
// the error taxonomy onto HTTP statuses.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/ayush/devconnector/backend/internal/validate"
)

// ErrorList is the body of validation and credential failures.
type ErrorList struct {
	Errors []validate.FieldError `json:"errors"`
}

// MessageBody is the body of auth, not-found and confirmation responses.
type MessageBody struct {
	Msg string `json:"msg"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Decode reads a JSON request body into v. An empty body leaves v zeroed so
// that validation reports the missing fields.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validation writes a 400 with one entry per failed field.
func Validation(w http.ResponseWriter, errs []validate.FieldError) {
	JSON(w, http.StatusBadRequest, ErrorList{Errors: errs})
}

// Errors writes {"errors":[{"msg":...}]} with the given status.
func Errors(w http.ResponseWriter, status int, msgs ...string) {
	list := make([]validate.FieldError, 0, len(msgs))
	for _, m := range msgs {
		list = append(list, validate.FieldError{Msg: m})
	}
	JSON(w, status, ErrorList{Errors: list})
}

// Message writes {"msg":...} with the given status.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, MessageBody{Msg: msg})
}

// ServerError logs err against the request and answers with a generic 500.
// Nothing about err reaches the client.
func ServerError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	http.Error(w, "Server Error", http.StatusInternalServerError)
}

// BadBody answers a request whose body is not valid JSON.
func BadBody(w http.ResponseWriter) {
	Errors(w, http.StatusBadRequest, "Invalid request body")
}
