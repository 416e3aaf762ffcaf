// Package apiresp writes the JSON envelope every API endpoint returns:
//
//	{ "success": true,  "data": ... }
//	{ "success": false, "message": "..." }
package apiresp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dalemusser/shgledger/internal/app/system/apperr"
	"go.uber.org/zap"
)

// MaxBody caps request bodies.
const MaxBody = 1 << 20

// Envelope is the response body.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK writes 200 with data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Status maps an error to its HTTP status.
func Status(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Error writes a failure envelope. Internal errors are logged and their
// detail is not sent to the client.
func Error(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	status := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		if log != nil {
			log.Error(op+" failed", zap.Error(err))
		}
		msg = "internal server error"
	}
	JSON(w, status, Envelope{Success: false, Message: msg})
}

// Decode reads a JSON body into dst. Unknown fields are rejected so typos in
// amount names do not silently become zero.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Invalid("request body is empty")
		}
		return apperr.Invalid("invalid JSON body: " + strings.TrimPrefix(err.Error(), "json: "))
	}
	return nil
}
