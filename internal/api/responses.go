package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	app_errors "search-chat/backend/internal/errors"
)

// This file contains shared DTOs (Data Transfer Objects) for API responses
// and helper functions for sending consistent HTTP responses.

// Client-facing error messages. They never carry internal detail.
const (
	msgTimeout        = "Request timeout"
	msgInvalidBody    = "Invalid request body"
	msgInvalidRequest = "Invalid request"
	msgConfiguration  = "Server configuration error"
	msgEmptyUpstream  = "No response from AI service"
	msgUnavailable    = "Chatroom not available"
	msgRateLimited    = "Too many requests"
	msgNotFound       = "The requested resource was not found."
	msgInternal       = "Internal server error"
)

// ErrorResponse defines the standard JSON structure for error messages.
type ErrorResponse struct {
	Error string `json:"error" example:"Invalid request body"`
}

// StatusResponse is the body of the health check.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// classifyError maps any failure to a status code and a client-safe message.
// The boolean reports whether the error was recognised; unrecognised errors
// are the caller's cue to log the full error.
func classifyError(err error) (int, string, bool) {
	var (
		netErr    net.Error
		syntaxErr *json.SyntaxError
		maxErr    *http.MaxBytesError
		vErr      *app_errors.ValidationError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr) && netErr.Timeout():
		return http.StatusGatewayTimeout, msgTimeout, true
	case errors.Is(err, app_errors.ErrInvalidBody),
		errors.As(err, &syntaxErr),
		errors.As(err, &maxErr):
		return http.StatusBadRequest, msgInvalidBody, true
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Message, true
	case errors.Is(err, app_errors.ErrValidation):
		return http.StatusBadRequest, msgInvalidRequest, true
	case errors.Is(err, app_errors.ErrConfiguration):
		return http.StatusInternalServerError, msgConfiguration, true
	case errors.Is(err, app_errors.ErrEmptyResponse):
		return http.StatusBadGateway, msgEmptyUpstream, true
	case errors.Is(err, app_errors.ErrUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable, true
	case errors.Is(err, app_errors.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited, true
	case errors.Is(err, app_errors.ErrNotFound):
		return http.StatusNotFound, msgNotFound, true
	case errors.Is(err, app_errors.ErrInternal):
		return http.StatusInternalServerError, msgInternal, true
	default:
		return http.StatusInternalServerError, msgInternal, false
	}
}

// respondWithError is the centralized error handling function for the API layer.
// Recognised errors are logged at warn level with their message; anything else
// is logged in full and reported as a bare 500.
func respondWithError(w http.ResponseWriter, err error) {
	statusCode, message, known := classifyError(err)
	if known {
		slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err.Error())
	} else {
		slog.Error("Unhandled API error", "status_code", statusCode, "error", fmt.Sprintf("%+v", err))
	}
	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON is a low-level helper for marshaling a payload to JSON
// and writing it to the http.ResponseWriter with a given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		// This indicates a server-side programming error (e.g., trying to marshal a channel).
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// sendStreamError sends a structured error message over a Server-Sent Events (SSE) stream.
// It is only used once the stream has started and a status code can no longer be sent.
func sendStreamError(w http.ResponseWriter, message string) {
	slog.Warn("Sending stream error to client", "message", message)
	jsonData, err := json.Marshal(ErrorResponse{Error: message})
	if err != nil {
		slog.Error("Failed to marshal stream error payload", "error", err)
		return
	}

	if _, err := fmt.Fprintf(w, "event: error\ndata: %s\n\n", string(jsonData)); err != nil {
		// This is often an expected I/O error if the client closes the connection.
		slog.Warn("Failed to write stream error, client might have disconnected", "error", err)
		return
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
