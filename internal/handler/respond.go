package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/favourolaoye/boride-v3-api/internal/service"
	"github.com/favourolaoye/boride-v3-api/internal/util"
	"go.uber.org/zap"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// successResponse creates a successful response
func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// errorResponse creates an error response
func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", zap.Error(err))
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, err error, message string) {
	util.Warn("HTTP error response",
		zap.Error(err),
		zap.Int("status_code", statusCode),
		zap.String("message", message),
	)
	// Domain errors are part of the client contract; server-side failures
	// are logged above and the client only learns that the server failed.
	if statusCode >= http.StatusInternalServerError {
		respondWithJSON(w, statusCode, Response{
			Success: false,
			Error:   "server error",
			Message: message,
		})
		return
	}
	respondWithJSON(w, statusCode, errorResponse(err, message))
}

// getStatusCode determines the appropriate HTTP status code for an error.
// Registration conflicts map to 400, matching what API clients already
// handle.
func getStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotVerified):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEmailRegistered),
		errors.Is(err, service.ErrMatricRegistered),
		errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, service.ErrExpiredOTP),
		errors.Is(err, service.ErrAlreadyVerified):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
