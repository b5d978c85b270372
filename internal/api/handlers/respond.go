package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/internal/models"
	"github.com/wonny/worldmodel/internal/risk"
)

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps pipeline sentinels to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInvalidShape),
		errors.Is(err, contracts.ErrSchemaInconsistency),
		errors.Is(err, risk.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrModelNotFound),
		errors.Is(err, contracts.ErrInputMissing):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrDataCoverage),
		errors.Is(err, risk.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondErr writes err with its mapped status; 5xx details stay in the log
func respondErr(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, fallback)
		return
	}
	respondError(w, status, err.Error())
}
