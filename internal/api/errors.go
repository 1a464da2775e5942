package api

import (
	"errors"
	"net/http"

	"github.com/signalsfoundry/drone-geolocator/core"
)

// writeDomainError maps engine errors onto HTTP statuses. Every domain error
// is a structured JSON envelope; nothing here panics the caller.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrTargetNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, core.ErrMissingTelemetry):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, core.ErrInsufficientObservations),
		errors.Is(err, core.ErrPoleSingularity):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func calcOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrInsufficientObservations):
		return "insufficient"
	case errors.Is(err, core.ErrTargetNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeErrorMsg(w, code, err.Error())
}

func writeErrorMsg(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
