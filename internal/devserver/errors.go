package devserver

import (
	"encoding/json"
	"net/http"

	"chaosclash/internal/domain"
)

// statusFor maps a rejection kind to an HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidMove, domain.KindUnknownUpgrade:
		return http.StatusBadRequest
	case domain.KindInsufficientFunds:
		return http.StatusPaymentRequired
	case domain.KindPhaseViolation, domain.KindUpgradeNotOffered:
		return http.StatusConflict
	case domain.KindMatchAlreadyOver:
		return http.StatusGone
	case domain.KindUnknownPlayer, domain.KindUnknownMatch:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Code  int    `json:"code"`
}

// writeDomainError writes a JSON error response for a service error.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	writeJSON(w, statusFor(kind), errorResponse{Error: err.Error(), Kind: string(kind), Code: kind.Code()})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{Error: message, Code: domain.KindInternal.Code()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
