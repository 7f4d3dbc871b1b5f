package httpapi

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"libcirc/internal/accounts"
	"libcirc/lending"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type errorPayload struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError writes a plain error message with an explicit status.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorPayload{Error: message, Kind: http.StatusText(status)})
}

// respondDomainError maps an error's kind to an HTTP status. Specific errors
// keep their message; the kind travels alongside so clients can branch
// without string matching.
func respondDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, accounts.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, lending.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lending.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, lending.ErrConflict):
		status = http.StatusConflict
	}

	respondJSON(w, status, errorPayload{Error: err.Error(), Kind: lending.KindName(err)})
}

// decodeJSON decodes a request body, mapping malformed input to the
// validation kind.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Join(lending.ErrValidation, err)
	}

	return nil
}
