package api

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/lotkeeper/internal/errors"
	"github.com/lotkeeper/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	_ = json.NewEncoder(w).Encode(response) // nolint:errcheck // client gone
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data) // nolint:errcheck // client gone
	}
}

// respondServiceError maps a categorized error onto the wire. Internal
// causes are not exposed.
func respondServiceError(w http.ResponseWriter, err error) {
	catErr := apperrors.Categorize(err)

	message := catErr.Message
	details := catErr.Details
	if catErr.StatusCode >= http.StatusInternalServerError {
		message = "An internal error occurred"
		details = nil
	}

	respondError(w, catErr.StatusCode, catErr.Code, message, details)
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
