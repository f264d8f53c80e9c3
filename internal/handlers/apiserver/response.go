package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ahmedmiske/tabaro-sub002/internal/lifecycle"
	"github.com/ahmedmiske/tabaro-sub002/internal/services"
)

// ErrorResponse is the generic error body for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONResponse sends data as a JSON response with the given status.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already out; nothing useful left to do.
			return
		}
	}
}

// writeJSONError sends a JSON error body.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError maps service and lifecycle errors onto the API's status
// taxonomy: authorization failures are 403, state conflicts and duplicates
// 409, unusable targets and bad input 400, missing things 404, everything
// else 500 with a generic body.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOfferNotFound),
		errors.Is(err, services.ErrRequestNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrUserNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrNotOwner),
		errors.Is(err, lifecycle.ErrNotDonor),
		errors.Is(err, services.ErrNotParticipant),
		errors.Is(err, services.ErrChatNotAllowed):
		writeJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrNotCancellable),
		errors.Is(err, lifecycle.ErrDuplicateOffer):
		writeJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, lifecycle.ErrOwnRequest),
		errors.Is(err, lifecycle.ErrRequestExpired),
		errors.Is(err, lifecycle.ErrRequestInactive),
		errors.Is(err, services.ErrInvalidRating),
		errors.Is(err, services.ErrInvalidRequestInput),
		errors.Is(err, services.ErrSelfConversation):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
