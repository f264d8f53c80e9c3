package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ahmedmiske/tabaro-sub002/internal/middleware"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/services"
)

// OfferHandler serves one offer family (blood or general donations). Like
// RequestHandler it is instantiated per kind.
type OfferHandler struct {
	OfferService services.OfferService
	Kind         models.DonationKind
}

// NewOfferHandler creates an OfferHandler for the given kind.
func NewOfferHandler(offerService services.OfferService, kind models.DonationKind) *OfferHandler {
	return &OfferHandler{OfferService: offerService, Kind: kind}
}

// CreateHandler creates a pending offer on a request of this kind.
func (h *OfferHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var input services.CreateOfferInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if input.RequestID == 0 {
		writeJSONError(w, "requestId is required", http.StatusBadRequest)
		return
	}
	if input.Method == "" {
		writeJSONError(w, "method is required", http.StatusBadRequest)
		return
	}
	input.ExpectedKind = h.Kind

	offer, err := h.OfferService.Create(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, offer)
}

// TransitionHandler applies one lifecycle step named in the path: accept,
// reject, fulfill or rate. Rate additionally reads the score from the body.
func (h *OfferHandler) TransitionHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	offerID64, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		writeJSONError(w, "invalid offer ID", http.StatusBadRequest)
		return
	}
	offerID := uint(offerID64)

	var offer *models.DonationOffer
	switch vars["action"] {
	case "accept":
		offer, err = h.OfferService.Accept(r.Context(), userID, offerID)
	case "reject":
		offer, err = h.OfferService.Reject(r.Context(), userID, offerID)
	case "fulfill":
		offer, err = h.OfferService.Fulfill(r.Context(), userID, offerID)
	case "rate":
		var input services.RateOfferInput
		if decodeErr := json.NewDecoder(r.Body).Decode(&input); decodeErr != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()
		offer, err = h.OfferService.Rate(r.Context(), userID, offerID, input)
	default:
		writeJSONError(w, "unknown transition", http.StatusNotFound)
		return
	}

	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, offer)
}

// CancelHandler deletes the caller's own pending offer.
func (h *OfferHandler) CancelHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	offerID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		writeJSONError(w, "invalid offer ID", http.StatusBadRequest)
		return
	}
	if err := h.OfferService.Cancel(r.Context(), userID, uint(offerID)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusNoContent, nil)
}

// ListForRequestHandler lists offers on one of the caller's requests.
func (h *OfferHandler) ListForRequestHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	requestID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		writeJSONError(w, "invalid request ID", http.StatusBadRequest)
		return
	}
	offers, err := h.OfferService.ListForRequest(r.Context(), userID, uint(requestID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, offers)
}

// MineHandler lists offers received on the caller's requests of this kind.
func (h *OfferHandler) MineHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	offers, err := h.OfferService.ListReceived(r.Context(), userID, h.Kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, offers)
}

// SentHandler lists offers the caller has made, of this kind.
func (h *OfferHandler) SentHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	offers, err := h.OfferService.ListSent(r.Context(), userID, h.Kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, offers)
}

// GetHandler returns a single offer to its donor or recipient.
func (h *OfferHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	offerID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		writeJSONError(w, "invalid offer ID", http.StatusBadRequest)
		return
	}
	offer, err := h.OfferService.GetByID(r.Context(), userID, uint(offerID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, offer)
}
