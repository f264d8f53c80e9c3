package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ahmedmiske/tabaro-sub002/internal/middleware"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/services"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

// RequestHandler serves one donation request family. It is instantiated
// twice: once for blood requests, once for general ones; the handler pins the
// kind so the two route families cannot cross.
type RequestHandler struct {
	RequestService services.RequestService
	Kind           models.DonationKind
}

// NewRequestHandler creates a RequestHandler for the given kind.
func NewRequestHandler(requestService services.RequestService, kind models.DonationKind) *RequestHandler {
	return &RequestHandler{RequestService: requestService, Kind: kind}
}

func requestIDFromPath(r *http.Request) (uint, bool) {
	vars := mux.Vars(r)
	id, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// CreateHandler creates a new request owned by the caller.
func (h *RequestHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var input services.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	input.Kind = h.Kind

	request, err := h.RequestService.Create(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, request)
}

// ListHandler lists requests of this kind, urgent first. It works with or
// without authentication; contact details never show in lists for other
// people's requests.
func (h *RequestHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := middleware.GetUserIDFromContext(r.Context())

	query := r.URL.Query()
	filter := storage.RequestFilter{
		Kind:       h.Kind,
		BloodType:  query.Get("bloodType"),
		Category:   query.Get("category"),
		Place:      query.Get("place"),
		UrgentOnly: query.Get("urgent") == "true",
		ActiveOnly: query.Get("includeInactive") != "true",
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = offset
	}

	requests, err := h.RequestService.List(r.Context(), viewerID, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// MyRequestsHandler lists the caller's own requests of this kind.
func (h *RequestHandler) MyRequestsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	requests, err := h.RequestService.ListByOwner(r.Context(), userID, h.Kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// GetHandler returns one request, with contact methods only for the owner or
// a donor whose offer was accepted.
func (h *RequestHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	requestID, ok := requestIDFromPath(r)
	if !ok {
		writeJSONError(w, "invalid request ID", http.StatusBadRequest)
		return
	}
	viewerID, _ := middleware.GetUserIDFromContext(r.Context())

	request, err := h.RequestService.Get(r.Context(), viewerID, requestID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if request.Kind != h.Kind {
		writeJSONError(w, services.ErrRequestNotFound.Error(), http.StatusNotFound)
		return
	}
	writeJSONResponse(w, http.StatusOK, request)
}

// UpdateHandler replaces the editable fields of the caller's request.
func (h *RequestHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	requestID, ok := requestIDFromPath(r)
	if !ok {
		writeJSONError(w, "invalid request ID", http.StatusBadRequest)
		return
	}
	var input services.UpdateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	request, err := h.RequestService.Update(r.Context(), userID, requestID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, request)
}

// SetStatusRequest is the body of the status toggle endpoint.
type SetStatusRequest struct {
	Active bool `json:"active"`
}

// SetStatusHandler toggles a request's visibility, for the owner or an
// admin.
func (h *RequestHandler) SetStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	requestID, ok := requestIDFromPath(r)
	if !ok {
		writeJSONError(w, "invalid request ID", http.StatusBadRequest)
		return
	}
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	role, _ := middleware.GetRoleFromContext(r.Context())
	if err := h.RequestService.SetActive(r.Context(), userID, role == string(models.RoleAdmin), requestID, req.Active); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// DeleteHandler removes the caller's request.
func (h *RequestHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	requestID, ok := requestIDFromPath(r)
	if !ok {
		writeJSONError(w, "invalid request ID", http.StatusBadRequest)
		return
	}
	role, _ := middleware.GetRoleFromContext(r.Context())
	if err := h.RequestService.Delete(r.Context(), userID, role == string(models.RoleAdmin), requestID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusNoContent, nil)
}
