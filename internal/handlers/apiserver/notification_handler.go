package apiserver

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ahmedmiske/tabaro-sub002/internal/middleware"
	"github.com/ahmedmiske/tabaro-sub002/internal/services"
)

// NotificationHandler exposes the caller's stored notifications.
type NotificationHandler struct {
	NotificationService services.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler instance.
func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{NotificationService: notificationService}
}

// ListHandler lists the caller's notifications, newest first.
func (h *NotificationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	query := r.URL.Query()
	unreadOnly := query.Get("unread") == "true"
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	notifications, err := h.NotificationService.ListForUser(r.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, notifications)
}

// UnreadCountHandler returns the caller's unread notification count.
func (h *NotificationHandler) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	count, err := h.NotificationService.CountUnread(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]int64{"unread": count})
}

// MarkReadHandler marks one notification as read.
func (h *NotificationHandler) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	notificationID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		writeJSONError(w, "invalid notification ID", http.StatusBadRequest)
		return
	}
	if err := h.NotificationService.MarkRead(r.Context(), userID, uint(notificationID)); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "marked as read"})
}

// MarkAllReadHandler marks all of the caller's notifications as read.
func (h *NotificationHandler) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	if err := h.NotificationService.MarkAllRead(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "all marked as read"})
}
