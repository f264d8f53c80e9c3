package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ahmedmiske/tabaro-sub002/internal/middleware"
	"github.com/ahmedmiske/tabaro-sub002/internal/services"
)

// ConversationHandler exposes the requester/donor chat over REST: opening a
// conversation and reading history. Live messages go over the chat server's
// WebSocket.
type ConversationHandler struct {
	ConversationService services.ConversationService
	MessageService      services.MessageService
}

// NewConversationHandler creates a new ConversationHandler instance.
func NewConversationHandler(conversationService services.ConversationService, messageService services.MessageService) *ConversationHandler {
	return &ConversationHandler{
		ConversationService: conversationService,
		MessageService:      messageService,
	}
}

// OpenPrivateRequest is the body for opening a private conversation.
type OpenPrivateRequest struct {
	UserID    uint  `json:"userId"`
	RequestID *uint `json:"requestId,omitempty"`
}

// OpenPrivateHandler opens (or returns) the conversation with another user.
// It fails unless an accepted offer links the two users.
func (h *ConversationHandler) OpenPrivateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	var req OpenPrivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if req.UserID == 0 {
		writeJSONError(w, "userId is required", http.StatusBadRequest)
		return
	}

	conversation, created, err := h.ConversationService.GetOrCreatePrivateConversation(r.Context(), userID, req.UserID, req.RequestID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, conversation)
}

// ListHandler lists the caller's conversations.
func (h *ConversationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	conversations, err := h.ConversationService.GetUserConversations(r.Context(), userID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, conversations)
}

// GetHandler returns one conversation the caller participates in.
func (h *ConversationHandler) GetHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	conversationID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		writeJSONError(w, "invalid conversation ID", http.StatusBadRequest)
		return
	}
	conversation, err := h.ConversationService.GetConversationDetails(r.Context(), uint(conversationID), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, conversation)
}

// MessagesHandler returns a page of a conversation's messages.
func (h *ConversationHandler) MessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		return
	}
	vars := mux.Vars(r)
	conversationID, err := strconv.ParseUint(vars["id"], 10, 32)
	if err != nil {
		writeJSONError(w, "invalid conversation ID", http.StatusBadRequest)
		return
	}
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	messages, err := h.MessageService.GetMessagesForConversation(r.Context(), userID, uint(conversationID), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, messages)
}
