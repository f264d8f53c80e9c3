package chatserver

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/ahmedmiske/tabaro-sub002/internal/apptypes"
	"github.com/ahmedmiske/tabaro-sub002/internal/auth"
	"github.com/ahmedmiske/tabaro-sub002/internal/config"
	"github.com/ahmedmiske/tabaro-sub002/internal/services"
	ws "github.com/ahmedmiske/tabaro-sub002/internal/websocket"
)

// WebSocketHandler upgrades chat connections. Connections must authenticate
// with a token query parameter; anonymous connections are refused since every
// frame needs a server-asserted sender.
type WebSocketHandler struct {
	hub            *ws.Hub
	messageService services.MessageService
	blacklist      auth.TokenBlacklist
	cfg            config.Config
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(hub *ws.Hub, msgService services.MessageService, blacklist auth.TokenBlacklist, cfg config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		messageService: msgService,
		blacklist:      blacklist,
		cfg:            cfg,
	}
}

// ServeWS authenticates the request and hands the connection to the hub.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing authentication token", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ValidateToken(r.Context(), token, h.cfg.Auth.JWTSecretKey, h.blacklist)
	if err != nil {
		log.Printf("websocket connection refused, invalid token: %v", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	rawInputHandler := func(ctx context.Context, input apptypes.RawMessageInput) error {
		if h.messageService == nil {
			return fmt.Errorf("message service not available")
		}
		return h.messageService.SendMessage(ctx, input)
	}

	ws.ServeWsPerConnection(h.hub, rawInputHandler, claims.UserID, w, r, h.cfg.WebSocket)
}
