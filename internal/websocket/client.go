package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ahmedmiske/tabaro-sub002/internal/apptypes"
	"github.com/ahmedmiske/tabaro-sub002/internal/config"
)

// Client sits between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound frames.
	send chan []byte

	// Authenticated user ID for this connection.
	UserID uint

	// handleMessage forwards validated client input into the chat pipeline.
	handleMessage func(ctx context.Context, input apptypes.RawMessageInput) error
}

// readPump pumps frames from the websocket connection into handleMessage.
// The sender ID always comes from the authenticated connection, never from
// the frame.
func (c *Client) readPump(wsCfg config.WebSocketConfig) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(int64(wsCfg.MaxMessageSizeBytes))
	c.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
		return nil
	})

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error (user %d): %v", c.UserID, err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			log.Printf("user %d sent non-text frame type %d, ignoring", c.UserID, messageType)
			continue
		}

		var incoming apptypes.Message
		if err := json.Unmarshal(raw, &incoming); err != nil {
			log.Printf("invalid JSON from user %d: %v", c.UserID, err)
			continue
		}

		input := apptypes.RawMessageInput{
			ID:         incoming.ID,
			Type:       string(incoming.Type),
			Content:    []byte(incoming.Content),
			SenderID:   strconv.FormatUint(uint64(c.UserID), 10),
			ReceiverID: incoming.ReceiverID,
			Timestamp:  time.Now(),
			FileName:   incoming.FileName,
			FileSize:   incoming.FileSize,
		}

		if c.handleMessage == nil {
			log.Printf("no message handler configured for user %d, dropping frame", c.UserID)
			continue
		}
		if err := c.handleMessage(context.Background(), input); err != nil {
			log.Printf("failed to process message from user %d: %v", c.UserID, err)
		}
	}
}

// writePump pumps frames from the hub to the websocket connection, batching
// whatever has queued up behind the first frame.
func (c *Client) writePump(wsCfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(wsCfg.PingPeriodSeconds) * time.Second)
	newline := []byte("\n")
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(frame)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWsPerConnection upgrades the HTTP request and starts the read and
// write pumps for the authenticated user.
func ServeWsPerConnection(hub *Hub, rawInputHandler func(ctx context.Context, input apptypes.RawMessageInput) error, userID uint, w http.ResponseWriter, r *http.Request, wsCfg config.WebSocketConfig) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsCfg.MaxMessageSizeBytes,
		WriteBufferSize: wsCfg.MaxMessageSizeBytes,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("websocket upgrade failed:", err)
		return
	}
	client := &Client{
		hub:           hub,
		conn:          conn,
		send:          make(chan []byte, 256),
		UserID:        userID,
		handleMessage: rawInputHandler,
	}
	client.hub.register <- client

	go client.writePump(wsCfg)
	go client.readPump(wsCfg)

	log.Printf("client connected: user %d", userID)
}
