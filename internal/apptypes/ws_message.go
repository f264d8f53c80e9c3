// Package apptypes holds the transport-level DTOs shared between the API
// server, the chat server and the WebSocket hub. Keeping them here breaks the
// import cycle between services and websocket.
package apptypes

import "time"

// MessageType defines the type of a WebSocket frame sent to clients.
type MessageType string

const (
	TextMessageType         MessageType = "text"
	ImageMessageType        MessageType = "image"
	FileMessageType         MessageType = "file"
	SystemMessageType       MessageType = "system"
	NotificationMessageType MessageType = "notification"
)

// Message is the structure exchanged over WebSocket with clients, both for
// chat messages and for pushed notifications.
type Message struct {
	ID             string      `json:"id"`
	Type           MessageType `json:"type"`
	Content        string      `json:"content"`
	SenderID       string      `json:"senderId,omitempty"`
	ReceiverID     string      `json:"receiverId"`
	Timestamp      time.Time   `json:"timestamp"`
	FileName       string      `json:"fileName,omitempty"`
	FileSize       int64       `json:"fileSize,omitempty"`
	ConversationID string      `json:"conversationId,omitempty"`
}
