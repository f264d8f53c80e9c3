package apptypes

import "time"

// RawMessageInput is the chat message envelope a client sends over the
// WebSocket connection. The API and chat servers forward it through Kafka
// before it is persisted and delivered.
type RawMessageInput struct {
	ID         string    `json:"id,omitempty"` // optional client-generated id
	Type       string    `json:"type"`         // text, image, file
	Content    []byte    `json:"content"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Timestamp  time.Time `json:"timestamp"`
	FileName   string    `json:"fileName,omitempty"`
	FileSize   int64     `json:"fileSize,omitempty"`
}
