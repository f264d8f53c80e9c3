package models

import (
	"encoding/json"
	"time"
)

// MessageTypeDB defines the message types stored in the database.
// Named to avoid clashing with the WebSocket-level message type.
type MessageTypeDB string

const (
	TextMessageTypeDB   MessageTypeDB = "text"
	ImageMessageTypeDB  MessageTypeDB = "image"
	FileMessageTypeDB   MessageTypeDB = "file"
	SystemMessageTypeDB MessageTypeDB = "system" // system notices, e.g. offer accepted
)

// Message represents a stored chat message between a requester and a donor.
type Message struct {
	BaseModel
	ConversationID uint          `gorm:"index;not null" json:"conversationId"`
	SenderID       uint          `gorm:"index;not null" json:"senderId"`
	Type           MessageTypeDB `gorm:"type:varchar(20);not null" json:"type"`
	Content        string        `gorm:"type:text" json:"content"` // text, or a file/image URL

	// MetadataRaw carries extra information such as file name and size.
	MetadataRaw json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`

	Status      string     `gorm:"type:varchar(20);default:'sent'" json:"status,omitempty"` // sent, delivered, read
	SentAt      time.Time  `gorm:"not null" json:"sentAt"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty"`
	ReadAt      *time.Time `json:"readAt,omitempty"`

	Sender       User         `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Conversation Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
}

// TableName specifies the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}

// FileMetadata stores metadata for file messages, marshalled into
// Message.MetadataRaw.
type FileMetadata struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	MimeType string `json:"mimeType"`
	URL      string `json:"url"`
}
