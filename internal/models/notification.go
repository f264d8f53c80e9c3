package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType enumerates the events that produce a notification.
type NotificationType string

const (
	NotificationOfferReceived  NotificationType = "offer_received"
	NotificationOfferAccepted  NotificationType = "offer_accepted"
	NotificationOfferRejected  NotificationType = "offer_rejected"
	NotificationOfferFulfilled NotificationType = "offer_fulfilled"
	NotificationDonorRated     NotificationType = "donor_rated"
	NotificationChatMessage    NotificationType = "chat_message"
)

// Notification is a stored message for a user, created as a side effect of
// offer creation and status transitions. Delivery to connected clients goes
// through Kafka and the chat server's WebSocket hub; persistence here is what
// offline users read back over REST.
type Notification struct {
	BaseModel
	RecipientID   uint             `gorm:"not null;index" json:"recipientId"`
	Type          NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Message       string           `gorm:"type:text;not null" json:"message"`
	ReferenceKind string           `gorm:"type:varchar(20)" json:"referenceKind,omitempty"` // "offer" or "request"
	ReferenceID   uint             `gorm:"index" json:"referenceId,omitempty"`
	Data          datatypes.JSON   `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead        bool             `gorm:"default:false;index" json:"isRead"`
	ReadAt        *time.Time       `json:"readAt,omitempty"`
}

// TableName specifies the table name for the Notification model.
func (Notification) TableName() string {
	return "notifications"
}
