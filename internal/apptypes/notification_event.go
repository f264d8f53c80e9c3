package apptypes

import "time"

// NotificationEvent is the payload published to the notifications topic when
// an offer is created or transitions. The chat server consumes it and pushes
// it to the recipient if they are connected; the stored Notification row is
// what offline recipients read back over REST.
type NotificationEvent struct {
	NotificationID uint      `json:"notificationId"`
	RecipientID    uint      `json:"recipientId"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	ReferenceKind  string    `json:"referenceKind,omitempty"`
	ReferenceID    uint      `json:"referenceId,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
