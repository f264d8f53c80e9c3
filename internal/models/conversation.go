package models

import "time"

// Conversation is a private chat between a request owner and a donor. It can
// only be opened once contact disclosure holds between the two participants
// (the donor has an accepted offer on one of the owner's requests).
type Conversation struct {
	BaseModel

	// RequestID optionally links the conversation to the donation request
	// that brought the two users together.
	RequestID *uint `gorm:"index" json:"requestId,omitempty"`

	// LastMessageID allows fetching the newest message without scanning.
	LastMessageID *uint `gorm:"index" json:"lastMessageId,omitempty"`

	Users        []*User                   `gorm:"many2many:conversation_participants;" json:"users,omitempty"`
	Messages     []Message                 `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`
}

// TableName specifies the table name for the Conversation model.
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant links a user to a conversation. Every conversation
// on this platform has exactly two participants.
type ConversationParticipant struct {
	BaseModel
	ConversationID uint       `gorm:"primaryKey;autoIncrement:false" json:"conversationId"`
	UserID         uint       `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	JoinedAt       time.Time  `json:"joinedAt"`
	LastReadAt     *time.Time `json:"lastReadAt,omitempty"`

	User         User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Conversation Conversation `gorm:"foreignKey:ConversationID" json:"conversation,omitempty"`
}

// TableName specifies the table name for the ConversationParticipant model.
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}
