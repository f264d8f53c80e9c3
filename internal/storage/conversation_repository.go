package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/models"
)

// ConversationRepository defines the interface for conversation data operations.
type ConversationRepository interface {
	CreateConversation(ctx context.Context, conversation *models.Conversation) error
	GetConversationByID(ctx context.Context, id uint) (*models.Conversation, error)
	GetUserConversations(ctx context.Context, userID uint, limit int, offset int) ([]*models.Conversation, error)
	UpdateConversation(ctx context.Context, conversation *models.Conversation) error
	// FindPrivateConversationByUsers finds the conversation both users
	// participate in, or nil when none exists.
	FindPrivateConversationByUsers(ctx context.Context, userID1 uint, userID2 uint) (*models.Conversation, error)

	AddParticipant(ctx context.Context, participant *models.ConversationParticipant) error
	GetParticipant(ctx context.Context, conversationID uint, userID uint) (*models.ConversationParticipant, error)
	UpdateParticipant(ctx context.Context, participant *models.ConversationParticipant) error
	GetConversationParticipants(ctx context.Context, conversationID uint) ([]*models.ConversationParticipant, error)
}

// gormConversationRepository implements ConversationRepository using GORM.
type gormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GORM-based ConversationRepository.
func NewGormConversationRepository(db *gorm.DB) ConversationRepository {
	return &gormConversationRepository{db: db}
}

func (r *gormConversationRepository) CreateConversation(ctx context.Context, conversation *models.Conversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

func (r *gormConversationRepository) GetConversationByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).First(&conversation, id).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// GetUserConversations lists the conversations a user participates in,
// most recently updated first.
func (r *gormConversationRepository) GetUserConversations(ctx context.Context, userID uint, limit int, offset int) ([]*models.Conversation, error) {
	var conversations []*models.Conversation
	query := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.user_id = ?", userID).
		Order("conversations.updated_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&conversations).Error
	return conversations, err
}

func (r *gormConversationRepository) UpdateConversation(ctx context.Context, conversation *models.Conversation) error {
	return r.db.WithContext(ctx).Save(conversation).Error
}

// FindPrivateConversationByUsers finds the two-party conversation between the
// given users. Absence is not an error.
func (r *gormConversationRepository) FindPrivateConversationByUsers(ctx context.Context, userID1 uint, userID2 uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp1 ON cp1.conversation_id = conversations.id AND cp1.user_id = ?", userID1).
		Joins("JOIN conversation_participants cp2 ON cp2.conversation_id = conversations.id AND cp2.user_id = ?", userID2).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conversation, nil
}

// AddParticipant adds a user to a conversation, tolerating repeats.
func (r *gormConversationRepository) AddParticipant(ctx context.Context, participant *models.ConversationParticipant) error {
	var exists int64
	if err := r.db.WithContext(ctx).Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", participant.ConversationID, participant.UserID).
		Count(&exists).Error; err != nil {
		return fmt.Errorf("failed to check existing participant: %w", err)
	}
	if exists > 0 {
		return nil
	}
	if participant.JoinedAt.IsZero() {
		participant.JoinedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *gormConversationRepository) GetParticipant(ctx context.Context, conversationID uint, userID uint) (*models.ConversationParticipant, error) {
	var participant models.ConversationParticipant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

// UpdateParticipant updates participant state such as last_read_at.
func (r *gormConversationRepository) UpdateParticipant(ctx context.Context, participant *models.ConversationParticipant) error {
	return r.db.WithContext(ctx).Save(participant).Error
}

func (r *gormConversationRepository) GetConversationParticipants(ctx context.Context, conversationID uint) ([]*models.ConversationParticipant, error) {
	var participants []*models.ConversationParticipant
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Find(&participants).Error
	return participants, err
}
