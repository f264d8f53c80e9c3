package storage

import (
	"context"

	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/models"
)

// MessageRepository defines the interface for chat message data operations.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	GetByConversationID(ctx context.Context, conversationID uint, limit int, offset int) ([]*models.Message, error)
}

// gormMessageRepository implements MessageRepository using GORM.
type gormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GORM-based MessageRepository.
func NewGormMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *gormMessageRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).Preload("Sender").First(&message, id).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// GetByConversationID retrieves a conversation's messages, newest first.
func (r *gormMessageRepository) GetByConversationID(ctx context.Context, conversationID uint, limit int, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	query := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sent_at DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Preload("Sender").Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
