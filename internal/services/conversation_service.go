package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

var (
	ErrChatNotAllowed   = errors.New("chat requires an accepted offer between the two users")
	ErrNotParticipant   = errors.New("user is not a participant of this conversation")
	ErrSelfConversation = errors.New("cannot open a conversation with yourself")
)

// ConversationService manages private conversations between requesters and
// donors. A conversation can only be opened once the two users are linked by
// an accepted (or later) offer, in either direction.
type ConversationService interface {
	// GetOrCreatePrivateConversation returns the conversation between the
	// two users, creating it if the offer gate allows. The bool reports
	// whether the conversation was newly created.
	GetOrCreatePrivateConversation(ctx context.Context, userID, otherUserID uint, requestID *uint) (*models.Conversation, bool, error)
	GetUserConversations(ctx context.Context, userID uint, limit, offset int) ([]*models.Conversation, error)
	GetConversationDetails(ctx context.Context, conversationID, userID uint) (*models.Conversation, error)
	GetConversationParticipants(ctx context.Context, conversationID, userID uint) ([]*models.ConversationParticipant, error)
}

type conversationService struct {
	convoRepo storage.ConversationRepository
	offerRepo storage.OfferRepository
	userRepo  storage.UserRepository
}

// NewConversationService creates a new ConversationService instance.
func NewConversationService(convoRepo storage.ConversationRepository, offerRepo storage.OfferRepository, userRepo storage.UserRepository) ConversationService {
	return &conversationService{convoRepo: convoRepo, offerRepo: offerRepo, userRepo: userRepo}
}

func (s *conversationService) GetOrCreatePrivateConversation(ctx context.Context, userID, otherUserID uint, requestID *uint) (*models.Conversation, bool, error) {
	if userID == otherUserID {
		return nil, false, ErrSelfConversation
	}

	conversation, err := s.convoRepo.FindPrivateConversationByUsers(ctx, userID, otherUserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up conversation: %w", err)
	}
	if conversation != nil {
		return conversation, false, nil
	}

	allowed, err := s.offerRepo.HasDisclosedOfferBetween(ctx, userID, otherUserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check offer link: %w", err)
	}
	if !allowed {
		return nil, false, ErrChatNotAllowed
	}

	newConversation := &models.Conversation{RequestID: requestID}
	if err := s.convoRepo.CreateConversation(ctx, newConversation); err != nil {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}

	now := time.Now()
	for _, participantID := range []uint{userID, otherUserID} {
		p := &models.ConversationParticipant{
			ConversationID: newConversation.ID,
			UserID:         participantID,
			JoinedAt:       now,
		}
		if err := s.convoRepo.AddParticipant(ctx, p); err != nil {
			return nil, false, fmt.Errorf("failed to add participant %d to conversation %d: %w", participantID, newConversation.ID, err)
		}
	}
	return newConversation, true, nil
}

func (s *conversationService) GetUserConversations(ctx context.Context, userID uint, limit, offset int) ([]*models.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.convoRepo.GetUserConversations(ctx, userID, limit, offset)
}

// GetConversationDetails returns a conversation the caller participates in.
func (s *conversationService) GetConversationDetails(ctx context.Context, conversationID, userID uint) (*models.Conversation, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	conversation, err := s.convoRepo.GetConversationByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %d: %w", conversationID, err)
	}
	return conversation, nil
}

func (s *conversationService) GetConversationParticipants(ctx context.Context, conversationID, userID uint) ([]*models.ConversationParticipant, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.convoRepo.GetConversationParticipants(ctx, conversationID)
}

func (s *conversationService) requireParticipant(ctx context.Context, conversationID, userID uint) error {
	participant, err := s.convoRepo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotParticipant
		}
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if participant == nil {
		return ErrNotParticipant
	}
	return nil
}
