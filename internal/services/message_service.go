package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/apptypes"
	"github.com/ahmedmiske/tabaro-sub002/internal/config"
	appKafka "github.com/ahmedmiske/tabaro-sub002/internal/kafka"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

// MessageService handles the chat message pipeline: client input goes to
// Kafka, the consumer callback persists it and republishes the processed
// message for WebSocket delivery.
type MessageService interface {
	// SendMessage validates a raw client message and publishes it to the
	// messages topic. The sender and receiver must already be linked by an
	// existing conversation or an accepted offer.
	SendMessage(ctx context.Context, input apptypes.RawMessageInput) error

	// ProcessKafkaMessage is the consumer callback for the messages topic.
	// It persists the message, updates the conversation and publishes the
	// processed message to the outgoing topic.
	ProcessKafkaMessage(ctx context.Context, kafkaMsg *confluentKafka.Message) error

	GetMessagesForConversation(ctx context.Context, userID, conversationID uint, limit, offset int) ([]*models.Message, error)
	GetMessageByID(ctx context.Context, messageID uint) (*models.Message, error)
}

type messageService struct {
	msgRepo   storage.MessageRepository
	convoRepo storage.ConversationRepository
	offerRepo storage.OfferRepository
	producer  appKafka.MessageProducer
	notifier  NotificationService
	cfg       config.Config
}

// NewMessageService creates a new MessageService instance.
func NewMessageService(msgRepo storage.MessageRepository, convoRepo storage.ConversationRepository, offerRepo storage.OfferRepository, producer appKafka.MessageProducer, notifier NotificationService, cfg config.Config) MessageService {
	return &messageService{
		msgRepo:   msgRepo,
		convoRepo: convoRepo,
		offerRepo: offerRepo,
		producer:  producer,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// SendMessage checks the chat gate and forwards the raw input to Kafka.
func (s *messageService) SendMessage(ctx context.Context, input apptypes.RawMessageInput) error {
	if input.SenderID == "" || input.ReceiverID == "" {
		return fmt.Errorf("sender and receiver IDs are required")
	}
	senderID, err := storage.StrToUint(input.SenderID)
	if err != nil {
		return fmt.Errorf("invalid sender ID %q: %w", input.SenderID, err)
	}
	receiverID, err := storage.StrToUint(input.ReceiverID)
	if err != nil {
		return fmt.Errorf("invalid receiver ID %q: %w", input.ReceiverID, err)
	}
	if senderID == receiverID {
		return ErrSelfConversation
	}

	conversation, err := s.convoRepo.FindPrivateConversationByUsers(ctx, senderID, receiverID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up conversation: %w", err)
	}
	if conversation == nil {
		allowed, err := s.offerRepo.HasDisclosedOfferBetween(ctx, senderID, receiverID)
		if err != nil {
			return fmt.Errorf("failed to check offer link: %w", err)
		}
		if !allowed {
			return ErrChatNotAllowed
		}
	}

	if input.Timestamp.IsZero() {
		input.Timestamp = time.Now()
	}
	msgBytes, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal message input: %w", err)
	}
	if err := s.producer.SendMessage(ctx, s.cfg.Kafka.MessagesTopic, []byte(input.SenderID), msgBytes); err != nil {
		return fmt.Errorf("failed to publish message to Kafka: %w", err)
	}
	return nil
}

// ProcessKafkaMessage consumes one raw message: find or create the
// conversation, persist, then hand the processed message to the outgoing
// topic for delivery.
func (s *messageService) ProcessKafkaMessage(ctx context.Context, kafkaMsg *confluentKafka.Message) error {
	var input apptypes.RawMessageInput
	if err := json.Unmarshal(kafkaMsg.Value, &input); err != nil {
		// A malformed message is dropped, not retried forever.
		log.Printf("dropping malformed chat message: %v, raw: %s", err, string(kafkaMsg.Value))
		return nil
	}

	senderID, err := storage.StrToUint(input.SenderID)
	if err != nil {
		return fmt.Errorf("invalid sender ID %q: %w", input.SenderID, err)
	}
	receiverID, err := storage.StrToUint(input.ReceiverID)
	if err != nil {
		return fmt.Errorf("invalid receiver ID %q: %w", input.ReceiverID, err)
	}

	conversation, err := s.convoRepo.FindPrivateConversationByUsers(ctx, senderID, receiverID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up conversation: %w", err)
	}
	if conversation == nil {
		conversation = &models.Conversation{}
		if err := s.convoRepo.CreateConversation(ctx, conversation); err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		now := time.Now()
		for _, participantID := range []uint{senderID, receiverID} {
			p := &models.ConversationParticipant{
				ConversationID: conversation.ID,
				UserID:         participantID,
				JoinedAt:       now,
			}
			if err := s.convoRepo.AddParticipant(ctx, p); err != nil {
				return fmt.Errorf("failed to add participant %d: %w", participantID, err)
			}
		}
	}

	dbMessage := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Type:           models.MessageTypeDB(input.Type),
		Content:        string(input.Content),
		SentAt:         input.Timestamp,
	}
	if input.Type == string(models.FileMessageTypeDB) || input.Type == string(models.ImageMessageTypeDB) {
		meta := models.FileMetadata{FileName: input.FileName, FileSize: input.FileSize}
		metaBytes, _ := json.Marshal(meta)
		dbMessage.MetadataRaw = metaBytes
	}
	if err := s.msgRepo.Create(ctx, dbMessage); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	conversation.LastMessageID = &dbMessage.ID
	if err := s.convoRepo.UpdateConversation(ctx, conversation); err != nil {
		return fmt.Errorf("failed to update conversation %d: %w", conversation.ID, err)
	}

	outgoing := &apptypes.Message{
		ID:             dbMessage.IDString(),
		Type:           apptypes.MessageType(dbMessage.Type),
		Content:        dbMessage.Content,
		SenderID:       strconv.FormatUint(uint64(senderID), 10),
		ReceiverID:     input.ReceiverID,
		Timestamp:      dbMessage.SentAt,
		FileName:       input.FileName,
		FileSize:       input.FileSize,
		ConversationID: strconv.FormatUint(uint64(conversation.ID), 10),
	}
	outgoingBytes, err := json.Marshal(outgoing)
	if err != nil {
		log.Printf("failed to marshal outgoing message %d: %v", dbMessage.ID, err)
		return nil
	}
	if err := s.producer.SendMessage(ctx, s.cfg.Kafka.OutgoingTopic, []byte(input.ReceiverID), outgoingBytes); err != nil {
		// Delivery failures do not undo persistence; the receiver still
		// sees the message when fetching history.
		log.Printf("failed to publish outgoing message %d: %v", dbMessage.ID, err)
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, receiverID, models.NotificationChatMessage,
			"New chat message", "conversation", conversation.ID, map[string]interface{}{
				"conversationId": conversation.ID,
				"senderId":       senderID,
			}); err != nil {
			log.Printf("failed to notify user %d about message %d: %v", receiverID, dbMessage.ID, err)
		}
	}
	return nil
}

// GetMessagesForConversation returns a page of messages, newest first. Only
// participants may read a conversation's history.
func (s *messageService) GetMessagesForConversation(ctx context.Context, userID, conversationID uint, limit, offset int) ([]*models.Message, error) {
	participant, err := s.convoRepo.GetParticipant(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if participant == nil {
		return nil, ErrNotParticipant
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.msgRepo.GetByConversationID(ctx, conversationID, limit, offset)
}

func (s *messageService) GetMessageByID(ctx context.Context, messageID uint) (*models.Message, error) {
	return s.msgRepo.GetByID(ctx, messageID)
}
