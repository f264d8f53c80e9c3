package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/apptypes"
	"github.com/ahmedmiske/tabaro-sub002/internal/config"
	appKafka "github.com/ahmedmiske/tabaro-sub002/internal/kafka"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService persists notifications and pushes them to connected
// clients through Kafka. Persistence is the source of truth: a failed push is
// logged and dropped, the recipient still sees the notification over REST.
type NotificationService interface {
	Notify(ctx context.Context, recipientID uint, nType models.NotificationType, message, referenceKind string, referenceID uint, data map[string]interface{}) error
	ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uint) error
	MarkAllRead(ctx context.Context, userID uint) error
}

type notificationService struct {
	notificationRepo storage.NotificationRepository
	producer         appKafka.MessageProducer
	cfg              config.Config
}

// NewNotificationService creates a new NotificationService instance.
func NewNotificationService(notificationRepo storage.NotificationRepository, producer appKafka.MessageProducer, cfg config.Config) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		producer:         producer,
		cfg:              cfg,
	}
}

// Notify stores the notification and publishes it to the notifications topic
// keyed by recipient, so the chat server can route it to that user's
// connection.
func (s *notificationService) Notify(ctx context.Context, recipientID uint, nType models.NotificationType, message, referenceKind string, referenceID uint, data map[string]interface{}) error {
	notification := &models.Notification{
		RecipientID:   recipientID,
		Type:          nType,
		Message:       message,
		ReferenceKind: referenceKind,
		ReferenceID:   referenceID,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal notification data: %w", err)
		}
		notification.Data = datatypes.JSON(raw)
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	event := apptypes.NotificationEvent{
		NotificationID: notification.ID,
		RecipientID:    recipientID,
		Type:           string(nType),
		Message:        message,
		ReferenceKind:  referenceKind,
		ReferenceID:    referenceID,
		Timestamp:      time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal notification event %d: %v", notification.ID, err)
		return nil
	}
	key := []byte(strconv.FormatUint(uint64(recipientID), 10))
	if err := s.producer.SendMessage(ctx, s.cfg.Kafka.NotificationsTopic, key, payload); err != nil {
		log.Printf("failed to publish notification %d to Kafka: %v", notification.ID, err)
	}
	return nil
}

func (s *notificationService) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notificationRepo.ListByRecipient(ctx, userID, unreadOnly, limit, offset)
}

func (s *notificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.notificationRepo.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications as read. Marking someone
// else's notification reports not-found rather than forbidden.
func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID uint) error {
	updated, err := s.notificationRepo.MarkRead(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if !updated {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}
