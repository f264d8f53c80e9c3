package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ahmedmiske/tabaro-sub002/internal/apptypes"
	"github.com/ahmedmiske/tabaro-sub002/internal/config"
	"github.com/ahmedmiske/tabaro-sub002/internal/handlers/chatserver"
	appKafka "github.com/ahmedmiske/tabaro-sub002/internal/kafka"
	appredis "github.com/ahmedmiske/tabaro-sub002/internal/redis"
	"github.com/ahmedmiske/tabaro-sub002/internal/services"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
	"github.com/ahmedmiske/tabaro-sub002/internal/websocket"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	blacklist := appredis.NewRedisTokenBlacklist(redisClient)

	producer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("failed to create Kafka producer: %v", err)
	}
	defer producer.Close()

	msgRepo := storage.NewGormMessageRepository(db)
	convoRepo := storage.NewGormConversationRepository(db)
	offerRepo := storage.NewGormOfferRepository(db)
	notificationRepo := storage.NewGormNotificationRepository(db)

	notificationService := services.NewNotificationService(notificationRepo, producer, cfg)
	messageService := services.NewMessageService(msgRepo, convoRepo, offerRepo, producer, notificationService, cfg)

	hub := websocket.NewHub()
	go hub.Run()

	wsHandler := chatserver.NewWebSocketHandler(hub, messageService, blacklist, cfg)

	// One consumer per topic: inbound chat messages, processed messages
	// ready for delivery, and notification push events.
	inboundConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("failed to create inbound Kafka consumer: %v", err)
	}
	defer inboundConsumer.Close()

	outboundConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("failed to create outbound Kafka consumer: %v", err)
	}
	defer outboundConsumer.Close()

	notificationConsumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("failed to create notification Kafka consumer: %v", err)
	}
	defer notificationConsumer.Close()

	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()

	go func() {
		log.Printf("consuming inbound chat messages from %s", cfg.Kafka.MessagesTopic)
		err := inboundConsumer.Consume(consumerCtx, []string{cfg.Kafka.MessagesTopic}, cfg.Kafka.ConsumerGroup,
			func(ctx context.Context, kafkaMsg *confluentKafka.Message) error {
				return messageService.ProcessKafkaMessage(ctx, kafkaMsg)
			})
		if err != nil {
			log.Printf("inbound consumer stopped with error: %v", err)
		}
	}()

	go func() {
		log.Printf("consuming outgoing messages from %s", cfg.Kafka.OutgoingTopic)
		err := outboundConsumer.Consume(consumerCtx, []string{cfg.Kafka.OutgoingTopic}, cfg.Kafka.ConsumerGroup,
			func(ctx context.Context, kafkaMsg *confluentKafka.Message) error {
				var wsMsg apptypes.Message
				if err := json.Unmarshal(kafkaMsg.Value, &wsMsg); err != nil {
					log.Printf("dropping malformed outgoing message: %v, raw: %s", err, string(kafkaMsg.Value))
					return nil
				}
				hub.DeliverDirectMessage(&wsMsg)
				return nil
			})
		if err != nil {
			log.Printf("outbound consumer stopped with error: %v", err)
		}
	}()

	go func() {
		log.Printf("consuming notifications from %s", cfg.Kafka.NotificationsTopic)
		err := notificationConsumer.Consume(consumerCtx, []string{cfg.Kafka.NotificationsTopic}, cfg.Kafka.ConsumerGroup,
			func(ctx context.Context, kafkaMsg *confluentKafka.Message) error {
				var event apptypes.NotificationEvent
				if err := json.Unmarshal(kafkaMsg.Value, &event); err != nil {
					log.Printf("dropping malformed notification event: %v, raw: %s", err, string(kafkaMsg.Value))
					return nil
				}
				payload, err := json.Marshal(event)
				if err != nil {
					return nil
				}
				hub.DeliverDirectMessage(&apptypes.Message{
					ID:         strconv.FormatUint(uint64(event.NotificationID), 10),
					Type:       apptypes.NotificationMessageType,
					Content:    string(payload),
					ReceiverID: strconv.FormatUint(uint64(event.RecipientID), 10),
					Timestamp:  event.Timestamp,
				})
				return nil
			})
		if err != nil {
			log.Printf("notification consumer stopped with error: %v", err)
		}
	}()

	httpMux := http.NewServeMux()
	httpMux.HandleFunc("/ws/chat", wsHandler.ServeWS)
	httpMux.HandleFunc("/ws/chat/", wsHandler.ServeWS)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{Addr: serverAddr, Handler: httpMux}

	go func() {
		log.Printf("chat server listening on %s", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("chat server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("chat server shutting down...")

	cancelConsumers()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("chat server shutdown failed: %v", err)
	}
	log.Println("chat server stopped")
}
