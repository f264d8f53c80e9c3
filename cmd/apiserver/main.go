package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ahmedmiske/tabaro-sub002/internal/config"
	"github.com/ahmedmiske/tabaro-sub002/internal/handlers/apiserver"
	appKafka "github.com/ahmedmiske/tabaro-sub002/internal/kafka"
	"github.com/ahmedmiske/tabaro-sub002/internal/middleware"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	appredis "github.com/ahmedmiske/tabaro-sub002/internal/redis"
	"github.com/ahmedmiske/tabaro-sub002/internal/services"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
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
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("failed to migrate database tables: %v", err)
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

	// Repositories
	userRepo := storage.NewGormUserRepository(db)
	requestRepo := storage.NewGormRequestRepository(db)
	offerRepo := storage.NewGormOfferRepository(db)
	notificationRepo := storage.NewGormNotificationRepository(db)
	convoRepo := storage.NewGormConversationRepository(db)
	msgRepo := storage.NewGormMessageRepository(db)

	// Services
	notificationService := services.NewNotificationService(notificationRepo, producer, cfg)
	authService := services.NewAuthService(userRepo, blacklist, cfg)
	userService := services.NewUserService(userRepo)
	requestService := services.NewRequestService(requestRepo, offerRepo, userRepo)
	offerService := services.NewOfferService(offerRepo, requestRepo, userRepo, notificationService)
	conversationService := services.NewConversationService(convoRepo, offerRepo, userRepo)
	messageService := services.NewMessageService(msgRepo, convoRepo, offerRepo, producer, notificationService, cfg)

	baseURL := fmt.Sprintf("http://%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	storageService, err := storage.NewLocalStorageService(cfg.Storage, baseURL)
	if err != nil {
		log.Fatalf("failed to initialize file storage: %v", err)
	}

	// Handlers
	authHandler := apiserver.NewAuthHandler(authService)
	userHandler := apiserver.NewUserHandler(userService)
	bloodRequestHandler := apiserver.NewRequestHandler(requestService, models.KindBlood)
	generalRequestHandler := apiserver.NewRequestHandler(requestService, models.KindGeneral)
	bloodOfferHandler := apiserver.NewOfferHandler(offerService, models.KindBlood)
	generalOfferHandler := apiserver.NewOfferHandler(offerService, models.KindGeneral)
	notificationHandler := apiserver.NewNotificationHandler(notificationService)
	conversationHandler := apiserver.NewConversationHandler(conversationService, messageService)
	uploadHandler := apiserver.NewUploadHandler(storageService, cfg.Storage)

	r := mux.NewRouter()

	// Public routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)

	r.HandleFunc("/users/{userID:[0-9]+}", userHandler.GetUserProfileHandler).Methods(http.MethodGet)
	r.HandleFunc("/donations", bloodRequestHandler.ListHandler).Methods(http.MethodGet)
	r.HandleFunc("/donations/{id:[0-9]+}", bloodRequestHandler.GetHandler).Methods(http.MethodGet)
	r.HandleFunc("/donation-requests", generalRequestHandler.ListHandler).Methods(http.MethodGet)
	r.HandleFunc("/donation-requests/{id:[0-9]+}", generalRequestHandler.GetHandler).Methods(http.MethodGet)

	// Authenticated API
	authMW := middleware.AuthMiddleware(cfg.Auth.JWTSecretKey, blacklist)
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMW)

	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	api.HandleFunc("/users/me", userHandler.GetMyProfileHandler).Methods(http.MethodGet)
	api.HandleFunc("/users/me", userHandler.UpdateMyProfileHandler).Methods(http.MethodPut)
	api.HandleFunc("/users/search", userHandler.SearchUsersHandler).Methods(http.MethodGet)

	registerRequestRoutes := func(prefix string, h *apiserver.RequestHandler) {
		sub := api.PathPrefix(prefix).Subrouter()
		sub.HandleFunc("", h.CreateHandler).Methods(http.MethodPost)
		sub.HandleFunc("", h.ListHandler).Methods(http.MethodGet)
		sub.HandleFunc("/mine", h.MyRequestsHandler).Methods(http.MethodGet)
		sub.HandleFunc("/{id:[0-9]+}", h.GetHandler).Methods(http.MethodGet)
		sub.HandleFunc("/{id:[0-9]+}", h.UpdateHandler).Methods(http.MethodPut)
		sub.HandleFunc("/{id:[0-9]+}", h.DeleteHandler).Methods(http.MethodDelete)
		sub.HandleFunc("/{id:[0-9]+}/status", h.SetStatusHandler).Methods(http.MethodPatch)
	}
	registerRequestRoutes("/donations", bloodRequestHandler)
	registerRequestRoutes("/donation-requests", generalRequestHandler)

	registerOfferRoutes := func(prefix string, h *apiserver.OfferHandler) {
		sub := api.PathPrefix(prefix).Subrouter()
		sub.HandleFunc("", h.CreateHandler).Methods(http.MethodPost)
		sub.HandleFunc("/mine", h.MineHandler).Methods(http.MethodGet)
		sub.HandleFunc("/sent", h.SentHandler).Methods(http.MethodGet)
		sub.HandleFunc("/request/{id:[0-9]+}", h.ListForRequestHandler).Methods(http.MethodGet)
		sub.HandleFunc("/{id:[0-9]+}", h.GetHandler).Methods(http.MethodGet)
		sub.HandleFunc("/{id:[0-9]+}", h.CancelHandler).Methods(http.MethodDelete)
		sub.HandleFunc("/{id:[0-9]+}/{action}", h.TransitionHandler).Methods(http.MethodPatch)
	}
	registerOfferRoutes("/donation-confirmations", bloodOfferHandler)
	registerOfferRoutes("/donation-request-confirmations", generalOfferHandler)

	api.HandleFunc("/notifications", notificationHandler.ListHandler).Methods(http.MethodGet)
	api.HandleFunc("/notifications/unread-count", notificationHandler.UnreadCountHandler).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read-all", notificationHandler.MarkAllReadHandler).Methods(http.MethodPatch)
	api.HandleFunc("/notifications/{id:[0-9]+}/read", notificationHandler.MarkReadHandler).Methods(http.MethodPatch)

	api.HandleFunc("/conversations", conversationHandler.ListHandler).Methods(http.MethodGet)
	api.HandleFunc("/conversations/private", conversationHandler.OpenPrivateHandler).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id:[0-9]+}", conversationHandler.GetHandler).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id:[0-9]+}/messages", conversationHandler.MessagesHandler).Methods(http.MethodGet)

	api.HandleFunc("/upload", uploadHandler.UploadFileHandler).Methods(http.MethodPost)

	// Uploaded files are served statically from the local storage directory.
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.Storage.LocalPath))))

	// CORS for the web frontend
	corsOptions := []gorillaHandlers.CORSOption{
		gorillaHandlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		gorillaHandlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		gorillaHandlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		gorillaHandlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		gorillaHandlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, gorillaHandlers.AllowCredentials())
	}
	corsHandler := gorillaHandlers.CORS(corsOptions...)(r)

	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	httpServer := &http.Server{
		Addr:           serverAddr,
		Handler:        corsHandler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Printf("API server listening on %s", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("API server shutdown failed: %v", err)
	}
	log.Println("API server stopped")
}
