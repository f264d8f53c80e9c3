// Command admin is an operator CLI for moderation tasks that have no API
// surface: promoting admins and force-toggling donation requests.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ahmedmiske/tabaro-sub002/internal/config"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

func usage() {
	fmt.Println("usage:")
	fmt.Println("  admin list-users                      list all registered users")
	fmt.Println("  admin grant-admin <userID>            give a user the admin role")
	fmt.Println("  admin revoke-admin <userID>           demote an admin back to user")
	fmt.Println("  admin deactivate-request <requestID>  hide a donation request")
	fmt.Println("  admin reactivate-request <requestID>  bring a donation request back")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s password=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.DBName, cfg.Database.Password, cfg.Database.SSLMode)
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer sqlDB.Close()

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		log.Fatalf("failed to create GORM instance: %v", err)
	}

	ctx := context.Background()
	userRepo := storage.NewGormUserRepository(db)
	requestRepo := storage.NewGormRequestRepository(db)

	switch os.Args[1] {
	case "list-users":
		var users []models.User
		if err := db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
			log.Fatalf("failed to list users: %v", err)
		}
		fmt.Printf("%-6s %-20s %-30s %-8s\n", "ID", "USERNAME", "NAME", "ROLE")
		for _, u := range users {
			fmt.Printf("%-6d %-20s %-30s %-8s\n", u.ID, u.Username, u.FirstName+" "+u.LastName, u.Role)
		}

	case "grant-admin", "revoke-admin":
		userID := parseIDArg()
		user, err := userRepo.GetByID(ctx, userID)
		if err != nil {
			log.Fatalf("failed to load user %d: %v", userID, err)
		}
		role := models.RoleAdmin
		if os.Args[1] == "revoke-admin" {
			role = models.RoleUser
		}
		user.Role = role
		if err := userRepo.Update(ctx, user); err != nil {
			log.Fatalf("failed to update user %d: %v", userID, err)
		}
		fmt.Printf("user %d (%s) is now %s\n", user.ID, user.Username, user.Role)

	case "deactivate-request", "reactivate-request":
		requestID := parseIDArg()
		request, err := requestRepo.GetByID(ctx, requestID)
		if err != nil {
			log.Fatalf("failed to load request %d: %v", requestID, err)
		}
		active := os.Args[1] == "reactivate-request"
		if err := requestRepo.SetActive(ctx, requestID, active); err != nil {
			log.Fatalf("failed to update request %d: %v", requestID, err)
		}
		fmt.Printf("request %d (%q) active=%v\n", request.ID, request.Title, active)

	default:
		usage()
	}
}

func parseIDArg() uint {
	if len(os.Args) < 3 {
		usage()
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil {
		log.Fatalf("invalid ID %q", os.Args[2])
	}
	return uint(id)
}
