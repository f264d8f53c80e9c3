package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/auth"
	"github.com/ahmedmiske/tabaro-sub002/internal/config"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

var (
	ErrUserAlreadyExists  = errors.New("username or email already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
}

// AuthService handles registration, login and logout.
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Login(ctx context.Context, usernameOrEmail, password string) (token string, user *models.User, err error)
	// Logout revokes the token by blacklisting its JTI until its natural
	// expiry. Validation of the token happens first, so an already expired
	// token is a no-op success.
	Logout(ctx context.Context, tokenString string) error
}

type authService struct {
	userRepo  storage.UserRepository
	blacklist auth.TokenBlacklist
	cfg       config.Config
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo storage.UserRepository, blacklist auth.TokenBlacklist, cfg config.Config) AuthService {
	return &authService{
		userRepo:  userRepo,
		blacklist: blacklist,
		cfg:       cfg,
	}
}

// Register creates a new account with the user role. Admins are promoted
// through the admin CLI, never through the API.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if input.Username == "" || input.Password == "" || input.FirstName == "" || input.LastName == "" {
		return nil, fmt.Errorf("username, password, first and last name are required")
	}

	_, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	if input.Email != "" {
		_, err = s.userRepo.GetByEmail(ctx, input.Email)
		if err == nil {
			return nil, ErrUserAlreadyExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser := &models.User{
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: hashedPassword,
		Role:         models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return newUser, nil
}

// Login checks credentials and issues a JWT carrying the user's role.
func (s *authService) Login(ctx context.Context, usernameOrEmail, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, usernameOrEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.userRepo.GetByEmail(ctx, usernameOrEmail)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, ErrUserNotFound
		} else if err != nil {
			return "", nil, fmt.Errorf("failed to look up user by email: %w", err)
		}
	} else if err != nil {
		return "", nil, fmt.Errorf("failed to look up user by username: %w", err)
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Username, string(user.Role), s.cfg.Auth)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	user.LastSeenAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		// Not worth failing the login over.
		user.LastSeenAt = nil
	}

	return token, user, nil
}

// Logout blacklists the token's JTI so it stops validating immediately.
func (s *authService) Logout(ctx context.Context, tokenString string) error {
	claims, err := auth.ValidateToken(ctx, tokenString, s.cfg.Auth.JWTSecretKey, s.blacklist)
	if err != nil {
		// Expired or already revoked tokens need no further revocation.
		return nil
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.blacklist.Add(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
