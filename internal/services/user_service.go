package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

// UpdateProfileInput carries the self-editable profile fields. Empty fields
// are left untouched.
type UpdateProfileInput struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// UserService exposes user profiles.
type UserService interface {
	GetUserProfile(ctx context.Context, userID uint) (*models.User, error)
	UpdateUserProfile(ctx context.Context, userID uint, input UpdateProfileInput) (*models.User, error)
	GetBasicInfo(ctx context.Context, userID uint) (*models.UserBasicInfo, error)
	SearchUsers(ctx context.Context, query string, currentUserID uint) ([]models.User, error)
}

type userService struct {
	userRepo storage.UserRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(userRepo storage.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetUserProfile returns a user's profile with sensitive fields cleared.
func (s *userService) GetUserProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateUserProfile updates the caller's own profile, field by field.
func (s *userService) UpdateUserProfile(ctx context.Context, userID uint, input UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	updated := false
	if input.FirstName != "" && user.FirstName != input.FirstName {
		user.FirstName = input.FirstName
		updated = true
	}
	if input.LastName != "" && user.LastName != input.LastName {
		user.LastName = input.LastName
		updated = true
	}
	if input.Phone != "" && user.Phone != input.Phone {
		user.Phone = input.Phone
		updated = true
	}
	if input.AvatarURL != "" && user.AvatarURL != input.AvatarURL {
		user.AvatarURL = input.AvatarURL
		updated = true
	}
	if input.Bio != "" && user.Bio != input.Bio {
		user.Bio = input.Bio
		updated = true
	}

	if updated {
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update user %d: %w", userID, err)
		}
	}
	user.PasswordHash = ""
	return user, nil
}

// GetBasicInfo returns the public subset of a user's profile.
func (s *userService) GetBasicInfo(ctx context.Context, userID uint) (*models.UserBasicInfo, error) {
	info, err := s.userRepo.GetBasicInfoByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return info, nil
}

func (s *userService) SearchUsers(ctx context.Context, query string, currentUserID uint) ([]models.User, error) {
	return s.userRepo.SearchUsers(ctx, query, currentUserID)
}
