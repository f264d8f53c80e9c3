package storage

import (
	"context"

	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/models"
)

// RequestFilter narrows donation request listings.
type RequestFilter struct {
	Kind       models.DonationKind
	BloodType  string
	Category   string
	Place      string
	UrgentOnly bool
	ActiveOnly bool
	Limit      int
	Offset     int
}

// RequestRepository defines the interface for donation request data operations.
type RequestRepository interface {
	Create(ctx context.Context, request *models.DonationRequest) error
	GetByID(ctx context.Context, id uint) (*models.DonationRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]models.DonationRequest, error)
	ListByOwner(ctx context.Context, ownerID uint, kind models.DonationKind) ([]models.DonationRequest, error)
	Update(ctx context.Context, request *models.DonationRequest) error
	ReplaceContactMethods(ctx context.Context, requestID uint, methods []models.ContactMethod) error
	SetActive(ctx context.Context, id uint, active bool) error
	Delete(ctx context.Context, id uint) error
}

// gormRequestRepository implements RequestRepository using GORM.
type gormRequestRepository struct {
	db *gorm.DB
}

// NewGormRequestRepository creates a new GORM-based RequestRepository.
func NewGormRequestRepository(db *gorm.DB) RequestRepository {
	return &gormRequestRepository{db: db}
}

// Create stores a new request together with its contact methods.
func (r *gormRequestRepository) Create(ctx context.Context, request *models.DonationRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

// GetByID retrieves a request with its ordered contact methods.
func (r *gormRequestRepository) GetByID(ctx context.Context, id uint) (*models.DonationRequest, error) {
	var request models.DonationRequest
	err := r.db.WithContext(ctx).
		Preload("ContactMethods", func(db *gorm.DB) *gorm.DB {
			return db.Order("contact_methods.position ASC")
		}).
		First(&request, id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, urgent ones first, newest next.
func (r *gormRequestRepository) List(ctx context.Context, filter RequestFilter) ([]models.DonationRequest, error) {
	var requests []models.DonationRequest
	query := r.db.WithContext(ctx).Model(&models.DonationRequest{})

	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.BloodType != "" {
		query = query.Where("blood_type = ?", filter.BloodType)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Place != "" {
		query = query.Where("LOWER(place) LIKE ?", likePattern(filter.Place))
	}
	if filter.UrgentOnly {
		query = query.Where("is_urgent = ?", true)
	}
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}

	query = query.Order("is_urgent DESC, created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	err := query.Find(&requests).Error
	return requests, err
}

// ListByOwner returns the requests created by one user, newest first.
func (r *gormRequestRepository) ListByOwner(ctx context.Context, ownerID uint, kind models.DonationKind) ([]models.DonationRequest, error) {
	var requests []models.DonationRequest
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Order("created_at DESC").Find(&requests).Error
	return requests, err
}

// Update saves the editable fields of a request. Owner and kind are never
// changed here.
func (r *gormRequestRepository) Update(ctx context.Context, request *models.DonationRequest) error {
	if request.ID == 0 {
		return gorm.ErrMissingWhereClause
	}
	return r.db.WithContext(ctx).Model(request).
		Select("title", "description", "place", "is_urgent", "deadline",
			"blood_type", "category", "amount", "unit").
		Updates(request).Error
}

// ReplaceContactMethods swaps the full ordered contact method list of a
// request.
func (r *gormRequestRepository) ReplaceContactMethods(ctx context.Context, requestID uint, methods []models.ContactMethod) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id = ?", requestID).Delete(&models.ContactMethod{}).Error; err != nil {
			return err
		}
		for i := range methods {
			methods[i].ID = 0
			methods[i].RequestID = requestID
			methods[i].Position = i
		}
		if len(methods) == 0 {
			return nil
		}
		return tx.Create(&methods).Error
	})
}

// SetActive toggles the owner/admin visibility flag.
func (r *gormRequestRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.db.WithContext(ctx).Model(&models.DonationRequest{}).
		Where("id = ?", id).Update("active", active).Error
}

// Delete soft-deletes a request.
func (r *gormRequestRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.DonationRequest{}, id).Error
}
