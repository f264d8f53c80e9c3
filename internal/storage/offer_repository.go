package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/lifecycle"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
)

// OfferRepository defines the interface for donation offer data operations.
type OfferRepository interface {
	Create(ctx context.Context, offer *models.DonationOffer) error
	GetByID(ctx context.Context, id uint) (*models.DonationOffer, error)
	// FindOpenOffer returns the donor's open (non-terminal) offer on a
	// request, or nil when there is none.
	FindOpenOffer(ctx context.Context, requestID, donorID uint) (*models.DonationOffer, error)
	ListByRequest(ctx context.Context, requestID uint) ([]models.DonationOffer, error)
	ListByDonor(ctx context.Context, donorID uint, kind models.DonationKind) ([]models.DonationOffer, error)
	ListByRecipient(ctx context.Context, recipientID uint, kind models.DonationKind) ([]models.DonationOffer, error)
	// UpdateStatusIf performs a compare-and-swap transition: the update only
	// applies while the stored status equals from. It reports whether a row
	// was changed, making transitions idempotent and race-safe.
	UpdateStatusIf(ctx context.Context, id uint, from, to lifecycle.Status, extra map[string]interface{}) (bool, error)
	// DeletePendingByDonor removes a donor's own offer, only while pending.
	// Reports whether a row was deleted.
	DeletePendingByDonor(ctx context.Context, id, donorID uint) (bool, error)
	// FindDisclosedOffer returns the donor's offer on the request whose
	// status grants contact disclosure (accepted, fulfilled or rated), or
	// nil when there is none.
	FindDisclosedOffer(ctx context.Context, requestID, donorID uint) (*models.DonationOffer, error)
	// HasDisclosedOfferBetween reports whether either user holds a
	// disclosure-granting offer toward the other, in any direction.
	HasDisclosedOfferBetween(ctx context.Context, userID1, userID2 uint) (bool, error)
}

// gormOfferRepository implements OfferRepository using GORM.
type gormOfferRepository struct {
	db *gorm.DB
}

// NewGormOfferRepository creates a new GORM-based OfferRepository.
func NewGormOfferRepository(db *gorm.DB) OfferRepository {
	return &gormOfferRepository{db: db}
}

func (r *gormOfferRepository) Create(ctx context.Context, offer *models.DonationOffer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *gormOfferRepository) GetByID(ctx context.Context, id uint) (*models.DonationOffer, error) {
	var offer models.DonationOffer
	err := r.db.WithContext(ctx).First(&offer, id).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// FindOpenOffer looks up the donor's non-terminal offer on the request.
// Absence is not an error here.
func (r *gormOfferRepository) FindOpenOffer(ctx context.Context, requestID, donorID uint) (*models.DonationOffer, error) {
	var offer models.DonationOffer
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND donor_id = ?", requestID, donorID).
		Where("status NOT IN ?", []lifecycle.Status{lifecycle.StatusRejected, lifecycle.StatusRated}).
		First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

// FindDisclosedOffer looks up an offer by the donor on the request whose
// status is accepted, fulfilled or rated. Absence is not an error.
func (r *gormOfferRepository) FindDisclosedOffer(ctx context.Context, requestID, donorID uint) (*models.DonationOffer, error) {
	var offer models.DonationOffer
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND donor_id = ?", requestID, donorID).
		Where("status IN ?", []lifecycle.Status{lifecycle.StatusAccepted, lifecycle.StatusFulfilled, lifecycle.StatusRated}).
		Order("created_at DESC").
		First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

// HasDisclosedOfferBetween checks for an accepted (or later) offer linking
// the two users in either donor/recipient direction.
func (r *gormOfferRepository) HasDisclosedOfferBetween(ctx context.Context, userID1, userID2 uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DonationOffer{}).
		Where("(donor_id = ? AND recipient_id = ?) OR (donor_id = ? AND recipient_id = ?)",
			userID1, userID2, userID2, userID1).
		Where("status IN ?", []lifecycle.Status{lifecycle.StatusAccepted, lifecycle.StatusFulfilled, lifecycle.StatusRated}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByRequest returns all offers on a request, pending first.
func (r *gormOfferRepository) ListByRequest(ctx context.Context, requestID uint) ([]models.DonationOffer, error) {
	var offers []models.DonationOffer
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("status = 'pending' DESC, created_at DESC").
		Find(&offers).Error
	return offers, err
}

// ListByDonor returns the offers a user has sent, newest first.
func (r *gormOfferRepository) ListByDonor(ctx context.Context, donorID uint, kind models.DonationKind) ([]models.DonationOffer, error) {
	var offers []models.DonationOffer
	query := r.db.WithContext(ctx).Where("donor_id = ?", donorID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Order("created_at DESC").Find(&offers).Error
	return offers, err
}

// ListByRecipient returns the offers received on a user's requests, newest
// first.
func (r *gormOfferRepository) ListByRecipient(ctx context.Context, recipientID uint, kind models.DonationKind) ([]models.DonationOffer, error) {
	var offers []models.DonationOffer
	query := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Order("created_at DESC").Find(&offers).Error
	return offers, err
}

// UpdateStatusIf applies "UPDATE ... SET status = to WHERE id = ? AND
// status = from". Two concurrent accepts race on the same row; only one sees
// RowsAffected == 1, so side effects (notifications, timestamps) fire once.
func (r *gormOfferRepository) UpdateStatusIf(ctx context.Context, id uint, from, to lifecycle.Status, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	result := r.db.WithContext(ctx).Model(&models.DonationOffer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeletePendingByDonor deletes the offer only when it still belongs to the
// donor and is pending, so a concurrent accept wins over a cancellation.
func (r *gormOfferRepository) DeletePendingByDonor(ctx context.Context, id, donorID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND donor_id = ? AND status = ?", id, donorID, lifecycle.StatusPending).
		Delete(&models.DonationOffer{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
