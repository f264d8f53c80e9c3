package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/lifecycle"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

var (
	ErrOfferNotFound = errors.New("offer not found")
	ErrInvalidRating = errors.New("rating score must be between 1 and 5")
)

// CreateOfferInput carries the donor-supplied fields of a new offer.
type CreateOfferInput struct {
	RequestID    uint       `json:"requestId"`
	Message      string     `json:"message"`
	Method       string     `json:"method"`
	ProposedTime *time.Time `json:"proposedTime,omitempty"`

	// ExpectedKind is set by the handler from the route family, so a blood
	// endpoint cannot create offers on general requests and vice versa.
	ExpectedKind models.DonationKind `json:"-"`
}

// RateOfferInput carries the owner's rating of a fulfilled offer.
type RateOfferInput struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

// OfferService drives the offer lifecycle. Every transition is checked
// against the rules in the lifecycle package and then applied with a
// compare-and-swap update, so concurrent conflicting transitions resolve to
// exactly one winner and notifications fire at most once per transition.
type OfferService interface {
	Create(ctx context.Context, donorID uint, input CreateOfferInput) (*models.DonationOffer, error)
	Accept(ctx context.Context, actorID, offerID uint) (*models.DonationOffer, error)
	Reject(ctx context.Context, actorID, offerID uint) (*models.DonationOffer, error)
	Fulfill(ctx context.Context, actorID, offerID uint) (*models.DonationOffer, error)
	Rate(ctx context.Context, actorID, offerID uint, input RateOfferInput) (*models.DonationOffer, error)
	Cancel(ctx context.Context, donorID, offerID uint) error
	GetByID(ctx context.Context, viewerID, offerID uint) (*models.DonationOffer, error)
	ListForRequest(ctx context.Context, actorID, requestID uint) ([]models.OfferWithDonor, error)
	ListReceived(ctx context.Context, userID uint, kind models.DonationKind) ([]models.OfferWithDonor, error)
	ListSent(ctx context.Context, userID uint, kind models.DonationKind) ([]models.DonationOffer, error)
}

type offerService struct {
	offerRepo   storage.OfferRepository
	requestRepo storage.RequestRepository
	userRepo    storage.UserRepository
	notifier    NotificationService
}

// NewOfferService creates a new OfferService instance.
func NewOfferService(offerRepo storage.OfferRepository, requestRepo storage.RequestRepository, userRepo storage.UserRepository, notifier NotificationService) OfferService {
	return &offerService{
		offerRepo:   offerRepo,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

// Create validates a new offer against the target request and stores it in
// pending status. The partial unique index on (request_id, donor_id) backs up
// the duplicate check under concurrent submissions.
func (s *offerService) Create(ctx context.Context, donorID uint, input CreateOfferInput) (*models.DonationOffer, error) {
	request, err := s.requestRepo.GetByID(ctx, input.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to load request %d: %w", input.RequestID, err)
	}
	if input.ExpectedKind != "" && request.Kind != input.ExpectedKind {
		return nil, ErrRequestNotFound
	}

	var existingStatus *lifecycle.Status
	existing, err := s.offerRepo.FindOpenOffer(ctx, request.ID, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing offers: %w", err)
	}
	if existing != nil {
		existingStatus = &existing.Status
	}

	if err := lifecycle.CheckNewOffer(time.Now(), request.Deadline, donorID, request.OwnerID, request.Active, existingStatus); err != nil {
		return nil, err
	}

	offer := &models.DonationOffer{
		RequestID:    request.ID,
		DonorID:      donorID,
		RecipientID:  request.OwnerID,
		Kind:         request.Kind,
		Message:      input.Message,
		Method:       input.Method,
		ProposedTime: input.ProposedTime,
		Status:       lifecycle.StatusPending,
	}
	if err := s.offerRepo.Create(ctx, offer); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a race against the donor's own concurrent submission.
			return nil, lifecycle.ErrDuplicateOffer
		}
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	s.notify(ctx, request.OwnerID, models.NotificationOfferReceived,
		fmt.Sprintf("New donation offer on your request %q", request.Title), offer)

	return offer, nil
}

// Accept moves a pending offer to accepted. Only the request owner may do
// this; a concurrent conflicting transition surfaces as a state conflict.
func (s *offerService) Accept(ctx context.Context, actorID, offerID uint) (*models.DonationOffer, error) {
	now := time.Now()
	return s.transition(ctx, actorID, offerID, lifecycle.StatusAccepted,
		map[string]interface{}{"accepted_at": now},
		models.NotificationOfferAccepted, "Your donation offer was accepted")
}

// Reject moves a pending offer to rejected.
func (s *offerService) Reject(ctx context.Context, actorID, offerID uint) (*models.DonationOffer, error) {
	return s.transition(ctx, actorID, offerID, lifecycle.StatusRejected,
		nil,
		models.NotificationOfferRejected, "Your donation offer was declined")
}

// Fulfill moves an accepted offer to fulfilled, recording that the donation
// actually happened.
func (s *offerService) Fulfill(ctx context.Context, actorID, offerID uint) (*models.DonationOffer, error) {
	now := time.Now()
	return s.transition(ctx, actorID, offerID, lifecycle.StatusFulfilled,
		map[string]interface{}{"fulfilled_at": now},
		models.NotificationOfferFulfilled, "Your donation was marked as fulfilled")
}

// Rate moves a fulfilled offer to rated and stores the owner's rating of the
// donor. Rated is terminal: the rating cannot be changed afterwards.
func (s *offerService) Rate(ctx context.Context, actorID, offerID uint, input RateOfferInput) (*models.DonationOffer, error) {
	if input.Score < 1 || input.Score > 5 {
		return nil, ErrInvalidRating
	}
	now := time.Now()
	return s.transition(ctx, actorID, offerID, lifecycle.StatusRated,
		map[string]interface{}{
			"rated_at":       now,
			"rating_score":   input.Score,
			"rating_comment": input.Comment,
		},
		models.NotificationDonorRated, "You received a rating for your donation")
}

// transition applies one lifecycle step: load, check the rules, then CAS on
// the status read. If another transition won the race the CAS changes no rows
// and the caller sees a state conflict instead of a silent double-apply.
func (s *offerService) transition(ctx context.Context, actorID, offerID uint, to lifecycle.Status, extra map[string]interface{}, nType models.NotificationType, notifyMsg string) (*models.DonationOffer, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to load offer %d: %w", offerID, err)
	}

	if err := lifecycle.Transition(offer.Status, to, actorID, offer.RecipientID); err != nil {
		return nil, err
	}

	updated, err := s.offerRepo.UpdateStatusIf(ctx, offerID, offer.Status, to, extra)
	if err != nil {
		return nil, fmt.Errorf("failed to update offer %d status: %w", offerID, err)
	}
	if !updated {
		return nil, lifecycle.ErrInvalidTransition
	}

	s.notify(ctx, offer.DonorID, nType, notifyMsg, offer)

	fresh, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload offer %d: %w", offerID, err)
	}
	return fresh, nil
}

// Cancel removes the donor's own pending offer. The conditional delete keeps
// this race-safe: if the owner accepted in the meantime, nothing is deleted.
func (s *offerService) Cancel(ctx context.Context, donorID, offerID uint) error {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOfferNotFound
		}
		return fmt.Errorf("failed to load offer %d: %w", offerID, err)
	}

	if err := lifecycle.Cancel(offer.Status, donorID, offer.DonorID); err != nil {
		return err
	}

	deleted, err := s.offerRepo.DeletePendingByDonor(ctx, offerID, donorID)
	if err != nil {
		return fmt.Errorf("failed to cancel offer %d: %w", offerID, err)
	}
	if !deleted {
		return lifecycle.ErrNotCancellable
	}
	return nil
}

// GetByID returns an offer to its donor or its recipient. Anyone else gets
// not-found rather than forbidden, so offer IDs leak nothing.
func (s *offerService) GetByID(ctx context.Context, viewerID, offerID uint) (*models.DonationOffer, error) {
	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("failed to load offer %d: %w", offerID, err)
	}
	if viewerID != offer.DonorID && viewerID != offer.RecipientID {
		return nil, ErrOfferNotFound
	}
	return offer, nil
}

// ListForRequest returns all offers on a request for the owner's review,
// enriched with each donor's public info.
func (s *offerService) ListForRequest(ctx context.Context, actorID, requestID uint) ([]models.OfferWithDonor, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to load request %d: %w", requestID, err)
	}
	if request.OwnerID != actorID {
		return nil, lifecycle.ErrNotOwner
	}

	offers, err := s.offerRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers for request %d: %w", requestID, err)
	}
	return s.attachDonorInfo(ctx, offers)
}

// ListReceived returns the offers made on the user's own requests.
func (s *offerService) ListReceived(ctx context.Context, userID uint, kind models.DonationKind) ([]models.OfferWithDonor, error) {
	offers, err := s.offerRepo.ListByRecipient(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list received offers: %w", err)
	}
	return s.attachDonorInfo(ctx, offers)
}

// ListSent returns the offers the user has made on other people's requests.
func (s *offerService) ListSent(ctx context.Context, userID uint, kind models.DonationKind) ([]models.DonationOffer, error) {
	offers, err := s.offerRepo.ListByDonor(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent offers: %w", err)
	}
	return offers, nil
}

func (s *offerService) attachDonorInfo(ctx context.Context, offers []models.DonationOffer) ([]models.OfferWithDonor, error) {
	donorIDs := make([]uint, 0, len(offers))
	seen := make(map[uint]bool)
	for _, offer := range offers {
		if !seen[offer.DonorID] {
			seen[offer.DonorID] = true
			donorIDs = append(donorIDs, offer.DonorID)
		}
	}

	infoByID := make(map[uint]*models.UserBasicInfo, len(donorIDs))
	if len(donorIDs) > 0 {
		infos, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, donorIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load donor info: %w", err)
		}
		for _, info := range infos {
			infoByID[info.ID] = info
		}
	}

	result := make([]models.OfferWithDonor, 0, len(offers))
	for _, offer := range offers {
		result = append(result, models.OfferWithDonor{
			DonationOffer: offer,
			DonorInfo:     infoByID[offer.DonorID],
		})
	}
	return result, nil
}

// notify is fire-and-forget: a notification failure never rolls back the
// transition that triggered it.
func (s *offerService) notify(ctx context.Context, recipientID uint, nType models.NotificationType, message string, offer *models.DonationOffer) {
	if s.notifier == nil {
		return
	}
	data := map[string]interface{}{
		"offerId":   offer.ID,
		"requestId": offer.RequestID,
		"kind":      offer.Kind,
	}
	if err := s.notifier.Notify(ctx, recipientID, nType, message, "offer", offer.ID, data); err != nil {
		log.Printf("failed to notify user %d about offer %d: %v", recipientID, offer.ID, err)
	}
}
