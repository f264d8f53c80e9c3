package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/lifecycle"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

var (
	ErrRequestNotFound     = errors.New("donation request not found")
	ErrInvalidRequestInput = errors.New("invalid donation request input")
)

// ContactMethodInput is one way to reach the request owner, in the order the
// owner wants them shown.
type ContactMethodInput struct {
	Method string `json:"method"`
	Number string `json:"number"`
}

// CreateRequestInput carries the owner-supplied fields of a new request.
// Kind selects the variant: blood requests need a blood type, general
// requests need a category.
type CreateRequestInput struct {
	Kind           models.DonationKind  `json:"kind"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Place          string               `json:"place"`
	IsUrgent       bool                 `json:"isUrgent"`
	Deadline       time.Time            `json:"deadline"`
	BloodType      string               `json:"bloodType,omitempty"`
	Category       string               `json:"category,omitempty"`
	Amount         float64              `json:"amount,omitempty"`
	Unit           string               `json:"unit,omitempty"`
	ContactMethods []ContactMethodInput `json:"contactMethods"`
}

// UpdateRequestInput carries the editable fields of an existing request. The
// kind and the owner are fixed at creation.
type UpdateRequestInput struct {
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Place          string               `json:"place"`
	IsUrgent       bool                 `json:"isUrgent"`
	Deadline       time.Time            `json:"deadline"`
	BloodType      string               `json:"bloodType,omitempty"`
	Category       string               `json:"category,omitempty"`
	Amount         float64              `json:"amount,omitempty"`
	Unit           string               `json:"unit,omitempty"`
	ContactMethods []ContactMethodInput `json:"contactMethods"`
}

// RequestService manages donation requests. Expiry is always derived from the
// deadline at read time and never written back, so a request "expires" the
// instant its deadline passes, with no sweeper involved.
type RequestService interface {
	Create(ctx context.Context, ownerID uint, input CreateRequestInput) (*models.DonationRequest, error)
	Get(ctx context.Context, viewerID, requestID uint) (*models.RequestWithOwner, error)
	List(ctx context.Context, viewerID uint, filter storage.RequestFilter) ([]models.RequestWithOwner, error)
	ListByOwner(ctx context.Context, ownerID uint, kind models.DonationKind) ([]models.RequestWithOwner, error)
	Update(ctx context.Context, actorID, requestID uint, input UpdateRequestInput) (*models.DonationRequest, error)
	SetActive(ctx context.Context, actorID uint, isAdmin bool, requestID uint, active bool) error
	Delete(ctx context.Context, actorID uint, isAdmin bool, requestID uint) error
}

type requestService struct {
	requestRepo storage.RequestRepository
	offerRepo   storage.OfferRepository
	userRepo    storage.UserRepository
}

// NewRequestService creates a new RequestService instance.
func NewRequestService(requestRepo storage.RequestRepository, offerRepo storage.OfferRepository, userRepo storage.UserRepository) RequestService {
	return &requestService{
		requestRepo: requestRepo,
		offerRepo:   offerRepo,
		userRepo:    userRepo,
	}
}

func validateRequestFields(kind models.DonationKind, title string, deadline time.Time, bloodType, category string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidRequestInput)
	}
	if deadline.IsZero() || !deadline.After(time.Now()) {
		return fmt.Errorf("%w: deadline must be in the future", ErrInvalidRequestInput)
	}
	switch kind {
	case models.KindBlood:
		if bloodType == "" {
			return fmt.Errorf("%w: blood requests need a blood type", ErrInvalidRequestInput)
		}
	case models.KindGeneral:
		if category == "" {
			return fmt.Errorf("%w: general requests need a category", ErrInvalidRequestInput)
		}
	default:
		return fmt.Errorf("%w: unknown donation kind %q", ErrInvalidRequestInput, kind)
	}
	return nil
}

func buildContactMethods(requestID uint, inputs []ContactMethodInput) []models.ContactMethod {
	methods := make([]models.ContactMethod, 0, len(inputs))
	for i, in := range inputs {
		methods = append(methods, models.ContactMethod{
			RequestID: requestID,
			Position:  i,
			Method:    in.Method,
			Number:    in.Number,
		})
	}
	return methods
}

// Create stores a new request owned by the caller, active by default.
func (s *requestService) Create(ctx context.Context, ownerID uint, input CreateRequestInput) (*models.DonationRequest, error) {
	if err := validateRequestFields(input.Kind, input.Title, input.Deadline, input.BloodType, input.Category); err != nil {
		return nil, err
	}
	if len(input.ContactMethods) == 0 {
		return nil, fmt.Errorf("%w: at least one contact method is required", ErrInvalidRequestInput)
	}

	request := &models.DonationRequest{
		OwnerID:        ownerID,
		Kind:           input.Kind,
		Title:          input.Title,
		Description:    input.Description,
		Place:          input.Place,
		IsUrgent:       input.IsUrgent,
		Active:         true,
		Deadline:       input.Deadline,
		BloodType:      input.BloodType,
		Category:       input.Category,
		Amount:         input.Amount,
		Unit:           input.Unit,
		ContactMethods: buildContactMethods(0, input.ContactMethods),
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return request, nil
}

// Get returns a request with its owner's public info. Contact methods are
// included only when the viewer is the owner or holds an accepted (or later)
// offer on this request; everyone else sees the request without them.
func (s *requestService) Get(ctx context.Context, viewerID, requestID uint) (*models.RequestWithOwner, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to load request %d: %w", requestID, err)
	}

	var viewerStatus *lifecycle.Status
	if viewerID != 0 && viewerID != request.OwnerID {
		offer, err := s.offerRepo.FindDisclosedOffer(ctx, requestID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("failed to check viewer's offer: %w", err)
		}
		if offer != nil {
			viewerStatus = &offer.Status
		}
	}
	if !lifecycle.ContactVisible(viewerID, request.OwnerID, viewerStatus) {
		request.ContactMethods = nil
	}

	ownerInfo, err := s.userRepo.GetBasicInfoByID(ctx, request.OwnerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load owner info: %w", err)
	}

	return &models.RequestWithOwner{
		DonationRequest: *request,
		OwnerInfo:       ownerInfo,
		Expired:         !lifecycle.IsActive(time.Now(), request.Deadline),
	}, nil
}

// List returns requests matching the filter, urgent first. Contact methods
// are stripped except on the viewer's own requests; the detail view applies
// the full disclosure check.
func (s *requestService) List(ctx context.Context, viewerID uint, filter storage.RequestFilter) ([]models.RequestWithOwner, error) {
	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return s.enrich(ctx, viewerID, requests)
}

// ListByOwner returns the user's own requests, including inactive ones.
func (s *requestService) ListByOwner(ctx context.Context, ownerID uint, kind models.DonationKind) ([]models.RequestWithOwner, error) {
	requests, err := s.requestRepo.ListByOwner(ctx, ownerID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list own requests: %w", err)
	}
	return s.enrich(ctx, ownerID, requests)
}

func (s *requestService) enrich(ctx context.Context, viewerID uint, requests []models.DonationRequest) ([]models.RequestWithOwner, error) {
	ownerIDs := make([]uint, 0, len(requests))
	seen := make(map[uint]bool)
	for _, request := range requests {
		if !seen[request.OwnerID] {
			seen[request.OwnerID] = true
			ownerIDs = append(ownerIDs, request.OwnerID)
		}
	}

	infoByID := make(map[uint]*models.UserBasicInfo, len(ownerIDs))
	if len(ownerIDs) > 0 {
		infos, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, ownerIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load owner info: %w", err)
		}
		for _, info := range infos {
			infoByID[info.ID] = info
		}
	}

	now := time.Now()
	result := make([]models.RequestWithOwner, 0, len(requests))
	for _, request := range requests {
		// Lists strip contact methods for every non-owner; a donor whose
		// offer was accepted still gets them from Get, which runs the full
		// disclosure check per request.
		if request.OwnerID != viewerID {
			request.ContactMethods = nil
		}
		result = append(result, models.RequestWithOwner{
			DonationRequest: request,
			OwnerInfo:       infoByID[request.OwnerID],
			Expired:         !lifecycle.IsActive(now, request.Deadline),
		})
	}
	return result, nil
}

// Update replaces the editable fields of the caller's own request. The
// contact method list is replaced wholesale so reordering works.
func (s *requestService) Update(ctx context.Context, actorID, requestID uint, input UpdateRequestInput) (*models.DonationRequest, error) {
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
	if err := validateRequestFields(request.Kind, input.Title, input.Deadline, input.BloodType, input.Category); err != nil {
		return nil, err
	}

	request.Title = input.Title
	request.Description = input.Description
	request.Place = input.Place
	request.IsUrgent = input.IsUrgent
	request.Deadline = input.Deadline
	request.BloodType = input.BloodType
	request.Category = input.Category
	request.Amount = input.Amount
	request.Unit = input.Unit

	if err := s.requestRepo.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update request %d: %w", requestID, err)
	}
	if input.ContactMethods != nil {
		methods := buildContactMethods(requestID, input.ContactMethods)
		if err := s.requestRepo.ReplaceContactMethods(ctx, requestID, methods); err != nil {
			return nil, fmt.Errorf("failed to update contact methods: %w", err)
		}
		request.ContactMethods = methods
	}
	return request, nil
}

// SetActive toggles a request's visibility. The owner manages their own
// requests; admins can deactivate any request.
func (s *requestService) SetActive(ctx context.Context, actorID uint, isAdmin bool, requestID uint, active bool) error {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("failed to load request %d: %w", requestID, err)
	}
	if request.OwnerID != actorID && !isAdmin {
		return lifecycle.ErrNotOwner
	}
	return s.requestRepo.SetActive(ctx, requestID, active)
}

// Delete removes a request and its contact methods.
func (s *requestService) Delete(ctx context.Context, actorID uint, isAdmin bool, requestID uint) error {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("failed to load request %d: %w", requestID, err)
	}
	if request.OwnerID != actorID && !isAdmin {
		return lifecycle.ErrNotOwner
	}
	return s.requestRepo.Delete(ctx, requestID)
}
