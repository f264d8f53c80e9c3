package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ahmedmiske/tabaro-sub002/internal/lifecycle"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

// In-memory repository fakes. They mirror the semantics the GORM
// implementations rely on, including conditional updates reporting whether a
// row changed.

type fakeOfferRepo struct {
	mu     sync.Mutex
	nextID uint
	offers map[uint]*models.DonationOffer
}

func newFakeOfferRepo() *fakeOfferRepo {
	return &fakeOfferRepo{nextID: 1, offers: make(map[uint]*models.DonationOffer)}
}

func (f *fakeOfferRepo) Create(_ context.Context, offer *models.DonationOffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.offers {
		if existing.RequestID == offer.RequestID && existing.DonorID == offer.DonorID && lifecycle.Open(existing.Status) {
			return gorm.ErrDuplicatedKey
		}
	}
	offer.ID = f.nextID
	f.nextID++
	stored := *offer
	f.offers[offer.ID] = &stored
	return nil
}

func (f *fakeOfferRepo) GetByID(_ context.Context, id uint) (*models.DonationOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	offer, ok := f.offers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *offer
	return &copied, nil
}

func (f *fakeOfferRepo) FindOpenOffer(_ context.Context, requestID, donorID uint) (*models.DonationOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, offer := range f.offers {
		if offer.RequestID == requestID && offer.DonorID == donorID && lifecycle.Open(offer.Status) {
			copied := *offer
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeOfferRepo) FindDisclosedOffer(_ context.Context, requestID, donorID uint) (*models.DonationOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, offer := range f.offers {
		if offer.RequestID == requestID && offer.DonorID == donorID && disclosedStatus(offer.Status) {
			copied := *offer
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeOfferRepo) HasDisclosedOfferBetween(_ context.Context, userID1, userID2 uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, offer := range f.offers {
		pair := (offer.DonorID == userID1 && offer.RecipientID == userID2) ||
			(offer.DonorID == userID2 && offer.RecipientID == userID1)
		if pair && disclosedStatus(offer.Status) {
			return true, nil
		}
	}
	return false, nil
}

func disclosedStatus(s lifecycle.Status) bool {
	return s == lifecycle.StatusAccepted || s == lifecycle.StatusFulfilled || s == lifecycle.StatusRated
}

func (f *fakeOfferRepo) ListByRequest(_ context.Context, requestID uint) ([]models.DonationOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.DonationOffer
	for _, offer := range f.offers {
		if offer.RequestID == requestID {
			result = append(result, *offer)
		}
	}
	sortOffers(result)
	return result, nil
}

func (f *fakeOfferRepo) ListByDonor(_ context.Context, donorID uint, kind models.DonationKind) ([]models.DonationOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.DonationOffer
	for _, offer := range f.offers {
		if offer.DonorID == donorID && (kind == "" || offer.Kind == kind) {
			result = append(result, *offer)
		}
	}
	sortOffers(result)
	return result, nil
}

func (f *fakeOfferRepo) ListByRecipient(_ context.Context, recipientID uint, kind models.DonationKind) ([]models.DonationOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.DonationOffer
	for _, offer := range f.offers {
		if offer.RecipientID == recipientID && (kind == "" || offer.Kind == kind) {
			result = append(result, *offer)
		}
	}
	sortOffers(result)
	return result, nil
}

func sortOffers(offers []models.DonationOffer) {
	sort.Slice(offers, func(i, j int) bool { return offers[i].ID < offers[j].ID })
}

func (f *fakeOfferRepo) UpdateStatusIf(_ context.Context, id uint, from, to lifecycle.Status, extra map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	offer, ok := f.offers[id]
	if !ok || offer.Status != from {
		return false, nil
	}
	offer.Status = to
	applyExtra(offer, extra)
	return true, nil
}

// applyExtra mirrors the column updates the GORM repository performs
// alongside the status change.
func applyExtra(offer *models.DonationOffer, extra map[string]interface{}) {
	for column, value := range extra {
		switch column {
		case "accepted_at":
			t := value.(time.Time)
			offer.AcceptedAt = &t
		case "fulfilled_at":
			t := value.(time.Time)
			offer.FulfilledAt = &t
		case "rated_at":
			t := value.(time.Time)
			offer.RatedAt = &t
		case "rating_score":
			score := value.(int)
			offer.RatingScore = &score
		case "rating_comment":
			offer.RatingComment = value.(string)
		}
	}
}

func (f *fakeOfferRepo) DeletePendingByDonor(_ context.Context, id, donorID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	offer, ok := f.offers[id]
	if !ok || offer.DonorID != donorID || offer.Status != lifecycle.StatusPending {
		return false, nil
	}
	delete(f.offers, id)
	return true, nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	nextID   uint
	requests map[uint]*models.DonationRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{nextID: 1, requests: make(map[uint]*models.DonationRequest)}
}

func (f *fakeRequestRepo) Create(_ context.Context, request *models.DonationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request.ID = f.nextID
	f.nextID++
	for i := range request.ContactMethods {
		request.ContactMethods[i].RequestID = request.ID
	}
	stored := *request
	f.requests[request.ID] = &stored
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, id uint) (*models.DonationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *request
	copied.ContactMethods = append([]models.ContactMethod(nil), request.ContactMethods...)
	return &copied, nil
}

func (f *fakeRequestRepo) List(_ context.Context, filter storage.RequestFilter) ([]models.DonationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.DonationRequest
	for _, request := range f.requests {
		if filter.Kind != "" && request.Kind != filter.Kind {
			continue
		}
		if filter.ActiveOnly && !request.Active {
			continue
		}
		if filter.UrgentOnly && !request.IsUrgent {
			continue
		}
		result = append(result, *request)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeRequestRepo) ListByOwner(_ context.Context, ownerID uint, kind models.DonationKind) ([]models.DonationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []models.DonationRequest
	for _, request := range f.requests {
		if request.OwnerID == ownerID && (kind == "" || request.Kind == kind) {
			result = append(result, *request)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeRequestRepo) Update(_ context.Context, request *models.DonationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[request.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *request
	f.requests[request.ID] = &stored
	return nil
}

func (f *fakeRequestRepo) ReplaceContactMethods(_ context.Context, requestID uint, methods []models.ContactMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[requestID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	request.ContactMethods = append([]models.ContactMethod(nil), methods...)
	return nil
}

func (f *fakeRequestRepo) SetActive(_ context.Context, id uint, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	request.Active = active
	return nil
}

func (f *fakeRequestRepo) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.requests, id)
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uint]*models.User)}
}

func (f *fakeUserRepo) add(user models.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := user
	f.users[user.ID] = &stored
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = uint(len(f.users) + 1)
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email && email != "" {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeUserRepo) SearchUsers(_ context.Context, query string, currentUserID uint) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) GetBasicInfoByID(_ context.Context, id uint) (*models.UserBasicInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.UserBasicInfo{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

func (f *fakeUserRepo) GetMultipleBasicInfoByIDs(ctx context.Context, userIDs []uint) ([]*models.UserBasicInfo, error) {
	var infos []*models.UserBasicInfo
	for _, id := range userIDs {
		info, err := f.GetBasicInfoByID(ctx, id)
		if err == nil {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// fakeNotifier records every notification instead of touching Kafka.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

type notifyCall struct {
	recipientID uint
	nType       models.NotificationType
}

func (f *fakeNotifier) Notify(_ context.Context, recipientID uint, nType models.NotificationType, _, _ string, _ uint, _ map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{recipientID: recipientID, nType: nType})
	return nil
}

func (f *fakeNotifier) ListForUser(context.Context, uint, bool, int, int) ([]models.Notification, error) {
	return nil, nil
}
func (f *fakeNotifier) CountUnread(context.Context, uint) (int64, error) { return 0, nil }
func (f *fakeNotifier) MarkRead(context.Context, uint, uint) error      { return nil }
func (f *fakeNotifier) MarkAllRead(context.Context, uint) error         { return nil }

func (f *fakeNotifier) callsFor(recipientID uint) []notifyCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []notifyCall
	for _, call := range f.calls {
		if call.recipientID == recipientID {
			result = append(result, call)
		}
	}
	return result
}
