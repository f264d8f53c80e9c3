package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedmiske/tabaro-sub002/internal/lifecycle"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
)

const (
	ownerID    = uint(1)
	donorID    = uint(2)
	strangerID = uint(3)
)

type offerServiceFixture struct {
	offers   *fakeOfferRepo
	requests *fakeRequestRepo
	users    *fakeUserRepo
	notifier *fakeNotifier
	service  OfferService
}

func newOfferServiceFixture(t *testing.T) *offerServiceFixture {
	t.Helper()
	f := &offerServiceFixture{
		offers:   newFakeOfferRepo(),
		requests: newFakeRequestRepo(),
		users:    newFakeUserRepo(),
		notifier: &fakeNotifier{},
	}
	f.service = NewOfferService(f.offers, f.requests, f.users, f.notifier)

	f.users.add(models.User{BaseModel: models.BaseModel{ID: ownerID}, Username: "amina", FirstName: "Amina", LastName: "Sy"})
	f.users.add(models.User{BaseModel: models.BaseModel{ID: donorID}, Username: "moussa", FirstName: "Moussa", LastName: "Ba"})
	return f
}

func (f *offerServiceFixture) addRequest(t *testing.T, mutate func(*models.DonationRequest)) *models.DonationRequest {
	t.Helper()
	request := &models.DonationRequest{
		OwnerID:  ownerID,
		Kind:     models.KindBlood,
		Title:    "O+ needed at the regional hospital",
		Active:   true,
		Deadline: time.Now().Add(48 * time.Hour),
	}
	if mutate != nil {
		mutate(request)
	}
	require.NoError(t, f.requests.Create(context.Background(), request))
	return request
}

func (f *offerServiceFixture) createOffer(t *testing.T, requestID uint) *models.DonationOffer {
	t.Helper()
	offer, err := f.service.Create(context.Background(), donorID, CreateOfferInput{
		RequestID: requestID,
		Message:   "I can be there tomorrow morning",
		Method:    "in_person",
	})
	require.NoError(t, err)
	return offer
}

func TestCreateOffer(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)

	offer := f.createOffer(t, request.ID)

	assert.Equal(t, lifecycle.StatusPending, offer.Status)
	assert.Equal(t, donorID, offer.DonorID)
	assert.Equal(t, ownerID, offer.RecipientID)
	assert.Equal(t, models.KindBlood, offer.Kind)

	calls := f.notifier.callsFor(ownerID)
	require.Len(t, calls, 1)
	assert.Equal(t, models.NotificationOfferReceived, calls[0].nType)
}

func TestCreateOfferOnOwnRequest(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)

	_, err := f.service.Create(context.Background(), ownerID, CreateOfferInput{RequestID: request.ID})
	assert.ErrorIs(t, err, lifecycle.ErrOwnRequest)
}

func TestCreateOfferOnExpiredRequest(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, func(r *models.DonationRequest) {
		r.Deadline = time.Now().Add(-time.Hour)
	})

	_, err := f.service.Create(context.Background(), donorID, CreateOfferInput{RequestID: request.ID})
	assert.ErrorIs(t, err, lifecycle.ErrRequestExpired)
}

func TestCreateOfferOnInactiveRequest(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, func(r *models.DonationRequest) {
		r.Active = false
	})

	_, err := f.service.Create(context.Background(), donorID, CreateOfferInput{RequestID: request.ID})
	assert.ErrorIs(t, err, lifecycle.ErrRequestInactive)
}

func TestCreateOfferDuplicate(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)

	f.createOffer(t, request.ID)
	_, err := f.service.Create(context.Background(), donorID, CreateOfferInput{RequestID: request.ID})
	assert.ErrorIs(t, err, lifecycle.ErrDuplicateOffer)
}

func TestCreateOfferAgainAfterRejection(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)

	offer := f.createOffer(t, request.ID)
	_, err := f.service.Reject(context.Background(), ownerID, offer.ID)
	require.NoError(t, err)

	// A rejected offer no longer blocks a fresh one.
	second, err := f.service.Create(context.Background(), donorID, CreateOfferInput{RequestID: request.ID})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, second.Status)
}

func TestAcceptOffer(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	accepted, err := f.service.Accept(context.Background(), ownerID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)

	calls := f.notifier.callsFor(donorID)
	require.Len(t, calls, 1)
	assert.Equal(t, models.NotificationOfferAccepted, calls[0].nType)
}

func TestAcceptOfferNotOwner(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	_, err := f.service.Accept(context.Background(), strangerID, offer.ID)
	assert.ErrorIs(t, err, lifecycle.ErrNotOwner)

	_, err = f.service.Accept(context.Background(), donorID, offer.ID)
	assert.ErrorIs(t, err, lifecycle.ErrNotOwner)
}

func TestAcceptOfferTwice(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	_, err := f.service.Accept(context.Background(), ownerID, offer.ID)
	require.NoError(t, err)

	_, err = f.service.Accept(context.Background(), ownerID, offer.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	// The donor was only told once.
	assert.Len(t, f.notifier.callsFor(donorID), 1)
}

func TestRejectThenFulfillConflicts(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	_, err := f.service.Reject(context.Background(), ownerID, offer.ID)
	require.NoError(t, err)

	_, err = f.service.Fulfill(context.Background(), ownerID, offer.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestFullLifecycle(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	_, err := f.service.Accept(context.Background(), ownerID, offer.ID)
	require.NoError(t, err)

	fulfilled, err := f.service.Fulfill(context.Background(), ownerID, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusFulfilled, fulfilled.Status)
	require.NotNil(t, fulfilled.FulfilledAt)

	rated, err := f.service.Rate(context.Background(), ownerID, offer.ID, RateOfferInput{Score: 5, Comment: "quick and kind"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusRated, rated.Status)
	require.NotNil(t, rated.RatingScore)
	assert.Equal(t, 5, *rated.RatingScore)
	assert.Equal(t, "quick and kind", rated.RatingComment)

	// accepted, fulfilled, rated: one notification each.
	assert.Len(t, f.notifier.callsFor(donorID), 3)
}

func TestRateValidation(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	_, err := f.service.Accept(context.Background(), ownerID, offer.ID)
	require.NoError(t, err)
	_, err = f.service.Fulfill(context.Background(), ownerID, offer.ID)
	require.NoError(t, err)

	_, err = f.service.Rate(context.Background(), ownerID, offer.ID, RateOfferInput{Score: 0})
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = f.service.Rate(context.Background(), ownerID, offer.ID, RateOfferInput{Score: 6})
	assert.ErrorIs(t, err, ErrInvalidRating)

	_, err = f.service.Rate(context.Background(), donorID, offer.ID, RateOfferInput{Score: 4})
	assert.ErrorIs(t, err, lifecycle.ErrNotOwner)
}

func TestRateBeforeFulfilled(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	_, err := f.service.Accept(context.Background(), ownerID, offer.ID)
	require.NoError(t, err)

	_, err = f.service.Rate(context.Background(), ownerID, offer.ID, RateOfferInput{Score: 4})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestCancelPendingOffer(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	require.NoError(t, f.service.Cancel(context.Background(), donorID, offer.ID))

	_, err := f.service.GetByID(context.Background(), donorID, offer.ID)
	assert.ErrorIs(t, err, ErrOfferNotFound)
}

func TestCancelAfterAccept(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	_, err := f.service.Accept(context.Background(), ownerID, offer.ID)
	require.NoError(t, err)

	err = f.service.Cancel(context.Background(), donorID, offer.ID)
	assert.ErrorIs(t, err, lifecycle.ErrNotCancellable)
}

func TestCancelByNonDonor(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	err := f.service.Cancel(context.Background(), ownerID, offer.ID)
	assert.ErrorIs(t, err, lifecycle.ErrNotDonor)
}

func TestGetByIDVisibility(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	offer := f.createOffer(t, request.ID)

	_, err := f.service.GetByID(context.Background(), donorID, offer.ID)
	assert.NoError(t, err)
	_, err = f.service.GetByID(context.Background(), ownerID, offer.ID)
	assert.NoError(t, err)
	_, err = f.service.GetByID(context.Background(), strangerID, offer.ID)
	assert.ErrorIs(t, err, ErrOfferNotFound)
}

func TestListForRequestOwnerOnly(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	f.createOffer(t, request.ID)

	offers, err := f.service.ListForRequest(context.Background(), ownerID, request.ID)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	require.NotNil(t, offers[0].DonorInfo)
	assert.Equal(t, "moussa", offers[0].DonorInfo.Username)

	_, err = f.service.ListForRequest(context.Background(), donorID, request.ID)
	assert.ErrorIs(t, err, lifecycle.ErrNotOwner)
}

func TestListReceivedAndSent(t *testing.T) {
	f := newOfferServiceFixture(t)
	request := f.addRequest(t, nil)
	f.createOffer(t, request.ID)

	received, err := f.service.ListReceived(context.Background(), ownerID, "")
	require.NoError(t, err)
	assert.Len(t, received, 1)

	sent, err := f.service.ListSent(context.Background(), donorID, "")
	require.NoError(t, err)
	assert.Len(t, sent, 1)

	sent, err = f.service.ListSent(context.Background(), donorID, models.KindGeneral)
	require.NoError(t, err)
	assert.Empty(t, sent)
}
