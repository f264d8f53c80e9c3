package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedmiske/tabaro-sub002/internal/lifecycle"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/storage"
)

type requestServiceFixture struct {
	requests *fakeRequestRepo
	offers   *fakeOfferRepo
	users    *fakeUserRepo
	service  RequestService
}

func newRequestServiceFixture(t *testing.T) *requestServiceFixture {
	t.Helper()
	f := &requestServiceFixture{
		requests: newFakeRequestRepo(),
		offers:   newFakeOfferRepo(),
		users:    newFakeUserRepo(),
	}
	f.service = NewRequestService(f.requests, f.offers, f.users)
	f.users.add(models.User{BaseModel: models.BaseModel{ID: ownerID}, Username: "amina", FirstName: "Amina", LastName: "Sy"})
	return f
}

func validCreateInput() CreateRequestInput {
	return CreateRequestInput{
		Kind:      models.KindBlood,
		Title:     "O+ needed at the regional hospital",
		Place:     "Nouakchott",
		Deadline:  time.Now().Add(72 * time.Hour),
		BloodType: "O+",
		ContactMethods: []ContactMethodInput{
			{Method: "phone", Number: "22233344"},
			{Method: "whatsapp", Number: "22233344"},
		},
	}
}

func TestCreateRequest(t *testing.T) {
	f := newRequestServiceFixture(t)

	request, err := f.service.Create(context.Background(), ownerID, validCreateInput())
	require.NoError(t, err)

	assert.True(t, request.Active)
	assert.Equal(t, ownerID, request.OwnerID)
	require.Len(t, request.ContactMethods, 2)
	assert.Equal(t, 0, request.ContactMethods[0].Position)
	assert.Equal(t, 1, request.ContactMethods[1].Position)
}

func TestCreateRequestValidation(t *testing.T) {
	f := newRequestServiceFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateRequestInput)
	}{
		{"missing title", func(in *CreateRequestInput) { in.Title = "" }},
		{"past deadline", func(in *CreateRequestInput) { in.Deadline = time.Now().Add(-time.Hour) }},
		{"zero deadline", func(in *CreateRequestInput) { in.Deadline = time.Time{} }},
		{"blood without blood type", func(in *CreateRequestInput) { in.BloodType = "" }},
		{"unknown kind", func(in *CreateRequestInput) { in.Kind = "organ" }},
		{"no contact methods", func(in *CreateRequestInput) { in.ContactMethods = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validCreateInput()
			tc.mutate(&input)
			_, err := f.service.Create(ctx, ownerID, input)
			assert.ErrorIs(t, err, ErrInvalidRequestInput)
		})
	}

	general := validCreateInput()
	general.Kind = models.KindGeneral
	general.BloodType = ""
	general.Category = ""
	_, err := f.service.Create(ctx, ownerID, general)
	assert.ErrorIs(t, err, ErrInvalidRequestInput)

	general.Category = "medical equipment"
	_, err = f.service.Create(ctx, ownerID, general)
	assert.NoError(t, err)
}

func TestGetRequestDisclosure(t *testing.T) {
	f := newRequestServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, ownerID, validCreateInput())
	require.NoError(t, err)

	// The owner always sees the contact methods.
	got, err := f.service.Get(ctx, ownerID, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.ContactMethods, 2)
	require.NotNil(t, got.OwnerInfo)
	assert.Equal(t, "amina", got.OwnerInfo.Username)
	assert.False(t, got.Expired)

	// A stranger sees the request without them.
	got, err = f.service.Get(ctx, strangerID, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ContactMethods)

	// A donor with a pending offer still does not see them.
	require.NoError(t, f.offers.Create(ctx, &models.DonationOffer{
		RequestID: created.ID, DonorID: donorID, RecipientID: ownerID, Status: lifecycle.StatusPending,
	}))
	got, err = f.service.Get(ctx, donorID, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ContactMethods)

	// Acceptance discloses them.
	updated, err := f.offers.UpdateStatusIf(ctx, 1, lifecycle.StatusPending, lifecycle.StatusAccepted, nil)
	require.NoError(t, err)
	require.True(t, updated)
	got, err = f.service.Get(ctx, donorID, created.ID)
	require.NoError(t, err)
	assert.Len(t, got.ContactMethods, 2)
}

func TestGetRequestExpiry(t *testing.T) {
	f := newRequestServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, ownerID, validCreateInput())
	require.NoError(t, err)

	// Push the stored deadline into the past; expiry must show up on the
	// next read without any background job touching the row.
	stored, err := f.requests.GetByID(ctx, created.ID)
	require.NoError(t, err)
	stored.Deadline = time.Now().Add(-time.Minute)
	require.NoError(t, f.requests.Update(ctx, stored))

	got, err := f.service.Get(ctx, ownerID, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Expired)
	assert.True(t, got.Active, "expiry does not flip the active toggle")
}

func TestGetRequestNotFound(t *testing.T) {
	f := newRequestServiceFixture(t)
	_, err := f.service.Get(context.Background(), ownerID, 99)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestListStripsContactMethods(t *testing.T) {
	f := newRequestServiceFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, ownerID, validCreateInput())
	require.NoError(t, err)

	listed, err := f.service.List(ctx, strangerID, storage.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Empty(t, listed[0].ContactMethods)

	own, err := f.service.List(ctx, ownerID, storage.RequestFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Len(t, own[0].ContactMethods, 2)
}

func TestUpdateRequest(t *testing.T) {
	f := newRequestServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, ownerID, validCreateInput())
	require.NoError(t, err)

	input := UpdateRequestInput{
		Title:     "B- needed urgently",
		IsUrgent:  true,
		Deadline:  time.Now().Add(24 * time.Hour),
		BloodType: "B-",
		ContactMethods: []ContactMethodInput{
			{Method: "phone", Number: "99887766"},
		},
	}
	updated, err := f.service.Update(ctx, ownerID, created.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "B- needed urgently", updated.Title)
	assert.True(t, updated.IsUrgent)
	require.Len(t, updated.ContactMethods, 1)
	assert.Equal(t, "99887766", updated.ContactMethods[0].Number)

	_, err = f.service.Update(ctx, strangerID, created.ID, input)
	assert.ErrorIs(t, err, lifecycle.ErrNotOwner)
}

func TestSetActivePermissions(t *testing.T) {
	f := newRequestServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, ownerID, validCreateInput())
	require.NoError(t, err)

	assert.ErrorIs(t, f.service.SetActive(ctx, strangerID, false, created.ID, false), lifecycle.ErrNotOwner)

	// An admin who is not the owner can deactivate.
	require.NoError(t, f.service.SetActive(ctx, strangerID, true, created.ID, false))
	got, err := f.requests.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	// The owner can bring it back.
	require.NoError(t, f.service.SetActive(ctx, ownerID, false, created.ID, true))
}

func TestDeleteRequestPermissions(t *testing.T) {
	f := newRequestServiceFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, ownerID, validCreateInput())
	require.NoError(t, err)

	assert.ErrorIs(t, f.service.Delete(ctx, strangerID, false, created.ID), lifecycle.ErrNotOwner)
	require.NoError(t, f.service.Delete(ctx, ownerID, false, created.ID))

	_, err = f.service.Get(ctx, ownerID, created.ID)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}
