package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedmiske/tabaro-sub002/internal/lifecycle"
	"github.com/ahmedmiske/tabaro-sub002/internal/middleware"
	"github.com/ahmedmiske/tabaro-sub002/internal/models"
	"github.com/ahmedmiske/tabaro-sub002/internal/services"
)

// stubOfferService returns canned results so the handler's decoding and
// status mapping can be tested without repositories.
type stubOfferService struct {
	offer *models.DonationOffer
	err   error
}

func (s *stubOfferService) Create(context.Context, uint, services.CreateOfferInput) (*models.DonationOffer, error) {
	return s.offer, s.err
}
func (s *stubOfferService) Accept(context.Context, uint, uint) (*models.DonationOffer, error) {
	return s.offer, s.err
}
func (s *stubOfferService) Reject(context.Context, uint, uint) (*models.DonationOffer, error) {
	return s.offer, s.err
}
func (s *stubOfferService) Fulfill(context.Context, uint, uint) (*models.DonationOffer, error) {
	return s.offer, s.err
}
func (s *stubOfferService) Rate(context.Context, uint, uint, services.RateOfferInput) (*models.DonationOffer, error) {
	return s.offer, s.err
}
func (s *stubOfferService) Cancel(context.Context, uint, uint) error { return s.err }
func (s *stubOfferService) GetByID(context.Context, uint, uint) (*models.DonationOffer, error) {
	return s.offer, s.err
}
func (s *stubOfferService) ListForRequest(context.Context, uint, uint) ([]models.OfferWithDonor, error) {
	return nil, s.err
}
func (s *stubOfferService) ListReceived(context.Context, uint, models.DonationKind) ([]models.OfferWithDonor, error) {
	return nil, s.err
}
func (s *stubOfferService) ListSent(context.Context, uint, models.DonationKind) ([]models.DonationOffer, error) {
	return nil, s.err
}

func newOfferRouter(svc services.OfferService) *mux.Router {
	h := NewOfferHandler(svc, models.KindBlood)
	r := mux.NewRouter()
	r.HandleFunc("/api/donation-confirmations", h.CreateHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/donation-confirmations/mine", h.MineHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/donation-confirmations/sent", h.SentHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/donation-confirmations/request/{id:[0-9]+}", h.ListForRequestHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/donation-confirmations/{id:[0-9]+}/{action}", h.TransitionHandler).Methods(http.MethodPatch)
	r.HandleFunc("/api/donation-confirmations/{id:[0-9]+}", h.CancelHandler).Methods(http.MethodDelete)
	r.HandleFunc("/api/donation-confirmations/{id:[0-9]+}", h.GetHandler).Methods(http.MethodGet)
	return r
}

func doAuthed(t *testing.T, router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, uint(1))
	ctx = context.WithValue(ctx, middleware.RoleKey, "user")
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTransitionStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"state conflict", lifecycle.ErrInvalidTransition, http.StatusConflict},
		{"not owner", lifecycle.ErrNotOwner, http.StatusForbidden},
		{"not found", services.ErrOfferNotFound, http.StatusNotFound},
		{"invalid rating", services.ErrInvalidRating, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newOfferRouter(&stubOfferService{err: tc.serviceErr})
			rec := doAuthed(t, router, http.MethodPatch, "/api/donation-confirmations/5/accept", "")
			assert.Equal(t, tc.wantStatus, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestTransitionSuccess(t *testing.T) {
	offer := &models.DonationOffer{
		BaseModel: models.BaseModel{ID: 5},
		Status:    lifecycle.StatusAccepted,
	}
	router := newOfferRouter(&stubOfferService{offer: offer})
	rec := doAuthed(t, router, http.MethodPatch, "/api/donation-confirmations/5/accept", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.DonationOffer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, lifecycle.StatusAccepted, got.Status)
}

func TestTransitionUnknownAction(t *testing.T) {
	router := newOfferRouter(&stubOfferService{})
	rec := doAuthed(t, router, http.MethodPatch, "/api/donation-confirmations/5/approve", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransitionRequiresAuth(t *testing.T) {
	router := newOfferRouter(&stubOfferService{})
	req := httptest.NewRequest(http.MethodPatch, "/api/donation-confirmations/5/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateValidation(t *testing.T) {
	router := newOfferRouter(&stubOfferService{})

	rec := doAuthed(t, router, http.MethodPost, "/api/donation-confirmations", `{"method":"in_person"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing requestId")

	rec = doAuthed(t, router, http.MethodPost, "/api/donation-confirmations", `{"requestId":3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing method")

	rec = doAuthed(t, router, http.MethodPost, "/api/donation-confirmations", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"duplicate open offer", lifecycle.ErrDuplicateOffer, http.StatusConflict},
		{"own request", lifecycle.ErrOwnRequest, http.StatusBadRequest},
		{"expired request", lifecycle.ErrRequestExpired, http.StatusBadRequest},
		{"inactive request", lifecycle.ErrRequestInactive, http.StatusBadRequest},
		{"request missing", services.ErrRequestNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newOfferRouter(&stubOfferService{err: tc.serviceErr})
			rec := doAuthed(t, router, http.MethodPost, "/api/donation-confirmations",
				`{"requestId":3,"method":"in_person"}`)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestCreateSuccess(t *testing.T) {
	offer := &models.DonationOffer{
		BaseModel: models.BaseModel{ID: 9},
		RequestID: 3,
		Status:    lifecycle.StatusPending,
	}
	router := newOfferRouter(&stubOfferService{offer: offer})
	rec := doAuthed(t, router, http.MethodPost, "/api/donation-confirmations",
		`{"requestId":3,"method":"in_person","message":"tomorrow works"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCancelStatusMapping(t *testing.T) {
	router := newOfferRouter(&stubOfferService{err: lifecycle.ErrNotCancellable})
	rec := doAuthed(t, router, http.MethodDelete, "/api/donation-confirmations/5", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	router = newOfferRouter(&stubOfferService{err: lifecycle.ErrNotDonor})
	rec = doAuthed(t, router, http.MethodDelete, "/api/donation-confirmations/5", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	router = newOfferRouter(&stubOfferService{})
	rec = doAuthed(t, router, http.MethodDelete, "/api/donation-confirmations/5", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
