package models

import (
	"time"

	"github.com/ahmedmiske/tabaro-sub002/internal/lifecycle"
)

// DonationOffer (a "confirmation" in the API surface) is a donor's response
// to a donation request. Its status advances through the fixed lifecycle in
// the lifecycle package: pending -> accepted|rejected, accepted -> fulfilled,
// fulfilled -> rated.
//
// The partial unique index on (request_id, donor_id) holds while the offer is
// in a non-terminal status, so the same donor cannot hold two open offers on
// one request even under concurrent submissions.
type DonationOffer struct {
	BaseModel
	RequestID uint `gorm:"not null;index;uniqueIndex:uniq_open_offer,where:status <> 'rejected' AND status <> 'rated'" json:"requestId"`
	DonorID   uint `gorm:"not null;index;uniqueIndex:uniq_open_offer" json:"donorId"`
	// RecipientID is the request owner at creation time, denormalized so a
	// user's received offers can be listed without joining requests.
	RecipientID uint         `gorm:"not null;index" json:"recipientId"`
	Kind        DonationKind `gorm:"type:varchar(10);not null;index" json:"kind"`

	Message      string           `gorm:"type:text" json:"message,omitempty"`
	Method       string           `gorm:"type:varchar(50);not null" json:"method"`
	ProposedTime *time.Time       `json:"proposedTime,omitempty"`
	Status       lifecycle.Status `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	FulfilledAt *time.Time `json:"fulfilledAt,omitempty"`
	RatedAt     *time.Time `json:"ratedAt,omitempty"`

	// Rating is recorded by the request owner on the fulfilled -> rated
	// transition.
	RatingScore   *int   `json:"ratingScore,omitempty"`
	RatingComment string `gorm:"type:text" json:"ratingComment,omitempty"`

	Donor   User            `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
	Request DonationRequest `gorm:"foreignKey:RequestID" json:"request,omitempty"`
}

// TableName specifies the table name for the DonationOffer model.
func (DonationOffer) TableName() string {
	return "donation_offers"
}

// OfferWithDonor is a DTO that includes offer details along with basic
// information about the donor, for the owner's review list.
type OfferWithDonor struct {
	DonationOffer
	DonorInfo *UserBasicInfo `json:"donorInfo"`
}
