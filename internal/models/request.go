package models

import "time"

// DonationKind tags the two request variants. Blood requests carry a blood
// type; general requests carry a category and an amount. The offer lifecycle
// is identical for both.
type DonationKind string

const (
	KindBlood   DonationKind = "blood"
	KindGeneral DonationKind = "general"
)

// DonationRequest is a posted need, owned by the user who created it. The
// owner is fixed at creation; only the owner may drive offer transitions
// against the request.
//
// A request never stores an "expired" flag: expiry is derived from Deadline
// at read time (see lifecycle.IsActive). Active is the owner/admin visibility
// toggle, independent of the deadline.
type DonationRequest struct {
	BaseModel
	OwnerID     uint         `gorm:"not null;index" json:"ownerId"`
	Kind        DonationKind `gorm:"type:varchar(10);not null;index" json:"kind"`
	Title       string       `gorm:"type:varchar(200);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Place       string       `gorm:"type:varchar(200)" json:"place,omitempty"`
	IsUrgent    bool         `gorm:"default:false" json:"isUrgent"`
	Active      bool         `gorm:"default:true" json:"active"`
	Deadline    time.Time    `gorm:"not null;index" json:"deadline"`

	// Blood variant only.
	BloodType string `gorm:"type:varchar(5)" json:"bloodType,omitempty"`

	// General variant only.
	Category string  `gorm:"type:varchar(100)" json:"category,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
	Unit     string  `gorm:"type:varchar(30)" json:"unit,omitempty"`

	ContactMethods []ContactMethod `gorm:"foreignKey:RequestID" json:"contactMethods,omitempty"`
	Owner          User            `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Offers         []DonationOffer `gorm:"foreignKey:RequestID" json:"offers,omitempty"`
}

// TableName specifies the table name for the DonationRequest model.
func (DonationRequest) TableName() string {
	return "donation_requests"
}

// ContactMethod is one way to reach a request owner (phone, whatsapp, ...).
// The list is ordered by Position and disclosed conditionally: only to the
// owner, and to donors whose offer has been accepted.
type ContactMethod struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	RequestID uint   `gorm:"not null;index" json:"requestId"`
	Position  int    `gorm:"not null;default:0" json:"position"`
	Method    string `gorm:"type:varchar(30);not null" json:"method"`
	Number    string `gorm:"type:varchar(50);not null" json:"number"`
}

// TableName specifies the table name for the ContactMethod model.
func (ContactMethod) TableName() string {
	return "contact_methods"
}

// RequestWithOwner is a DTO enriching a request with its owner's public info
// and the derived expiry state. ContactMethods is nil unless the viewer
// satisfies the disclosure rule.
type RequestWithOwner struct {
	DonationRequest
	OwnerInfo *UserBasicInfo `json:"ownerInfo,omitempty"`
	Expired   bool           `json:"expired"`
}
