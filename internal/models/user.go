package models

import "time"

// UserRole distinguishes regular accounts from platform moderators.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User represents an account on the platform. The same account can act as a
// requester (owner of donation requests) and as a donor (author of offers).
type User struct {
	BaseModel
	Username     string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"` // never exposed
	Email        string     `gorm:"type:varchar(100);uniqueIndex" json:"email,omitempty"`
	FirstName    string     `gorm:"type:varchar(100);not null" json:"firstName"`
	LastName     string     `gorm:"type:varchar(100);not null" json:"lastName"`
	Phone        string     `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Role         UserRole   `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	AvatarURL    string     `gorm:"type:varchar(255)" json:"avatarUrl,omitempty"`
	Bio          string     `gorm:"type:text" json:"bio,omitempty"`
	LastSeenAt   *time.Time `json:"lastSeenAt,omitempty"`

	Requests []DonationRequest `gorm:"foreignKey:OwnerID" json:"requests,omitempty"`
	Offers   []DonationOffer   `gorm:"foreignKey:DonorID" json:"offers,omitempty"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserBasicInfo holds minimal public information about a user.
// Used when embedding owner/donor details in request and offer responses.
type UserBasicInfo struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}
