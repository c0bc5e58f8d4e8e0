package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/hatchboard/backend/internal/database"
)

// Session binds a refresh token to a user, a device description and a
// validity window. The refresh token is the lookup key and the session's
// sole capability credential; it is never mutated after creation.
type Session struct {
	database.BaseModel

	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	RefreshToken string    `gorm:"column:refresh_token;uniqueIndex;not null" json:"-"`
	ExpiresAt    time.Time `gorm:"column:expires_at;not null;index"`
	IsActive     bool      `gorm:"column:is_active;default:true"`

	UserAgent string `gorm:"column:user_agent;type:text"`
	IPAddress string `gorm:"column:ip_address;type:text"`
	Device    string `gorm:"column:device;type:text"`
}

func (Session) TableName() string {
	return "sessions"
}

// DeviceInfo is descriptive metadata supplied by the caller, already parsed
// from request headers. It is never used for authorization decisions.
type DeviceInfo struct {
	UserAgent string
	IPAddress string
	Device    string
}

// Info is the outward-facing shape of a session; the refresh token is
// stripped before exposure.
type Info struct {
	ID        uuid.UUID `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	Device    string    `json:"device"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToInfo converts a session to its outward-facing representation
func (s *Session) ToInfo() Info {
	return Info{
		ID:        s.ID,
		UserAgent: s.UserAgent,
		IPAddress: s.IPAddress,
		Device:    s.Device,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}
