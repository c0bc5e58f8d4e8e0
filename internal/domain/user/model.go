package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/hatchboard/backend/internal/database"
)

type User struct {
	database.BaseModel
	Email    string `gorm:"column:email;unique;not null"`
	Name     string `gorm:"column:name;not null"`
	Password string `gorm:"column:password;not null"`
	IsActive bool   `gorm:"column:is_active;default:true"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse is the outward-facing shape of a user; the password hash
// never leaves this package.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts a User to its outward-facing representation
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}
