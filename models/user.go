package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleCreator:
		return RoleCreator, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// DefaultAvatarURL is used when a user registers without a photo.
const DefaultAvatarURL = "https://i.ibb.co/hRNkzFqh/smiling-redhaired-boy-illustrati.png"

// User is a registered account. Identity is owned by the external auth provider;
// this record carries the profile and the platform role.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;not null"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Email     string    `json:"email" gorm:"type:text;not null;uniqueIndex:idx_user_email"`
	PhotoURL  string    `json:"photoURL" gorm:"type:text"`
	Role      Role      `json:"role" gorm:"type:text;not null;default:user;index:idx_user_role"`
	Bio       string    `json:"bio" gorm:"type:text"`
	Address   string    `json:"address" gorm:"type:text"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// AdminBootstrap is a singleton row. Its primary key is fixed, so at most one
// admin can ever be created through self-service bootstrap.
type AdminBootstrap struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement:false"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminBootstrapSlot is the only valid AdminBootstrap primary key.
const AdminBootstrapSlot = 1
