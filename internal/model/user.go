package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a staff account. Tenant users carry a tenant role; platform staff carry
// a global role and no tenant.
type User struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID   *uuid.UUID `gorm:"type:uuid;index" json:"tenant_id,omitempty"`
	Tenant     *Tenant    `gorm:"foreignKey:TenantID" json:"-"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	Email      string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password   string     `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never serialized
	TenantRole string     `gorm:"type:varchar(30)" json:"tenant_role,omitempty"`
	GlobalRole string     `gorm:"type:varchar(30)" json:"global_role,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Role resolves the effective role: tenant role when present, else global role
func (u *User) Role() string {
	if u.TenantRole != "" {
		return u.TenantRole
	}
	return u.GlobalRole
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
