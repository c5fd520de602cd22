package model

import (
	"time"

	"github.com/google/uuid"
)

// Vehicle is a customer vehicle registered with a shop
type Vehicle struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Make         string    `gorm:"type:varchar(100);not null" json:"make"`
	Model        string    `gorm:"type:varchar(100);not null" json:"model"`
	Year         int       `gorm:"not null" json:"year"`
	LicensePlate string    `gorm:"type:varchar(20);not null;index" json:"license_plate"`
	VIN          string    `gorm:"type:varchar(17)" json:"vin"`
	OwnerName    string    `gorm:"type:varchar(255)" json:"owner_name"`
	OwnerPhone   string    `gorm:"type:varchar(20)" json:"owner_phone"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
