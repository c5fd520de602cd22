package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkOrder status enum constants
const (
	WorkOrderOpen       = "OPEN"
	WorkOrderInProgress = "IN_PROGRESS"
	WorkOrderCompleted  = "COMPLETED"
	WorkOrderCancelled  = "CANCELLED"
)

// WorkOrder is a single service job on a vehicle
type WorkOrder struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	VehicleID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	Vehicle     *Vehicle   `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Status      string     `gorm:"type:varchar(20);not null;default:'OPEN';index" json:"status"`
	AssignedTo  *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to,omitempty"`
	Assignee    *User      `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	CreatedBy   uuid.UUID  `gorm:"type:uuid;not null" json:"created_by"`

	LaborCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"labor_cost"`
	PartsCost decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"parts_cost"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
