package model

import (
	"time"

	"github.com/google/uuid"
)

// Subscription lifecycle audit actions
const (
	AuditPlanChanged           = "PLAN_CHANGED"
	AuditSubscriptionCancelled = "SUBSCRIPTION_CANCELLED"
	AuditSubscriptionSuspended = "SUBSCRIPTION_SUSPENDED"
	AuditSubscriptionResumed   = "SUBSCRIPTION_REACTIVATED"
	AuditTrialExtended         = "TRIAL_EXTENDED"
	AuditUsageReset            = "USAGE_RESET"
)

// AuditLog records subscription lifecycle events per tenant
type AuditLog struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID    *uuid.UUID `gorm:"type:uuid" json:"user_id,omitempty"`
	Action    string     `gorm:"type:varchar(50);not null;index" json:"action"`
	Details   string     `gorm:"type:text" json:"details"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
