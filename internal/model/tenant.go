package model

import (
	"time"

	"backend/internal/plan"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Subscription status enum constants
const (
	StatusTrial     = "trial"
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusSuspended = "suspended"
)

// Usage tracks per-tenant consumption against the snapshot limits
type Usage struct {
	WorkOrders int64 `gorm:"not null;default:0" json:"workOrders"`
	Users      int64 `gorm:"not null;default:0" json:"users"`
	StorageMB  int64 `gorm:"not null;default:0" json:"storage"`
	APICalls   int64 `gorm:"not null;default:0" json:"apiCalls"`
}

// Get returns the counter for one limit type, 0 for unknown types
func (u Usage) Get(t plan.LimitType) int64 {
	switch t {
	case plan.LimitWorkOrders:
		return u.WorkOrders
	case plan.LimitUsers:
		return u.Users
	case plan.LimitStorage:
		return u.StorageMB
	case plan.LimitAPICalls:
		return u.APICalls
	}
	return 0
}

// Tenant is one customer shop. Limits and Features are snapshot-copied from the
// plan catalog at assignment time; a later catalog change does not retroactively
// affect existing tenants until the plan is changed again.
type Tenant struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug            string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Plan            string         `gorm:"type:varchar(30);not null;default:'starter'" json:"plan"`
	Status          string         `gorm:"type:varchar(20);not null;default:'trial';index" json:"status"`
	ExpiresAt       time.Time      `gorm:"not null" json:"expires_at"`
	Limits          plan.Limits    `gorm:"embedded;embeddedPrefix:limit_" json:"limits"`
	Usage           Usage          `gorm:"embedded;embeddedPrefix:usage_" json:"usage"`
	Features        pq.StringArray `gorm:"type:text[]" json:"features"`
	SuspendedReason string         `gorm:"type:text" json:"suspended_reason,omitempty"`

	// External billing references, opaque to this service
	StripeCustomerID     string `gorm:"type:varchar(255)" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string `gorm:"type:varchar(255)" json:"stripe_subscription_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// HasFeature checks the snapshot feature list
func (t *Tenant) HasFeature(feature string) bool {
	for _, f := range t.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// IsWithinLimits reports whether every usage counter is under its ceiling or unlimited
func (t *Tenant) IsWithinLimits() bool {
	for _, lt := range plan.LimitTypes {
		limit := t.Limits.Get(lt)
		if limit == plan.Unlimited {
			continue
		}
		if t.Usage.Get(lt) > limit {
			return false
		}
	}
	return true
}
