package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice status enum constants
const (
	InvoiceDraft  = "DRAFT"
	InvoiceIssued = "ISSUED"
	InvoicePaid   = "PAID"
)

// Invoice is a billing document issued from a completed work order.
// Amounts are kept in decimal to avoid float drift.
type Invoice struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID    uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_tenant_no,priority:1" json:"tenant_id"`
	WorkOrderID uuid.UUID  `gorm:"type:uuid;not null;index" json:"work_order_id"`
	WorkOrder   *WorkOrder `gorm:"foreignKey:WorkOrderID" json:"work_order,omitempty"`
	// Numbers are unique per tenant, not globally; two shops may both hold
	// INV-202608-000001
	InvoiceNo string `gorm:"type:varchar(30);not null;uniqueIndex:idx_invoices_tenant_no,priority:2" json:"invoice_no"`

	Subtotal    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0" json:"tax_rate"`
	TaxAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"tax_amount"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`

	Status string `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	Notes  string `gorm:"type:text" json:"notes"`

	// Branding fields, only settable on plans entitled to custom invoices
	BrandingLogoURL string `gorm:"type:text" json:"branding_logo_url,omitempty"`
	BrandingFooter  string `gorm:"type:text" json:"branding_footer,omitempty"`

	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
