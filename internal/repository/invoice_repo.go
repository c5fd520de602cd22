package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	Update(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Invoice, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]model.Invoice, int64, error)
	SumPaidSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (decimal.Decimal, error)
	// NextInvoiceNo returns the next sequence number within the tenant's
	// numbering prefix (e.g. "INV-202608-"). Derived from the highest suffix
	// already issued, so deleted or failed drafts never shrink the sequence;
	// the composite unique index backstops concurrent readers.
	NextInvoiceNo(ctx context.Context, tenantID uuid.UUID, prefix string) (int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Save(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := GetDB(ctx, r.db).Preload("WorkOrder").
		Where("tenant_id = ? AND id = ?", tenantID, id).First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("tenant_id = ?", tenantID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *invoiceRepository) SumPaidSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var row struct {
		Value decimal.Decimal
	}
	err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select("COALESCE(SUM(total_amount), 0) as value").
		Where("tenant_id = ? AND status = ? AND created_at >= ?", tenantID, model.InvoicePaid, since).
		Scan(&row).Error
	return row.Value, err
}

func (r *invoiceRepository) NextInvoiceNo(ctx context.Context, tenantID uuid.UUID, prefix string) (int64, error) {
	var row struct {
		Seq int64
	}
	err := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Select("COALESCE(MAX(CAST(RIGHT(invoice_no, 6) AS INTEGER)), 0) + 1 AS seq").
		Where("tenant_id = ? AND invoice_no LIKE ?", tenantID, prefix+"%").
		Scan(&row).Error
	return row.Seq, err
}
