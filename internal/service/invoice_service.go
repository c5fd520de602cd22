package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/plan"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateInvoiceRequest struct {
	WorkOrderID string `json:"work_order_id" binding:"required,uuid"`
	TaxRate     string `json:"tax_rate"` // percentage, e.g. "8.25"
	Notes       string `json:"notes"`

	// Branding is only honored on plans entitled to custom invoices
	BrandingLogoURL string `json:"branding_logo_url"`
	BrandingFooter  string `json:"branding_footer"`
}

type InvoiceService interface {
	List(ctx context.Context, tenantID string, page, limit int) ([]model.Invoice, int64, error)
	Get(ctx context.Context, tenantID, id string) (*model.Invoice, error)
	Create(ctx context.Context, tenantID string, req CreateInvoiceRequest) (*model.Invoice, error)
	Issue(ctx context.Context, tenantID, id string) (*model.Invoice, error)
	MarkPaid(ctx context.Context, tenantID, id string) (*model.Invoice, error)
	SetBranding(ctx context.Context, tenantID, id string, req BrandingRequest) (*model.Invoice, error)
}

type BrandingRequest struct {
	LogoURL string `json:"logo_url" binding:"omitempty,url"`
	Footer  string `json:"footer"`
}

type invoiceService struct {
	repo          repository.InvoiceRepository
	workOrderRepo repository.WorkOrderRepository
	subs          SubscriptionService
}

func NewInvoiceService(repo repository.InvoiceRepository, workOrderRepo repository.WorkOrderRepository, subs SubscriptionService) InvoiceService {
	return &invoiceService{repo: repo, workOrderRepo: workOrderRepo, subs: subs}
}

func (s *invoiceService) List(ctx context.Context, tenantID string, page, limit int) ([]model.Invoice, int64, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, 0, errors.New("invalid tenant id")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListByTenant(ctx, tid, (page-1)*limit, limit)
}

func (s *invoiceService) Get(ctx context.Context, tenantID, id string) (*model.Invoice, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, errors.New("invoice not found")
	}
	iid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.New("invoice not found")
	}
	invoice, err := s.repo.FindByID(ctx, tid, iid)
	if err != nil {
		return nil, errors.New("invoice not found")
	}
	return invoice, nil
}

// ComputeInvoiceTotals derives tax and total from a subtotal and a percentage
// tax rate, rounded to cents.
func ComputeInvoiceTotals(subtotal, taxRate decimal.Decimal) (taxAmount, total decimal.Decimal) {
	taxAmount = subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)
	total = subtotal.Add(taxAmount)
	return taxAmount, total
}

// Create drafts an invoice from a completed work order. Subtotal is the work
// order's labor plus parts cost.
func (s *invoiceService) Create(ctx context.Context, tenantID string, req CreateInvoiceRequest) (*model.Invoice, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, errors.New("invalid tenant id")
	}
	wid, err := uuid.Parse(req.WorkOrderID)
	if err != nil {
		return nil, errors.New("invalid work order id")
	}
	wo, err := s.workOrderRepo.FindByID(ctx, tid, wid)
	if err != nil {
		return nil, errors.New("work order not found")
	}
	if wo.Status != model.WorkOrderCompleted {
		return nil, errors.New("only completed work orders can be invoiced")
	}

	taxRate := decimal.Zero
	if req.TaxRate != "" {
		taxRate, err = decimal.NewFromString(req.TaxRate)
		if err != nil || taxRate.IsNegative() {
			return nil, errors.New("invalid tax rate")
		}
	}

	subtotal := wo.LaborCost.Add(wo.PartsCost)
	taxAmount, total := ComputeInvoiceTotals(subtotal, taxRate)

	invoice := &model.Invoice{
		TenantID:    tid,
		WorkOrderID: wid,
		Subtotal:    subtotal,
		TaxRate:     taxRate,
		TaxAmount:   taxAmount,
		TotalAmount: total,
		Status:      model.InvoiceDraft,
		Notes:       req.Notes,
	}

	// Branding silently drops on plans without the entitlement; the dedicated
	// branding route is feature-guarded and rejects instead
	if req.BrandingLogoURL != "" || req.BrandingFooter != "" {
		if s.subs.HasFeature(ctx, tenantID, plan.FeatureCustomInvoices) {
			invoice.BrandingLogoURL = req.BrandingLogoURL
			invoice.BrandingFooter = req.BrandingFooter
		}
	}

	// Two concurrent creates can race to the same sequence number; the
	// per-tenant unique index catches the loser and we re-derive once more.
	prefix := fmt.Sprintf("INV-%s-", time.Now().Format("200601"))
	var createErr error
	for attempt := 0; attempt < 3; attempt++ {
		seq, err := s.repo.NextInvoiceNo(ctx, tid, prefix)
		if err != nil {
			return nil, err
		}
		invoice.InvoiceNo = fmt.Sprintf("%s%06d", prefix, seq)

		createErr = s.repo.Create(ctx, invoice)
		if createErr == nil {
			return invoice, nil
		}
		if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return nil, createErr
		}
	}
	return nil, createErr
}

func (s *invoiceService) Issue(ctx context.Context, tenantID, id string) (*model.Invoice, error) {
	invoice, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != model.InvoiceDraft {
		return nil, errors.New("only draft invoices can be issued")
	}

	now := time.Now()
	invoice.Status = model.InvoiceIssued
	invoice.IssuedAt = &now
	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// SetBranding overwrites the invoice branding fields. The route is guarded by
// the custom_invoices feature check.
func (s *invoiceService) SetBranding(ctx context.Context, tenantID, id string, req BrandingRequest) (*model.Invoice, error) {
	invoice, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == model.InvoicePaid {
		return nil, errors.New("paid invoices cannot be re-branded")
	}

	invoice.BrandingLogoURL = req.LogoURL
	invoice.BrandingFooter = req.Footer
	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *invoiceService) MarkPaid(ctx context.Context, tenantID, id string) (*model.Invoice, error) {
	invoice, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != model.InvoiceIssued {
		return nil, errors.New("only issued invoices can be marked paid")
	}

	invoice.Status = model.InvoicePaid
	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}
