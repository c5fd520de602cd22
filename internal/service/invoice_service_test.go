package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeInvoiceRepo stores invoices in memory and enforces the per-tenant
// (tenant_id, invoice_no) unique index. staleReads makes NextInvoiceNo return
// an already-taken sequence for the first N calls, standing in for a
// concurrent create racing to the same number.
type fakeInvoiceRepo struct {
	invoices   map[string]*model.Invoice // keyed by tenantID/invoiceNo
	staleReads int
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{invoices: make(map[string]*model.Invoice)}
}

func invoiceKey(tenantID uuid.UUID, invoiceNo string) string {
	return tenantID.String() + "/" + invoiceNo
}

func (r *fakeInvoiceRepo) Create(_ context.Context, invoice *model.Invoice) error {
	key := invoiceKey(invoice.TenantID, invoice.InvoiceNo)
	if _, taken := r.invoices[key]; taken {
		return gorm.ErrDuplicatedKey
	}
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	cp := *invoice
	r.invoices[key] = &cp
	return nil
}

func (r *fakeInvoiceRepo) Update(_ context.Context, invoice *model.Invoice) error {
	key := invoiceKey(invoice.TenantID, invoice.InvoiceNo)
	if _, ok := r.invoices[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *invoice
	r.invoices[key] = &cp
	return nil
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.Invoice, error) {
	for _, inv := range r.invoices {
		if inv.TenantID == tenantID && inv.ID == id {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvoiceRepo) ListByTenant(_ context.Context, tenantID uuid.UUID, _, _ int) ([]model.Invoice, int64, error) {
	var out []model.Invoice
	for _, inv := range r.invoices {
		if inv.TenantID == tenantID {
			out = append(out, *inv)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeInvoiceRepo) SumPaidSince(context.Context, uuid.UUID, time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (r *fakeInvoiceRepo) NextInvoiceNo(_ context.Context, tenantID uuid.UUID, prefix string) (int64, error) {
	var max int64
	for _, inv := range r.invoices {
		if inv.TenantID != tenantID || !strings.HasPrefix(inv.InvoiceNo, prefix) {
			continue
		}
		seq, err := strconv.ParseInt(inv.InvoiceNo[len(prefix):], 10, 64)
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}
	next := max + 1
	if r.staleReads > 0 && max > 0 {
		r.staleReads--
		next = max // already taken; the insert will hit the unique index
	}
	return next, nil
}

// fakeWorkOrderRepo serves a fixed set of work orders to invoice from
type fakeWorkOrderRepo struct {
	orders map[uuid.UUID]*model.WorkOrder
}

func (r *fakeWorkOrderRepo) Create(context.Context, *model.WorkOrder) error { return nil }
func (r *fakeWorkOrderRepo) Update(context.Context, *model.WorkOrder) error { return nil }
func (r *fakeWorkOrderRepo) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}
func (r *fakeWorkOrderRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.WorkOrder, error) {
	wo, ok := r.orders[id]
	if !ok || wo.TenantID != tenantID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *wo
	return &cp, nil
}
func (r *fakeWorkOrderRepo) ListByTenant(context.Context, uuid.UUID, string, int, int) ([]model.WorkOrder, int64, error) {
	return nil, 0, nil
}
func (r *fakeWorkOrderRepo) CountByStatusSince(context.Context, uuid.UUID, string, time.Time) (int64, error) {
	return 0, nil
}

func completedWorkOrder(tenantID uuid.UUID) *model.WorkOrder {
	return &model.WorkOrder{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Status:    model.WorkOrderCompleted,
		LaborCost: decimal.RequireFromString("100.00"),
		PartsCost: decimal.RequireFromString("50.00"),
	}
}

func invoiceFixture(woRepo *fakeWorkOrderRepo, tenantID uuid.UUID) *model.WorkOrder {
	wo := completedWorkOrder(tenantID)
	woRepo.orders[wo.ID] = wo
	return wo
}

func TestCreateInvoiceNumberingPerTenant(t *testing.T) {
	repo := newFakeInvoiceRepo()
	woRepo := &fakeWorkOrderRepo{orders: make(map[uuid.UUID]*model.WorkOrder)}
	svc := NewInvoiceService(repo, woRepo, nil)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()
	month := time.Now().Format("200601")

	// both tenants invoice for the first time in the same month and each gets
	// sequence 1 under its own numbering
	first, err := svc.Create(ctx, tenantA.String(), CreateInvoiceRequest{
		WorkOrderID: invoiceFixture(woRepo, tenantA).ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%s-000001", month), first.InvoiceNo)

	other, err := svc.Create(ctx, tenantB.String(), CreateInvoiceRequest{
		WorkOrderID: invoiceFixture(woRepo, tenantB).ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%s-000001", month), other.InvoiceNo)

	// the same tenant's next invoice advances its own sequence
	second, err := svc.Create(ctx, tenantA.String(), CreateInvoiceRequest{
		WorkOrderID: invoiceFixture(woRepo, tenantA).ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%s-000002", month), second.InvoiceNo)
}

func TestCreateInvoiceRetriesOnDuplicateNumber(t *testing.T) {
	repo := newFakeInvoiceRepo()
	woRepo := &fakeWorkOrderRepo{orders: make(map[uuid.UUID]*model.WorkOrder)}
	svc := NewInvoiceService(repo, woRepo, nil)
	ctx := context.Background()

	tenantID := uuid.New()
	_, err := svc.Create(ctx, tenantID.String(), CreateInvoiceRequest{
		WorkOrderID: invoiceFixture(woRepo, tenantID).ID.String(),
	})
	require.NoError(t, err)

	// the next sequence read is stale, so the first insert collides and the
	// create succeeds on the re-derived number
	repo.staleReads = 1
	invoice, err := svc.Create(ctx, tenantID.String(), CreateInvoiceRequest{
		WorkOrderID: invoiceFixture(woRepo, tenantID).ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%s-000002", time.Now().Format("200601")), invoice.InvoiceNo)
	assert.Len(t, repo.invoices, 2)
}

var _ repository.InvoiceRepository = (*fakeInvoiceRepo)(nil)
var _ repository.WorkOrderRepository = (*fakeWorkOrderRepo)(nil)

func TestComputeInvoiceTotals(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		taxRate  string
		wantTax  string
		wantTot  string
	}{
		{name: "typical sales tax", subtotal: "100.00", taxRate: "8.25", wantTax: "8.25", wantTot: "108.25"},
		{name: "rounds half up to cents", subtotal: "19.99", taxRate: "7.5", wantTax: "1.5", wantTot: "21.49"},
		{name: "zero tax", subtotal: "250.00", taxRate: "0", wantTax: "0", wantTot: "250"},
		{name: "zero subtotal", subtotal: "0", taxRate: "10", wantTax: "0", wantTot: "0"},
		{name: "repeating decimal rounds", subtotal: "33.33", taxRate: "6", wantTax: "2", wantTot: "35.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal := decimal.RequireFromString(tt.subtotal)
			taxRate := decimal.RequireFromString(tt.taxRate)

			tax, total := ComputeInvoiceTotals(subtotal, taxRate)
			assert.True(t, tax.Equal(decimal.RequireFromString(tt.wantTax)),
				"tax: got %s want %s", tax, tt.wantTax)
			assert.True(t, total.Equal(decimal.RequireFromString(tt.wantTot)),
				"total: got %s want %s", total, tt.wantTot)
		})
	}
}
