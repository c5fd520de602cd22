package service

import (
	"context"
	"errors"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShopReport aggregates tenant activity over a time window
type ShopReport struct {
	From                time.Time       `json:"from"`
	To                  time.Time       `json:"to"`
	CompletedWorkOrders int64           `json:"completed_work_orders"`
	OpenWorkOrders      int64           `json:"open_work_orders"`
	PaidRevenue         decimal.Decimal `json:"paid_revenue"`
}

type ReportService interface {
	ShopSummary(ctx context.Context, tenantID string, since time.Time) (*ShopReport, error)
}

type reportService struct {
	workOrderRepo repository.WorkOrderRepository
	invoiceRepo   repository.InvoiceRepository
}

func NewReportService(workOrderRepo repository.WorkOrderRepository, invoiceRepo repository.InvoiceRepository) ReportService {
	return &reportService{workOrderRepo: workOrderRepo, invoiceRepo: invoiceRepo}
}

func (s *reportService) ShopSummary(ctx context.Context, tenantID string, since time.Time) (*ShopReport, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, errors.New("invalid tenant id")
	}

	completed, err := s.workOrderRepo.CountByStatusSince(ctx, tid, model.WorkOrderCompleted, since)
	if err != nil {
		return nil, err
	}
	open, err := s.workOrderRepo.CountByStatusSince(ctx, tid, model.WorkOrderOpen, since)
	if err != nil {
		return nil, err
	}
	revenue, err := s.invoiceRepo.SumPaidSince(ctx, tid, since)
	if err != nil {
		return nil, err
	}

	return &ShopReport{
		From:                since,
		To:                  time.Now(),
		CompletedWorkOrders: completed,
		OpenWorkOrders:      open,
		PaidRevenue:         revenue,
	}, nil
}
