package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/plan"
	"backend/internal/repository"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs
type CreateWorkOrderRequest struct {
	VehicleID   string `json:"vehicle_id" binding:"required,uuid"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to" binding:"omitempty,uuid"`
}

type UpdateWorkOrderRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status" binding:"omitempty,oneof=OPEN IN_PROGRESS COMPLETED CANCELLED"`
	AssignedTo  string `json:"assigned_to" binding:"omitempty,uuid"`
	LaborCost   string `json:"labor_cost"`
	PartsCost   string `json:"parts_cost"`
}

// WorkOrderEvent is pushed to dashboard clients of the owning tenant
type WorkOrderEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

type WorkOrderService interface {
	List(ctx context.Context, tenantID, status string, page, limit int) ([]model.WorkOrder, int64, error)
	Get(ctx context.Context, tenantID, id string) (*model.WorkOrder, error)
	Create(ctx context.Context, tenantID, userID string, req CreateWorkOrderRequest) (*model.WorkOrder, error)
	Update(ctx context.Context, tenantID, id string, req UpdateWorkOrderRequest) (*model.WorkOrder, error)
	Delete(ctx context.Context, tenantID, id string) error
	// OwnerOf resolves the assigned technician for the ownership guard
	OwnerOf(ctx context.Context, tenantID, id string) (string, error)
}

type workOrderService struct {
	repo        repository.WorkOrderRepository
	vehicleRepo repository.VehicleRepository
	subs        SubscriptionService
	hub         *ws.Hub
}

func NewWorkOrderService(repo repository.WorkOrderRepository, vehicleRepo repository.VehicleRepository, subs SubscriptionService, hub *ws.Hub) WorkOrderService {
	return &workOrderService{repo: repo, vehicleRepo: vehicleRepo, subs: subs, hub: hub}
}

func (s *workOrderService) notify(tenantID uuid.UUID, event string, wo *model.WorkOrder) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(WorkOrderEvent{
		Event: event,
		Data: map[string]interface{}{
			"id":     wo.ID.String(),
			"title":  wo.Title,
			"status": wo.Status,
		},
	})
	if err != nil {
		return
	}
	s.hub.BroadcastToTenant(tenantID.String(), payload)
}

func (s *workOrderService) List(ctx context.Context, tenantID, status string, page, limit int) ([]model.WorkOrder, int64, error) {
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
	return s.repo.ListByTenant(ctx, tid, status, (page-1)*limit, limit)
}

func (s *workOrderService) Get(ctx context.Context, tenantID, id string) (*model.WorkOrder, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, errors.New("work order not found")
	}
	wid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.New("work order not found")
	}
	wo, err := s.repo.FindByID(ctx, tid, wid)
	if err != nil {
		return nil, errors.New("work order not found")
	}
	return wo, nil
}

// Create opens a work order and meters the workOrders counter. The quota unit
// is reserved first so concurrent creates cannot exceed the plan ceiling.
func (s *workOrderService) Create(ctx context.Context, tenantID, userID string, req CreateWorkOrderRequest) (*model.WorkOrder, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, errors.New("invalid tenant id")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, errors.New("invalid user id")
	}
	vid, err := uuid.Parse(req.VehicleID)
	if err != nil {
		return nil, errors.New("invalid vehicle id")
	}
	if _, err := s.vehicleRepo.FindByID(ctx, tid, vid); err != nil {
		return nil, errors.New("vehicle not found")
	}

	if err := s.subs.UpdateUsage(ctx, tenantID, plan.LimitWorkOrders, 1); err != nil {
		return nil, err
	}

	wo := &model.WorkOrder{
		TenantID:    tid,
		VehicleID:   vid,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.WorkOrderOpen,
		CreatedBy:   uid,
		LaborCost:   decimal.Zero,
		PartsCost:   decimal.Zero,
	}
	if req.AssignedTo != "" {
		assignee, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			return nil, errors.New("invalid assignee id")
		}
		wo.AssignedTo = &assignee
	}

	if err := s.repo.Create(ctx, wo); err != nil {
		if uerr := s.subs.UpdateUsage(ctx, tenantID, plan.LimitWorkOrders, -1); uerr != nil {
			log.Printf("failed to release work order quota for tenant %s: %v", tenantID, uerr)
		}
		return nil, err
	}

	s.notify(tid, "work_order_created", wo)
	return wo, nil
}

func (s *workOrderService) Update(ctx context.Context, tenantID, id string, req UpdateWorkOrderRequest) (*model.WorkOrder, error) {
	wo, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != "" {
		wo.Title = req.Title
	}
	if req.Description != "" {
		wo.Description = req.Description
	}
	if req.AssignedTo != "" {
		assignee, err := uuid.Parse(req.AssignedTo)
		if err != nil {
			return nil, errors.New("invalid assignee id")
		}
		wo.AssignedTo = &assignee
	}
	if req.LaborCost != "" {
		cost, err := decimal.NewFromString(req.LaborCost)
		if err != nil || cost.IsNegative() {
			return nil, errors.New("invalid labor cost")
		}
		wo.LaborCost = cost
	}
	if req.PartsCost != "" {
		cost, err := decimal.NewFromString(req.PartsCost)
		if err != nil || cost.IsNegative() {
			return nil, errors.New("invalid parts cost")
		}
		wo.PartsCost = cost
	}
	if req.Status != "" && req.Status != wo.Status {
		if wo.Status == model.WorkOrderCompleted || wo.Status == model.WorkOrderCancelled {
			return nil, errors.New("completed or cancelled work orders cannot change status")
		}
		wo.Status = req.Status
		if req.Status == model.WorkOrderCompleted {
			now := time.Now()
			wo.CompletedAt = &now
		}
	}

	if err := s.repo.Update(ctx, wo); err != nil {
		return nil, err
	}
	s.notify(wo.TenantID, "work_order_updated", wo)
	return wo, nil
}

func (s *workOrderService) Delete(ctx context.Context, tenantID, id string) error {
	wo, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, wo.TenantID, wo.ID); err != nil {
		return err
	}
	// A deleted work order gives the quota unit back
	if err := s.subs.UpdateUsage(ctx, tenantID, plan.LimitWorkOrders, -1); err != nil {
		log.Printf("failed to decrement work order count for tenant %s: %v", tenantID, err)
	}
	s.notify(wo.TenantID, "work_order_deleted", wo)
	return nil
}

func (s *workOrderService) OwnerOf(ctx context.Context, tenantID, id string) (string, error) {
	wo, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return "", err
	}
	if wo.AssignedTo == nil {
		return "", nil
	}
	return wo.AssignedTo.String(), nil
}
