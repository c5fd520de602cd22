package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkOrderRepository interface {
	Create(ctx context.Context, wo *model.WorkOrder) error
	Update(ctx context.Context, wo *model.WorkOrder) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.WorkOrder, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, status string, offset, limit int) ([]model.WorkOrder, int64, error)
	CountByStatusSince(ctx context.Context, tenantID uuid.UUID, status string, since time.Time) (int64, error)
}

type workOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) WorkOrderRepository {
	return &workOrderRepository{db: db}
}

func (r *workOrderRepository) Create(ctx context.Context, wo *model.WorkOrder) error {
	return GetDB(ctx, r.db).Create(wo).Error
}

func (r *workOrderRepository) Update(ctx context.Context, wo *model.WorkOrder) error {
	return GetDB(ctx, r.db).Save(wo).Error
}

func (r *workOrderRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&model.WorkOrder{}).Error
}

func (r *workOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.WorkOrder, error) {
	var wo model.WorkOrder
	err := GetDB(ctx, r.db).Preload("Vehicle").
		Where("tenant_id = ? AND id = ?", tenantID, id).First(&wo).Error
	if err != nil {
		return nil, err
	}
	return &wo, nil
}

func (r *workOrderRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, status string, offset, limit int) ([]model.WorkOrder, int64, error) {
	var orders []model.WorkOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.WorkOrder{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Preload("Vehicle").Order("created_at desc").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *workOrderRepository) CountByStatusSince(ctx context.Context, tenantID uuid.UUID, status string, since time.Time) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.WorkOrder{}).
		Where("tenant_id = ? AND status = ? AND created_at >= ?", tenantID, status, since).
		Count(&total).Error
	return total, err
}
