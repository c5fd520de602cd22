package repository

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/plan"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// usageColumns maps limit types to the tenant table column suffix shared by the
// usage_ and limit_ embedded prefixes.
var usageColumns = map[plan.LimitType]string{
	plan.LimitWorkOrders: "work_orders",
	plan.LimitUsers:      "users",
	plan.LimitStorage:    "storage_mb",
	plan.LimitAPICalls:   "api_calls",
}

type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	Save(ctx context.Context, tenant *model.Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	ListAll(ctx context.Context) ([]model.Tenant, error)
	ListExpiring(ctx context.Context, before time.Time) ([]model.Tenant, error)
	// IncrementUsage applies a signed delta to one usage counter. For positive
	// deltas the ceiling is enforced inside a single conditional UPDATE, so two
	// concurrent increments can never both slip past the limit. Returns false
	// when the ceiling (or a missing tenant) rejected the change.
	IncrementUsage(ctx context.Context, id uuid.UUID, limitType plan.LimitType, delta int64) (bool, error)
	ResetUsage(ctx context.Context, id uuid.UUID) error
	ResetAllUsage(ctx context.Context) error
}

type tenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(ctx context.Context, tenant *model.Tenant) error {
	return GetDB(ctx, r.db).Create(tenant).Error
}

func (r *tenantRepository) Save(ctx context.Context, tenant *model.Tenant) error {
	return GetDB(ctx, r.db).Save(tenant).Error
}

func (r *tenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := GetDB(ctx, r.db).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) FindBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := GetDB(ctx, r.db).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) ListAll(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	if err := GetDB(ctx, r.db).Order("created_at asc").Find(&tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *tenantRepository) ListExpiring(ctx context.Context, before time.Time) ([]model.Tenant, error) {
	var tenants []model.Tenant
	err := GetDB(ctx, r.db).
		Where("expires_at <= ? AND status IN ?", before, []string{model.StatusActive, model.StatusTrial}).
		Order("expires_at asc").
		Find(&tenants).Error
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

func (r *tenantRepository) IncrementUsage(ctx context.Context, id uuid.UUID, limitType plan.LimitType, delta int64) (bool, error) {
	col, ok := usageColumns[limitType]
	if !ok {
		return false, fmt.Errorf("unknown limit type: %s", limitType)
	}

	var res *gorm.DB
	if delta > 0 {
		// increment-with-ceiling in one statement; -1 means unlimited
		res = GetDB(ctx, r.db).Exec(fmt.Sprintf(
			`UPDATE tenants
			 SET usage_%[1]s = usage_%[1]s + ?, updated_at = NOW()
			 WHERE id = ? AND (limit_%[1]s = -1 OR usage_%[1]s + ? <= limit_%[1]s)`, col),
			delta, id, delta)
	} else {
		// decrements always apply, clamped at zero
		res = GetDB(ctx, r.db).Exec(fmt.Sprintf(
			`UPDATE tenants
			 SET usage_%[1]s = GREATEST(usage_%[1]s + ?, 0), updated_at = NOW()
			 WHERE id = ?`, col),
			delta, id)
	}
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *tenantRepository) ResetUsage(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Exec(
		`UPDATE tenants
		 SET usage_work_orders = 0, usage_users = 0, usage_storage_mb = 0, usage_api_calls = 0, updated_at = NOW()
		 WHERE id = ?`, id).Error
}

func (r *tenantRepository) ResetAllUsage(ctx context.Context) error {
	return GetDB(ctx, r.db).Exec(
		`UPDATE tenants
		 SET usage_work_orders = 0, usage_users = 0, usage_storage_mb = 0, usage_api_calls = 0, updated_at = NOW()`).Error
}
