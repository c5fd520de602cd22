package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/plan"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeTenantRepo is an in-memory TenantRepository. IncrementUsage holds the
// mutex across the read-check-write, mirroring the single conditional UPDATE
// the real repository issues.
type fakeTenantRepo struct {
	mu      sync.Mutex
	tenants map[uuid.UUID]*model.Tenant
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{tenants: make(map[uuid.UUID]*model.Tenant)}
}

func (r *fakeTenantRepo) put(t *model.Tenant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tenants[t.ID] = &cp
}

func (r *fakeTenantRepo) Create(_ context.Context, tenant *model.Tenant) error {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	r.put(tenant)
	return nil
}

func (r *fakeTenantRepo) Save(_ context.Context, tenant *model.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenant.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *tenant
	r.tenants[tenant.ID] = &cp
	return nil
}

func (r *fakeTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTenantRepo) FindBySlug(_ context.Context, slug string) (*model.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Slug == slug {
			cp := *t
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTenantRepo) ListAll(_ context.Context) ([]model.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Tenant, 0, len(r.tenants))
	for _, t := range r.tenants {
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTenantRepo) ListExpiring(_ context.Context, before time.Time) ([]model.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Tenant
	for _, t := range r.tenants {
		if (t.Status == model.StatusActive || t.Status == model.StatusTrial) && !t.ExpiresAt.After(before) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *fakeTenantRepo) IncrementUsage(_ context.Context, id uuid.UUID, limitType plan.LimitType, delta int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return false, nil
	}

	current := t.Usage.Get(limitType)
	if delta > 0 {
		limit := t.Limits.Get(limitType)
		if limit != plan.Unlimited && current+delta > limit {
			return false, nil
		}
	}
	next := current + delta
	if next < 0 {
		next = 0
	}
	switch limitType {
	case plan.LimitWorkOrders:
		t.Usage.WorkOrders = next
	case plan.LimitUsers:
		t.Usage.Users = next
	case plan.LimitStorage:
		t.Usage.StorageMB = next
	case plan.LimitAPICalls:
		t.Usage.APICalls = next
	default:
		return false, errors.New("unknown limit type")
	}
	return true, nil
}

func (r *fakeTenantRepo) ResetUsage(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.Usage = model.Usage{}
	return nil
}

func (r *fakeTenantRepo) ResetAllUsage(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		t.Usage = model.Usage{}
	}
	return nil
}

func seedTenant(t *testing.T, repo *fakeTenantRepo, planName, status string) *model.Tenant {
	t.Helper()
	info := plan.Get(planName)
	tenant := &model.Tenant{
		ID:        uuid.New(),
		Name:      "Test Shop",
		Slug:      "test-shop-" + uuid.NewString()[:8],
		Plan:      planName,
		Status:    status,
		ExpiresAt: time.Now().Add(14 * 24 * time.Hour),
		Limits:    info.Limits,
		Features:  append([]string(nil), info.Features...),
	}
	require.NoError(t, repo.Create(context.Background(), tenant))
	return tenant
}

func TestCheckLimit(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Starter, model.StatusActive)

	assert.True(t, svc.CheckLimit(ctx, tenant.ID.String(), plan.LimitUsers))

	// at the ceiling there is no headroom left
	tenant.Usage.Users = 3
	require.NoError(t, repo.Save(ctx, tenant))
	assert.False(t, svc.CheckLimit(ctx, tenant.ID.String(), plan.LimitUsers))

	// unknown and malformed tenants fail closed
	assert.False(t, svc.CheckLimit(ctx, uuid.NewString(), plan.LimitUsers))
	assert.False(t, svc.CheckLimit(ctx, "not-a-uuid", plan.LimitUsers))
}

func TestCheckLimitUnlimited(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Enterprise, model.StatusActive)
	tenant.Usage.WorkOrders = 1_000_000
	require.NoError(t, repo.Save(ctx, tenant))

	assert.True(t, svc.CheckLimit(ctx, tenant.ID.String(), plan.LimitWorkOrders))
}

func TestUpdateUsageIncrementAndCeiling(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Starter, model.StatusActive)
	id := tenant.ID.String()

	// fill up to the user limit of 3
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.UpdateUsage(ctx, id, plan.LimitUsers, 1))
	}

	// the next increment is rejected and the counter stays untouched
	err := svc.UpdateUsage(ctx, id, plan.LimitUsers, 1)
	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, plan.LimitUsers, limitErr.LimitType)
	assert.Equal(t, int64(3), limitErr.Usage)
	assert.Equal(t, int64(3), limitErr.Limit)
	assert.Equal(t, plan.Starter, limitErr.Plan)

	snap, err := svc.GetUsage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Usage.Users)

	// a decrement reopens headroom
	require.NoError(t, svc.UpdateUsage(ctx, id, plan.LimitUsers, -1))
	require.NoError(t, svc.UpdateUsage(ctx, id, plan.LimitUsers, 1))
}

func TestUpdateUsageDecrementClampsAtZero(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Starter, model.StatusActive)
	id := tenant.ID.String()

	require.NoError(t, svc.UpdateUsage(ctx, id, plan.LimitWorkOrders, -5))
	snap, err := svc.GetUsage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Usage.WorkOrders)
}

func TestUpdateUsageMissingTenant(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)

	err := svc.UpdateUsage(context.Background(), uuid.NewString(), plan.LimitUsers, 1)
	assert.ErrorIs(t, err, ErrTenantNotFound)

	err = svc.UpdateUsage(context.Background(), "not-a-uuid", plan.LimitUsers, 1)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestUpdateUsageConcurrentIncrementsAtBoundary(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Starter, model.StatusActive)
	tenant.Usage.Users = 2 // one slot left on a limit of 3
	require.NoError(t, repo.Save(ctx, tenant))
	id := tenant.ID.String()

	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.UpdateUsage(ctx, id, plan.LimitUsers, 1)
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var limitErr *LimitExceededError
		require.ErrorAs(t, err, &limitErr)
		rejected++
	}
	assert.Equal(t, 1, succeeded, "exactly one increment may win the last slot")
	assert.Equal(t, workers-1, rejected)

	snap, err := svc.GetUsage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Usage.Users)
}

func TestChangePlan(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Starter, model.StatusTrial)

	updated, err := svc.ChangePlan(ctx, tenant.ID.String(), plan.Enterprise, "sub_123")
	require.NoError(t, err)

	assert.Equal(t, plan.Enterprise, updated.Plan)
	assert.Equal(t, model.StatusActive, updated.Status, "trial converts to active")
	assert.Equal(t, "sub_123", updated.StripeSubscriptionID)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), updated.ExpiresAt, time.Minute)

	// limits and features are snapshot copies of the new plan
	info := plan.Get(plan.Enterprise)
	assert.Equal(t, info.Limits, updated.Limits)
	assert.ElementsMatch(t, info.Features, []string(updated.Features))

	// the change persisted
	stored, err := repo.FindByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.Enterprise, stored.Plan)
}

func TestChangePlanActiveKeepsExpiry(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Starter, model.StatusActive)
	originalExpiry := tenant.ExpiresAt

	updated, err := svc.ChangePlan(ctx, tenant.ID.String(), plan.Professional, "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, updated.Status)
	assert.True(t, updated.ExpiresAt.Equal(originalExpiry), "active plan change must not move expiry")
}

func TestChangePlanRejectsUnknownPlan(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)

	tenant := seedTenant(t, repo, plan.Starter, model.StatusActive)
	_, err := svc.ChangePlan(context.Background(), tenant.ID.String(), "platinum", "")
	assert.Error(t, err)
}

func TestSubscriptionStatusTransitions(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Professional, model.StatusActive)
	id := tenant.ID.String()

	require.NoError(t, svc.SuspendSubscription(ctx, id, "payment failed"))
	stored, err := repo.FindByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuspended, stored.Status)
	assert.Equal(t, "payment failed", stored.SuspendedReason)

	require.NoError(t, svc.ReactivateSubscription(ctx, id))
	stored, err = repo.FindByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, stored.Status)
	assert.Empty(t, stored.SuspendedReason)

	require.NoError(t, svc.CancelSubscription(ctx, id))
	stored, err = repo.FindByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)

	assert.ErrorIs(t, svc.CancelSubscription(ctx, uuid.NewString()), ErrTenantNotFound)
}

func TestExtendTrial(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Starter, model.StatusTrial)
	originalExpiry := tenant.ExpiresAt

	updated, err := svc.ExtendTrial(ctx, tenant.ID.String(), 7)
	require.NoError(t, err)
	assert.True(t, updated.ExpiresAt.Equal(originalExpiry.Add(7*24*time.Hour)))

	// extending a non-trial tenant is a silent no-op
	active := seedTenant(t, repo, plan.Starter, model.StatusActive)
	activeExpiry := active.ExpiresAt
	unchanged, err := svc.ExtendTrial(ctx, active.ID.String(), 7)
	require.NoError(t, err)
	assert.True(t, unchanged.ExpiresAt.Equal(activeExpiry))
	assert.Equal(t, model.StatusActive, unchanged.Status)
}

func TestResetMonthlyUsage(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Starter, model.StatusActive)
	tenant.Usage = model.Usage{WorkOrders: 42, Users: 2, StorageMB: 512, APICalls: 900}
	require.NoError(t, repo.Save(ctx, tenant))

	require.NoError(t, svc.ResetMonthlyUsage(ctx, tenant.ID.String()))
	snap, err := svc.GetUsage(ctx, tenant.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.Usage{}, snap.Usage)

	assert.ErrorIs(t, svc.ResetMonthlyUsage(ctx, uuid.NewString()), ErrTenantNotFound)
}

// fakeSeatCounter stands in for the user store during seat reconciliation;
// only CountByTenant matters here.
type fakeSeatCounter struct {
	seats map[uuid.UUID]int64
}

func (r *fakeSeatCounter) Create(context.Context, *model.User) error { return nil }
func (r *fakeSeatCounter) Update(context.Context, *model.User) error { return nil }
func (r *fakeSeatCounter) Delete(context.Context, uuid.UUID) error    { return nil }
func (r *fakeSeatCounter) FindByID(context.Context, uuid.UUID) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeSeatCounter) FindByEmail(context.Context, string) (*model.User, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeSeatCounter) ListByTenant(context.Context, uuid.UUID, int, int) ([]model.User, int64, error) {
	return nil, 0, nil
}
func (r *fakeSeatCounter) CountByTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	return r.seats[tenantID], nil
}
func (r *fakeSeatCounter) SaveRefreshToken(context.Context, *model.RefreshToken) error { return nil }
func (r *fakeSeatCounter) FindRefreshToken(context.Context, string) (*model.RefreshToken, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeSeatCounter) DeleteRefreshToken(context.Context, string) error { return nil }
func (r *fakeSeatCounter) DeleteExpiredRefreshTokens(context.Context) error { return nil }

var _ repository.UserRepository = (*fakeSeatCounter)(nil)

// Seats are occupancy, not monthly consumption: a reset wipes all counters and
// then re-derives the user counter from the accounts that still exist.
func TestResetMonthlyUsageRestoresSeats(t *testing.T) {
	repo := newFakeTenantRepo()
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Starter, model.StatusActive)
	tenant.Usage = model.Usage{WorkOrders: 42, Users: 2, APICalls: 900}
	require.NoError(t, repo.Save(ctx, tenant))

	users := &fakeSeatCounter{seats: map[uuid.UUID]int64{tenant.ID: 2}}
	svc := NewSubscriptionService(repo, users, nil)

	require.NoError(t, svc.ResetMonthlyUsage(ctx, tenant.ID.String()))
	snap, err := svc.GetUsage(ctx, tenant.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Usage.Users)
	assert.Zero(t, snap.Usage.WorkOrders)
	assert.Zero(t, snap.Usage.APICalls)
}

func TestResetAllMonthlyUsageRestoresSeats(t *testing.T) {
	repo := newFakeTenantRepo()
	ctx := context.Background()

	a := seedTenant(t, repo, plan.Starter, model.StatusActive)
	a.Usage = model.Usage{Users: 3, APICalls: 500}
	require.NoError(t, repo.Save(ctx, a))

	// holds more accounts than the starter limit of 3, e.g. after a downgrade;
	// the counter is pinned at the limit so seat creation stays blocked
	over := seedTenant(t, repo, plan.Starter, model.StatusActive)
	require.NoError(t, repo.Save(ctx, over))

	users := &fakeSeatCounter{seats: map[uuid.UUID]int64{a.ID: 3, over.ID: 5}}
	svc := NewSubscriptionService(repo, users, nil)

	require.NoError(t, svc.ResetAllMonthlyUsage(ctx))

	snap, err := svc.GetUsage(ctx, a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Usage.Users)
	assert.Zero(t, snap.Usage.APICalls)

	snap, err = svc.GetUsage(ctx, over.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Usage.Users)
	assert.False(t, svc.CheckLimit(ctx, over.ID.String(), plan.LimitUsers))
}

func TestGetExpiringSubscriptions(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	soon := seedTenant(t, repo, plan.Starter, model.StatusTrial)
	soon.ExpiresAt = time.Now().Add(3 * 24 * time.Hour)
	require.NoError(t, repo.Save(ctx, soon))

	far := seedTenant(t, repo, plan.Professional, model.StatusActive)
	far.ExpiresAt = time.Now().Add(60 * 24 * time.Hour)
	require.NoError(t, repo.Save(ctx, far))

	cancelled := seedTenant(t, repo, plan.Starter, model.StatusCancelled)
	cancelled.ExpiresAt = time.Now().Add(2 * 24 * time.Hour)
	require.NoError(t, repo.Save(ctx, cancelled))

	expiring, err := svc.GetExpiringSubscriptions(ctx, 7)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, soon.ID, expiring[0].ID)
}

func TestGetAnalytics(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	seedTenant(t, repo, plan.Starter, model.StatusActive)
	seedTenant(t, repo, plan.Starter, model.StatusActive)
	seedTenant(t, repo, plan.Professional, model.StatusTrial)
	seedTenant(t, repo, plan.Enterprise, model.StatusCancelled)

	analytics, err := svc.GetAnalytics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 4, analytics.TotalTenants)
	assert.Equal(t, 2, analytics.ActiveSubscriptions)
	assert.Equal(t, 1, analytics.TrialSubscriptions)
	assert.Equal(t, 1, analytics.CancelledSubscriptions)
	assert.Equal(t, 0, analytics.SuspendedSubscriptions)
	assert.Equal(t, map[string]int{"starter": 2, "professional": 1, "enterprise": 1}, analytics.PlanDistribution)

	// revenue counts active subscriptions only: 2 x $29
	assert.Equal(t, float64(58), analytics.MonthlyRevenue)
}

func TestGetAuditLog(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	tenant := seedTenant(t, repo, plan.Starter, model.StatusActive)

	// no audit store wired: an existing tenant yields an empty page
	entries, total, err := svc.GetAuditLog(ctx, tenant.ID.String(), 1, 20)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, total)

	_, _, err = svc.GetAuditLog(ctx, uuid.NewString(), 1, 20)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestHasFeature(t *testing.T) {
	repo := newFakeTenantRepo()
	svc := NewSubscriptionService(repo, nil, nil)
	ctx := context.Background()

	starter := seedTenant(t, repo, plan.Starter, model.StatusActive)
	pro := seedTenant(t, repo, plan.Professional, model.StatusActive)

	assert.True(t, svc.HasFeature(ctx, pro.ID.String(), plan.FeatureCustomInvoices))
	assert.False(t, svc.HasFeature(ctx, starter.ID.String(), plan.FeatureCustomInvoices))
	assert.False(t, svc.HasFeature(ctx, uuid.NewString(), plan.FeatureBasicReports))
}
