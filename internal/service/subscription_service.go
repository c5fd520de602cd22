package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/plan"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantNotFound is returned by mutate/read subscription operations when the
// tenant does not exist. Boolean checks (CheckLimit, HasFeature) never return it;
// they fail closed instead.
var ErrTenantNotFound = errors.New("tenant not found")

// LimitExceededError rejects a usage increment that would cross the plan ceiling
type LimitExceededError struct {
	LimitType plan.LimitType
	Usage     int64
	Limit     int64
	Plan      string
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit exceeded: %d/%d on plan %s", e.LimitType, e.Usage, e.Limit, e.Plan)
}

// UsageSnapshot is the read model returned by GetUsage
type UsageSnapshot struct {
	Usage          model.Usage `json:"usage"`
	Limits         plan.Limits `json:"limits"`
	Plan           string      `json:"plan"`
	Status         string      `json:"status"`
	ExpiresAt      time.Time   `json:"expires_at"`
	IsWithinLimits bool        `json:"is_within_limits"`
}

// Analytics aggregates subscription state across all tenants. Full scan; only
// exposed on low-frequency admin routes.
type Analytics struct {
	TotalTenants           int            `json:"total_tenants"`
	ActiveSubscriptions    int            `json:"active_subscriptions"`
	TrialSubscriptions     int            `json:"trial_subscriptions"`
	CancelledSubscriptions int            `json:"cancelled_subscriptions"`
	SuspendedSubscriptions int            `json:"suspended_subscriptions"`
	PlanDistribution       map[string]int `json:"plan_distribution"`
	MonthlyRevenue         float64        `json:"monthly_revenue"`
}

type SubscriptionService interface {
	CheckLimit(ctx context.Context, tenantID string, limitType plan.LimitType) bool
	UpdateUsage(ctx context.Context, tenantID string, limitType plan.LimitType, delta int64) error
	GetUsage(ctx context.Context, tenantID string) (*UsageSnapshot, error)
	ChangePlan(ctx context.Context, tenantID, newPlan, stripeSubscriptionID string) (*model.Tenant, error)
	CancelSubscription(ctx context.Context, tenantID string) error
	SuspendSubscription(ctx context.Context, tenantID, reason string) error
	ReactivateSubscription(ctx context.Context, tenantID string) error
	ExtendTrial(ctx context.Context, tenantID string, days int) (*model.Tenant, error)
	ResetMonthlyUsage(ctx context.Context, tenantID string) error
	ResetAllMonthlyUsage(ctx context.Context) error
	GetExpiringSubscriptions(ctx context.Context, withinDays int) ([]model.Tenant, error)
	GetAnalytics(ctx context.Context) (*Analytics, error)
	GetAuditLog(ctx context.Context, tenantID string, page, limit int) ([]model.AuditLog, int64, error)
	HasFeature(ctx context.Context, tenantID, feature string) bool
}

type subscriptionService struct {
	tenantRepo repository.TenantRepository
	userRepo   repository.UserRepository
	auditRepo  repository.AuditRepository
}

func NewSubscriptionService(tenantRepo repository.TenantRepository, userRepo repository.UserRepository, auditRepo repository.AuditRepository) SubscriptionService {
	return &subscriptionService{tenantRepo: tenantRepo, userRepo: userRepo, auditRepo: auditRepo}
}

// findTenant parses the id and maps gorm's not-found onto ErrTenantNotFound
func findTenant(ctx context.Context, repo repository.TenantRepository, tenantID string) (*model.Tenant, error) {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, ErrTenantNotFound
	}
	tenant, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return tenant, nil
}

func (s *subscriptionService) findTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	return findTenant(ctx, s.tenantRepo, tenantID)
}

// CheckLimit reports whether the tenant has headroom for one more unit of the
// given resource. Missing tenants and storage errors deny.
func (s *subscriptionService) CheckLimit(ctx context.Context, tenantID string, limitType plan.LimitType) bool {
	tenant, err := s.findTenant(ctx, tenantID)
	if err != nil {
		return false
	}
	limit := tenant.Limits.Get(limitType)
	if limit == plan.Unlimited {
		return true
	}
	return tenant.Usage.Get(limitType) < limit
}

// UpdateUsage applies a signed delta to one usage counter. Positive deltas are
// enforced against the plan ceiling atomically in the store; a rejected
// increment leaves the counter untouched and returns LimitExceededError.
func (s *subscriptionService) UpdateUsage(ctx context.Context, tenantID string, limitType plan.LimitType, delta int64) error {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return ErrTenantNotFound
	}

	applied, err := s.tenantRepo.IncrementUsage(ctx, id, limitType, delta)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	// the conditional update matched no row: either the ceiling rejected it or
	// the tenant is gone
	tenant, err := s.findTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return &LimitExceededError{
		LimitType: limitType,
		Usage:     tenant.Usage.Get(limitType),
		Limit:     tenant.Limits.Get(limitType),
		Plan:      tenant.Plan,
	}
}

func (s *subscriptionService) GetUsage(ctx context.Context, tenantID string) (*UsageSnapshot, error) {
	tenant, err := s.findTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &UsageSnapshot{
		Usage:          tenant.Usage,
		Limits:         tenant.Limits,
		Plan:           tenant.Plan,
		Status:         tenant.Status,
		ExpiresAt:      tenant.ExpiresAt,
		IsWithinLimits: tenant.IsWithinLimits(),
	}, nil
}

// ChangePlan snapshot-copies the new plan's limits and features onto the tenant.
// A trial tenant becomes active with a fresh 30-day period.
func (s *subscriptionService) ChangePlan(ctx context.Context, tenantID, newPlan, stripeSubscriptionID string) (*model.Tenant, error) {
	if !plan.IsValid(newPlan) {
		return nil, fmt.Errorf("unknown plan: %s", newPlan)
	}

	tenant, err := s.findTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	info := plan.Get(newPlan)
	previousPlan := tenant.Plan
	tenant.Plan = newPlan
	tenant.Limits = info.Limits
	tenant.Features = append([]string(nil), info.Features...)
	if stripeSubscriptionID != "" {
		tenant.StripeSubscriptionID = stripeSubscriptionID
	}
	if tenant.Status == model.StatusTrial {
		tenant.Status = model.StatusActive
		tenant.ExpiresAt = time.Now().Add(30 * 24 * time.Hour)
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}
	s.audit(ctx, tenant.ID, model.AuditPlanChanged, fmt.Sprintf("plan changed from %s to %s", previousPlan, newPlan))
	return tenant, nil
}

func (s *subscriptionService) CancelSubscription(ctx context.Context, tenantID string) error {
	return s.setStatus(ctx, tenantID, model.StatusCancelled, "", model.AuditSubscriptionCancelled, "subscription cancelled")
}

func (s *subscriptionService) SuspendSubscription(ctx context.Context, tenantID, reason string) error {
	details := "subscription suspended"
	if reason != "" {
		details = "subscription suspended: " + reason
	}
	return s.setStatus(ctx, tenantID, model.StatusSuspended, reason, model.AuditSubscriptionSuspended, details)
}

func (s *subscriptionService) ReactivateSubscription(ctx context.Context, tenantID string) error {
	return s.setStatus(ctx, tenantID, model.StatusActive, "", model.AuditSubscriptionResumed, "subscription reactivated")
}

// setStatus changes only the subscription status (and suspension reason); limits
// and usage are deliberately left as-is.
func (s *subscriptionService) setStatus(ctx context.Context, tenantID, status, suspendedReason, auditAction, auditDetails string) error {
	tenant, err := s.findTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	tenant.Status = status
	tenant.SuspendedReason = suspendedReason
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return err
	}
	s.audit(ctx, tenant.ID, auditAction, auditDetails)
	return nil
}

// ExtendTrial adds days to the trial expiry. Non-trial tenants are returned
// unchanged rather than erroring.
func (s *subscriptionService) ExtendTrial(ctx context.Context, tenantID string, days int) (*model.Tenant, error) {
	tenant, err := s.findTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status != model.StatusTrial {
		return tenant, nil
	}

	tenant.ExpiresAt = tenant.ExpiresAt.Add(time.Duration(days) * 24 * time.Hour)
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}
	s.audit(ctx, tenant.ID, model.AuditTrialExtended, fmt.Sprintf("trial extended by %d days", days))
	return tenant, nil
}

func (s *subscriptionService) ResetMonthlyUsage(ctx context.Context, tenantID string) error {
	tenant, err := s.findTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if err := s.tenantRepo.ResetUsage(ctx, tenant.ID); err != nil {
		return err
	}
	if err := s.reconcileSeats(ctx, tenant.ID); err != nil {
		return err
	}
	s.audit(ctx, tenant.ID, model.AuditUsageReset, "monthly usage counters reset")
	return nil
}

func (s *subscriptionService) ResetAllMonthlyUsage(ctx context.Context) error {
	if err := s.tenantRepo.ResetAllUsage(ctx); err != nil {
		return err
	}
	if s.userRepo == nil {
		return nil
	}
	tenants, err := s.tenantRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, t := range tenants {
		if err := s.reconcileSeats(ctx, t.ID); err != nil {
			return err
		}
	}
	return nil
}

// reconcileSeats restores the seat counter from the user table after a reset;
// seats are occupancy, not monthly consumption. A tenant holding more users
// than its current limit keeps the counter pinned at that limit.
func (s *subscriptionService) reconcileSeats(ctx context.Context, tenantID uuid.UUID) error {
	if s.userRepo == nil {
		return nil
	}
	seats, err := s.userRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if seats == 0 {
		return nil
	}
	applied, err := s.tenantRepo.IncrementUsage(ctx, tenantID, plan.LimitUsers, seats)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	// more users than the current ceiling allows, e.g. after a downgrade; pin
	// the counter at the limit so seat creation stays blocked until the
	// overage clears
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if _, err := s.tenantRepo.IncrementUsage(ctx, tenantID, plan.LimitUsers, tenant.Limits.Get(plan.LimitUsers)); err != nil {
		return err
	}
	log.Printf("seat reconciliation for tenant %s: %d seats exceed the plan limit", tenantID, seats)
	return nil
}

func (s *subscriptionService) GetExpiringSubscriptions(ctx context.Context, withinDays int) ([]model.Tenant, error) {
	before := time.Now().Add(time.Duration(withinDays) * 24 * time.Hour)
	return s.tenantRepo.ListExpiring(ctx, before)
}

// GetAnalytics walks every tenant. Revenue counts only active subscriptions.
func (s *subscriptionService) GetAnalytics(ctx context.Context) (*Analytics, error) {
	tenants, err := s.tenantRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := &Analytics{
		TotalTenants:     len(tenants),
		PlanDistribution: make(map[string]int),
	}
	for _, t := range tenants {
		out.PlanDistribution[t.Plan]++
		switch t.Status {
		case model.StatusActive:
			out.ActiveSubscriptions++
			out.MonthlyRevenue += plan.Get(t.Plan).MonthlyPrice
		case model.StatusTrial:
			out.TrialSubscriptions++
		case model.StatusCancelled:
			out.CancelledSubscriptions++
		case model.StatusSuspended:
			out.SuspendedSubscriptions++
		}
	}
	return out, nil
}

// GetAuditLog pages through the tenant's subscription lifecycle events, newest first
func (s *subscriptionService) GetAuditLog(ctx context.Context, tenantID string, page, limit int) ([]model.AuditLog, int64, error) {
	tenant, err := s.findTenant(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	if s.auditRepo == nil {
		return nil, 0, nil
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return s.auditRepo.ListByTenant(ctx, tenant.ID, (page-1)*limit, limit)
}

// HasFeature checks the tenant's snapshot feature list. Missing tenants deny.
func (s *subscriptionService) HasFeature(ctx context.Context, tenantID, feature string) bool {
	tenant, err := s.findTenant(ctx, tenantID)
	if err != nil {
		return false
	}
	return tenant.HasFeature(feature)
}

// audit is best-effort; a failed audit write never fails the operation
func (s *subscriptionService) audit(ctx context.Context, tenantID uuid.UUID, action, details string) {
	if s.auditRepo == nil {
		return
	}
	entry := &model.AuditLog{TenantID: tenantID, Action: action, Details: details}
	if err := s.auditRepo.Record(ctx, entry); err != nil {
		log.Printf("audit write failed for tenant %s action %s: %v", tenantID, action, err)
	}
}
