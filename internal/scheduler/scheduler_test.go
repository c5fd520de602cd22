package scheduler

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/plan"
	"backend/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubs struct {
	resetAllCalls int
	suspended     map[string]string
	expiring      []model.Tenant
}

func (s *recordingSubs) CheckLimit(context.Context, string, plan.LimitType) bool { return true }
func (s *recordingSubs) UpdateUsage(context.Context, string, plan.LimitType, int64) error {
	return nil
}
func (s *recordingSubs) GetUsage(context.Context, string) (*service.UsageSnapshot, error) {
	return nil, nil
}
func (s *recordingSubs) ChangePlan(context.Context, string, string, string) (*model.Tenant, error) {
	return nil, nil
}
func (s *recordingSubs) CancelSubscription(context.Context, string) error { return nil }
func (s *recordingSubs) SuspendSubscription(_ context.Context, tenantID, reason string) error {
	if s.suspended == nil {
		s.suspended = make(map[string]string)
	}
	s.suspended[tenantID] = reason
	return nil
}
func (s *recordingSubs) ReactivateSubscription(context.Context, string) error { return nil }
func (s *recordingSubs) ExtendTrial(context.Context, string, int) (*model.Tenant, error) {
	return nil, nil
}
func (s *recordingSubs) ResetMonthlyUsage(context.Context, string) error { return nil }
func (s *recordingSubs) ResetAllMonthlyUsage(context.Context) error {
	s.resetAllCalls++
	return nil
}
func (s *recordingSubs) GetExpiringSubscriptions(context.Context, int) ([]model.Tenant, error) {
	return s.expiring, nil
}
func (s *recordingSubs) GetAnalytics(context.Context) (*service.Analytics, error) {
	return nil, nil
}
func (s *recordingSubs) GetAuditLog(context.Context, string, int, int) ([]model.AuditLog, int64, error) {
	return nil, 0, nil
}
func (s *recordingSubs) HasFeature(context.Context, string, string) bool { return false }

type recordingUsers struct {
	purgeCalls int
}

func (s *recordingUsers) Login(context.Context, service.LoginRequest) (*service.TokenPair, *service.UserResponse, error) {
	return nil, nil, nil
}
func (s *recordingUsers) Refresh(context.Context, string) (*service.TokenPair, error) {
	return nil, nil
}
func (s *recordingUsers) Logout(context.Context, string) error { return nil }
func (s *recordingUsers) GetUserByID(context.Context, string) (*service.UserResponse, error) {
	return nil, nil
}
func (s *recordingUsers) ListUsers(context.Context, string, int, int) ([]service.UserResponse, int64, error) {
	return nil, 0, nil
}
func (s *recordingUsers) CreateUser(context.Context, string, service.CreateUserRequest) (*service.UserResponse, error) {
	return nil, nil
}
func (s *recordingUsers) UpdateUser(context.Context, string, string, service.UpdateUserRequest) (*service.UserResponse, error) {
	return nil, nil
}
func (s *recordingUsers) DeleteUser(context.Context, string, string) error { return nil }
func (s *recordingUsers) PurgeExpiredRefreshTokens(context.Context) error {
	s.purgeCalls++
	return nil
}

var (
	_ service.SubscriptionService = (*recordingSubs)(nil)
	_ service.UserService         = (*recordingUsers)(nil)
)

func TestStartRegistersJobs(t *testing.T) {
	sched := New(&recordingSubs{}, &recordingUsers{})
	require.NoError(t, sched.Start())
	defer sched.Stop()

	assert.Len(t, sched.cron.Entries(), 3)
}

func TestResetMonthlyUsageJob(t *testing.T) {
	subs := &recordingSubs{}
	sched := New(subs, &recordingUsers{})

	sched.resetMonthlyUsage()
	assert.Equal(t, 1, subs.resetAllCalls)
}

func TestPurgeExpiredRefreshTokensJob(t *testing.T) {
	users := &recordingUsers{}
	sched := New(&recordingSubs{}, users)

	sched.purgeExpiredRefreshTokens()
	assert.Equal(t, 1, users.purgeCalls)
}

func TestSweepSuspendsExpiredTrials(t *testing.T) {
	expired := model.Tenant{
		ID:        uuid.New(),
		Plan:      plan.Starter,
		Status:    model.StatusTrial,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	active := model.Tenant{
		ID:        uuid.New(),
		Plan:      plan.Professional,
		Status:    model.StatusActive,
		ExpiresAt: time.Now().Add(3 * 24 * time.Hour),
	}
	subs := &recordingSubs{expiring: []model.Tenant{expired, active}}
	sched := New(subs, &recordingUsers{})

	sched.sweepExpiringSubscriptions()

	require.Len(t, subs.suspended, 1)
	assert.Equal(t, "trial expired", subs.suspended[expired.ID.String()])
}
