package scheduler

import (
	"context"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/service"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the recurring maintenance jobs: the monthly usage counter
// reset, a daily scan for subscriptions close to expiry, and a daily purge of
// expired refresh tokens.
type Scheduler struct {
	cron  *cron.Cron
	subs  service.SubscriptionService
	users service.UserService
}

func New(subs service.SubscriptionService, users service.UserService) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithLocation(time.UTC)),
		subs:  subs,
		users: users,
	}
}

func (s *Scheduler) Start() error {
	// 00:05 UTC on the first of each month, after billing cycles roll over
	if _, err := s.cron.AddFunc("5 0 1 * *", s.resetMonthlyUsage); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", s.sweepExpiringSubscriptions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@daily", s.purgeExpiredRefreshTokens); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("Scheduler started")
	return nil
}

// Stop waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) resetMonthlyUsage() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := s.subs.ResetAllMonthlyUsage(ctx); err != nil {
		log.Printf("Monthly usage reset failed: %v", err)
		return
	}
	log.Println("Monthly usage counters reset")
}

func (s *Scheduler) purgeExpiredRefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.users.PurgeExpiredRefreshTokens(ctx); err != nil {
		log.Printf("Refresh token purge failed: %v", err)
		return
	}
	log.Println("Expired refresh tokens purged")
}

// sweepExpiringSubscriptions suspends trials past their expiry and logs
// subscriptions approaching it. Request-time guards already reject expired
// trials; the sweep keeps the stored status in step.
func (s *Scheduler) sweepExpiringSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tenants, err := s.subs.GetExpiringSubscriptions(ctx, 7)
	if err != nil {
		log.Printf("Expiring subscription scan failed: %v", err)
		return
	}

	now := time.Now()
	for _, t := range tenants {
		if t.Status == model.StatusTrial && t.ExpiresAt.Before(now) {
			if err := s.subs.SuspendSubscription(ctx, t.ID.String(), "trial expired"); err != nil {
				log.Printf("Failed to suspend expired trial for tenant %s: %v", t.ID, err)
			} else {
				log.Printf("Suspended expired trial: tenant=%s expired=%s", t.ID, t.ExpiresAt.Format(time.RFC3339))
			}
			continue
		}
		log.Printf("Subscription expiring soon: tenant=%s plan=%s status=%s expires=%s",
			t.ID, t.Plan, t.Status, t.ExpiresAt.Format(time.RFC3339))
	}
}
