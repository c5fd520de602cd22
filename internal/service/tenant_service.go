package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/plan"
	"backend/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// New tenants start on a starter-equivalent trial
const trialPeriod = 14 * 24 * time.Hour

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type SignupRequest struct {
	ShopName  string `json:"shop_name" binding:"required"`
	Slug      string `json:"slug" binding:"required"`
	OwnerName string `json:"owner_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
}

type SignupResponse struct {
	Tenant *model.Tenant `json:"tenant"`
	Owner  *UserResponse `json:"owner"`
}

type TenantService interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error)
	GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error)
}

type tenantService struct {
	tenantRepo repository.TenantRepository
	userRepo   repository.UserRepository
	txManager  repository.TransactionManager
}

func NewTenantService(tenantRepo repository.TenantRepository, userRepo repository.UserRepository, txManager repository.TransactionManager) TenantService {
	return &tenantService{tenantRepo: tenantRepo, userRepo: userRepo, txManager: txManager}
}

// Signup creates the tenant and its owner account in one transaction. The
// tenant starts in trial status with the starter plan's limits and features
// snapshot-copied, and the owner already counted against the users quota.
func (s *tenantService) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	if !slugRegex.MatchString(req.Slug) {
		return nil, errors.New("slug must be lowercase letters, digits and hyphens")
	}
	if _, err := s.tenantRepo.FindBySlug(ctx, req.Slug); err == nil {
		return nil, errors.New("slug already taken")
	}
	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	starter := plan.Get(plan.Starter)
	tenant := &model.Tenant{
		Name:      req.ShopName,
		Slug:      req.Slug,
		Plan:      plan.Starter,
		Status:    model.StatusTrial,
		ExpiresAt: time.Now().Add(trialPeriod),
		Limits:    starter.Limits,
		Features:  append([]string(nil), starter.Features...),
		Usage:     model.Usage{Users: 1},
	}
	owner := &model.User{
		Name:       req.OwnerName,
		Email:      req.Email,
		Password:   string(hashedPassword),
		TenantRole: permission.RoleOwner,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.tenantRepo.Create(txCtx, tenant); err != nil {
			return err
		}
		owner.TenantID = &tenant.ID
		return s.userRepo.Create(txCtx, owner)
	})
	if err != nil {
		return nil, err
	}

	return &SignupResponse{Tenant: tenant, Owner: mapUser(owner)}, nil
}

func (s *tenantService) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	return findTenant(ctx, s.tenantRepo, tenantID)
}
