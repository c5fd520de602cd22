package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/plan"
	"backend/internal/repository"
	"backend/pkg/secrets"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// DTOs for request validation
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=owner manager technician"`
}

type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email" binding:"omitempty,email"`
	Role  string `json:"role" binding:"omitempty,oneof=owner manager technician"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserResponse omits sensitive fields
type UserResponse struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	TenantRole string `json:"tenant_role,omitempty"`
	GlobalRole string `json:"global_role,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type UserService interface {
	Login(ctx context.Context, req LoginRequest) (*TokenPair, *UserResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, tenantID string, page, limit int) ([]UserResponse, int64, error)
	CreateUser(ctx context.Context, tenantID string, req CreateUserRequest) (*UserResponse, error)
	UpdateUser(ctx context.Context, tenantID, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, tenantID, id string) error
	PurgeExpiredRefreshTokens(ctx context.Context) error
}

type userService struct {
	repo repository.UserRepository
	subs SubscriptionService
}

func NewUserService(repo repository.UserRepository, subs SubscriptionService) UserService {
	return &userService{repo: repo, subs: subs}
}

func mapUser(user *model.User) *UserResponse {
	res := &UserResponse{
		ID:         user.ID.String(),
		Name:       user.Name,
		Email:      user.Email,
		TenantRole: user.TenantRole,
		GlobalRole: user.GlobalRole,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	}
	if user.TenantID != nil {
		res.TenantID = user.TenantID.String()
	}
	return res
}

// signAccessToken embeds the identity claims every guard resolves from
func signAccessToken(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(accessTokenTTL).Unix(),
	}
	if user.TenantID != nil {
		claims["tenant_id"] = user.TenantID.String()
	}
	if user.TenantRole != "" {
		claims["tenant_role"] = user.TenantRole
	}
	if user.GlobalRole != "" {
		claims["global_role"] = user.GlobalRole
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secrets.JWTKey())
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenPair, error) {
	accessToken, err := signAccessToken(user)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	refreshToken, err := newRefreshToken()
	if err != nil {
		return nil, errors.New("failed to generate refresh token")
	}
	err = s.repo.SaveRefreshToken(ctx, &model.RefreshToken{
		UserID:    user.ID,
		Token:     refreshToken,
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenPair, *UserResponse, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, errors.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, nil, errors.New("invalid email or password")
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return tokens, mapUser(user), nil
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := s.repo.FindRefreshToken(ctx, refreshToken)
	if err != nil || time.Now().After(stored.ExpiresAt) {
		return nil, errors.New("invalid or expired refresh token")
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	// Rotate: the old token is single-use
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		log.Printf("failed to delete rotated refresh token: %v", err)
	}
	return s.issueTokens(ctx, user)
}

// PurgeExpiredRefreshTokens drops sessions past their expiry. Refresh already
// rejects stale tokens; the purge keeps abandoned rows from piling up.
func (s *userService) PurgeExpiredRefreshTokens(ctx context.Context) error {
	return s.repo.DeleteExpiredRefreshTokens(ctx)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.New("user not found")
	}
	user, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, errors.New("user not found")
	}
	return mapUser(user), nil
}

func (s *userService) ListUsers(ctx context.Context, tenantID string, page, limit int) ([]UserResponse, int64, error) {
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

	users, total, err := s.repo.ListByTenant(ctx, tid, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, *mapUser(&users[i]))
	}
	return res, total, nil
}

// CreateUser adds a staff account and meters the users counter. The route-level
// usage guard already checked headroom; the increment here is the authoritative
// one and can still reject under concurrent signups.
func (s *userService) CreateUser(ctx context.Context, tenantID string, req CreateUserRequest) (*UserResponse, error) {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, errors.New("invalid tenant id")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, errors.New("email already exists")
	}

	// Reserve quota before creating the account so the counter can never
	// undercount a created user
	if err := s.subs.UpdateUsage(ctx, tenantID, plan.LimitUsers, 1); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("failed to hash password")
	}

	user := &model.User{
		TenantID:   &tid,
		Name:       req.Name,
		Email:      req.Email,
		Password:   string(hashedPassword),
		TenantRole: req.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// Release the reserved quota unit
		if uerr := s.subs.UpdateUsage(ctx, tenantID, plan.LimitUsers, -1); uerr != nil {
			log.Printf("failed to release user quota for tenant %s: %v", tenantID, uerr)
		}
		return nil, err
	}
	return mapUser(user), nil
}

func (s *userService) UpdateUser(ctx context.Context, tenantID, id string, req UpdateUserRequest) (*UserResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, errors.New("user not found")
	}
	user, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, errors.New("user not found")
	}
	if user.TenantID == nil || user.TenantID.String() != tenantID {
		return nil, errors.New("user not found")
	}

	if req.Role != "" {
		if req.Role == permission.RoleOwner && user.TenantRole != permission.RoleOwner {
			return nil, errors.New("ownership cannot be granted through user update")
		}
		user.TenantRole = req.Role
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Email != "" && req.Email != user.Email {
		if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
			return nil, errors.New("email already exists")
		}
		user.Email = req.Email
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return mapUser(user), nil
}

func (s *userService) DeleteUser(ctx context.Context, tenantID, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return errors.New("user not found")
	}
	user, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return errors.New("user not found")
	}
	if user.TenantID == nil || user.TenantID.String() != tenantID {
		return errors.New("user not found")
	}
	if user.TenantRole == permission.RoleOwner {
		return errors.New("the shop owner account cannot be deleted")
	}

	if err := s.repo.Delete(ctx, uid); err != nil {
		return err
	}
	if err := s.subs.UpdateUsage(ctx, tenantID, plan.LimitUsers, -1); err != nil {
		log.Printf("failed to decrement user count for tenant %s: %v", tenantID, err)
	}
	return nil
}
