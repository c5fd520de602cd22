package middleware

import (
	"log"
	"net/http"
	"time"

	"backend/internal/model"
	"backend/internal/permission"
	"backend/internal/plan"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// timeNow is swapped in trial-expiry tests
var timeNow = time.Now

// Denial codes carried in guard rejection payloads
const (
	CodeNoRole                 = "NO_ROLE"
	CodeInsufficientPermission = "INSUFFICIENT_PERMISSIONS"
	CodeInsufficientRoleLevel  = "INSUFFICIENT_ROLE_LEVEL"
	CodeOwnershipRequired      = "RESOURCE_OWNERSHIP_REQUIRED"
	CodeTenantIsolation        = "TENANT_ISOLATION_VIOLATION"
	CodeFeatureNotAvailable    = "FEATURE_NOT_AVAILABLE"
	CodeUsageLimitExceeded     = "USAGE_LIMIT_EXCEEDED"
	CodeStorageLimitExceeded   = "STORAGE_LIMIT_EXCEEDED"
	CodeSubscriptionCancelled  = "SUBSCRIPTION_CANCELLED"
	CodeSubscriptionSuspended  = "SUBSCRIPTION_SUSPENDED"
	CodeTrialExpired           = "TRIAL_EXPIRED"
)

// deny short-circuits the chain with the structured rejection payload
func deny(c *gin.Context, status int, code, message string, extra map[string]any) {
	c.AbortWithStatusJSON(status, response.Denied(code, message, extra))
}

// requireIdentity resolves the caller or rejects: 401 without an identity,
// 403 NO_ROLE when the identity carries no resolvable role.
func requireIdentity(c *gin.Context) (Identity, bool) {
	identity, ok := CurrentIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authentication required"))
		return Identity{}, false
	}
	if identity.Role() == "" {
		deny(c, http.StatusForbidden, CodeNoRole, "No role assigned to this account", nil)
		return Identity{}, false
	}
	return identity, true
}

// RequirePermission rejects unless the caller's role allows action on resource
func RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}
		if !permission.HasPermission(identity.Role(), resource, action) {
			deny(c, http.StatusForbidden, CodeInsufficientPermission,
				"Access denied: missing permission to "+action+" "+resource, nil)
			return
		}
		c.Next()
	}
}

// RequireAnyPermission passes if at least one of the actions is allowed
func RequireAnyPermission(resource string, actions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}
		if !permission.HasAnyPermission(identity.Role(), resource, actions) {
			deny(c, http.StatusForbidden, CodeInsufficientPermission,
				"Access denied: no matching permission on "+resource, nil)
			return
		}
		c.Next()
	}
}

// RequireAllPermissions passes only if every action is allowed
func RequireAllPermissions(resource string, actions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}
		if !permission.HasAllPermissions(identity.Role(), resource, actions) {
			deny(c, http.StatusForbidden, CodeInsufficientPermission,
				"Access denied: missing permissions on "+resource, nil)
			return
		}
		c.Next()
	}
}

// RequireRoleLevel rejects callers below the required role level
func RequireRoleLevel(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}
		if !permission.HasRoleLevel(identity.Role(), requiredRole) {
			deny(c, http.StatusForbidden, CodeInsufficientRoleLevel,
				"Access denied: role level of "+requiredRole+" or above required", nil)
			return
		}
		c.Next()
	}
}

// OwnerExtractor resolves the owning user id of the targeted resource
type OwnerExtractor func(c *gin.Context) (string, error)

// RequireOwnership lets technicians act only on resources assigned to them.
// Every role above technician bypasses the check.
func RequireOwnership(extract OwnerExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}
		if identity.Role() != permission.RoleTechnician {
			c.Next()
			return
		}

		ownerID, err := extract(c)
		if err != nil {
			deny(c, http.StatusForbidden, CodeOwnershipRequired,
				"Access denied: resource ownership could not be verified", nil)
			return
		}
		if ownerID == "" || ownerID != identity.UserID {
			deny(c, http.StatusForbidden, CodeOwnershipRequired,
				"Access denied: this resource is not assigned to you", nil)
			return
		}
		c.Next()
	}
}

// tenantIDBody is the shallow body shape inspected for cross-tenant writes
type tenantIDBody struct {
	TenantID string `json:"tenant_id"`
}

// TenantIsolation rejects requests that reference another tenant's id in the
// path or body. Platform admins bypass.
func TenantIsolation() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}
		if permission.IsGlobalRole(identity.GlobalRole) {
			c.Next()
			return
		}

		target := c.Param("tenantId")
		if target == "" && c.ContentType() == "application/json" {
			var body tenantIDBody
			// ShouldBindBodyWith buffers the body so the handler can bind again
			if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil {
				target = body.TenantID
			}
		}

		if target != "" && target != identity.TenantID {
			deny(c, http.StatusForbidden, CodeTenantIsolation,
				"Access denied: cannot operate on another tenant", nil)
			return
		}
		c.Next()
	}
}

// Guards bundles the checks that need subscription state
type Guards struct {
	subs service.SubscriptionService
}

func NewGuards(subs service.SubscriptionService) *Guards {
	return &Guards{subs: subs}
}

// RequireFeature rejects tenants whose plan snapshot lacks the feature, hinting
// at the lowest plan that carries it
func (g *Guards) RequireFeature(feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}
		if !g.subs.HasFeature(c.Request.Context(), identity.TenantID, feature) {
			deny(c, http.StatusForbidden, CodeFeatureNotAvailable,
				"The "+feature+" feature is not available on your plan", map[string]any{
					"feature":       feature,
					"required_plan": plan.RequiredPlanFor(feature),
				})
			return
		}
		c.Next()
	}
}

// CheckUsageLimit rejects when the tenant has no headroom for the resource
// type. It only checks; the business handler meters the counter after the
// mutation succeeds.
func (g *Guards) CheckUsageLimit(limitType plan.LimitType) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}
		if g.subs.CheckLimit(c.Request.Context(), identity.TenantID, limitType) {
			c.Next()
			return
		}

		code := CodeUsageLimitExceeded
		if limitType == plan.LimitStorage {
			code = CodeStorageLimitExceeded
		}
		extra := map[string]any{"limit_type": string(limitType)}
		if snapshot, err := g.subs.GetUsage(c.Request.Context(), identity.TenantID); err == nil {
			extra["usage"] = snapshot.Usage.Get(limitType)
			extra["limit"] = snapshot.Limits.Get(limitType)
			extra["plan"] = snapshot.Plan
		}
		deny(c, http.StatusForbidden, code,
			"Your plan's "+string(limitType)+" limit has been reached", extra)
	}
}

// RequireActiveSubscription rejects cancelled, suspended and trial-expired
// tenants. Trial expiry is evaluated against the current time on every request.
func (g *Guards) RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := requireIdentity(c)
		if !ok {
			return
		}
		if permission.IsGlobalRole(identity.GlobalRole) {
			c.Next()
			return
		}

		snapshot, err := g.subs.GetUsage(c.Request.Context(), identity.TenantID)
		if err != nil {
			deny(c, http.StatusForbidden, CodeSubscriptionCancelled, "No active subscription found", nil)
			return
		}

		switch snapshot.Status {
		case model.StatusCancelled:
			deny(c, http.StatusForbidden, CodeSubscriptionCancelled,
				"Your subscription has been cancelled", nil)
		case model.StatusSuspended:
			deny(c, http.StatusForbidden, CodeSubscriptionSuspended,
				"Your subscription has been suspended", nil)
		case model.StatusTrial:
			if snapshot.ExpiresAt.Before(timeNow()) {
				deny(c, http.StatusForbidden, CodeTrialExpired,
					"Your trial period has expired", map[string]any{"expired_at": snapshot.ExpiresAt})
				return
			}
			c.Next()
		default:
			c.Next()
		}
	}
}

// TrackAPIUsage meters apiCalls best-effort. Failures are logged and swallowed
// so metering can never block a request.
func (g *Guards) TrackAPIUsage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, ok := CurrentIdentity(c); ok && identity.TenantID != "" {
			if err := g.subs.UpdateUsage(c.Request.Context(), identity.TenantID, plan.LimitAPICalls, 1); err != nil {
				log.Printf("api usage tracking failed for tenant %s: %v", identity.TenantID, err)
			}
		}
		c.Next()
	}
}
