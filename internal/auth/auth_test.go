package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/auth/authtest"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-sla/pkg/util/errorutil"
)

func TestVerify_StaffToken(t *testing.T) {
	verifier := NewTokenVerifier("secret", 0)
	principal, err := verifier.Verify(authtest.Staff(t, "secret", "staff-1", domain.StaffRoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, "staff-1", principal.SubjectID)
	assert.Equal(t, domain.SubjectTypeStaff, principal.SubjectType)
	require.NotNil(t, principal.Role)
	assert.Equal(t, domain.StaffRoleAdmin, *principal.Role)
}

func TestVerify_ServiceToken(t *testing.T) {
	principal, err := NewTokenVerifier("secret", 0).Verify(authtest.Service(t, "secret", "helpdesk"))
	require.NoError(t, err)
	assert.Equal(t, domain.SubjectTypeService, principal.SubjectType)
	assert.Nil(t, principal.Role)
}

func TestVerify_WrongSecret(t *testing.T) {
	_, err := NewTokenVerifier("two", 0).Verify(authtest.Service(t, "one", "svc"))
	assert.Error(t, err)
}

func TestVerify_RejectsBadClaims(t *testing.T) {
	verifier := NewTokenVerifier("secret", 0)
	expired := authtest.Claims("svc", domain.SubjectTypeService, "")
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	noExpiry := authtest.Claims("svc", domain.SubjectTypeService, "")
	delete(noExpiry, "exp")

	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   error
	}{
		{"staff without role", authtest.Claims("ghost", domain.SubjectTypeStaff, ""), ErrStaffRole},
		{"staff with unknown role", authtest.Claims("ghost", domain.SubjectTypeStaff, "ROOT"), ErrStaffRole},
		{"service with role", authtest.Claims("svc", domain.SubjectTypeService, domain.StaffRoleAdmin), ErrServiceRole},
		{"unknown subject type", authtest.Claims("x", "ROBOT", ""), ErrUnknownSubject},
		{"blank subject id", authtest.Claims("  ", domain.SubjectTypeService, ""), ErrNoSubject},
		{"expired", expired, jwt.ErrTokenExpired},
		{"no expiry", noExpiry, jwt.ErrTokenRequiredClaimMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(authtest.Sign(t, "secret", tt.claims))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerify_LeewayAcceptsRecentExpiry(t *testing.T) {
	claims := authtest.Claims("svc", domain.SubjectTypeService, "")
	claims["exp"] = time.Now().Add(-5 * time.Second).Unix()
	token := authtest.Sign(t, "secret", claims)

	_, err := NewTokenVerifier("secret", time.Minute).Verify(token)
	assert.NoError(t, err)
	_, err = NewTokenVerifier("secret", 0).Verify(token)
	assert.Error(t, err)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	claims := authtest.Claims("svc", domain.SubjectTypeService, "")
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = NewTokenVerifier("secret", 0).Verify(token)
	assert.Error(t, err)
}

func newGuardedApp(verifier *TokenVerifier, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).SendString(fiberErr.Message)
			}
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	app.Get("/", NewAuthMiddleware(verifier).Handle, guard, func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(principal.SubjectID)
	})
	return app
}

func call(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestGuards(t *testing.T) {
	verifier := NewTokenVerifier("secret", 0)
	agentToken := authtest.Staff(t, "secret", "agent-1", domain.StaffRoleAgent)
	adminToken := authtest.Staff(t, "secret", "admin-1", domain.StaffRoleAdmin)
	serviceToken := authtest.Service(t, "secret", "tickets")
	roleless := authtest.Sign(t, "secret", authtest.Claims("ghost", domain.SubjectTypeStaff, ""))

	adminOnly := newGuardedApp(verifier, RequireStaffRole(domain.StaffRoleAdmin))
	assert.Equal(t, http.StatusOK, call(t, adminOnly, adminToken))
	assert.Equal(t, http.StatusForbidden, call(t, adminOnly, agentToken))
	assert.Equal(t, http.StatusForbidden, call(t, adminOnly, serviceToken))
	assert.Equal(t, http.StatusUnauthorized, call(t, adminOnly, ""))
	assert.Equal(t, http.StatusUnauthorized, call(t, adminOnly, "garbage"))
	assert.Equal(t, http.StatusUnauthorized, call(t, adminOnly, roleless))

	serviceOnly := newGuardedApp(verifier, RequireService())
	assert.Equal(t, http.StatusOK, call(t, serviceOnly, serviceToken))
	assert.Equal(t, http.StatusForbidden, call(t, serviceOnly, adminToken))

	either := newGuardedApp(verifier, RequireStaffOrService())
	assert.Equal(t, http.StatusOK, call(t, either, serviceToken))
	assert.Equal(t, http.StatusOK, call(t, either, agentToken))
}
