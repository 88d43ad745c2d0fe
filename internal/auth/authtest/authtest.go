// Package authtest signs bearer tokens shaped like the ones the helpdesk
// issues. Production code only verifies tokens.
package authtest

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// Sign signs arbitrary claims with HS256.
func Sign(t testing.TB, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// Claims returns a valid claim set expiring in one hour. role may be empty.
func Claims(subjectID string, subject domain.SubjectType, role domain.StaffRole) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     subjectID,
		"subject": string(subject),
		"iat":     now.Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = string(role)
	}
	return claims
}

// Staff signs a token for an operator with the given role.
func Staff(t testing.TB, secret, subjectID string, role domain.StaffRole) string {
	t.Helper()
	return Sign(t, secret, Claims(subjectID, domain.SubjectTypeStaff, role))
}

// Service signs a token for a calling service.
func Service(t testing.TB, secret, subjectID string) string {
	t.Helper()
	return Sign(t, secret, Claims(subjectID, domain.SubjectTypeService, ""))
}
