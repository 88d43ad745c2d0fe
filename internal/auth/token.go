package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

var (
	ErrNoSubject      = errors.New("token has no subject")
	ErrUnknownSubject = errors.New("token has an unknown subject type")
	ErrStaffRole      = errors.New("staff token without a valid role")
	ErrServiceRole    = errors.New("service token must not carry a role")
)

// Claims is the payload the helpdesk signs. The subject id travels in the
// registered "sub" claim.
type Claims struct {
	Subject domain.SubjectType `json:"subject"`
	Role    *domain.StaffRole  `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 tokens issued by the helpdesk. This service
// never issues tokens itself.
type TokenVerifier struct {
	secret []byte
	leeway time.Duration
}

// NewTokenVerifier builds a verifier. leeway is the clock skew tolerated on
// exp/nbf/iat.
func NewTokenVerifier(secret string, leeway time.Duration) *TokenVerifier {
	if leeway < 0 {
		leeway = 0
	}
	return &TokenVerifier{secret: []byte(secret), leeway: leeway}
}

// ParseToken validates the signature, requires an expiry and returns the
// claims without interpreting them.
func (v *TokenVerifier) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Verify parses the token and turns its claims into a Principal. Staff
// tokens must carry a known role, service tokens must not carry one.
func (v *TokenVerifier) Verify(tokenStr string) (*Principal, error) {
	claims, err := v.ParseToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims.Principal()
}

// Principal validates the subject claims.
func (c *Claims) Principal() (*Principal, error) {
	subjectID := strings.TrimSpace(c.RegisteredClaims.Subject)
	if subjectID == "" {
		return nil, ErrNoSubject
	}
	principal := &Principal{SubjectType: c.Subject, SubjectID: subjectID}
	switch c.Subject {
	case domain.SubjectTypeStaff:
		if c.Role == nil || !c.Role.Valid() {
			return nil, ErrStaffRole
		}
		role := *c.Role
		principal.Role = &role
	case domain.SubjectTypeService:
		if c.Role != nil {
			return nil, ErrServiceRole
		}
	default:
		return nil, ErrUnknownSubject
	}
	return principal, nil
}
