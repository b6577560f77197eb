// Package security provides the bearer token service, key loading, password hashing
// and the random identifiers used by the session store.
package security

import (
	"context"
	"crypto"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ai-prompt-generator/admin/internal/platform/rbac"
)

var (
	// ErrInvalidToken is returned when a token is malformed, badly signed, or has the wrong issuer/audience.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned when a token's exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidClaims is returned when a token verifies but carries an unknown role or permission.
	ErrInvalidClaims = errors.New("invalid token claims")
)

// AccessClaims holds the JWT claims of an admin bearer token. Permissions are
// fixed at issuance.
type AccessClaims struct {
	jwt.RegisteredClaims
	Username    string   `json:"username"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// TokenSubject is what gets embedded in an issued token.
type TokenSubject struct {
	UserID      string
	Username    string
	Role        rbac.Role
	Permissions rbac.PermissionSet
}

// VerifiedToken is the decoded content of a token that passed verification.
type VerifiedToken struct {
	ID          string
	UserID      string
	Username    string
	Role        rbac.Role
	Permissions rbac.PermissionSet
	ExpiresAt   time.Time
}

// TokenProvider issues and verifies admin bearer tokens signed with RS256, ES256 or EdDSA.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	method     jwt.SigningMethod
	issuer     string
	audience   string
	ttl        time.Duration
	nowF       func() time.Time
}

// NewTokenProvider returns a TokenProvider signing with privateKey. The algorithm follows the key type.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) (*TokenProvider, error) {
	method, err := SigningMethodFor(publicKey)
	if err != nil {
		return nil, err
	}
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		method:     method,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
		nowF:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (p *TokenProvider) TTL() time.Duration { return p.ttl }

// Issue signs a token for sub. Returns the token string, its jti and expiry.
func (p *TokenProvider) Issue(sub TokenSubject) (token, jti string, expiresAt time.Time, err error) {
	jti, err = randomHex(16)
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := p.nowF()
	expiresAt = now.Add(p.ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   sub.UserID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:    sub.Username,
		Role:        string(sub.Role),
		Permissions: sub.Permissions.Strings(),
	}
	token, err = jwt.NewWithClaims(p.method, claims).SignedString(p.privateKey)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, expiresAt, nil
}

// Verify checks signature, exp, iss and aud and decodes the claims.
// Expired tokens return ErrTokenExpired; every other failure returns ErrInvalidToken or ErrInvalidClaims.
func (p *TokenProvider) Verify(ctx context.Context, tokenString string) (*VerifiedToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{p.method.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.nowF),
	)
	token, err := parser.ParseWithClaims(tokenString, &AccessClaims{}, func(*jwt.Token) (interface{}, error) {
		return p.publicKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	role, err := rbac.ParseRole(claims.Role)
	if err != nil {
		return nil, ErrInvalidClaims
	}
	perms, err := rbac.ParsePermissionSet(claims.Permissions)
	if err != nil {
		return nil, ErrInvalidClaims
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return &VerifiedToken{
		ID:          claims.ID,
		UserID:      claims.Subject,
		Username:    claims.Username,
		Role:        role,
		Permissions: perms,
		ExpiresAt:   exp,
	}, nil
}

// ExpiryOf returns the exp claim of tokenString without verifying the signature.
// Used to size revocation entries; never use the result for an authorization decision.
func ExpiryOf(tokenString string) (time.Time, bool) {
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
