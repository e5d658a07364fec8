package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/erazemk/trgovina/internal/model"
)

// Token types carried in the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// ErrWrongType is returned when a token of the other type is presented.
var ErrWrongType = errors.New("wrong token type")

// Claims represents the JWT claims. Access tokens carry the tenant context
// and permission codes; refresh tokens only identify the user.
type Claims struct {
	Type            string   `json:"typ"`
	UserID          int64    `json:"user_id"`
	Username        string   `json:"username"`
	CompanyID       *int64   `json:"company_id,omitempty"`
	BranchID        *int64   `json:"branch_id,omitempty"`
	IsAdmin         bool     `json:"is_admin,omitempty"`
	IsPlatformAdmin bool     `json:"is_platform_admin,omitempty"`
	Permissions     []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// Can reports whether the claims grant the permission. Company admins hold
// every permission.
func (c *Claims) Can(perm string) bool {
	if c.IsAdmin {
		return true
	}
	return slices.Contains(c.Permissions, perm)
}

// Company returns the company id, or 0 for platform admins.
func (c *Claims) Company() int64 {
	if c.CompanyID == nil {
		return 0
	}
	return *c.CompanyID
}

// Issuer signs and validates tokens with one secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewIssuer returns an Issuer. Zero TTLs take the defaults.
func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// AccessTTL returns the access token lifetime.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// Access creates an access token for the user.
func (i *Issuer) Access(me *model.Me) (string, error) {
	token, _, err := i.sign(Claims{
		Type:            TypeAccess,
		UserID:          me.ID,
		Username:        me.Username,
		CompanyID:       me.CompanyID,
		BranchID:        me.BranchID,
		IsAdmin:         me.IsAdmin,
		IsPlatformAdmin: me.IsPlatformAdmin,
		Permissions:     me.Permissions,
	}, i.accessTTL)
	return token, err
}

// Refresh creates a refresh token with a unique JTI and returns its claims
// so the caller can record the JTI.
func (i *Issuer) Refresh(userID int64, username string) (string, *Claims, error) {
	return i.sign(Claims{
		Type:     TypeRefresh,
		UserID:   userID,
		Username: username,
	}, i.refreshTTL)
}

func (i *Issuer) sign(claims Claims, ttl time.Duration) (string, *Claims, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", nil, fmt.Errorf("generating JTI: %w", err)
	}

	now := i.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        jti,
		Subject:   claims.Username,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}
	return signed, &claims, nil
}

// Validate parses and validates a token of the wanted type, returning the claims.
func (i *Issuer) Validate(tokenStr, wantType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Type != wantType {
		return nil, ErrWrongType
	}

	return claims, nil
}

// generateJTI creates a random token ID.
func generateJTI() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
