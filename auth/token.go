package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dentiste/dental-api/models"
	"github.com/dentiste/dental-api/utils"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"

	refreshTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carried by every token. ID is the practitioner id, the tenant key
// of every query.
type Claims struct {
	ID   uint   `json:"id"`
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == string(models.RoleAdmin)
}

// ExpiresIn is the remaining lifetime at now, never negative.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	d := c.ExpiresAt.Time.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  utils.Clock
}

func NewIssuer(secret string, ttl time.Duration, clock utils.Clock) *Issuer {
	if clock == nil {
		clock = utils.SystemClock
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, clock: clock}
}

func (i *Issuer) Secret() []byte {
	return i.secret
}

// Issue returns a signed access token for u.
func (i *Issuer) Issue(u *models.User) (string, *Claims, error) {
	return i.sign(u.ID, string(u.Role), TokenAccess, i.ttl)
}

// IssueRefresh returns a longer lived token only accepted by Refresh.
func (i *Issuer) IssueRefresh(u *models.User) (string, *Claims, error) {
	return i.sign(u.ID, string(u.Role), TokenRefresh, refreshTTL)
}

func (i *Issuer) sign(id uint, role, typ string, ttl time.Duration) (string, *Claims, error) {
	now := i.clock.Now()
	claims := &Claims{
		ID:   id,
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(id), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies the signature and expiry of raw.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(i.clock.Now()) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
