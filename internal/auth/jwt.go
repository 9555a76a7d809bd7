package auth

import (
	"errors"
	"time"

	"villa-backend/internal/config"
	"villa-backend/internal/timeutil"

	"github.com/golang-jwt/jwt/v5"
)

// Permissions checked by the HTTP layer
const (
	PermBookingsRead    = "bookings.read"
	PermBookingsWrite   = "bookings.write"
	PermCustomersRead   = "customers.read"
	PermCustomersWrite  = "customers.write"
	PermCustomersDelete = "customers.delete"
	PermLedgerRead      = "ledger.read"
	PermLedgerWrite     = "ledger.write"
)

const RoleAdmin = "admin"

type Claims struct {
	UserID      int      `json:"user_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Capabilities is the set of permissions a request carries
type Capabilities struct {
	admin bool
	perms map[string]bool
}

// CapabilitiesFromClaims expands the token claims. The admin role holds every permission.
func CapabilitiesFromClaims(c *Claims) Capabilities {
	caps := Capabilities{admin: c.Role == RoleAdmin, perms: make(map[string]bool, len(c.Permissions))}
	for _, p := range c.Permissions {
		caps.perms[p] = true
	}
	return caps
}

func (c Capabilities) Has(perm string) bool {
	return c.admin || c.perms[perm]
}

type JWTManager struct {
	secret          []byte
	issuer          string
	expirationHours int
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{
		secret:          []byte(cfg.JWT.Secret),
		issuer:          cfg.JWT.Issuer,
		expirationHours: cfg.JWT.ExpirationHours,
	}
}

// GenerateToken signs a token for a staff member
func (j *JWTManager) GenerateToken(userID int, email, role string, permissions []string) (string, error) {
	now := timeutil.Now()
	expirationTime := now.Add(time.Duration(j.expirationHours) * time.Hour)

	claims := &Claims{
		UserID:      userID,
		Email:       email,
		Role:        role,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken verifies a JWT token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return j.secret, nil
	}, jwt.WithIssuer(j.issuer))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
