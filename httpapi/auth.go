package httpapi

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angzarr-io/pos/config"
	"github.com/angzarr-io/pos/pos"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Staff roles.
const (
	RoleManager = "Manager"
	RoleCashier = "Cashier"
	RoleKitchen = "Kitchen"
)

const (
	ctxStaffID = "staffID"
	ctxRole    = "role"
)

// ErrInvalidCredentials is returned for an unknown staff id or a wrong PIN.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims is the session token payload.
type Claims struct {
	StaffID string `json:"staff_id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Staff is a member who can sign in.
type Staff struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`

	pinHash []byte
}

// Authenticator issues and verifies staff session tokens.
type Authenticator struct {
	staff  []Staff
	secret []byte
	ttl    time.Duration
	clock  pos.Clock
}

// NewAuthenticator hashes any plain PINs and prepares the signing key. An
// empty secret generates a random one, so tokens do not survive a restart.
func NewAuthenticator(roster []config.StaffConfig, secret string, ttl time.Duration, clock pos.Clock) (*Authenticator, error) {
	if clock == nil {
		clock = pos.SystemClock{}
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
	}

	staff := make([]Staff, 0, len(roster))
	for _, s := range roster {
		hash := []byte(s.PINHash)
		if len(hash) == 0 {
			var err error
			hash, err = bcrypt.GenerateFromPassword([]byte(s.PIN), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("hash pin for %s: %w", s.ID, err)
			}
		}
		staff = append(staff, Staff{ID: s.ID, Name: s.Name, Role: s.Role, pinHash: hash})
	}
	return &Authenticator{staff: staff, secret: key, ttl: ttl, clock: clock}, nil
}

// Authenticate finds the staff member owning pin. With an empty staffID
// every member is tried.
func (a *Authenticator) Authenticate(staffID, pin string) (Staff, error) {
	for _, s := range a.staff {
		if staffID != "" && s.ID != staffID {
			continue
		}
		if bcrypt.CompareHashAndPassword(s.pinHash, []byte(pin)) == nil {
			return s, nil
		}
	}
	return Staff{}, ErrInvalidCredentials
}

// Issue signs a session token for a staff member.
func (a *Authenticator) Issue(s Staff) (string, time.Time, error) {
	now := a.clock.Now()
	expires := now.Add(a.ttl)
	claims := &Claims{
		StaffID: s.ID,
		Name:    s.Name,
		Role:    s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// Verify parses and validates a session token.
func (a *Authenticator) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.clock.Now))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Middleware requires a valid bearer token and, when roles are given, one of
// those roles.
func (a *Authenticator) Middleware(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			return
		}
		claims, err := a.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if len(roles) > 0 && !hasRole(claims.Role, roles) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Set(ctxStaffID, claims.StaffID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
