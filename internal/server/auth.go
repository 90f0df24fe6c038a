package server

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/example/studyquest/internal/progress"
	"github.com/example/studyquest/pkg/models"
)

const actorKey = "actor"

// Claims are the bearer token claims issued by the identity collaborator
type Claims struct {
	ProfileID int64       `json:"profile_id"`
	Role      models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

// NewAuthenticator returns an Authenticator for secret
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for a profile. It exists for tooling and tests; production tokens come from the identity service.
func (a *Authenticator) Issue(profileID int64, role models.Role, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		ProfileID: profileID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// Verify parses a signed token and returns its claims
func (a *Authenticator) Verify(token string) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.ProfileID <= 0 {
		return nil, errors.New("token has no profile")
	}
	if claims.Role == "" {
		claims.Role = models.RoleStudent
	}
	return &claims, nil
}

// middleware rejects requests without a valid bearer token and stores the caller in the context
func (a *Authenticator) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(401, "missing bearer token")
		}
		claims, err := a.Verify(token)
		if err != nil {
			return echo.NewHTTPError(401, "invalid bearer token").SetInternal(err)
		}
		c.Set(actorKey, progress.Actor{ProfileID: claims.ProfileID, Role: claims.Role})
		return next(c)
	}
}

func actorFrom(c echo.Context) progress.Actor {
	actor, _ := c.Get(actorKey).(progress.Actor)
	return actor
}
