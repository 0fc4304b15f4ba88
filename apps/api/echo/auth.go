package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

const (
	contextTokenKey    = "userToken"
	contextIdentityKey = "identity"
)

// Claims represents the authorization claims transmitted via a JWT.
// Roles are not carried: they are loaded on every request so revocations apply immediately.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

func GetUserClaims(conf *core.Config, usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: usr.Username,
	}
}

// GenerateToken generates a signed HS256 token for usr.
func GenerateToken(conf *core.Config, usr user.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, GetUserClaims(conf, usr))
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func jwtMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims { return new(Claims) },
		ErrorHandler: func(ctx echo.Context, err error) error {
			if ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return errJWTMissing
			}
			return errJWTInvalid
		},
	})
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// Identity is the authenticated caller with its current roles.
type Identity struct {
	UserID   string
	Username string
	Roles    []user.Role
}

func (id Identity) Is(roles ...user.Role) bool {
	return user.HasAnyRole(id.Roles, roles...)
}

func getContextIdentity(ctx echo.Context) (Identity, error) {
	if id, ok := ctx.Get(contextIdentityKey).(Identity); ok {
		return id, nil
	}
	return Identity{}, errUnauthorized
}

// Requirement describes who may call an endpoint.
type Requirement struct {
	roles []user.Role // empty: any authenticated user
}

func Authenticated() Requirement { return Requirement{} }

func AdminOnly() Requirement { return AnyRole(user.RoleAdmin) }

func AnyRole(roles ...user.Role) Requirement { return Requirement{roles: roles} }

func (r Requirement) allows(granted []user.Role) bool {
	return len(r.roles) == 0 || user.HasAnyRole(granted, r.roles...)
}

var staffOnly = AnyRole(user.StaffRoles...)
