package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/access"
	"github.com/chuoapp/chuo/core/user"
)

const (
	tokenContextKey = "userToken"
	userContextKey  = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
// PairID correlates an access token with the refresh token issued alongside
// it so logout can revoke both at once.
type Claims struct {
	jwt.StandardClaims
	Role   string `json:"role,omitempty"`
	PairID string `json:"pid,omitempty"`
}

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// authMiddleware verifies the bearer JWT and then requires its credential to
// still be stored. Logout and pair eviction delete the stored hash, so a
// revoked access token fails here even while its signature is valid.
func authMiddleware(conf *core.Config, svc user.Service) echo.MiddlewareFunc {
	verify := middleware.JWTWithConfig(newJWTConfig(conf))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(ctx echo.Context) error {
			token, ok := ctx.Get(tokenContextKey).(*jwt.Token)
			if !ok {
				return errUnauthorized
			}
			if _, err := svc.GetAccessToken(ctx.Request().Context(), token.Raw); err != nil {
				if errors.Cause(err) == user.ErrTokenInvalid {
					return errTokenInvalid
				}
				return errors.Wrap(err, "checking access token")
			}
			return next(ctx)
		})
	}
}

// NewUserClaims builds the claims carried by an access token for usr.
func NewUserClaims(conf *core.Config, usr user.User, pairID string, now time.Time) *Claims {
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(usr.ID),
			ExpiresAt: now.Add(conf.Server.AccessTokenTTL).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role:   string(usr.Role),
		PairID: pairID,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	return ss, errors.Wrap(err, "signing token")
}

// issueTokenPair signs a fresh access JWT, generates an opaque refresh secret
// and persists both as a pair. Issuing a pair may evict the user's oldest one.
func issueTokenPair(ctx echo.Context, conf *core.Config, svc user.Service, usr user.User) (accessStr, refreshStr string, err error) {
	now := time.Now().UTC()
	pairID := uuid.New().String()

	accessStr, err = GenerateToken(conf, NewUserClaims(conf, usr, pairID, now))
	if err != nil {
		return "", "", err
	}
	refreshStr, err = user.GenerateSecret()
	if err != nil {
		return "", "", errors.Wrap(err, "generating refresh secret")
	}

	err = svc.SaveTokenPair(
		ctx.Request().Context(),
		user.Token{
			UserID:    usr.ID,
			Type:      user.TokenAccess,
			Hash:      user.HashSecret(accessStr),
			PairID:    pairID,
			CreatedAt: now,
			ExpiresAt: now.Add(conf.Server.AccessTokenTTL),
		},
		user.Token{
			UserID:    usr.ID,
			Type:      user.TokenRefresh,
			Hash:      user.HashSecret(refreshStr),
			PairID:    pairID,
			CreatedAt: now,
			ExpiresAt: now.Add(conf.Server.RefreshTokenTTL),
		},
	)
	if err != nil {
		return "", "", errors.Wrap(err, "saving token pair")
	}
	return accessStr, refreshStr, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getPrincipal extracts the authenticated actor from the request claims.
func getPrincipal(ctx echo.Context) (access.Principal, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return access.Principal{}, err
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return access.Principal{}, errUnauthorized
	}
	return access.Principal{ID: id, Role: user.Role(claims.Role)}, nil
}

func getContextUser(ctx echo.Context, svc user.Service) (user.User, error) {
	if usr, ok := ctx.Get(userContextKey).(user.User); ok {
		return usr, nil
	}
	p, err := getPrincipal(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := svc.GetByID(ctx.Request().Context(), p.ID)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(userContextKey, usr)
	return usr, nil
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getPrincipal(ctx)
			if err != nil {
				return err
			}
			if !p.IsAdmin() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

var errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
