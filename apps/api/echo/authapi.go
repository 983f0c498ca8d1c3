package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/user"
)

var (
	errAuthenticationFailed = echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	errAccountNotVerified   = echo.NewHTTPError(http.StatusForbidden, "account is not verified")
	errTokenInvalid         = echo.NewHTTPError(http.StatusUnauthorized, "token is unknown or expired")
)

type authApi struct {
	conf *core.Config
	svc  user.Service
	deps ServerDeps
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := authApi{conf: deps.Conf, svc: deps.UserSvc, deps: deps}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.POST("/register", api.register)
	ag.POST("/refreshToken", api.refreshToken)
	ag.POST("/verify", api.verify)

	// authed endpoints
	sg := ag.Group("", jwt)
	sg.POST("/logout", api.logout)
	sg.GET("/me", api.me)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		UserID       int       `json:"user_id"`
		Email        string    `json:"email"`
		Role         user.Role `json:"role"`
		AccessToken  string    `json:"access_token"`
		RefreshToken string    `json:"refresh_token"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	RefreshResponse struct {
		AccessToken string `json:"access_token"`
	}

	VerifyRequest struct {
		UID   string `json:"uid" validate:"required"`
		Token string `json:"token" validate:"required"`
	}
)

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrAuthenticationFailed:
			return errAuthenticationFailed
		case user.ErrNotVerified:
			return errAccountNotVerified
		}
		return errors.Wrap(err, "authenticating")
	}

	access, refresh, err := issueTokenPair(ctx, api.conf, api.svc, usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		UserID:       usr.ID,
		Email:        usr.Email,
		Role:         usr.Role,
		AccessToken:  access,
		RefreshToken: refresh,
	})
}

func (api *authApi) register(ctx echo.Context) error {
	var data user.RegisterUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RegisterUser")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	rctx := ctx.Request().Context()
	tok, err := api.svc.GetRefreshToken(rctx, data.RefreshToken)
	if err != nil {
		if errors.Cause(err) == user.ErrTokenInvalid {
			return errTokenInvalid
		}
		return errors.Wrap(err, "finding refresh token")
	}

	usr, err := api.svc.GetByID(rctx, tok.UserID)
	if err != nil {
		if core.IsNotFound(err) {
			return errTokenInvalid
		}
		return errors.Wrap(err, "finding user by ID")
	}

	now := time.Now().UTC()
	access, err := GenerateToken(api.conf, NewUserClaims(api.conf, usr, tok.PairID, now))
	if err != nil {
		return err
	}
	if err = api.svc.ReplaceAccessToken(rctx, tok.PairID, access, now.Add(api.conf.Server.AccessTokenTTL)); err != nil {
		return errors.Wrap(err, "replacing access token")
	}
	return ctx.JSON(http.StatusOK, RefreshResponse{AccessToken: access})
}

func (api *authApi) verify(ctx echo.Context) error {
	var data VerifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	usr, err := api.svc.Verify(ctx.Request().Context(), data.UID, data.Token)
	if err != nil {
		if errors.Cause(err) == user.ErrTokenInvalid {
			return echo.NewHTTPError(http.StatusBadRequest, user.ErrTokenInvalid.Error())
		}
		return errors.Wrap(err, "verifying account")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *authApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	p, err := getPrincipal(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.DeleteTokenPair(ctx.Request().Context(), p.ID, claims.PairID); err != nil && !core.IsNotFound(err) {
		return errors.Wrap(err, "deleting token pair")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}
