package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/chuoapp/chuo/core"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("invalid email or password")
	ErrNotVerified          = errors.New("account is not verified")
	ErrTokenInvalid         = errors.New("token is unknown or expired")
)

type (
	Service interface {
		Register(ctx context.Context, ru RegisterUser) (User, error)
		Create(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		Verify(ctx context.Context, uid, token string) (User, error)

		GetByID(ctx context.Context, id int) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Filter(ctx context.Context, filter QueryFilter, page core.Pagination) ([]User, int, error)
		Update(ctx context.Context, id int, uu UpdateUser) (User, error)
		Delete(ctx context.Context, id int) error

		SaveTokenPair(ctx context.Context, access, refresh Token) error
		GetAccessToken(ctx context.Context, secret string) (Token, error)
		GetRefreshToken(ctx context.Context, secret string) (Token, error)
		ReplaceAccessToken(ctx context.Context, pairID, secret string, expiresAt time.Time) error
		DeleteTokenPair(ctx context.Context, userID int, pairID string) error
	}

	service struct {
		conf      *core.Config
		repo      Repository
		tokenRepo TokenRepository
		mailSvc   core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(conf *core.Config, repo Repository, tokenRepo TokenRepository, mailSvc core.EmailService) Service {
	return &service{
		conf:      conf,
		repo:      repo,
		tokenRepo: tokenRepo,
		mailSvc:   mailSvc,
	}
}

func (svc *service) checkUniqueness(ctx context.Context, email string, exclIDs ...int) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclIDs...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Register(ctx context.Context, ru RegisterUser) (User, error) {
	email := core.CleanString(ru.Email, true /* lower */)
	if err := svc.checkUniqueness(ctx, email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		FirstName:  core.CleanString(ru.FirstName),
		LastName:   core.CleanString(ru.LastName),
		MiddleName: core.CleanString(ru.MiddleName),
		Email:      email,
		Role:       Role(ru.Role),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(ru.Password); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendVerificationMail(usr)
	return usr, nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	email := core.CleanString(nu.Email, true /* lower */)
	if err := svc.checkUniqueness(ctx, email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		FirstName:  core.CleanString(nu.FirstName),
		LastName:   core.CleanString(nu.LastName),
		MiddleName: core.CleanString(nu.MiddleName),
		Email:      email,
		Role:       Role(nu.Role),
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsVerified {
		return User{}, ErrNotVerified
	}
	return usr, nil
}

func (svc *service) Verify(ctx context.Context, uid, token string) (User, error) {
	id, err := DecodeUID(uid)
	if err != nil {
		return User{}, ErrTokenInvalid
	}
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrTokenInvalid
		}
		return User{}, err
	}
	if err = VerifyToken(usr, token, svc.conf.SecretKey); err != nil {
		return User{}, ErrTokenInvalid
	}

	usr.IsVerified = true
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter, page core.Pagination) ([]User, int, error) {
	filter.Clean()
	page.Clean()
	return svc.repo.FilterUsers(ctx, filter, page)
}

func (svc *service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if uu.Email != "" {
		email := core.CleanString(uu.Email, true /* lower */)
		if err = svc.checkUniqueness(ctx, email, id); err != nil {
			return User{}, err
		}
		usr.Email = email
	}
	if uu.FirstName != "" {
		usr.FirstName = core.CleanString(uu.FirstName)
	}
	if uu.LastName != "" {
		usr.LastName = core.CleanString(uu.LastName)
	}
	if uu.MiddleName != "" {
		usr.MiddleName = core.CleanString(uu.MiddleName)
	}
	if uu.IsVerified != nil {
		usr.IsVerified = *uu.IsVerified
	}
	if uu.Password != "" {
		if err = usr.SetPassword(uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteUser(ctx, id)
}

func (svc *service) SaveTokenPair(ctx context.Context, access, refresh Token) error {
	return svc.tokenRepo.SaveTokenPair(ctx, access, refresh, svc.conf.Server.MaxRefreshTokens)
}

// GetAccessToken resolves a live stored access credential. A token whose pair
// was deleted by logout or eviction no longer resolves, whatever its signature
// says.
func (svc *service) GetAccessToken(ctx context.Context, secret string) (Token, error) {
	tok, err := svc.tokenRepo.GetTokenByHash(ctx, TokenAccess, HashSecret(secret))
	if err != nil {
		if core.IsNotFound(err) {
			return Token{}, ErrTokenInvalid
		}
		return Token{}, err
	}
	if tok.Expired(NowFunc()) {
		return Token{}, ErrTokenInvalid
	}
	return tok, nil
}

func (svc *service) GetRefreshToken(ctx context.Context, secret string) (Token, error) {
	tok, err := svc.tokenRepo.GetTokenByHash(ctx, TokenRefresh, HashSecret(secret))
	if err != nil {
		if core.IsNotFound(err) {
			return Token{}, ErrTokenInvalid
		}
		return Token{}, err
	}
	if tok.Expired(NowFunc()) {
		return Token{}, ErrTokenInvalid
	}
	return tok, nil
}

func (svc *service) ReplaceAccessToken(ctx context.Context, pairID, secret string, expiresAt time.Time) error {
	return svc.tokenRepo.ReplaceAccessToken(ctx, pairID, HashSecret(secret), expiresAt)
}

func (svc *service) DeleteTokenPair(ctx context.Context, userID int, pairID string) error {
	return svc.tokenRepo.DeleteTokenPair(ctx, userID, pairID)
}

func (svc *service) sendVerificationMail(usr User) {
	token, err := MakeToken(usr, svc.conf.SecretKey)
	if err != nil {
		return
	}
	link := fmt.Sprintf("%s/verify?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(usr), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject: "Verify your account",
		BodyStr: fmt.Sprintf(
			"Hi %s,\r\n\r\nWelcome to %s! Please confirm your email address by following this link:\r\n%s\r\n",
			usr.FirstName, svc.conf.AppName, link,
		),
	})
}
