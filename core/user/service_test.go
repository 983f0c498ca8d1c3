package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/user"
	emailsvc "github.com/chuoapp/chuo/services/email"
	dummydb "github.com/chuoapp/chuo/storage/database/dummy"
)

func testConfig() *core.Config {
	return &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Chuo",
		SecretKey:       "test-secret-key",
		FrontendBaseURL: "http://localhost:3000",
		DefaultFromName: "Chuo",
		DefaultFromAddr: "noreply@localhost",
		Server:          core.ServerConfig{MaxRefreshTokens: 5},
	}
}

func setup(t *testing.T) user.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := testConfig()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	return user.NewService(conf, dummydb.NewUserRepository(db), dummydb.NewTokenRepository(db), mailSvc)
}

func TestService_Register_thenVerify(t *testing.T) {
	emailsvc.ClearSentMessages()
	svc := setup(t)
	ctx := context.Background()

	usr, err := svc.Register(ctx, user.RegisterUser{
		FirstName:       "Amina",
		LastName:        "Kazadi",
		Email:           "Amina@Test.CD",
		Role:            string(user.RoleStudent),
		Password:        "s3cur3-Pass!",
		ConfirmPassword: "s3cur3-Pass!",
	})
	require.NoError(t, err)
	assert.NotZero(t, usr.ID)
	assert.Equal(t, "amina@test.cd", usr.Email)
	assert.False(t, usr.IsVerified)

	// the verification mail went out with a working uid/token pair
	require.Len(t, emailsvc.SentMessages, 1)
	assert.Contains(t, emailsvc.SentMessages[0].TextContent, "uid="+user.EncodeUID(usr))

	_, err = svc.Authenticate(ctx, usr.Email, "s3cur3-Pass!")
	assert.Equal(t, user.ErrNotVerified, err)

	token, err := user.MakeToken(usr, "test-secret-key")
	require.NoError(t, err)

	verified, err := svc.Verify(ctx, user.EncodeUID(usr), token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	got, err := svc.Authenticate(ctx, usr.Email, "s3cur3-Pass!")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
}

func TestService_Verify_badToken(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	usr, err := svc.Register(ctx, user.RegisterUser{
		FirstName:       "Jo",
		LastName:        "Ilunga",
		Email:           "jo@test.cd",
		Role:            string(user.RoleTeacher),
		Password:        "s3cur3-Pass!",
		ConfirmPassword: "s3cur3-Pass!",
	})
	require.NoError(t, err)

	_, err = svc.Verify(ctx, user.EncodeUID(usr), "not-a-token")
	assert.Equal(t, user.ErrTokenInvalid, err)

	_, err = svc.Verify(ctx, "###", "not-a-token")
	assert.Equal(t, user.ErrTokenInvalid, err)
}

func TestService_Register_duplicateEmail(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	ru := user.RegisterUser{
		FirstName:       "Amina",
		LastName:        "Kazadi",
		Email:           "amina@test.cd",
		Role:            string(user.RoleStudent),
		Password:        "s3cur3-Pass!",
		ConfirmPassword: "s3cur3-Pass!",
	}
	_, err := svc.Register(ctx, ru)
	require.NoError(t, err)

	_, err = svc.Register(ctx, ru)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Fields, 1)
	assert.Equal(t, "email", vErr.Fields[0].Field)
}

func TestService_Authenticate(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, user.NewUser{
		FirstName: "Admin",
		LastName:  "Root",
		Email:     "admin@test.cd",
		Role:      string(user.RoleAdmin),
		Password:  "s3cur3-Pass!",
	})
	require.NoError(t, err)

	// admin-created accounts come out verified
	usr, err := svc.Authenticate(ctx, "ADMIN@test.cd", "s3cur3-Pass!")
	require.NoError(t, err)
	assert.True(t, usr.IsVerified)

	_, err = svc.Authenticate(ctx, "admin@test.cd", "wrong")
	assert.Equal(t, user.ErrAuthenticationFailed, err)

	_, err = svc.Authenticate(ctx, "ghost@test.cd", "s3cur3-Pass!")
	assert.Equal(t, user.ErrAuthenticationFailed, err)
}

func TestService_GetAccessToken(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	now := user.NowFunc().UTC()

	usr, err := svc.Create(ctx, user.NewUser{
		FirstName: "Amina",
		LastName:  "Kazadi",
		Email:     "amina@test.cd",
		Role:      string(user.RoleStudent),
		Password:  "s3cur3-Pass!",
	})
	require.NoError(t, err)

	access, err := user.GenerateSecret()
	require.NoError(t, err)
	refresh, err := user.GenerateSecret()
	require.NoError(t, err)
	err = svc.SaveTokenPair(ctx,
		user.Token{
			UserID: usr.ID, Type: user.TokenAccess, Hash: user.HashSecret(access),
			PairID: "pair-1", CreatedAt: now, ExpiresAt: now.Add(30 * time.Minute),
		},
		user.Token{
			UserID: usr.ID, Type: user.TokenRefresh, Hash: user.HashSecret(refresh),
			PairID: "pair-1", CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour),
		},
	)
	require.NoError(t, err)

	tok, err := svc.GetAccessToken(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, tok.UserID)
	assert.Equal(t, "pair-1", tok.PairID)

	_, err = svc.GetAccessToken(ctx, "junk")
	assert.Equal(t, user.ErrTokenInvalid, err)

	// deleting the pair revokes the access credential
	require.NoError(t, svc.DeleteTokenPair(ctx, usr.ID, "pair-1"))
	_, err = svc.GetAccessToken(ctx, access)
	assert.Equal(t, user.ErrTokenInvalid, err)
}
