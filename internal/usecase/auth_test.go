package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haperhq/haper-auth/internal/provider"
	"github.com/haperhq/haper-auth/internal/security"
	"github.com/haperhq/haper-auth/internal/token"
)

var testHashParams = security.Params{N: 1 << 4, R: 8, P: 1, SaltLen: 16, KeyLen: 32}

type authFixture struct {
	usecase     AuthUsecase
	userRepo    *fakeUserRepo
	accountRepo *fakeAccountRepo
	verifier    *fakeVerifier
	issuer      *token.Issuer
}

func newAuthFixture(verifier *fakeVerifier) *authFixture {
	userRepo := newFakeUserRepo()
	accountRepo := newFakeAccountRepo()
	issuer := token.NewIssuer("test-secret", time.Hour)
	logger := zerolog.Nop()

	registry := provider.NewRegistry()
	if verifier != nil {
		registry.Register("google", verifier)
	}

	return &authFixture{
		usecase: NewAuthUsecase(
			userRepo,
			accountRepo,
			security.NewHasher(testHashParams),
			registry,
			issuer,
			&logger,
		),
		userRepo:    userRepo,
		accountRepo: accountRepo,
		verifier:    verifier,
		issuer:      issuer,
	}
}

func TestSignupWithCredentials(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(nil)
	ctx := context.Background()

	user, sessionToken, err := f.usecase.SignupWithCredentials(ctx, CredentialSignupParams{
		Email:    "a@x.com",
		Password: "Abcd1234",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "a", user.Name, "name defaults to the email local part")
	assert.Equal(t, "a@x.com", user.Email)
	assert.False(t, user.EmailVerified)
	assert.True(t, user.HasPassword())
	assert.NotEqual(t, "Abcd1234", *user.Password, "password must be stored hashed")

	subject, err := f.issuer.Verify(sessionToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)
}

func TestSignupWithCredentials_ExplicitName(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(nil)

	user, _, err := f.usecase.SignupWithCredentials(context.Background(), CredentialSignupParams{
		Email:    "a@x.com",
		Password: "Abcd1234",
		Name:     "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
}

func TestSignupWithCredentials_DuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(nil)
	ctx := context.Background()

	_, _, err := f.usecase.SignupWithCredentials(ctx, CredentialSignupParams{Email: "a@x.com", Password: "Abcd1234"})
	require.NoError(t, err)

	_, _, err = f.usecase.SignupWithCredentials(ctx, CredentialSignupParams{Email: "a@x.com", Password: "Wxyz5678"})
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
}

func TestSignupWithOAuth(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{identity: &provider.Identity{Email: "b@x.com", Picture: "https://img/x.png"}}
	f := newAuthFixture(verifier)

	user, sessionToken, err := f.usecase.SignupWithOAuth(context.Background(), OAuthSignupParams{
		Provider:          "google",
		ProviderAccountID: "g1",
		AccessToken:       "tok",
	})
	require.NoError(t, err)

	assert.Equal(t, "b", user.Name)
	assert.Equal(t, "b@x.com", user.Email)
	assert.True(t, user.EmailVerified, "provider-verified email")
	assert.False(t, user.HasPassword())
	require.NotNil(t, user.Image)
	assert.Equal(t, "https://img/x.png", *user.Image)
	assert.NotEmpty(t, sessionToken)
	assert.Equal(t, 1, verifier.calls)

	account, err := f.accountRepo.GetAccount(context.Background(), "google", "g1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, account.UserID)
	assert.Equal(t, "b@x.com", account.Email)
	assert.Equal(t, "tok", account.AccessToken)
}

func TestSignupWithOAuth_DuplicateLink(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{identity: &provider.Identity{Email: "b@x.com"}}
	f := newAuthFixture(verifier)
	ctx := context.Background()

	_, _, err := f.usecase.SignupWithOAuth(ctx, OAuthSignupParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "tok",
	})
	require.NoError(t, err)

	_, _, err = f.usecase.SignupWithOAuth(ctx, OAuthSignupParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "tok2",
	})
	assert.ErrorIs(t, err, ErrAccountAlreadyLinked)
}

func TestSignupWithOAuth_EmailTakenByCredentialUser(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{identity: &provider.Identity{Email: "a@x.com"}}
	f := newAuthFixture(verifier)
	ctx := context.Background()

	_, _, err := f.usecase.SignupWithCredentials(ctx, CredentialSignupParams{Email: "a@x.com", Password: "Abcd1234"})
	require.NoError(t, err)

	_, _, err = f.usecase.SignupWithOAuth(ctx, OAuthSignupParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "tok",
	})
	assert.ErrorIs(t, err, ErrEmailAlreadyRegistered)
}

func TestSignupWithOAuth_RejectedToken(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{err: provider.ErrInvalidToken}
	f := newAuthFixture(verifier)

	_, _, err := f.usecase.SignupWithOAuth(context.Background(), OAuthSignupParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "bad",
	})
	assert.ErrorIs(t, err, ErrInvalidProviderToken)
}

func TestSignupWithOAuth_ProviderUnavailable(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{err: provider.ErrUnavailable}
	f := newAuthFixture(verifier)

	_, _, err := f.usecase.SignupWithOAuth(context.Background(), OAuthSignupParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "tok",
	})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestSignupWithOAuth_UnknownProvider(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(nil)

	_, _, err := f.usecase.SignupWithOAuth(context.Background(), OAuthSignupParams{
		Provider: "myspace", ProviderAccountID: "m1", AccessToken: "tok",
	})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestLoginWithCredentials(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(nil)
	ctx := context.Background()

	signedUp, _, err := f.usecase.SignupWithCredentials(ctx, CredentialSignupParams{
		Email: "a@x.com", Password: "Abcd1234",
	})
	require.NoError(t, err)

	user, sessionToken, err := f.usecase.LoginWithCredentials(ctx, CredentialLoginParams{
		Email: "a@x.com", Password: "Abcd1234",
	})
	require.NoError(t, err)
	assert.Equal(t, signedUp.ID, user.ID)
	assert.NotEmpty(t, sessionToken)
}

func TestLoginWithCredentials_NoAccountExistenceLeak(t *testing.T) {
	t.Parallel()

	f := newAuthFixture(nil)
	ctx := context.Background()

	_, _, err := f.usecase.SignupWithCredentials(ctx, CredentialSignupParams{
		Email: "a@x.com", Password: "Abcd1234",
	})
	require.NoError(t, err)

	_, _, unknownEmailErr := f.usecase.LoginWithCredentials(ctx, CredentialLoginParams{
		Email: "nobody@x.com", Password: "Abcd1234",
	})
	_, _, wrongPasswordErr := f.usecase.LoginWithCredentials(ctx, CredentialLoginParams{
		Email: "a@x.com", Password: "Wrong999",
	})

	assert.ErrorIs(t, unknownEmailErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongPasswordErr, ErrInvalidCredentials)
	assert.Equal(t, unknownEmailErr.Error(), wrongPasswordErr.Error(),
		"unknown email and wrong password must be indistinguishable")
}

func TestLoginWithCredentials_OAuthOnlyUser(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{identity: &provider.Identity{Email: "b@x.com"}}
	f := newAuthFixture(verifier)
	ctx := context.Background()

	_, _, err := f.usecase.SignupWithOAuth(ctx, OAuthSignupParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "tok",
	})
	require.NoError(t, err)

	_, _, err = f.usecase.LoginWithCredentials(ctx, CredentialLoginParams{
		Email: "b@x.com", Password: "Abcd1234",
	})
	assert.ErrorIs(t, err, ErrNoPasswordIdentity)
}

func TestLoginWithOAuth(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{identity: &provider.Identity{Email: "b@x.com"}}
	f := newAuthFixture(verifier)
	ctx := context.Background()

	_, _, err := f.usecase.SignupWithOAuth(ctx, OAuthSignupParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "tok",
	})
	require.NoError(t, err)

	refreshToken := "refresh-2"
	expiresAt := int64(1900000000)
	user, sessionToken, err := f.usecase.LoginWithOAuth(ctx, OAuthLoginParams{
		Provider:          "google",
		ProviderAccountID: "g1",
		AccessToken:       "tok-2",
		RefreshToken:      &refreshToken,
		ExpiresAt:         &expiresAt,
	})
	require.NoError(t, err)
	assert.Equal(t, "b@x.com", user.Email)
	assert.NotEmpty(t, sessionToken)

	// Login always refreshes the stored provider credentials.
	account, err := f.accountRepo.GetAccount(ctx, "google", "g1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", account.AccessToken)
	require.NotNil(t, account.RefreshToken)
	assert.Equal(t, "refresh-2", *account.RefreshToken)
	require.NotNil(t, account.ExpiresAt)
	assert.Equal(t, expiresAt, *account.ExpiresAt)
}

func TestLoginWithOAuth_NotRegistered(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{identity: &provider.Identity{Email: "b@x.com"}}
	f := newAuthFixture(verifier)

	_, _, err := f.usecase.LoginWithOAuth(context.Background(), OAuthLoginParams{
		Provider: "google", ProviderAccountID: "missing", AccessToken: "tok",
	})
	assert.ErrorIs(t, err, ErrAccountNotRegistered)
}

func TestLoginWithOAuth_RejectedToken(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{identity: &provider.Identity{Email: "b@x.com"}}
	f := newAuthFixture(verifier)
	ctx := context.Background()

	_, _, err := f.usecase.SignupWithOAuth(ctx, OAuthSignupParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "tok",
	})
	require.NoError(t, err)

	verifier.err = provider.ErrInvalidToken
	_, _, err = f.usecase.LoginWithOAuth(ctx, OAuthLoginParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "stolen",
	})
	assert.ErrorIs(t, err, ErrInvalidProviderToken)
}

func TestLoginWithOAuth_DanglingAccount(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{identity: &provider.Identity{Email: "b@x.com"}}
	f := newAuthFixture(verifier)
	ctx := context.Background()

	user, _, err := f.usecase.SignupWithOAuth(ctx, OAuthSignupParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "tok",
	})
	require.NoError(t, err)

	delete(f.userRepo.users, user.ID)

	_, _, err = f.usecase.LoginWithOAuth(ctx, OAuthLoginParams{
		Provider: "google", ProviderAccountID: "g1", AccessToken: "tok",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAccountNotRegistered, "dangling account is an integrity fault, not a user error")
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
