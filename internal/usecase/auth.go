package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/haperhq/haper-auth/internal/model"
	"github.com/haperhq/haper-auth/internal/provider"
	"github.com/haperhq/haper-auth/internal/repository"
	"github.com/haperhq/haper-auth/internal/security"
	"github.com/haperhq/haper-auth/internal/token"
)

// AuthUsecase orchestrates signup and login for both the credentials path and
// the OAuth path. Every call is a single atomic sequence against the store;
// no state is held between requests.
type AuthUsecase interface {
	SignupWithCredentials(ctx context.Context, params CredentialSignupParams) (*model.User, string, error)
	SignupWithOAuth(ctx context.Context, params OAuthSignupParams) (*model.User, string, error)
	LoginWithCredentials(ctx context.Context, params CredentialLoginParams) (*model.User, string, error)
	LoginWithOAuth(ctx context.Context, params OAuthLoginParams) (*model.User, string, error)
}

// CredentialSignupParams defines the parameters for password-based signup.
// The password has already passed shape validation at the boundary.
type CredentialSignupParams struct {
	Email    string
	Password string
	Name     string
	Image    *string
}

// OAuthSignupParams defines the parameters for provider-based signup.
type OAuthSignupParams struct {
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      *string
	ExpiresAt         *int64
	Name              string
	Image             *string
}

// CredentialLoginParams defines the parameters for password-based login.
type CredentialLoginParams struct {
	Email    string
	Password string
}

// OAuthLoginParams defines the parameters for provider-based login.
type OAuthLoginParams struct {
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      *string
	ExpiresAt         *int64
}

var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrAccountAlreadyLinked   = errors.New("account already linked")
	// ErrInvalidCredentials carries the same message whether the email is
	// unknown or the password is wrong, so account existence never leaks.
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrNoPasswordIdentity   = errors.New("user not registered by credential")
	ErrAccountNotRegistered = errors.New("account not registered")
	ErrUnknownProvider      = errors.New("unknown provider")
	ErrInvalidProviderToken = errors.New("provider rejected the access token")
	ErrProviderUnavailable  = errors.New("provider unavailable")
)

type authUsecase struct {
	userRepo    repository.UserRepository
	accountRepo repository.AccountRepository
	hasher      *security.Hasher
	verifier    *provider.Registry
	issuer      *token.Issuer
	logger      *zerolog.Logger
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	accountRepo repository.AccountRepository,
	hasher *security.Hasher,
	verifier *provider.Registry,
	issuer *token.Issuer,
	logger *zerolog.Logger,
) AuthUsecase {
	return &authUsecase{
		userRepo:    userRepo,
		accountRepo: accountRepo,
		hasher:      hasher,
		verifier:    verifier,
		issuer:      issuer,
		logger:      logger,
	}
}

func (u *authUsecase) SignupWithCredentials(
	ctx context.Context,
	params CredentialSignupParams,
) (*model.User, string, error) {
	existing, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", ErrEmailAlreadyRegistered
	}

	name := params.Name
	if name == "" {
		name = emailLocalPart(params.Email)
	}

	hashed, err := u.hasher.Hash(params.Password)
	if err != nil {
		return nil, "", err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Name:          name,
		Email:         params.Email,
		EmailVerified: false,
		Password:      &hashed,
		Image:         params.Image,
	})
	if err != nil {
		// A concurrent signup may win between the pre-check and the
		// insert; the unique index is the authority.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", ErrEmailAlreadyRegistered
		}

		return nil, "", err
	}

	return u.withSessionToken(user)
}

func (u *authUsecase) SignupWithOAuth(ctx context.Context, params OAuthSignupParams) (*model.User, string, error) {
	existing, err := u.accountRepo.GetAccount(ctx, params.Provider, params.ProviderAccountID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", ErrAccountAlreadyLinked
	}

	identity, err := u.verifier.Verify(ctx, params.Provider, params.AccessToken)
	if err != nil {
		return nil, "", classifyProviderError(err)
	}

	name := params.Name
	if name == "" {
		name = emailLocalPart(identity.Email)
	}

	image := params.Image
	if image == nil && identity.Picture != "" {
		image = &identity.Picture
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Name:          name,
		Email:         identity.Email,
		EmailVerified: true,
		Image:         image,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", ErrEmailAlreadyRegistered
		}

		return nil, "", err
	}

	if _, err := u.accountRepo.CreateAccount(ctx, &model.Account{
		UserID:            user.ID,
		Provider:          params.Provider,
		ProviderAccountID: params.ProviderAccountID,
		Email:             identity.Email,
		AccessToken:       params.AccessToken,
		RefreshToken:      params.RefreshToken,
		ExpiresAt:         params.ExpiresAt,
	}); err != nil {
		if errors.Is(err, repository.ErrDuplicateAccountLink) {
			return nil, "", ErrAccountAlreadyLinked
		}

		return nil, "", err
	}

	return u.withSessionToken(user)
}

func (u *authUsecase) LoginWithCredentials(
	ctx context.Context,
	params CredentialLoginParams,
) (*model.User, string, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}

		return nil, "", err
	}

	if !user.HasPassword() {
		return nil, "", ErrNoPasswordIdentity
	}

	if !u.hasher.Verify(params.Password, *user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	return u.withSessionToken(user)
}

func (u *authUsecase) LoginWithOAuth(ctx context.Context, params OAuthLoginParams) (*model.User, string, error) {
	account, err := u.accountRepo.GetAccount(ctx, params.Provider, params.ProviderAccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrAccountNotRegistered
		}

		return nil, "", err
	}

	// The token is re-verified on every login, same as signup.
	if _, err := u.verifier.Verify(ctx, params.Provider, params.AccessToken); err != nil {
		return nil, "", classifyProviderError(err)
	}

	user, err := u.userRepo.GetUser(ctx, account.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// An account without its user is a data-integrity fault,
			// not a user error.
			return nil, "", fmt.Errorf("account %s/%s references missing user %s",
				account.Provider, account.ProviderAccountID, account.UserID)
		}

		return nil, "", err
	}

	// Login always refreshes the stored provider credentials.
	if err := u.accountRepo.UpdateAccountTokens(ctx, params.Provider, params.ProviderAccountID,
		repository.UpdateAccountTokensParams{
			AccessToken:  &params.AccessToken,
			RefreshToken: params.RefreshToken,
			ExpiresAt:    params.ExpiresAt,
		}); err != nil {
		return nil, "", err
	}

	return u.withSessionToken(user)
}

func (u *authUsecase) withSessionToken(user *model.User) (*model.User, string, error) {
	sessionToken, err := u.issuer.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}

	return user, sessionToken, nil
}

func classifyProviderError(err error) error {
	switch {
	case errors.Is(err, provider.ErrUnknownProvider):
		return ErrUnknownProvider
	case errors.Is(err, provider.ErrInvalidToken):
		return ErrInvalidProviderToken
	case errors.Is(err, provider.ErrUnavailable):
		return ErrProviderUnavailable
	default:
		return err
	}
}

func emailLocalPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}

	return email
}
