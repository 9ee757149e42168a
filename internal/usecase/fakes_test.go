package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/haperhq/haper-auth/internal/gmail"
	"github.com/haperhq/haper-auth/internal/model"
	"github.com/haperhq/haper-auth/internal/provider"
	"github.com/haperhq/haper-auth/internal/repository"
)

type fakeUserRepo struct {
	users map[string]*model.User // keyed by id
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return nil, repository.ErrDuplicateEmail
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetUser(_ context.Context, id string) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeAccountRepo struct {
	accounts     map[string]*model.Account // keyed by provider + "/" + providerAccountID
	tokenUpdates int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*model.Account)}
}

func accountKey(provider, providerAccountID string) string {
	return provider + "/" + providerAccountID
}

func (f *fakeAccountRepo) CreateAccount(_ context.Context, account *model.Account) (*model.Account, error) {
	key := accountKey(account.Provider, account.ProviderAccountID)
	if _, ok := f.accounts[key]; ok {
		return nil, repository.ErrDuplicateAccountLink
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = time.Now().UTC()
	f.accounts[key] = account
	return account, nil
}

func (f *fakeAccountRepo) GetAccount(_ context.Context, provider, providerAccountID string) (*model.Account, error) {
	account, ok := f.accounts[accountKey(provider, providerAccountID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return account, nil
}

func (f *fakeAccountRepo) GetAccountByEmailAndProvider(_ context.Context, email, provider string) (*model.Account, error) {
	for _, account := range f.accounts {
		if account.Email == email && account.Provider == provider {
			return account, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccountRepo) ListAccountsByUserID(_ context.Context, userID string) ([]model.Account, error) {
	var accounts []model.Account
	for _, account := range f.accounts {
		if account.UserID == userID {
			accounts = append(accounts, *account)
		}
	}
	return accounts, nil
}

func (f *fakeAccountRepo) UpdateAccountTokens(
	_ context.Context,
	provider, providerAccountID string,
	params repository.UpdateAccountTokensParams,
) error {
	account, ok := f.accounts[accountKey(provider, providerAccountID)]
	if !ok {
		return nil // silent no-op, same as the mongo implementation
	}

	f.tokenUpdates++
	if params.AccessToken != nil {
		account.AccessToken = *params.AccessToken
	}
	if params.RefreshToken != nil {
		account.RefreshToken = params.RefreshToken
	}
	if params.ExpiresAt != nil {
		account.ExpiresAt = params.ExpiresAt
	}
	return nil
}

// fakeVerifier returns a fixed identity or error for every token.
type fakeVerifier struct {
	identity *provider.Identity
	err      error
	calls    int
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (*provider.Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

// fakeGmailClient returns canned messages and optionally a refreshed token.
type fakeGmailClient struct {
	messages  []gmail.Message
	refreshed *gmail.Credential
	err       error

	gotCred      gmail.Credential
	gotHistoryID uint64
}

func (f *fakeGmailClient) ListNewMessages(
	_ context.Context,
	cred gmail.Credential,
	startHistoryID uint64,
) ([]gmail.Message, *gmail.Credential, error) {
	f.gotCred = cred
	f.gotHistoryID = startHistoryID
	if f.err != nil {
		return nil, nil, f.err
	}

	used := f.refreshed
	if used == nil {
		used = &cred
	}
	return f.messages, used, nil
}

// fakePublisher records published bodies.
type fakePublisher struct {
	bodies []string
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, body string) error {
	if f.err != nil {
		return f.err
	}
	f.bodies = append(f.bodies, body)
	return nil
}
