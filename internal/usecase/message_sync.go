package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/haperhq/haper-auth/internal/gmail"
	"github.com/haperhq/haper-auth/internal/relay"
	"github.com/haperhq/haper-auth/internal/repository"
)

const gmailProvider = "google"

// MessageSyncUsecase handles the Gmail push notification: it pulls the
// message history that triggered the notification and relays the new message
// ids downstream. This is the one place provider tokens are refreshed outside
// login.
type MessageSyncUsecase interface {
	SyncGmailMessages(ctx context.Context, email string, historyID uint64) error
}

type messageSyncUsecase struct {
	accountRepo repository.AccountRepository
	gmailClient gmail.Client
	publisher   relay.Publisher
	logger      *zerolog.Logger
}

func NewMessageSyncUsecase(
	accountRepo repository.AccountRepository,
	gmailClient gmail.Client,
	publisher relay.Publisher,
	logger *zerolog.Logger,
) MessageSyncUsecase {
	return &messageSyncUsecase{
		accountRepo: accountRepo,
		gmailClient: gmailClient,
		publisher:   publisher,
		logger:      logger,
	}
}

type gmailReport struct {
	Messages struct {
		Gmail struct {
			NewMessages []gmail.Message `json:"new_messages"`
		} `json:"gmail"`
	} `json:"messages"`
}

func (u *messageSyncUsecase) SyncGmailMessages(ctx context.Context, email string, historyID uint64) error {
	account, err := u.accountRepo.GetAccountByEmailAndProvider(ctx, email, gmailProvider)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Push notifications can outlive an account link; not an
			// error worth failing the webhook for.
			u.logger.Warn().Str("email", email).Msg("email is not connected to a registered account")
			return nil
		}

		return err
	}

	cred := gmail.Credential{
		AccessToken: account.AccessToken,
	}
	if account.RefreshToken != nil {
		cred.RefreshToken = *account.RefreshToken
	}
	if account.ExpiresAt != nil {
		cred.Expiry = time.Unix(*account.ExpiresAt, 0)
	}

	messages, used, err := u.gmailClient.ListNewMessages(ctx, cred, historyID)
	if err != nil {
		return err
	}

	var report gmailReport
	report.Messages.Gmail.NewMessages = messages
	if report.Messages.Gmail.NewMessages == nil {
		report.Messages.Gmail.NewMessages = []gmail.Message{}
	}

	body, err := json.Marshal(report)
	if err != nil {
		return err
	}

	if err := u.publisher.Publish(ctx, string(body)); err != nil {
		return err
	}

	// Persist the token only when the source actually refreshed it.
	if used != nil && used.AccessToken != account.AccessToken {
		expiresAt := used.Expiry.Unix()
		if err := u.accountRepo.UpdateAccountTokens(ctx, account.Provider, account.ProviderAccountID,
			repository.UpdateAccountTokensParams{
				AccessToken: &used.AccessToken,
				ExpiresAt:   &expiresAt,
			}); err != nil {
			return err
		}
	}

	return nil
}
