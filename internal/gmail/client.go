package gmail

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Message identifies one newly observed Gmail message.
type Message struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

// Credential is the provider token material on file for an account.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Client lists message history for a Gmail mailbox on behalf of a linked
// account. Implementations refresh the access token transparently and report
// the token actually used so callers can persist a fresher one.
type Client interface {
	ListNewMessages(ctx context.Context, cred Credential, startHistoryID uint64) ([]Message, *Credential, error)
}

type apiClient struct {
	clientID     string
	clientSecret string
}

// NewClient creates a Gmail API client using the application's OAuth client
// credentials for token refresh.
func NewClient(clientID, clientSecret string) Client {
	return &apiClient{clientID: clientID, clientSecret: clientSecret}
}

func (c *apiClient) ListNewMessages(
	ctx context.Context,
	cred Credential,
	startHistoryID uint64,
) ([]Message, *Credential, error) {
	conf := &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint:     google.Endpoint,
	}

	source := conf.TokenSource(ctx, &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
	})

	service, err := gmailv1.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build gmail service: %w", err)
	}

	var messages []Message
	pageToken := ""
	for {
		call := service.Users.History.List("me").StartHistoryId(startHistoryID)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to list gmail history: %w", err)
		}

		for _, history := range resp.History {
			for _, added := range history.MessagesAdded {
				if added.Message == nil {
					continue
				}
				messages = append(messages, Message{
					ID:       added.Message.Id,
					ThreadID: added.Message.ThreadId,
				})
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	used, err := source.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read refreshed token: %w", err)
	}

	return messages, &Credential{
		AccessToken:  used.AccessToken,
		RefreshToken: used.RefreshToken,
		Expiry:       used.Expiry,
	}, nil
}
