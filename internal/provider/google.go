package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"

// verifyTimeout bounds both calls against Google so a slow provider cannot
// hang the request indefinitely.
const verifyTimeout = 5 * time.Second

// GoogleVerifier validates Google access tokens through the tokeninfo and
// userinfo endpoints.
type GoogleVerifier struct {
	clientID    string
	httpClient  *http.Client
	userinfoURL string
}

// NewGoogleVerifier creates a GoogleVerifier. When clientID is non-empty the
// token audience is checked against it via the tokeninfo endpoint before the
// identity is fetched.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID:    clientID,
		httpClient:  &http.Client{Timeout: verifyTimeout},
		userinfoURL: googleUserinfoURL,
	}
}

// Verify checks the access token with Google and extracts the verified
// identity. A rejected token is ErrInvalidToken; failing to reach Google at
// all is ErrUnavailable.
func (v *GoogleVerifier) Verify(ctx context.Context, accessToken string) (*Identity, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}

	if v.clientID != "" {
		if err := v.checkAudience(ctx, accessToken); err != nil {
			return nil, err
		}
	}

	return v.fetchUserinfo(ctx, accessToken)
}

func (v *GoogleVerifier) checkAudience(ctx context.Context, accessToken string) error {
	oauth2Service, err := oauth2v2.NewService(ctx,
		option.WithHTTPClient(v.httpClient),
		option.WithoutAuthentication(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tokenInfoCall := oauth2Service.Tokeninfo()
	tokenInfoCall.AccessToken(accessToken)
	tokenInfo, err := tokenInfoCall.Context(ctx).Do()
	if err != nil {
		return classifyGoogleError(err)
	}

	if tokenInfo.Audience != v.clientID {
		return fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}

	return nil
}

func (v *GoogleVerifier) fetchUserinfo(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned %d", ErrInvalidToken, resp.StatusCode)
	}

	var userInfo oauth2v2.Userinfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if userInfo.Email == "" {
		return nil, fmt.Errorf("%w: no email in userinfo", ErrInvalidToken)
	}

	return &Identity{
		Email:   userInfo.Email,
		Name:    userInfo.Name,
		Picture: userInfo.Picture,
	}, nil
}

func classifyGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
