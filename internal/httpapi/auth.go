package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/haperhq/haper-auth/internal/model"
	"github.com/haperhq/haper-auth/internal/usecase"
)

// CredentialsProvider is the provider name of the local password path.
const CredentialsProvider = "credentials"

// SignupRequest is the JSON body of POST /api/v1/user/signup. Which optional
// fields are required depends on the provider; see validateProviderFields.
type SignupRequest struct {
	Provider          string  `json:"provider"            validate:"required"`
	Email             string  `json:"email"               validate:"required,email"`
	Password          string  `json:"password"            validate:"omitempty,max=64"`
	ProviderAccountID string  `json:"provider_account_id" validate:"omitempty"`
	AccessToken       string  `json:"access_token"        validate:"omitempty"`
	RefreshToken      *string `json:"refresh_token"       validate:"omitempty"`
	ExpiresAt         *int64  `json:"expires_at"          validate:"omitempty,gt=0"`
	Name              string  `json:"name"                validate:"omitempty,max=32"`
	Image             *string `json:"image"               validate:"omitempty,url"`
}

// LoginRequest is the JSON body of POST /api/v1/user/login.
type LoginRequest struct {
	Provider          string  `json:"provider"            validate:"required"`
	Email             string  `json:"email"               validate:"required,email"`
	Password          string  `json:"password"            validate:"omitempty,max=64"`
	ProviderAccountID string  `json:"provider_account_id" validate:"omitempty"`
	AccessToken       string  `json:"access_token"        validate:"omitempty"`
	RefreshToken      *string `json:"refresh_token"       validate:"omitempty"`
	ExpiresAt         *int64  `json:"expires_at"          validate:"omitempty,gt=0"`
}

// AuthHandler exposes the signup and login endpoints.
type AuthHandler struct {
	authUsecase usecase.AuthUsecase
	validate    *validator.Validate
	trans       ut.Translator
	responder   *responder
	cookieName  string
	cookieTTL   time.Duration
}

func NewAuthHandler(
	authUsecase usecase.AuthUsecase,
	validate *validator.Validate,
	trans ut.Translator,
	logger *zerolog.Logger,
	cookieName string,
	cookieTTL time.Duration,
) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		validate:    validate,
		trans:       trans,
		responder:   &responder{logger: logger},
		cookieName:  cookieName,
		cookieTTL:   cookieTTL,
	}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.fail(w, r, started, CodeInvalidParam, "invalid request body", nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.responder.fail(w, r, started, CodeInvalidParam, h.validationMessage(err), nil)
		return
	}

	if msg := validateProviderFields(req.Provider, req.Password, req.ProviderAccountID, req.AccessToken, true); msg != "" {
		h.responder.fail(w, r, started, CodeInvalidParam, msg, nil)
		return
	}

	var (
		user         *model.User
		sessionToken string
		err          error
	)
	if req.Provider == CredentialsProvider {
		user, sessionToken, err = h.authUsecase.SignupWithCredentials(r.Context(), usecase.CredentialSignupParams{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
			Image:    req.Image,
		})
	} else {
		user, sessionToken, err = h.authUsecase.SignupWithOAuth(r.Context(), usecase.OAuthSignupParams{
			Provider:          req.Provider,
			ProviderAccountID: req.ProviderAccountID,
			AccessToken:       req.AccessToken,
			RefreshToken:      req.RefreshToken,
			ExpiresAt:         req.ExpiresAt,
			Name:              req.Name,
			Image:             req.Image,
		})
	}
	if err != nil {
		h.failFromUsecase(w, r, started, err)
		return
	}

	h.setSessionCookie(w, sessionToken)
	h.responder.success(w, r, started, map[string]any{"user": user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.fail(w, r, started, CodeInvalidParam, "invalid request body", nil)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.responder.fail(w, r, started, CodeInvalidParam, h.validationMessage(err), nil)
		return
	}

	if msg := validateProviderFields(req.Provider, req.Password, req.ProviderAccountID, req.AccessToken, false); msg != "" {
		h.responder.fail(w, r, started, CodeInvalidParam, msg, nil)
		return
	}

	var (
		user         *model.User
		sessionToken string
		err          error
	)
	if req.Provider == CredentialsProvider {
		user, sessionToken, err = h.authUsecase.LoginWithCredentials(r.Context(), usecase.CredentialLoginParams{
			Email:    req.Email,
			Password: req.Password,
		})
	} else {
		user, sessionToken, err = h.authUsecase.LoginWithOAuth(r.Context(), usecase.OAuthLoginParams{
			Provider:          req.Provider,
			ProviderAccountID: req.ProviderAccountID,
			AccessToken:       req.AccessToken,
			RefreshToken:      req.RefreshToken,
			ExpiresAt:         req.ExpiresAt,
		})
	}
	if err != nil {
		h.failFromUsecase(w, r, started, err)
		return
	}

	h.setSessionCookie(w, sessionToken)
	h.responder.success(w, r, started, map[string]any{"user": user})
}

// validateProviderFields enforces the fields whose presence depends on the
// provider. On signup the full password policy applies; on login only
// presence is checked.
func validateProviderFields(providerName, password, providerAccountID, accessToken string, signup bool) string {
	if providerName == CredentialsProvider {
		if password == "" {
			return "password cannot be empty"
		}
		if signup {
			return validatePasswordPolicy(password)
		}
		return ""
	}

	if providerAccountID == "" {
		return "provider account id cannot be empty"
	}
	if accessToken == "" {
		return "access token cannot be empty"
	}
	return ""
}

// validatePasswordPolicy checks the signup password shape: 8-64 characters
// with at least one letter and one digit.
func validatePasswordPolicy(password string) string {
	if len(password) < 8 {
		return "password must be at least 8 characters long"
	}
	if len(password) > 64 {
		return "password must be at most 64 characters long"
	}

	var hasLetter, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasLetter {
		return "password must contain at least one letter"
	}
	if !hasDigit {
		return "password must contain at least one number"
	}
	return ""
}

func (h *AuthHandler) validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		return validationErrs[0].Translate(h.trans)
	}

	return "invalid request"
}

func (h *AuthHandler) failFromUsecase(w http.ResponseWriter, r *http.Request, started time.Time, err error) {
	switch {
	case errors.Is(err, usecase.ErrEmailAlreadyRegistered),
		errors.Is(err, usecase.ErrAccountAlreadyLinked),
		errors.Is(err, usecase.ErrInvalidCredentials),
		errors.Is(err, usecase.ErrNoPasswordIdentity),
		errors.Is(err, usecase.ErrAccountNotRegistered),
		errors.Is(err, usecase.ErrUnknownProvider):
		h.responder.fail(w, r, started, CodeInvalidParam, err.Error(), nil)
	case errors.Is(err, usecase.ErrInvalidProviderToken):
		h.responder.fail(w, r, started, CodeInvalidAuth, err.Error(), nil)
	default:
		h.responder.fail(w, r, started, CodeInternalUnknownError, "something went wrong", err)
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
