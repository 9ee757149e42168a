package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/haperhq/haper-auth/internal/repository"
)

// DelegationHandler reports which message sources the authenticated user has
// delegated, i.e. which provider accounts are linked.
type DelegationHandler struct {
	accountRepo repository.AccountRepository
	responder   *responder
}

func NewDelegationHandler(accountRepo repository.AccountRepository, logger *zerolog.Logger) *DelegationHandler {
	return &DelegationHandler{
		accountRepo: accountRepo,
		responder:   &responder{logger: logger},
	}
}

func (h *DelegationHandler) Status(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		h.responder.fail(w, r, started, CodeInvalidAuth, "no authenticated user", nil)
		return
	}

	accounts, err := h.accountRepo.ListAccountsByUserID(r.Context(), userID)
	if err != nil {
		h.responder.fail(w, r, started, CodeInternalUnknownError, "something went wrong", err)
		return
	}

	type delegationSource struct {
		Provider  string    `json:"provider"`
		Email     string    `json:"email"`
		CreatedAt time.Time `json:"created_at"`
	}

	sources := make([]delegationSource, 0, len(accounts))
	for _, account := range accounts {
		sources = append(sources, delegationSource{
			Provider:  account.Provider,
			Email:     account.Email,
			CreatedAt: account.CreatedAt,
		})
	}

	h.responder.success(w, r, started, map[string]any{"sources": sources})
}
