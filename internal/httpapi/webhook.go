package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/haperhq/haper-auth/internal/usecase"
)

// pubsubEnvelope is the Gmail push notification wrapper, see
// https://developers.google.com/gmail/api/guides/push
type pubsubEnvelope struct {
	Message struct {
		Data        string `json:"data"`
		MessageID   string `json:"message_id"`
		PublishTime string `json:"publish_time"`
	} `json:"message"`
}

type gmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// WebhookHandler receives provider push notifications.
type WebhookHandler struct {
	syncUsecase usecase.MessageSyncUsecase
	responder   *responder
	logger      *zerolog.Logger
}

func NewWebhookHandler(syncUsecase usecase.MessageSyncUsecase, logger *zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		syncUsecase: syncUsecase,
		responder:   &responder{logger: logger},
		logger:      logger,
	}
}

func (h *WebhookHandler) GmailSync(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var envelope pubsubEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.responder.fail(w, r, started, CodeInvalidParam, "invalid request body", nil)
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		h.responder.fail(w, r, started, CodeInvalidParam, "invalid message data encoding", nil)
		return
	}

	var notification gmailNotification
	if err := json.Unmarshal(decoded, &notification); err != nil || notification.EmailAddress == "" {
		h.responder.fail(w, r, started, CodeInvalidParam, "invalid message data", nil)
		return
	}

	h.logger.Info().
		Str("email", notification.EmailAddress).
		Uint64("history_id", notification.HistoryID).
		Msg("received gmail sync request")

	if err := h.syncUsecase.SyncGmailMessages(r.Context(), notification.EmailAddress, notification.HistoryID); err != nil {
		h.responder.fail(w, r, started, CodeInternalUnknownError, "something went wrong", err)
		return
	}

	h.responder.success(w, r, started, nil)
}
