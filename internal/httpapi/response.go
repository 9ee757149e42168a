package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Code is the service-level status code carried in every response envelope.
type Code int

const (
	CodeSuccess              Code = 0
	CodeInvalidParam         Code = 1001
	CodeInvalidAuth          Code = 1101
	CodeUserNoPermission     Code = 1102
	CodeInternalUnknownError Code = 9999
)

// httpStatusFor maps a service code to its transport status.
func httpStatusFor(code Code) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeInvalidAuth, CodeUserNoPermission:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Response is the JSON envelope returned by every endpoint.
type Response struct {
	Status  Code   `json:"status"`
	Message string `json:"message"`
	URI     string `json:"uri"`
	Elapsed int64  `json:"elapsed"`
	Data    any    `json:"data"`
}

type responder struct {
	logger *zerolog.Logger
}

func (rs *responder) success(w http.ResponseWriter, r *http.Request, started time.Time, data any) {
	rs.write(w, r, started, Response{
		Status:  CodeSuccess,
		Message: "success",
		Data:    data,
	}, nil)
}

// fail writes an error envelope. message is the client-facing text; err, when
// non-nil, is the underlying cause and only ever reaches the log.
func (rs *responder) fail(
	w http.ResponseWriter,
	r *http.Request,
	started time.Time,
	code Code,
	message string,
	err error,
) {
	rs.write(w, r, started, Response{
		Status:  code,
		Message: message,
		Data:    nil,
	}, err)
}

func (rs *responder) write(
	w http.ResponseWriter,
	r *http.Request,
	started time.Time,
	resp Response,
	err error,
) {
	elapsed := time.Since(started).Milliseconds()
	resp.URI = r.URL.Path
	resp.Elapsed = elapsed

	httpStatus := httpStatusFor(resp.Status)
	switch {
	case httpStatus == http.StatusOK:
		rs.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", httpStatus).
			Int64("elapsed_ms", elapsed).
			Msg("request completed")
	case httpStatus < http.StatusInternalServerError:
		rs.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", httpStatus).
			Int64("elapsed_ms", elapsed).
			Str("err", resp.Message).
			Msg("request rejected")
	default:
		rs.logger.Error().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", httpStatus).
			Int64("elapsed_ms", elapsed).
			Err(err).
			Msg("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(resp)
}
