// Package respond writes JSON responses and serializes application errors.
// Internal causes (datastore errors, raw provider payloads) are logged by
// the caller and never written to the client.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// JSON writes v as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// Error serializes err using the apperr taxonomy. Unknown errors become
// internal_error with a generic message. The underlying cause, if any, is
// logged but not exposed.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	ae := apperr.From(err)
	if log != nil && ae.Cause != nil {
		log.Error("request failed",
			zap.String("code", string(ae.Code)),
			zap.String("message", ae.Message),
			zap.Error(ae.Cause))
	}
	msg := ae.Message
	if ae.Code == apperr.CodeInternal {
		msg = "internal error"
	}
	JSON(w, apperr.HTTPStatus(ae.Code), errorBody{Error: errorDetail{Code: ae.Code, Message: msg}})
}
