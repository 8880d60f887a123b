package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
)

type ErrorResponse struct {
	Error   apperr.Kind `json:"error"`
	Message string      `json:"message"`
	Details any         `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInsufficientStock, apperr.KindMismatch, apperr.KindEmptyOrder,
		apperr.KindInvalidInput, apperr.KindInvalidStatus:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict, apperr.KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status of its kind. Internal errors are
// logged and their text is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	code := statusFor(kind)
	if code == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, code, ErrorResponse{Error: apperr.KindInternal, Message: "internal error"})
		return
	}

	resp := ErrorResponse{Error: kind, Message: err.Error()}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Details = ae.Details
	}
	writeJSON(w, code, resp)
}
