package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"paydo/internal/backup"
	"paydo/internal/core"
	applog "paydo/internal/log"
)

const (
	msgInvalidRequest = "درخواست نامعتبر است"
	msgInvalidBackup  = "فایل نامعتبر"
	msgPassphrase     = "رمز پشتیبان نادرست است"
	msgInternal       = "خطای داخلی، دوباره تلاش کنید"
	msgRateLimited    = "تعداد درخواست‌ها زیاد است، کمی صبر کنید"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and a Persian notification.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", applog.FieldError, err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Message: msg})
}

func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrAccountNotFound):
		return http.StatusNotFound, core.UserMessage(err)
	case core.IsValidation(err):
		return http.StatusBadRequest, core.UserMessage(err)
	case errors.Is(err, backup.ErrPassphraseRequired), errors.Is(err, backup.ErrBadPassphrase):
		return http.StatusBadRequest, msgPassphrase
	case errors.Is(err, backup.ErrInvalidBackup):
		return http.StatusBadRequest, msgInvalidBackup
	case errors.As(err, &tooLarge):
		return http.StatusBadRequest, msgInvalidBackup
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, msgInvalidRequest
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
