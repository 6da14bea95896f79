// Package respond writes JSON responses. Error bodies are {"message": "..."}
// and server-side failures never reach the client verbatim.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"newssense/internal/observability/logging"
)

// InternalMessage replaces the message of every 5xx response.
const InternalMessage = "internal server error"

// MessageBody is the body of error and acknowledgement responses.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON writes a JSON response with the given status code and data.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// ヘッダ送信済みなのでログだけ
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Message writes {"message": msg}.
func Message(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, MessageBody{Message: msg})
}

// SafeError writes err as an error response. Client errors (4xx) carry the
// error text; for 5xx the text is logged with secrets masked and the client
// only sees InternalMessage.
func SafeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	if err == nil {
		return
	}
	if code < http.StatusInternalServerError {
		Message(w, code, err.Error())
		return
	}

	logger := slog.Default()
	if r != nil {
		logger = logging.WithRequestID(r.Context(), logging.FromContext(r.Context()))
	}
	logger.Error("internal server error",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.String("error", SanitizeError(err)))
	Message(w, code, InternalMessage)
}
