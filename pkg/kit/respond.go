package kit

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// ErrorKind is the machine-readable error category returned to clients.
type ErrorKind string

const (
	KindInvalidAmount             ErrorKind = "InvalidAmount"
	KindInvalidRequest            ErrorKind = "InvalidRequest"
	KindPaymentNotCompleted       ErrorKind = "PaymentNotCompleted"
	KindOrderNotFound             ErrorKind = "OrderNotFound"
	KindDuplicateRequest          ErrorKind = "DuplicateRequest"
	KindWebhookVerificationFailed ErrorKind = "WebhookVerificationFailed"
	KindProviderError             ErrorKind = "ProviderError"
	KindNotFound                  ErrorKind = "NotFound"
	KindMethodNotAllowed          ErrorKind = "MethodNotAllowed"
	KindUnauthorized              ErrorKind = "Unauthorized"
	KindForbidden                 ErrorKind = "Forbidden"
	KindTooManyRequests           ErrorKind = "TooManyRequests"
	KindNotReady                  ErrorKind = "NotReady"
	KindInternal                  ErrorKind = "InternalServerError"
)

type ErrorResponse struct {
	Error     string    `json:"error"`
	Kind      ErrorKind `json:"kind"`
	Details   any       `json:"details,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, kind ErrorKind, msg string, details any) {
	WriteJSON(w, status, ErrorResponse{
		Error:     msg,
		Kind:      kind,
		Details:   details,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// NotFound and MethodNotAllowed replace chi's plain-text defaults.
func NotFound(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusNotFound, KindNotFound, "Not found", map[string]any{"path": r.URL.Path})
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusMethodNotAllowed, KindMethodNotAllowed, "Method not allowed", nil)
}
