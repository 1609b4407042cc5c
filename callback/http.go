package callback

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cladams7905/zencourt-sub006/inbound"
)

// maxWebhookBody caps inbound webhook bodies.
const maxWebhookBody = 1 << 20

// FallbackJobIDParam names the query parameter, or path wildcard, that
// carries the fallback job id.
const FallbackJobIDParam = "jobId"

type httpHandler struct {
	verifier *inbound.Verifier
	handler  *Handler
	logger   *slog.Logger
}

// NewHTTPHandler authenticates provider webhooks with v and hands them to
// h. Authentication failures answer 4xx or 5xx; every authenticated
// request answers 200 whatever its outcome, so providers do not retry.
func NewHTTPHandler(v *inbound.Verifier, h *Handler, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &httpHandler{verifier: v, handler: h, logger: logger}
}

func (s *httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	payload, err := inbound.VerifyInto[Payload](s.verifier, r.Header, body)
	if err != nil {
		var verr *inbound.Error
		if errors.As(err, &verr) {
			s.logger.Warn("provider webhook rejected",
				slog.String("kind", string(verr.Kind)),
				slog.String("remote_addr", r.RemoteAddr),
			)
			writeJSON(w, verr.Status, map[string]string{"error": verr.Msg})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	fallback := r.URL.Query().Get(FallbackJobIDParam)
	if fallback == "" {
		fallback = r.PathValue(FallbackJobIDParam)
	}

	out := s.handler.Handle(r.Context(), *payload, fallback)
	writeJSON(w, http.StatusOK, map[string]any{
		"received": true,
		"outcome":  out.Kind,
		"jobId":    out.JobID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
