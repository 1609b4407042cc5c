package callback_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cladams7905/zencourt-sub006/callback"
	"github.com/cladams7905/zencourt-sub006/inbound"
	"github.com/cladams7905/zencourt-sub006/webhook"
)

const inboundSecret = "inbound-secret"

func signedRequest(t *testing.T, target string, body []byte, secret string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set(inbound.HeaderSignature, webhook.Sign(body, secret))
	req.Header.Set(inbound.HeaderTimestamp, strconv.FormatInt(time.Now().Unix(), 10))
	return req
}

func TestHTTPHandler(t *testing.T) {
	f := newFixture(t, "video-1", map[string]string{"job-1": ""})
	srv := callback.NewHTTPHandler(inbound.NewVerifier(inboundSecret), f.handler, testLogger())

	body, _ := json.Marshal(success("req-9"))

	tests := []struct {
		name        string
		req         *http.Request
		wantStatus  int
		wantOutcome callback.Kind
	}{
		{
			name:       "bad signature",
			req:        signedRequest(t, "/webhooks/fal?jobId=job-1", body, "wrong"),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:        "fallback job id from query",
			req:         signedRequest(t, "/webhooks/fal?jobId=job-1", body, inboundSecret),
			wantStatus:  http.StatusOK,
			wantOutcome: callback.KindCompleted,
		},
		{
			name:        "duplicate delivery",
			req:         signedRequest(t, "/webhooks/fal", body, inboundSecret),
			wantStatus:  http.StatusOK,
			wantOutcome: callback.KindIgnored,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, tt.req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantOutcome == "" {
				return
			}
			var resp struct {
				Outcome callback.Kind `json:"outcome"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Outcome != tt.wantOutcome {
				t.Errorf("outcome = %q, want %q", resp.Outcome, tt.wantOutcome)
			}
		})
	}
}

func TestHTTPHandler_UnknownJobStillAcknowledged(t *testing.T) {
	f := newFixture(t, "video-1", nil)
	srv := callback.NewHTTPHandler(inbound.NewVerifier(inboundSecret), f.handler, testLogger())

	body, _ := json.Marshal(success("req-nobody"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, signedRequest(t, "/webhooks/fal", body, inboundSecret))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
