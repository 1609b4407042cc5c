package engine_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/callback"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/engine"
	"github.com/cladams7905/zencourt-sub006/inbound"
	"github.com/cladams7905/zencourt-sub006/render"
	"github.com/cladams7905/zencourt-sub006/storage"
	"github.com/cladams7905/zencourt-sub006/store/memory"
	"github.com/cladams7905/zencourt-sub006/webhook"
)

const (
	clipURL       = "https://provider.example/out.mp4"
	inboundSecret = "inbound-secret"
	outboundKey   = "outbound-secret"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// ──────────────────────────────────────────────────
// Fakes
// ──────────────────────────────────────────────────

type fakeStrategy struct{}

func (fakeStrategy) Name() string                       { return "fake" }
func (fakeStrategy) CanHandle(*clip.DispatchInput) bool { return true }

func (fakeStrategy) Dispatch(_ context.Context, in *clip.DispatchInput) (*clip.DispatchResult, error) {
	return &clip.DispatchResult{RequestID: "req-" + in.JobID, Model: in.Model}, nil
}

type fakeStorage struct{}

func (fakeStorage) UploadFile(_ context.Context, in *storage.UploadInput) (string, error) {
	return "https://cdn.example.com/" + in.Key, nil
}

func (fakeStorage) DownloadBufferWithRetry(_ context.Context, url string, _ storage.DownloadOptions) (*storage.Download, error) {
	if url != clipURL {
		return nil, errors.New("download failed: 404")
	}
	return &storage.Download{Body: []byte("mp4"), Checksum: "sum"}, nil
}

// receiver records status webhooks sent to a video's callback URL.
type receiver struct {
	mu     sync.Mutex
	events []webhook.Payload
	sigs   []string
	status int
}

func newReceiver(t *testing.T, status int) (*receiver, *httptest.Server) {
	t.Helper()
	rc := &receiver{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p webhook.Payload
		_ = json.Unmarshal(body, &p)
		rc.mu.Lock()
		rc.events = append(rc.events, p)
		rc.sigs = append(rc.sigs, r.Header.Get(webhook.HeaderSignature))
		rc.mu.Unlock()
		w.WriteHeader(rc.status)
	}))
	t.Cleanup(srv.Close)
	return rc, srv
}

func (rc *receiver) eventNames() map[string]int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make(map[string]int)
	for _, e := range rc.events {
		out[e.Event]++
	}
	return out
}

func testConfig() zencourt.Config {
	cfg := zencourt.DefaultConfig()
	cfg.Webhook.Secret = outboundKey
	cfg.Webhook.MaxRetries = 0
	cfg.Webhook.Backoff = time.Millisecond
	cfg.Inbound.Secret = inboundSecret
	return cfg
}

func seed(t *testing.T, s *memory.Store, videoID, callbackURL string, jobIDs ...string) {
	t.Helper()
	ctx := context.Background()
	if err := s.SaveVideo(ctx, &clip.Video{ID: videoID, Status: clip.VideoDraft, CallbackURL: callbackURL}); err != nil {
		t.Fatalf("SaveVideo: %v", err)
	}
	for _, jobID := range jobIDs {
		j := &clip.GenerationJob{
			ID:       jobID,
			VideoID:  videoID,
			Status:   clip.StatusQueued,
			Settings: clip.GenerationSettings{Model: "kling"},
		}
		if err := s.SaveJob(ctx, j); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}
}

func build(t *testing.T, s *memory.Store, cfg zencourt.Config, opts ...engine.Option) *engine.Engine {
	t.Helper()
	all := append([]engine.Option{
		engine.WithLogger(testLogger()),
		engine.WithStrategy(fakeStrategy{}),
		engine.WithStorage(fakeStorage{}),
	}, opts...)
	eng, err := engine.Build(context.Background(), cfg, s, all...)
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	return eng
}

func signedCallback(t *testing.T, p callback.Payload) *http.Request {
	t.Helper()
	body, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/fal", bytes.NewReader(body))
	req.Header.Set(inbound.HeaderSignature, webhook.Sign(body, inboundSecret))
	req.Header.Set(inbound.HeaderTimestamp, strconv.FormatInt(time.Now().Unix(), 10))
	return req
}

// ──────────────────────────────────────────────────
// Build validation
// ──────────────────────────────────────────────────

func TestBuild_RequiresStore(t *testing.T) {
	_, err := engine.Build(context.Background(), testConfig(), nil)
	if !errors.Is(err, zencourt.ErrNoStore) {
		t.Errorf("err = %v, want ErrNoStore", err)
	}
}

func TestBuild_RequiresStrategy(t *testing.T) {
	_, err := engine.Build(context.Background(), testConfig(), memory.New(),
		engine.WithLogger(testLogger()),
		engine.WithStorage(fakeStorage{}),
	)
	if !errors.Is(err, zencourt.ErrNoStrategies) {
		t.Errorf("err = %v, want ErrNoStrategies", err)
	}
}

func TestBuild_RequiresStorage(t *testing.T) {
	_, err := engine.Build(context.Background(), testConfig(), memory.New(),
		engine.WithLogger(testLogger()),
		engine.WithStrategy(fakeStrategy{}),
	)
	if !errors.Is(err, zencourt.ErrNoStorage) {
		t.Errorf("err = %v, want ErrNoStorage", err)
	}
}

func TestBuild_RenderQueueIsOptional(t *testing.T) {
	eng := build(t, memory.New(), testConfig())
	if eng.Renders() != nil {
		t.Error("Renders() should be nil without a render backend")
	}
	entries := eng.Scheduler().Entries()
	if len(entries) != 1 || entries[0].Name != "dlq-purge" {
		t.Errorf("entries = %+v, want only dlq-purge", entries)
	}

	p := render.ProviderFunc(func(context.Context, *render.Request) (*render.Result, error) {
		return &render.Result{}, nil
	})
	eng = build(t, memory.New(), testConfig(), engine.WithRenderProvider(p))
	if eng.Renders() == nil {
		t.Fatal("Renders() = nil, want a queue")
	}
	if got := len(eng.Scheduler().Entries()); got != 2 {
		t.Errorf("scheduler entries = %d, want 2", got)
	}
}

// ──────────────────────────────────────────────────
// End-to-end: generate → provider callback → video completed
// ──────────────────────────────────────────────────

func TestEngine_EndToEnd(t *testing.T) {
	rc, srv := newReceiver(t, http.StatusOK)
	s := memory.New()
	seed(t, s, "video-1", srv.URL, "job-a", "job-b")
	eng := build(t, s, testConfig())
	ctx := context.Background()

	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	res, err := eng.Generation().Start(ctx, "video-1", []string{"job-a", "job-b"})
	if err != nil {
		t.Fatalf("Generation.Start: %v", err)
	}
	if res.JobsStarted != 2 {
		t.Errorf("JobsStarted = %d, want 2", res.JobsStarted)
	}

	h := eng.CallbackHandler()
	for _, jobID := range []string{"job-a", "job-b"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, signedCallback(t, callback.Payload{
			RequestID: "req-" + jobID,
			Status:    callback.StatusOK,
			Payload:   &callback.Output{Video: &callback.File{URL: clipURL, FileSize: 3}},
		}))
		if rec.Code != http.StatusOK {
			t.Fatalf("callback %s status = %d (%s)", jobID, rec.Code, rec.Body.String())
		}
	}

	if err := eng.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	v, err := s.FindVideoByID(ctx, "video-1")
	if err != nil {
		t.Fatalf("FindVideoByID: %v", err)
	}
	if v.Status != clip.VideoCompleted {
		t.Errorf("video status = %q, want completed", v.Status)
	}
	j, _ := s.FindJobByID(ctx, "job-a")
	if j.Status != clip.StatusCompleted {
		t.Errorf("job-a status = %q, want completed", j.Status)
	}
	if j.VideoURL == "" {
		t.Error("job-a VideoURL should be set")
	}

	names := rc.eventNames()
	if names[webhook.EventJobCompleted] != 2 {
		t.Errorf("job.completed webhooks = %d, want 2", names[webhook.EventJobCompleted])
	}
	if names[webhook.EventVideoCompleted] != 1 {
		t.Errorf("video.completed webhooks = %d, want 1", names[webhook.EventVideoCompleted])
	}
	rc.mu.Lock()
	for _, sig := range rc.sigs {
		if sig == "" {
			t.Error("webhook delivered without signature")
		}
	}
	rc.mu.Unlock()

	stats, ok := eng.Providers().Stats("fake")
	if !ok {
		t.Fatal("Stats(fake) not found")
	}
	if stats.Successes != 2 {
		t.Errorf("Successes = %d, want 2", stats.Successes)
	}
}

func TestEngine_FailedWebhookIsDeadLettered(t *testing.T) {
	_, srv := newReceiver(t, http.StatusServiceUnavailable)
	s := memory.New()
	seed(t, s, "video-1", srv.URL, "job-a")
	eng := build(t, s, testConfig())
	ctx := context.Background()

	eng.Notifier().NotifyVideoFailed(ctx, "video-1", "boom")
	if err := eng.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	n, err := s.CountDLQ(ctx)
	if err != nil {
		t.Fatalf("CountDLQ: %v", err)
	}
	if n != 1 {
		t.Errorf("CountDLQ = %d, want 1", n)
	}
}

func TestEngine_StopIsSafeWithoutStart(t *testing.T) {
	eng := build(t, memory.New(), testConfig())
	if err := eng.Stop(context.Background()); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
