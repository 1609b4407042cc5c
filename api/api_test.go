package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/api"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/engine"
	"github.com/cladams7905/zencourt-sub006/render"
	"github.com/cladams7905/zencourt-sub006/storage"
	"github.com/cladams7905/zencourt-sub006/store/memory"
)

type fakeStrategy struct{}

func (fakeStrategy) Name() string                       { return "fake" }
func (fakeStrategy) CanHandle(*clip.DispatchInput) bool { return true }

func (fakeStrategy) Dispatch(_ context.Context, in *clip.DispatchInput) (*clip.DispatchResult, error) {
	return &clip.DispatchResult{RequestID: "req-" + in.JobID}, nil
}

type fakeStorage struct{}

func (fakeStorage) UploadFile(_ context.Context, in *storage.UploadInput) (string, error) {
	return "https://cdn.example.com/" + in.Key, nil
}

func (fakeStorage) DownloadBufferWithRetry(context.Context, string, storage.DownloadOptions) (*storage.Download, error) {
	return &storage.Download{Body: []byte("mp4")}, nil
}

// blockingRender renders until its context is canceled.
var blockingRender = render.ProviderFunc(func(ctx context.Context, _ *render.Request) (*render.Result, error) {
	<-ctx.Done()
	return nil, ctx.Err()
})

func newHandler(t *testing.T, opts ...engine.Option) (http.Handler, *memory.Store) {
	t.Helper()
	s := memory.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	all := append([]engine.Option{
		engine.WithLogger(logger),
		engine.WithStrategy(fakeStrategy{}),
		engine.WithStorage(fakeStorage{}),
	}, opts...)
	eng, err := engine.Build(context.Background(), zencourt.DefaultConfig(), s, all...)
	if err != nil {
		t.Fatalf("engine.Build: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop(context.Background()) })
	return api.New(eng, nil).Handler(), s
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRenders_CreateGetCancel(t *testing.T) {
	h, _ := newHandler(t, engine.WithRenderProvider(blockingRender))

	rec := do(t, h, http.MethodPost, "/v1/renders", render.Input{
		Clips: []render.Clip{{URL: "https://cdn.example.com/a.mp4"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	var created api.CreateRenderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.JobID == "" {
		t.Fatal("jobId is empty")
	}

	rec = do(t, h, http.MethodGet, "/v1/renders/"+created.JobID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/v1/renders/"+created.JobID+"/cancel", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/v1/renders/"+created.JobID+"/cancel", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("second cancel status = %d, want 400", rec.Code)
	}
}

func TestRenders_NotFound(t *testing.T) {
	h, _ := newHandler(t, engine.WithRenderProvider(blockingRender))

	if rec := do(t, h, http.MethodGet, "/v1/renders/rnd_missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/v1/renders/rnd_missing/cancel", nil); rec.Code != http.StatusNotFound {
		t.Errorf("cancel status = %d, want 404", rec.Code)
	}
}

func TestRenders_Disabled(t *testing.T) {
	h, _ := newHandler(t)

	if rec := do(t, h, http.MethodGet, "/v1/renders", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestVideos_GenerateAndGet(t *testing.T) {
	h, s := newHandler(t)
	ctx := context.Background()
	if err := s.SaveVideo(ctx, &clip.Video{ID: "video-1", Status: clip.VideoDraft}); err != nil {
		t.Fatalf("SaveVideo: %v", err)
	}
	if err := s.SaveJob(ctx, &clip.GenerationJob{ID: "job-a", VideoID: "video-1", Status: clip.StatusQueued}); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}

	rec := do(t, h, http.MethodPost, "/v1/videos/video-1/generate", map[string]any{"jobIds": []string{"job-a"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/v1/videos/video-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}
	var resp api.VideoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Video.Status != clip.VideoProcessing {
		t.Errorf("video status = %q, want processing", resp.Video.Status)
	}

	if rec := do(t, h, http.MethodPost, "/v1/videos/video-1/generate", map[string]any{"jobIds": []string{"nope"}}); rec.Code != http.StatusNotFound {
		t.Errorf("unknown jobs status = %d, want 404", rec.Code)
	}
}
