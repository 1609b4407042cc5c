package fal_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/provider/fal"
)

func TestDispatch_SubmitsJob(t *testing.T) {
	var (
		gotPath    string
		gotHook    string
		gotAuth    string
		gotPayload map[string]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHook = r.URL.Query().Get("fal_webhook")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_, _ = w.Write([]byte(`{"request_id":"req-123","status":"IN_QUEUE"}`))
	}))
	defer srv.Close()

	c := fal.New("secret-key", time.Second,
		fal.WithBaseURL(srv.URL),
		fal.WithWebhookURL("https://api.example.com/webhooks/fal"),
	)
	res, err := c.Dispatch(context.Background(), &clip.DispatchInput{
		JobID:           "job-1",
		Model:           "fal-ai/kling-video/v2/image-to-video",
		Orientation:     clip.OrientationVertical,
		DurationSeconds: 5,
		Prompt:          "slow pan across the kitchen",
		SourceImageURLs: []string{"https://img.example.com/1.jpg", "https://img.example.com/2.jpg"},
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if res.RequestID != "req-123" || res.Provider != fal.Name {
		t.Errorf("result = %+v", res)
	}
	if gotPath != "/fal-ai/kling-video/v2/image-to-video" {
		t.Errorf("path = %q", gotPath)
	}
	if gotHook != "https://api.example.com/webhooks/fal" {
		t.Errorf("fal_webhook = %q", gotHook)
	}
	if gotAuth != "Key secret-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	want := map[string]string{
		"prompt":       "slow pan across the kitchen",
		"image_url":    "https://img.example.com/1.jpg",
		"duration":     "5",
		"aspect_ratio": "9:16",
	}
	for k, v := range want {
		if gotPayload[k] != v {
			t.Errorf("payload[%s] = %q, want %q", k, gotPayload[k], v)
		}
	}
}

func TestDispatch_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := fal.New("k", time.Second, fal.WithBaseURL(srv.URL))
	_, err := c.Dispatch(context.Background(), &clip.DispatchInput{Model: "m", Prompt: "p"})

	var apiErr *fal.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", apiErr.Status)
	}
}

func TestDispatch_MissingRequestID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := fal.New("k", time.Second, fal.WithBaseURL(srv.URL))
	if _, err := c.Dispatch(context.Background(), &clip.DispatchInput{Model: "m", Prompt: "p"}); err == nil {
		t.Fatal("expected error for a response without request_id")
	}
}

func TestCanHandle(t *testing.T) {
	c := fal.New("k", time.Second, fal.WithModels("kling", "veo"))

	tests := []struct {
		name string
		in   clip.DispatchInput
		want bool
	}{
		{"allowed model with image", clip.DispatchInput{Model: "kling", SourceImageURLs: []string{"u"}}, true},
		{"allowed model with prompt", clip.DispatchInput{Model: "veo", Prompt: "p"}, true},
		{"unknown model", clip.DispatchInput{Model: "sora", Prompt: "p"}, false},
		{"nothing to generate from", clip.DispatchInput{Model: "kling"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.CanHandle(&tt.in); got != tt.want {
				t.Errorf("CanHandle = %v, want %v", got, tt.want)
			}
		})
	}
}
