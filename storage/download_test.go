package storage_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/backoff"
	"github.com/cladams7905/zencourt-sub006/storage"
)

func newDownloader(opts ...storage.DownloaderOption) *storage.Downloader {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	base := []storage.DownloaderOption{
		storage.WithRetryDelay(backoff.NewConstant(time.Millisecond)),
		storage.WithDownloadLogger(logger),
	}
	return storage.NewDownloader(append(base, opts...)...)
}

func TestDownload_ChecksumAndSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	dl, err := newDownloader().Download(context.Background(), srv.URL, storage.DownloadOptions{ExpectedSize: 5})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	// sha256("hello")
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if dl.Checksum != want {
		t.Errorf("Checksum = %s, want %s", dl.Checksum, want)
	}
	if dl.ContentType != "video/mp4" {
		t.Errorf("ContentType = %q, want video/mp4", dl.ContentType)
	}
}

func TestDownload_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if _, err := newDownloader().Download(context.Background(), srv.URL, storage.DownloadOptions{}); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestDownload_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := newDownloader().Download(context.Background(), srv.URL, storage.DownloadOptions{}); err == nil {
		t.Fatal("expected error")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
}

func TestDownload_SizeMismatch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("short"))
	}))
	defer srv.Close()

	_, err := newDownloader(storage.WithAttempts(2)).Download(context.Background(), srv.URL, storage.DownloadOptions{ExpectedSize: 100})
	if !errors.Is(err, zencourt.ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}
