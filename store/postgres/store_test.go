//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/dlq"
	"github.com/cladams7905/zencourt-sub006/id"
	"github.com/cladams7905/zencourt-sub006/store/postgres"
)

// setupTestStore starts a Postgres container and returns a migrated Store.
func setupTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	ctx := context.Background()

	container, err := pgmodule.Run(ctx,
		"postgres:16-alpine",
		pgmodule.WithDatabase("zencourt_test"),
		pgmodule.WithUsername("test"),
		pgmodule.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if termErr := container.Terminate(ctx); termErr != nil {
			t.Logf("terminate container: %v", termErr)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	s, err := postgres.New(ctx, connStr, postgres.WithLogger(slog.Default()))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// A second run must be a no-op.
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
	return s
}

func seed(t *testing.T, s *postgres.Store, videoID string, jobIDs ...string) {
	t.Helper()
	ctx := context.Background()
	if err := s.SaveVideo(ctx, &clip.Video{ID: videoID, CallbackURL: "https://app.example.com/hook"}); err != nil {
		t.Fatalf("SaveVideo: %v", err)
	}
	for _, jobID := range jobIDs {
		err := s.SaveJob(ctx, &clip.GenerationJob{
			ID:      jobID,
			VideoID: videoID,
			Settings: clip.GenerationSettings{
				Model:           "kling",
				Orientation:     clip.OrientationVertical,
				DurationSeconds: 5,
				SourceImageURLs: []string{"https://img.example.com/" + jobID + ".jpg"},
			},
		})
		if err != nil {
			t.Fatalf("SaveJob(%s): %v", jobID, err)
		}
	}
}

func TestPostgres_JobRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seed(t, s, "vid-1", "job-a", "job-b")

	jobs, err := s.FindJobsByIDs(ctx, []string{"job-b", "missing", "job-a", "job-b"})
	if err != nil {
		t.Fatalf("FindJobsByIDs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "job-b" || jobs[1].ID != "job-a" {
		t.Fatalf("FindJobsByIDs order = %v, want [job-b job-a]", jobs)
	}
	if jobs[0].Status != clip.StatusQueued {
		t.Errorf("Status = %q, want %q", jobs[0].Status, clip.StatusQueued)
	}
	if got := jobs[0].FirstSourceImage(); got != "https://img.example.com/job-b.jpg" {
		t.Errorf("FirstSourceImage = %q", got)
	}

	if _, err := s.FindJobByID(ctx, "missing"); !errors.Is(err, zencourt.ErrJobNotFound) {
		t.Errorf("FindJobByID(missing) = %v, want ErrJobNotFound", err)
	}
}

func TestPostgres_RequestIDSetOnce(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seed(t, s, "vid-1", "job-a", "job-b")

	res := &clip.DispatchResult{RequestID: "req-1", Provider: "fal", Model: "kling"}
	if err := s.MarkJobDispatched(ctx, "job-a", res); err != nil {
		t.Fatalf("MarkJobDispatched: %v", err)
	}
	if err := s.AttachRequestIDToJob(ctx, "job-a", "req-1"); err != nil {
		t.Errorf("re-attach same id = %v, want nil", err)
	}
	if err := s.AttachRequestIDToJob(ctx, "job-a", "req-2"); !errors.Is(err, zencourt.ErrRequestIDAlreadySet) {
		t.Errorf("attach different id = %v, want ErrRequestIDAlreadySet", err)
	}
	if err := s.AttachRequestIDToJob(ctx, "job-b", "req-1"); !errors.Is(err, zencourt.ErrRequestIDAlreadySet) {
		t.Errorf("attach id owned by sibling = %v, want ErrRequestIDAlreadySet", err)
	}
	if err := s.AttachRequestIDToJob(ctx, "missing", "req-9"); !errors.Is(err, zencourt.ErrJobNotFound) {
		t.Errorf("attach on missing job = %v, want ErrJobNotFound", err)
	}

	j, err := s.FindJobByRequestID(ctx, "req-1")
	if err != nil {
		t.Fatalf("FindJobByRequestID: %v", err)
	}
	if j.ID != "job-a" || j.Status != clip.StatusDispatched || j.ProviderName != "fal" {
		t.Errorf("job = %+v, want job-a dispatched via fal", j)
	}
}

func TestPostgres_JobTransitions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seed(t, s, "vid-1", "job-a", "job-b", "job-c")

	if err := s.MarkJobProcessing(ctx, "job-a"); err != nil {
		t.Fatalf("MarkJobProcessing: %v", err)
	}
	done := &clip.Completion{
		VideoURL:     "https://cdn.example.com/videos/vid-1/job-a.mp4",
		ThumbnailURL: "https://cdn.example.com/videos/vid-1/job-a.jpg",
		Metadata:     clip.ResultMetadata{DurationSeconds: 5, FileSize: 1024, Checksum: "abc"},
	}
	if err := s.MarkJobCompleted(ctx, "job-a", done); err != nil {
		t.Fatalf("MarkJobCompleted: %v", err)
	}
	// A late failure must not overwrite a completed job.
	if err := s.MarkJobFailed(ctx, "job-a", "late"); err != nil {
		t.Fatalf("MarkJobFailed(completed): %v", err)
	}
	a, err := s.FindJobByID(ctx, "job-a")
	if err != nil {
		t.Fatalf("FindJobByID: %v", err)
	}
	if a.Status != clip.StatusCompleted || a.Result == nil || a.Result.FileSize != 1024 {
		t.Errorf("job-a = %+v, want completed with result", a)
	}

	if err := s.MarkJobFailed(ctx, "job-b", "boom"); err != nil {
		t.Fatalf("MarkJobFailed: %v", err)
	}

	cs, err := s.EvaluateJobCompletion(ctx, "vid-1")
	if err != nil {
		t.Fatalf("EvaluateJobCompletion: %v", err)
	}
	want := clip.CompletionStatus{AllCompleted: false, Total: 3, Completed: 1, FailedJobs: 1}
	if *cs != want {
		t.Errorf("EvaluateJobCompletion = %+v, want %+v", *cs, want)
	}

	if err := s.MarkJobFailed(ctx, "missing", "x"); !errors.Is(err, zencourt.ErrJobNotFound) {
		t.Errorf("MarkJobFailed(missing) = %v, want ErrJobNotFound", err)
	}
}

func TestPostgres_VideoTransitions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	seed(t, s, "vid-1")

	if err := s.MarkVideoProcessing(ctx, "vid-1"); err != nil {
		t.Fatalf("MarkVideoProcessing: %v", err)
	}
	changed, err := s.MarkVideoFailed(ctx, "vid-1", "Clip job-a failed: boom")
	if err != nil || !changed {
		t.Fatalf("MarkVideoFailed = %v, %v; want true, nil", changed, err)
	}
	changed, err = s.MarkVideoFailed(ctx, "vid-1", "again")
	if err != nil || changed {
		t.Errorf("second MarkVideoFailed = %v, %v; want false, nil", changed, err)
	}

	// A partial success upgrades a failed video.
	changed, err = s.MarkVideoCompleted(ctx, "vid-1", clip.FailureSummary(1))
	if err != nil || !changed {
		t.Fatalf("MarkVideoCompleted = %v, %v; want true, nil", changed, err)
	}
	changed, err = s.MarkVideoCompleted(ctx, "vid-1", nil)
	if err != nil || changed {
		t.Errorf("second MarkVideoCompleted = %v, %v; want false, nil", changed, err)
	}

	v, err := s.FindVideoByID(ctx, "vid-1")
	if err != nil {
		t.Fatalf("FindVideoByID: %v", err)
	}
	if v.Status != clip.VideoCompleted || v.Message == nil || *v.Message != "1 clip failed" {
		t.Errorf("video = %+v, want completed with summary", v)
	}

	if _, err := s.MarkVideoFailed(ctx, "missing", "x"); !errors.Is(err, zencourt.ErrVideoNotFound) {
		t.Errorf("MarkVideoFailed(missing) = %v, want ErrVideoNotFound", err)
	}
}

func TestPostgres_DLQ(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	entries := []*dlq.Entry{
		{ID: id.NewDLQID(), DeliveryID: id.NewDeliveryID(), URL: "https://a.example.com", Payload: []byte(`{"a":1}`), Attempts: 4, VideoID: "vid-1", FailedAt: old, CreatedAt: old},
		{ID: id.NewDLQID(), URL: "https://b.example.com", Payload: []byte(`{"b":1}`), Attempts: 4, VideoID: "vid-2", FailedAt: time.Now().UTC(), CreatedAt: time.Now().UTC()},
	}
	for _, e := range entries {
		if err := s.PushDLQ(ctx, e); err != nil {
			t.Fatalf("PushDLQ: %v", err)
		}
	}

	list, err := s.ListDLQ(ctx, dlq.ListOpts{VideoID: "vid-1"})
	if err != nil {
		t.Fatalf("ListDLQ: %v", err)
	}
	if len(list) != 1 || list[0].ID.String() != entries[0].ID.String() || list[0].DeliveryID.String() != entries[0].DeliveryID.String() {
		t.Fatalf("ListDLQ(vid-1) = %+v, want the first entry", list)
	}

	if err := s.ReplayDLQ(ctx, entries[1].ID); err != nil {
		t.Fatalf("ReplayDLQ: %v", err)
	}
	got, err := s.GetDLQ(ctx, entries[1].ID)
	if err != nil {
		t.Fatalf("GetDLQ: %v", err)
	}
	if got.ReplayedAt == nil {
		t.Error("ReplayedAt = nil after replay")
	}
	if !got.DeliveryID.IsNil() {
		t.Errorf("DeliveryID = %v, want nil", got.DeliveryID)
	}

	purged, err := s.PurgeDLQ(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PurgeDLQ: %v", err)
	}
	if purged != 1 {
		t.Errorf("PurgeDLQ = %d, want 1", purged)
	}
	count, err := s.CountDLQ(ctx)
	if err != nil {
		t.Fatalf("CountDLQ: %v", err)
	}
	if count != 1 {
		t.Errorf("CountDLQ = %d, want 1", count)
	}

	if _, err := s.GetDLQ(ctx, id.NewDLQID()); !errors.Is(err, zencourt.ErrDLQNotFound) {
		t.Errorf("GetDLQ(unknown) = %v, want ErrDLQNotFound", err)
	}
}
