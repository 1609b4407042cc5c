package webhook

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cladams7905/zencourt-sub006/clip"
)

// Event names carried in Payload.Event.
const (
	EventJobCompleted   = "job.completed"
	EventJobFailed      = "job.failed"
	EventVideoCompleted = "video.completed"
	EventVideoFailed    = "video.failed"
)

// Payload is the JSON body of a status webhook.
type Payload struct {
	Event     string     `json:"event"`
	JobID     string     `json:"jobId,omitempty"`
	VideoID   string     `json:"videoId"`
	Status    string     `json:"status"`
	Timestamp string     `json:"timestamp"`
	Error     string     `json:"error,omitempty"`
	Message   *string    `json:"message,omitempty"`
	Result    *JobResult `json:"result,omitempty"`
}

// JobResult is the finished clip reported on job.completed.
type JobResult struct {
	VideoURL     string               `json:"videoUrl"`
	ThumbnailURL string               `json:"thumbnailUrl,omitempty"`
	Metadata     *clip.ResultMetadata `json:"metadata,omitempty"`
}

// VideoFinder resolves the callback URL of a video.
type VideoFinder interface {
	FindVideoByID(ctx context.Context, videoID string) (*clip.Video, error)
}

// Notifier delivers job and video status webhooks to the video's callback
// URL in the background.
type Notifier struct {
	svc    *Service
	videos VideoFinder
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewNotifier creates a Notifier. logger may be nil.
func NewNotifier(svc *Service, videos VideoFinder, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{svc: svc, videos: videos, logger: logger, now: time.Now}
}

// NotifyJob reports a job's current status.
func (n *Notifier) NotifyJob(ctx context.Context, j *clip.GenerationJob) {
	p := Payload{
		JobID:   j.ID,
		VideoID: j.VideoID,
		Status:  string(j.Status),
	}
	switch j.Status {
	case clip.StatusCompleted:
		p.Event = EventJobCompleted
		p.Result = &JobResult{
			VideoURL:     j.VideoURL,
			ThumbnailURL: j.ThumbnailURL,
			Metadata:     j.Result,
		}
	default:
		p.Event = EventJobFailed
		p.Error = j.Error
	}
	n.send(ctx, p)
}

// NotifyVideoCompleted reports that every clip of the video is terminal.
func (n *Notifier) NotifyVideoCompleted(ctx context.Context, videoID string, message *string) {
	n.send(ctx, Payload{
		Event:   EventVideoCompleted,
		VideoID: videoID,
		Status:  string(clip.VideoCompleted),
		Message: message,
	})
}

// NotifyVideoFailed reports that the video failed.
func (n *Notifier) NotifyVideoFailed(ctx context.Context, videoID, message string) {
	n.send(ctx, Payload{
		Event:   EventVideoFailed,
		VideoID: videoID,
		Status:  string(clip.VideoFailed),
		Error:   message,
		Message: &message,
	})
}

// Wait blocks until in-flight deliveries finish.
func (n *Notifier) Wait() { n.wg.Wait() }

// Close stops accepting notifications and waits for in-flight
// deliveries. Notifications sent after Close are dropped.
func (n *Notifier) Close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.wg.Wait()
}

// send stamps p and delivers it in the background. The body timestamp
// and the X-Webhook-Timestamp header carry the same instant.
func (n *Notifier) send(ctx context.Context, p Payload) {
	at := n.now().UTC().Truncate(time.Millisecond)
	p.Timestamp = at.Format(time.RFC3339Nano)

	v, err := n.videos.FindVideoByID(ctx, p.VideoID)
	if err != nil {
		n.logger.Warn("webhook skipped: video lookup failed",
			slog.String("video_id", p.VideoID),
			slog.String("event", p.Event),
			slog.String("error", err.Error()),
		)
		return
	}
	if v.CallbackURL == "" {
		n.logger.Debug("webhook skipped: no callback url",
			slog.String("video_id", p.VideoID),
			slog.String("event", p.Event),
		)
		return
	}

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.logger.Warn("webhook dropped: notifier closed",
			slog.String("video_id", p.VideoID),
			slog.String("event", p.Event),
		)
		return
	}
	n.wg.Add(1)
	n.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer n.wg.Done()
		_, err := n.svc.Deliver(ctx, Options{
			URL:       v.CallbackURL,
			Payload:   p,
			JobID:     p.JobID,
			VideoID:   p.VideoID,
			Timestamp: at,
		})
		if err != nil {
			n.logger.Error("status webhook failed",
				slog.String("video_id", p.VideoID),
				slog.String("job_id", p.JobID),
				slog.String("event", p.Event),
				slog.String("error", err.Error()),
			)
		}
	}()
}
