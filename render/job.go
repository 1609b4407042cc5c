package render

import (
	"context"
	"time"

	"github.com/cladams7905/zencourt-sub006/clip"
)

// State is the lifecycle state of a render job.
type State string

const (
	StateQueued     State = "queued"
	StateInProgress State = "in-progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCanceled   State = "canceled"
)

// IsTerminal reports whether the job finished one way or another.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCanceled
}

// Cancellable reports whether CancelJob may act on a job in this state.
func (s State) Cancellable() bool {
	return s == StateQueued || s == StateInProgress
}

// Clip is one finished generation clip to stitch into the final video.
type Clip struct {
	URL             string  `json:"url" validate:"required,url"`
	DurationSeconds float64 `json:"duration_seconds,omitempty" validate:"gte=0"`
	RoomName        string  `json:"room_name,omitempty"`
}

// Input is the render request supplied by the caller.
type Input struct {
	VideoID            string           `json:"video_id,omitempty"`
	Clips              []Clip           `json:"clips" validate:"required,min=1,dive"`
	Orientation        clip.Orientation `json:"orientation" validate:"omitempty,oneof=vertical horizontal square"`
	TransitionDuration float64          `json:"transition_duration,omitempty" validate:"gte=0"`
}

// Request is what a Provider receives. OnProgress accepts a percentage
// between 0 and 100 and is safe to call from any goroutine.
type Request struct {
	JobID              string
	Clips              []Clip
	Orientation        clip.Orientation
	TransitionDuration float64
	OnProgress         func(percent float64)
}

// Result is the rendered output.
type Result struct {
	Video           []byte  `json:"-"`
	Thumbnail       []byte  `json:"-"`
	VideoURL        string  `json:"video_url,omitempty"`
	ThumbnailURL    string  `json:"thumbnail_url,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	FileSize        int64   `json:"file_size"`
}

// Provider performs the render. It must return promptly once ctx is
// canceled.
type Provider interface {
	Render(ctx context.Context, req *Request) (*Result, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req *Request) (*Result, error)

// Render implements Provider.
func (f ProviderFunc) Render(ctx context.Context, req *Request) (*Result, error) {
	return f(ctx, req)
}

// Job is a read-only snapshot of a render job.
type Job struct {
	ID         string     `json:"id"`
	State      State      `json:"state"`
	Progress   float64    `json:"progress"`
	Input      Input      `json:"input"`
	Result     *Result    `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Callbacks observe a single job. Any field may be nil. They run on the
// render goroutine, except OnStart which runs inside CreateJob.
type Callbacks struct {
	OnStart    func(jobID string)
	OnProgress func(jobID string, percent float64)
	OnComplete func(jobID string, res *Result)
	OnError    func(jobID string, err error)
}
