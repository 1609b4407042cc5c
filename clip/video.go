package clip

import (
	"fmt"
	"time"
)

// VideoStatus is the lifecycle state of a parent Video.
type VideoStatus string

const (
	VideoDraft      VideoStatus = "draft"
	VideoProcessing VideoStatus = "processing"
	VideoCompleted  VideoStatus = "completed"
	VideoFailed     VideoStatus = "failed"
)

// IsTerminal reports whether the video reached completed or failed.
func (s VideoStatus) IsTerminal() bool {
	return s == VideoCompleted || s == VideoFailed
}

// Video is the aggregate a batch of generation jobs belongs to.
type Video struct {
	ID          string      `json:"id"`
	ListingID   string      `json:"listing_id,omitempty"`
	UserID      string      `json:"user_id,omitempty"`
	Status      VideoStatus `json:"status"`
	Message     *string     `json:"message,omitempty"`
	CallbackURL string      `json:"callback_url,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CompletionStatus summarizes persisted job states for one video.
type CompletionStatus struct {
	// AllCompleted is true once every job reached a terminal state.
	AllCompleted bool `json:"all_completed"`
	Total        int  `json:"total"`
	Completed    int  `json:"completed"`
	// FailedJobs counts failed and canceled jobs.
	FailedJobs int `json:"failed_jobs"`
}

// Summarize computes a CompletionStatus from job statuses.
func Summarize(statuses []Status) CompletionStatus {
	cs := CompletionStatus{Total: len(statuses), AllCompleted: true}
	for _, s := range statuses {
		switch s {
		case StatusCompleted:
			cs.Completed++
		case StatusFailed, StatusCanceled:
			cs.FailedJobs++
		default:
			cs.AllCompleted = false
		}
	}
	if cs.Total == 0 {
		cs.AllCompleted = false
	}
	return cs
}

// FailureSummary returns the human-readable partial failure message, or
// nil when no clip failed.
func FailureSummary(failed int) *string {
	if failed <= 0 {
		return nil
	}
	noun := "clips"
	if failed == 1 {
		noun = "clip"
	}
	msg := fmt.Sprintf("%d %s failed", failed, noun)
	return &msg
}
