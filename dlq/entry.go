package dlq

import (
	"time"

	"github.com/cladams7905/zencourt-sub006/id"
)

// Entry is an outbound webhook delivery that exhausted its retry budget
// and was parked for inspection or replay.
type Entry struct {
	ID         id.DLQID      `json:"id"`
	DeliveryID id.DeliveryID `json:"delivery_id"`
	URL        string        `json:"url"`
	Payload    []byte        `json:"payload"`
	Error      string        `json:"error"`
	Attempts   int           `json:"attempts"`
	JobID      string        `json:"job_id,omitempty"`
	VideoID    string        `json:"video_id,omitempty"`
	FailedAt   time.Time     `json:"failed_at"`
	ReplayedAt *time.Time    `json:"replayed_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
