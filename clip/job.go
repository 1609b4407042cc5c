package clip

import "time"

// Status is the lifecycle state of a GenerationJob.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusDispatched Status = "dispatched"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// IgnoresCallbacks reports whether provider callbacks must be dropped.
func (s Status) IgnoresCallbacks() bool {
	return s == StatusCompleted || s == StatusCanceled
}

// Orientation is the frame orientation of a clip.
type Orientation string

const (
	OrientationVertical   Orientation = "vertical"
	OrientationHorizontal Orientation = "horizontal"
	OrientationSquare     Orientation = "square"
)

// GenerationSettings are the provider inputs for one clip.
type GenerationSettings struct {
	Model           string      `json:"model" validate:"required"`
	Orientation     Orientation `json:"orientation" validate:"omitempty,oneof=vertical horizontal square"`
	DurationSeconds float64     `json:"duration_seconds" validate:"gte=0"`
	Prompt          string      `json:"prompt,omitempty"`
	SourceImageURLs []string    `json:"source_image_urls,omitempty" validate:"dive,url"`
}

// ResultMetadata describes a finished clip.
type ResultMetadata struct {
	DurationSeconds float64     `json:"duration_seconds,omitempty"`
	FileSize        int64       `json:"file_size"`
	Checksum        string      `json:"checksum"`
	ThumbnailURL    string      `json:"thumbnail_url,omitempty"`
	Orientation     Orientation `json:"orientation,omitempty"`
}

// GenerationJob is one request to an external provider for one clip.
type GenerationJob struct {
	ID                string             `json:"id"`
	VideoID           string             `json:"video_id"`
	Status            Status             `json:"status"`
	ProviderRequestID string             `json:"provider_request_id,omitempty"`
	ProviderName      string             `json:"provider_name,omitempty"`
	Settings          GenerationSettings `json:"settings"`
	Result            *ResultMetadata    `json:"result,omitempty"`
	VideoURL          string             `json:"video_url,omitempty"`
	ThumbnailURL      string             `json:"thumbnail_url,omitempty"`
	Error             string             `json:"error,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// FirstSourceImage returns the first source image used for generation,
// or "" when the job had none.
func (j *GenerationJob) FirstSourceImage() string {
	if len(j.Settings.SourceImageURLs) == 0 {
		return ""
	}
	return j.Settings.SourceImageURLs[0]
}

// Completion is what the completion path records on a finished job.
type Completion struct {
	VideoURL     string
	ThumbnailURL string
	Metadata     ResultMetadata
}
