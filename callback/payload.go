package callback

import "strings"

// Provider queue statuses.
const (
	StatusOK         = "OK"
	StatusCompleted  = "COMPLETED"
	StatusError      = "ERROR"
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
)

// File is a provider-hosted output file.
type File struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
}

// Output is the success body nested under Payload.Payload.
type Output struct {
	Video     *File `json:"video,omitempty"`
	Thumbnail *File `json:"thumbnail,omitempty"`
	Seed      int64 `json:"seed,omitempty"`
}

// Payload is the webhook body a generation provider posts.
type Payload struct {
	RequestID        string  `json:"request_id"`
	GatewayRequestID string  `json:"gateway_request_id,omitempty"`
	Status           string  `json:"status"`
	Error            string  `json:"error,omitempty"`
	Payload          *Output `json:"payload,omitempty"`
}

// pending reports whether the provider is still working on the request.
func (p *Payload) pending() bool {
	s := strings.ToUpper(p.Status)
	return s == StatusInQueue || s == StatusInProgress
}

// videoURL returns the nested success URL, or "" when absent.
func (p *Payload) videoURL() string {
	if p.Payload == nil || p.Payload.Video == nil {
		return ""
	}
	return p.Payload.Video.URL
}

// failed reports whether the payload is an error or lacks the success
// fields.
func (p *Payload) failed() bool {
	return p.Error != "" || strings.EqualFold(p.Status, StatusError) || p.videoURL() == ""
}

func (p *Payload) thumbnailURL() string {
	if p.Payload == nil || p.Payload.Thumbnail == nil {
		return ""
	}
	return p.Payload.Thumbnail.URL
}

func (p *Payload) expectedSize() int64 {
	if p.Payload == nil || p.Payload.Video == nil {
		return 0
	}
	return p.Payload.Video.FileSize
}
