package clip

// DispatchInput is what a provider strategy receives for one job.
type DispatchInput struct {
	JobID           string
	VideoID         string
	Model           string
	Orientation     Orientation
	DurationSeconds float64
	Prompt          string
	SourceImageURLs []string
	// WebhookURL is where the provider should post its callback.
	WebhookURL string
}

// NewDispatchInput builds a DispatchInput from a job's settings.
func NewDispatchInput(j *GenerationJob) *DispatchInput {
	return &DispatchInput{
		JobID:           j.ID,
		VideoID:         j.VideoID,
		Model:           j.Settings.Model,
		Orientation:     j.Settings.Orientation,
		DurationSeconds: j.Settings.DurationSeconds,
		Prompt:          j.Settings.Prompt,
		SourceImageURLs: append([]string(nil), j.Settings.SourceImageURLs...),
	}
}

// DispatchResult is a provider's acknowledgement of a dispatched job.
type DispatchResult struct {
	RequestID string `json:"request_id"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}
