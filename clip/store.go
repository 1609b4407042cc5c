package clip

import "context"

// Store is the persistence contract used by the orchestrators. Lookups
// return zencourt.ErrJobNotFound or zencourt.ErrVideoNotFound when the
// entity does not exist.
type Store interface {
	// SaveVideo inserts or replaces a video.
	SaveVideo(ctx context.Context, v *Video) error

	// SaveJob inserts or replaces a generation job.
	SaveJob(ctx context.Context, j *GenerationJob) error

	// FindJobsByIDs returns the jobs that exist among ids, in id order.
	// Unknown ids are skipped, not reported.
	FindJobsByIDs(ctx context.Context, ids []string) ([]*GenerationJob, error)

	// FindJobByID returns a single job.
	FindJobByID(ctx context.Context, jobID string) (*GenerationJob, error)

	// FindJobByRequestID resolves a job from the provider's request id.
	FindJobByRequestID(ctx context.Context, requestID string) (*GenerationJob, error)

	// AttachRequestIDToJob records the provider request id. Attaching the
	// same id again is a no-op; attaching a different one returns
	// zencourt.ErrRequestIDAlreadySet.
	AttachRequestIDToJob(ctx context.Context, jobID, requestID string) error

	// MarkJobDispatched moves a job to dispatched and attaches the
	// provider's request id under the same set-once rule.
	MarkJobDispatched(ctx context.Context, jobID string, res *DispatchResult) error

	// MarkJobProcessing moves a non-terminal job to processing.
	MarkJobProcessing(ctx context.Context, jobID string) error

	// MarkJobFailed records a failure message. Completed and canceled
	// jobs are left untouched.
	MarkJobFailed(ctx context.Context, jobID, message string) error

	// MarkJobCompleted records the finished clip.
	MarkJobCompleted(ctx context.Context, jobID string, c *Completion) error

	// FindVideoByID returns a single video.
	FindVideoByID(ctx context.Context, videoID string) (*Video, error)

	// MarkVideoProcessing moves a non-terminal video to processing.
	MarkVideoProcessing(ctx context.Context, videoID string) error

	// MarkVideoFailed moves a non-terminal video to failed. changed is
	// false when the video was already terminal.
	MarkVideoFailed(ctx context.Context, videoID, message string) (changed bool, err error)

	// MarkVideoCompleted moves a video that is not yet completed to
	// completed, including one previously failed by a single clip.
	// changed is false when it was already completed.
	MarkVideoCompleted(ctx context.Context, videoID string, message *string) (changed bool, err error)

	// EvaluateJobCompletion recomputes the video's job summary from
	// persisted state.
	EvaluateJobCompletion(ctx context.Context, videoID string) (*CompletionStatus, error)
}
