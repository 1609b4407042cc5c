package zencourt

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("zencourt: no store configured")
	ErrMigrationFailed = errors.New("zencourt: migration failed")

	// Not found errors.
	ErrJobNotFound         = errors.New("zencourt: generation job not found")
	ErrVideoNotFound       = errors.New("zencourt: video not found")
	ErrRenderJobNotFound   = errors.New("zencourt: render job not found")
	ErrDLQNotFound         = errors.New("zencourt: dlq entry not found")
	ErrNoJobsFound         = errors.New("zencourt: no jobs found")
	ErrNoEligibleProvider  = errors.New("zencourt: no eligible provider")
	ErrNoStrategies        = errors.New("zencourt: no provider strategies configured")
	ErrNoStorage           = errors.New("zencourt: no storage configured")
	ErrNoRenderProvider    = errors.New("zencourt: no render provider configured")
	ErrMissingCallbackURL  = errors.New("zencourt: video has no callback url")
	ErrMissingWebhookURL   = errors.New("zencourt: webhook url is empty")
	ErrMissingWebhookToken = errors.New("zencourt: webhook secret is empty")

	// Conflict errors.
	ErrVideoMismatch       = errors.New("zencourt: job does not belong to video")
	ErrRequestIDAlreadySet = errors.New("zencourt: provider request id already set")
	ErrRenderJobExists     = errors.New("zencourt: render job already exists")

	// State errors.
	ErrAllDispatchFailed = errors.New("zencourt: all video jobs failed to dispatch")
	ErrCircuitOpen       = errors.New("zencourt: provider circuit open")
	ErrNotCancellable    = errors.New("zencourt: render job is not cancellable")
	ErrRenderCanceled    = errors.New("zencourt: render job canceled")
	ErrRenderQueueClosed = errors.New("zencourt: render queue closed")
	ErrInvalidState      = errors.New("zencourt: invalid state transition")
	ErrSizeMismatch      = errors.New("zencourt: downloaded size does not match expected size")
)
