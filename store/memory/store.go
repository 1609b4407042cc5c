// Package memory is an in-memory implementation of store.Store. It is safe
// for concurrent use and intended for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/dlq"
	"github.com/cladams7905/zencourt-sub006/id"
)

// Compile-time interface checks.
var (
	_ clip.Store = (*Store)(nil)
	_ dlq.Store  = (*Store)(nil)
)

// Store keeps videos, generation jobs and dead letters in maps guarded by
// a single RWMutex. Every value crosses the boundary as a copy.
type Store struct {
	mu sync.RWMutex

	videos     map[string]*clip.Video
	jobs       map[string]*clip.GenerationJob
	requestIDs map[string]string // provider request id → job id
	dlqs       map[string]*dlq.Entry
}

// New returns a new empty Store.
func New() *Store {
	return &Store{
		videos:     make(map[string]*clip.Video),
		jobs:       make(map[string]*clip.GenerationJob),
		requestIDs: make(map[string]string),
		dlqs:       make(map[string]*dlq.Entry),
	}
}

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Videos
// ──────────────────────────────────────────────────

// SaveVideo inserts or replaces a video.
func (m *Store) SaveVideo(_ context.Context, v *clip.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *v
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	if cp.Status == "" {
		cp.Status = clip.VideoDraft
	}
	m.videos[v.ID] = &cp
	return nil
}

// FindVideoByID returns a copy of the video.
func (m *Store) FindVideoByID(_ context.Context, videoID string) (*clip.Video, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.videos[videoID]
	if !ok {
		return nil, zencourt.ErrVideoNotFound
	}
	cp := *v
	return &cp, nil
}

// MarkVideoProcessing moves a non-terminal video to processing.
func (m *Store) MarkVideoProcessing(_ context.Context, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[videoID]
	if !ok {
		return zencourt.ErrVideoNotFound
	}
	if v.Status.IsTerminal() {
		return nil
	}
	v.Status = clip.VideoProcessing
	v.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkVideoFailed moves a non-terminal video to failed.
func (m *Store) MarkVideoFailed(_ context.Context, videoID, message string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[videoID]
	if !ok {
		return false, zencourt.ErrVideoNotFound
	}
	if v.Status.IsTerminal() {
		return false, nil
	}
	v.Status = clip.VideoFailed
	v.Message = &message
	v.UpdatedAt = time.Now().UTC()
	return true, nil
}

// MarkVideoCompleted moves a video that is not yet completed to completed.
func (m *Store) MarkVideoCompleted(_ context.Context, videoID string, message *string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.videos[videoID]
	if !ok {
		return false, zencourt.ErrVideoNotFound
	}
	if v.Status == clip.VideoCompleted {
		return false, nil
	}
	v.Status = clip.VideoCompleted
	if message != nil {
		msg := *message
		v.Message = &msg
	} else {
		v.Message = nil
	}
	v.UpdatedAt = time.Now().UTC()
	return true, nil
}

// ──────────────────────────────────────────────────
// Generation jobs
// ──────────────────────────────────────────────────

// SaveJob inserts or replaces a generation job.
func (m *Store) SaveJob(_ context.Context, j *clip.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := copyJob(j)
	now := time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	if cp.Status == "" {
		cp.Status = clip.StatusQueued
	}
	m.jobs[j.ID] = cp
	if cp.ProviderRequestID != "" {
		m.requestIDs[cp.ProviderRequestID] = cp.ID
	}
	return nil
}

// FindJobsByIDs returns the known jobs among ids, in id order.
func (m *Store) FindJobsByIDs(_ context.Context, ids []string) ([]*clip.GenerationJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*clip.GenerationJob, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, jobID := range ids {
		if _, dup := seen[jobID]; dup {
			continue
		}
		seen[jobID] = struct{}{}
		if j, ok := m.jobs[jobID]; ok {
			out = append(out, copyJob(j))
		}
	}
	return out, nil
}

// FindJobByID returns a copy of the job.
func (m *Store) FindJobByID(_ context.Context, jobID string) (*clip.GenerationJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return nil, zencourt.ErrJobNotFound
	}
	return copyJob(j), nil
}

// FindJobByRequestID resolves a job from its provider request id.
func (m *Store) FindJobByRequestID(_ context.Context, requestID string) (*clip.GenerationJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobID, ok := m.requestIDs[requestID]
	if !ok {
		return nil, zencourt.ErrJobNotFound
	}
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, zencourt.ErrJobNotFound
	}
	return copyJob(j), nil
}

// AttachRequestIDToJob sets the provider request id once.
func (m *Store) AttachRequestIDToJob(_ context.Context, jobID, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return zencourt.ErrJobNotFound
	}
	return m.attachLocked(j, requestID)
}

func (m *Store) attachLocked(j *clip.GenerationJob, requestID string) error {
	if j.ProviderRequestID == requestID {
		return nil
	}
	if j.ProviderRequestID != "" {
		return zencourt.ErrRequestIDAlreadySet
	}
	j.ProviderRequestID = requestID
	j.UpdatedAt = time.Now().UTC()
	m.requestIDs[requestID] = j.ID
	return nil
}

// MarkJobDispatched records the provider acknowledgement.
func (m *Store) MarkJobDispatched(_ context.Context, jobID string, res *clip.DispatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return zencourt.ErrJobNotFound
	}
	if err := m.attachLocked(j, res.RequestID); err != nil {
		return err
	}
	if !j.Status.IsTerminal() {
		j.Status = clip.StatusDispatched
	}
	j.ProviderName = res.Provider
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkJobProcessing moves a non-terminal job to processing.
func (m *Store) MarkJobProcessing(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return zencourt.ErrJobNotFound
	}
	if j.Status.IsTerminal() {
		return nil
	}
	j.Status = clip.StatusProcessing
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkJobFailed records a failure unless the job is completed or canceled.
func (m *Store) MarkJobFailed(_ context.Context, jobID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return zencourt.ErrJobNotFound
	}
	if j.Status.IgnoresCallbacks() {
		return nil
	}
	j.Status = clip.StatusFailed
	j.Error = message
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkJobCompleted records the finished clip.
func (m *Store) MarkJobCompleted(_ context.Context, jobID string, c *clip.Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID]
	if !ok {
		return zencourt.ErrJobNotFound
	}
	if j.Status == clip.StatusCanceled {
		return zencourt.ErrInvalidState
	}
	meta := c.Metadata
	j.Status = clip.StatusCompleted
	j.VideoURL = c.VideoURL
	j.ThumbnailURL = c.ThumbnailURL
	j.Result = &meta
	j.Error = ""
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// EvaluateJobCompletion summarizes the video's jobs from current state.
func (m *Store) EvaluateJobCompletion(_ context.Context, videoID string) (*clip.CompletionStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var statuses []clip.Status
	for _, j := range m.jobs {
		if j.VideoID == videoID {
			statuses = append(statuses, j.Status)
		}
	}
	cs := clip.Summarize(statuses)
	return &cs, nil
}

func copyJob(j *clip.GenerationJob) *clip.GenerationJob {
	cp := *j
	cp.Settings.SourceImageURLs = append([]string(nil), j.Settings.SourceImageURLs...)
	if j.Result != nil {
		r := *j.Result
		cp.Result = &r
	}
	return &cp
}

// ──────────────────────────────────────────────────
// DLQ
// ──────────────────────────────────────────────────

// PushDLQ parks a failed delivery.
func (m *Store) PushDLQ(_ context.Context, entry *dlq.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.dlqs[entry.ID.String()] = &cp
	return nil
}

// ListDLQ returns entries matching opts, oldest first.
func (m *Store) ListDLQ(_ context.Context, opts dlq.ListOpts) ([]*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*dlq.Entry, 0, len(m.dlqs))
	for _, e := range m.dlqs {
		if opts.VideoID != "" && e.VideoID != opts.VideoID {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		return result[i].FailedAt.Before(result[k].FailedAt)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return nil, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

// GetDLQ retrieves an entry by ID.
func (m *Store) GetDLQ(_ context.Context, entryID id.DLQID) (*dlq.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.dlqs[entryID.String()]
	if !ok {
		return nil, zencourt.ErrDLQNotFound
	}
	cp := *e
	return &cp, nil
}

// ReplayDLQ marks an entry as replayed.
func (m *Store) ReplayDLQ(_ context.Context, entryID id.DLQID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.dlqs[entryID.String()]
	if !ok {
		return zencourt.ErrDLQNotFound
	}
	now := time.Now().UTC()
	e.ReplayedAt = &now
	return nil
}

// PurgeDLQ removes entries with FailedAt before the given time.
func (m *Store) PurgeDLQ(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for key, e := range m.dlqs {
		if e.FailedAt.Before(before) {
			delete(m.dlqs, key)
			count++
		}
	}
	return count, nil
}

// CountDLQ returns the number of parked entries.
func (m *Store) CountDLQ(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.dlqs)), nil
}
