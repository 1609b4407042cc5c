package dlq

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cladams7905/zencourt-sub006/id"
)

var errNoSender = errors.New("dlq: no sender configured for replay")

// Failure describes a delivery that gave up.
type Failure struct {
	DeliveryID id.DeliveryID
	URL        string
	Payload    []byte
	Attempts   int
	JobID      string
	VideoID    string
	Err        error
}

// Sender re-sends a parked payload. The webhook service satisfies it.
type Sender interface {
	Resend(ctx context.Context, url string, payload []byte) error
}

// Service provides push, replay and purge over a Store.
type Service struct {
	store  Store
	sender Sender
	logger *slog.Logger
}

// NewService creates a DLQ service. sender may be nil, in which case
// Replay is unavailable.
func NewService(store Store, sender Sender, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, sender: sender, logger: logger}
}

// SetSender installs the sender used by Replay.
func (s *Service) SetSender(sender Sender) { s.sender = sender }

// Push parks a failed delivery.
func (s *Service) Push(ctx context.Context, f Failure) error {
	now := time.Now().UTC()
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	entry := &Entry{
		ID:         id.NewDLQID(),
		DeliveryID: f.DeliveryID,
		URL:        f.URL,
		Payload:    f.Payload,
		Error:      msg,
		Attempts:   f.Attempts,
		JobID:      f.JobID,
		VideoID:    f.VideoID,
		FailedAt:   now,
		CreatedAt:  now,
	}
	if err := s.store.PushDLQ(ctx, entry); err != nil {
		return err
	}
	s.logger.Warn("webhook delivery dead-lettered",
		slog.String("entry_id", entry.ID.String()),
		slog.String("url", f.URL),
		slog.Int("attempts", f.Attempts),
		slog.String("error", msg),
	)
	return nil
}

// Replay re-sends a parked payload and marks the entry replayed.
func (s *Service) Replay(ctx context.Context, entryID id.DLQID) (*Entry, error) {
	entry, err := s.store.GetDLQ(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if s.sender == nil {
		return nil, errNoSender
	}
	if err := s.sender.Resend(ctx, entry.URL, entry.Payload); err != nil {
		return nil, err
	}
	if err := s.store.ReplayDLQ(ctx, entryID); err != nil {
		return entry, err
	}
	now := time.Now().UTC()
	entry.ReplayedAt = &now
	return entry, nil
}

// Purge removes entries older than maxAge.
func (s *Service) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	return s.store.PurgeDLQ(ctx, time.Now().UTC().Add(-maxAge))
}

// DLQStore returns the underlying store for list, get and count.
func (s *Service) DLQStore() Store { return s.store }
