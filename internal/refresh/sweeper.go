package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/courierhq/courier/internal/message"
)

// StaleLister pages through uploaded descriptors with aging URLs.
type StaleLister interface {
	MessageStore
	ListStaleMedia(ctx context.Context, cutoff time.Time, limit int) ([]message.Message, error)
}

const sweepBatchSize = 200

// Sweeper periodically re-signs media URLs before they expire, so readers
// rarely hit an expired link at all.
type Sweeper struct {
	messages StaleLister
	issuer   URLIssuer
	schedule string
	maxAge   time.Duration
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewSweeper creates a sweeper with a cron schedule and a URL age threshold.
func NewSweeper(log *slog.Logger, messages StaleLister, issuer URLIssuer, schedule string, maxAge time.Duration) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		messages: messages,
		issuer:   issuer,
		schedule: schedule,
		maxAge:   maxAge,
		logger:   log.With(slog.String("component", "url_sweeper")),
	}
}

// Start schedules the sweep job.
func (s *Sweeper) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("url refresh sweep scheduled", slog.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler, waiting for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce re-signs one batch of stale descriptors. Per-message failures are
// logged and skipped; a sweep is best-effort maintenance, the on-demand
// refresh path remains the source of truth.
func (s *Sweeper) RunOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	stale, err := s.messages.ListStaleMedia(ctx, cutoff, sweepBatchSize)
	if err != nil {
		s.logger.Error("list stale media failed", slog.Any("error", err))
		return
	}
	refreshed := 0
	for _, msg := range stale {
		if msg.Media == nil || msg.Media.MediaID == "" || msg.Media.Mime == "" {
			continue
		}
		result, err := s.issuer.IssueSignedURL(ctx, msg.Counterparty(), msg.Media.MediaID, msg.Media.Mime)
		if err != nil {
			s.logger.Warn("sweep re-sign failed",
				slog.String("message_id", msg.ID),
				slog.Any("error", err),
			)
			continue
		}
		updated := *msg.Media
		updated.URL = result.URL
		updated.URLIssuedAt = result.IssuedAt
		if err := s.messages.UpdateMediaDescriptor(ctx, msg.ID, &updated); err != nil {
			s.logger.Warn("sweep descriptor update failed",
				slog.String("message_id", msg.ID),
				slog.Any("error", err),
			)
			continue
		}
		refreshed++
	}
	if len(stale) > 0 {
		s.logger.Info("url refresh sweep complete",
			slog.Int("candidates", len(stale)),
			slog.Int("refreshed", refreshed),
		)
	}
}
