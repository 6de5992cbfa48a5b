package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"kiln_dashboard/internal/logger"
	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/repository"
)

const (
	defaultBuffer    = 256
	defaultRetention = 24 * time.Hour
	pruneEvery       = 10 * time.Minute
	writeTimeout     = 2 * time.Second
)

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errInvalidDirection = errors.New("invalid direction: expected IN or OUT")
)

// DiagnosticsService queues channel envelopes and writes them to the message
// log on its own goroutine. Record never blocks the channel reader: when the
// queue is full the envelope is dropped.
type DiagnosticsService struct {
	repo      repository.MessageLog
	queue     chan models.ChannelMessage
	retention time.Duration
	log       *logger.Logger
	dropped   atomic.Int64
}

func NewDiagnosticsService(repo repository.MessageLog, buffer int, retention time.Duration, log *logger.Logger) *DiagnosticsService {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &DiagnosticsService{
		repo:      repo,
		queue:     make(chan models.ChannelMessage, buffer),
		retention: retention,
		log:       logger.OrNop(log),
	}
}

// Record offers m to the writer.
func (s *DiagnosticsService) Record(m models.ChannelMessage) {
	select {
	case s.queue <- m:
	default:
		n := s.dropped.Add(1)
		s.log.Warnw("diagnostics_dropped", "event", m.Event, "direction", m.Direction, "dropped_total", n)
	}
}

// Dropped counts envelopes lost to a full queue.
func (s *DiagnosticsService) Dropped() int64 { return s.dropped.Load() }

// Run writes queued envelopes and prunes old ones until ctx is canceled.
func (s *DiagnosticsService) Run(ctx context.Context) {
	t := time.NewTicker(pruneEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-s.queue:
			s.write(ctx, m)
		case now := <-t.C:
			n, err := s.repo.Prune(ctx, now.Add(-s.retention))
			if err != nil {
				s.log.Warnw("diagnostics_prune_failed", "err", err)
				continue
			}
			if n > 0 {
				s.log.Debugw("diagnostics_pruned", "rows", n)
			}
		}
	}
}

func (s *DiagnosticsService) write(ctx context.Context, m models.ChannelMessage) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := s.repo.Append(wctx, m); err != nil {
		s.log.Warnw("diagnostics_write_failed", "event", m.Event, "err", err)
	}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateFilter prepares query parameters and validates the
// time range and direction.
func normalizeAndValidateFilter(f MessageFilter) (repository.MessageFilter, error) {
	out := repository.MessageFilter{
		From:      normalizeToUTC(f.From),
		To:        normalizeToUTC(f.To),
		Direction: strings.ToUpper(strings.TrimSpace(f.Direction)),
		Event:     strings.TrimSpace(f.Event),
		Limit:     f.Limit,
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return repository.MessageFilter{}, errInvalidTimeRange
	}
	switch out.Direction {
	case "", models.DirectionInbound, models.DirectionOutbound:
	default:
		return repository.MessageFilter{}, errInvalidDirection
	}
	return out, nil
}

// List returns the recorded envelopes matching f, oldest first.
func (s *DiagnosticsService) List(ctx context.Context, f MessageFilter) ([]models.ChannelMessage, error) {
	rf, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, rf)
}

// IsInvalidFilter reports whether err came from filter validation.
func IsInvalidFilter(err error) bool {
	return errors.Is(err, errInvalidTimeRange) || errors.Is(err, errInvalidDirection)
}
