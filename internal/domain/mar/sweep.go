package mar

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/internal/platform/notify"
)

// sweepBatchSize bounds one pass so a backlog never holds a connection for
// long.
const sweepBatchSize = 500

// Sweeper periodically finalizes scheduled doses whose due window has passed.
// Each candidate goes through the same compare-and-set as the interactive
// transitions, so a nurse administering at the same instant always wins or
// loses cleanly, never both.
type Sweeper struct {
	repo     Repository
	alerts   Alerter
	interval time.Duration
	// Recipient for missed-dose notices, typically the charge nurse.
	recipient string
	logger    zerolog.Logger
	now       func() time.Time
}

func NewSweeper(repo Repository, alerts Alerter, interval time.Duration, recipient string, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		repo:      repo,
		alerts:    alerts,
		interval:  interval,
		recipient: recipient,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start runs sweep passes until ctx is cancelled. Call in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("missed-dose sweep started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("missed-dose sweep stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("sweep pass failed")
			}
		}
	}
}

// RunOnce executes a single sweep pass. A candidate whose compare-and-set
// reports no rows was finalized by a nurse between the list and the update;
// that race is expected and logged as such, not as an error.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	now := s.now()
	candidates, err := s.repo.ListSweepCandidates(ctx, now, sweepBatchSize)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	var marked, lost int
	for _, d := range candidates {
		won, err := s.repo.MarkMissed(ctx, d.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("dose_id", d.ID.String()).Msg("mark missed failed")
			continue
		}
		if !won {
			lost++
			s.logger.Info().
				Str("dose_id", d.ID.String()).
				Str("mar_number", d.MARNumber).
				Msg("dose finalized concurrently, sweep skipped it")
			continue
		}
		marked++
		if s.alerts != nil {
			s.alerts.Enqueue(notify.Request{
				TemplateID: "dose-missed",
				Data: map[string]string{
					"patient_id":     d.PatientID.String(),
					"medication":     d.MedicationName,
					"scheduled_time": d.ScheduledTime.Format(time.RFC3339),
				},
				Recipient: s.recipient,
			})
		}
	}

	s.logger.Info().
		Int("candidates", len(candidates)).
		Int("marked_missed", marked).
		Int("lost_races", lost).
		Msg("sweep pass complete")
	return nil
}
