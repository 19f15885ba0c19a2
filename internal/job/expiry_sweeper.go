package job

import (
	"context"
	"sync"
	"time"

	"group-vault/config"
	"group-vault/internal/core/ports"

	"github.com/rs/zerolog"
)

// sweeperLockKey guards the sweep so only one replica runs it per tick.
const sweeperLockKey = "approval-sweeper"

// ExpirySweeper periodically expires overdue proposals and re-drives
// approved proposals whose execution did not complete.
type ExpirySweeper struct {
	approvals ports.ApprovalService
	lock      ports.DistributedLock // nil runs without cross-replica coordination
	interval  time.Duration
	lockTTL   time.Duration
	now       func() time.Time
	log       zerolog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewExpirySweeper creates a sweeper from the approval config.
func NewExpirySweeper(approvals ports.ApprovalService, lock ports.DistributedLock, cfg config.ApprovalConfig, log zerolog.Logger) *ExpirySweeper {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = interval
	}
	return &ExpirySweeper{
		approvals: approvals,
		lock:      lock,
		interval:  interval,
		lockTTL:   lockTTL,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log.With().Str("job", "expiry_sweeper").Logger(),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called.
func (j *ExpirySweeper) Start(ctx context.Context) {
	defer close(j.done)
	j.log.Info().Dur("interval", j.interval).Msg("sweeper started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info().Msg("sweeper stopped: context done")
			return
		case <-j.stopCh:
			j.log.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				j.log.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (j *ExpirySweeper) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
	<-j.done
}

// RunOnce performs one sweep and returns how many proposals reached a terminal state.
// It returns 0 without sweeping when another replica holds the lock.
func (j *ExpirySweeper) RunOnce(ctx context.Context) (int, error) {
	if j.lock != nil {
		token, ok, err := j.lock.Acquire(ctx, sweeperLockKey, j.lockTTL)
		if err != nil {
			return 0, err
		}
		if !ok {
			j.log.Debug().Msg("sweep skipped: lock held elsewhere")
			return 0, nil
		}
		defer func() {
			if err := j.lock.Release(context.WithoutCancel(ctx), sweeperLockKey, token); err != nil {
				j.log.Warn().Err(err).Msg("failed to release sweeper lock")
			}
		}()
	}

	moved, err := j.approvals.Sweep(ctx, j.now())
	if err != nil {
		return len(moved), err
	}
	if len(moved) > 0 {
		j.log.Info().Int("count", len(moved)).Msg("proposals swept")
	}
	return len(moved), nil
}
