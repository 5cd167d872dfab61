package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Maintenance is the periodic work that keeps settlements and mints moving
// without timers inside the core.
type Maintenance struct {
	Settlements  *SettlementService
	Achievements *AchievementService
	Log          *zap.Logger
}

// FinalizeMatured resolves agreed settlements whose window has passed.
func (m *Maintenance) FinalizeMatured(ctx context.Context) {
	n, err := m.Settlements.FinalizeMatured(ctx)
	if err != nil {
		m.Log.Error("[Scheduler] finalize matured", zap.Error(err))
		return
	}
	if n > 0 {
		m.Log.Info("[Scheduler] finalized matured settlements", zap.Int("count", n))
	}
}

// RetryMints re-attempts pending and failed achievement mints.
func (m *Maintenance) RetryMints(ctx context.Context) {
	n, err := m.Achievements.RetryPendingMints(ctx)
	if err != nil {
		m.Log.Error("[Scheduler] retry mints", zap.Error(err))
		return
	}
	if n > 0 {
		m.Log.Info("[Scheduler] minted achievements", zap.Int("count", n))
	}
}

// StartMaintenanceScheduler registers both jobs and starts the scheduler. The
// caller shuts it down.
func StartMaintenanceScheduler(ctx context.Context, m *Maintenance, clock clockwork.Clock, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLogger(gocron.NewLogger(gocron.LogLevelError)),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	jobs := []struct {
		name string
		fn   func(context.Context)
	}{
		{"finalize-matured-settlements", m.FinalizeMatured},
		{"retry-achievement-mints", m.RetryMints},
	}
	for _, j := range jobs {
		_, err := sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() { j.fn(ctx) }),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("register %s: %w", j.name, err)
		}
	}

	sched.Start()
	return sched, nil
}
