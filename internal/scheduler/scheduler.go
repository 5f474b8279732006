package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/cielo/internal/clock"
	obsmetrics "github.com/smallbiznis/cielo/internal/observability/metrics"
	pointsdomain "github.com/smallbiznis/cielo/internal/points/domain"
	"github.com/smallbiznis/cielo/internal/ratelimit"
	rewarddomain "github.com/smallbiznis/cielo/internal/reward/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependencies")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	RewardSvc rewarddomain.Service
	PointsSvc pointsdomain.Service
	Clock     clock.Clock
	Locker    *ratelimit.Locker `optional:"true"`
	Config    Config            `optional:"true"`
}

// Scheduler drives the periodic jobs: stock assignment for pending claims,
// expiry of stale claims, and the monthly counter reset.
type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	locker    *ratelimit.Locker
	rewardSvc rewarddomain.Service
	pointsSvc pointsdomain.Service

	lastResetYear  int
	lastResetMonth time.Month
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.RewardSvc == nil || p.PointsSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	now := p.Clock.Now()
	return &Scheduler{
		db:             p.DB,
		log:            p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:            p.Config.withDefaults(),
		clock:          p.Clock,
		locker:         p.Locker,
		rewardSvc:      p.RewardSvc,
		pointsSvc:      p.PointsSvc,
		lastResetYear:  now.Year(),
		lastResetMonth: now.Month(),
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	schedMetrics.IncJobError(name)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"assign_rewards", s.AssignRewardsJob},
		{"expire_claims", s.ExpireClaimsJob},
		{"reset_month", s.ResetMonthJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

// RunForever ticks RunOnce on the configured interval until the context is
// cancelled. When redis is configured, a leader lock keeps a multi-instance
// deployment down to one active scheduler per tick.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		s.runLocked(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runLocked(ctx context.Context) {
	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, s.cfg.LeaderLockName, s.cfg.LeaderLockTTL)
		if err != nil {
			s.log.Warn("leader lock failed", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		defer func() {
			if err := s.locker.Release(ctx, s.cfg.LeaderLockName, token); err != nil {
				s.log.Warn("leader lock release failed", zap.Error(err))
			}
		}()
	}
	if err := s.RunOnce(ctx); err != nil {
		s.log.Warn("scheduler run failed", zap.Error(err))
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// Empty EnabledJobs means everything runs (monolith mode).
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// AssignRewardsJob reserves stock for pending claims. Each claim gets its
// own transactional re-check inside the reward service; claims that cannot
// be satisfied stay pending for the next run.
func (s *Scheduler) AssignRewardsJob(ctx context.Context) error {
	assigned, err := s.rewardSvc.AssignPending(ctx)
	if err != nil {
		return err
	}
	if assigned > 0 {
		s.log.Info("assigned pending claims", zap.Int("count", assigned))
	}
	return nil
}

func (s *Scheduler) ExpireClaimsJob(ctx context.Context) error {
	expired, err := s.rewardSvc.ExpirePending(ctx, s.cfg.ClaimMaxAge)
	if err != nil {
		return err
	}
	if expired > 0 {
		s.log.Info("expired stale claims", zap.Int("count", expired))
	}
	return nil
}

// ResetMonthJob zeroes the month-to-date counters once per calendar month,
// on the first run after the boundary.
func (s *Scheduler) ResetMonthJob(ctx context.Context) error {
	now := s.clock.Now()
	if now.Year() == s.lastResetYear && now.Month() == s.lastResetMonth {
		return nil
	}
	if err := s.pointsSvc.ResetMonth(ctx); err != nil {
		return err
	}
	s.lastResetYear = now.Year()
	s.lastResetMonth = now.Month()
	s.log.Info("monthly points counters reset",
		zap.Int("year", now.Year()),
		zap.String("month", now.Month().String()),
	)
	return nil
}
