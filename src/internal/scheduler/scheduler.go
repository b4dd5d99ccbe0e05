package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/steve-ongera/mpesa-ledger/src/internal/logger"
	"github.com/steve-ongera/mpesa-ledger/src/internal/usecase/service_interfaces"
)

const (
	chargeBandJob  = "charge-band-refresh"
	loanDefaultJob = "loan-default-sweep"
)

type Options struct {
	ChargeBandRefresh string
	LoanDefaultSweep  string
	JobTimeout        time.Duration
	LockPrefix        string
	Now               func() time.Time
}

// Scheduler runs the periodic ledger jobs. Jobs that move loans are guarded
// by Locker so that only one replica sweeps at a time.
type Scheduler struct {
	cron    *cron.Cron
	charges service_interfaces.ChargesService
	loans   service_interfaces.LoanService
	locker  Locker
	opts    Options
}

func New(charges service_interfaces.ChargesService, loans service_interfaces.LoanService, locker Locker, opts Options) *Scheduler {
	if locker == nil {
		locker = localLock{}
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 2 * time.Minute
	}
	opts.LockPrefix = strings.TrimSuffix(strings.TrimSpace(opts.LockPrefix), ":")
	if opts.LockPrefix == "" {
		opts.LockPrefix = "mpesa:lock"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cronLogger := cronLog{}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)), cron.WithLogger(cronLogger)),
		charges: charges,
		loans:   loans,
		locker:  locker,
		opts:    opts,
	}
}

// Start registers the jobs with a non-empty schedule and starts the cron loop.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name     string
		schedule string
		run      func()
	}{
		{chargeBandJob, s.opts.ChargeBandRefresh, s.RefreshChargeBands},
		{loanDefaultJob, s.opts.LoanDefaultSweep, s.SweepDefaults},
	}

	var errs []error
	for _, job := range jobs {
		schedule := strings.TrimSpace(job.schedule)
		if schedule == "" {
			logger.Info("scheduler job disabled", logger.Fields{"job": job.name})
			continue
		}
		if _, err := s.cron.AddFunc(schedule, job.run); err != nil {
			logger.Error("scheduler job registration failed", err, logger.Fields{"job": job.name, "schedule": schedule})
			errs = append(errs, fmt.Errorf("schedule %s: %w", job.name, err))
			continue
		}
		logger.Info("scheduler job registered", logger.Fields{"job": job.name, "schedule": schedule})
	}

	s.cron.Start()
	return errors.Join(errs...)
}

// Stop halts the cron loop. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) RefreshChargeBands() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.charges.Reload(ctx)
	if err != nil {
		logger.Error("scheduler charge band refresh failed", err, logger.Fields{"job": chargeBandJob})
		return
	}
	logger.Info("scheduler charge band refresh done", logger.Fields{
		"job":        chargeBandJob,
		"bands":      n,
		"durationMs": time.Since(start).Milliseconds(),
	})
}

func (s *Scheduler) SweepDefaults() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.JobTimeout)
	defer cancel()

	start := time.Now()
	asOf := s.opts.Now()
	var defaulted int
	err := s.locker.WithLock(ctx, s.opts.LockPrefix+":"+loanDefaultJob, func(ctx context.Context) error {
		n, err := s.loans.MarkDefaulted(ctx, asOf)
		defaulted = n
		return err
	})

	fields := logger.Fields{"job": loanDefaultJob, "asOf": asOf, "defaulted": defaulted}
	switch {
	case errors.Is(err, ErrLockHeld):
		logger.Info("scheduler loan sweep skipped, lock held elsewhere", fields)
	case err != nil:
		logger.Error("scheduler loan sweep failed", err, fields)
	default:
		fields["durationMs"] = time.Since(start).Milliseconds()
		logger.Info("scheduler loan sweep done", fields)
	}
}

// cronLog routes cron's own messages to the process logger.
type cronLog struct{}

func (cronLog) Info(msg string, keysAndValues ...any) {
	logger.Debug("cron "+msg, pairs(keysAndValues))
}

func (cronLog) Error(err error, msg string, keysAndValues ...any) {
	logger.Error("cron "+msg, err, pairs(keysAndValues))
}

func pairs(keysAndValues []any) logger.Fields {
	fields := logger.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
