package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"smsgateway/internal/config"
	"smsgateway/internal/services"

	"github.com/go-resty/resty/v2"
	"github.com/robfig/cron/v3"
)

const keepAliveTimeout = 10 * time.Second

type Cleaner interface {
	Cleanup(ctx context.Context) (services.CleanupResult, error)
}

// cronLogger routes cron's own logging, recovered panics included, to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}

// Scheduler runs the keep-alive ping and the retention cleanup on cron specs.
// An empty spec disables that job.
type Scheduler struct {
	cron     *cron.Cron
	client   *resty.Client
	cleaner  Cleaner
	logger   *slog.Logger
	cleaning atomic.Bool

	// ctx is cancelled by Stop; every job and triggered cleanup runs under it.
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

func NewScheduler(cfg config.SchedulerConfig, publicURL string, cleaner Cleaner, logger *slog.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		client:  resty.New().SetBaseURL(publicURL).SetTimeout(keepAliveTimeout),
		cleaner: cleaner,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	if cfg.KeepAliveSpec != "" && publicURL != "" {
		if _, err := s.cron.AddFunc(cfg.KeepAliveSpec, func() { _ = s.KeepAlive(s.ctx) }); err != nil {
			cancel()
			return nil, fmt.Errorf("keep-alive spec %q: %w", cfg.KeepAliveSpec, err)
		}
	}
	if cfg.CleanupSpec != "" && cleaner != nil {
		if _, err := s.cron.AddFunc(cfg.CleanupSpec, func() { s.RunCleanup(s.ctx) }); err != nil {
			cancel()
			return nil, fmt.Errorf("cleanup spec %q: %w", cfg.CleanupSpec, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop cancels running jobs and returns a context that is done once they,
// and any triggered cleanup, have returned.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cancel()

	cronDone := s.cron.Stop()
	ctx, done := context.WithCancel(context.Background())
	go func() {
		defer done()
		<-cronDone.Done()
		s.running.Wait()
	}()
	return ctx
}

// KeepAlive pings the service's own health endpoint.
func (s *Scheduler) KeepAlive(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		s.logger.Warn("keep-alive ping failed", "error", err)
		return err
	}
	if resp.IsError() {
		s.logger.Warn("keep-alive ping unhealthy", "status", resp.StatusCode())
		return fmt.Errorf("keep-alive: status %d", resp.StatusCode())
	}
	s.logger.Debug("keep-alive ping ok", "status", resp.StatusCode())
	return nil
}

// RunCleanup runs one retention cleanup. It reports false when a run is already in progress.
func (s *Scheduler) RunCleanup(ctx context.Context) bool {
	if s.cleaner == nil || !s.cleaning.CompareAndSwap(false, true) {
		return false
	}
	defer s.cleaning.Store(false)
	if _, err := s.cleaner.Cleanup(ctx); err != nil {
		s.logger.Error("scheduled cleanup failed", "error", err)
	}
	return true
}

// TriggerCleanup starts a cleanup in the background. It does nothing once
// the scheduler is stopped.
func (s *Scheduler) TriggerCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.running.Add(1)
	go func() {
		defer s.running.Done()
		s.RunCleanup(s.ctx)
	}()
}
