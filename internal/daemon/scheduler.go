package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"helioframe/internal/config"
	"helioframe/internal/logging"
	"helioframe/internal/queue"
	"helioframe/internal/staging"
)

// staleStagingAge is how long an abandoned staging directory may linger
// before the scheduler reclaims it.
const staleStagingAge = 24 * time.Hour

// scheduler enqueues a new acquisition run at the configured interval
// whenever the queue has no active run, and reclaims stale staging
// directories between runs.
type scheduler struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newScheduler(cfg *config.Config, store *queue.Store, logger *slog.Logger) *scheduler {
	return &scheduler{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "scheduler"),
	}
}

func (s *scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(runCtx)
}

func (s *scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

func (s *scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(s.cfg.Acquisition.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// The first run is enqueued immediately so a freshly started daemon
	// does not sit idle for a full interval.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *scheduler) tick(ctx context.Context) {
	s.reclaimStaging(ctx)

	active, err := s.store.HasActiveRun(ctx)
	if err != nil {
		s.logger.Error("failed to check for active runs", logging.Error(err))
		return
	}
	if active {
		s.logger.Debug("skipping scheduled run, queue still active")
		return
	}

	item, err := s.store.NewRun(ctx,
		s.cfg.Acquisition.Mode,
		s.cfg.Container.Schema,
		s.cfg.ChannelSet(),
		time.Now().UTC(),
	)
	if err != nil {
		s.logger.Error("failed to enqueue scheduled run", logging.Error(err))
		return
	}
	s.logger.Info("scheduled acquisition run",
		logging.String(logging.FieldRunID, item.RunID),
		logging.String("mode", item.Mode),
		logging.String("schema", item.ContainerSchema),
		logging.String("channels", item.ChannelList()),
	)
}

// reclaimStaging removes aged staging directories plus directories whose
// run is gone from the queue or already completed. Failed runs keep
// their directory so a retry can inspect what was staged.
func (s *scheduler) reclaimStaging(ctx context.Context) {
	s.logCleanup(staging.CleanStale(s.cfg.Paths.WorkDir, staleStagingAge, s.logger))

	items, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("failed to list runs for staging reclaim", logging.Error(err))
		return
	}
	keep := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.Status == queue.StatusCompleted {
			continue
		}
		keep[item.RunID] = struct{}{}
	}
	s.logCleanup(staging.CleanOrphaned(s.cfg.Paths.WorkDir, keep, s.logger))
}

func (s *scheduler) logCleanup(result staging.CleanResult) {
	for _, cleanupErr := range result.Errors {
		s.logger.Warn("staging cleanup error",
			logging.String("path", cleanupErr.Path),
			logging.Error(cleanupErr.Error),
		)
	}
}
