package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"helioframe/internal/config"
	"helioframe/internal/logging"
	"helioframe/internal/queue"
	"helioframe/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Acquisition stage.Handler
	Assembly    stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// Manager advances queue items through the acquisition and assembly stages.
type Manager struct {
	cfg           *config.Config
	store         *queue.Store
	logger        *slog.Logger
	pollInterval  time.Duration
	errorInterval time.Duration

	stages       []pipelineStage
	stageByStart map[queue.Status]pipelineStage

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastErr  error
	lastItem *queue.Item
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:           cfg,
		store:         store,
		logger:        logging.NewComponentLogger(logger, "workflow"),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		stageByStart:  make(map[queue.Status]pipelineStage),
	}
}

// ConfigureStages registers the pipeline handlers. Must be called before Start.
func (m *Manager) ConfigureStages(set StageSet) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stages = []pipelineStage{
		{
			name:             "acquisition",
			handler:          set.Acquisition,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusAcquiring,
			doneStatus:       queue.StatusAcquired,
		},
		{
			name:             "assembly",
			handler:          set.Assembly,
			startStatus:      queue.StatusAcquired,
			processingStatus: queue.StatusAssembling,
			doneStatus:       queue.StatusCompleted,
		},
	}
	m.stageByStart = make(map[queue.Status]pipelineStage, len(m.stages))
	for _, stg := range m.stages {
		m.stageByStart[stg.startStatus] = stg
	}
}

func (m *Manager) startStatuses() []queue.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	statuses := make([]queue.Status, 0, len(m.stages))
	for _, stg := range m.stages {
		statuses = append(statuses, stg.startStatus)
	}
	return statuses
}

func (m *Manager) stageForStatus(status queue.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByStart[status]
	return stg, ok
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastItem(item *queue.Item) {
	m.mu.Lock()
	if item != nil {
		copy := *item
		m.lastItem = &copy
	} else {
		m.lastItem = nil
	}
	m.mu.Unlock()
}
