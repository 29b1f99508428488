package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"helioframe/internal/logging"
	"helioframe/internal/queue"
	"helioframe/internal/services"
)

func (m *Manager) processItem(ctx context.Context, item *queue.Item) error {
	stg, ok := m.stageForStatus(item.Status)
	if !ok {
		m.logger.Warn("no stage configured for status", logging.String("status", string(item.Status)))
		m.waitOrShutdown(ctx, m.pollInterval)
		return nil
	}

	stageCtx := services.WithItemID(ctx, item.ID)
	stageCtx = services.WithRunID(stageCtx, item.RunID)
	stageCtx = services.WithStage(stageCtx, stg.name)
	logger := logging.WithContext(stageCtx, m.logger)

	item.Status = stg.processingStatus
	item.ErrorMessage = ""
	if err := m.store.Update(stageCtx, item); err != nil {
		wrapped := fmt.Errorf("persist processing transition: %w", err)
		logger.Error("failed to transition item to processing", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	m.setLastItem(item)

	return m.executeStage(stageCtx, logger, stg, item)
}

func (m *Manager) executeStage(ctx context.Context, logger *slog.Logger, stg pipelineStage, item *queue.Item) error {
	stageStart := time.Now()
	logger.Info("stage started",
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("mode", item.Mode),
		logging.String("schema", item.ContainerSchema),
	)

	if stg.handler == nil {
		err := errors.New("stage handler unavailable")
		m.failItem(ctx, logger, stg.name, item, err)
		m.setLastError(err)
		return err
	}

	if err := stg.handler.Prepare(ctx, item); err != nil {
		m.failItem(ctx, logger, stg.name, item, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		logger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	if err := stg.handler.Execute(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("stage interrupted by shutdown")
			return err
		}
		m.failItem(ctx, logger, stg.name, item, err)
		m.setLastError(err)
		return err
	}

	item.Status = stg.doneStatus
	if item.Status == queue.StatusCompleted {
		item.ProgressStage = "completed"
		if strings.TrimSpace(item.ProgressMessage) == "" {
			item.ProgressMessage = "Run completed"
		}
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		logger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	logger.Info("stage completed",
		logging.String("next_status", string(item.Status)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastItem(item)
	return nil
}

func (m *Manager) failItem(ctx context.Context, logger *slog.Logger, stageName string, item *queue.Item, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed without error detail", stageName)
	}

	item.Status = queue.StatusFailed
	item.ErrorMessage = message
	item.ProgressStage = "failed"
	item.ProgressMessage = ""

	logger.Error("stage failed",
		logging.Error(stageErr),
		logging.String("error_message", message),
		logging.Bool("fatal", services.IsFatal(stageErr)),
	)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastItem(item)
}
