// Package worker starts the service's background jobs.
package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-sla/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// Job is a long-running background task that returns when ctx is done.
type Job func(ctx context.Context) error

// Group runs named jobs and waits for them on shutdown.
type Group struct {
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewGroup creates an empty group.
func NewGroup(logger *zap.Logger) *Group {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Group{logger: logger}
}

// Go starts job in its own goroutine. A job that fails is logged; it does
// not stop the others.
func (g *Group) Go(ctx context.Context, name string, job Job) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		logger := g.logger.With(zap.String("job", name))
		logger.Info("background job started")
		err := job(ctx)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
			logger.Info("background job stopped")
		default:
			logger.Error("background job failed", zap.Error(err))
		}
	}()
}

// Wait blocks until every job has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}
