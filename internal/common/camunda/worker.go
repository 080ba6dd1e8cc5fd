// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"sync"
	"time"

	"comps-workers/internal/common/config"
	"comps-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobHandler is implemented by every task handler under internal/workers.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// JobWorkerOpener is the part of zbc.Client needed to open workers.
type JobWorkerOpener interface {
	NewJobWorker() worker.JobWorkerBuilderStep1
}

// JobRecorder receives per-job telemetry. observability.Observability
// implements it.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType string)
	RecordJobDuration(ctx context.Context, duration time.Duration, taskType string)
}

// Workers tracks the job workers opened by Start so they can be closed
// together on shutdown.
type Workers struct {
	mu       sync.Mutex
	opener   JobWorkerOpener
	log      logger.Logger
	recorder JobRecorder
	workers  map[string]worker.JobWorker
}

func NewWorkers(opener JobWorkerOpener, log logger.Logger) *Workers {
	return &Workers{
		opener:  opener,
		log:     log,
		workers: make(map[string]worker.JobWorker),
	}
}

func (w *Workers) WithRecorder(r JobRecorder) *Workers {
	w.recorder = r
	return w
}

// Start opens a worker for taskType unless wcfg disables it. It reports
// whether a worker was opened.
func (w *Workers) Start(taskType string, wcfg config.WorkerConfig, handler JobHandler) bool {
	if !wcfg.Enabled {
		w.log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	jobWorker := w.opener.NewJobWorker().
		JobType(taskType).
		Handler(w.instrument(taskType, handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	w.mu.Lock()
	if prev, ok := w.workers[taskType]; ok {
		prev.Close()
	}
	w.workers[taskType] = jobWorker
	w.mu.Unlock()

	w.log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

func (w *Workers) instrument(taskType string, handler JobHandler) worker.JobHandler {
	if w.recorder == nil {
		return handler.Handle
	}
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		handler.Handle(client, job)
		ctx := context.Background()
		w.recorder.RecordJobProcessed(ctx, taskType)
		w.recorder.RecordJobDuration(ctx, time.Since(start), taskType)
	}
}

// Running lists the task types with an open worker.
func (w *Workers) Running() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.workers))
	for taskType := range w.workers {
		out = append(out, taskType)
	}
	return out
}

// Close stops every worker and waits for in-flight jobs.
func (w *Workers) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for taskType, jobWorker := range w.workers {
		w.log.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		jobWorker.Close()
		jobWorker.AwaitClose()
		delete(w.workers, taskType)
	}
}
