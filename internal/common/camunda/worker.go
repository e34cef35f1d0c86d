package camunda

import (
	"fmt"
	"time"

	"credit-scoring/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// WorkerOptions configures one job worker.
type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
}

// Worker is an open job subscription.
type Worker struct {
	jobWorker worker.JobWorker
	taskType  string
	logger    logger.Logger
}

// StartWorker opens a job worker for opts.TaskType.
func StartWorker(client zbc.Client, opts WorkerOptions, handler worker.JobHandler, log logger.Logger) (*Worker, error) {
	if opts.TaskType == "" {
		return nil, fmt.Errorf("task type is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required for %s", opts.TaskType)
	}

	jobWorker := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(handler).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Name(fmt.Sprintf("%s-worker", opts.TaskType)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      opts.TaskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})

	return &Worker{jobWorker: jobWorker, taskType: opts.TaskType, logger: log}, nil
}

// Close stops polling and waits for in-flight jobs.
func (w *Worker) Close() {
	w.logger.Info("stopping worker", map[string]interface{}{"taskType": w.taskType})
	w.jobWorker.Close()
	w.jobWorker.AwaitClose()
}
