package predictcreditscore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "credit-scoring/internal/common/errors"
	"credit-scoring/internal/common/logger"
	"credit-scoring/internal/common/metrics"
	"credit-scoring/internal/scoring/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "predict-credit-score"

// Predictor is the scoring operation the worker delegates to.
type Predictor interface {
	Predict(ctx context.Context, raw map[string]interface{}) (pipeline.Result, error)
}

type Handler struct {
	config       *Config
	predictor    Predictor
	errorHandler *apperrors.ErrorHandler
	recorder     *metrics.Recorder
	logger       logger.Logger
}

func NewHandler(cfg *Config, predictor Predictor, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if predictor == nil {
		return nil, fmt.Errorf("predictor is required for %s", TaskType)
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		predictor:    predictor,
		errorHandler: apperrors.NewErrorHandler(log),
		recorder:     metrics.NewRecorder(metrics.ChannelWorker),
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	// broker commands must still go out when the job deadline has passed
	cmdCtx := context.Background()

	input, err := ParseInput(job.GetVariables())
	if err != nil {
		h.fail(cmdCtx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(cmdCtx, client, job, err)
		return
	}

	h.completeJob(cmdCtx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// Execute scores one applicant. Errors are StandardErrors or carry one.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	defer h.recorder.TrackInFlight()()

	res, err := h.predictor.Predict(ctx, input.Features)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.NewTimeoutError("scoring", err)
		}
		h.recorder.ObservePrediction(ctx, "", string(apperrors.Normalize(err).Code), elapsed)
		return nil, err
	}
	h.recorder.ObservePrediction(ctx, string(res.RiskCategory), "", elapsed)

	h.logger.Info("credit score predicted", map[string]interface{}{
		"applicantId": input.ApplicantID,
		"tier":        string(res.RiskCategory),
		"durationMs":  elapsed.Milliseconds(),
	})

	return &Output{
		ApplicantID:  input.ApplicantID,
		CreditScore:  res.CreditScore,
		RiskCategory: string(res.RiskCategory),
	}, nil
}

// ParseInput reads job variables. Numbers stay json.Number so integer
// attributes are checked against their literal form.
func ParseInput(variables string) (*Input, error) {
	if variables == "" {
		variables = "{}"
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(variables)))
	dec.UseNumber()

	var vars map[string]interface{}
	if err := dec.Decode(&vars); err != nil {
		return nil, apperrors.NewRequestMalformedError(fmt.Errorf("parse job variables: %w", err))
	}
	if vars == nil {
		vars = map[string]interface{}{}
	}

	input := &Input{}
	if id, ok := vars["applicantId"]; ok {
		switch v := id.(type) {
		case string:
			input.ApplicantID = v
		case json.Number:
			input.ApplicantID = v.String()
		}
	}

	nested, ok := vars["features"]
	if !ok {
		input.Features = vars
		return input, nil
	}
	features, ok := nested.(map[string]interface{})
	if !ok {
		return nil, apperrors.NewRequestMalformedError(fmt.Errorf("features must be an object, got %T", nested))
	}
	input.Features = features
	return input, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := apperrors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":       job.GetKey(),
		"creditScore":  output.CreditScore,
		"riskCategory": output.RiskCategory,
	})
}

func (h *Handler) Config() *Config {
	return h.config
}
