package featurization

import (
	"context"
	"time"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
	"github.com/turtacn/MolGraph-Codec/pkg/types/common"
	mgtypes "github.com/turtacn/MolGraph-Codec/pkg/types/molgraph"
)

// EventPublisher publishes a domain event to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, eventType string, payload interface{}) error
}

// JobMetrics receives job outcomes.
type JobMetrics interface {
	ObserveJob(status string, d time.Duration)
}

// Event type of the completion event.
const EventFeaturizeCompleted = "molgraph.featurize.completed"

// JobHandlerConfig configures the job handler.
type JobHandlerConfig struct {
	// ResultTopic receives one FeaturizeJobResult per job.
	ResultTopic string

	// ChunkSize splits large jobs into batches; <= 0 sends the whole job as
	// one batch.
	ChunkSize int
}

// JobHandler runs featurization jobs delivered by the message bus.
type JobHandler struct {
	svc       Service
	publisher EventPublisher
	metrics   JobMetrics
	cfg       JobHandlerConfig
	logger    logging.Logger
}

// NewJobHandler creates a JobHandler.  metrics may be nil.
func NewJobHandler(svc Service, publisher EventPublisher, cfg JobHandlerConfig, metrics JobMetrics, logger logging.Logger) *JobHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &JobHandler{
		svc:       svc,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger.Named("featurize-jobs"),
	}
}

// Handle featurizes every molecule of job and publishes the result.  Item
// failures are reported in the result; an error is returned only when the job
// itself is malformed or the result cannot be published, so the consumer can
// retry or dead-letter it.
func (h *JobHandler) Handle(ctx context.Context, job *mgtypes.FeaturizeJob) error {
	if job == nil {
		return errors.New(errors.ErrCodeValidation, "job is nil")
	}
	if err := job.Validate(); err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid featurization job")
	}
	start := time.Now()

	result, err := h.Run(ctx, job)
	if err != nil {
		h.observe(string(mgtypes.JobFailed), start)
		return err
	}

	if err := h.publisher.Publish(ctx, h.cfg.ResultTopic, EventFeaturizeCompleted, result); err != nil {
		h.observe(string(mgtypes.JobFailed), start)
		return errors.Wrap(err, errors.ErrCodeMessagingError, "failed to publish job result").
			WithDetailf("job_id=%s", job.JobID)
	}

	h.observe(string(result.Status), start)
	h.logger.Info("featurization job completed",
		logging.String("job_id", job.JobID),
		logging.String("status", string(result.Status)),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Run featurizes the molecules of job without publishing anything.  A nil
// MaxLength selects the service default.
func (h *JobHandler) Run(ctx context.Context, job *mgtypes.FeaturizeJob) (*mgtypes.FeaturizeJobResult, error) {
	result := &mgtypes.FeaturizeJobResult{
		JobID: job.JobID,
		Items: make([]mgtypes.JobItemResult, len(job.SMILES)),
	}

	chunk := h.cfg.ChunkSize
	if chunk <= 0 {
		chunk = len(job.SMILES)
	}
	for lo := 0; lo < len(job.SMILES); lo += chunk {
		hi := lo + chunk
		if hi > len(job.SMILES) {
			hi = len(job.SMILES)
		}
		batch, err := h.svc.FeaturizeBatch(ctx, &BatchInput{
			SMILES:    job.SMILES[lo:hi],
			MaxLength: job.MaxLength,
			Pad:       job.Pad,
			Persist:   job.Persist,
		})
		if err != nil {
			return nil, err
		}
		for i, res := range batch.Results {
			item := &result.Items[lo+i]
			item.SMILES = job.SMILES[lo+i]
			if res != nil {
				item.GraphID = res.ID
				result.Succeeded++
			}
		}
		for _, e := range batch.Errors {
			result.Items[lo+e.Index].Error = errorDetail(e.Err)
			result.Failed++
		}
	}

	result.Status = mgtypes.StatusFor(result.Succeeded, result.Failed)
	return result, nil
}

func (h *JobHandler) observe(status string, start time.Time) {
	if h.metrics != nil {
		h.metrics.ObserveJob(status, time.Since(start))
	}
}

func errorDetail(err error) *common.ErrorDetail {
	if appErr, ok := errors.AsAppError(err); ok {
		return &common.ErrorDetail{
			Code:    appErr.Code.String(),
			Message: appErr.Message,
			Detail:  appErr.Detail,
		}
	}
	return &common.ErrorDetail{
		Code:    errors.ErrCodeInternal.String(),
		Message: err.Error(),
	}
}

//Personal.AI order the ending
