package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-timetable-api/internal/dto"
	appErrors "github.com/noah-isme/uni-timetable-api/pkg/errors"
	"github.com/noah-isme/uni-timetable-api/pkg/jobs"
)

const generationJobType = "schedule.generate"

type scheduleGenerator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerationResult, error)
}

type contextEnqueuer interface {
	EnqueueContext(ctx context.Context, job jobs.Job) error
}

type generationOutcome struct {
	result *dto.GenerationResult
	err    error
}

type generationJob struct {
	ctx   context.Context
	req   dto.GenerateScheduleRequest
	reply chan generationOutcome
}

// GenerationDispatcher funnels generation runs through a single-worker queue
// so two runs never write assignments at the same time.
type GenerationDispatcher struct {
	generator scheduleGenerator
	queue     contextEnqueuer
	logger    *zap.Logger
}

// NewGenerationDispatcher constructs the dispatcher. The queue is attached with
// AttachQueue once it has been built around Handle.
func NewGenerationDispatcher(generator scheduleGenerator, logger *zap.Logger) *GenerationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerationDispatcher{generator: generator, logger: logger}
}

// AttachQueue sets the queue used by Generate.
func (d *GenerationDispatcher) AttachQueue(queue contextEnqueuer) {
	d.queue = queue
}

// Generate enqueues the request and waits for its result. Without a queue the
// run happens inline.
func (d *GenerationDispatcher) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerationResult, error) {
	if d.queue == nil {
		return d.generator.Generate(ctx, req)
	}

	job := &generationJob{ctx: ctx, req: req, reply: make(chan generationOutcome, 1)}
	if err := d.queue.EnqueueContext(ctx, jobs.Job{ID: uuid.NewString(), Type: generationJobType, Payload: job}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue schedule generation")
	}

	select {
	case <-ctx.Done():
		return nil, appErrors.Wrap(ctx.Err(), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation cancelled")
	case outcome := <-job.reply:
		return outcome.result, outcome.err
	}
}

// Handle is the queue handler. Generation errors travel back to the caller and
// are never retried by the queue.
func (d *GenerationDispatcher) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(*generationJob)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	if err := payload.ctx.Err(); err != nil {
		d.logger.Info("skipping abandoned generation", zap.String("job_id", job.ID))
		payload.reply <- generationOutcome{err: err}
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(payload.ctx, cancel)
	defer stop()

	result, err := d.generator.Generate(runCtx, payload.req)
	payload.reply <- generationOutcome{result: result, err: err}
	return nil
}
