package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/openmeet-team/surveystudio/internal/models"
)

// Scheduler arranges for published surveys to close at their end date
type Scheduler interface {
	ScheduleClose(ctx context.Context, survey *models.Survey) error
	CancelClose(ctx context.Context, survey *models.Survey) error
}

// AsynqScheduler enqueues close tasks in Redis
type AsynqScheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
	now       func() time.Time
}

// NewAsynqScheduler connects a client and inspector to Redis at opt
func NewAsynqScheduler(opt asynq.RedisClientOpt) *AsynqScheduler {
	return &AsynqScheduler{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     Queue,
		now:       time.Now,
	}
}

// ScheduleClose replaces any pending close task for the survey. Surveys
// without an end date, or whose end date has passed, need no task.
func (s *AsynqScheduler) ScheduleClose(ctx context.Context, survey *models.Survey) error {
	end := survey.Settings.EndDate
	if end == nil || !end.After(s.now()) {
		return s.CancelClose(ctx, survey)
	}

	task, err := NewCloseSurveyTask(survey.ID)
	if err != nil {
		return fmt.Errorf("failed to create close task: %w", err)
	}

	taskID := CloseTaskID(survey.ID)
	if err := s.deleteTask(taskID); err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, asynq.ProcessAt(*end), asynq.TaskID(taskID), asynq.Queue(s.queue)); err != nil {
		return fmt.Errorf("failed to enqueue close task: %w", err)
	}

	log.Printf("Scheduled close of survey %s at %s", survey.ID, end.Format(time.RFC3339))
	return nil
}

// CancelClose removes the pending close task, if any
func (s *AsynqScheduler) CancelClose(_ context.Context, survey *models.Survey) error {
	return s.deleteTask(CloseTaskID(survey.ID))
}

func (s *AsynqScheduler) deleteTask(taskID string) error {
	err := s.inspector.DeleteTask(s.queue, taskID)
	if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}
	return nil
}

// Close releases the Redis connections
func (s *AsynqScheduler) Close() error {
	if err := s.inspector.Close(); err != nil {
		return err
	}
	return s.client.Close()
}
