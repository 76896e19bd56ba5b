package service

import (
	"context"

	"github.com/goto/salt/log"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/internal/errors"
)

type ScheduleRepository interface {
	Get(ctx context.Context, jobName job.Name) (*schedule.Definition, error)
	Save(ctx context.Context, definition *schedule.Definition) error
	Delete(ctx context.Context, jobName job.Name) error
	All(ctx context.Context) ([]*schedule.Definition, error)
}

type ExecutionRepository interface {
	Save(ctx context.Context, execution *schedule.Execution) error
	GetByID(ctx context.Context, id schedule.ExecutionID) (*schedule.Execution, error)
	GetLatest(ctx context.Context, jobName job.Name) (*schedule.Execution, error)
	GetAll(ctx context.Context, jobName job.Name) ([]*schedule.Execution, error)
}

// ScheduleRegistry keeps live trigger state in sync with stored schedules,
// implemented by the Scheduler.
type ScheduleRegistry interface {
	Register(definition *schedule.Definition) error
	Deregister(jobName job.Name)
}

type ScheduleService struct {
	l        log.Logger
	repo     ScheduleRepository
	registry ScheduleRegistry
}

func NewScheduleService(logger log.Logger, repo ScheduleRepository, registry ScheduleRegistry) *ScheduleService {
	return &ScheduleService{
		l:        logger,
		repo:     repo,
		registry: registry,
	}
}

// GetSchedule returns the stored schedule of a job, or an inactive cron-less
// default when none is stored. Never nil.
func (s *ScheduleService) GetSchedule(ctx context.Context, jobName job.Name) (*schedule.Definition, error) {
	definition, err := s.repo.Get(ctx, jobName)
	if err != nil {
		if errors.IsErrorType(err, errors.ErrNotFound) {
			return schedule.DefaultSchedule(jobName), nil
		}
		return nil, err
	}
	return definition, nil
}

// UpdateSchedule validates, persists and re-registers the schedule in one
// call, so stored state and live trigger state do not diverge. Validation
// rejects before anything is written, a failed write leaves the previous
// registration untouched.
func (s *ScheduleService) UpdateSchedule(ctx context.Context, definition *schedule.Definition) error {
	if err := definition.Validate(); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, definition); err != nil {
		return errors.AddErrContext(err, schedule.EntitySchedule, "unable to store schedule for "+definition.Job.String())
	}

	if err := s.registry.Register(definition); err != nil {
		return errors.AddErrContext(err, schedule.EntitySchedule, "unable to register schedule for "+definition.Job.String())
	}

	s.l.Info("schedule updated", "job", definition.Job, "trigger", definition.TriggerType(), "active", definition.Active)
	return nil
}

// DeleteSchedule removes the stored schedule and its live trigger, called
// when the job itself is deleted.
func (s *ScheduleService) DeleteSchedule(ctx context.Context, jobName job.Name) error {
	s.registry.Deregister(jobName)

	if err := s.repo.Delete(ctx, jobName); err != nil && !errors.IsErrorType(err, errors.ErrNotFound) {
		return err
	}
	return nil
}

func (s *ScheduleService) AllSchedules(ctx context.Context) ([]*schedule.Definition, error) {
	return s.repo.All(ctx)
}
