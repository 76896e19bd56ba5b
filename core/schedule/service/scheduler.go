package service

import (
	"context"
	"sync"

	robcron "github.com/robfig/cron/v3"

	"github.com/goto/salt/log"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/internal/errors"
	"github.com/vigil-dq/vigil/internal/lib/cron"
)

// JobTrigger opens a new execution for a job, implemented by the
// ExecutionService.
type JobTrigger interface {
	Trigger(ctx context.Context, jobName job.Name, trigger schedule.TriggerType) (*schedule.Execution, error)
}

// Scheduler keeps one live cron entry per active periodic schedule and fires
// dependent schedules when their upstream job completes successfully. It is
// both the ScheduleRegistry behind schedule updates and a CompletionListener
// on the execution service.
type Scheduler struct {
	l       log.Logger
	trigger JobTrigger
	runner  *robcron.Cron

	mu         sync.Mutex
	entries    map[job.Name]robcron.EntryID
	dependents map[job.Name][]job.Name
}

func NewScheduler(logger log.Logger, trigger JobTrigger) *Scheduler {
	return &Scheduler{
		l:          logger,
		trigger:    trigger,
		runner:     cron.NewRunner(),
		entries:    map[job.Name]robcron.EntryID{},
		dependents: map[job.Name][]job.Name{},
	}
}

// Register replaces the live trigger state of the schedule's job with the
// given definition. An inactive schedule, or one without cron expression and
// upstream dependency, ends up with no live trigger at all.
func (s *Scheduler) Register(definition *schedule.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deregisterLocked(definition.Job)
	if !definition.Active {
		return nil
	}

	jobName := definition.Job
	if definition.CronExpression != "" {
		entryID, err := s.runner.AddFunc(definition.CronExpression, func() {
			s.fire(jobName, schedule.TriggerPeriodic)
		})
		if err != nil {
			return errors.InvalidArgument(schedule.EntitySchedule, "unable to schedule "+jobName.String()+": "+err.Error())
		}
		s.entries[jobName] = entryID
	}

	if definition.DependentOnJob != "" {
		upstream := definition.DependentOnJob
		s.dependents[upstream] = append(s.dependents[upstream], jobName)
	}
	return nil
}

// Deregister removes all live triggers of the job. Idempotent.
func (s *Scheduler) Deregister(jobName job.Name) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deregisterLocked(jobName)
}

func (s *Scheduler) deregisterLocked(jobName job.Name) {
	if entryID, ok := s.entries[jobName]; ok {
		s.runner.Remove(entryID)
		delete(s.entries, jobName)
	}
	for upstream, downstreams := range s.dependents {
		kept := downstreams[:0]
		for _, downstream := range downstreams {
			if downstream != jobName {
				kept = append(kept, downstream)
			}
		}
		if len(kept) == 0 {
			delete(s.dependents, upstream)
		} else {
			s.dependents[upstream] = kept
		}
	}
}

// OnExecutionSuccess fires every schedule that depends on the finished job.
func (s *Scheduler) OnExecutionSuccess(execution *schedule.Execution) {
	s.mu.Lock()
	downstreams := append([]job.Name(nil), s.dependents[execution.JobName]...)
	s.mu.Unlock()

	for _, downstream := range downstreams {
		s.l.Info("triggering dependent job", "upstream", execution.JobName, "job", downstream)
		s.fire(downstream, schedule.TriggerDependent)
	}
}

func (s *Scheduler) fire(jobName job.Name, trigger schedule.TriggerType) {
	if _, err := s.trigger.Trigger(context.Background(), jobName, trigger); err != nil {
		s.l.Error("scheduled trigger failed", "job", jobName, "trigger", trigger, "error", err)
	}
}

// Bootstrap registers every stored schedule, called once at startup before
// Start so live trigger state matches the store.
func (s *Scheduler) Bootstrap(ctx context.Context, repo ScheduleRepository) error {
	definitions, err := repo.All(ctx)
	if err != nil {
		return err
	}

	me := errors.NewMultiError("errors while registering stored schedules")
	for _, definition := range definitions {
		if err := s.Register(definition); err != nil {
			s.l.Error("unable to register stored schedule", "job", definition.Job, "error", err)
			me.Append(err)
		}
	}
	return me.ToErr()
}

// Start begins firing cron entries in a background goroutine.
func (s *Scheduler) Start() {
	s.runner.Start()
}

// Stop halts cron firing and waits for entries already firing to return.
func (s *Scheduler) Stop() {
	<-s.runner.Stop().Done()
}
