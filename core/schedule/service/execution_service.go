package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goto/salt/log"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/internal/errors"
	"github.com/vigil-dq/vigil/internal/telemetry"
)

const (
	metricExecutionsTriggered  = "executions_triggered_total"
	metricExecutionsSuppressed = "executions_suppressed_total"
	metricExecutionsCompleted  = "executions_completed_total"
	metricExecutionsInFlight   = "executions_in_flight"
)

// Executor performs the actual work of one job run. The work itself is
// external to this core, the tracker only records its lifecycle.
type Executor interface {
	Execute(ctx context.Context, execution *schedule.Execution) (resultID, logOutput string, err error)
}

// CompletionListener is notified after an execution reaches success, used
// for dependency chaining and alert evaluation.
type CompletionListener interface {
	OnExecutionSuccess(execution *schedule.Execution)
}

// ExecutionService tracks the lifecycle of triggered runs. Each run is an
// append-only log persisted on creation and on every state transition.
// Transitions for one job are serialized under a per-job lock, and a trigger
// arriving while the previous run of the same job is still in flight is
// suppressed rather than queued.
type ExecutionService struct {
	l             log.Logger
	scheduleRepo  ScheduleRepository
	executionRepo ExecutionRepository
	executor      Executor

	listeners []CompletionListener

	mu       sync.Mutex
	jobLocks map[job.Name]*sync.Mutex
	inFlight sync.WaitGroup

	now func() time.Time
}

func NewExecutionService(logger log.Logger, scheduleRepo ScheduleRepository, executionRepo ExecutionRepository, executor Executor) *ExecutionService {
	return &ExecutionService{
		l:             logger,
		scheduleRepo:  scheduleRepo,
		executionRepo: executionRepo,
		executor:      executor,
		jobLocks:      map[job.Name]*sync.Mutex{},
		now:           time.Now,
	}
}

// WithClock overrides the evaluation clock, used in tests.
func (s *ExecutionService) WithClock(now func() time.Time) *ExecutionService {
	s.now = now
	return s
}

// AddCompletionListener registers a listener for successful executions.
// Not safe to call once triggering has started.
func (s *ExecutionService) AddCompletionListener(listener CompletionListener) {
	s.listeners = append(s.listeners, listener)
}

// Trigger opens a new execution for the job and runs it in the background.
// The returned record is a snapshot taken at trigger time, later transitions
// are only visible through the repository. When the latest execution of the
// job is still pending or running the trigger is suppressed and the
// in-flight execution returned, so overlapping runs never write conflicting
// result artifacts under the same name.
func (s *ExecutionService) Trigger(ctx context.Context, jobName job.Name, trigger schedule.TriggerType) (*schedule.Execution, error) {
	lock := s.lockFor(jobName)
	lock.Lock()
	defer lock.Unlock()

	latest, err := s.executionRepo.GetLatest(ctx, jobName)
	if err != nil && !errors.IsErrorType(err, errors.ErrNotFound) {
		return nil, err
	}
	if latest != nil && !latest.State.IsTerminal() {
		s.l.Info("suppressing trigger, previous execution still busy", "job", jobName, "execution", latest.ID, "state", latest.State)
		telemetry.NewCounter(metricExecutionsSuppressed, map[string]string{"job": jobName.String()}).Inc()
		return latest, nil
	}

	definition, err := s.scheduleRepo.Get(ctx, jobName)
	if err != nil {
		if !errors.IsErrorType(err, errors.ErrNotFound) {
			return nil, err
		}
		definition = schedule.DefaultSchedule(jobName)
	}

	execution := schedule.NewExecution(definition, trigger, s.now())
	if err := s.executionRepo.Save(ctx, execution); err != nil {
		return nil, errors.AddErrContext(err, schedule.EntityExecution, "unable to store new execution for "+jobName.String())
	}
	telemetry.NewCounter(metricExecutionsTriggered, map[string]string{"job": jobName.String(), "trigger": trigger.String()}).Inc()

	detached := *execution

	s.inFlight.Add(1)
	go s.run(execution)

	return &detached, nil
}

// run drives one execution through running to a terminal state. It is
// detached from the trigger's context, a triggered run outlives its caller.
func (s *ExecutionService) run(execution *schedule.Execution) {
	defer s.inFlight.Done()
	inFlightGauge := telemetry.NewGauge(metricExecutionsInFlight, map[string]string{"job": execution.JobName.String()})
	inFlightGauge.Inc()
	defer inFlightGauge.Dec()
	ctx := context.Background()

	if err := s.transition(ctx, execution, func(e *schedule.Execution) error {
		return e.MarkRunning(s.now())
	}); err != nil {
		s.l.Error("unable to mark execution running", "execution", execution.ID, "error", err)
		return
	}

	resultID, logOutput, execErr := s.executor.Execute(ctx, execution)

	if execErr != nil {
		diagnostic := execErr.Error()
		if logOutput != "" {
			diagnostic = logOutput + "\n" + diagnostic
		}
		if err := s.transition(ctx, execution, func(e *schedule.Execution) error {
			return e.MarkFailure(s.now(), diagnostic)
		}); err != nil {
			s.l.Error("unable to mark execution failed", "execution", execution.ID, "error", err)
		}
		telemetry.NewCounter(metricExecutionsCompleted, map[string]string{"job": execution.JobName.String(), "state": schedule.StateFailed.String()}).Inc()
		s.l.Warn("execution failed", "execution", execution.ID, "error", execErr)
		return
	}

	if err := s.transition(ctx, execution, func(e *schedule.Execution) error {
		return e.MarkSuccess(s.now(), resultID, logOutput)
	}); err != nil {
		s.l.Error("unable to mark execution successful", "execution", execution.ID, "error", err)
		return
	}
	telemetry.NewCounter(metricExecutionsCompleted, map[string]string{"job": execution.JobName.String(), "state": schedule.StateSuccess.String()}).Inc()

	for _, listener := range s.listeners {
		listener.OnExecutionSuccess(execution)
	}
}

// transition applies one state change and persists it under the job lock,
// a concurrent reader observes either the previous or the next complete
// record, never a half-written one.
func (s *ExecutionService) transition(ctx context.Context, execution *schedule.Execution, apply func(*schedule.Execution) error) error {
	lock := s.lockFor(execution.JobName)
	lock.Lock()
	defer lock.Unlock()

	if err := apply(execution); err != nil {
		return err
	}
	return s.executionRepo.Save(ctx, execution)
}

// GetLatestExecution returns the most recently created execution of the
// job, or a synthetic never-run record when the job has no executions.
func (s *ExecutionService) GetLatestExecution(ctx context.Context, jobName job.Name) (*schedule.Execution, error) {
	latest, err := s.executionRepo.GetLatest(ctx, jobName)
	if err != nil {
		if errors.IsErrorType(err, errors.ErrNotFound) {
			return schedule.NeverRun(jobName), nil
		}
		return nil, err
	}
	return latest, nil
}

func (s *ExecutionService) GetAllExecutions(ctx context.Context, jobName job.Name) ([]*schedule.Execution, error) {
	executions, err := s.executionRepo.GetAll(ctx, jobName)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(executions, func(i, j int) bool {
		return executions[i].CreatedAt.Before(executions[j].CreatedAt)
	})
	return executions, nil
}

func (s *ExecutionService) GetExecution(ctx context.Context, id schedule.ExecutionID) (*schedule.Execution, error) {
	return s.executionRepo.GetByID(ctx, id)
}

// Wait blocks until in-flight executions reach a terminal state, used on
// shutdown.
func (s *ExecutionService) Wait() {
	s.inFlight.Wait()
}

func (s *ExecutionService) lockFor(jobName job.Name) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.jobLocks[jobName]
	if !ok {
		lock = &sync.Mutex{}
		s.jobLocks[jobName] = lock
	}
	return lock
}
