package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/internal/errors"
)

const EntityExecution = "execution"

type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateSuccess State = "success"
	StateFailed  State = "failed"

	// StateUnknown marks the synthetic record of a job that never ran.
	StateUnknown State = "unknown"
)

func StateFromString(state string) (State, error) {
	switch strings.ToLower(state) {
	case string(StatePending):
		return StatePending, nil
	case string(StateRunning):
		return StateRunning, nil
	case string(StateSuccess):
		return StateSuccess, nil
	case string(StateFailed):
		return StateFailed, nil
	case string(StateUnknown):
		return StateUnknown, nil
	default:
		return "", errors.InvalidArgument(EntityExecution, "invalid state for execution "+state)
	}
}

func (s State) String() string {
	return string(s)
}

func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed
}

type ExecutionID string

// NewExecutionID derives the id of an execution from the job name and the
// trigger timestamp, which also names the result artifact the run produces.
func NewExecutionID(jobName job.Name, triggeredAt time.Time) ExecutionID {
	return ExecutionID(fmt.Sprintf("%s-%d", jobName, triggeredAt.UnixMilli()))
}

func (i ExecutionID) String() string {
	return string(i)
}

// JobName extracts the job name the id was derived from.
func (i ExecutionID) JobName() job.Name {
	idx := strings.LastIndex(string(i), "-")
	if idx < 0 {
		return job.Name(i)
	}
	if _, err := strconv.ParseInt(string(i)[idx+1:], 10, 64); err != nil {
		return job.Name(i)
	}
	return job.Name(string(i)[:idx])
}

// Execution is the log of one triggered run. It is created in pending state
// and persisted immediately, every transition updates the stored record so a
// crash leaves a recoverable partial log. Only status, timestamps, log text
// and the result id mutate after creation.
type Execution struct {
	ID       ExecutionID
	JobName  job.Name
	Schedule *Definition
	Trigger  TriggerType
	State    State

	CreatedAt time.Time
	BeginTime *time.Time
	EndTime   *time.Time

	LogOutput string
	ResultID  string
}

// NewExecution opens a pending execution log for a triggered run, the
// schedule is snapshot as it was at trigger time.
func NewExecution(scheduleDef *Definition, trigger TriggerType, triggeredAt time.Time) *Execution {
	return &Execution{
		ID:        NewExecutionID(scheduleDef.Job, triggeredAt),
		JobName:   scheduleDef.Job,
		Schedule:  scheduleDef,
		Trigger:   trigger,
		State:     StatePending,
		CreatedAt: triggeredAt,
	}
}

// NeverRun is the synthetic execution of a job without any recorded run.
func NeverRun(jobName job.Name) *Execution {
	return &Execution{
		JobName: jobName,
		State:   StateUnknown,
	}
}

func (e *Execution) MarkRunning(now time.Time) error {
	if e.State != StatePending {
		return e.illegalTransition(StateRunning)
	}
	e.State = StateRunning
	e.BeginTime = &now
	return nil
}

func (e *Execution) MarkSuccess(now time.Time, resultID, logText string) error {
	if e.State != StateRunning {
		return e.illegalTransition(StateSuccess)
	}
	e.State = StateSuccess
	e.EndTime = &now
	e.ResultID = resultID
	e.LogOutput = logText
	return nil
}

func (e *Execution) MarkFailure(now time.Time, logText string) error {
	if e.State != StateRunning {
		return e.illegalTransition(StateFailed)
	}
	e.State = StateFailed
	e.EndTime = &now
	e.LogOutput = logText
	return nil
}

// illegalTransition is a programming error in the caller, terminal states
// are never left.
func (e *Execution) illegalTransition(target State) error {
	return errors.FailedPrecondition(EntityExecution,
		fmt.Sprintf("illegal state transition %s -> %s for execution %s", e.State, target, e.ID))
}
