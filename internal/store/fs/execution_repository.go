package fs

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/internal/errors"
)

const (
	resultsDir      = "results"
	executionSuffix = ".execution.json"
)

// ExecutionRepository keeps one document per execution under
// results/<id>.execution.json, next to the result artifact the execution
// produces.
type ExecutionRepository struct {
	store documentStore
}

func NewExecutionRepository(fs afero.Fs) *ExecutionRepository {
	return &ExecutionRepository{store: documentStore{fs: fs}}
}

func (r *ExecutionRepository) Save(_ context.Context, execution *schedule.Execution) error {
	return r.store.write(executionPath(execution.ID), schedule.EntityExecution, fromExecutionToDocument(execution))
}

func (r *ExecutionRepository) GetByID(_ context.Context, id schedule.ExecutionID) (*schedule.Execution, error) {
	var doc executionDocument
	if err := r.store.read(executionPath(id), schedule.EntityExecution, &doc); err != nil {
		return nil, err
	}
	return fromDocumentToExecution(&doc)
}

// GetLatest returns the most recently created execution of the job, or
// NotFound when the job never ran.
func (r *ExecutionRepository) GetLatest(ctx context.Context, jobName job.Name) (*schedule.Execution, error) {
	executions, err := r.GetAll(ctx, jobName)
	if err != nil {
		return nil, err
	}
	if len(executions) == 0 {
		return nil, errors.NotFound(schedule.EntityExecution, "no executions stored for "+jobName.String())
	}

	latest := executions[0]
	for _, execution := range executions {
		if execution.CreatedAt.After(latest.CreatedAt) {
			latest = execution
		}
	}
	return latest, nil
}

func (r *ExecutionRepository) GetAll(_ context.Context, jobName job.Name) ([]*schedule.Execution, error) {
	infos, err := r.store.list(resultsDir, schedule.EntityExecution)
	if err != nil {
		return nil, err
	}

	var executions []*schedule.Execution
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), executionSuffix) {
			continue
		}

		var doc executionDocument
		if err := r.store.read(path.Join(resultsDir, info.Name()), schedule.EntityExecution, &doc); err != nil {
			return nil, err
		}
		if doc.Job != jobName.String() {
			continue
		}
		execution, err := fromDocumentToExecution(&doc)
		if err != nil {
			return nil, err
		}
		executions = append(executions, execution)
	}
	sort.Slice(executions, func(i, j int) bool {
		return executions[i].CreatedAt.Before(executions[j].CreatedAt)
	})
	return executions, nil
}

func executionPath(id schedule.ExecutionID) string {
	return path.Join(resultsDir, string(id)+executionSuffix)
}

type executionDocument struct {
	ID        string            `json:"id"`
	Job       string            `json:"job"`
	Trigger   string            `json:"trigger"`
	State     string            `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	BeginTime *time.Time        `json:"begin_time,omitempty"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	LogOutput string            `json:"log_output,omitempty"`
	ResultID  string            `json:"result_id,omitempty"`
	Schedule  *scheduleDocument `json:"schedule,omitempty"`
}

func fromExecutionToDocument(execution *schedule.Execution) *executionDocument {
	doc := &executionDocument{
		ID:        string(execution.ID),
		Job:       execution.JobName.String(),
		Trigger:   execution.Trigger.String(),
		State:     execution.State.String(),
		CreatedAt: execution.CreatedAt,
		BeginTime: execution.BeginTime,
		EndTime:   execution.EndTime,
		LogOutput: execution.LogOutput,
		ResultID:  execution.ResultID,
	}
	if execution.Schedule != nil {
		doc.Schedule = fromScheduleToDocument(execution.Schedule)
	}
	return doc
}

func fromDocumentToExecution(doc *executionDocument) (*schedule.Execution, error) {
	jobName, err := job.NameFrom(doc.Job)
	if err != nil {
		return nil, err
	}
	state, err := schedule.StateFromString(doc.State)
	if err != nil {
		return nil, err
	}

	execution := &schedule.Execution{
		ID:        schedule.ExecutionID(doc.ID),
		JobName:   jobName,
		Trigger:   schedule.TriggerType(doc.Trigger),
		State:     state,
		CreatedAt: doc.CreatedAt,
		BeginTime: doc.BeginTime,
		EndTime:   doc.EndTime,
		LogOutput: doc.LogOutput,
		ResultID:  doc.ResultID,
	}
	if doc.Schedule != nil {
		execution.Schedule, err = fromDocumentToSchedule(doc.Schedule)
		if err != nil {
			return nil, err
		}
	}
	return execution, nil
}
