package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/goto/salt/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/core/schedule/service"
	"github.com/vigil-dq/vigil/internal/errors"
)

func TestScheduler(t *testing.T) {
	logger := log.NewNoop()
	upstream := job.Name("customers")
	downstream := job.Name("orders")
	triggeredAt := time.Date(2021, 6, 3, 12, 0, 0, 0, time.UTC)

	successOf := func(jobName job.Name) *schedule.Execution {
		execution := schedule.NewExecution(schedule.DefaultSchedule(jobName), schedule.TriggerPeriodic, triggeredAt)
		return execution
	}

	t.Run("Register", func(t *testing.T) {
		t.Run("accepts quartz style cron expressions", func(t *testing.T) {
			scheduler := service.NewScheduler(logger, new(mockJobTrigger))

			err := scheduler.Register(&schedule.Definition{Job: upstream, CronExpression: "0 0 * * * ?", Active: true})
			assert.NoError(t, err)
		})

		t.Run("rejects expressions the runner cannot parse", func(t *testing.T) {
			scheduler := service.NewScheduler(logger, new(mockJobTrigger))

			err := scheduler.Register(&schedule.Definition{Job: upstream, CronExpression: "every tuesday", Active: true})
			assert.True(t, errors.IsErrorType(err, errors.ErrInvalidArgument))
		})

		t.Run("keeps inactive schedules without live trigger", func(t *testing.T) {
			trigger := new(mockJobTrigger)
			scheduler := service.NewScheduler(logger, trigger)

			err := scheduler.Register(&schedule.Definition{Job: downstream, DependentOnJob: upstream, Active: false})
			assert.NoError(t, err)

			scheduler.OnExecutionSuccess(successOf(upstream))
			trigger.AssertNotCalled(t, "Trigger", mock.Anything, mock.Anything, mock.Anything)
		})
	})

	t.Run("OnExecutionSuccess", func(t *testing.T) {
		t.Run("triggers every schedule depending on the finished job", func(t *testing.T) {
			trigger := new(mockJobTrigger)
			trigger.On("Trigger", mock.Anything, downstream, schedule.TriggerDependent).Return(successOf(downstream), nil)
			trigger.On("Trigger", mock.Anything, job.Name("invoices"), schedule.TriggerDependent).Return(successOf("invoices"), nil)
			defer trigger.AssertExpectations(t)

			scheduler := service.NewScheduler(logger, trigger)
			assert.NoError(t, scheduler.Register(&schedule.Definition{Job: downstream, DependentOnJob: upstream, Active: true}))
			assert.NoError(t, scheduler.Register(&schedule.Definition{Job: "invoices", DependentOnJob: upstream, Active: true}))

			scheduler.OnExecutionSuccess(successOf(upstream))
		})

		t.Run("ignores jobs nothing depends on", func(t *testing.T) {
			trigger := new(mockJobTrigger)
			scheduler := service.NewScheduler(logger, trigger)

			scheduler.OnExecutionSuccess(successOf(upstream))
			trigger.AssertNotCalled(t, "Trigger", mock.Anything, mock.Anything, mock.Anything)
		})

		t.Run("follows a re-registered dependency to its new upstream", func(t *testing.T) {
			trigger := new(mockJobTrigger)
			trigger.On("Trigger", mock.Anything, downstream, schedule.TriggerDependent).Return(successOf(downstream), nil).Once()
			defer trigger.AssertExpectations(t)

			scheduler := service.NewScheduler(logger, trigger)
			assert.NoError(t, scheduler.Register(&schedule.Definition{Job: downstream, DependentOnJob: upstream, Active: true}))
			assert.NoError(t, scheduler.Register(&schedule.Definition{Job: downstream, DependentOnJob: "invoices", Active: true}))

			scheduler.OnExecutionSuccess(successOf(upstream))
			scheduler.OnExecutionSuccess(successOf("invoices"))
		})
	})

	t.Run("Deregister", func(t *testing.T) {
		t.Run("stops dependent triggering for the job", func(t *testing.T) {
			trigger := new(mockJobTrigger)
			scheduler := service.NewScheduler(logger, trigger)
			assert.NoError(t, scheduler.Register(&schedule.Definition{Job: downstream, DependentOnJob: upstream, Active: true}))

			scheduler.Deregister(downstream)

			scheduler.OnExecutionSuccess(successOf(upstream))
			trigger.AssertNotCalled(t, "Trigger", mock.Anything, mock.Anything, mock.Anything)
		})

		t.Run("is idempotent for unknown jobs", func(t *testing.T) {
			scheduler := service.NewScheduler(logger, new(mockJobTrigger))
			scheduler.Deregister(job.Name("never-registered"))
		})
	})

	t.Run("Bootstrap", func(t *testing.T) {
		t.Run("registers every stored schedule", func(t *testing.T) {
			ctx := context.Background()
			repo := new(mockScheduleRepository)
			repo.On("All", ctx).Return([]*schedule.Definition{
				{Job: upstream, CronExpression: "@daily", Active: true},
				{Job: downstream, DependentOnJob: upstream, Active: true},
			}, nil)
			defer repo.AssertExpectations(t)

			trigger := new(mockJobTrigger)
			trigger.On("Trigger", mock.Anything, downstream, schedule.TriggerDependent).Return(successOf(downstream), nil)
			defer trigger.AssertExpectations(t)

			scheduler := service.NewScheduler(logger, trigger)
			assert.NoError(t, scheduler.Bootstrap(ctx, repo))

			scheduler.OnExecutionSuccess(successOf(upstream))
		})

		t.Run("collects registration failures without giving up", func(t *testing.T) {
			ctx := context.Background()
			repo := new(mockScheduleRepository)
			repo.On("All", ctx).Return([]*schedule.Definition{
				{Job: upstream, CronExpression: "bad expression", Active: true},
				{Job: downstream, DependentOnJob: upstream, Active: true},
			}, nil)
			defer repo.AssertExpectations(t)

			trigger := new(mockJobTrigger)
			trigger.On("Trigger", mock.Anything, downstream, schedule.TriggerDependent).Return(successOf(downstream), nil)
			defer trigger.AssertExpectations(t)

			scheduler := service.NewScheduler(logger, trigger)
			assert.Error(t, scheduler.Bootstrap(ctx, repo))

			scheduler.OnExecutionSuccess(successOf(upstream))
		})
	})
}

type mockJobTrigger struct {
	mock.Mock
}

func (m *mockJobTrigger) Trigger(ctx context.Context, jobName job.Name, trigger schedule.TriggerType) (*schedule.Execution, error) {
	args := m.Called(ctx, jobName, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schedule.Execution), args.Error(1)
}
