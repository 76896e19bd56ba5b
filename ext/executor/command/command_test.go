package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/goto/salt/log"
	"github.com/stretchr/testify/assert"

	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/ext/executor/command"
	"github.com/vigil-dq/vigil/internal/errors"
)

func TestCommandExecutor(t *testing.T) {
	ctx := context.Background()
	logger := log.NewNoop()
	triggeredAt := time.Date(2021, 6, 3, 12, 0, 0, 0, time.UTC)
	execution := schedule.NewExecution(schedule.DefaultSchedule("countries"), schedule.TriggerManual, triggeredAt)

	t.Run("captures command output and reuses the execution id as result id", func(t *testing.T) {
		executor := command.NewExecutor(logger, "sh", []string{"-c", `echo "analyzing $VIGIL_JOB as $VIGIL_EXECUTION_ID"`}, "", time.Minute)

		resultID, logOutput, err := executor.Execute(ctx, execution)
		assert.NoError(t, err)
		assert.Equal(t, "countries-1622721600000", resultID)
		assert.Equal(t, "analyzing countries as countries-1622721600000\n", logOutput)
	})

	t.Run("keeps partial output when the command fails", func(t *testing.T) {
		executor := command.NewExecutor(logger, "sh", []string{"-c", "echo partial; exit 3"}, "", time.Minute)

		_, logOutput, err := executor.Execute(ctx, execution)
		assert.Error(t, err)
		assert.Equal(t, "partial\n", logOutput)
	})

	t.Run("rejects an empty command configuration", func(t *testing.T) {
		executor := command.NewExecutor(logger, "", nil, "", 0)

		_, _, err := executor.Execute(ctx, execution)
		assert.True(t, errors.IsErrorType(err, errors.ErrFailedPrecondition))
	})
}
