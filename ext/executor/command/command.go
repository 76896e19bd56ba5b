package command

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/goto/salt/log"

	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/internal/errors"
)

// Executor runs a configured external command once per triggered execution.
// The command is expected to perform the job's analysis and write its result
// artifact named after the execution id, the executor only captures its
// combined output as execution log text.
type Executor struct {
	l       log.Logger
	command string
	args    []string
	workDir string
	timeout time.Duration
}

func NewExecutor(logger log.Logger, command string, args []string, workDir string, timeout time.Duration) *Executor {
	return &Executor{
		l:       logger,
		command: command,
		args:    args,
		workDir: workDir,
		timeout: timeout,
	}
}

// Execute runs the command with the job and execution identity exposed in
// its environment. The result artifact is named after the execution id, so
// the id doubles as result id on success.
func (e *Executor) Execute(ctx context.Context, execution *schedule.Execution) (string, string, error) {
	if e.command == "" {
		return "", "", errors.FailedPrecondition(schedule.EntityExecution, "no executor command configured")
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.command, e.args...)
	cmd.Dir = e.workDir
	cmd.Env = append(os.Environ(),
		"VIGIL_JOB="+execution.JobName.String(),
		"VIGIL_EXECUTION_ID="+string(execution.ID),
		"VIGIL_RESULT_ID="+string(execution.ID),
	)

	e.l.Debug("running executor command", "execution", execution.ID, "command", e.command)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", string(output), errors.InternalError(schedule.EntityExecution, "executor command failed for "+execution.JobName.String(), err)
	}
	return string(execution.ID), string(output), nil
}
