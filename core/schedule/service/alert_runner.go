package service

import (
	"context"
	"time"

	"github.com/goto/salt/log"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/metric"
	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/ext/resultstore"
	"github.com/vigil-dq/vigil/internal/errors"
	"github.com/vigil-dq/vigil/internal/telemetry"
)

const metricAlertsRaised = "alerts_raised_total"

// ResultStore reads the artifacts produced by job runs.
type ResultStore interface {
	ListResults(ctx context.Context, jobName job.Name) ([]*resultstore.Result, error)
}

// AlertEvent describes one alert bound exceeded by a finished execution.
type AlertEvent struct {
	JobName     job.Name
	ExecutionID schedule.ExecutionID
	ResultID    string
	Alert       schedule.Alert
	Value       float64
	RaisedAt    time.Time
}

// Notifier delivers raised alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, event AlertEvent) error
}

// AlertRunner evaluates the alerts of a schedule against the result its
// execution produced. It runs as a completion listener, alert evaluation
// never blocks or fails the execution itself, problems degrade to warnings.
type AlertRunner struct {
	l           log.Logger
	results     ResultStore
	resolver    *metric.Resolver
	descriptors metric.DescriptorProvider
	notifier    Notifier

	now func() time.Time
}

func NewAlertRunner(logger log.Logger, results ResultStore, resolver *metric.Resolver,
	descriptors metric.DescriptorProvider, notifier Notifier,
) *AlertRunner {
	return &AlertRunner{
		l:           logger,
		results:     results,
		resolver:    resolver,
		descriptors: descriptors,
		notifier:    notifier,
		now:         time.Now,
	}
}

func (r *AlertRunner) OnExecutionSuccess(execution *schedule.Execution) {
	if execution.Schedule == nil || len(execution.Schedule.Alerts) == 0 {
		return
	}

	ctx := context.Background()
	result, err := r.resultOf(ctx, execution)
	if err != nil {
		r.l.Warn("skipping alert evaluation, unable to read execution result", "execution", execution.ID, "error", err)
		return
	}

	for _, alert := range execution.Schedule.Alerts {
		value, err := r.metricValue(result, alert.Metric)
		if err != nil {
			r.l.Warn("skipping alert, unable to evaluate metric", "execution", execution.ID, "metric", alert.Metric.String(), "error", err)
			continue
		}
		if !alert.Exceeded(value) {
			continue
		}

		event := AlertEvent{
			JobName:     execution.JobName,
			ExecutionID: execution.ID,
			ResultID:    result.ID(),
			Alert:       alert,
			Value:       value,
			RaisedAt:    r.now(),
		}
		r.l.Warn("alert raised", "execution", execution.ID, "metric", alert.Metric.String(), "value", value)
		telemetry.NewCounter(metricAlertsRaised, map[string]string{"job": execution.JobName.String()}).Inc()

		if r.notifier == nil {
			continue
		}
		if err := r.notifier.Notify(ctx, event); err != nil {
			r.l.Warn("unable to deliver alert notification", "execution", execution.ID, "error", err)
		}
	}
}

// resultOf finds the artifact written by the execution, preferring the exact
// result id recorded on success and falling back to the most recent one.
func (r *AlertRunner) resultOf(ctx context.Context, execution *schedule.Execution) (*resultstore.Result, error) {
	results, err := r.results.ListResults(ctx, execution.JobName)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, errors.NotFound(schedule.EntityExecution, "no results stored for "+execution.JobName.String())
	}

	latest := results[0]
	for _, result := range results {
		if result.ID() == execution.ResultID {
			return result, nil
		}
		if result.CreationDate().After(latest.CreationDate()) {
			latest = result
		}
	}
	return latest, nil
}

func (r *AlertRunner) metricValue(result *resultstore.Result, ref metric.Reference) (float64, error) {
	descriptor, err := r.descriptors.MetricDescriptor(ref.DescriptorName, ref.MetricDescriptorName)
	if err != nil {
		return 0, err
	}

	instance, err := r.resolver.ResolveInResult(result.Invocations(), nil, ref)
	if err != nil {
		return 0, err
	}

	payload, err := result.ComponentResult(instance)
	if err != nil {
		return 0, err
	}
	return descriptor.Value(payload, ref.Parameters())
}
