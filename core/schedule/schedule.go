package schedule

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/metric"
	"github.com/vigil-dq/vigil/internal/errors"
	"github.com/vigil-dq/vigil/internal/lib/cron"
)

const EntitySchedule = "schedule"

type TriggerType string

const (
	TriggerPeriodic  TriggerType = "periodic"
	TriggerDependent TriggerType = "dependent"
	TriggerManual    TriggerType = "manual"
)

func (t TriggerType) String() string {
	return string(t)
}

// Definition is the schedule of one job: when it runs, whether it is active
// and which alerts to evaluate on its results. One record per job name.
type Definition struct {
	Job            job.Name
	CronExpression string
	Active         bool
	DependentOnJob job.Name
	Alerts         []Alert
}

// DefaultSchedule is the schedule of a job without a stored record: inactive
// and manual only.
func DefaultSchedule(jobName job.Name) *Definition {
	return &Definition{Job: jobName}
}

// TriggerType derives how the schedule fires: a cron expression makes it
// periodic, an upstream dependency makes it dependent, neither means manual
// only.
func (d *Definition) TriggerType() TriggerType {
	if d.CronExpression != "" {
		return TriggerPeriodic
	}
	if d.DependentOnJob != "" {
		return TriggerDependent
	}
	return TriggerManual
}

func (d *Definition) Validate() error {
	if _, err := job.NameFrom(d.Job.String()); err != nil {
		return err
	}

	if d.CronExpression != "" {
		if _, err := cron.ParseCronSchedule(d.CronExpression); err != nil {
			return errors.InvalidArgument(EntitySchedule, "malformed cron expression "+d.CronExpression+": "+err.Error())
		}
	}

	if d.DependentOnJob == d.Job {
		return errors.InvalidArgument(EntitySchedule, "schedule for "+d.Job.String()+" depends on its own job")
	}

	for _, alert := range d.Alerts {
		if err := alert.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Alert flags metric values outside the configured bounds after a
// successful execution. Nil bounds are unbounded on that side.
type Alert struct {
	Description  string
	Metric       metric.Reference
	MinimumValue *float64
	MaximumValue *float64
}

func (a Alert) Validate() error {
	if err := validation.ValidateStruct(&a,
		validation.Field(&a.Metric, validation.By(func(any) error {
			if a.Metric.DescriptorName == "" || a.Metric.MetricDescriptorName == "" {
				return errors.New("alert metric reference is missing descriptor names")
			}
			return nil
		})),
	); err != nil {
		return errors.InvalidArgument(EntitySchedule, err.Error())
	}

	if a.MinimumValue != nil && a.MaximumValue != nil && *a.MinimumValue > *a.MaximumValue {
		return errors.InvalidArgument(EntitySchedule, "alert minimum value is above its maximum value")
	}
	return nil
}

// Exceeded reports whether a metric value falls outside the alert bounds.
func (a Alert) Exceeded(value float64) bool {
	if a.MinimumValue != nil && value < *a.MinimumValue {
		return true
	}
	if a.MaximumValue != nil && value > *a.MaximumValue {
		return true
	}
	return false
}
