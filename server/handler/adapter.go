package handler

import (
	"time"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/metric"
	"github.com/vigil-dq/vigil/core/schedule"
	"github.com/vigil-dq/vigil/core/timeline"
)

type metricJSON struct {
	DescriptorName       string `json:"descriptor_name"`
	InstanceName         string `json:"instance_name,omitempty"`
	InputColumnName      string `json:"input_column_name,omitempty"`
	MetricDescriptorName string `json:"metric_descriptor_name"`
	ParamQueryString     string `json:"param_query_string,omitempty"`
	ParamColumnName      string `json:"param_column_name,omitempty"`
}

type alertJSON struct {
	Description  string     `json:"description,omitempty"`
	Metric       metricJSON `json:"metric"`
	MinimumValue *float64   `json:"minimum_value,omitempty"`
	MaximumValue *float64   `json:"maximum_value,omitempty"`
}

type scheduleJSON struct {
	Job            string      `json:"job"`
	CronExpression string      `json:"cron_expression,omitempty"`
	Active         bool        `json:"active"`
	DependentOnJob string      `json:"dependent_on_job,omitempty"`
	Alerts         []alertJSON `json:"alerts,omitempty"`
	TriggerType    string      `json:"trigger_type,omitempty"`
}

type executionJSON struct {
	ID        string     `json:"id"`
	Job       string     `json:"job"`
	Trigger   string     `json:"trigger"`
	State     string     `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	BeginTime *time.Time `json:"begin_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	LogOutput string     `json:"log_output,omitempty"`
	ResultID  string     `json:"result_id,omitempty"`
}

type timelineJSON struct {
	Job     string       `json:"job"`
	Metrics []metricJSON `json:"metrics"`
	Chart   struct {
		Horizontal struct {
			LatestNumberOfDays int        `json:"latest_number_of_days,omitempty"`
			BeginDate          *time.Time `json:"begin_date,omitempty"`
			EndDate            *time.Time `json:"end_date,omitempty"`
		} `json:"horizontal"`
		Vertical struct {
			Height       int      `json:"height,omitempty"`
			MinimumValue *float64 `json:"minimum_value,omitempty"`
			MaximumValue *float64 `json:"maximum_value,omitempty"`
			Logarithmic  bool     `json:"logarithmic,omitempty"`
		} `json:"vertical"`
	} `json:"chart"`
}

type dataRowJSON struct {
	Date     time.Time  `json:"date"`
	ResultID string     `json:"result_id"`
	Values   []*float64 `json:"values"`
}

func fromMetric(ref metric.Reference) metricJSON {
	return metricJSON{
		DescriptorName:       ref.DescriptorName,
		InstanceName:         ref.InstanceName,
		InputColumnName:      ref.InputColumnName,
		MetricDescriptorName: ref.MetricDescriptorName,
		ParamQueryString:     ref.ParamQueryString,
		ParamColumnName:      ref.ParamColumnName,
	}
}

func (m metricJSON) toReference() metric.Reference {
	return metric.Reference{
		DescriptorName:       m.DescriptorName,
		InstanceName:         m.InstanceName,
		InputColumnName:      m.InputColumnName,
		MetricDescriptorName: m.MetricDescriptorName,
		ParamQueryString:     m.ParamQueryString,
		ParamColumnName:      m.ParamColumnName,
	}
}

func fromSchedule(definition *schedule.Definition) scheduleJSON {
	out := scheduleJSON{
		Job:            definition.Job.String(),
		CronExpression: definition.CronExpression,
		Active:         definition.Active,
		DependentOnJob: definition.DependentOnJob.String(),
		TriggerType:    definition.TriggerType().String(),
	}
	for _, alert := range definition.Alerts {
		out.Alerts = append(out.Alerts, alertJSON{
			Description:  alert.Description,
			Metric:       fromMetric(alert.Metric),
			MinimumValue: alert.MinimumValue,
			MaximumValue: alert.MaximumValue,
		})
	}
	return out
}

func (s scheduleJSON) toDefinition(jobName job.Name) *schedule.Definition {
	definition := &schedule.Definition{
		Job:            jobName,
		CronExpression: s.CronExpression,
		Active:         s.Active,
		DependentOnJob: job.Name(s.DependentOnJob),
	}
	for _, alert := range s.Alerts {
		definition.Alerts = append(definition.Alerts, schedule.Alert{
			Description:  alert.Description,
			Metric:       alert.Metric.toReference(),
			MinimumValue: alert.MinimumValue,
			MaximumValue: alert.MaximumValue,
		})
	}
	return definition
}

func fromExecution(execution *schedule.Execution) executionJSON {
	return executionJSON{
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
}

func fromTimeline(definition *timeline.Definition) timelineJSON {
	var out timelineJSON
	out.Job = definition.Job.String()
	for _, ref := range definition.Metrics {
		out.Metrics = append(out.Metrics, fromMetric(ref))
	}
	out.Chart.Horizontal.LatestNumberOfDays = definition.Chart.Horizontal.LatestNumberOfDays
	out.Chart.Horizontal.BeginDate = definition.Chart.Horizontal.BeginDate
	out.Chart.Horizontal.EndDate = definition.Chart.Horizontal.EndDate
	out.Chart.Vertical.Height = definition.Chart.Vertical.Height
	out.Chart.Vertical.MinimumValue = definition.Chart.Vertical.MinimumValue
	out.Chart.Vertical.MaximumValue = definition.Chart.Vertical.MaximumValue
	out.Chart.Vertical.Logarithmic = definition.Chart.Vertical.Logarithmic
	return out
}

func (t timelineJSON) toDefinition() *timeline.Definition {
	definition := &timeline.Definition{
		Job: job.Name(t.Job),
		Chart: timeline.ChartOptions{
			Horizontal: timeline.HorizontalAxis{
				LatestNumberOfDays: t.Chart.Horizontal.LatestNumberOfDays,
				BeginDate:          t.Chart.Horizontal.BeginDate,
				EndDate:            t.Chart.Horizontal.EndDate,
			},
			Vertical: timeline.VerticalAxis{
				Height:       t.Chart.Vertical.Height,
				MinimumValue: t.Chart.Vertical.MinimumValue,
				MaximumValue: t.Chart.Vertical.MaximumValue,
				Logarithmic:  t.Chart.Vertical.Logarithmic,
			},
		},
	}
	for _, ref := range t.Metrics {
		definition.Metrics = append(definition.Metrics, ref.toReference())
	}
	return definition
}

func fromTimelineData(data *timeline.Data) map[string]any {
	rows := make([]dataRowJSON, 0, len(data.Rows))
	for _, row := range data.Rows {
		rows = append(rows, dataRowJSON{
			Date:     row.Date,
			ResultID: row.ResultID,
			Values:   row.Values,
		})
	}
	return map[string]any{"rows": rows}
}
