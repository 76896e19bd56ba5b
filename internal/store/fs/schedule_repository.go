package fs

import (
	"context"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/metric"
	"github.com/vigil-dq/vigil/core/schedule"
)

const (
	jobsDir        = "jobs"
	scheduleSuffix = ".schedule.json"
)

// ScheduleRepository keeps one schedule document per job under
// jobs/<job>.schedule.json.
type ScheduleRepository struct {
	store documentStore
}

func NewScheduleRepository(fs afero.Fs) *ScheduleRepository {
	return &ScheduleRepository{store: documentStore{fs: fs}}
}

func (r *ScheduleRepository) Get(_ context.Context, jobName job.Name) (*schedule.Definition, error) {
	var doc scheduleDocument
	if err := r.store.read(schedulePath(jobName), schedule.EntitySchedule, &doc); err != nil {
		return nil, err
	}
	return fromDocumentToSchedule(&doc)
}

func (r *ScheduleRepository) Save(_ context.Context, definition *schedule.Definition) error {
	return r.store.write(schedulePath(definition.Job), schedule.EntitySchedule, fromScheduleToDocument(definition))
}

func (r *ScheduleRepository) Delete(_ context.Context, jobName job.Name) error {
	return r.store.remove(schedulePath(jobName), schedule.EntitySchedule)
}

func (r *ScheduleRepository) All(ctx context.Context) ([]*schedule.Definition, error) {
	infos, err := r.store.list(jobsDir, schedule.EntitySchedule)
	if err != nil {
		return nil, err
	}

	var definitions []*schedule.Definition
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), scheduleSuffix) {
			continue
		}
		jobName := job.Name(strings.TrimSuffix(info.Name(), scheduleSuffix))
		definition, err := r.Get(ctx, jobName)
		if err != nil {
			return nil, err
		}
		definitions = append(definitions, definition)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Job < definitions[j].Job
	})
	return definitions, nil
}

func schedulePath(jobName job.Name) string {
	return path.Join(jobsDir, jobName.String()+scheduleSuffix)
}

type scheduleDocument struct {
	Job            string          `json:"job"`
	CronExpression string          `json:"cron_expression,omitempty"`
	Active         bool            `json:"active"`
	DependentOnJob string          `json:"dependent_on_job,omitempty"`
	Alerts         []alertDocument `json:"alerts,omitempty"`
}

type alertDocument struct {
	Description  string         `json:"description,omitempty"`
	Metric       metricDocument `json:"metric"`
	MinimumValue *float64       `json:"minimum_value,omitempty"`
	MaximumValue *float64       `json:"maximum_value,omitempty"`
}

type metricDocument struct {
	DescriptorName       string `json:"descriptor_name"`
	InstanceName         string `json:"instance_name,omitempty"`
	InputColumnName      string `json:"input_column_name,omitempty"`
	MetricDescriptorName string `json:"metric_descriptor_name"`
	ParamQueryString     string `json:"param_query_string,omitempty"`
	ParamColumnName      string `json:"param_column_name,omitempty"`
}

func fromScheduleToDocument(definition *schedule.Definition) *scheduleDocument {
	doc := &scheduleDocument{
		Job:            definition.Job.String(),
		CronExpression: definition.CronExpression,
		Active:         definition.Active,
		DependentOnJob: definition.DependentOnJob.String(),
	}
	for _, alert := range definition.Alerts {
		doc.Alerts = append(doc.Alerts, alertDocument{
			Description:  alert.Description,
			Metric:       fromReferenceToDocument(alert.Metric),
			MinimumValue: alert.MinimumValue,
			MaximumValue: alert.MaximumValue,
		})
	}
	return doc
}

func fromDocumentToSchedule(doc *scheduleDocument) (*schedule.Definition, error) {
	jobName, err := job.NameFrom(doc.Job)
	if err != nil {
		return nil, err
	}

	definition := &schedule.Definition{
		Job:            jobName,
		CronExpression: doc.CronExpression,
		Active:         doc.Active,
		DependentOnJob: job.Name(doc.DependentOnJob),
	}
	for _, alert := range doc.Alerts {
		definition.Alerts = append(definition.Alerts, schedule.Alert{
			Description:  alert.Description,
			Metric:       fromDocumentToReference(alert.Metric),
			MinimumValue: alert.MinimumValue,
			MaximumValue: alert.MaximumValue,
		})
	}
	return definition, nil
}

func fromReferenceToDocument(ref metric.Reference) metricDocument {
	return metricDocument{
		DescriptorName:       ref.DescriptorName,
		InstanceName:         ref.InstanceName,
		InputColumnName:      ref.InputColumnName,
		MetricDescriptorName: ref.MetricDescriptorName,
		ParamQueryString:     ref.ParamQueryString,
		ParamColumnName:      ref.ParamColumnName,
	}
}

func fromDocumentToReference(doc metricDocument) metric.Reference {
	return metric.Reference{
		DescriptorName:       doc.DescriptorName,
		InstanceName:         doc.InstanceName,
		InputColumnName:      doc.InputColumnName,
		MetricDescriptorName: doc.MetricDescriptorName,
		ParamQueryString:     doc.ParamQueryString,
		ParamColumnName:      doc.ParamColumnName,
	}
}
