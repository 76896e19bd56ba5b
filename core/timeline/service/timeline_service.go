package service

import (
	"context"
	"sort"
	"time"

	"github.com/goto/salt/log"
	"github.com/kushsharma/parallel"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/metric"
	"github.com/vigil-dq/vigil/core/timeline"
	"github.com/vigil-dq/vigil/ext/resultstore"
	"github.com/vigil-dq/vigil/internal/errors"
)

const (
	concurrentTicketPerSec = 50
	concurrentLimit        = 10
)

type ResultStore interface {
	ListResults(ctx context.Context, jobName job.Name) ([]*resultstore.Result, error)
}

type TimelineRepository interface {
	GetDefinition(ctx context.Context, id timeline.Identifier) (*timeline.Definition, error)
	Save(ctx context.Context, id timeline.Identifier, definition *timeline.Definition) error
	Delete(ctx context.Context, id timeline.Identifier) error
	List(ctx context.Context, group string) ([]timeline.Identifier, error)
	ListGroups(ctx context.Context) ([]timeline.Group, error)
	CreateGroup(ctx context.Context, group timeline.Group) error
}

// TimelineService reconstructs metric time series from accumulated result
// artifacts. Computation is read only, it touches immutable results and the
// live job definition and can therefore run concurrently with scheduling.
type TimelineService struct {
	l          log.Logger
	graphs     job.GraphReader
	results    ResultStore
	resolver   *metric.Resolver
	descriptor metric.DescriptorProvider
	repo       TimelineRepository

	now func() time.Time
}

func NewTimelineService(logger log.Logger, graphs job.GraphReader, results ResultStore,
	resolver *metric.Resolver, descriptors metric.DescriptorProvider, repo TimelineRepository,
) *TimelineService {
	return &TimelineService{
		l:          logger,
		graphs:     graphs,
		results:    results,
		resolver:   resolver,
		descriptor: descriptors,
		repo:       repo,
		now:        time.Now,
	}
}

// WithEvaluationTime overrides the clock used for rolling horizontal axis
// ranges.
func (s *TimelineService) WithEvaluationTime(now func() time.Time) *TimelineService {
	s.now = now
	return s
}

// metricTemplate is the once-per-definition resolution of a metric against
// the live job graph, reused for every historical result.
type metricTemplate struct {
	ref        metric.Reference
	descriptor metric.Descriptor
	component  *job.ComponentInstance
}

// GetTimelineData computes the chart rows of a timeline definition: one row
// per historical result inside the horizontal axis range, sorted ascending
// by creation date with ties kept in result enumeration order.
func (s *TimelineService) GetTimelineData(ctx context.Context, definition *timeline.Definition) (*timeline.Data, error) {
	if err := definition.Validate(); err != nil {
		return nil, err
	}

	templates := s.resolveTemplates(ctx, definition)

	results, err := s.results.ListResults(ctx, definition.Job)
	if err != nil {
		return nil, errors.AddErrContext(err, timeline.EntityTimeline, "unable to list results for "+definition.Job.String())
	}

	now := s.now()
	runner := parallel.NewRunner(parallel.WithTicket(concurrentTicketPerSec), parallel.WithLimit(concurrentLimit))
	for _, result := range results {
		runner.Add(func(result *resultstore.Result) func() (interface{}, error) {
			return func() (interface{}, error) {
				if !definition.Chart.Horizontal.InRange(result.CreationDate(), now) {
					return (*timeline.DataRow)(nil), nil
				}
				return s.computeRow(result, templates), nil
			}
		}(result))
	}

	rows := make([]*timeline.DataRow, 0, len(results))
	for _, state := range runner.Run() {
		row, _ := state.Val.(*timeline.DataRow)
		if row != nil {
			rows = append(rows, row)
		}
	}

	sortRowsByDate(rows)
	return &timeline.Data{Rows: rows}, nil
}

// resolveTemplates resolves every metric once against the live job graph.
// A failure is non fatal, rows then resolve against each result alone.
func (s *TimelineService) resolveTemplates(ctx context.Context, definition *timeline.Definition) []metricTemplate {
	graph, err := s.graphs.ReadGraph(ctx, definition.Job)
	if err != nil {
		s.l.Warn("unable to read live job graph, resolving metrics per result only", "job", definition.Job, "error", err)
		graph = nil
	}

	templates := make([]metricTemplate, len(definition.Metrics))
	for i, ref := range definition.Metrics {
		template := metricTemplate{ref: ref}

		descriptor, err := s.descriptor.MetricDescriptor(ref.DescriptorName, ref.MetricDescriptorName)
		if err != nil {
			s.l.Warn("no metric descriptor, values will be unavailable", "metric", ref.String(), "error", err)
		} else {
			template.descriptor = descriptor
		}

		if graph != nil {
			component, err := s.resolver.ResolveComponent(graph, ref)
			if err != nil {
				s.l.Warn("metric does not resolve against the live job graph", "metric", ref.String(), "error", err)
			} else {
				template.component = component
			}
		}
		templates[i] = template
	}
	return templates
}

// computeRow evaluates every metric template against one historical result.
// A metric that fails to resolve degrades to a nil value, not to a dropped
// row.
func (s *TimelineService) computeRow(result *resultstore.Result, templates []metricTemplate) *timeline.DataRow {
	row := &timeline.DataRow{
		Date:     result.CreationDate(),
		ResultID: result.ID(),
		Values:   make([]*float64, len(templates)),
	}

	for i, template := range templates {
		value, err := s.metricValue(result, template)
		if err != nil {
			s.l.Debug("metric not available in result", "metric", template.ref.String(), "result", result.ID(), "error", err)
			continue
		}
		row.Values[i] = &value
	}
	return row
}

func (s *TimelineService) metricValue(result *resultstore.Result, template metricTemplate) (float64, error) {
	if template.descriptor == nil {
		return 0, errors.NotFound(timeline.EntityTimeline, "no descriptor for metric "+template.ref.String())
	}

	invocation, err := s.resolver.ResolveInResult(result.Invocations(), template.component, template.ref)
	if err != nil {
		return 0, err
	}

	payload, err := result.ComponentResult(invocation)
	if err != nil {
		return 0, err
	}
	return template.descriptor.Value(payload, template.ref.Parameters())
}

// GetMetricParameterSuggestions returns the valid string parameter values of
// a parameterized metric, read off the most recent historical result.
func (s *TimelineService) GetMetricParameterSuggestions(ctx context.Context, jobName job.Name, ref metric.Reference) ([]string, error) {
	results, err := s.results.ListResults(ctx, jobName)
	if err != nil {
		return nil, errors.AddErrContext(err, timeline.EntityTimeline, "unable to list results for "+jobName.String())
	}
	if len(results) == 0 {
		return nil, nil
	}

	latest := results[0]
	for _, result := range results[1:] {
		if result.CreationDate().After(latest.CreationDate()) {
			latest = result
		}
	}

	templates := s.resolveTemplates(ctx, &timeline.Definition{Job: jobName, Metrics: []metric.Reference{ref}})
	template := templates[0]
	if template.descriptor == nil {
		return nil, errors.NotFound(timeline.EntityTimeline, "no descriptor for metric "+ref.String())
	}

	invocation, err := s.resolver.ResolveInResult(latest.Invocations(), template.component, ref)
	if err != nil {
		return nil, err
	}
	payload, err := latest.ComponentResult(invocation)
	if err != nil {
		return nil, err
	}
	return template.descriptor.ParameterSuggestions(payload), nil
}

func (s *TimelineService) GetTimeline(ctx context.Context, id timeline.Identifier) (*timeline.Definition, error) {
	return s.repo.GetDefinition(ctx, id)
}

func (s *TimelineService) CreateTimeline(ctx context.Context, id timeline.Identifier, definition *timeline.Definition) error {
	if err := definition.Validate(); err != nil {
		return err
	}
	if _, err := s.repo.GetDefinition(ctx, id); err == nil {
		return errors.AlreadyExists(timeline.EntityTimeline, "timeline already exists: "+id.String())
	} else if !errors.IsErrorType(err, errors.ErrNotFound) {
		return err
	}

	s.l.Info("creating timeline definition", "timeline", id.String(), "job", definition.Job)
	return s.repo.Save(ctx, id, definition)
}

func (s *TimelineService) UpdateTimeline(ctx context.Context, id timeline.Identifier, definition *timeline.Definition) error {
	if err := definition.Validate(); err != nil {
		return err
	}
	if _, err := s.repo.GetDefinition(ctx, id); err != nil {
		return err
	}
	return s.repo.Save(ctx, id, definition)
}

func (s *TimelineService) DeleteTimeline(ctx context.Context, id timeline.Identifier) error {
	return s.repo.Delete(ctx, id)
}

func (s *TimelineService) ListTimelines(ctx context.Context, group string) ([]timeline.Identifier, error) {
	return s.repo.List(ctx, group)
}

func (s *TimelineService) ListGroups(ctx context.Context) ([]timeline.Group, error) {
	return s.repo.ListGroups(ctx)
}

func (s *TimelineService) CreateGroup(ctx context.Context, group timeline.Group) error {
	if group.Name == "" {
		return errors.InvalidArgument(timeline.EntityTimeline, "group name is empty")
	}
	return s.repo.CreateGroup(ctx, group)
}

func sortRowsByDate(rows []*timeline.DataRow) {
	// stable so that equal dates keep result enumeration order
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
}
