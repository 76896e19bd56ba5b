package fs

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/timeline"
	"github.com/vigil-dq/vigil/internal/errors"
)

const (
	timelinesDir   = "timelines"
	timelineSuffix = ".timeline.json"
	groupFile      = "group.json"
)

// TimelineRepository keeps one document per timeline definition under
// timelines/, groups are subdirectories carrying a group.json descriptor.
type TimelineRepository struct {
	store documentStore
}

func NewTimelineRepository(fs afero.Fs) *TimelineRepository {
	return &TimelineRepository{store: documentStore{fs: fs}}
}

func (r *TimelineRepository) GetDefinition(_ context.Context, id timeline.Identifier) (*timeline.Definition, error) {
	var doc timelineDocument
	if err := r.store.read(timelinePath(id), timeline.EntityTimeline, &doc); err != nil {
		return nil, err
	}
	return fromDocumentToTimeline(&doc)
}

func (r *TimelineRepository) Save(_ context.Context, id timeline.Identifier, definition *timeline.Definition) error {
	return r.store.write(timelinePath(id), timeline.EntityTimeline, fromTimelineToDocument(definition))
}

func (r *TimelineRepository) Delete(_ context.Context, id timeline.Identifier) error {
	return r.store.remove(timelinePath(id), timeline.EntityTimeline)
}

func (r *TimelineRepository) List(_ context.Context, group string) ([]timeline.Identifier, error) {
	dir := timelinesDir
	if group != "" {
		dir = path.Join(timelinesDir, group)
	}

	infos, err := r.store.list(dir, timeline.EntityTimeline)
	if err != nil {
		return nil, err
	}

	var identifiers []timeline.Identifier
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), timelineSuffix) {
			continue
		}
		identifiers = append(identifiers, timeline.Identifier{
			Name:  strings.TrimSuffix(info.Name(), timelineSuffix),
			Group: group,
		})
	}
	sort.Slice(identifiers, func(i, j int) bool {
		return identifiers[i].Name < identifiers[j].Name
	})
	return identifiers, nil
}

func (r *TimelineRepository) ListGroups(_ context.Context) ([]timeline.Group, error) {
	infos, err := r.store.list(timelinesDir, timeline.EntityTimeline)
	if err != nil {
		return nil, err
	}

	var groups []timeline.Group
	for _, info := range infos {
		if !info.IsDir() {
			continue
		}

		group := timeline.Group{Name: info.Name()}
		var doc groupDocument
		if err := r.store.read(path.Join(timelinesDir, info.Name(), groupFile), timeline.EntityTimeline, &doc); err == nil {
			group.Description = doc.Description
		}
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
	return groups, nil
}

func (r *TimelineRepository) CreateGroup(_ context.Context, group timeline.Group) error {
	if group.Name == "" {
		return errors.InvalidArgument(timeline.EntityTimeline, "group name is empty")
	}

	name := path.Join(timelinesDir, group.Name, groupFile)
	var existing groupDocument
	if err := r.store.read(name, timeline.EntityTimeline, &existing); err == nil {
		return errors.AlreadyExists(timeline.EntityTimeline, "group "+group.Name+" already exists")
	}
	return r.store.write(name, timeline.EntityTimeline, groupDocument{
		Name:        group.Name,
		Description: group.Description,
	})
}

func timelinePath(id timeline.Identifier) string {
	if id.Group == "" {
		return path.Join(timelinesDir, id.Name+timelineSuffix)
	}
	return path.Join(timelinesDir, id.Group, id.Name+timelineSuffix)
}

type timelineDocument struct {
	Job     string           `json:"job"`
	Metrics []metricDocument `json:"metrics"`
	Chart   chartDocument    `json:"chart"`
}

type chartDocument struct {
	Horizontal horizontalDocument `json:"horizontal"`
	Vertical   verticalDocument   `json:"vertical"`
}

type horizontalDocument struct {
	LatestNumberOfDays int        `json:"latest_number_of_days,omitempty"`
	BeginDate          *time.Time `json:"begin_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
}

type verticalDocument struct {
	Height       int      `json:"height,omitempty"`
	MinimumValue *float64 `json:"minimum_value,omitempty"`
	MaximumValue *float64 `json:"maximum_value,omitempty"`
	Logarithmic  bool     `json:"logarithmic,omitempty"`
}

type groupDocument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func fromTimelineToDocument(definition *timeline.Definition) *timelineDocument {
	doc := &timelineDocument{
		Job: definition.Job.String(),
		Chart: chartDocument{
			Horizontal: horizontalDocument{
				LatestNumberOfDays: definition.Chart.Horizontal.LatestNumberOfDays,
				BeginDate:          definition.Chart.Horizontal.BeginDate,
				EndDate:            definition.Chart.Horizontal.EndDate,
			},
			Vertical: verticalDocument{
				Height:       definition.Chart.Vertical.Height,
				MinimumValue: definition.Chart.Vertical.MinimumValue,
				MaximumValue: definition.Chart.Vertical.MaximumValue,
				Logarithmic:  definition.Chart.Vertical.Logarithmic,
			},
		},
	}
	for _, ref := range definition.Metrics {
		doc.Metrics = append(doc.Metrics, fromReferenceToDocument(ref))
	}
	return doc
}

func fromDocumentToTimeline(doc *timelineDocument) (*timeline.Definition, error) {
	jobName, err := job.NameFrom(doc.Job)
	if err != nil {
		return nil, err
	}

	definition := &timeline.Definition{
		Job: jobName,
		Chart: timeline.ChartOptions{
			Horizontal: timeline.HorizontalAxis{
				LatestNumberOfDays: doc.Chart.Horizontal.LatestNumberOfDays,
				BeginDate:          doc.Chart.Horizontal.BeginDate,
				EndDate:            doc.Chart.Horizontal.EndDate,
			},
			Vertical: timeline.VerticalAxis{
				Height:       doc.Chart.Vertical.Height,
				MinimumValue: doc.Chart.Vertical.MinimumValue,
				MaximumValue: doc.Chart.Vertical.MaximumValue,
				Logarithmic:  doc.Chart.Vertical.Logarithmic,
			},
		},
	}
	for _, ref := range doc.Metrics {
		definition.Metrics = append(definition.Metrics, fromDocumentToReference(ref))
	}
	return definition, nil
}
