package timeline

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/metric"
	"github.com/vigil-dq/vigil/internal/errors"
)

const EntityTimeline = "timeline"

// Definition is a persisted chart definition: which job to read results
// from, which metrics to plot and how to frame the axes.
type Definition struct {
	Job     job.Name
	Metrics []metric.Reference
	Chart   ChartOptions
}

func (d *Definition) Validate() error {
	if _, err := job.NameFrom(d.Job.String()); err != nil {
		return err
	}
	for _, ref := range d.Metrics {
		if ref.DescriptorName == "" || ref.MetricDescriptorName == "" {
			return errors.InvalidArgument(EntityTimeline, "metric reference is missing descriptor names")
		}
	}
	return d.Chart.Horizontal.Validate()
}

type ChartOptions struct {
	Horizontal HorizontalAxis
	Vertical   VerticalAxis
}

// HorizontalAxis is the time range filter applied to historical results.
// Zero value means all dates; LatestNumberOfDays selects a rolling window
// ending at evaluation time; BeginDate/EndDate bound the range inclusively,
// either side may be nil for unbounded.
type HorizontalAxis struct {
	LatestNumberOfDays int
	BeginDate          *time.Time
	EndDate            *time.Time
}

func (h HorizontalAxis) Validate() error {
	if err := validation.Validate(h.LatestNumberOfDays, validation.Min(0)); err != nil {
		return errors.InvalidArgument(EntityTimeline, "latest number of days must not be negative")
	}
	if h.BeginDate != nil && h.EndDate != nil && h.BeginDate.After(*h.EndDate) {
		return errors.InvalidArgument(EntityTimeline, "horizontal axis begin date is after end date")
	}
	return nil
}

// InRange reports whether a result created at the given date falls inside
// the axis range evaluated as of now.
func (h HorizontalAxis) InRange(date, now time.Time) bool {
	begin := h.BeginDate
	if h.LatestNumberOfDays > 0 {
		windowStart := now.AddDate(0, 0, -h.LatestNumberOfDays)
		begin = &windowStart
	}

	if begin != nil && date.Before(*begin) {
		return false
	}
	if h.EndDate != nil && date.After(*h.EndDate) {
		return false
	}
	return true
}

type VerticalAxis struct {
	Height       int
	MinimumValue *float64
	MaximumValue *float64
	Logarithmic  bool
}

// DataRow is one plotted point set: the producing result's creation date and
// one value per metric of the owning definition, in matching order. A nil
// value is a metric that could not be resolved against that result.
type DataRow struct {
	Date     time.Time
	ResultID string
	Values   []*float64
}

type Data struct {
	Rows []*DataRow
}

// Identifier names a persisted timeline definition, optionally inside a
// group.
type Identifier struct {
	Name  string
	Group string
}

func IdentifierFrom(name, group string) (Identifier, error) {
	if name == "" {
		return Identifier{}, errors.InvalidArgument(EntityTimeline, "timeline name is empty")
	}
	return Identifier{Name: name, Group: group}, nil
}

func (i Identifier) String() string {
	if i.Group == "" {
		return i.Name
	}
	return i.Group + "/" + i.Name
}

// Group is a named collection of timelines shown together.
type Group struct {
	Name        string
	Description string
}
