package metric

import (
	"fmt"

	"github.com/vigil-dq/vigil/internal/errors"
)

const EntityMetric = "metric"

// Reference points at one metric of interest: the kind of component that
// produces it, optionally which instance and which input column, and the
// metric descriptor to read off the component result. Immutable, specialize
// with the With* copiers.
type Reference struct {
	DescriptorName       string
	InstanceName         string
	InputColumnName      string
	MetricDescriptorName string

	ParamQueryString string
	ParamColumnName  string
}

func ReferenceFrom(descriptorName, metricDescriptorName string) (Reference, error) {
	if descriptorName == "" {
		return Reference{}, errors.InvalidArgument(EntityMetric, "component descriptor name is empty")
	}
	if metricDescriptorName == "" {
		return Reference{}, errors.InvalidArgument(EntityMetric, "metric descriptor name is empty")
	}
	return Reference{
		DescriptorName:       descriptorName,
		MetricDescriptorName: metricDescriptorName,
	}, nil
}

// WithInstance returns a copy narrowed to a named component instance.
func (r Reference) WithInstance(instanceName string) Reference {
	specialized := r
	specialized.InstanceName = instanceName
	return specialized
}

// WithColumn returns a copy specialized for a single input column, used when
// expanding a template reference per column.
func (r Reference) WithColumn(columnName string) Reference {
	specialized := r
	specialized.InputColumnName = columnName
	return specialized
}

func (r Reference) String() string {
	name := r.DescriptorName
	if r.InstanceName != "" {
		name += " (" + r.InstanceName + ")"
	}
	if r.InputColumnName != "" {
		name += " [" + r.InputColumnName + "]"
	}
	return fmt.Sprintf("%s / %s", name, r.MetricDescriptorName)
}

// Parameters carry the optional arguments of a parameterized metric.
type Parameters struct {
	QueryString string
	ColumnName  string
}

func (r Reference) Parameters() Parameters {
	return Parameters{
		QueryString: r.ParamQueryString,
		ColumnName:  r.ParamColumnName,
	}
}

// Descriptor reads one statistic off a component result payload.
type Descriptor interface {
	Name() string
	Value(componentResult any, params Parameters) (float64, error)
	ParameterSuggestions(componentResult any) []string
}

// DescriptorProvider resolves the metric descriptor registered for a
// component kind.
type DescriptorProvider interface {
	MetricDescriptor(componentDescriptorName, metricDescriptorName string) (Descriptor, error)
}
