package metric

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/vigil-dq/vigil/internal/errors"
)

// DocumentProvider reads metric values out of generic component result
// documents. A result payload is expected to carry a "metrics" object keyed
// by metric descriptor name, a plain number for simple metrics or a nested
// object for metrics parameterized by string or column.
type DocumentProvider struct{}

func NewDocumentProvider() *DocumentProvider {
	return &DocumentProvider{}
}

func (*DocumentProvider) MetricDescriptor(_, metricDescriptorName string) (Descriptor, error) {
	if metricDescriptorName == "" {
		return nil, errors.InvalidArgument(EntityMetric, "metric descriptor name is empty")
	}
	return &documentDescriptor{name: metricDescriptorName}, nil
}

type documentDescriptor struct {
	name string
}

func (d *documentDescriptor) Name() string {
	return d.name
}

func (d *documentDescriptor) Value(componentResult any, params Parameters) (float64, error) {
	raw, err := d.rawValue(componentResult)
	if err != nil {
		return 0, err
	}

	if nested, ok := raw.(map[string]any); ok {
		key := params.QueryString
		if key == "" {
			key = params.ColumnName
		}
		if key == "" {
			return 0, errors.InvalidArgument(EntityMetric, fmt.Sprintf("metric %s requires a parameter", d.name))
		}
		parameterized, ok := nested[key]
		if !ok {
			return 0, errors.NotFound(EntityMetric, fmt.Sprintf("no value for parameter %s of metric %s", key, d.name))
		}
		raw = parameterized
	}

	return toFloat(d.name, raw)
}

func (d *documentDescriptor) ParameterSuggestions(componentResult any) []string {
	raw, err := d.rawValue(componentResult)
	if err != nil {
		return nil
	}
	nested, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	suggestions := make([]string, 0, len(nested))
	for key := range nested {
		suggestions = append(suggestions, key)
	}
	sort.Strings(suggestions)
	return suggestions
}

func (d *documentDescriptor) rawValue(componentResult any) (any, error) {
	document, ok := componentResult.(map[string]any)
	if !ok {
		return nil, errors.InvalidArgument(EntityMetric, "component result is not a metric document")
	}
	metrics, ok := document["metrics"].(map[string]any)
	if !ok {
		return nil, errors.NotFound(EntityMetric, "component result carries no metrics")
	}
	raw, ok := metrics[d.name]
	if !ok {
		return nil, errors.NotFound(EntityMetric, fmt.Sprintf("no metric named %s in component result", d.name))
	}
	return raw, nil
}

func toFloat(name string, raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, errors.InvalidArgument(EntityMetric, fmt.Sprintf("metric %s holds a non numeric value", name))
	}
}
