package job

import (
	"context"
	"sort"

	"github.com/vigil-dq/vigil/internal/errors"
)

const EntityJob = "job"

type Name string

func NameFrom(name string) (Name, error) {
	if name == "" {
		return "", errors.InvalidArgument(EntityJob, "job name is empty")
	}

	return Name(name), nil
}

func (n Name) String() string {
	return string(n)
}

// ComponentInstance is one configured analysis component inside a job graph.
// DescriptorName is the kind of component, InstanceName an optional user
// assigned name distinguishing multiple instances of the same kind.
// InputColumns holds the configured input column names per input property.
type ComponentInstance struct {
	DescriptorName string
	InstanceName   string
	InputColumns   map[string][]string
}

// IdentifyingInputColumn returns the single input column of the instance.
// An instance has one only when exactly one input property is configured and
// that property holds exactly one column, otherwise the result is empty.
func (c *ComponentInstance) IdentifyingInputColumn() string {
	if len(c.InputColumns) != 1 {
		return ""
	}
	for _, columns := range c.InputColumns {
		if len(columns) != 1 {
			return ""
		}
		return columns[0]
	}
	return ""
}

// InputColumnNames returns every configured input column in property name
// order, used to compare two instances by the inputs they consume.
func (c *ComponentInstance) InputColumnNames() []string {
	properties := make([]string, 0, len(c.InputColumns))
	for property := range c.InputColumns {
		properties = append(properties, property)
	}
	sort.Strings(properties)

	var names []string
	for _, property := range properties {
		names = append(names, c.InputColumns[property]...)
	}
	return names
}

// Graph is the current component graph of a job, instances kept in their
// definition order.
type Graph struct {
	Job        Name
	Components []*ComponentInstance
}

// GraphReader provides the live component graph of a job. The job definition
// format itself is owned by an external adapter.
type GraphReader interface {
	ReadGraph(ctx context.Context, jobName Name) (*Graph, error)
}
