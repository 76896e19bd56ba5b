package metric

import (
	"fmt"

	"github.com/goto/salt/log"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/internal/errors"
	"github.com/vigil-dq/vigil/internal/lib/refine"
)

// Resolver maps a metric reference back onto the component instance that
// produced it. Because job definitions change between runs, matching is done
// through an ordered pipeline of narrowing predicates: a predicate that
// matches nothing is skipped, so a stale instance name or moved input column
// degrades to the best broader match instead of failing the lookup.
type Resolver struct {
	l log.Logger
}

func NewResolver(logger log.Logger) *Resolver {
	return &Resolver{l: logger}
}

// ResolveComponent finds the component instance of the live job graph that
// the reference describes.
func (r *Resolver) ResolveComponent(graph *job.Graph, ref Reference) (*job.ComponentInstance, error) {
	return r.resolve(graph.Components, nil, ref)
}

// ResolveInResult finds the recorded component invocation of a historical
// result that corresponds to the reference. The template, when given, is the
// instance resolved against the live graph and its configuration takes
// precedence over the raw reference for matching.
func (r *Resolver) ResolveInResult(invocations []*job.ComponentInstance, template *job.ComponentInstance, ref Reference) (*job.ComponentInstance, error) {
	return r.resolve(invocations, template, ref)
}

func (r *Resolver) resolve(instances []*job.ComponentInstance, template *job.ComponentInstance, ref Reference) (*job.ComponentInstance, error) {
	descriptorName := ref.DescriptorName
	instanceName := ref.InstanceName
	if template != nil {
		descriptorName = template.DescriptorName
		instanceName = template.InstanceName
	}

	candidates := refine.NewSet(instances).Filter(func(c *job.ComponentInstance) bool {
		return c.DescriptorName == descriptorName
	})
	if candidates.IsEmpty() {
		return nil, errors.NotFound(EntityMetric, fmt.Sprintf("no matching component for %s", ref.String()))
	}

	if instanceName != "" {
		candidates = candidates.Refine(func(c *job.ComponentInstance) bool {
			return c.InstanceName == instanceName
		})
	}

	if template != nil {
		templateInputs := fmt.Sprint(template.InputColumnNames())
		candidates = candidates.Refine(func(c *job.ComponentInstance) bool {
			return fmt.Sprint(c.InputColumnNames()) == templateInputs
		})
	}

	if ref.InputColumnName != "" {
		candidates = candidates.Refine(func(c *job.ComponentInstance) bool {
			identifying := c.IdentifyingInputColumn()
			if identifying == "" {
				return false
			}
			return identifying == ref.InputColumnName
		})
	}

	if candidates.Size() > 1 {
		r.l.Warn("multiple matching components found, selecting the first", "metric", ref.String(), "candidates", candidates.Size())
	}
	return candidates.First(), nil
}
