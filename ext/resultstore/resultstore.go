// Package resultstore reads the historical result artifacts accumulated by
// job executions. Results are immutable once written, a result exposes its
// creation date and the component invocations it recorded together with
// their result payloads.
package resultstore

import (
	"fmt"
	"time"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/internal/errors"
)

const EntityResult = "result"

// Component is one recorded component invocation with its result payload.
type Component struct {
	Instance *job.ComponentInstance
	Payload  any
}

type Result struct {
	id         string
	created    time.Time
	components []Component
}

func NewResult(id string, created time.Time, components []Component) *Result {
	return &Result{
		id:         id,
		created:    created,
		components: components,
	}
}

func (r *Result) ID() string {
	return r.id
}

func (r *Result) CreationDate() time.Time {
	return r.created
}

// Invocations returns the recorded component instances in the order the
// result enumerates them.
func (r *Result) Invocations() []*job.ComponentInstance {
	invocations := make([]*job.ComponentInstance, len(r.components))
	for i, c := range r.components {
		invocations[i] = c.Instance
	}
	return invocations
}

// ComponentResult returns the payload recorded for the given invocation
// handle. The handle must come from Invocations of the same result.
func (r *Result) ComponentResult(handle *job.ComponentInstance) (any, error) {
	for _, c := range r.components {
		if c.Instance == handle {
			return c.Payload, nil
		}
	}
	return nil, errors.NotFound(EntityResult, fmt.Sprintf("result %s holds no payload for the component", r.id))
}
