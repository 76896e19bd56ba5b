package metric_test

import (
	"testing"

	"github.com/goto/salt/log"
	"github.com/stretchr/testify/assert"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/core/metric"
	"github.com/vigil-dq/vigil/internal/errors"
)

func TestResolver(t *testing.T) {
	logger := log.NewNoop()
	resolver := metric.NewResolver(logger)

	stringAnalyzer := &job.ComponentInstance{
		DescriptorName: "String analyzer",
		InstanceName:   "names check",
		InputColumns:   map[string][]string{"Columns": {"firstname"}},
	}
	numberAnalyzer := &job.ComponentInstance{
		DescriptorName: "Number analyzer",
		InputColumns:   map[string][]string{"Columns": {"age"}},
	}
	graph := &job.Graph{
		Job:        "customers",
		Components: []*job.ComponentInstance{stringAnalyzer, numberAnalyzer},
	}

	t.Run("ResolveComponent", func(t *testing.T) {
		t.Run("resolves by descriptor name", func(t *testing.T) {
			ref, err := metric.ReferenceFrom("Number analyzer", "Null count")
			assert.NoError(t, err)

			resolved, err := resolver.ResolveComponent(graph, ref)
			assert.NoError(t, err)
			assert.Same(t, numberAnalyzer, resolved)
		})
		t.Run("narrows by instance name", func(t *testing.T) {
			other := &job.ComponentInstance{DescriptorName: "String analyzer", InstanceName: "address check"}
			multiGraph := &job.Graph{
				Job:        "customers",
				Components: []*job.ComponentInstance{other, stringAnalyzer},
			}

			ref, err := metric.ReferenceFrom("String analyzer", "Max chars")
			assert.NoError(t, err)

			resolved, err := resolver.ResolveComponent(multiGraph, ref.WithInstance("names check"))
			assert.NoError(t, err)
			assert.Same(t, stringAnalyzer, resolved)
		})
		t.Run("narrows by identifying input column", func(t *testing.T) {
			firstname := &job.ComponentInstance{
				DescriptorName: "String analyzer",
				InputColumns:   map[string][]string{"Columns": {"firstname"}},
			}
			lastname := &job.ComponentInstance{
				DescriptorName: "String analyzer",
				InputColumns:   map[string][]string{"Columns": {"lastname"}},
			}
			multiGraph := &job.Graph{
				Job:        "customers",
				Components: []*job.ComponentInstance{firstname, lastname},
			}

			ref, err := metric.ReferenceFrom("String analyzer", "Max chars")
			assert.NoError(t, err)

			resolved, err := resolver.ResolveComponent(multiGraph, ref.WithColumn("lastname"))
			assert.NoError(t, err)
			assert.Same(t, lastname, resolved)
		})
		t.Run("keeps the broader candidate when instance name does not match", func(t *testing.T) {
			// a stale instance name must degrade to the single instance of
			// the descriptor, never to a failed lookup
			ref, err := metric.ReferenceFrom("String analyzer", "Max chars")
			assert.NoError(t, err)

			resolved, err := resolver.ResolveComponent(graph, ref.WithInstance("no longer exists"))
			assert.NoError(t, err)
			assert.Same(t, stringAnalyzer, resolved)
		})
		t.Run("does not select components without identifying input column", func(t *testing.T) {
			multiInput := &job.ComponentInstance{
				DescriptorName: "String analyzer",
				InputColumns:   map[string][]string{"Columns": {"firstname", "lastname"}},
			}
			singleInput := &job.ComponentInstance{
				DescriptorName: "String analyzer",
				InputColumns:   map[string][]string{"Columns": {"email"}},
			}
			multiGraph := &job.Graph{
				Job:        "customers",
				Components: []*job.ComponentInstance{multiInput, singleInput},
			}

			ref, err := metric.ReferenceFrom("String analyzer", "Max chars")
			assert.NoError(t, err)

			resolved, err := resolver.ResolveComponent(multiGraph, ref.WithColumn("email"))
			assert.NoError(t, err)
			assert.Same(t, singleInput, resolved)
		})
		t.Run("fails when no component of the descriptor exists", func(t *testing.T) {
			ref, err := metric.ReferenceFrom("Pattern finder", "Pattern count")
			assert.NoError(t, err)

			resolved, err := resolver.ResolveComponent(graph, ref)
			assert.Nil(t, resolved)
			assert.True(t, errors.IsErrorType(err, errors.ErrNotFound))
		})
		t.Run("selects the first of ambiguous candidates deterministically", func(t *testing.T) {
			first := &job.ComponentInstance{DescriptorName: "String analyzer"}
			second := &job.ComponentInstance{DescriptorName: "String analyzer"}
			ambiguous := &job.Graph{
				Job:        "customers",
				Components: []*job.ComponentInstance{first, second},
			}

			ref, err := metric.ReferenceFrom("String analyzer", "Max chars")
			assert.NoError(t, err)

			resolved, err := resolver.ResolveComponent(ambiguous, ref)
			assert.NoError(t, err)
			assert.Same(t, first, resolved)
		})
	})

	t.Run("ResolveInResult", func(t *testing.T) {
		t.Run("resolves a renamed component through the descriptor fallback", func(t *testing.T) {
			// job edit renamed "Concatenator" to "Concatenator2" between two
			// runs, the newer result must still resolve by descriptor name
			liveInstance := &job.ComponentInstance{
				DescriptorName: "Concatenator",
				InstanceName:   "Concatenator2",
			}
			recorded := &job.ComponentInstance{
				DescriptorName: "Concatenator",
				InstanceName:   "Concatenator",
			}
			invocations := []*job.ComponentInstance{recorded}

			ref, err := metric.ReferenceFrom("Concatenator", "Row count")
			assert.NoError(t, err)

			resolved, err := resolver.ResolveInResult(invocations, liveInstance, ref.WithInstance("Concatenator2"))
			assert.NoError(t, err)
			assert.Same(t, recorded, resolved)
		})
		t.Run("prefers the invocation with matching inputs", func(t *testing.T) {
			liveInstance := &job.ComponentInstance{
				DescriptorName: "String analyzer",
				InputColumns:   map[string][]string{"Columns": {"email"}},
			}
			sameInputs := &job.ComponentInstance{
				DescriptorName: "String analyzer",
				InputColumns:   map[string][]string{"Columns": {"email"}},
			}
			otherInputs := &job.ComponentInstance{
				DescriptorName: "String analyzer",
				InputColumns:   map[string][]string{"Columns": {"phone"}},
			}
			invocations := []*job.ComponentInstance{otherInputs, sameInputs}

			ref, err := metric.ReferenceFrom("String analyzer", "Max chars")
			assert.NoError(t, err)

			resolved, err := resolver.ResolveInResult(invocations, liveInstance, ref)
			assert.NoError(t, err)
			assert.Same(t, sameInputs, resolved)
		})
		t.Run("fails when the result has no component of the descriptor", func(t *testing.T) {
			invocations := []*job.ComponentInstance{numberAnalyzer}

			ref, err := metric.ReferenceFrom("String analyzer", "Max chars")
			assert.NoError(t, err)

			resolved, err := resolver.ResolveInResult(invocations, stringAnalyzer, ref)
			assert.Nil(t, resolved)
			assert.True(t, errors.IsErrorType(err, errors.ErrNotFound))
		})
	})
}

func TestReference(t *testing.T) {
	t.Run("rejects empty descriptor names", func(t *testing.T) {
		_, err := metric.ReferenceFrom("", "Row count")
		assert.Error(t, err)

		_, err = metric.ReferenceFrom("String analyzer", "")
		assert.Error(t, err)
	})
	t.Run("specializing copies leave the template untouched", func(t *testing.T) {
		template, err := metric.ReferenceFrom("String analyzer", "Max chars")
		assert.NoError(t, err)

		specialized := template.WithColumn("email").WithInstance("names check")
		assert.Equal(t, "email", specialized.InputColumnName)
		assert.Equal(t, "names check", specialized.InstanceName)
		assert.Empty(t, template.InputColumnName)
		assert.Empty(t, template.InstanceName)
	})
}
