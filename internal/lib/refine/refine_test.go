package refine_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vigil-dq/vigil/internal/lib/refine"
)

func TestSet(t *testing.T) {
	names := []string{"alpha", "beta", "gamma", "beta2"}

	t.Run("Filter", func(t *testing.T) {
		t.Run("keeps only matching candidates", func(t *testing.T) {
			set := refine.NewSet(names).Filter(func(s string) bool {
				return strings.HasPrefix(s, "beta")
			})
			assert.Equal(t, []string{"beta", "beta2"}, set.All())
		})
		t.Run("can empty the set", func(t *testing.T) {
			set := refine.NewSet(names).Filter(func(string) bool { return false })
			assert.True(t, set.IsEmpty())
		})
	})

	t.Run("Refine", func(t *testing.T) {
		t.Run("narrows to matching candidates", func(t *testing.T) {
			set := refine.NewSet(names).Refine(func(s string) bool {
				return s == "gamma"
			})
			assert.Equal(t, 1, set.Size())
			assert.Equal(t, "gamma", set.First())
		})
		t.Run("is a no-op when nothing matches", func(t *testing.T) {
			set := refine.NewSet(names).Refine(func(s string) bool {
				return s == "does-not-exist"
			})
			assert.Equal(t, names, set.All())
		})
		t.Run("skips refinement of a single candidate set", func(t *testing.T) {
			calls := 0
			set := refine.NewSet([]string{"only"}).Refine(func(string) bool {
				calls++
				return false
			})
			assert.Equal(t, 0, calls)
			assert.Equal(t, "only", set.First())
		})
		t.Run("preserves enumeration order through multiple steps", func(t *testing.T) {
			set := refine.NewSet(names).
				Refine(func(s string) bool { return strings.Contains(s, "a") }).
				Refine(func(s string) bool { return false })
			assert.Equal(t, []string{"alpha", "beta", "gamma", "beta2"}, set.All())
		})
	})
}
