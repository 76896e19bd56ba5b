package resultstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/goto/salt/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"

	"github.com/vigil-dq/vigil/ext/resultstore"
)

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	logger := log.NewNoop()

	artifact := `{
		"job": "countries",
		"components": [
			{
				"descriptor_name": "String analyzer",
				"instance_name": "names check",
				"input_columns": {"Columns": ["country"]},
				"result": {"metrics": {"Max chars": 14}}
			}
		]
	}`

	t.Run("lists artifacts of the requested job only", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		assert.NoError(t, afero.WriteFile(fs, "countries-1612137600000.analysis.result.json", []byte(artifact), 0o644))
		assert.NoError(t, afero.WriteFile(fs, "sales-1612137600000.analysis.result.json", []byte(artifact), 0o644))
		assert.NoError(t, afero.WriteFile(fs, "countries-notes.txt", []byte("ignored"), 0o644))

		store := resultstore.NewFileStore(logger, fs)
		results, err := store.ListResults(ctx, "countries")
		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, "countries-1612137600000", results[0].ID())
	})

	t.Run("keeps jobs with prefix overlapping names apart", func(t *testing.T) {
		salesArtifact := `{"job": "sales", "components": []}`
		salesEuArtifact := `{"job": "sales-eu", "components": []}`

		fs := afero.NewMemMapFs()
		assert.NoError(t, afero.WriteFile(fs, "sales-1612137600000.analysis.result.json", []byte(salesArtifact), 0o644))
		assert.NoError(t, afero.WriteFile(fs, "sales-eu-1612224000000.analysis.result.json", []byte(salesEuArtifact), 0o644))

		store := resultstore.NewFileStore(logger, fs)

		results, err := store.ListResults(ctx, "sales")
		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, "sales-1612137600000", results[0].ID())

		results, err = store.ListResults(ctx, "sales-eu")
		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, "sales-eu-1612224000000", results[0].ID())
	})

	t.Run("derives the creation date from the artifact name", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		assert.NoError(t, afero.WriteFile(fs, "countries-1612137600000.analysis.result.json", []byte(artifact), 0o644))

		store := resultstore.NewFileStore(logger, fs)
		results, err := store.ListResults(ctx, "countries")
		assert.NoError(t, err)
		assert.Len(t, results, 1)

		expected := time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, expected, results[0].CreationDate())
	})

	t.Run("exposes recorded invocations and payloads", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		assert.NoError(t, afero.WriteFile(fs, "countries-1612137600000.analysis.result.json", []byte(artifact), 0o644))

		store := resultstore.NewFileStore(logger, fs)
		results, err := store.ListResults(ctx, "countries")
		assert.NoError(t, err)

		invocations := results[0].Invocations()
		assert.Len(t, invocations, 1)
		assert.Equal(t, "String analyzer", invocations[0].DescriptorName)
		assert.Equal(t, "names check", invocations[0].InstanceName)

		payload, err := results[0].ComponentResult(invocations[0])
		assert.NoError(t, err)
		assert.Equal(t, map[string]any{"metrics": map[string]any{"Max chars": float64(14)}}, payload)
	})

	t.Run("skips malformed artifacts", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		assert.NoError(t, afero.WriteFile(fs, "countries-1612137600000.analysis.result.json", []byte("{not json"), 0o644))
		assert.NoError(t, afero.WriteFile(fs, "countries-1612224000000.analysis.result.json", []byte(artifact), 0o644))

		store := resultstore.NewFileStore(logger, fs)
		results, err := store.ListResults(ctx, "countries")
		assert.NoError(t, err)
		assert.Len(t, results, 1)
		assert.Equal(t, "countries-1612224000000", results[0].ID())
	})

	t.Run("returns no results for a job without artifacts", func(t *testing.T) {
		store := resultstore.NewFileStore(logger, afero.NewMemMapFs())
		results, err := store.ListResults(ctx, "countries")
		assert.NoError(t, err)
		assert.Empty(t, results)
	})
}
