package repository

import (
	"context"
	"encoding/json"
	"os"
	"path"

	"github.com/spf13/afero"

	"github.com/goto/salt/log"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/internal/errors"
)

const analysisSuffix = ".analysis.json"

// GraphReader reads job definitions from jobs/<job>.analysis.json documents.
// The documents are written by the analysis tooling, this reader only cares
// about the component invocations and their input columns.
type GraphReader struct {
	l  log.Logger
	fs afero.Fs
}

func NewGraphReader(logger log.Logger, fs afero.Fs) *GraphReader {
	return &GraphReader{l: logger, fs: fs}
}

type graphDocument struct {
	Job        string              `json:"job"`
	Components []componentDocument `json:"components"`
}

type componentDocument struct {
	DescriptorName string              `json:"descriptor_name"`
	InstanceName   string              `json:"instance_name,omitempty"`
	InputColumns   map[string][]string `json:"input_columns,omitempty"`
}

func (r *GraphReader) ReadGraph(_ context.Context, jobName job.Name) (*job.Graph, error) {
	name := path.Join("jobs", jobName.String()+analysisSuffix)

	raw, err := afero.ReadFile(r.fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(job.EntityJob, "no job definition at "+name)
		}
		return nil, errors.InternalError(job.EntityJob, "unable to read job definition "+name, err)
	}

	var doc graphDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.InternalError(job.EntityJob, "malformed job definition "+name, err)
	}

	graph := &job.Graph{Job: jobName}
	for _, component := range doc.Components {
		graph.Components = append(graph.Components, &job.ComponentInstance{
			DescriptorName: component.DescriptorName,
			InstanceName:   component.InstanceName,
			InputColumns:   component.InputColumns,
		})
	}
	return graph, nil
}
