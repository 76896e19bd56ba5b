package resultstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goto/salt/log"
	"github.com/spf13/afero"

	"github.com/vigil-dq/vigil/core/job"
	"github.com/vigil-dq/vigil/internal/errors"
)

const resultFileSuffix = ".analysis.result.json"

// FileStore reads result artifacts from a repository directory. An artifact
// is named <job>-<millis><suffix>, the millisecond timestamp is the result's
// creation date.
type FileStore struct {
	l  log.Logger
	fs afero.Fs
}

func NewFileStore(logger log.Logger, fs afero.Fs) *FileStore {
	return &FileStore{l: logger, fs: fs}
}

type resultDocument struct {
	Job        string              `json:"job"`
	Components []componentDocument `json:"components"`
}

type componentDocument struct {
	DescriptorName string              `json:"descriptor_name"`
	InstanceName   string              `json:"instance_name,omitempty"`
	InputColumns   map[string][]string `json:"input_columns,omitempty"`
	Result         any                 `json:"result"`
}

func (s *FileStore) ListResults(_ context.Context, jobName job.Name) ([]*Result, error) {
	entries, err := afero.ReadDir(s.fs, ".")
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.InternalError(EntityResult, "unable to list result artifacts", err)
	}

	prefix := jobName.String() + "-"
	var results []*Result
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, resultFileSuffix) {
			continue
		}

		result, owner, err := s.readResult(name, entry.ModTime())
		if err != nil {
			s.l.Warn("skipping unreadable result artifact", "file", name, "error", err)
			continue
		}
		if owner != jobName.String() {
			continue
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ID() < results[j].ID()
	})
	return results, nil
}

// readResult parses one artifact and reports the job that produced it. The
// filename prefix alone is ambiguous for jobs whose name is a prefix of
// another's, the document's job field decides ownership.
func (s *FileStore) readResult(name string, modTime time.Time) (*Result, string, error) {
	raw, err := afero.ReadFile(s.fs, name)
	if err != nil {
		return nil, "", errors.InternalError(EntityResult, "unable to read result artifact", err)
	}

	var doc resultDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", errors.InvalidArgument(EntityResult, fmt.Sprintf("malformed result artifact %s: %s", name, err))
	}

	components := make([]Component, len(doc.Components))
	for i, c := range doc.Components {
		components[i] = Component{
			Instance: &job.ComponentInstance{
				DescriptorName: c.DescriptorName,
				InstanceName:   c.InstanceName,
				InputColumns:   c.InputColumns,
			},
			Payload: c.Result,
		}
	}

	id := strings.TrimSuffix(name, resultFileSuffix)
	return NewResult(id, creationDateOf(id, modTime), components), doc.Job, nil
}

// creationDateOf extracts the millisecond timestamp suffix of a result id,
// falling back to the file modification time for ids without one.
func creationDateOf(id string, modTime time.Time) time.Time {
	idx := strings.LastIndex(id, "-")
	if idx < 0 {
		return modTime
	}
	millis, err := strconv.ParseInt(id[idx+1:], 10, 64)
	if err != nil {
		return modTime
	}
	return time.UnixMilli(millis).UTC()
}
