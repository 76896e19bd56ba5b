package fs

import (
	"encoding/json"
	"os"
	"path"

	"github.com/spf13/afero"

	"github.com/vigil-dq/vigil/internal/errors"
)

// documentStore reads and writes one JSON document per record on an afero
// filesystem. Storage failures surface as InternalError, the core never
// retries.
type documentStore struct {
	fs afero.Fs
}

func (s documentStore) read(name string, entity string, out any) error {
	raw, err := afero.ReadFile(s.fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound(entity, "no document at "+name)
		}
		return errors.InternalError(entity, "unable to read document "+name, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.InternalError(entity, "malformed document "+name, err)
	}
	return nil
}

func (s documentStore) write(name string, entity string, doc any) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.InternalError(entity, "unable to encode document "+name, err)
	}
	if err := s.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return errors.InternalError(entity, "unable to prepare directory for "+name, err)
	}
	if err := afero.WriteFile(s.fs, name, raw, 0o644); err != nil {
		return errors.InternalError(entity, "unable to write document "+name, err)
	}
	return nil
}

func (s documentStore) remove(name string, entity string) error {
	if err := s.fs.Remove(name); err != nil {
		if os.IsNotExist(err) {
			return errors.NotFound(entity, "no document at "+name)
		}
		return errors.InternalError(entity, "unable to remove document "+name, err)
	}
	return nil
}

func (s documentStore) list(dir string, entity string) ([]os.FileInfo, error) {
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.InternalError(entity, "unable to list documents under "+dir, err)
	}
	return infos, nil
}
