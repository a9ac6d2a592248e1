package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"swarm1.dev/core/swarmerr"
)

// FileStore is the default Store backend: one state.json per run under
// runs/graph/<run_id>/, overwritten in place
// with pretty-printed JSON on every Save.
type FileStore struct {
	baseDir string
}

// NewFileStore constructs a FileStore rooted at baseDir, typically
// "runs/graph".
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (f *FileStore) path(runID string) string {
	return filepath.Join(f.baseDir, runID, "state.json")
}

// Save overwrites the run's state.json with a pretty-printed snapshot. The
// write goes to a temp file in the same directory and is renamed into
// place, so a crash mid-write never leaves a half-written state.json
// behind as the resume point.
func (f *FileStore) Save(run *RunState) error {
	dir := filepath.Join(f.baseDir, run.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return swarmerr.Wrap(swarmerr.FileNotFound, fmt.Sprintf("creating state directory %s", dir), err)
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return swarmerr.Wrap(swarmerr.InvalidSchema, "marshaling run state", err)
	}
	tmp := filepath.Join(dir, "state.json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return swarmerr.Wrap(swarmerr.FileNotFound, "writing run state", err)
	}
	return os.Rename(tmp, f.path(run.RunID))
}

// Load reads and decodes the run's state.json.
func (f *FileStore) Load(runID string) (*RunState, error) {
	data, err := os.ReadFile(f.path(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, swarmerr.Newf(swarmerr.FileNotFound, "no state found for run %s", runID)
		}
		return nil, swarmerr.Wrap(swarmerr.FileNotFound, fmt.Sprintf("reading state for run %s", runID), err)
	}
	var run RunState
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, swarmerr.Wrap(swarmerr.InvalidSchema, "decoding run state", err)
	}
	return &run, nil
}

var _ Store = (*FileStore)(nil)
