package todo

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Snapshot is the persistence collaborator: one whole-collection read and one
// whole-collection overwrite. Read never fails: any read or parse problem
// yields an empty collection. Implementations count swallowed read failures
// so a persistently empty store is observable.
type Snapshot interface {
	Read(ctx context.Context) []Task
	Write(ctx context.Context, tasks []Task) error
}

// FileSnapshot stores the collection as a pretty-printed JSON array in a
// single file.
type FileSnapshot struct {
	path         string
	log          zerolog.Logger
	readFailures atomic.Int64
}

// FileSnapshotOption customizes a FileSnapshot.
type FileSnapshotOption func(*FileSnapshot)

func WithFileLogger(log zerolog.Logger) FileSnapshotOption {
	return func(f *FileSnapshot) {
		f.log = log
	}
}

func NewFileSnapshot(path string, opts ...FileSnapshotOption) (*FileSnapshot, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("snapshot path is required")
	}

	f := &FileSnapshot{
		path: path,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

func (f *FileSnapshot) Read(ctx context.Context) []Task {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.readFailures.Add(1)
			f.log.Warn().Err(err).Str("path", f.path).Msg("snapshot read failed, treating as empty")
		}
		return []Task{}
	}

	var tasks []Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		f.readFailures.Add(1)
		f.log.Warn().Err(err).Str("path", f.path).Msg("snapshot parse failed, treating as empty")
		return []Task{}
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks
}

func (f *FileSnapshot) Write(ctx context.Context, tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	raw, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, raw, 0o644)
}

// ReadFailures reports how many reads were swallowed into an empty
// collection since this snapshot was created.
func (f *FileSnapshot) ReadFailures() int64 {
	return f.readFailures.Load()
}
