package todo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Store owns the live task collection. Every operation materializes the full
// collection from the snapshot, applies its change, and writes the whole
// collection back. A single mutex serializes the read-modify-persist cycle so
// concurrent requests cannot race on id assignment or duplicate checks.
type Store struct {
	mu   sync.Mutex
	snap Snapshot
	log  zerolog.Logger
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

func NewStore(snap Snapshot, opts ...StoreOption) (*Store, error) {
	if snap == nil {
		return nil, errors.New("snapshot is required")
	}

	s := &Store{
		snap: snap,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// List returns the full task sequence. It never fails: an absent or corrupt
// snapshot reads as an empty collection.
func (s *Store) List(ctx context.Context) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Read(ctx)
}

// Get returns the task with the given id.
func (s *Store) Get(ctx context.Context, id int) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.snap.Read(ctx)
	idx := findByID(tasks, id)
	if idx < 0 {
		return Task{}, ErrNotFound
	}
	return tasks[idx], nil
}

// Create appends a new task unless its (title, date) slot is already taken.
func (s *Store) Create(ctx context.Context, item NewTask) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.snap.Read(ctx)
	if _, dup := findDuplicate(tasks, item.Title, item.Date); dup {
		return Task{}, ErrDuplicate
	}

	task := Task{
		ID:    nextID(tasks),
		Title: item.Title,
		Date:  item.Date,
	}
	tasks = append(tasks, task)

	if err := s.persist(ctx, tasks); err != nil {
		return Task{}, err
	}

	s.log.Debug().Int("id", task.ID).Str("title", task.Title).Msg("todo created")
	return task, nil
}

// CreateMany applies the duplicate rule per item against the running
// collection, so later items in a batch see earlier ones. A fully skipped
// batch is still a success with an empty created list; the snapshot is
// written at most once.
func (s *Store) CreateMany(ctx context.Context, items []NewTask) (BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.snap.Read(ctx)
	result := BatchResult{
		Created: []Task{},
		Skipped: []SkippedItem{},
	}

	for _, item := range items {
		if _, dup := findDuplicate(tasks, item.Title, item.Date); dup {
			result.Skipped = append(result.Skipped, SkippedItem{
				Title:  item.Title,
				Date:   item.Date,
				Reason: "Duplicate title + date",
			})
			continue
		}
		task := Task{
			ID:    nextID(tasks),
			Title: item.Title,
			Date:  item.Date,
		}
		tasks = append(tasks, task)
		result.Created = append(result.Created, task)
	}

	if len(result.Created) > 0 {
		if err := s.persist(ctx, tasks); err != nil {
			return BatchResult{}, err
		}
	}

	s.log.Debug().
		Int("created", len(result.Created)).
		Int("skipped", len(result.Skipped)).
		Msg("todo batch create")
	return result, nil
}

// Update merges the patch into the stored task. Provided fields overwrite,
// absent fields are retained, and the merged (title, date) slot must not
// collide with a different task.
func (s *Store) Update(ctx context.Context, id int, patch Patch) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.snap.Read(ctx)
	idx := findByID(tasks, id)
	if idx < 0 {
		return Task{}, ErrNotFound
	}

	merged := tasks[idx]
	if patch.Title != nil {
		merged.Title = *patch.Title
	}
	if patch.Date != nil {
		merged.Date = *patch.Date
	}
	if patch.Done != nil {
		merged.Done = *patch.Done
	}

	for _, t := range tasks {
		if t.ID != merged.ID && sameSlot(t, merged.Title, merged.Date) {
			return Task{}, ErrDuplicate
		}
	}

	tasks[idx] = merged
	if err := s.persist(ctx, tasks); err != nil {
		return Task{}, err
	}

	s.log.Debug().Int("id", id).Msg("todo updated")
	return merged, nil
}

// Delete removes the task with the given id and returns it.
func (s *Store) Delete(ctx context.Context, id int) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.snap.Read(ctx)
	idx := findByID(tasks, id)
	if idx < 0 {
		return Task{}, ErrNotFound
	}

	removed := tasks[idx]
	tasks = append(tasks[:idx], tasks[idx+1:]...)
	if err := s.persist(ctx, tasks); err != nil {
		return Task{}, err
	}

	s.log.Debug().Int("id", id).Msg("todo deleted")
	return removed, nil
}

// DeleteMany removes every task whose id is in ids, in one pass with a
// single write. Matching nothing is a failure and leaves the store untouched.
func (s *Store) DeleteMany(ctx context.Context, ids []int) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	tasks := s.snap.Read(ctx)
	removed := []Task{}
	kept := tasks[:0:0]
	for _, t := range tasks {
		if _, ok := wanted[t.ID]; ok {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}

	if len(removed) == 0 {
		return nil, ErrNothingToDelete
	}

	if err := s.persist(ctx, kept); err != nil {
		return nil, err
	}

	s.log.Debug().Int("removed", len(removed)).Msg("todo batch delete")
	return removed, nil
}

func (s *Store) persist(ctx context.Context, tasks []Task) error {
	if err := s.snap.Write(ctx, tasks); err != nil {
		return fmt.Errorf("persist todos: %w", err)
	}
	return nil
}
