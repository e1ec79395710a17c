// Package tasks owns the to-do list and its flat-file persistence.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"unihelper/internal/fsstore"
)

// Store keeps the full task list in memory and rewrites the backing file
// after every mutation. Handlers run on separate goroutines, so every
// read-modify-write holds the mutex; the file lock additionally guards
// against a second process pointed at the same file.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	items []Task

	now func() time.Time
}

// NewStore loads the task file at path. A missing file starts empty; a file
// that fails to decode (malformed JSON, bad timestamp) also starts empty --
// corruption discards prior tasks instead of failing startup.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   strings.TrimSpace(path),
		logger: logger,
		now:    time.Now,
	}
	s.load()
	return s
}

func (s *Store) load() {
	var records []taskRecord
	ok, err := fsstore.ReadJSON(s.path, &records)
	if err != nil {
		s.logger.Warn("tasks_load_failed", "path", s.path, "error", err.Error())
		s.items = nil
		return
	}
	if !ok {
		s.items = nil
		return
	}
	items := make([]Task, 0, len(records))
	for _, r := range records {
		item, convErr := taskFromRecord(r)
		if convErr != nil {
			s.logger.Warn("tasks_load_failed", "path", s.path, "error", convErr.Error())
			s.items = nil
			return
		}
		items = append(items, item)
	}
	s.items = items
}

// Add appends a task with the next id and persists the whole list. The id is
// max(existing)+1, so ids are never reused even after tasks are marked done.
func (s *Store) Add(text string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextID := 1
	for _, item := range s.items {
		if item.ID >= nextID {
			nextID = item.ID + 1
		}
	}
	task := Task{
		ID:        nextID,
		Text:      text,
		Done:      false,
		CreatedAt: s.now(),
	}
	s.items = append(s.items, task)
	if err := s.saveLocked(); err != nil {
		s.items = s.items[:len(s.items)-1]
		return Task{}, err
	}
	return task, nil
}

// Pending returns the not-done tasks in insertion order. The user id is
// accepted but not used for filtering: the list is shared by all users.
func (s *Store) Pending(userID int64) []Task {
	_ = userID
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.items))
	for _, item := range s.items {
		if item.Done {
			continue
		}
		out = append(out, item)
	}
	return out
}

// MarkDone flips the task with the given id to done and persists. It reports
// false (and performs no write) when no task has that id.
func (s *Store) MarkDone(id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		wasDone := s.items[i].Done
		s.items[i].Done = true
		if err := s.saveLocked(); err != nil {
			s.items[i].Done = wasDone
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// StorageSizeKB reports the backing file size in kibibytes, 0 when the file
// does not exist yet.
func (s *Store) StorageSizeKB() float64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / 1024
}

func (s *Store) saveLocked() error {
	records := make([]taskRecord, 0, len(s.items))
	for _, item := range s.items {
		records = append(records, recordFromTask(item))
	}

	lockPath, err := fsstore.BuildLockPath(filepath.Join(filepath.Dir(s.path), ".fslocks"), "tasks.main")
	if err != nil {
		return fmt.Errorf("tasks save: %w", err)
	}
	return fsstore.WithLock(context.Background(), lockPath, func() error {
		return fsstore.WriteJSONAtomic(s.path, records, fsstore.FileOptions{
			DirPerm:  0o700,
			FilePerm: 0o600,
		})
	})
}
