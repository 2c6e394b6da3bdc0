package tasks

import (
	"sync"

	"github.com/google/uuid"

	"redditanalyzer/pkg/logger"
)

// Store maps task ids to tasks. It is created once and passed by reference to
// the orchestrator and the HTTP handlers.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	log   logger.Logger
}

// NewStore creates an empty store
func NewStore(log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{
		tasks: make(map[string]*Task),
		log:   log.WithField("component", "tasks"),
	}
}

// Create registers a new pending task for username
func (s *Store) Create(username string) *Task {
	id := uuid.NewString()
	task := newTask(id, username, s.log.WithField("task_id", id))

	s.mu.Lock()
	s.tasks[id] = task
	s.mu.Unlock()

	return task
}

// Get returns the live task for id
func (s *Store) Get(id string) (*Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	return task, ok
}

// Lookup returns a snapshot of the task for id
func (s *Store) Lookup(id string) (Snapshot, error) {
	task, ok := s.Get(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return task.Snapshot(), nil
}

// Remove deletes the entry for id and reports whether it existed
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[id]
	delete(s.tasks, id)
	return ok
}

// Len returns the number of tracked tasks
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// CountByStatus returns how many tracked tasks sit in each status
func (s *Store) CountByStatus() map[Status]int {
	s.mu.RLock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	s.mu.RUnlock()

	counts := make(map[Status]int)
	for _, task := range tasks {
		counts[task.Snapshot().Status]++
	}
	return counts
}
