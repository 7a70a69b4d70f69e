package board

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"board-sync/domain"
)

// ColumnService is the remote column store.
type ColumnService interface {
	GetAll(ctx context.Context, userID string) ([]domain.Column, error)
	Create(ctx context.Context, userID, name string, position int) (domain.Column, error)
	Update(ctx context.Context, id string, upd domain.ColumnUpdate) (domain.Column, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, userID string, orderedIDs []string) ([]domain.Column, error)
}

// TaskService is the remote task store.
type TaskService interface {
	GetAll(ctx context.Context, userID string, filters *domain.TaskFilters) ([]domain.Task, error)
	Create(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error)
	Update(ctx context.Context, id string, upd domain.TaskUpdate) (domain.Task, error)
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, id, targetColumnID string, targetPosition int) (domain.Task, error)
}

// Publisher announces committed changes to other sessions.
type Publisher interface {
	Publish(ctx context.Context, ev domain.RealtimeEvent) error
}

// ErrClosed is returned by actions on a closed store.
var ErrClosed = domain.NewServiceError(domain.CodeUnknown, "board store is closed")

// Store owns one session's board state. Every state change happens in a
// single critical section; remote calls run without the lock.
type Store struct {
	columns   ColumnService
	tasks     TaskService
	publisher Publisher
	notifier  Notifier
	logger    *log.Logger
	sessionID string
	userID    string
	now       func() time.Time

	mu       sync.Mutex
	state    State
	disposed bool
	watchers map[chan struct{}]struct{}
}

// Option configures a Store.
type Option func(*Store)

func WithPublisher(p Publisher) Option { return func(s *Store) { s.publisher = p } }

func WithNotifier(n Notifier) Option { return func(s *Store) { s.notifier = n } }

func WithSessionID(id string) Option { return func(s *Store) { s.sessionID = id } }

// WithUserID names the board owner, used in deletion events when the
// deleted entity is not held locally.
func WithUserID(id string) Option { return func(s *Store) { s.userID = id } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore returns an empty store backed by the given services.
func NewStore(columns ColumnService, tasks TaskService, opts ...Option) *Store {
	s := &Store{
		columns:  columns,
		tasks:    tasks,
		logger:   log.StandardLogger(),
		now:      time.Now,
		state:    initialState(),
		watchers: map[chan struct{}]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	return s
}

// SessionID identifies this store's session in published events.
func (s *Store) SessionID() string { return s.sessionID }

// update applies fn as one atomic transition. It reports false, leaving the
// state alone, once the store is closed.
func (s *Store) update(op string, fn func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		s.logger.WithField("op", op).Debug("discarding result for closed store")
		return false
	}
	fn(&s.state)
	s.notifyLocked()
	return true
}

func (s *Store) notifyLocked() {
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Watch returns a channel signalled after state changes. Signals coalesce;
// readers call Snapshot for the current state. The channel is closed by the
// returned cancel func or by Close.
func (s *Store) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.watchers[ch]; ok {
				delete(s.watchers, ch)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
}

// Close disposes the store. Remote results arriving later are dropped.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	for ch := range s.watchers {
		delete(s.watchers, ch)
		close(ch)
	}
}

// Snapshot returns a deep copy of the state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) Columns() []domain.Column { return s.Snapshot().Columns }

func (s *Store) Tasks() []domain.Task { return s.Snapshot().Tasks }

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Loading
}

// Err returns the last stored error, or nil.
func (s *Store) Err() *domain.ServiceError { return s.Snapshot().Error }

// FilteredTasks is the task list the view renders.
func (s *Store) FilteredTasks() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FilteredTasks()
}

// TasksInColumn returns the column's tasks in display order.
func (s *Store) TasksInColumn(columnID string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TasksInColumn(s.state.Tasks, columnID)
}

func (s *Store) SetColumns(cols []domain.Column) {
	cp := append([]domain.Column{}, cols...)
	s.update("set_columns", func(st *State) { st.Columns = cp })
}

func (s *Store) SetTasks(tasks []domain.Task) {
	cp := append([]domain.Task{}, tasks...)
	s.update("set_tasks", func(st *State) { st.Tasks = cp })
}

func (s *Store) SetLoading(loading bool) {
	s.update("set_loading", func(st *State) { st.Loading = loading })
}

func (s *Store) SetError(err *domain.ServiceError) {
	s.update("set_error", func(st *State) { st.Error = err })
}

// Reset returns the store to its initial empty state.
func (s *Store) Reset() {
	s.update("reset", func(st *State) { *st = initialState() })
}

func (s *Store) SetSearchQuery(q string) {
	s.update("set_search_query", func(st *State) { st.SearchQuery = q })
}

// SetSelectedPriority selects a priority or PriorityAll.
func (s *Store) SetSelectedPriority(p domain.Priority) error {
	if !p.ValidSelection() {
		return domain.ValidationError("unknown priority %q", p)
	}
	s.update("set_selected_priority", func(st *State) { st.SelectedPriority = p })
	return nil
}

func (s *Store) ClearFilters() {
	s.update("clear_filters", func(st *State) {
		st.SearchQuery = ""
		st.SelectedPriority = domain.PriorityAll
	})
}
