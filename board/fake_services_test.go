package board

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"board-sync/domain"
)

// fakeRemote plays both entity services over in-memory maps.
type fakeRemote struct {
	mu      sync.Mutex
	columns map[string]domain.Column
	tasks   map[string]domain.Task
	seq     int
	calls   []string

	errs map[string]error
	// gates block an operation until the channel is closed or receives, or
	// the caller's context ends.
	gates  map[string]chan struct{}
	panics map[string]bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		columns: map[string]domain.Column{},
		tasks:   map[string]domain.Task{},
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
		panics:  map[string]bool{},
	}
}

func (f *fakeRemote) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	gate := f.gates[op]
	doPanic := f.panics[op]
	err := f.errs[op]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if doPanic {
		panic(op + " exploded")
	}
	return err
}

func (f *fakeRemote) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeRemote) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s%d", prefix, f.seq)
}

type fakeColumns struct{ *fakeRemote }

type fakeTasks struct{ *fakeRemote }

func (f fakeColumns) GetAll(ctx context.Context, userID string) ([]domain.Column, error) {
	if err := f.enter(ctx, "columns.get_all"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Column{}
	for _, c := range f.columns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f fakeColumns) Create(ctx context.Context, userID, name string, position int) (domain.Column, error) {
	if err := f.enter(ctx, "columns.create"); err != nil {
		return domain.Column{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := domain.Column{ID: f.nextID("col"), UserID: userID, Name: name, Position: position, CreatedAt: time.Unix(int64(f.seq), 0)}
	f.columns[c.ID] = c
	return c, nil
}

func (f fakeColumns) Update(ctx context.Context, id string, upd domain.ColumnUpdate) (domain.Column, error) {
	if err := f.enter(ctx, "columns.update"); err != nil {
		return domain.Column{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.columns[id]
	if !ok {
		return domain.Column{}, domain.NewServiceError(domain.CodeNotFound, "no column")
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Position != nil {
		c.Position = *upd.Position
	}
	f.columns[id] = c
	return c, nil
}

func (f fakeColumns) Delete(ctx context.Context, id string) error {
	if err := f.enter(ctx, "columns.delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.columns, id)
	for tid, t := range f.tasks {
		if t.ColumnID == id {
			delete(f.tasks, tid)
		}
	}
	return nil
}

func (f fakeColumns) Reorder(ctx context.Context, userID string, orderedIDs []string) ([]domain.Column, error) {
	if err := f.enter(ctx, "columns.reorder"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	for i, id := range orderedIDs {
		if c, ok := f.columns[id]; ok {
			c.Position = i
			f.columns[id] = c
		}
	}
	out := []domain.Column{}
	for _, c := range f.columns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (f fakeTasks) GetAll(ctx context.Context, userID string, filters *domain.TaskFilters) ([]domain.Task, error) {
	if err := f.enter(ctx, "tasks.get_all"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Task{}
	for _, t := range f.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeTasks) Create(ctx context.Context, in domain.CreateTaskInput) (domain.Task, error) {
	if err := f.enter(ctx, "tasks.create"); err != nil {
		return domain.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	max := -1
	for _, t := range f.tasks {
		if t.ColumnID == in.ColumnID && t.Position > max {
			max = t.Position
		}
	}
	t := domain.Task{
		ID:          f.nextID("task"),
		UserID:      in.UserID,
		ColumnID:    in.ColumnID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Position:    max + 1,
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f fakeTasks) Update(ctx context.Context, id string, upd domain.TaskUpdate) (domain.Task, error) {
	if err := f.enter(ctx, "tasks.update"); err != nil {
		return domain.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, domain.NewServiceError(domain.CodeNotFound, "no task")
	}
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = upd.Description
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	f.tasks[id] = t
	return t, nil
}

func (f fakeTasks) Delete(ctx context.Context, id string) error {
	if err := f.enter(ctx, "tasks.delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tasks, id)
	return nil
}

func (f fakeTasks) Move(ctx context.Context, id, targetColumnID string, targetPosition int) (domain.Task, error) {
	if err := f.enter(ctx, "tasks.move"); err != nil {
		return domain.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return domain.Task{}, domain.NewServiceError(domain.CodeNotFound, "no task")
	}
	t.ColumnID = targetColumnID
	t.Position = targetPosition
	f.tasks[id] = t
	return t, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	n.successes = append(n.successes, msg)
	n.mu.Unlock()
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	n.errors = append(n.errors, msg)
	n.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.RealtimeEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev domain.RealtimeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}
