package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// EventType names an entity lifecycle change broadcast between sessions.
type EventType string

const (
	TaskCreated   EventType = "task_created"
	TaskUpdated   EventType = "task_updated"
	TaskDeleted   EventType = "task_deleted"
	ColumnCreated EventType = "column_created"
	ColumnUpdated EventType = "column_updated"
	ColumnDeleted EventType = "column_deleted"
)

// Valid reports whether t is one of the six lifecycle event types.
func (t EventType) Valid() bool {
	switch t {
	case TaskCreated, TaskUpdated, TaskDeleted, ColumnCreated, ColumnUpdated, ColumnDeleted:
		return true
	}
	return false
}

// EntityRef identifies a deleted entity.
type EntityRef struct {
	ID       string `json:"id"`
	ColumnID string `json:"columnId,omitempty"`
	UserID   string `json:"userId"`
}

// RealtimeEvent is a change notification delivered to every session of a
// user. Payload holds a Task, a Column or an EntityRef depending on Type.
type RealtimeEvent struct {
	Type      EventType       `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	SessionID string          `json:"sessionId"`
}

// NewTaskEvent builds a task_created or task_updated event.
func NewTaskEvent(typ EventType, task Task, sessionID string, ts time.Time) (RealtimeEvent, error) {
	return newEvent(typ, task, sessionID, ts)
}

// NewColumnEvent builds a column_created or column_updated event.
func NewColumnEvent(typ EventType, col Column, sessionID string, ts time.Time) (RealtimeEvent, error) {
	return newEvent(typ, col, sessionID, ts)
}

// NewDeleteEvent builds a task_deleted or column_deleted event.
func NewDeleteEvent(typ EventType, ref EntityRef, sessionID string, ts time.Time) (RealtimeEvent, error) {
	return newEvent(typ, ref, sessionID, ts)
}

func newEvent(typ EventType, payload any, sessionID string, ts time.Time) (RealtimeEvent, error) {
	if !typ.Valid() {
		return RealtimeEvent{}, fmt.Errorf("unknown event type %q", typ)
	}
	data, err := sonic.Marshal(payload)
	if err != nil {
		return RealtimeEvent{}, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return RealtimeEvent{Type: typ, Payload: data, Timestamp: ts.UTC(), SessionID: sessionID}, nil
}

// TaskPayload decodes the payload of a task_created or task_updated event.
func (e RealtimeEvent) TaskPayload() (Task, error) {
	var t Task
	if err := sonic.Unmarshal(e.Payload, &t); err != nil {
		return Task{}, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	if t.ID == "" {
		return Task{}, fmt.Errorf("decode %s payload: missing id", e.Type)
	}
	return t, nil
}

// ColumnPayload decodes the payload of a column_created or column_updated event.
func (e RealtimeEvent) ColumnPayload() (Column, error) {
	var c Column
	if err := sonic.Unmarshal(e.Payload, &c); err != nil {
		return Column{}, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	if c.ID == "" {
		return Column{}, fmt.Errorf("decode %s payload: missing id", e.Type)
	}
	return c, nil
}

// RefPayload decodes the payload of a deletion event.
func (e RealtimeEvent) RefPayload() (EntityRef, error) {
	var r EntityRef
	if err := sonic.Unmarshal(e.Payload, &r); err != nil {
		return EntityRef{}, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	if r.ID == "" {
		return EntityRef{}, fmt.Errorf("decode %s payload: missing id", e.Type)
	}
	return r, nil
}
