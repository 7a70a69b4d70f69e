package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"board-sync/domain"
)

// envelope is the wire form of a RealtimeEvent. ID identifies one publish so
// redeliveries can be recognized.
type envelope struct {
	ID        string           `json:"id"`
	Type      domain.EventType `json:"type"`
	Payload   json.RawMessage  `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	SessionID string           `json:"sessionId"`
}

// Encode wraps ev in an envelope with a fresh id.
func Encode(ev domain.RealtimeEvent) ([]byte, error) {
	if !ev.Type.Valid() {
		return nil, fmt.Errorf("encode event: unknown type %q", ev.Type)
	}
	return sonic.Marshal(envelope{
		ID:        uuid.NewString(),
		Type:      ev.Type,
		Payload:   ev.Payload,
		Timestamp: ev.Timestamp,
		SessionID: ev.SessionID,
	})
}

// Decode parses an envelope and returns its id and event.
func Decode(data []byte) (string, domain.RealtimeEvent, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return "", domain.RealtimeEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if !env.Type.Valid() {
		return "", domain.RealtimeEvent{}, fmt.Errorf("decode event: unknown type %q", env.Type)
	}
	if len(env.Payload) == 0 {
		return "", domain.RealtimeEvent{}, fmt.Errorf("decode event: empty payload")
	}
	return env.ID, domain.RealtimeEvent{
		Type:      env.Type,
		Payload:   env.Payload,
		Timestamp: env.Timestamp,
		SessionID: env.SessionID,
	}, nil
}
