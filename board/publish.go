package board

import (
	"context"

	"board-sync/domain"
)

func (s *Store) publish(ctx context.Context, ev domain.RealtimeEvent, err error) {
	if err != nil {
		s.logger.WithError(err).Warn("build realtime event")
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.WithError(err).WithField("type", ev.Type).Warn("publish realtime event")
	}
}

func (s *Store) publishTask(ctx context.Context, typ domain.EventType, t domain.Task) {
	if s.publisher == nil {
		return
	}
	ev, err := domain.NewTaskEvent(typ, t, s.sessionID, s.now())
	s.publish(ctx, ev, err)
}

func (s *Store) publishColumn(ctx context.Context, typ domain.EventType, c domain.Column) {
	if s.publisher == nil {
		return
	}
	ev, err := domain.NewColumnEvent(typ, c, s.sessionID, s.now())
	s.publish(ctx, ev, err)
}

func (s *Store) publishDelete(ctx context.Context, typ domain.EventType, ref domain.EntityRef) {
	if s.publisher == nil {
		return
	}
	ev, err := domain.NewDeleteEvent(typ, ref, s.sessionID, s.now())
	s.publish(ctx, ev, err)
}
