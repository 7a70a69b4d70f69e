package broadcast

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"board-sync/domain"
)

const dedupeTimeout = 2 * time.Second

// ChannelName is the topic carrying a user's board changes.
func ChannelName(userID string) string {
	return "board:" + userID + ":changes"
}

// Service holds the channels one session listens on and publishes to.
type Service struct {
	transport Transport
	deduper   Deduper
	scope     string
	logger    *log.Logger

	mu       sync.Mutex
	channels map[string]*channel
}

type channel struct {
	name string
	ch   Channel
}

// Option configures a Service.
type Option func(*Service)

// WithDeduper drops envelopes whose id d has already seen for scope.
func WithDeduper(d Deduper, scope string) Option {
	return func(s *Service) {
		s.deduper = d
		s.scope = scope
	}
}

// WithLogger sets the logger used for dropped messages.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService returns a Service publishing and subscribing over transport.
func NewService(transport Transport, opts ...Option) *Service {
	s := &Service{
		transport: transport,
		logger:    log.StandardLogger(),
		channels:  map[string]*channel{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	ChannelName string

	svc *Service
	ch  *channel
}

// Unsubscribe tears the channel down. It is a no-op once the channel was
// replaced or already removed.
func (sub *Subscription) Unsubscribe(ctx context.Context) error {
	s := sub.svc
	s.mu.Lock()
	cur, ok := s.channels[sub.ChannelName]
	if !ok || cur != sub.ch {
		s.mu.Unlock()
		return nil
	}
	delete(s.channels, sub.ChannelName)
	s.mu.Unlock()
	return cur.ch.Close()
}

// Subscribe listens on the user's channel and calls onEvent for every
// decodable event. A channel already held for the same user is torn down
// first.
func (s *Service) Subscribe(ctx context.Context, userID string, onEvent func(domain.RealtimeEvent)) (*Subscription, error) {
	name := ChannelName(userID)
	s.replace(name, nil)

	ch, err := s.transport.Subscribe(ctx, name, s.handler(name, onEvent))
	if err != nil {
		return nil, err
	}
	c := &channel{name: name, ch: ch}
	s.replace(name, c)
	s.logger.WithField("channel", name).Info("subscribed")
	return &Subscription{ChannelName: name, svc: s, ch: c}, nil
}

// replace installs c under name (removing it when c is nil) and closes the
// channel it displaced.
func (s *Service) replace(name string, c *channel) {
	s.mu.Lock()
	old, ok := s.channels[name]
	if c == nil {
		delete(s.channels, name)
	} else {
		s.channels[name] = c
	}
	s.mu.Unlock()
	if ok && old != c {
		if err := old.ch.Close(); err != nil {
			s.logger.WithError(err).WithField("channel", name).Warn("close replaced channel")
		}
	}
}

func (s *Service) handler(name string, onEvent func(domain.RealtimeEvent)) Handler {
	return func(payload []byte) {
		id, ev, err := Decode(payload)
		if err != nil {
			s.logger.WithError(err).WithField("channel", name).Warn("dropping undecodable message")
			return
		}
		recorded := false
		if s.deduper != nil && id != "" {
			ctx, cancel := context.WithTimeout(context.Background(), dedupeTimeout)
			fresh, err := s.deduper.Add(ctx, s.scope, id)
			cancel()
			if err != nil {
				s.logger.WithError(err).Warn("dedupe lookup failed, delivering")
			} else if !fresh {
				s.logger.WithFields(log.Fields{"channel": name, "event_id": id}).Debug("dropping redelivered event")
				return
			} else {
				recorded = true
			}
		}
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			s.logger.WithFields(log.Fields{"channel": name, "event_id": id, "panic": r}).Error("event handler panicked")
			if recorded {
				ctx, cancel := context.WithTimeout(context.Background(), dedupeTimeout)
				defer cancel()
				if err := s.deduper.Remove(ctx, s.scope, id); err != nil {
					s.logger.WithError(err).Warn("dedupe release failed")
				}
			}
		}()
		onEvent(ev)
	}
}

// UnsubscribeAll tears down every channel. Calling it again is a no-op.
func (s *Service) UnsubscribeAll(ctx context.Context) error {
	s.mu.Lock()
	held := s.channels
	s.channels = map[string]*channel{}
	s.mu.Unlock()

	var errs []error
	for name, c := range held {
		if err := c.ch.Close(); err != nil {
			errs = append(errs, err)
		}
		s.logger.WithField("channel", name).Debug("unsubscribed")
	}
	return errors.Join(errs...)
}

// BroadcastEvent publishes ev on every channel currently held.
func (s *Service) BroadcastEvent(ctx context.Context, ev domain.RealtimeEvent) error {
	s.mu.Lock()
	names := make([]string, 0, len(s.channels))
	for name := range s.channels {
		names = append(names, name)
	}
	s.mu.Unlock()
	if len(names) == 0 {
		return nil
	}

	data, err := Encode(ev)
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if err := s.transport.Publish(ctx, name, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsSubscribed reports whether any channel is held.
func (s *Service) IsSubscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels) > 0
}

// Publish satisfies the store's publisher contract.
func (s *Service) Publish(ctx context.Context, ev domain.RealtimeEvent) error {
	return s.BroadcastEvent(ctx, ev)
}
