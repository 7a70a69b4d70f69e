package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"board-sync/board"
	"board-sync/broadcast"
)

const DefaultRetryDelay = 3 * time.Second

// Session is one live board for one user: a store fed by the user's change
// channel and publishing its own confirmed changes on it.
type Session struct {
	UserID string
	ID     string
	Store  *board.Store

	bc         *broadcast.Service
	retryDelay time.Duration
	logger     *log.Entry

	startOnce sync.Once
	startErr  error
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// Config carries what a Session is built from.
type Config struct {
	Columns    board.ColumnService
	Tasks      board.TaskService
	Transport  broadcast.Transport
	Deduper    broadcast.Deduper
	Notifier   board.Notifier
	RetryDelay time.Duration
	Logger     *log.Logger
}

// New builds an idle session for userID.
func New(userID string, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	id := uuid.NewString()
	opts := []broadcast.Option{broadcast.WithLogger(logger)}
	if cfg.Deduper != nil {
		opts = append(opts, broadcast.WithDeduper(cfg.Deduper, id))
	}
	bc := broadcast.NewService(cfg.Transport, opts...)

	storeOpts := []board.Option{
		board.WithLogger(logger),
		board.WithPublisher(bc),
		board.WithSessionID(id),
		board.WithUserID(userID),
	}
	if cfg.Notifier != nil {
		storeOpts = append(storeOpts, board.WithNotifier(cfg.Notifier))
	}
	return &Session{
		UserID:     userID,
		ID:         id,
		Store:      board.NewStore(cfg.Columns, cfg.Tasks, storeOpts...),
		bc:         bc,
		retryDelay: delay,
		logger:     logger.WithFields(log.Fields{"user_id": userID, "session_id": id}),
		done:       make(chan struct{}),
	}
}

// Start begins listening for changes and loads the board. Only the first
// call does any work; later calls wait for it and return its result. The
// subscription keeps retrying in the background until Close.
func (s *Session) Start(ctx context.Context) error {
	s.startOnce.Do(func() {
		loopCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		go s.subscribeLoop(loopCtx)
		s.startErr = s.Store.FetchBoard(ctx, s.UserID)
	})
	return s.startErr
}

func (s *Session) subscribeLoop(ctx context.Context) {
	defer close(s.done)
	for {
		_, err := s.bc.Subscribe(ctx, s.UserID, s.Store.HandleRealtimeEvent)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.logger.WithError(err).WithField("retry_in", s.retryDelay.String()).Error("subscribe failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.retryDelay):
		}
	}
}

// IsSubscribed reports whether the change channel is live.
func (s *Session) IsSubscribed() bool {
	return s.bc.IsSubscribed()
}

// Close stops retrying, drops the channel and disposes the store.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.startOnce.Do(func() {})
		if s.cancel != nil {
			s.cancel()
			<-s.done
		}
		err = s.bc.UnsubscribeAll(ctx)
		s.Store.Close()
		s.logger.Info("session closed")
	})
	return err
}
