package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"board-sync/board"
)

const heartbeatInterval = 25 * time.Second

// streamBoard pushes the board view as server-sent events: once on connect
// and again after every change of the user's store.
func streamBoard(boards Boards, logger *log.Logger) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		w := c.Response()
		flusher, ok := w.Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		w.Header().Set(echo.HeaderContentType, "text/event-stream")
		w.Header().Set(echo.HeaderCacheControl, "no-cache")
		w.Header().Set(echo.HeaderConnection, "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		changes, stop := store.Watch()
		defer stop()

		entry := logger.WithField("user_id", userID(c))
		entry.Debug("stream opened")
		defer entry.Debug("stream closed")

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		ctx := c.Request().Context()
		for {
			data, err := sonic.Marshal(view(store.Snapshot()))
			if err != nil {
				entry.WithError(err).Error("encode board")
				return nil
			}
			if err := writeFrame(w, data); err != nil {
				return nil
			}
			flusher.Flush()

			for changed := false; !changed; {
				select {
				case <-ctx.Done():
					return nil
				case _, open := <-changes:
					if !open {
						return nil
					}
					changed = true
				case <-heartbeat.C:
					if _, err := w.Write([]byte(": ping\n\n")); err != nil {
						return nil
					}
					flusher.Flush()
				}
			}
		}
	})
}

func writeFrame(w *echo.Response, data []byte) error {
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n\n"))
	return err
}
