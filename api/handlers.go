package api

import (
	"context"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"board-sync/board"
	"board-sync/domain"
)

const maxBodySize = 64 << 10

// Boards hands out the live board of a user.
type Boards interface {
	Board(ctx context.Context, userID string) (*board.Store, error)
}

// Register wires up all board routes on the provided Echo instance.
func Register(e *echo.Echo, boards Boards, auth Authenticator, logger *log.Logger) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	e.Use(requestLogger(logger))
	e.GET("/healthz", healthz)

	g := e.Group("/api", requireUser(auth, false))
	g.GET("/board", getBoard(boards))
	g.POST("/board/refresh", refreshBoard(boards))

	g.POST("/columns", createColumn(boards))
	g.PATCH("/columns/:id", updateColumn(boards))
	g.DELETE("/columns/:id", deleteColumn(boards))
	g.PUT("/columns/order", reorderColumns(boards))

	g.POST("/tasks", createTask(boards))
	g.PATCH("/tasks/:id", updateTask(boards))
	g.DELETE("/tasks/:id", deleteTask(boards))
	g.POST("/tasks/:id/move", moveTask(boards))

	g.PUT("/filters", setFilters(boards))
	g.DELETE("/filters", clearFilters(boards))

	e.GET("/stream", streamBoard(boards, logger), requireUser(auth, true))
}

func healthz(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// view is the board as the UI renders it: tasks already filtered.
func view(st board.State) board.State {
	st.Tasks = st.FilteredTasks()
	return st
}

func statusFor(se *domain.ServiceError) int {
	switch se.Code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func respondError(c echo.Context, err error) error {
	se := domain.AsServiceError(err, domain.CodeUnknown)
	return c.JSON(statusFor(se), se)
}

func decodeBody(c echo.Context, v any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ValidationError("invalid body")
	}
	return nil
}

// withStore resolves the caller's board and runs fn against it.
func withStore(boards Boards, fn func(c echo.Context, store *board.Store) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		store, err := boards.Board(c.Request().Context(), userID(c))
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusServiceUnavailable, err.Error())
		}
		return fn(c, store)
	}
}

// done answers a finished action with the resulting board.
func done(c echo.Context, store *board.Store, status int, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status, view(store.Snapshot()))
}

func hasColumn(store *board.Store, id string) bool {
	for _, col := range store.Columns() {
		if col.ID == id {
			return true
		}
	}
	return false
}

func hasTask(store *board.Store, id string) bool {
	for _, t := range store.Tasks() {
		if t.ID == id {
			return true
		}
	}
	return false
}

func notFound(kind, id string) error {
	return &domain.ServiceError{Code: domain.CodeNotFound, Message: kind + " " + id + " not found", StatusCode: http.StatusNotFound}
}

func getBoard(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		return c.JSON(http.StatusOK, view(store.Snapshot()))
	})
}

func refreshBoard(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		return done(c, store, http.StatusOK, store.FetchBoard(c.Request().Context(), userID(c)))
	})
}

type createColumnRequest struct {
	Name string `json:"name"`
}

func createColumn(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		var req createColumnRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		err := store.CreateColumn(c.Request().Context(), userID(c), req.Name)
		return done(c, store, http.StatusCreated, err)
	})
}

func updateColumn(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		id := c.Param("id")
		if !hasColumn(store, id) {
			return respondError(c, notFound("column", id))
		}
		var upd domain.ColumnUpdate
		if err := decodeBody(c, &upd); err != nil {
			return respondError(c, err)
		}
		return done(c, store, http.StatusOK, store.UpdateColumn(c.Request().Context(), id, upd))
	})
}

func deleteColumn(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		id := c.Param("id")
		if !hasColumn(store, id) {
			return respondError(c, notFound("column", id))
		}
		return done(c, store, http.StatusOK, store.DeleteColumn(c.Request().Context(), id))
	})
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func reorderColumns(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		var req reorderRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		for i, id := range req.IDs {
			if id == "" {
				return respondError(c, domain.ValidationError("empty column id at index %d", i))
			}
			if !hasColumn(store, id) {
				return respondError(c, notFound("column", id))
			}
		}
		err := store.ReorderColumns(c.Request().Context(), userID(c), req.IDs)
		return done(c, store, http.StatusOK, err)
	})
}

type createTaskRequest struct {
	ColumnID    string          `json:"columnId"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Priority    domain.Priority `json:"priority"`
}

func createTask(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		var req createTaskRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if req.Priority == "" {
			req.Priority = domain.PriorityMedium
		}
		in := domain.CreateTaskInput{
			UserID:      userID(c),
			ColumnID:    req.ColumnID,
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
		}
		// invalid input goes to the store so it is recorded and notified
		if domain.ValidateCreateTask(in) == nil && !hasColumn(store, req.ColumnID) {
			return respondError(c, notFound("column", req.ColumnID))
		}
		return done(c, store, http.StatusCreated, store.CreateTask(c.Request().Context(), in))
	})
}

func updateTask(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		id := c.Param("id")
		if !hasTask(store, id) {
			return respondError(c, notFound("task", id))
		}
		var upd domain.TaskUpdate
		if err := decodeBody(c, &upd); err != nil {
			return respondError(c, err)
		}
		if upd.ColumnID != nil && !hasColumn(store, *upd.ColumnID) {
			return respondError(c, notFound("column", *upd.ColumnID))
		}
		return done(c, store, http.StatusOK, store.UpdateTask(c.Request().Context(), id, upd))
	})
}

func deleteTask(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		id := c.Param("id")
		if !hasTask(store, id) {
			return respondError(c, notFound("task", id))
		}
		return done(c, store, http.StatusOK, store.DeleteTask(c.Request().Context(), id))
	})
}

type moveRequest struct {
	ColumnID string `json:"columnId"`
	Position int    `json:"position"`
}

func moveTask(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		id := c.Param("id")
		if !hasTask(store, id) {
			return respondError(c, notFound("task", id))
		}
		var req moveRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if !hasColumn(store, req.ColumnID) {
			return respondError(c, notFound("column", req.ColumnID))
		}
		err := store.MoveTask(c.Request().Context(), id, req.ColumnID, req.Position)
		return done(c, store, http.StatusOK, err)
	})
}

type filtersRequest struct {
	SearchQuery *string          `json:"searchQuery,omitempty"`
	Priority    *domain.Priority `json:"priority,omitempty"`
}

func setFilters(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		var req filtersRequest
		if err := decodeBody(c, &req); err != nil {
			return respondError(c, err)
		}
		if req.Priority != nil {
			if err := store.SetSelectedPriority(*req.Priority); err != nil {
				return respondError(c, err)
			}
		}
		if req.SearchQuery != nil {
			store.SetSearchQuery(*req.SearchQuery)
		}
		return c.JSON(http.StatusOK, view(store.Snapshot()))
	})
}

func clearFilters(boards Boards) echo.HandlerFunc {
	return withStore(boards, func(c echo.Context, store *board.Store) error {
		store.ClearFilters()
		return c.JSON(http.StatusOK, view(store.Snapshot()))
	})
}
