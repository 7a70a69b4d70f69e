package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"board-sync/service"
)

const (
	edmInt32    = "Edm.Int32"
	edmDateTime = "Edm.DateTime"
)

// tableClient is the subset of *aztables.Client used here.
type tableClient interface {
	NewListEntitiesPager(opts *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
	AddEntity(ctx context.Context, entity []byte, opts *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, opts *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	GetEntity(ctx context.Context, pk, rk string, opts *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	DeleteEntity(ctx context.Context, pk, rk string, opts *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	CreateTable(ctx context.Context, opts *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
}

// Tables stores columns and tasks in Azure Table Storage, one partition per
// user.
type Tables struct {
	columns tableClient
	tasks   tableClient
	now     func() time.Time
}

// NewTables connects to the table service described by connStr.
func NewTables(connStr, columnsTable, tasksTable string) (*Tables, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return newTables(svc.NewClient(columnsTable), svc.NewClient(tasksTable)), nil
}

func newTables(columns, tasks tableClient) *Tables {
	return &Tables{columns: columns, tasks: tasks, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureTables creates both tables, leaving existing ones alone.
func (t *Tables) EnsureTables(ctx context.Context) error {
	for _, c := range []tableClient{t.columns, t.tasks} {
		if _, err := c.CreateTable(ctx, nil); err != nil {
			var respErr *azcore.ResponseError
			if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
				return err
			}
		}
	}
	return nil
}

// Close is a no-op; the table clients hold no resources.
func (t *Tables) Close() error { return nil }

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type columnEntity struct {
	entityKeys
	Name          string    `json:"Name"`
	Position      int       `json:"Position"`
	PositionType  string    `json:"Position@odata.type,omitempty"`
	CreatedAt     time.Time `json:"CreatedAt"`
	CreatedAtType string    `json:"CreatedAt@odata.type,omitempty"`
	UpdatedAt     time.Time `json:"UpdatedAt"`
	UpdatedAtType string    `json:"UpdatedAt@odata.type,omitempty"`
}

type columnMerge struct {
	entityKeys
	Name          *string    `json:"Name,omitempty"`
	Position      *int       `json:"Position,omitempty"`
	PositionType  *string    `json:"Position@odata.type,omitempty"`
	UpdatedAt     *time.Time `json:"UpdatedAt,omitempty"`
	UpdatedAtType *string    `json:"UpdatedAt@odata.type,omitempty"`
}

type taskEntity struct {
	entityKeys
	ColumnID      string    `json:"ColumnID"`
	Title         string    `json:"Title"`
	Description   *string   `json:"Description,omitempty"`
	Priority      string    `json:"Priority"`
	Position      int       `json:"Position"`
	PositionType  string    `json:"Position@odata.type,omitempty"`
	CreatedAt     time.Time `json:"CreatedAt"`
	CreatedAtType string    `json:"CreatedAt@odata.type,omitempty"`
	UpdatedAt     time.Time `json:"UpdatedAt"`
	UpdatedAtType string    `json:"UpdatedAt@odata.type,omitempty"`
}

type taskMerge struct {
	entityKeys
	ColumnID      *string    `json:"ColumnID,omitempty"`
	Title         *string    `json:"Title,omitempty"`
	Description   *string    `json:"Description,omitempty"`
	Priority      *string    `json:"Priority,omitempty"`
	Position      *int       `json:"Position,omitempty"`
	PositionType  *string    `json:"Position@odata.type,omitempty"`
	UpdatedAt     *time.Time `json:"UpdatedAt,omitempty"`
	UpdatedAtType *string    `json:"UpdatedAt@odata.type,omitempty"`
}

func (e columnEntity) row() service.ColumnRow {
	return service.ColumnRow{
		ID:        e.RowKey,
		UserID:    e.PartitionKey,
		Name:      e.Name,
		Position:  e.Position,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func (e taskEntity) row() service.TaskRow {
	return service.TaskRow{
		ID:          e.RowKey,
		UserID:      e.PartitionKey,
		ColumnID:    e.ColumnID,
		Title:       e.Title,
		Description: e.Description,
		Priority:    e.Priority,
		Position:    e.Position,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func decodeColumnEntity(data []byte) (columnEntity, error) {
	var ent columnEntity
	err := sonic.Unmarshal(data, &ent)
	return ent, err
}

func decodeTaskEntity(data []byte) (taskEntity, error) {
	var ent taskEntity
	err := sonic.Unmarshal(data, &ent)
	return ent, err
}

// quote renders s as an OData string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func eq(field, value string) string {
	return field + " eq " + quote(value)
}

func listRaw(ctx context.Context, c tableClient, filter string) ([][]byte, error) {
	pager := c.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var out [][]byte
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Entities...)
	}
	return out, nil
}

// partitionOf finds the partition holding the row with the given key.
func partitionOf(ctx context.Context, c tableClient, id string) (string, bool, error) {
	raw, err := listRaw(ctx, c, eq("RowKey", id))
	if err != nil {
		return "", false, err
	}
	if len(raw) == 0 {
		return "", false, nil
	}
	var keys entityKeys
	if err := sonic.Unmarshal(raw[0], &keys); err != nil {
		return "", false, err
	}
	return keys.PartitionKey, true, nil
}

func merge(ctx context.Context, c tableClient, payload any) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = c.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	return err
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

func (t *Tables) ListColumns(ctx context.Context, userID string) ([]service.ColumnRow, error) {
	raw, err := listRaw(ctx, t.columns, eq("PartitionKey", userID))
	if err != nil {
		return nil, err
	}
	out := make([]service.ColumnRow, 0, len(raw))
	for _, data := range raw {
		ent, err := decodeColumnEntity(data)
		if err != nil {
			return nil, err
		}
		out = append(out, ent.row())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (t *Tables) InsertColumn(ctx context.Context, in service.ColumnInsert) (service.ColumnRow, error) {
	now := t.now()
	ent := columnEntity{
		entityKeys:    entityKeys{PartitionKey: in.UserID, RowKey: uuid.NewString()},
		Name:          in.Name,
		Position:      in.Position,
		PositionType:  edmInt32,
		CreatedAt:     now,
		CreatedAtType: edmDateTime,
		UpdatedAt:     now,
		UpdatedAtType: edmDateTime,
	}
	data, err := sonic.Marshal(ent)
	if err != nil {
		return service.ColumnRow{}, err
	}
	if _, err := t.columns.AddEntity(ctx, data, nil); err != nil {
		return service.ColumnRow{}, err
	}
	return ent.row(), nil
}

func (t *Tables) UpdateColumn(ctx context.Context, id string, patch service.ColumnPatch) (service.ColumnRow, error) {
	pk, ok, err := partitionOf(ctx, t.columns, id)
	if err != nil {
		return service.ColumnRow{}, err
	}
	if !ok {
		return service.ColumnRow{}, notFound("column", id)
	}
	now := t.now()
	dt := edmDateTime
	upd := columnMerge{
		entityKeys:    entityKeys{PartitionKey: pk, RowKey: id},
		Name:          patch.Name,
		Position:      patch.Position,
		UpdatedAt:     &now,
		UpdatedAtType: &dt,
	}
	if patch.Position != nil {
		it := edmInt32
		upd.PositionType = &it
	}
	if err := merge(ctx, t.columns, upd); err != nil {
		if isNotFound(err) {
			return service.ColumnRow{}, notFound("column", id)
		}
		return service.ColumnRow{}, err
	}
	resp, err := t.columns.GetEntity(ctx, pk, id, nil)
	if err != nil {
		return service.ColumnRow{}, err
	}
	ent, err := decodeColumnEntity(resp.Value)
	if err != nil {
		return service.ColumnRow{}, err
	}
	return ent.row(), nil
}

// DeleteColumn removes the column's tasks and then the column. Deleting a
// missing id is not an error.
func (t *Tables) DeleteColumn(ctx context.Context, id string) error {
	pk, ok, err := partitionOf(ctx, t.columns, id)
	if err != nil || !ok {
		return err
	}
	raw, err := listRaw(ctx, t.tasks, eq("PartitionKey", pk)+" and "+eq("ColumnID", id))
	if err != nil {
		return err
	}
	for _, data := range raw {
		var keys entityKeys
		if err := sonic.Unmarshal(data, &keys); err != nil {
			return err
		}
		if _, err := t.tasks.DeleteEntity(ctx, keys.PartitionKey, keys.RowKey, nil); err != nil && !isNotFound(err) {
			return fmt.Errorf("cascade task %s: %w", keys.RowKey, err)
		}
	}
	if _, err := t.columns.DeleteEntity(ctx, pk, id, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

// ListTasks filters priority on the server and search on the client; the
// table service has no substring operator.
func (t *Tables) ListTasks(ctx context.Context, q service.TaskQuery) ([]service.TaskRow, error) {
	filter := eq("PartitionKey", q.UserID)
	if q.Priority != "" {
		filter += " and " + eq("Priority", q.Priority)
	}
	raw, err := listRaw(ctx, t.tasks, filter)
	if err != nil {
		return nil, err
	}
	out := make([]service.TaskRow, 0, len(raw))
	for _, data := range raw {
		ent, err := decodeTaskEntity(data)
		if err != nil {
			return nil, err
		}
		row := ent.row()
		if q.Search != "" && !row.MatchesSearch(q.Search) {
			continue
		}
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (t *Tables) MaxTaskPosition(ctx context.Context, columnID string) (int, bool, error) {
	raw, err := listRaw(ctx, t.tasks, eq("ColumnID", columnID))
	if err != nil {
		return 0, false, err
	}
	max, found := 0, false
	for _, data := range raw {
		ent, err := decodeTaskEntity(data)
		if err != nil {
			return 0, false, err
		}
		if !found || ent.Position > max {
			max = ent.Position
		}
		found = true
	}
	return max, found, nil
}

func (t *Tables) InsertTask(ctx context.Context, in service.TaskInsert) (service.TaskRow, error) {
	if _, ok, err := partitionOf(ctx, t.columns, in.ColumnID); err != nil {
		return service.TaskRow{}, err
	} else if !ok {
		return service.TaskRow{}, fmt.Errorf("column %s does not exist", in.ColumnID)
	}
	now := t.now()
	ent := taskEntity{
		entityKeys:    entityKeys{PartitionKey: in.UserID, RowKey: uuid.NewString()},
		ColumnID:      in.ColumnID,
		Title:         in.Title,
		Description:   in.Description,
		Priority:      in.Priority,
		Position:      in.Position,
		PositionType:  edmInt32,
		CreatedAt:     now,
		CreatedAtType: edmDateTime,
		UpdatedAt:     now,
		UpdatedAtType: edmDateTime,
	}
	data, err := sonic.Marshal(ent)
	if err != nil {
		return service.TaskRow{}, err
	}
	if _, err := t.tasks.AddEntity(ctx, data, nil); err != nil {
		return service.TaskRow{}, err
	}
	return ent.row(), nil
}

func (t *Tables) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.TaskRow, error) {
	pk, ok, err := partitionOf(ctx, t.tasks, id)
	if err != nil {
		return service.TaskRow{}, err
	}
	if !ok {
		return service.TaskRow{}, notFound("task", id)
	}
	now := t.now()
	dt := edmDateTime
	upd := taskMerge{
		entityKeys:    entityKeys{PartitionKey: pk, RowKey: id},
		ColumnID:      patch.ColumnID,
		Title:         patch.Title,
		Description:   patch.Description,
		Priority:      patch.Priority,
		Position:      patch.Position,
		UpdatedAt:     &now,
		UpdatedAtType: &dt,
	}
	if patch.Position != nil {
		it := edmInt32
		upd.PositionType = &it
	}
	if err := merge(ctx, t.tasks, upd); err != nil {
		if isNotFound(err) {
			return service.TaskRow{}, notFound("task", id)
		}
		return service.TaskRow{}, err
	}
	resp, err := t.tasks.GetEntity(ctx, pk, id, nil)
	if err != nil {
		return service.TaskRow{}, err
	}
	ent, err := decodeTaskEntity(resp.Value)
	if err != nil {
		return service.TaskRow{}, err
	}
	return ent.row(), nil
}

func (t *Tables) DeleteTask(ctx context.Context, id string) error {
	pk, ok, err := partitionOf(ctx, t.tasks, id)
	if err != nil || !ok {
		return err
	}
	if _, err := t.tasks.DeleteEntity(ctx, pk, id, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}
