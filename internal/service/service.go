// Package service defines the backend-agnostic report operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bx24report/internal/bx24"
)

// MaxPages bounds AllTasks when the backend never signals the last page.
const MaxPages = 1000

// ErrTooManyPages is returned when AllTasks hits MaxPages.
var ErrTooManyPages = errors.New("too many pages")

// Service defines the interface for report operations.
// All Bitrix24 calls go through this interface.
// Commands never call bx24.Client directly.
type Service interface {
	// Users returns every portal user.
	Users(ctx context.Context) ([]bx24.User, error)

	// ListTasks returns one page of tasks matching q.
	ListTasks(ctx context.Context, q Query) (TaskPage, error)

	// AllTasks pages through every task matching q, starting at q.Start.
	// Results are in API order (no client-side sorting).
	AllTasks(ctx context.Context, q Query) ([]bx24.Task, error)

	// Auth returns the auth descriptor relayed from the host.
	Auth() bx24.Auth
}

// Query selects tasks. Empty fields are not filtered on.
type Query struct {
	ResponsibleIDs []string
	Statuses       []string
	ClosedFrom     time.Time
	ClosedTo       time.Time
	Start          int
	Limit          int
}

// Params converts q to tasks.task.list parameters.
func (q Query) Params() bx24.Params {
	filter := make(map[string]any)
	if len(q.ResponsibleIDs) > 0 {
		filter[bx24.FilterResponsibleID] = q.ResponsibleIDs
	}
	if len(q.Statuses) > 0 {
		filter[bx24.FilterStatus] = q.Statuses
	}
	if !q.ClosedFrom.IsZero() {
		filter[bx24.FilterClosedFrom] = q.ClosedFrom.Format(time.RFC3339)
	}
	if !q.ClosedTo.IsZero() {
		filter[bx24.FilterClosedTo] = q.ClosedTo.Format(time.RFC3339)
	}
	if len(filter) == 0 {
		filter = nil
	}
	return bx24.Params{Filter: filter, Start: q.Start, Limit: q.Limit}
}

// TaskPage is one page of a task listing.
type TaskPage struct {
	Tasks []bx24.Task
	Start int

	// Total is the match count before pagination; valid when HasTotal.
	Total    int
	HasTotal bool
}

// Reports implements Service over a bx24.Client.
type Reports struct {
	client bx24.Client
}

// New creates a Reports service.
func New(client bx24.Client) *Reports {
	return &Reports{client: client}
}

// Users implements Service.
func (r *Reports) Users(ctx context.Context) ([]bx24.User, error) {
	res, err := bx24.Call(ctx, r.client, bx24.MethodUserGet, bx24.Params{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", bx24.MethodUserGet, err)
	}
	var users []bx24.User
	if err := res.Decode(&users); err != nil {
		return nil, fmt.Errorf("%s: %w", bx24.MethodUserGet, err)
	}
	return users, nil
}

// ListTasks implements Service.
func (r *Reports) ListTasks(ctx context.Context, q Query) (TaskPage, error) {
	res, err := bx24.Call(ctx, r.client, bx24.MethodTasksList, q.Params())
	if err != nil {
		return TaskPage{}, fmt.Errorf("%s: %w", bx24.MethodTasksList, err)
	}

	var tasks []bx24.Task
	if err := res.Decode(&tasks); err != nil {
		return TaskPage{}, fmt.Errorf("%s: %w", bx24.MethodTasksList, err)
	}
	total, hasTotal := res.Total()

	return TaskPage{
		Tasks:    tasks,
		Start:    q.Start,
		Total:    total,
		HasTotal: hasTotal,
	}, nil
}

// AllTasks implements Service.
func (r *Reports) AllTasks(ctx context.Context, q Query) ([]bx24.Task, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = bx24.DefaultLimit
	}

	var all []bx24.Task
	for range MaxPages {
		page, err := r.ListTasks(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Tasks...)

		if len(page.Tasks) == 0 {
			return all, nil
		}
		// Without a total, a short page is the last one
		if page.HasTotal && q.Start+len(page.Tasks) >= page.Total {
			return all, nil
		}
		if !page.HasTotal && len(page.Tasks) < limit {
			return all, nil
		}
		q.Start += len(page.Tasks)
	}
	return nil, ErrTooManyPages
}

// Auth implements Service.
func (r *Reports) Auth() bx24.Auth {
	return r.client.GetAuth()
}
