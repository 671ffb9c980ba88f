// Package testutil provides testing utilities.
package testutil

import (
	"encoding/json"
	"sync"

	"bx24report/internal/bx24"
)

// Call records a CallMethod invocation.
type Call struct {
	Method string
	Params bx24.Params
}

// FakeClient is a scripted, in-memory implementation of bx24.Client for testing.
// Unlike the development mock it applies no filters and has no latency;
// callbacks still fire on a separate goroutine.
type FakeClient struct {
	mu    sync.Mutex
	users []bx24.User
	tasks []bx24.Task
	calls []Call
	inits int

	// Auth is returned by GetAuth.
	Auth bx24.Auth

	// ReportTotals controls whether list results carry a total.
	ReportTotals bool

	// Error injection for testing: method -> error descriptor
	MethodErr map[string]*bx24.Error
}

// NewFakeClient creates an empty FakeClient that reports totals.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		Auth: bx24.Auth{
			Domain:      "fake.bitrix24.test",
			AccessToken: "fake_access_token",
			MemberID:    "fake_member_id",
		},
		ReportTotals: true,
		MethodErr:    make(map[string]*bx24.Error),
	}
}

// AddUser adds a user returned by user.get.
func (f *FakeClient) AddUser(id, name, lastName, email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, bx24.User{ID: id, Name: name, LastName: lastName, Email: email})
}

// AddTask adds a task returned by tasks.task.list.
func (f *FakeClient) AddTask(task bx24.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
}

// Calls returns the recorded calls in order.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Inits returns how many times Init was called.
func (f *FakeClient) Inits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits
}

// CallMethod implements bx24.Client.
func (f *FakeClient) CallMethod(method string, params bx24.Params, cb bx24.Callback) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Params: params})
	res := f.resultLocked(method, params)
	f.mu.Unlock()

	go func() {
		if cb != nil {
			cb(res)
		}
	}()
}

func (f *FakeClient) resultLocked(method string, params bx24.Params) bx24.Result {
	if e, ok := f.MethodErr[method]; ok && e != nil {
		return bx24.ErrorResult(e)
	}

	switch method {
	case bx24.MethodUserGet:
		data, _ := json.Marshal(f.users)
		return bx24.NewResult(data, 0, false)

	case bx24.MethodTasksList:
		// Paginate (50 per page unless a limit is given)
		limit := params.Limit
		if limit <= 0 {
			limit = bx24.DefaultLimit
		}
		start := min(max(params.Start, 0), len(f.tasks))
		end := min(start+limit, len(f.tasks))

		page := make([]bx24.Task, end-start)
		copy(page, f.tasks[start:end])
		data, _ := json.Marshal(page)
		return bx24.NewResult(data, len(f.tasks), f.ReportTotals)

	default:
		return bx24.ErrorResult(&bx24.Error{Code: bx24.CodeMethodNotFound, Description: method})
	}
}

// GetAuth implements bx24.Client.
func (f *FakeClient) GetAuth() bx24.Auth {
	return f.Auth
}

// Init implements bx24.Client.
func (f *FakeClient) Init(cb func()) {
	f.mu.Lock()
	f.inits++
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}
