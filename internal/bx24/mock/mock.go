/*
Package mock provides an in-memory bx24.Client for local development outside
the Bitrix24 iframe.

The dataset is generated once, deterministically, when the client is built:
three users and TaskCount tasks spread across them. Only user.get and
tasks.task.list are emulated; every other method reports METHOD_NOT_FOUND
through the callback, exactly as the real gateway reports its errors.

	c := mock.New()
	res, err := bx24.Call(ctx, c, bx24.MethodTasksList, bx24.Params{
		Filter: map[string]any{bx24.FilterResponsibleID: []string{"1", "2"}},
		Limit:  10,
	})
*/
package mock

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"bx24report/internal/bx24"
)

const (
	// TaskCount is the number of generated tasks.
	TaskCount = 173

	// Latency is the fixed delay before a callback fires.
	Latency = 500 * time.Millisecond

	// isoLayout matches the millisecond ISO-8601 form the gateway emits.
	isoLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Mock auth descriptor values.
const (
	AuthDomain      = "mock.bitrix24.ru"
	AuthAccessToken = "mock_access_token"
	AuthMemberID    = "mock_member_id"
)

// Option configures a Client.
type Option func(*Client)

// WithTotals controls whether list results report a total. Default true.
func WithTotals(enabled bool) Option {
	return func(c *Client) {
		c.totals = enabled
	}
}

// WithLogger sets the diagnostic logger. Default discards.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client implements bx24.Client over a synthetic dataset.
type Client struct {
	users   []bx24.User
	records []record
	latency time.Duration
	totals  bool
	logger  *log.Logger
}

// New builds a mock client and its dataset.
func New(opts ...Option) *Client {
	c := &Client{
		users:   generateUsers(),
		records: generateTasks(TaskCount),
		latency: Latency,
		totals:  true,
		logger:  log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Users returns a copy of the user set.
func (c *Client) Users() []bx24.User {
	out := make([]bx24.User, len(c.users))
	copy(out, c.users)
	return out
}

// Tasks returns a copy of the task set in generation order.
func (c *Client) Tasks() []bx24.Task {
	out := make([]bx24.Task, len(c.records))
	for i, r := range c.records {
		out[i] = r.task
	}
	return out
}

// CallMethod implements bx24.Client.
func (c *Client) CallMethod(method string, params bx24.Params, cb bx24.Callback) {
	callID := uuid.NewString()
	c.logger.Printf("[MOCK BX24] call=%s method=%s params=%+v", callID, method, params)

	var res bx24.Result
	switch method {
	case bx24.MethodUserGet:
		res = c.result(c.users, 0, false)

	case bx24.MethodTasksList:
		page, total, err := query(c.records, params)
		if err != nil {
			c.logger.Printf("[MOCK BX24] call=%s %v; matching nothing", callID, err)
		}
		c.logger.Printf("[MOCK BX24] call=%s start=%d limit=%d returning %d of %d tasks",
			callID, params.Start, params.Limit, len(page), total)
		res = c.result(page, total, c.totals)

	default:
		e := &bx24.Error{
			Code:        bx24.CodeMethodNotFound,
			Description: fmt.Sprintf("The method %s is not mocked for local development.", method),
		}
		c.logger.Printf("[MOCK BX24] call=%s %v", callID, e)
		res = bx24.ErrorResult(e)
	}

	time.AfterFunc(c.latency, func() {
		if cb != nil {
			cb(res)
		}
	})
}

func (c *Client) result(v any, total int, hasTotal bool) bx24.Result {
	data, err := json.Marshal(v)
	if err != nil {
		return bx24.ErrorResult(&bx24.Error{Code: bx24.CodeInvalidResponse, Description: err.Error()})
	}
	return bx24.NewResult(data, total, hasTotal)
}

// GetAuth implements bx24.Client.
func (c *Client) GetAuth() bx24.Auth {
	c.logger.Printf("[MOCK BX24] getAuth() called")
	return bx24.Auth{
		Domain:      AuthDomain,
		AccessToken: AuthAccessToken,
		MemberID:    AuthMemberID,
	}
}

// Init implements bx24.Client. cb runs synchronously.
func (c *Client) Init(cb func()) {
	c.logger.Printf("[MOCK BX24] init() called")
	if cb != nil {
		cb()
	}
}

func generateUsers() []bx24.User {
	return []bx24.User{
		{ID: "1", Name: "John", LastName: "Doe", Email: "john.doe@example.com"},
		{ID: "2", Name: "Jane", LastName: "Smith", Email: "jane.smith@example.com"},
		{ID: "3", Name: "Peter", LastName: "Jones", Email: "peter.jones@example.com"},
	}
}

func generateTasks(n int) []record {
	records := make([]record, n)
	for i := range n {
		created := time.Date(2024, time.May, 1+i%30, 0, 0, 0, 0, time.UTC)
		closed := created.AddDate(0, 0, i%5+1)

		kind := "Разработка"
		if i%2 != 0 {
			kind = "Тестирование"
		}
		id := strconv.Itoa(101 + i)

		records[i] = record{
			closed: closed,
			task: bx24.Task{
				ID:              id,
				Title:           fmt.Sprintf("Задача %s: %s модуля %c", id, kind, 'A'+rune(i%10)),
				ResponsibleID:   strconv.Itoa(i%3 + 1),
				TimeEstimate:    strconv.Itoa(3600 * (i%4 + 1)),
				TimeSpentInLogs: strconv.Itoa(3600*(i%4) + 1800),
				CreatedDate:     created.Format(isoLayout),
				ClosedDate:      closed.Format(isoLayout),
				Status:          strconv.Itoa(i%4 + 2),
			},
		}
	}
	return records
}
