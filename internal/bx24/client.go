// Package bx24 defines the backend-agnostic Bitrix24 client contract.
// The real REST client and the development mock both implement Client;
// report code never branches on which one it was handed.
package bx24

import (
	"context"
	"encoding/json"
	"fmt"
)

// Method names understood by the report widget.
const (
	MethodUserGet   = "user.get"
	MethodTasksList = "tasks.task.list"
)

// Error codes carried by Error.
const (
	CodeMethodNotFound  = "METHOD_NOT_FOUND"
	CodeRequestFailed   = "REQUEST_FAILED"
	CodeInvalidResponse = "INVALID_RESPONSE"
)

// Client is the three-operation capability shared by the real and mock clients.
type Client interface {
	// CallMethod runs a REST method and delivers its Result to cb.
	// cb is always invoked asynchronously; a nil cb discards the result.
	CallMethod(method string, params Params, cb Callback)

	// GetAuth returns the auth descriptor relayed from the host.
	GetAuth() Auth

	// Init performs the readiness handshake and invokes cb when ready.
	Init(cb func())
}

// Callback receives the outcome of a CallMethod.
type Callback func(Result)

// Error is a per-call error descriptor in the Bitrix24 wire shape.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Auth is the auth descriptor returned by GetAuth.
type Auth struct {
	Domain         string `json:"domain"`
	AccessToken    string `json:"access_token"`
	MemberID       string `json:"member_id"`
	RefreshToken   string `json:"refresh_token,omitempty"`
	ClientEndpoint string `json:"client_endpoint,omitempty"`
	ExpiresIn      int    `json:"expires_in,omitempty"`
}

// Params is the parameter set of a list-style call.
// Filter keys follow the Bitrix24 convention, e.g. "RESPONSIBLE_ID" or
// ">=CLOSED_DATE"; values may be a scalar or a slice of candidates.
type Params struct {
	Filter map[string]any    `json:"filter,omitempty"`
	Select []string          `json:"select,omitempty"`
	Order  map[string]string `json:"order,omitempty"`
	Start  int               `json:"start,omitempty"`
	Limit  int               `json:"limit,omitempty"`
}

// Result is what a Callback receives.
type Result struct {
	data     json.RawMessage
	err      *Error
	total    int
	hasTotal bool
}

var emptyList = json.RawMessage("[]")

// NewResult builds a successful Result.
func NewResult(data json.RawMessage, total int, hasTotal bool) Result {
	return Result{data: data, total: total, hasTotal: hasTotal}
}

// ErrorResult builds a failed Result carrying err.
func ErrorResult(err *Error) Result {
	return Result{err: err}
}

// Data returns the result payload. List results are already unwrapped;
// a failed or empty result yields an empty JSON array.
func (r Result) Data() json.RawMessage {
	if r.err != nil || len(r.data) == 0 {
		return emptyList
	}
	return r.data
}

// Error returns the call's error descriptor, or nil on success.
func (r Result) Error() *Error {
	return r.err
}

// Total returns the pre-pagination count. ok is false when the client
// did not report one.
func (r Result) Total() (total int, ok bool) {
	return r.total, r.hasTotal
}

// Decode unmarshals Data into v.
func (r Result) Decode(v any) error {
	if err := json.Unmarshal(r.Data(), v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// Call adapts the callback contract to a blocking call. ctx only bounds
// the wait; the underlying call still runs to completion.
// A per-call error is returned both in the Result and as err.
func Call(ctx context.Context, c Client, method string, params Params) (Result, error) {
	ch := make(chan Result, 1)
	c.CallMethod(method, params, func(r Result) {
		ch <- r
	})

	select {
	case r := <-ch:
		if e := r.Error(); e != nil {
			return r, e
		}
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
