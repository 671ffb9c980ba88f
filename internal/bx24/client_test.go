package bx24_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bx24report/internal/bx24"
)

// stubClient delivers a fixed result after a delay.
type stubClient struct {
	res   bx24.Result
	delay time.Duration
}

func (s *stubClient) CallMethod(method string, params bx24.Params, cb bx24.Callback) {
	time.AfterFunc(s.delay, func() { cb(s.res) })
}

func (s *stubClient) GetAuth() bx24.Auth { return bx24.Auth{} }
func (s *stubClient) Init(cb func())     { cb() }

func TestResult_Accessors(t *testing.T) {
	ok := bx24.NewResult([]byte(`[1,2]`), 9, true)
	if string(ok.Data()) != "[1,2]" {
		t.Errorf("unexpected data %s", ok.Data())
	}
	if ok.Error() != nil {
		t.Errorf("expected no error, got %v", ok.Error())
	}
	if total, has := ok.Total(); !has || total != 9 {
		t.Errorf("expected total 9, got %d (ok=%v)", total, has)
	}

	failed := bx24.ErrorResult(&bx24.Error{Code: bx24.CodeMethodNotFound, Description: "nope"})
	if string(failed.Data()) != "[]" {
		t.Errorf("expected empty data, got %s", failed.Data())
	}
	if failed.Error().Error() != "METHOD_NOT_FOUND: nope" {
		t.Errorf("unexpected error string %q", failed.Error().Error())
	}
	var items []int
	if err := failed.Decode(&items); err != nil || len(items) != 0 {
		t.Errorf("expected empty decode, got %v (err=%v)", items, err)
	}

	if string(bx24.NewResult(nil, 0, false).Data()) != "[]" {
		t.Error("expected nil payload to read as an empty list")
	}
}

func TestCall_ReturnsPerCallError(t *testing.T) {
	c := &stubClient{res: bx24.ErrorResult(&bx24.Error{Code: bx24.CodeMethodNotFound})}

	res, err := bx24.Call(context.Background(), c, "x", bx24.Params{})
	var apiErr *bx24.Error
	if !errors.As(err, &apiErr) || apiErr.Code != bx24.CodeMethodNotFound {
		t.Fatalf("expected METHOD_NOT_FOUND, got %v", err)
	}
	if res.Error() != apiErr {
		t.Error("expected the result to carry the same descriptor")
	}
}

func TestCall_ContextBoundsWait(t *testing.T) {
	c := &stubClient{res: bx24.NewResult(nil, 0, false), delay: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := bx24.Call(ctx, c, "x", bx24.Params{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
