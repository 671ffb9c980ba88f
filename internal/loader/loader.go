// Package loader acquires the process's single Bitrix24 client handle.
//
// Acquisition is memoized: the first Acquire starts it, every later call
// returns the same Future, and the acquisition logic runs at most once no
// matter how many goroutines ask. A failed acquisition is terminal for the
// Future; there is no retry.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"bx24report/internal/bx24"
	"bx24report/internal/bx24/mock"
)

var (
	// ErrSDKNotFound is returned when the SDK resource loaded but no client
	// became available.
	ErrSDKNotFound = errors.New("BX24 object not found after script load")

	// ErrSDKLoadFailed is returned when the SDK resource could not be loaded.
	ErrSDKLoadFailed = errors.New("failed to load the Bitrix24 API script")
)

// Host is the environment the client is acquired from.
type Host interface {
	// Interactive reports whether a host context exists at all.
	// A headless host resolves to a nil client.
	Interactive() bool

	// Client returns the host-provided client, or nil when none is present.
	Client() bx24.Client

	// Load fetches the host SDK resource. After a successful Load,
	// Client may start returning a client.
	Load(ctx context.Context) error
}

// Options configures a Loader.
type Options struct {
	// DevelopmentMode degrades to a mock client instead of failing.
	DevelopmentMode bool

	// NewMock builds the fallback client. Defaults to mock.New.
	NewMock func() bx24.Client

	// Logger receives warnings and errors. Defaults to log.Default().
	Logger *log.Logger
}

// Loader produces exactly one client handle per instance.
type Loader struct {
	host     Host
	opts     Options
	logger   *log.Logger
	once     sync.Once
	future   *Future
	attempts atomic.Int32
}

// New creates a Loader for host.
func New(host Host, opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.NewMock == nil {
		opts.NewMock = func() bx24.Client {
			return mock.New(mock.WithLogger(logger))
		}
	}
	return &Loader{
		host:   host,
		opts:   opts,
		logger: logger,
	}
}

// Acquire returns the shared Future for the client handle, starting
// acquisition on the first call.
func (l *Loader) Acquire() *Future {
	l.once.Do(func() {
		l.future = newFuture()
		go l.acquire(l.future)
	})
	return l.future
}

// Attempts reports how many times acquisition ran. It is 0 or 1.
func (l *Loader) Attempts() int {
	return int(l.attempts.Load())
}

func (l *Loader) acquire(f *Future) {
	l.attempts.Add(1)

	// No host context: resolve with a no-op handle
	if !l.host.Interactive() {
		f.resolve(nil, nil)
		return
	}

	if c := l.host.Client(); c != nil {
		l.initialize(c, f)
		return
	}

	if err := l.host.Load(context.Background()); err != nil {
		l.fallback(f, fmt.Errorf("%w: %w", ErrSDKLoadFailed, err))
		return
	}

	if c := l.host.Client(); c != nil {
		l.initialize(c, f)
		return
	}

	l.fallback(f, ErrSDKNotFound)
}

func (l *Loader) initialize(c bx24.Client, f *Future) {
	c.Init(func() {
		f.resolve(c, nil)
	})
}

func (l *Loader) fallback(f *Future, cause error) {
	if l.opts.DevelopmentMode {
		l.logger.Printf("warning: %v", cause)
		l.logger.Printf("warning: BX24 SDK not found or failed to init. Running in DEV mode with a mock BX24 object.")
		f.resolve(l.opts.NewMock(), nil)
		return
	}
	l.logger.Printf("error: %v", cause)
	f.resolve(nil, cause)
}

// Future is the eventual outcome of an acquisition.
type Future struct {
	done   chan struct{}
	once   sync.Once
	client bx24.Client
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(c bx24.Client, err error) {
	f.once.Do(func() {
		f.client = c
		f.err = err
		close(f.done)
	})
}

// Done is closed once the Future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Resolved reports whether the Future has a value or error.
func (f *Future) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the Future resolves or ctx is done. Cancelling ctx
// abandons the wait only; acquisition keeps running.
// A nil client with a nil error means the host is headless.
func (f *Future) Wait(ctx context.Context) (bx24.Client, error) {
	select {
	case <-f.done:
		return f.client, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
