package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"bx24report/internal/bx24"
	"bx24report/internal/bx24/mock"
	"bx24report/internal/bx24/rest"
	"bx24report/internal/config"
	"bx24report/internal/loader"
	"bx24report/internal/service"
)

// ErrHeadless is returned when a command needs a client but the run has no
// host context.
var ErrHeadless = errors.New("no host context (headless run)")

// ErrBadCredentials is returned when stored or relayed placement
// credentials cannot be used.
var ErrBadCredentials = errors.New("invalid host credentials")

// LoaderFactory returns the production ServiceFactory: it acquires the
// client through a loader.Loader over an HTTPHost built from cfg.
// The Loader is built on the first call and shared by every later call,
// so a process holds a single client handle; later configs are ignored.
// Call logs go to errOut only with --debug.
func LoaderFactory(errOut io.Writer) ServiceFactory {
	var (
		once    sync.Once
		shared  *loader.Loader
		initErr error
	)
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		once.Do(func() {
			shared, initErr = newLoader(context.WithoutCancel(ctx), cfg, errOut)
		})
		if initErr != nil {
			return nil, initErr
		}

		client, err := shared.Acquire().Wait(ctx)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, ErrHeadless
		}
		return service.New(client), nil
	}
}

func newLoader(ctx context.Context, cfg *config.Config, errOut io.Writer) (*loader.Loader, error) {
	debug := log.New(io.Discard, "", 0)
	if cfg.Debug {
		debug = log.New(errOut, "[debug] ", log.Ltime|log.Lmicroseconds)
	}
	// Fallback warnings are user-facing; a hard failure is reported
	// by the dispatcher instead.
	warn := debug
	if cfg.DevelopmentMode && !cfg.Quiet {
		warn = log.New(errOut, "", 0)
	}

	auth, err := cfg.HostAuth()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCredentials, err)
	}

	host, err := loader.NewHTTPHost(ctx, loader.HostConfig{
		SDKURL:   cfg.SDKURL,
		Headless: cfg.Headless,
		Auth:     auth,
		REST: rest.Options{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Timeout:      cfg.Timeout,
			Logger:       debug,
		},
		Logger: debug,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadCredentials, err)
	}

	return loader.New(host, loader.Options{
		DevelopmentMode: cfg.DevelopmentMode,
		NewMock: func() bx24.Client {
			return mock.New(mock.WithLogger(debug))
		},
		Logger: warn,
	}), nil
}

// isHostError reports whether err means no usable client could be acquired.
func isHostError(err error) bool {
	for _, target := range []error{
		loader.ErrSDKNotFound,
		loader.ErrSDKLoadFailed,
		ErrHeadless,
		ErrBadCredentials,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// describeHostError adds a hint for the common host failures.
func describeHostError(err error) string {
	switch {
	case errors.Is(err, ErrHeadless):
		return fmt.Sprintf("%v (unset BX24_HEADLESS or run with --dev)", err)
	case errors.Is(err, loader.ErrSDKLoadFailed), errors.Is(err, loader.ErrSDKNotFound):
		return fmt.Sprintf("%v (set BX24_AUTH_ID or run with --dev)", err)
	}
	return err.Error()
}
