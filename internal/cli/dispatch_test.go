package cli_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"bx24report/internal/bx24"
	"bx24report/internal/bx24/mock"
	"bx24report/internal/cli"
	"bx24report/internal/commands"
	"bx24report/internal/config"
	"bx24report/internal/exitcode"
	"bx24report/internal/loader"
	"bx24report/internal/service"
	"bx24report/internal/testutil"
)

// testFactory creates a service factory over the given FakeClient.
func testFactory(client *testutil.FakeClient) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return service.New(client), nil
	}
}

// errFactory creates a service factory that always fails with err.
func errFactory(err error) cli.ServiceFactory {
	return func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		return nil, err
	}
}

// clearEnv isolates a test from BX24_* variables in the environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BX24_SDK_URL", "BX24_CLIENT_ID", "BX24_CLIENT_SECRET", "BX24_DEV",
		"BX24_HEADLESS", "BX24_TIMEOUT", "BX24_AUTH_ID", "BX24_DOMAIN",
		"BX24_REFRESH_ID", "BX24_MEMBER_ID", "BX24_CLIENT_ENDPOINT", "BX24_AUTH_EXPIRES",
	} {
		t.Setenv(key, "")
	}
}

func run(t *testing.T, factory cli.ServiceFactory, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	code = dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	clearEnv(t)
	_, stderr, code := run(t, testFactory(testutil.NewFakeClient()), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	clearEnv(t)
	_, stderr, code := run(t, testFactory(testutil.NewFakeClient()), "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	clearEnv(t)
	stdout, stderr, code := run(t, errFactory(errors.New("factory must not be called")), "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	clearEnv(t)
	stdout, stderr, code := run(t, testFactory(testutil.NewFakeClient()), "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "bx24report 0.1.0\n" {
		t.Errorf("expected 'bx24report 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	clearEnv(t)
	_, stderr, code := run(t, testFactory(testutil.NewFakeClient()), "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_MissingFlagValue(t *testing.T) {
	clearEnv(t)
	_, stderr, code := run(t, testFactory(testutil.NewFakeClient()), "tasks", "--user")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: flag needs an argument") {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestDispatcher_NoArgsRunsReport(t *testing.T) {
	clearEnv(t)
	client := testutil.NewFakeClient()
	client.AddUser("1", "Иван", "Петров", "ivan@example.com")
	client.AddTask(bx24.Task{ID: "1", ResponsibleID: "1", TimeEstimate: "3600", TimeSpentInLogs: "1800"})

	stdout, stderr, code := run(t, testFactory(client))
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.Contains(stdout, "Иван Петров") || !strings.Contains(stdout, "TOTAL") {
		t.Errorf("expected report output, got %q", stdout)
	}
}

func TestDispatcher_FactoryErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"headless", cli.ErrHeadless, exitcode.HostError, "error: host error: no host context"},
		{"load failed", loader.ErrSDKLoadFailed, exitcode.HostError, "error: host error: failed to load"},
		{"not found", loader.ErrSDKNotFound, exitcode.HostError, "error: host error: BX24 object not found"},
		{"bad credentials", cli.ErrBadCredentials, exitcode.HostError, "error: host error: invalid host credentials"},
		{"other", errors.New("connection reset"), exitcode.BackendError, "error: backend error: connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, stderr, code := run(t, errFactory(tt.err), "users")
			if code != tt.wantCode {
				t.Errorf("expected exit code %d, got %d", tt.wantCode, code)
			}
			if !strings.HasPrefix(stderr, tt.wantMsg) {
				t.Errorf("expected stderr to start with %q, got %q", tt.wantMsg, stderr)
			}
		})
	}
}

func TestDispatcher_ConfigPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		args    []string
		wantDev bool
	}{
		{"env on", "true", []string{"auth"}, true},
		{"flag overrides env", "true", []string{"auth", "--dev=false"}, false},
		{"flag on", "false", []string{"auth", "--dev"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("BX24_DEV", tt.env)

			var got *config.Config
			factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
				got = cfg
				return service.New(testutil.NewFakeClient()), nil
			}
			_, stderr, code := run(t, factory, tt.args...)
			if code != exitcode.Success {
				t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
			}
			if got.DevelopmentMode != tt.wantDev {
				t.Errorf("DevelopmentMode = %v, want %v", got.DevelopmentMode, tt.wantDev)
			}
		})
	}
}

func TestDispatcher_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BX24_TIMEOUT", "soon")

	_, stderr, code := run(t, testFactory(testutil.NewFakeClient()), "version")
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "BX24_TIMEOUT") {
		t.Errorf("expected BX24_TIMEOUT in stderr, got %q", stderr)
	}
}

func TestLoaderFactory_Headless(t *testing.T) {
	clearEnv(t)
	t.Setenv("BX24_HEADLESS", "1")

	var errBuf bytes.Buffer
	_, stderr, code := run(t, cli.LoaderFactory(&errBuf), "auth", "--config", t.TempDir())
	if code != exitcode.HostError {
		t.Errorf("expected exit code %d, got %d (stderr %q)", exitcode.HostError, code, stderr)
	}
}

func TestLoaderFactory_LoadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	t.Run("production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BX24_SDK_URL", srv.URL+"/api/v1/")

		var logs bytes.Buffer
		_, stderr, code := run(t, cli.LoaderFactory(&logs), "auth", "--config", t.TempDir(), "--dev=false")
		if code != exitcode.HostError {
			t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.HostError, code, stderr)
		}
		if !strings.Contains(stderr, loader.ErrSDKLoadFailed.Error()) {
			t.Errorf("expected load failure in stderr, got %q", stderr)
		}
		if logs.Len() != 0 {
			t.Errorf("expected no loader output without --debug, got %q", logs.String())
		}
	})

	t.Run("development", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("BX24_SDK_URL", srv.URL+"/api/v1/")

		var logs bytes.Buffer
		stdout, stderr, code := run(t, cli.LoaderFactory(&logs), "auth", "--config", t.TempDir(), "--dev")
		if code != exitcode.Success {
			t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
		}
		if !strings.Contains(stdout, mock.AuthDomain) {
			t.Errorf("expected mock domain in output, got %q", stdout)
		}
		if !strings.Contains(logs.String(), "DEV mode") {
			t.Errorf("expected fallback warning, got %q", logs.String())
		}
	})
}

func TestLoaderFactory_SharedAcrossCalls(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	clearEnv(t)
	t.Setenv("BX24_SDK_URL", srv.URL+"/api/v1/")

	factory := cli.LoaderFactory(io.Discard)
	dir := t.TempDir()
	for i := range 3 {
		stdout, stderr, code := run(t, factory, "auth", "--config", dir, "--dev", "--quiet")
		if code != exitcode.Success {
			t.Fatalf("run %d: expected exit code %d, got %d (stderr %q)", i, exitcode.Success, code, stderr)
		}
		if !strings.Contains(stdout, mock.AuthDomain) {
			t.Errorf("run %d: expected mock domain, got %q", i, stdout)
		}
	}

	if n := hits.Load(); n != 1 {
		t.Errorf("expected the SDK resource to be fetched once, got %d", n)
	}
}
