package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"bx24report/internal/bx24/mock"
	"bx24report/internal/config"
	"bx24report/internal/devserver"
	"bx24report/internal/exitcode"
	"bx24report/internal/service"
)

// shutdownTimeout bounds graceful shutdown of the serve command.
const shutdownTimeout = 5 * time.Second

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command: the development mock behind the
// REST wire shape, for pointing BX24_SDK_URL at.
type ServeCmd struct {
	addr     string
	noTotals bool

	// ready, when set, receives the bound address once listening (for testing).
	ready chan<- string
}

// SetAddr sets the listen address (for testing).
func (c *ServeCmd) SetAddr(addr string) {
	c.addr = addr
}

// NotifyReady makes Run send the bound address on ch (for testing).
func (c *ServeCmd) NotifyReady(ch chan<- string) {
	c.ready = ch
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Serve the development mock over HTTP" }
func (c *ServeCmd) Usage() string     { return "bx24report serve [--addr <host:port>] [--no-totals]" }
func (c *ServeCmd) NeedsClient() bool { return false }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", devserver.DefaultAddr, "")
	fs.BoolVar(&c.noTotals, "no-totals", false, "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	addr := c.addr
	if addr == "" {
		addr = devserver.DefaultAddr
	}

	logger := log.New(io.Discard, "", log.LstdFlags)
	if cfg.Debug {
		logger = log.New(errOut, "[serve] ", log.LstdFlags)
	}

	client := mock.New(mock.WithTotals(!c.noTotals), mock.WithLogger(logger))
	srv := &http.Server{
		Handler:           devserver.New(client, devserver.Options{Logger: logger}).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "serving mock SDK at http://%s/api/v1/\n", ln.Addr())
	}
	if c.ready != nil {
		c.ready <- ln.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.HostError
		}
		return exitcode.Success
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(errOut, "error: shutdown: %v\n", err)
		return exitcode.HostError
	}
	return exitcode.Success
}
