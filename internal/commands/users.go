package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"bx24report/internal/config"
	"bx24report/internal/exitcode"
	"bx24report/internal/output"
	"bx24report/internal/service"
)

func init() {
	Register(&UsersCmd{})
}

// UsersCmd implements the users command.
type UsersCmd struct{}

func (c *UsersCmd) Name() string      { return "users" }
func (c *UsersCmd) Aliases() []string { return nil }
func (c *UsersCmd) Synopsis() string  { return "List portal users" }
func (c *UsersCmd) Usage() string     { return "bx24report users" }
func (c *UsersCmd) NeedsClient() bool { return true }

func (c *UsersCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UsersCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	users, err := svc.Users(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	if len(users) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no users found")
		}
		return exitcode.Success
	}
	for _, u := range users {
		output.FormatUser(out, u)
	}
	return exitcode.Success
}
