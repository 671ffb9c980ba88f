package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"bx24report/internal/config"
	"bx24report/internal/exitcode"
	"bx24report/internal/service"
)

func init() {
	Register(&AuthCmd{})
}

// AuthCmd implements the auth command. It prints the auth descriptor the
// client was initialized with; the token is masked.
type AuthCmd struct{}

func (c *AuthCmd) Name() string      { return "auth" }
func (c *AuthCmd) Aliases() []string { return []string{"whoami"} }
func (c *AuthCmd) Synopsis() string  { return "Show the current auth descriptor" }
func (c *AuthCmd) Usage() string     { return "bx24report auth" }
func (c *AuthCmd) NeedsClient() bool { return true }

func (c *AuthCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AuthCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	auth := svc.Auth()
	fmt.Fprintf(out, "domain:       %s\n", auth.Domain)
	fmt.Fprintf(out, "member_id:    %s\n", auth.MemberID)
	fmt.Fprintf(out, "access_token: %s\n", maskToken(auth.AccessToken))
	if auth.ClientEndpoint != "" {
		fmt.Fprintf(out, "endpoint:     %s\n", auth.ClientEndpoint)
	}
	return exitcode.Success
}

// maskToken keeps the first four characters of a token.
func maskToken(token string) string {
	const visible = 4
	if len(token) <= visible {
		return "****"
	}
	return token[:visible] + "****"
}
