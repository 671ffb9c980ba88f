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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "bx24report help" }
func (c *HelpCmd) NeedsClient() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  bx24report                                         Summarize tracked time (same as report)
  bx24report users [common flags]
  bx24report tasks [common flags] [filter flags] [--start <n>] [--limit <n>]
  bx24report report [common flags] [filter flags]
  bx24report auth [common flags]
  bx24report serve [common flags] [--addr <host:port>] [--no-totals]
  bx24report help
  bx24report version

Filter flags:
  --user <ids>       Comma-separated responsible user IDs
  --status <codes>   Comma-separated task status codes
  --from <date>      Closed on or after (YYYY-MM-DD or RFC 3339)
  --to <date>        Closed on or before (a bare date covers the whole day)

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
  --dev            Fall back to the built-in mock when the SDK is unavailable
`
