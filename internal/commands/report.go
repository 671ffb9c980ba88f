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
	Register(&ReportCmd{})
}

// ReportCmd implements the report command: estimated vs. spent time per
// responsible user over every matching task.
type ReportCmd struct {
	filters queryFlags
}

// SetFilters sets the filter flags (for testing).
func (c *ReportCmd) SetFilters(users, statuses, from, to string) {
	c.filters = queryFlags{users: users, statuses: statuses, from: from, to: to}
}

func (c *ReportCmd) Name() string      { return "report" }
func (c *ReportCmd) Aliases() []string { return nil }
func (c *ReportCmd) Synopsis() string  { return "Summarize tracked time per user" }
func (c *ReportCmd) Usage() string {
	return "bx24report report [--user <ids>] [--status <codes>] [--from <date>] [--to <date>]"
}
func (c *ReportCmd) NeedsClient() bool { return true }

func (c *ReportCmd) RegisterFlags(fs *flag.FlagSet) {
	c.filters.register(fs)
}

func (c *ReportCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	q, err := c.filters.query()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	users, err := svc.Users(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
	tasks, err := svc.AllTasks(ctx, q)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	summaries := service.Summarize(tasks, users)
	if len(summaries) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	output.FormatSummaryHeader(out)
	for _, s := range summaries {
		output.FormatSummary(out, s)
	}
	output.FormatSummaryTotal(out, summaries)
	return exitcode.Success
}
