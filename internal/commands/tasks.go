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
	Register(&TasksCmd{})
}

// TasksCmd implements the tasks command: one page of tasks.task.list.
type TasksCmd struct {
	filters queryFlags
	start   int
	limit   int
}

// SetPage sets the page window (for testing).
func (c *TasksCmd) SetPage(start, limit int) {
	c.start = start
	c.limit = limit
}

// SetFilters sets the filter flags (for testing).
func (c *TasksCmd) SetFilters(users, statuses, from, to string) {
	c.filters = queryFlags{users: users, statuses: statuses, from: from, to: to}
}

func (c *TasksCmd) Name() string      { return "tasks" }
func (c *TasksCmd) Aliases() []string { return []string{"list"} }
func (c *TasksCmd) Synopsis() string  { return "List closed tasks" }
func (c *TasksCmd) Usage() string {
	return "bx24report tasks [--user <ids>] [--status <codes>] [--from <date>] [--to <date>] [--start <n>] [--limit <n>]"
}
func (c *TasksCmd) NeedsClient() bool { return true }

func (c *TasksCmd) RegisterFlags(fs *flag.FlagSet) {
	c.filters.register(fs)
	fs.IntVar(&c.start, "start", 0, "")
	fs.IntVar(&c.limit, "limit", 0, "")
}

func (c *TasksCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if c.start < 0 {
		fmt.Fprintf(errOut, "error: invalid start: %d\n", c.start)
		return exitcode.UserError
	}
	if c.limit < 0 {
		fmt.Fprintf(errOut, "error: invalid limit: %d\n", c.limit)
		return exitcode.UserError
	}

	q, err := c.filters.query()
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	q.Start = c.start
	q.Limit = c.limit

	page, err := svc.ListTasks(ctx, q)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}

	if len(page.Tasks) > 0 {
		output.FormatTaskHeader(out)
		for _, task := range page.Tasks {
			output.FormatTask(out, task)
		}
	}
	if !cfg.Quiet {
		output.FormatPageFooter(out, page)
	}

	return exitcode.Success
}
