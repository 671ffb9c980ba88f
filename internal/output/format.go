// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"bx24report/internal/bx24"
	"bx24report/internal/service"
)

const (
	// Separator is the separator line under table headers.
	Separator = "------------"

	// dateLayout is how task dates are shown.
	dateLayout = "2006-01-02"
)

// FormatUser formats a user line.
// Format: "{ID:>4}  {NAME LAST_NAME}  <{EMAIL}>\n"
func FormatUser(w io.Writer, u bx24.User) {
	fmt.Fprintf(w, "%4s  %s  <%s>\n", u.ID, displayName(u), u.Email)
}

// FormatTaskHeader formats the header of a task table.
func FormatTaskHeader(w io.Writer) {
	fmt.Fprintf(w, "%6s  %6s  %4s  %7s  %7s  %-10s  %s\n", "ID", "STATUS", "USER", "EST", "SPENT", "CLOSED", "TITLE")
	fmt.Fprintln(w, Separator)
}

// FormatTask formats a task line.
func FormatTask(w io.Writer, task bx24.Task) {
	fmt.Fprintf(w, "%6s  %6s  %4s  %7s  %7s  %-10s  %s\n",
		task.ID,
		task.Status,
		task.ResponsibleID,
		hours(service.Seconds(task.TimeEstimate)),
		hours(service.Seconds(task.TimeSpentInLogs)),
		day(task.ClosedDate),
		normalizeTitle(task.Title),
	)
}

// FormatPageFooter formats the "showing" line under a task page.
func FormatPageFooter(w io.Writer, page service.TaskPage) {
	if len(page.Tasks) == 0 {
		if page.HasTotal {
			fmt.Fprintf(w, "no tasks in range (total %d)\n", page.Total)
		} else {
			fmt.Fprintln(w, "no tasks in range")
		}
		return
	}
	first := page.Start + 1
	last := page.Start + len(page.Tasks)
	if page.HasTotal {
		fmt.Fprintf(w, "showing %d-%d of %d\n", first, last, page.Total)
		return
	}
	fmt.Fprintf(w, "showing %d-%d\n", first, last)
}

// FormatSummaryHeader formats the header of a report table.
func FormatSummaryHeader(w io.Writer) {
	fmt.Fprintf(w, "%-24s  %5s  %8s  %8s  %5s\n", "USER", "TASKS", "EST", "SPENT", "RATIO")
	fmt.Fprintln(w, Separator)
}

// FormatSummary formats one report line.
func FormatSummary(w io.Writer, s service.UserSummary) {
	fmt.Fprintf(w, "%-24s  %5d  %8s  %8s  %4.0f%%\n",
		displayName(s.User),
		s.Tasks,
		hours(s.Estimate),
		hours(s.Spent),
		s.Ratio()*100,
	)
}

// FormatSummaryTotal formats the closing total line of a report.
func FormatSummaryTotal(w io.Writer, summaries []service.UserSummary) {
	total := service.UserSummary{User: bx24.User{Name: "TOTAL"}}
	for _, s := range summaries {
		total.Tasks += s.Tasks
		total.Estimate += s.Estimate
		total.Spent += s.Spent
	}
	fmt.Fprintln(w, Separator)
	FormatSummary(w, total)
}

// hours renders a duration as decimal hours, e.g. "1.5h".
func hours(d time.Duration) string {
	return fmt.Sprintf("%.1fh", d.Hours())
}

// day shortens an ISO-8601 instant to its UTC date; unparseable values are
// shown as-is.
func day(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.UTC().Format(dateLayout)
}

// displayName returns "NAME LAST_NAME", or "#ID" when both are empty.
func displayName(u bx24.User) string {
	name := strings.TrimSpace(u.Name + " " + u.LastName)
	if name == "" {
		return "#" + u.ID
	}
	return name
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
