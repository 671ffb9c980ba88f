package commands

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"bx24report/internal/service"
)

// dateLayouts are accepted by --from and --to.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// queryFlags holds the task filter flags shared by tasks and report.
type queryFlags struct {
	users    string
	statuses string
	from     string
	to       string
}

func (q *queryFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&q.users, "user", "", "")
	fs.StringVar(&q.statuses, "status", "", "")
	fs.StringVar(&q.from, "from", "", "")
	fs.StringVar(&q.to, "to", "", "")
}

// query builds a service.Query from the flags.
// A date-only --to covers the whole day.
func (q *queryFlags) query() (service.Query, error) {
	var query service.Query
	query.ResponsibleIDs = splitList(q.users)
	query.Statuses = splitList(q.statuses)

	var err error
	if query.ClosedFrom, err = parseDate("from", q.from, false); err != nil {
		return service.Query{}, err
	}
	if query.ClosedTo, err = parseDate("to", q.to, true); err != nil {
		return service.Query{}, err
	}
	if !query.ClosedFrom.IsZero() && !query.ClosedTo.IsZero() && query.ClosedTo.Before(query.ClosedFrom) {
		return service.Query{}, fmt.Errorf("invalid date range: --to is before --from")
	}
	return query, nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDate(name, s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if endOfDay && layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --%s date: %s", name, s)
}
