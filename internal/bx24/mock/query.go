package mock

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"time"

	"bx24report/internal/bx24"
)

// record pairs a task with its parsed close date so date bounds are
// compared as instants rather than strings.
type record struct {
	task   bx24.Task
	closed time.Time
}

// boundLayouts are the date formats accepted for CLOSED_DATE bounds.
var boundLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// query applies the tasks.task.list filter, then paginates.
// Filters are conjunctive and keep generation order. total is the filtered
// count before pagination.
func query(records []record, params bx24.Params) (page []bx24.Task, total int, err error) {
	filtered := records

	if ids, ok := candidates(params.Filter[bx24.FilterResponsibleID]); ok {
		filtered = keep(filtered, func(r record) bool {
			return slices.Contains(ids, r.task.ResponsibleID)
		})
	}

	if statuses, ok := candidates(params.Filter[bx24.FilterStatus]); ok {
		filtered = keep(filtered, func(r record) bool {
			return slices.Contains(statuses, r.task.Status)
		})
	}

	// An unparseable bound matches nothing; the error is reported to the
	// caller for logging, not as a call failure.
	if v, ok := params.Filter[bx24.FilterClosedFrom]; ok && !isBlank(v) {
		from, perr := parseBound(v)
		if perr != nil {
			err = perr
			filtered = nil
		} else {
			filtered = keep(filtered, func(r record) bool {
				return !r.closed.Before(from)
			})
		}
	}

	if v, ok := params.Filter[bx24.FilterClosedTo]; ok && !isBlank(v) {
		to, perr := parseBound(v)
		if perr != nil {
			err = perr
			filtered = nil
		} else {
			filtered = keep(filtered, func(r record) bool {
				return !r.closed.After(to)
			})
		}
	}

	total = len(filtered)

	start := params.Start
	if start < 0 {
		start = bx24.DefaultStart
	}
	limit := params.Limit
	if limit <= 0 {
		limit = bx24.DefaultLimit
	}

	page = make([]bx24.Task, 0, min(limit, max(total-start, 0)))
	for i := start; i < total && i-start < limit; i++ {
		page = append(page, filtered[i].task)
	}
	return page, total, err
}

func keep(records []record, pred func(record) bool) []record {
	out := make([]record, 0, len(records))
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// candidates normalizes a scalar or list filter value to a set of strings.
// Absent and empty-string values report ok=false so the key is ignored.
func candidates(v any) ([]string, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string:
		if x == "" {
			return nil, false
		}
		return []string{x}, true
	case []string:
		return x, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []string{scalar(v)}, true
	}
	out := make([]string, rv.Len())
	for i := range out {
		out[i] = scalar(rv.Index(i).Interface())
	}
	return out, true
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func parseBound(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		for _, layout := range boundLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid date bound: %q", x)
	default:
		return time.Time{}, fmt.Errorf("invalid date bound: %v", v)
	}
}
