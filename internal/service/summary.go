package service

import (
	"strconv"
	"time"

	"bx24report/internal/bx24"
)

// UserSummary aggregates tracked time for one responsible user.
type UserSummary struct {
	User     bx24.User
	Tasks    int
	Estimate time.Duration
	Spent    time.Duration
}

// Ratio returns spent time as a fraction of the estimate, or 0 without one.
func (s UserSummary) Ratio() float64 {
	if s.Estimate <= 0 {
		return 0
	}
	return float64(s.Spent) / float64(s.Estimate)
}

// Summarize groups tasks by responsible user. Users keep the order given;
// users without tasks are omitted, and responsible IDs missing from users
// are appended in order of first appearance.
func Summarize(tasks []bx24.Task, users []bx24.User) []UserSummary {
	byID := make(map[string]*UserSummary)
	var order []string

	for _, u := range users {
		if _, ok := byID[u.ID]; ok {
			continue
		}
		byID[u.ID] = &UserSummary{User: u}
		order = append(order, u.ID)
	}

	for _, task := range tasks {
		s, ok := byID[task.ResponsibleID]
		if !ok {
			s = &UserSummary{User: bx24.User{ID: task.ResponsibleID}}
			byID[task.ResponsibleID] = s
			order = append(order, task.ResponsibleID)
		}
		s.Tasks++
		s.Estimate += Seconds(task.TimeEstimate)
		s.Spent += Seconds(task.TimeSpentInLogs)
	}

	var result []UserSummary
	for _, id := range order {
		if s := byID[id]; s.Tasks > 0 {
			result = append(result, *s)
		}
	}
	return result
}

// Seconds parses a decimal seconds string. Malformed values count as zero.
func Seconds(s string) time.Duration {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0
	}
	return time.Duration(n * float64(time.Second))
}
