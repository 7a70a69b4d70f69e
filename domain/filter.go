package domain

import "strings"

// MatchesSearch reports whether the title or description contains query,
// ignoring case. An empty query matches every task; a missing description
// never matches a non-empty query.
func (t Task) MatchesSearch(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), q)
}

// MatchesPriority reports whether the task passes a priority selection.
// The empty selection and PriorityAll pass everything.
func (t Task) MatchesPriority(p Priority) bool {
	if p == "" || p == PriorityAll {
		return true
	}
	return t.Priority == p
}

// FilterTasks returns the tasks matching both the search query and the
// priority selection, in their original order. The input is not modified.
func FilterTasks(tasks []Task, query string, p Priority) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.MatchesSearch(query) && t.MatchesPriority(p) {
			out = append(out, t)
		}
	}
	return out
}
