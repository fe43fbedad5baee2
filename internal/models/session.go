package models

import "time"

// SessionStatus is the lifecycle state of a scrape job
type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusError     SessionStatus = "error"
)

// IsTerminal reports whether no further transitions are allowed from s
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusError
}

// ProgressSnapshot is one event on a job's progress channel.
// The latest snapshot for a job fully supersedes the previous one.
type ProgressSnapshot struct {
	Current int           `json:"current"`
	Total   int           `json:"total"`
	Message string        `json:"message"`
	Status  SessionStatus `json:"status"`
	Results []PlaceRecord `json:"results,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Session is the pollable state of one scrape job
type Session struct {
	ID         string        `json:"id" badgerhold:"key"`
	Status     SessionStatus `json:"status"`
	Progress   int           `json:"progress"`
	Total      int           `json:"total"`
	Message    string        `json:"message"`
	Results    []PlaceRecord `json:"results"` // nil while running, non-nil once terminal
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// HasResults reports whether the session has recorded its final results,
// which may be an empty list
func (s Session) HasResults() bool {
	return s.Status.IsTerminal()
}

// Clone returns a copy of s that shares no mutable state with it
func (s Session) Clone() Session {
	out := s
	if s.Results != nil {
		out.Results = append(make([]PlaceRecord, 0, len(s.Results)), s.Results...)
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	return out
}
