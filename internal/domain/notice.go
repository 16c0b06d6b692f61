package domain

import "time"

// Notice is an immutable record that a specific escalation stage fired for
// a case. Notices are never updated or deleted individually; they go away
// only with their case through a cascade delete.
type Notice struct {
	ID      int64
	CaseID  int64
	Stage   Stage
	Title   string
	Message string
	SentAt  time.Time
}
