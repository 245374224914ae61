package audit

import "time"

// Record is one immutable action entry. Records are append-only and stored
// most-recent-first.
type Record struct {
	ID        string    `json:"id" db:"id"`
	Timestamp time.Time `json:"timestamp" db:"ts"` // UTC
	ActorID   string    `json:"actor_id" db:"actor_id"`
	ActorName string    `json:"actor_name" db:"actor_name"`
	ActorRole string    `json:"actor_role" db:"actor_role"`
	Action    string    `json:"action" db:"action"`
	Summary   string    `json:"summary" db:"summary"`
}
