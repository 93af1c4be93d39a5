package audit

import (
	"context"
	"time"
)

// Action names a state change worth an audit trail entry.
type Action string

const (
	ActionVoteSubmitted Action = "vote_submitted"
	ActionVoteVerified  Action = "vote_verified"
	ActionVoteRejected  Action = "vote_rejected"
	ActionVoteCorrected Action = "vote_corrected"

	ActionCenterUpserted Action = "registry_center_upserted"
	ActionPartyUpserted  Action = "registry_party_upserted"
	ActionStatusChanged  Action = "registry_status_changed"
)

// Event is emitted from domain services after a state change commits. It is
// transport-agnostic so sinks can fan out to memory, Kafka, or logs.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name,omitempty"`
	ActorRole string    `json:"actor_role,omitempty"`
	// RecordID is the vote record ID, or the registry entity ID for registry actions.
	RecordID  string `json:"record_id"`
	CenterID  string `json:"center_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Store persists audit events one at a time.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// BatchStore is implemented by sinks that can persist several events per round trip.
type BatchStore interface {
	Store
	AppendBatch(ctx context.Context, events []Event) error
}

// Lister is implemented by sinks that can be read back (memory store, tests).
type Lister interface {
	ListByRecord(ctx context.Context, recordID string) ([]Event, error)
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
