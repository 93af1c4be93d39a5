package models

import (
	"strings"

	"github.com/google/uuid"

	dErrors "electiondesk/pkg/domain-errors"
)

// RecordID identifies one submission attempt.
type RecordID uuid.UUID

// CenterID is the polling center identifier as used by the registry.
type CenterID string

// PartyID is the party identifier as used by the registry.
type PartyID string

func NewRecordID() RecordID { return RecordID(uuid.New()) }

func (id RecordID) String() string { return uuid.UUID(id).String() }

func (id RecordID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id RecordID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *RecordID) UnmarshalText(b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = RecordID(parsed)
	return nil
}

// ParseRecordID parses a canonical UUID string.
func ParseRecordID(raw string) (RecordID, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return RecordID{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "record id must be a UUID")
	}
	return RecordID(parsed), nil
}
