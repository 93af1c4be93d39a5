package models

import (
	"strings"
	"time"

	dErrors "electiondesk/pkg/domain-errors"
)

// CenterID is the external-facing polling center identifier (e.g. "PC-001").
type CenterID string

// PartyID is the external-facing party identifier.
type PartyID string

func (id CenterID) String() string { return string(id) }
func (id PartyID) String() string  { return string(id) }

// Status is the registry lifecycle state shared by centers and parties.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusInactive
}

// ParseStatus accepts "active" and "inactive" in any case.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "status must be active or inactive")
	}
	return s, nil
}

// PollingCenter is a physical voting location.
//
// Voters is the registered-voter count published for the center. Vote records
// carry their own TotalVoters; this figure is informational.
type PollingCenter struct {
	ID        CenterID  `json:"id"`
	District  string    `json:"district"`
	Thana     string    `json:"thana"`
	Name      string    `json:"name"`
	Voters    int64     `json:"voters"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *PollingCenter) IsActive() bool {
	return c.Status == StatusActive
}

// PoliticalParty is a party that may appear in a vote breakdown.
type PoliticalParty struct {
	ID        PartyID   `json:"id"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol,omitempty"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *PoliticalParty) IsActive() bool {
	return p.Status == StatusActive
}

// NewPollingCenter trims input and enforces the registry invariants.
// An empty status defaults to active.
func NewPollingCenter(id CenterID, district, thana, name string, voters int64, status Status, now time.Time) (*PollingCenter, error) {
	c := &PollingCenter{
		ID:        CenterID(strings.TrimSpace(string(id))),
		District:  strings.TrimSpace(district),
		Thana:     strings.TrimSpace(thana),
		Name:      strings.TrimSpace(name),
		Voters:    voters,
		Status:    status,
		UpdatedAt: now,
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	switch {
	case c.ID == "":
		return nil, dErrors.New(dErrors.CodeMissingField, "center id is required")
	case c.Name == "":
		return nil, dErrors.New(dErrors.CodeMissingField, "center name is required")
	case c.District == "":
		return nil, dErrors.New(dErrors.CodeMissingField, "center district is required")
	case c.Voters < 0:
		return nil, dErrors.New(dErrors.CodeBadRequest, "registered voters cannot be negative")
	case !c.Status.IsValid():
		return nil, dErrors.New(dErrors.CodeBadRequest, "status must be active or inactive")
	}
	return c, nil
}

// NewPoliticalParty trims input and enforces the registry invariants.
// An empty status defaults to active.
func NewPoliticalParty(id PartyID, name, symbol string, status Status, now time.Time) (*PoliticalParty, error) {
	p := &PoliticalParty{
		ID:        PartyID(strings.TrimSpace(string(id))),
		Name:      strings.TrimSpace(name),
		Symbol:    strings.TrimSpace(symbol),
		Status:    status,
		UpdatedAt: now,
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	switch {
	case p.ID == "":
		return nil, dErrors.New(dErrors.CodeMissingField, "party id is required")
	case p.Name == "":
		return nil, dErrors.New(dErrors.CodeMissingField, "party name is required")
	case !p.Status.IsValid():
		return nil, dErrors.New(dErrors.CodeBadRequest, "status must be active or inactive")
	}
	return p, nil
}
