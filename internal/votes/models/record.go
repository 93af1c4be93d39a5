package models

import (
	"strings"
	"time"

	dErrors "electiondesk/pkg/domain-errors"
)

// Identity is an election official acting on a record.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Role    Role   `json:"role"`
}

func (i Identity) normalized() Identity {
	return Identity{
		ID:      strings.TrimSpace(i.ID),
		Name:    strings.TrimSpace(i.Name),
		Contact: strings.TrimSpace(i.Contact),
		Role:    i.Role,
	}
}

// Location is the district/thana snapshot taken from the registry at validation time.
type Location struct {
	District string `json:"district"`
	Thana    string `json:"thana"`
}

// PartyVotes is one breakdown entry.
type PartyVotes struct {
	PartyID   PartyID `json:"party_id"`
	PartyName string  `json:"party_name"`
	Votes     int64   `json:"votes"`
}

// Draft is an inbound submission before validation. Totals are pointers so an
// omitted figure is distinguishable from zero.
type Draft struct {
	CenterID    CenterID     `json:"center_id"`
	TotalVotes  *int64       `json:"total_votes"`
	TotalVoters *int64       `json:"total_voters"`
	Submitter   Identity     `json:"submitter"`
	Breakdown   []PartyVotes `json:"breakdown,omitempty"`
}

// VoteRecord is one submission attempt for a polling center.
//
// Invariants:
//   - 0 <= TotalVotes <= TotalVoters
//   - every breakdown Votes >= 0 and their sum <= TotalVotes
//   - Status moves at most once, from submitted to verified or rejected
//   - Verifier and VerifiedAt are set exactly when Status is terminal
type VoteRecord struct {
	ID           RecordID     `json:"id"`
	CenterID     CenterID     `json:"center_id"`
	CenterName   string       `json:"center_name"`
	Location     Location     `json:"location"`
	TotalVotes   int64        `json:"total_votes"`
	TotalVoters  int64        `json:"total_voters"`
	Submitter    Identity     `json:"submitter"`
	Breakdown    []PartyVotes `json:"breakdown"`
	SubmittedAt  time.Time    `json:"submitted_at"`
	Status       Status       `json:"status"`
	Verifier     *Identity    `json:"verifier,omitempty"`
	VerifiedAt   *time.Time   `json:"verified_at,omitempty"`
	Reason       string       `json:"reason,omitempty"`
	CorrectionOf *RecordID    `json:"correction_of,omitempty"`
}

// BreakdownSum is the number of votes attributed to parties.
func (r *VoteRecord) BreakdownSum() int64 {
	var sum int64
	for _, pv := range r.Breakdown {
		sum += pv.Votes
	}
	return sum
}

// Unaccounted is the remainder not attributed to any party (spoiled, write-in).
func (r *VoteRecord) Unaccounted() int64 {
	return r.TotalVotes - r.BreakdownSum()
}

// Turnout is TotalVotes/TotalVoters, or 0 when there are no voters.
func (r *VoteRecord) Turnout() float64 {
	if r.TotalVoters == 0 {
		return 0
	}
	return float64(r.TotalVotes) / float64(r.TotalVoters)
}

// Clone returns a deep copy so stores never share slices or pointers with callers.
func (r *VoteRecord) Clone() *VoteRecord {
	c := *r
	c.Breakdown = append([]PartyVotes(nil), r.Breakdown...)
	if r.Verifier != nil {
		v := *r.Verifier
		c.Verifier = &v
	}
	if r.VerifiedAt != nil {
		t := *r.VerifiedAt
		c.VerifiedAt = &t
	}
	if r.CorrectionOf != nil {
		id := *r.CorrectionOf
		c.CorrectionOf = &id
	}
	return &c
}

// CanFinalize checks that the record is still open and that verifier is not its submitter.
// Use with ApplyDecision in Execute callbacks.
func (r *VoteRecord) CanFinalize(verifier Identity) error {
	if !r.Status.CanTransitionTo(StatusVerified) {
		return dErrors.New(dErrors.CodeAlreadyFinalized, "vote record is already "+string(r.Status))
	}
	if strings.TrimSpace(verifier.ID) == r.Submitter.ID {
		return dErrors.New(dErrors.CodeForbidden, "a record cannot be verified by its submitter")
	}
	return nil
}

// ApplyDecision moves the record to its terminal status. Call CanFinalize first.
func (r *VoteRecord) ApplyDecision(d Decision, verifier Identity, reason string, now time.Time) {
	v := verifier.normalized()
	r.Status = d.Target()
	r.Verifier = &v
	r.VerifiedAt = &now
	if d == DecisionReject {
		r.Reason = strings.TrimSpace(reason)
	}
}
