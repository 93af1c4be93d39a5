// Package votes holds the pure rules of the vote engine: draft validation,
// registry evidence gathering and tally aggregation.
package votes

import (
	"fmt"
	"strings"

	"electiondesk/internal/votes/models"
	"electiondesk/internal/votes/ports"
	dErrors "electiondesk/pkg/domain-errors"
)

// RegistryEvidence is everything the validator needs from the registry, gathered
// up front. A nil Center or a missing Parties entry means the id did not resolve.
type RegistryEvidence struct {
	Center  *ports.Center
	Parties map[models.PartyID]*ports.Party
}

// CheckRequired is the first validation step. It needs no registry data, so the
// service runs it before any lookups.
func CheckRequired(d models.Draft) error {
	switch {
	case strings.TrimSpace(string(d.CenterID)) == "":
		return dErrors.New(dErrors.CodeMissingField, "center id is required")
	case d.TotalVotes == nil:
		return dErrors.New(dErrors.CodeMissingField, "total votes is required")
	case d.TotalVoters == nil:
		return dErrors.New(dErrors.CodeMissingField, "total voters is required")
	case strings.TrimSpace(d.Submitter.ID) == "":
		return dErrors.New(dErrors.CodeMissingField, "submitter id is required")
	case strings.TrimSpace(d.Submitter.Name) == "":
		return dErrors.New(dErrors.CodeMissingField, "submitter name is required")
	}
	for i, pv := range d.Breakdown {
		if strings.TrimSpace(string(pv.PartyID)) == "" {
			return dErrors.New(dErrors.CodeMissingField, fmt.Sprintf("breakdown entry %d has no party id", i))
		}
	}
	return nil
}

// Validate checks a draft against the gathered registry evidence and returns the
// normalized record, short-circuiting on the first failure. It has no side
// effects; ID, SubmittedAt and Status are left for the caller to assign.
func Validate(d models.Draft, ev RegistryEvidence) (*models.VoteRecord, error) {
	if err := CheckRequired(d); err != nil {
		return nil, err
	}

	center := ev.Center
	if center == nil {
		return nil, dErrors.New(dErrors.CodeUnknownCenter, fmt.Sprintf("polling center %q is not registered", d.CenterID))
	}
	if !center.Active {
		return nil, dErrors.New(dErrors.CodeInactiveCenter, fmt.Sprintf("polling center %q is inactive", d.CenterID))
	}

	totalVotes, totalVoters := *d.TotalVotes, *d.TotalVoters
	if totalVotes < 0 || totalVoters < 0 || totalVotes > totalVoters {
		return nil, dErrors.New(dErrors.CodeInvalidTotals,
			fmt.Sprintf("total votes %d must be between 0 and total voters %d", totalVotes, totalVoters))
	}

	breakdown := make([]models.PartyVotes, 0, len(d.Breakdown))
	for _, pv := range d.Breakdown {
		id := models.PartyID(strings.TrimSpace(string(pv.PartyID)))
		party, ok := ev.Parties[id]
		if !ok || party == nil {
			return nil, dErrors.New(dErrors.CodeUnknownParty, fmt.Sprintf("party %q is not registered", id))
		}
		breakdown = append(breakdown, models.PartyVotes{PartyID: id, PartyName: party.Name, Votes: pv.Votes})
	}

	var sum int64
	for _, pv := range breakdown {
		if pv.Votes < 0 {
			return nil, dErrors.New(dErrors.CodeBreakdownOverflow, fmt.Sprintf("party %q has negative votes", pv.PartyID))
		}
		sum += pv.Votes
		if sum > totalVotes {
			return nil, dErrors.New(dErrors.CodeBreakdownOverflow,
				fmt.Sprintf("breakdown exceeds total votes %d", totalVotes))
		}
	}

	return &models.VoteRecord{
		CenterID:    center.ID,
		CenterName:  center.Name,
		Location:    models.Location{District: center.District, Thana: center.Thana},
		TotalVotes:  totalVotes,
		TotalVoters: totalVoters,
		Submitter: models.Identity{
			ID:      strings.TrimSpace(d.Submitter.ID),
			Name:    strings.TrimSpace(d.Submitter.Name),
			Contact: strings.TrimSpace(d.Submitter.Contact),
			Role:    d.Submitter.Role,
		},
		Breakdown: breakdown,
	}, nil
}
