package models

// Tally is an aggregate over verified records only.
type Tally struct {
	CenterID    CenterID          `json:"center_id,omitempty"`
	District    string            `json:"district,omitempty"`
	Records     int               `json:"records"`
	TotalVotes  int64             `json:"total_votes"`
	TotalVoters int64             `json:"total_voters"`
	Unaccounted int64             `json:"unaccounted"`
	PartyTotals map[PartyID]int64 `json:"party_totals"`
}

// Turnout is TotalVotes/TotalVoters, or 0 when there are no voters.
func (t *Tally) Turnout() float64 {
	if t.TotalVoters == 0 {
		return 0
	}
	return float64(t.TotalVotes) / float64(t.TotalVoters)
}
