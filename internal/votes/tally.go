package votes

import "electiondesk/internal/votes/models"

// Aggregate sums the verified records in records. Records in any other status
// contribute nothing. The result does not depend on input order.
func Aggregate(records []models.VoteRecord) models.Tally {
	t := models.Tally{PartyTotals: make(map[models.PartyID]int64)}
	for i := range records {
		r := &records[i]
		if r.Status != models.StatusVerified {
			continue
		}
		t.Records++
		t.TotalVotes += r.TotalVotes
		t.TotalVoters += r.TotalVoters
		t.Unaccounted += r.Unaccounted()
		for _, pv := range r.Breakdown {
			t.PartyTotals[pv.PartyID] += pv.Votes
		}
	}
	return t
}

// AggregateWhere is Aggregate over the records matching keep.
func AggregateWhere(records []models.VoteRecord, keep func(*models.VoteRecord) bool) models.Tally {
	filtered := make([]models.VoteRecord, 0, len(records))
	for i := range records {
		if keep(&records[i]) {
			filtered = append(filtered, records[i])
		}
	}
	return Aggregate(filtered)
}
