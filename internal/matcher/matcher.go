// Package matcher picks the best trip for a ride request. Scoring is pure
// arithmetic over the candidate list so the choice is easy to test and
// reproduce.
package matcher

import (
	"routerider/internal/models"
	"routerider/internal/parse"
)

const (
	// DayWeight converts a day of distance into score units. A single day
	// off always outweighs any time-of-day difference.
	DayWeight = 1000

	// MissingDatePenalty applies when either side left the date out.
	// Worse than four days off, better than five.
	MissingDatePenalty = 5000

	// MissingTimePenalty applies when either side left the time out.
	// Five hours of time distance.
	MissingTimePenalty = 300
)

// Score returns the mismatch between a request and a trip; lower is better.
func Score(req *models.RideRequest, trip *models.Trip) int {
	score := 0

	if req.HasDate() && trip.HasDate() {
		days := int(trip.TripDate.Sub(req.RideDate).Hours() / 24)
		if days < 0 {
			days = -days
		}
		score += DayWeight * days
	} else {
		score += MissingDatePenalty
	}

	if req.HasTime() && trip.HasTime() {
		reqMin := parse.Minutes(req.RideTime)
		tripMin := parse.Minutes(trip.TripTime)
		if reqMin >= 0 && tripMin >= 0 {
			diff := tripMin - reqMin
			if diff < 0 {
				diff = -diff
			}
			score += diff
		} else {
			score += MissingTimePenalty
		}
	} else {
		score += MissingTimePenalty
	}

	return score
}

// Best returns the lowest-scoring candidate. Ties go to the earliest created
// trip, then the lowest id, so repeated runs over the same data pick the
// same trip. Nil when there are no candidates.
func Best(req *models.RideRequest, candidates []*models.Trip) *models.Trip {
	var best *models.Trip
	bestScore := 0

	for _, trip := range candidates {
		score := Score(req, trip)
		if best == nil || score < bestScore || (score == bestScore && earlier(trip, best)) {
			best = trip
			bestScore = score
		}
	}
	return best
}

func earlier(a, b *models.Trip) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
