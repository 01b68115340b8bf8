package stages

import "fmt"

const (
	DecisionBid    = "BID"
	DecisionNoBid  = "NO_BID"
	DecisionReview = "REVIEW"

	BidThreshold   = 0.7
	NoBidThreshold = 0.5
)

// Decide maps a total score to a decision: at or above 0.7 is BID, below 0.5 is NO_BID,
// everything in between (0.5 included) is REVIEW.
func Decide(total float64) DecisionResult {
	switch {
	case total >= BidThreshold:
		return DecisionResult{
			Decision:  DecisionBid,
			Rationale: fmt.Sprintf("total score %.4f meets the bid threshold %.2f", total, BidThreshold),
		}
	case total < NoBidThreshold:
		return DecisionResult{
			Decision:  DecisionNoBid,
			Rationale: fmt.Sprintf("total score %.4f is below the no-bid threshold %.2f", total, NoBidThreshold),
		}
	default:
		return DecisionResult{
			Decision:  DecisionReview,
			Rationale: fmt.Sprintf("total score %.4f is between %.2f and %.2f; manual review required", total, NoBidThreshold, BidThreshold),
		}
	}
}
