package candidate

// Candidate is a scored pair of player keys proposed for an operator
// decision. KeyA and KeyB are held in canonical order.
type Candidate struct {
	KeyA          string   `json:"key_a"`
	KeyB          string   `json:"key_b"`
	Score         float64  `json:"score"`
	MatchingParts []string `json:"matching_parts,omitempty"`
}

// Decision is an operator verdict on a candidate pair.
type Decision string

const (
	// DecisionAccept merges the pair under a chosen preferred name.
	DecisionAccept Decision = "accept"
	// DecisionSkip rejects the pair permanently.
	DecisionSkip Decision = "skip"
)

func (d Decision) Valid() bool {
	return d == DecisionAccept || d == DecisionSkip
}
