package model

// CheckStatus classifies a self-assessment finding.
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// Check is a single self-assessment finding. Delta carries the absolute
// arithmetic mismatch for identity checks.
type Check struct {
	ID      string      `json:"id"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message"`
	Delta   *float64    `json:"delta,omitempty"`
}

// Assessment aggregates the ordered check list plus an integer score:
// 100 minus 20 per fail, minus 5 per warn, clamped to [0, 100].
type Assessment struct {
	Score  int     `json:"score"`
	Checks []Check `json:"checks"`
}

// ComputeScore derives the score from the check statuses.
func ComputeScore(checks []Check) int {
	score := 100
	for _, c := range checks {
		switch c.Status {
		case CheckFail:
			score -= 20
		case CheckWarn:
			score -= 5
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
