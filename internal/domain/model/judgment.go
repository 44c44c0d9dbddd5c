package model

import "time"

// Judgment is the immutable record of one resolved comparison.
type Judgment struct {
	ID        string    `json:"id"`
	Winner    string    `json:"winner"`
	Loser     string    `json:"loser"`
	Timestamp time.Time `json:"timestamp"`
	LatencyMS int64     `json:"latency_ms"`
	Auto      bool      `json:"auto"`
}

// Latency returns the decision latency as a duration.
func (j Judgment) Latency() time.Duration {
	return time.Duration(j.LatencyMS) * time.Millisecond
}

// Conflict flags a human decision that took longer than the hard-choice
// threshold.
type Conflict struct {
	Pair      [2]string `json:"pair"`
	Winner    string    `json:"winner"`
	LatencyMS int64     `json:"latency_ms"`
}

// Inference is a comparison outcome implied by a chain of prior judgments.
type Inference struct {
	WinnerIndex int      `json:"winner_index"`
	Winner      string   `json:"winner"`
	Loser       string   `json:"loser"`
	Chain       []string `json:"chain"`
	Reason      string   `json:"reason"`
}

// Presentation is one displayed pair awaiting resolution.
type Presentation struct {
	ID          string     `json:"id"`
	Pair        Pair       `json:"pair"`
	Definitions [2]string  `json:"definitions"`
	Rematch     bool       `json:"rematch"`
	Phase       string     `json:"phase"`
	PresentedAt time.Time  `json:"presented_at"`
	Auto        *Inference `json:"auto,omitempty"`
}
