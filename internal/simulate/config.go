package simulate

import "time"

// Config holds configuration for a simulated session.
type Config struct {
	BaseURL    string        // Base URL of the service
	Rounds     int           // Number of presentations to resolve, human or inferred
	Noise      float64       // Probability of answering against the hidden order
	MinLatency time.Duration // Lower bound of simulated think time
	MaxLatency time.Duration // Upper bound of simulated think time
	Seed       int64         // Seed for the hidden order, noise and latency
	TopK       int           // Size of the head compared by TopKOverlap
	Reset      bool          // Reset the session before playing
	Timeout    time.Duration // HTTP request timeout
	PollEvery  time.Duration // Poll interval while a pair resolves itself
	OutputFile string        // Optional JSON report path
	MinTau     float64       // Fail when Kendall tau ends below this
}

// Report summarizes a simulated session.
type Report struct {
	Items       int           `json:"items"`
	Human       int           `json:"human"`
	Auto        int           `json:"auto"`
	Rejected    int           `json:"rejected"`
	Flipped     int           `json:"flipped"`
	Truth       []string      `json:"truth"`
	Observed    []string      `json:"observed"`
	KendallTau  float64       `json:"kendall_tau"`
	TopK        int           `json:"top_k"`
	TopKOverlap float64       `json:"top_k_overlap"`
	StartTime   time.Time     `json:"start_time"`
	Duration    time.Duration `json:"duration"`
}
