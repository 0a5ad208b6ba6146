package fetch

// Hop records a single step in a validated redirect chain.
type Hop struct {
	Index  int    `json:"index"`
	Source string `json:"source"`
	Target string `json:"target,omitempty"`
	Status int    `json:"status"`
	TimeMs int64  `json:"time_ms"`
	Final  bool   `json:"final"`
}
