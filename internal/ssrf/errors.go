package ssrf

import "errors"

// Validation errors. ErrBlockedTarget deliberately carries no detail about
// the resolved address so messages shown to end users cannot leak internal
// network topology.
var (
	ErrInvalidURL    = errors.New("invalid URL")
	ErrBlockedTarget = errors.New("blocked target")
)
