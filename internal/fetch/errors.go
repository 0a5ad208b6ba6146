package fetch

import "errors"

// Fetch errors. ErrTransport and ErrTimeout are network-level and eligible
// for caller-side retry; the rest are terminal for the given URL.
var (
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrMissingLocation  = errors.New("redirect without Location header")
	ErrTransport        = errors.New("transport error")
	ErrTimeout          = errors.New("request timed out")
)
