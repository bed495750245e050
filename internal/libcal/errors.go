package libcal

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnreachable marks network-level failures against the upstream:
// connection errors, timeouts, or non-success HTTP statuses that carry no
// parseable body. These are transient from the engine's viewpoint and are
// retried on the next scheduler tick.
var ErrUpstreamUnreachable = errors.New("upstream unreachable")

// FormatError is returned when an upstream response cannot be mapped into
// the expected shape. The upstream is not a documented API, so schema drift
// must fail loud and locally instead of propagating bad data into the state
// machine. Raw carries a truncated snippet of the offending payload for
// diagnostics.
type FormatError struct {
	Reason string
	Raw    string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("upstream format error: %s", e.Reason)
}

const rawSnippetLimit = 512

func newFormatError(reason string, raw []byte) *FormatError {
	snippet := string(raw)
	if len(snippet) > rawSnippetLimit {
		snippet = snippet[:rawSnippetLimit]
	}
	return &FormatError{Reason: reason, Raw: snippet}
}

// IsFormatError reports whether err is (or wraps) a FormatError
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
