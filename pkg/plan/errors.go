package plan

import "fmt"

// ResolutionError is a late-stage failure: an export name with no
// metadata, a metadata lookup that itself failed, or an internal
// invariant violation in the scheduler. Unlike validation, resolution
// fails fast with a single descriptive error — these indicate a missing
// external input or a bug in an earlier stage, not a fixable patch.
type ResolutionError struct {
	NodeID  string
	Message string
	Err     error
}

func (e *ResolutionError) Error() string {
	msg := e.Message
	if e.NodeID != "" {
		msg = fmt.Sprintf("node %q: %s", e.NodeID, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func resolutionErrf(nodeID, format string, args ...any) *ResolutionError {
	return &ResolutionError{NodeID: nodeID, Message: fmt.Sprintf(format, args...)}
}
