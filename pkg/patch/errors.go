package patch

import "fmt"

// FormatError describes the first structural problem found while parsing
// a patch description: a missing required key, a wrongly typed field, a
// malformed connection entry. Parsing fails fast; shape problems (cycles,
// fan-in counts) are deferred to the validators.
type FormatError struct {
	Field   string
	Message string
}

func (e *FormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func formatErrf(field, format string, args ...any) *FormatError {
	return &FormatError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// LintError describes one graph-shape problem found by a validator.
// Validators accumulate every violation rather than stopping at the
// first, so a user can fix a patch in one pass.
type LintError struct {
	NodeID  string
	Message string
}

func (e LintError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("node %q: %s", e.NodeID, e.Message)
	}
	return e.Message
}
