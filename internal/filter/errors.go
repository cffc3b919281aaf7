package filter

import "fmt"

// ParseError indicates a path or filter expression could not be parsed
type ParseError struct {
	Input  string
	Reason string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("invalid expression %q: %s", e.Input, e.Reason)
}
