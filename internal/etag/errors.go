package etag

import "fmt"

// InvalidTagError indicates a wire entity tag could not be parsed
type InvalidTagError struct {
	Tag    string
	Reason string
}

func (e InvalidTagError) Error() string {
	return fmt.Sprintf("invalid entity tag %q: %s", e.Tag, e.Reason)
}
