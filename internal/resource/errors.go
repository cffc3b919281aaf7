package resource

import "fmt"

// InvalidAttributeError indicates a typed core attribute failed its
// construction invariant
type InvalidAttributeError struct {
	Attribute string
	Reason    string
}

func (e InvalidAttributeError) Error() string {
	return fmt.Sprintf("invalid attribute %s: %s", e.Attribute, e.Reason)
}
