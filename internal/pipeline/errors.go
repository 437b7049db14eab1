package pipeline

import (
	"fmt"
)

// InvalidInputError rejects a request with a field-specific message. Never
// retried automatically; one of the two failure kinds a farmer sees directly.
type InvalidInputError struct {
	Field string
	Msg   string
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Msg)
}
