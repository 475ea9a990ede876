package pipeline

import (
	"errors"
	"fmt"
)

// ErrStructuredDataAbsent is returned when no parsable structured
// object could be recovered from the concept-map phase, even after
// sanitization. Fatal for the generation attempt.
var ErrStructuredDataAbsent = errors.New("no structured data found in producer output")

// EmptyOutputError is returned when a producer stream yielded zero
// usable events, or the final narrative fell below the minimum length.
// The generator retries the phase once, with a cool-down, before
// surfacing this.
type EmptyOutputError struct {
	Phase string // "concept-map" or "narrative"
}

func (e *EmptyOutputError) Error() string {
	return fmt.Sprintf("producer returned empty output in %s phase", e.Phase)
}
