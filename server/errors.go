package eventide

import "errors"

var (
	ErrEmptyName             = errors.New("event has no name")
	ErrNoPayload             = errors.New("delivery carries neither an event nor a trial")
	ErrBoundaryNotIncreasing = errors.New("trial boundary is not after the previous boundary")
	ErrNonNumericValue       = errors.New("event value is not numeric")
)
