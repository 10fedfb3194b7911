package trip

import "errors"

// ErrInvalidInput is returned when a request violates the positivity
// constraints of the active Policy.
var ErrInvalidInput = errors.New("invalid input")
