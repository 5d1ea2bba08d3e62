package signals

import "errors"

// ErrTypeMismatch is returned when a type-erased write carries a value
// whose dynamic type does not match the cell's value type.
var ErrTypeMismatch = errors.New("signals: value type mismatch")
