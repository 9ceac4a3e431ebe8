package compiler

import "errors"

// ErrInvariant marks a generated program that breaks a structural
// invariant. It always indicates a compiler bug, never bad input.
var ErrInvariant = errors.New("compiler invariant violated")
