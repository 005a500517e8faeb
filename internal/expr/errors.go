package expr

import (
	"errors"
	"fmt"
)

// Error kinds raised at tree construction. All are fatal: an invalid
// tree is never built, and callers are expected to propagate.
var (
	// ErrTypeMismatch indicates an operand that is neither a numeric
	// scalar nor a Symbol.
	ErrTypeMismatch = errors.New("operand is not a number or symbol")

	// ErrDomainMismatch indicates children with non-empty, unequal,
	// non-broadcastable domains.
	ErrDomainMismatch = errors.New("domain mismatch")

	// ErrUnsupported indicates an operation with no defined rule, such
	// as differentiating a matrix multiplication. It signals a modeling
	// error upstream rather than a data problem.
	ErrUnsupported = errors.New("unsupported operation")
)

func typeErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrTypeMismatch)...)
}

func domainErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrDomainMismatch)...)
}

func unsupportedErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnsupported)...)
}

// buildError carries a construction error out of deeply nested
// rule-building code; public entry points recover it with catch.
type buildError struct{ err error }

// mustSym unwraps a constructor result inside derivative and
// simplification rules, where operands are already validated and a
// failure means a caller bug upstream.
func mustSym(s Symbol, err error) Symbol {
	if err != nil {
		panic(buildError{err})
	}
	return s
}

// catch converts a buildError panic back into an error return. Any
// other panic is re-raised.
func catch(perr *error) {
	if r := recover(); r != nil {
		be, ok := r.(buildError)
		if !ok {
			panic(r)
		}
		*perr = be.err
	}
}
