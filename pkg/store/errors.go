package store

import "errors"

// Error taxonomy for store operations.
//
// Definition and caller errors are returned wrapped with context and are never retried.
// A CAS mismatch on Client.SaveRecord is not an error: it is reported as a false return.
var (
	// ErrMissingField is returned when a required record field is absent.
	ErrMissingField = errors.New("missing field")

	// ErrInvalidValue is returned when nulling a required field or removing an absent optional one.
	ErrInvalidValue = errors.New("invalid value")

	// ErrUnresolvedKey is returned when a structure key still has unresolved tokens,
	// or when the number of token values does not match the declared key tokens.
	ErrUnresolvedKey = errors.New("unresolved key")

	// ErrJoinArity is returned when a join's key_on length differs from the target's key tokens.
	ErrJoinArity = errors.New("join arity mismatch")

	// ErrNotDefined is returned when a catalog lookup finds no definition for an identifier.
	ErrNotDefined = errors.New("not defined")

	// ErrUnsupported is returned for operations a structure type does not provide.
	ErrUnsupported = errors.New("unsupported")
)

// IsNotDefined returns true if the error is a catalog "not defined" error.
func IsNotDefined(err error) bool {
	return errors.Is(err, ErrNotDefined)
}
