package reconcile

import "errors"

// Only ErrConnect and ErrSchema abort a run. Everything else is
// logged and the reconciliation pass continues.
var (
	ErrConnect           = errors.New("could not connect to the database")
	ErrSchema            = errors.New("could not read the table schema")
	ErrFieldFetch        = errors.New("could not read field")
	ErrUpdate            = errors.New("could not update field")
	ErrOperatorInput     = errors.New("unrecognized operator input")
	ErrInvalidTransition = errors.New("invalid session transition")
)
