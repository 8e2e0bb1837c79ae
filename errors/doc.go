/*
Package errors provides semantic error types for the syncstore library.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrDuplicateRegistration = errors.New("type already registered")
	    ErrNotRegistered         = errors.New("type not registered")
	    ErrDuplicateItem         = errors.New("duplicate item")
	    ErrLoadFailed            = errors.New("load failed")
	    ErrSaveFailed            = errors.New("save failed")
	)

Usage:

	// Check error type
	if err := orders.Add(order); err != nil {
	    if errors.IsDuplicateItem(err) {
	        // The order is already present; the store was left untouched.
	        return nil
	    }
	    return err
	}

	// Create typed errors
	err := errors.NewDuplicateRegistrationError("Order")
	err := errors.NewLoadError("pebble", cause)

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
