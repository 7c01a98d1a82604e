package core

import "fmt"

// The four error categories the services return. Handlers pick the HTTP
// status from the category, so the messages stay presentation-free.

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports a lookup that matched no row.
type NotFoundError struct {
	Entity string
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Entity, e.ID)
}

// StateError reports an operation attempted from a lifecycle state that
// does not permit it.
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}

// BusinessRuleError reports a ledger rule violation, such as a payment
// exceeding the amount due.
type BusinessRuleError struct {
	Message string
}

func (e *BusinessRuleError) Error() string {
	return e.Message
}

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func notFoundError(entity string, id int) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func stateErrorf(format string, args ...any) error {
	return &StateError{Message: fmt.Sprintf(format, args...)}
}

func businessRuleErrorf(format string, args ...any) error {
	return &BusinessRuleError{Message: fmt.Sprintf(format, args...)}
}
