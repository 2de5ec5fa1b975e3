package modelq

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for statement construction.
var (
	// ErrUnknownIdentifier is the base of all unknown-identifier errors:
	// a property, association, operator or directive name that does not
	// resolve. These always fail before any query is sent.
	ErrUnknownIdentifier = errors.New("modelq: unknown identifier")

	// ErrInvalidShape is the base of all invalid-shape errors: malformed
	// group-by, sort or where-operator input.
	ErrInvalidShape = errors.New("modelq: invalid input shape")

	// ErrRegistryLinked is returned when registering a model after the
	// registry has been linked.
	ErrRegistryLinked = errors.New("modelq: registry already linked")

	// ErrRegistryUnlinked is returned when resolving associations before
	// the registry has been linked.
	ErrRegistryUnlinked = errors.New("modelq: registry not linked")
)

// UnknownPropertyError is returned when a property name does not resolve
// against a model, at any nesting level of a filter, set, sort or group
// input.
type UnknownPropertyError struct {
	Table    string
	Property string
}

// Error returns the error string.
func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("modelq: unknown property %q on table %q", e.Property, e.Table)
}

// Is reports whether the target matches ErrUnknownIdentifier.
func (e *UnknownPropertyError) Is(err error) bool {
	return err == ErrUnknownIdentifier
}

// NewUnknownPropertyError returns a new UnknownPropertyError.
func NewUnknownPropertyError(table, property string) *UnknownPropertyError {
	return &UnknownPropertyError{Table: table, Property: property}
}

// IsUnknownProperty returns true if the error is an UnknownPropertyError.
func IsUnknownProperty(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownPropertyError
	return errors.As(err, &e)
}

// UnknownAssociationError is returned when an association name does not
// resolve against a model.
type UnknownAssociationError struct {
	Table       string
	Association string
}

// Error returns the error string.
func (e *UnknownAssociationError) Error() string {
	return fmt.Sprintf("modelq: unknown association %q on table %q", e.Association, e.Table)
}

// Is reports whether the target matches ErrUnknownIdentifier.
func (e *UnknownAssociationError) Is(err error) bool {
	return err == ErrUnknownIdentifier
}

// NewUnknownAssociationError returns a new UnknownAssociationError.
func NewUnknownAssociationError(table, association string) *UnknownAssociationError {
	return &UnknownAssociationError{Table: table, Association: association}
}

// IsUnknownAssociation returns true if the error is an UnknownAssociationError.
func IsUnknownAssociation(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownAssociationError
	return errors.As(err, &e)
}

// UnknownModelError is returned when a model name does not resolve against
// the registry.
type UnknownModelError struct {
	Model string
}

// Error returns the error string.
func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("modelq: unknown model %q", e.Model)
}

// Is reports whether the target matches ErrUnknownIdentifier.
func (e *UnknownModelError) Is(err error) bool {
	return err == ErrUnknownIdentifier
}

// NewUnknownModelError returns a new UnknownModelError.
func NewUnknownModelError(model string) *UnknownModelError {
	return &UnknownModelError{Model: model}
}

// IsUnknownModel returns true if the error is an UnknownModelError.
func IsUnknownModel(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownModelError
	return errors.As(err, &e)
}

// UnknownOperatorError is returned when a filter operator key (e.g. "$gte")
// is not recognized.
type UnknownOperatorError struct {
	Operator string
}

// Error returns the error string.
func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("modelq: unknown comparison operator %q", e.Operator)
}

// Is reports whether the target matches ErrUnknownIdentifier.
func (e *UnknownOperatorError) Is(err error) bool {
	return err == ErrUnknownIdentifier
}

// NewUnknownOperatorError returns a new UnknownOperatorError.
func NewUnknownOperatorError(operator string) *UnknownOperatorError {
	return &UnknownOperatorError{Operator: operator}
}

// IsUnknownOperator returns true if the error is an UnknownOperatorError.
func IsUnknownOperator(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownOperatorError
	return errors.As(err, &e)
}

// UnknownDirectiveError is returned when an object-shaped update directive
// (e.g. "$inc") is not recognized.
type UnknownDirectiveError struct {
	Directive string
}

// Error returns the error string.
func (e *UnknownDirectiveError) Error() string {
	return fmt.Sprintf("modelq: unknown update directive %q", e.Directive)
}

// Is reports whether the target matches ErrUnknownIdentifier.
func (e *UnknownDirectiveError) Is(err error) bool {
	return err == ErrUnknownIdentifier
}

// NewUnknownDirectiveError returns a new UnknownDirectiveError.
func NewUnknownDirectiveError(directive string) *UnknownDirectiveError {
	return &UnknownDirectiveError{Directive: directive}
}

// IsUnknownDirective returns true if the error is an UnknownDirectiveError.
func IsUnknownDirective(err error) bool {
	if err == nil {
		return false
	}
	var e *UnknownDirectiveError
	return errors.As(err, &e)
}

// InvalidShapeError is returned when a builder input has the wrong shape:
// an empty group-by, a malformed sort value, or an operator paired with a
// value it cannot compare against.
type InvalidShapeError struct {
	Input   string // the offending input, e.g. "groupBy" or "$gt"
	Message string
}

// Error returns the error string.
func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("modelq: invalid %s: %s", e.Input, e.Message)
}

// Is reports whether the target matches ErrInvalidShape.
func (e *InvalidShapeError) Is(err error) bool {
	return err == ErrInvalidShape
}

// NewInvalidShapeError returns a new InvalidShapeError.
func NewInvalidShapeError(input, message string) *InvalidShapeError {
	return &InvalidShapeError{Input: input, Message: message}
}

// IsInvalidShape returns true if the error is an InvalidShapeError.
func IsInvalidShape(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidShapeError
	return errors.As(err, &e)
}
