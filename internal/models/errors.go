package models

import (
	"errors"
	"fmt"
)

// Provider errors
var (
	// ErrNotSupported is returned when a provider does not offer a feature.
	ErrNotSupported = errors.New("feature not supported by provider")
	// ErrUnimplemented is returned when a provider claims a feature but does
	// not implement the method behind it.
	ErrUnimplemented = errors.New("provider method not implemented")
	ErrNotFound      = errors.New("not found")
	ErrMissingID     = errors.New("missing id")
	// ErrInvalidOptions marks a call the caller got wrong, such as a
	// confirmation without the amount its action needs.
	ErrInvalidOptions = errors.New("invalid options")
)

// FeatureError ties ErrNotSupported or ErrUnimplemented to the provider and
// feature that produced it.
type FeatureError struct {
	Provider string
	Feature  Feature
	Err      error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Feature, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }

// MissingFieldError is returned when reading an attribute the provider did
// not populate.
type MissingFieldError struct {
	Field  string
	Record string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("the field %s is missing for %s", e.Field, e.Record)
}

// InvalidActionError is returned when an operation is asked to move to a
// state its current status does not allow.
type InvalidActionError struct {
	ID     string
	Action string
	Status Status
}

func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("cannot perform the action '%s' for transaction '%s' while in status '%s'",
		e.Action, e.ID, e.Status)
}

// InvalidCardError is returned when a card action is attempted with an
// instrument that is invalid or expired.
type InvalidCardError struct {
	ID      string
	Action  Feature
	Expired bool
}

func (e *InvalidCardError) Error() string {
	reason := "invalid"
	if e.Expired {
		reason = "expired"
	}
	return fmt.Sprintf("cannot %s with card '%s': card is %s", e.Action, e.ID, reason)
}
