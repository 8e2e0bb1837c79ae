/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrDuplicateRegistration is returned when a type is registered twice
	ErrDuplicateRegistration = errors.New("type already registered")

	// ErrNotRegistered is returned when no store is registered for a type
	ErrNotRegistered = errors.New("type not registered")

	// ErrDuplicateItem is returned when an add would violate store uniqueness
	ErrDuplicateItem = errors.New("duplicate item")

	// ErrLoadFailed is returned when a persistence backend fails to load
	ErrLoadFailed = errors.New("load failed")

	// ErrSaveFailed is returned when a persistence backend fails to save
	ErrSaveFailed = errors.New("save failed")
)

// DuplicateRegistrationError reports a second registration for the same type.
type DuplicateRegistrationError struct {
	Type string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("store for type %q already registered", e.Type)
}

func (e *DuplicateRegistrationError) Is(target error) bool {
	return target == ErrDuplicateRegistration
}

// NotRegisteredError reports a lookup for a type with no registered store.
type NotRegisteredError struct {
	Type string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no store registered for type %q", e.Type)
}

func (e *NotRegisteredError) Is(target error) bool {
	return target == ErrNotRegistered
}

// DuplicateItemError reports an add or batch add that collided with an
// existing item or a sibling within the same batch.
type DuplicateItemError struct {
	// Index is the position of the offending item within the batch (0 for a single add).
	Index int
}

func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("duplicate item at index %d", e.Index)
}

func (e *DuplicateItemError) Is(target error) bool {
	return target == ErrDuplicateItem
}

// LoadError wraps a backend failure during LoadAll.
type LoadError struct {
	Backend string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: load failed: %v", e.Backend, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailed
}

// SaveError wraps a backend failure during SaveAll or UpdateSingle.
type SaveError struct {
	Backend string
	Err     error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("%s: save failed: %v", e.Backend, e.Err)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

func (e *SaveError) Is(target error) bool {
	return target == ErrSaveFailed
}

// Helper functions for creating errors

// NewDuplicateRegistrationError creates a new DuplicateRegistrationError
func NewDuplicateRegistrationError(typeName string) error {
	return &DuplicateRegistrationError{Type: typeName}
}

// NewNotRegisteredError creates a new NotRegisteredError
func NewNotRegisteredError(typeName string) error {
	return &NotRegisteredError{Type: typeName}
}

// NewDuplicateItemError creates a new DuplicateItemError
func NewDuplicateItemError(index int) error {
	return &DuplicateItemError{Index: index}
}

// NewLoadError creates a new LoadError
func NewLoadError(backend string, err error) error {
	return &LoadError{Backend: backend, Err: err}
}

// NewSaveError creates a new SaveError
func NewSaveError(backend string, err error) error {
	return &SaveError{Backend: backend, Err: err}
}

// IsDuplicateRegistration checks if an error is a duplicate registration error
func IsDuplicateRegistration(err error) bool {
	return errors.Is(err, ErrDuplicateRegistration)
}

// IsNotRegistered checks if an error is a not registered error
func IsNotRegistered(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}

// IsDuplicateItem checks if an error is a duplicate item error
func IsDuplicateItem(err error) bool {
	return errors.Is(err, ErrDuplicateItem)
}

// IsLoadFailed checks if an error is a load failure
func IsLoadFailed(err error) bool {
	return errors.Is(err, ErrLoadFailed)
}

// IsSaveFailed checks if an error is a save failure
func IsSaveFailed(err error) bool {
	return errors.Is(err, ErrSaveFailed)
}
