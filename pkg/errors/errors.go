// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package errors defines the error taxonomy shared by the repository,
// audit, and snapshot layers. Callers branch on the kind via the Is*
// helpers; the serving layer maps each kind to its own failure mode.
package errors

import (
	"errors"
	"fmt"
)

// ValidationError represents malformed or out-of-range input. Caller's
// fault; never retried.
type ValidationError struct {
	Entity string // what was being validated (e.g. "node", "connection")
	Reason string
}

func (e ValidationError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// NotFoundError represents a referenced entity or snapshot that does not exist.
type NotFoundError struct {
	Resource string // the type of resource (e.g. "node", "connection", "snapshot")
	ID       string // the identifier that was not found
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Resource, e.ID)
}

// ConflictError represents a duplicate name or a write conflict detected
// at commit time.
type ConflictError struct {
	Resource string
	ID       string
	Reason   string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("conflict with %s '%s': %s", e.Resource, e.ID, e.Reason)
}

// StorageError wraps a failure of the underlying store. May be retried
// by the caller with backoff.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e StorageError) Unwrap() error {
	return e.Err
}

// NewValidation creates a new ValidationError.
func NewValidation(entity, reason string) ValidationError {
	return ValidationError{Entity: entity, Reason: reason}
}

// NewNotFound creates a new NotFoundError.
func NewNotFound(resource, id string) NotFoundError {
	return NotFoundError{Resource: resource, ID: id}
}

// NewConflict creates a new ConflictError.
func NewConflict(resource, id, reason string) ConflictError {
	return ConflictError{Resource: resource, ID: id, Reason: reason}
}

// NewStorage creates a new StorageError wrapping err.
func NewStorage(op string, err error) StorageError {
	return StorageError{Op: op, Err: err}
}

// IsValidation checks if an error is a ValidationError.
func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// IsConflict checks if an error is a ConflictError.
func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

// IsStorage checks if an error is a StorageError.
func IsStorage(err error) bool {
	var target StorageError
	return errors.As(err, &target)
}
