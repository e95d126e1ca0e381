// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		check   func(error) bool
		others  []func(error) bool
		message string
	}{
		{
			name:    "validation",
			err:     NewValidation("node", "content is required"),
			check:   IsValidation,
			others:  []func(error) bool{IsNotFound, IsConflict, IsStorage},
			message: "invalid node: content is required",
		},
		{
			name:    "not found",
			err:     NewNotFound("snapshot", "v1"),
			check:   IsNotFound,
			others:  []func(error) bool{IsValidation, IsConflict, IsStorage},
			message: "snapshot 'v1' not found",
		},
		{
			name:    "conflict",
			err:     NewConflict("snapshot", "v1", "name already exists"),
			check:   IsConflict,
			others:  []func(error) bool{IsValidation, IsNotFound, IsStorage},
			message: "conflict with snapshot 'v1': name already exists",
		},
		{
			name:    "storage",
			err:     NewStorage("failed to insert node", fmt.Errorf("disk full")),
			check:   IsStorage,
			others:  []func(error) bool{IsValidation, IsNotFound, IsConflict},
			message: "failed to insert node: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			for _, other := range tt.others {
				assert.False(t, other(tt.err))
			}
			assert.Equal(t, tt.message, tt.err.Error())
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("delete node: %w", NewNotFound("node", "abc"))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
}

func TestStorageUnwrap(t *testing.T) {
	cause := fmt.Errorf("locked")
	err := NewStorage("commit failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestValidationWithoutEntity(t *testing.T) {
	err := NewValidation("", "actor is required")
	assert.Equal(t, "invalid input: actor is required", err.Error())
}
