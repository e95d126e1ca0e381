// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graph

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tejzpr/huginn-mcp/internal/database"
)

// DefaultNodeColor is applied when a create payload omits the color
const DefaultNodeColor = "#157f83"

// DefaultConfidence is applied when a create payload omits confidence
const DefaultConfidence = 1.0

// NodeCreatePayload carries the caller-supplied fields for a new node.
// Optional fields left at their zero value fall back to defaults.
type NodeCreatePayload struct {
	Content    string `validate:"required"`
	Summary    string
	Confidence *float64 `validate:"omitempty,gte=0,lte=1"`
	Color      string   `validate:"omitempty,len=7,hexcolor"`
	Position   *database.Position
}

// NodeUpdatePayload is a partial update: nil means "leave unchanged".
// Every field the repository will or will not touch is enumerable here.
type NodeUpdatePayload struct {
	Content    *string `validate:"omitempty,min=1"`
	Summary    *string
	Confidence *float64 `validate:"omitempty,gte=0,lte=1"`
	Color      *string  `validate:"omitempty,len=7,hexcolor"`
	Position   *database.Position
}

// ConnectionCreatePayload carries the caller-supplied fields for a new
// connection. Endpoint existence is checked against the store inside
// the transaction.
type ConnectionCreatePayload struct {
	SourceID    string `validate:"required"`
	TargetID    string `validate:"required,nefield=SourceID"`
	ConnType    string `validate:"required,oneof=supports opposes relates leads_to derives_from"`
	Description string
}

// ConnectionUpdatePayload is a partial update for a connection.
// Changing an endpoint re-validates existence and the no-self-loop rule.
type ConnectionUpdatePayload struct {
	SourceID    *string `validate:"omitempty,min=1"`
	TargetID    *string `validate:"omitempty,min=1"`
	ConnType    *string `validate:"omitempty,oneof=supports opposes relates leads_to derives_from"`
	Description *string
}

// NodeSeed is one node of an incoming whole-graph replacement. The ID
// only identifies the node within the incoming set; a fresh ID is
// assigned at insert.
type NodeSeed struct {
	ID         string `validate:"required"`
	Content    string `validate:"required"`
	Summary    string
	Confidence *float64 `validate:"omitempty,gte=0,lte=1"`
	Color      string   `validate:"omitempty,len=7,hexcolor"`
	Position   database.Position
}

// ConnectionSeed is one connection of an incoming whole-graph
// replacement. Endpoints reference NodeSeed IDs.
type ConnectionSeed struct {
	ID          string
	SourceID    string `validate:"required"`
	TargetID    string `validate:"required,nefield=SourceID"`
	ConnType    string `validate:"required,oneof=supports opposes relates leads_to derives_from"`
	Description string
}

// validationReason flattens a validator error into one issue string
func validationReason(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, ferr := range verrs {
		parts = append(parts, fmt.Sprintf("field %q failed %q", ferr.Field(), ferr.Tag()))
	}
	return strings.Join(parts, "; ")
}
