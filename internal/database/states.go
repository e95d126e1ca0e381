// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"encoding/json"
	"fmt"
	"time"
)

// Position is a 2D canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeState is the canonical serialized form of a node. It is what the
// audit trail stores as before/after state, what snapshots persist, and
// what export documents carry. Field set and order are fixed: two equal
// nodes always marshal to the same bytes.
type NodeState struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence"`
	Color      string   `json:"color"`
	Position   Position `json:"position"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
}

// ConnectionState is the canonical serialized form of a connection.
type ConnectionState struct {
	ID          string `json:"id"`
	SourceID    string `json:"source_id"`
	TargetID    string `json:"target_id"`
	ConnType    string `json:"conn_type"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// State returns the canonical state document for a node
func (n *HuginnNode) State() NodeState {
	return NodeState{
		ID:         n.ID,
		Content:    n.Content,
		Summary:    n.Summary,
		Confidence: n.Confidence,
		Color:      n.Color,
		Position:   Position{X: n.PositionX, Y: n.PositionY},
		CreatedAt:  formatStateTime(n.CreatedAt),
		UpdatedAt:  formatStateTime(n.UpdatedAt),
	}
}

// StateJSON returns the node state document as JSON
func (n *HuginnNode) StateJSON() (string, error) {
	return marshalState(n.State())
}

// State returns the canonical state document for a connection
func (c *HuginnConnection) State() ConnectionState {
	return ConnectionState{
		ID:          c.ID,
		SourceID:    c.SourceID,
		TargetID:    c.TargetID,
		ConnType:    c.ConnType,
		Description: c.Description,
		CreatedAt:   formatStateTime(c.CreatedAt),
		UpdatedAt:   formatStateTime(c.UpdatedAt),
	}
}

// StateJSON returns the connection state document as JSON
func (c *HuginnConnection) StateJSON() (string, error) {
	return marshalState(c.State())
}

func marshalState(state interface{}) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to marshal state document: %w", err)
	}
	return string(raw), nil
}

// formatStateTime renders timestamps inside state documents. RFC3339
// with nanoseconds is stable for the UTC microsecond values Now()
// produces.
func formatStateTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
