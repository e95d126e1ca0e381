// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"time"
)

// HuginnNode represents a single thought node in the graph
type HuginnNode struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Summary    string    `gorm:"type:text" json:"summary"`
	Confidence float64   `gorm:"default:1" json:"confidence"`
	Color      string    `gorm:"default:'#157f83'" json:"color"`
	PositionX  float64   `json:"position_x"`
	PositionY  float64   `json:"position_y"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for HuginnNode
func (HuginnNode) TableName() string {
	return "huginn_nodes"
}

// HuginnConnection represents a typed directed edge between two nodes
type HuginnConnection struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	SourceID    string    `gorm:"index;not null" json:"source_id"`
	TargetID    string    `gorm:"index;not null" json:"target_id"`
	ConnType    string    `gorm:"not null" json:"conn_type"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Foreign key relationships
	Source HuginnNode `gorm:"foreignKey:SourceID" json:"-"`
	Target HuginnNode `gorm:"foreignKey:TargetID" json:"-"`
}

// TableName specifies the table name for HuginnConnection
func (HuginnConnection) TableName() string {
	return "huginn_connections"
}

// HuginnAudit is one append-only record of an accepted mutation.
// Rows are never updated or deleted; the autoincrement ID is the
// insertion sequence the verifier relies on.
type HuginnAudit struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EntityType  string    `gorm:"index:idx_audits_entity;not null" json:"entity_type"`
	EntityID    *string   `gorm:"index:idx_audits_entity" json:"entity_id,omitempty"`
	Action      string    `gorm:"not null" json:"action"`
	Actor       string    `gorm:"not null" json:"actor"`
	Reason      string    `gorm:"type:text;not null" json:"reason"`
	BeforeState *string   `gorm:"type:text" json:"before_state,omitempty"`
	AfterState  *string   `gorm:"type:text" json:"after_state,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for HuginnAudit
func (HuginnAudit) TableName() string {
	return "huginn_audits"
}

// HuginnSnapshot is a named restore point: a full serialized copy of the
// graph at save time. Distinct from the audit trail.
type HuginnSnapshot struct {
	Name            string    `gorm:"primaryKey" json:"name"`
	Payload         string    `gorm:"type:text;not null" json:"-"`
	NodeCount       int       `gorm:"not null;default:0" json:"node_count"`
	ConnectionCount int       `gorm:"not null;default:0" json:"connection_count"`
	Actor           string    `gorm:"not null" json:"actor"`
	SavedAt         time.Time `gorm:"index" json:"saved_at"`
}

// TableName specifies the table name for HuginnSnapshot
func (HuginnSnapshot) TableName() string {
	return "huginn_snapshots"
}

// EntityType constants for audit records
const (
	EntityTypeNode       = "node"
	EntityTypeConnection = "connection"
	EntityTypeGlobal     = "global"
)

// AuditAction constants for audit records
const (
	AuditActionCreate = "create"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

// ConnType constants for connections
const (
	ConnTypeSupports    = "supports"
	ConnTypeOpposes     = "opposes"
	ConnTypeRelates     = "relates"
	ConnTypeLeadsTo     = "leads_to"
	ConnTypeDerivesFrom = "derives_from"
)

// ValidConnTypes returns all valid connection types
func ValidConnTypes() []string {
	return []string{
		ConnTypeSupports,
		ConnTypeOpposes,
		ConnTypeRelates,
		ConnTypeLeadsTo,
		ConnTypeDerivesFrom,
	}
}

// IsValidConnType checks if a connection type is valid
func IsValidConnType(cType string) bool {
	for _, valid := range ValidConnTypes() {
		if cType == valid {
			return true
		}
	}
	return false
}

// Now returns the timestamp used for every persisted row. UTC at
// microsecond precision so audit state documents round-trip through
// the database without drift.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
