// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package graph implements the graph repository: the only path through
// which node and connection state changes. Every mutation runs in one
// transaction together with its audit record and commits or rolls back
// as a unit.
package graph

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tejzpr/huginn-mcp/internal/audit"
	"github.com/tejzpr/huginn-mcp/internal/database"
	hugerrors "github.com/tejzpr/huginn-mcp/pkg/errors"
	"gorm.io/gorm"
)

// Repository orchestrates CRUD, referential integrity, and audit
// emission over the entity store.
type Repository struct {
	db       *gorm.DB
	validate *validator.Validate
}

// NewRepository creates a new graph repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, validate: validator.New()}
}

// ListNodes returns all nodes in creation order
func (r *Repository) ListNodes() ([]database.HuginnNode, error) {
	var nodes []database.HuginnNode
	if err := r.db.Order("created_at ASC").Find(&nodes).Error; err != nil {
		return nil, hugerrors.NewStorage("failed to list nodes", err)
	}
	return nodes, nil
}

// GetNode returns one node by id
func (r *Repository) GetNode(id string) (*database.HuginnNode, error) {
	var node database.HuginnNode
	if err := r.db.First(&node, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, hugerrors.NewNotFound("node", id)
		}
		return nil, hugerrors.NewStorage("failed to load node", err)
	}
	return &node, nil
}

// ListConnections returns all connections in creation order
func (r *Repository) ListConnections() ([]database.HuginnConnection, error) {
	var connections []database.HuginnConnection
	if err := r.db.Order("created_at ASC").Find(&connections).Error; err != nil {
		return nil, hugerrors.NewStorage("failed to list connections", err)
	}
	return connections, nil
}

// SnapshotState returns a consistent point-in-time view of the graph
func (r *Repository) SnapshotState() ([]database.HuginnNode, []database.HuginnConnection, error) {
	var nodes []database.HuginnNode
	var connections []database.HuginnConnection
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("created_at ASC").Find(&nodes).Error; err != nil {
			return hugerrors.NewStorage("failed to list nodes", err)
		}
		if err := tx.Order("created_at ASC").Find(&connections).Error; err != nil {
			return hugerrors.NewStorage("failed to list connections", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return nodes, connections, nil
}

// CreateNode inserts a new node and its create audit record
func (r *Repository) CreateNode(payload NodeCreatePayload, actor, reason string) (*database.HuginnNode, error) {
	if err := requireAuditContext(actor, reason); err != nil {
		return nil, err
	}
	payload.Content = strings.TrimSpace(payload.Content)
	if err := r.validate.Struct(payload); err != nil {
		return nil, hugerrors.NewValidation("node", validationReason(err))
	}

	now := database.Now()
	node := &database.HuginnNode{
		ID:         uuid.NewString(),
		Content:    payload.Content,
		Summary:    strings.TrimSpace(payload.Summary),
		Confidence: DefaultConfidence,
		Color:      DefaultNodeColor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if payload.Confidence != nil {
		node.Confidence = *payload.Confidence
	}
	if payload.Color != "" {
		node.Color = payload.Color
	}
	if payload.Position != nil {
		node.PositionX = payload.Position.X
		node.PositionY = payload.Position.Y
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(node).Error; err != nil {
			return hugerrors.NewStorage("failed to insert node", err)
		}
		return appendCreate(tx, database.EntityTypeNode, node.ID, actor, reason, node)
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// UpdateNode applies a partial update and records before/after state
func (r *Repository) UpdateNode(id string, payload NodeUpdatePayload, actor, reason string) (*database.HuginnNode, error) {
	if err := requireAuditContext(actor, reason); err != nil {
		return nil, err
	}
	if payload.Content != nil {
		trimmed := strings.TrimSpace(*payload.Content)
		payload.Content = &trimmed
	}
	if payload.Summary != nil {
		trimmed := strings.TrimSpace(*payload.Summary)
		payload.Summary = &trimmed
	}
	if err := r.validate.Struct(payload); err != nil {
		return nil, hugerrors.NewValidation("node", validationReason(err))
	}

	var node database.HuginnNode
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&node, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return hugerrors.NewNotFound("node", id)
			}
			return hugerrors.NewStorage("failed to load node", err)
		}

		before, err := node.StateJSON()
		if err != nil {
			return err
		}

		if payload.Content != nil {
			node.Content = *payload.Content
		}
		if payload.Summary != nil {
			node.Summary = *payload.Summary
		}
		if payload.Confidence != nil {
			node.Confidence = *payload.Confidence
		}
		if payload.Color != nil {
			node.Color = *payload.Color
		}
		if payload.Position != nil {
			node.PositionX = payload.Position.X
			node.PositionY = payload.Position.Y
		}
		node.UpdatedAt = database.Now()

		if err := tx.Save(&node).Error; err != nil {
			return hugerrors.NewStorage("failed to update node", err)
		}
		after, err := node.StateJSON()
		if err != nil {
			return err
		}
		return appendUpdate(tx, database.EntityTypeNode, node.ID, actor, reason, before, after)
	})
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// DeleteNode removes a node and every connection touching it. Each
// cascaded connection gets its own delete record, before the node's
// own delete record, all in one transaction.
func (r *Repository) DeleteNode(id, actor, reason string) error {
	if err := requireAuditContext(actor, reason); err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var node database.HuginnNode
		if err := tx.First(&node, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return hugerrors.NewNotFound("node", id)
			}
			return hugerrors.NewStorage("failed to load node", err)
		}

		var attached []database.HuginnConnection
		err := tx.Where("source_id = ? OR target_id = ?", id, id).
			Order("created_at ASC").Find(&attached).Error
		if err != nil {
			return hugerrors.NewStorage("failed to load attached connections", err)
		}

		cascadeReason := reason + " [cascade by node deletion]"
		for i := range attached {
			if err := deleteConnectionInTx(tx, &attached[i], actor, cascadeReason); err != nil {
				return err
			}
		}

		before, err := node.StateJSON()
		if err != nil {
			return err
		}
		if err := tx.Delete(&database.HuginnNode{}, "id = ?", id).Error; err != nil {
			return hugerrors.NewStorage("failed to delete node", err)
		}
		return appendDelete(tx, database.EntityTypeNode, id, actor, reason, before)
	})
}

// CreateConnection inserts a new connection after checking both
// endpoints exist and are distinct
func (r *Repository) CreateConnection(payload ConnectionCreatePayload, actor, reason string) (*database.HuginnConnection, error) {
	if err := requireAuditContext(actor, reason); err != nil {
		return nil, err
	}
	if err := r.validate.Struct(payload); err != nil {
		return nil, hugerrors.NewValidation("connection", validationReason(err))
	}

	now := database.Now()
	conn := &database.HuginnConnection{
		ID:          uuid.NewString(),
		SourceID:    payload.SourceID,
		TargetID:    payload.TargetID,
		ConnType:    payload.ConnType,
		Description: payload.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := requireNode(tx, payload.SourceID); err != nil {
			return err
		}
		if err := requireNode(tx, payload.TargetID); err != nil {
			return err
		}
		if err := tx.Create(conn).Error; err != nil {
			return hugerrors.NewStorage("failed to insert connection", err)
		}
		return appendCreate(tx, database.EntityTypeConnection, conn.ID, actor, reason, conn)
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// UpdateConnection applies a partial update; endpoint changes re-check
// existence and the no-self-loop rule
func (r *Repository) UpdateConnection(id string, payload ConnectionUpdatePayload, actor, reason string) (*database.HuginnConnection, error) {
	if err := requireAuditContext(actor, reason); err != nil {
		return nil, err
	}
	if err := r.validate.Struct(payload); err != nil {
		return nil, hugerrors.NewValidation("connection", validationReason(err))
	}

	var conn database.HuginnConnection
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&conn, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return hugerrors.NewNotFound("connection", id)
			}
			return hugerrors.NewStorage("failed to load connection", err)
		}

		before, err := conn.StateJSON()
		if err != nil {
			return err
		}

		if payload.SourceID != nil {
			conn.SourceID = *payload.SourceID
		}
		if payload.TargetID != nil {
			conn.TargetID = *payload.TargetID
		}
		if payload.ConnType != nil {
			conn.ConnType = *payload.ConnType
		}
		if payload.Description != nil {
			conn.Description = *payload.Description
		}

		if conn.SourceID == conn.TargetID {
			return hugerrors.NewValidation("connection", "source and target must differ")
		}
		if payload.SourceID != nil {
			if err := requireNode(tx, conn.SourceID); err != nil {
				return err
			}
		}
		if payload.TargetID != nil {
			if err := requireNode(tx, conn.TargetID); err != nil {
				return err
			}
		}

		conn.UpdatedAt = database.Now()
		if err := tx.Save(&conn).Error; err != nil {
			return hugerrors.NewStorage("failed to update connection", err)
		}
		after, err := conn.StateJSON()
		if err != nil {
			return err
		}
		return appendUpdate(tx, database.EntityTypeConnection, conn.ID, actor, reason, before, after)
	})
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// DeleteConnection removes one connection and its delete record
func (r *Repository) DeleteConnection(id, actor, reason string) error {
	if err := requireAuditContext(actor, reason); err != nil {
		return err
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		var conn database.HuginnConnection
		if err := tx.First(&conn, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return hugerrors.NewNotFound("connection", id)
			}
			return hugerrors.NewStorage("failed to load connection", err)
		}
		return deleteConnectionInTx(tx, &conn, actor, reason)
	})
}

// deleteConnectionInTx deletes an already-loaded connection row and
// appends its audit record inside the caller's transaction
func deleteConnectionInTx(tx *gorm.DB, conn *database.HuginnConnection, actor, reason string) error {
	before, err := conn.StateJSON()
	if err != nil {
		return err
	}
	if err := tx.Delete(&database.HuginnConnection{}, "id = ?", conn.ID).Error; err != nil {
		return hugerrors.NewStorage("failed to delete connection", err)
	}
	return appendDelete(tx, database.EntityTypeConnection, conn.ID, actor, reason, before)
}

// requireNode fails with NotFoundError unless the node exists
func requireNode(tx *gorm.DB, id string) error {
	var count int64
	if err := tx.Model(&database.HuginnNode{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return hugerrors.NewStorage("failed to check node existence", err)
	}
	if count == 0 {
		return hugerrors.NewNotFound("node", id)
	}
	return nil
}

// requireAuditContext enforces the non-empty actor/reason contract
// shared by every mutating operation
func requireAuditContext(actor, reason string) error {
	if strings.TrimSpace(actor) == "" {
		return hugerrors.NewValidation("", "actor is required")
	}
	if strings.TrimSpace(reason) == "" {
		return hugerrors.NewValidation("", "reason is required")
	}
	return nil
}

type stater interface {
	StateJSON() (string, error)
}

func appendCreate(tx *gorm.DB, entityType, entityID, actor, reason string, entity stater) error {
	after, err := entity.StateJSON()
	if err != nil {
		return err
	}
	return audit.Append(tx, &database.HuginnAudit{
		EntityType: entityType,
		EntityID:   &entityID,
		Action:     database.AuditActionCreate,
		Actor:      actor,
		Reason:     reason,
		AfterState: &after,
	})
}

func appendUpdate(tx *gorm.DB, entityType, entityID, actor, reason, before, after string) error {
	return audit.Append(tx, &database.HuginnAudit{
		EntityType:  entityType,
		EntityID:    &entityID,
		Action:      database.AuditActionUpdate,
		Actor:       actor,
		Reason:      reason,
		BeforeState: &before,
		AfterState:  &after,
	})
}

func appendDelete(tx *gorm.DB, entityType, entityID, actor, reason, before string) error {
	return audit.Append(tx, &database.HuginnAudit{
		EntityType:  entityType,
		EntityID:    &entityID,
		Action:      database.AuditActionDelete,
		Actor:       actor,
		Reason:      reason,
		BeforeState: &before,
	})
}
