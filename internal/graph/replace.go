// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graph

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tejzpr/huginn-mcp/internal/audit"
	"github.com/tejzpr/huginn-mcp/internal/database"
	hugerrors "github.com/tejzpr/huginn-mcp/pkg/errors"
	"gorm.io/gorm"
)

// GraphCounts summarizes graph size in global audit records
type GraphCounts struct {
	NodeCount       int `json:"node_count"`
	ConnectionCount int `json:"connection_count"`
}

// ReplaceResult reports what an atomic whole-graph replacement did
type ReplaceResult struct {
	RemovedNodes       int `json:"removed_nodes"`
	RemovedConnections int `json:"removed_connections"`
	NodeCount          int `json:"node_count"`
	ConnectionCount    int `json:"connection_count"`
}

// ClearResult reports what an atomic whole-graph wipe did
type ClearResult struct {
	ClearedNodes       int       `json:"cleared_nodes"`
	ClearedConnections int       `json:"cleared_connections"`
	ClearedAt          time.Time `json:"cleared_at"`
}

// ReplaceAll atomically deletes every current entity and inserts the
// incoming set as new entities. Incoming IDs are regenerated and
// connection endpoints remapped. Each removed and inserted entity gets
// its own audit record so per-entity chains stay verifiable, and one
// global record summarizes the replacement.
func (r *Repository) ReplaceAll(nodes []NodeSeed, connections []ConnectionSeed, actor, reason string) (*ReplaceResult, error) {
	if err := requireAuditContext(actor, reason); err != nil {
		return nil, err
	}

	seedIDs := make(map[string]bool, len(nodes))
	for _, seed := range nodes {
		if err := r.validate.Struct(seed); err != nil {
			return nil, hugerrors.NewValidation("node", validationReason(err))
		}
		if seedIDs[seed.ID] {
			return nil, hugerrors.NewValidation("node", fmt.Sprintf("duplicate node id %q", seed.ID))
		}
		seedIDs[seed.ID] = true
	}
	for _, seed := range connections {
		if err := r.validate.Struct(seed); err != nil {
			return nil, hugerrors.NewValidation("connection", validationReason(err))
		}
		if !seedIDs[seed.SourceID] {
			return nil, hugerrors.NewValidation("connection",
				fmt.Sprintf("source %q references an unknown node", seed.SourceID))
		}
		if !seedIDs[seed.TargetID] {
			return nil, hugerrors.NewValidation("connection",
				fmt.Sprintf("target %q references an unknown node", seed.TargetID))
		}
	}

	result := &ReplaceResult{}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		beforeCounts, err := countGraph(tx)
		if err != nil {
			return err
		}

		removedConns, removedNodes, err := wipeGraphInTx(tx, actor, reason+" [clear existing graph]")
		if err != nil {
			return err
		}
		result.RemovedConnections = removedConns
		result.RemovedNodes = removedNodes

		now := database.Now()
		restoreReason := reason + " [restore graph]"
		idMap := make(map[string]string, len(nodes))
		for _, seed := range nodes {
			node := &database.HuginnNode{
				ID:         uuid.NewString(),
				Content:    seed.Content,
				Summary:    seed.Summary,
				Confidence: DefaultConfidence,
				Color:      DefaultNodeColor,
				PositionX:  seed.Position.X,
				PositionY:  seed.Position.Y,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if seed.Confidence != nil {
				node.Confidence = *seed.Confidence
			}
			if seed.Color != "" {
				node.Color = seed.Color
			}
			idMap[seed.ID] = node.ID

			if err := tx.Create(node).Error; err != nil {
				return hugerrors.NewStorage("failed to insert node", err)
			}
			if err := appendCreate(tx, database.EntityTypeNode, node.ID, actor, restoreReason, node); err != nil {
				return err
			}
			result.NodeCount++
		}

		for _, seed := range connections {
			conn := &database.HuginnConnection{
				ID:          uuid.NewString(),
				SourceID:    idMap[seed.SourceID],
				TargetID:    idMap[seed.TargetID],
				ConnType:    seed.ConnType,
				Description: seed.Description,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Create(conn).Error; err != nil {
				return hugerrors.NewStorage("failed to insert connection", err)
			}
			if err := appendCreate(tx, database.EntityTypeConnection, conn.ID, actor, restoreReason, conn); err != nil {
				return err
			}
			result.ConnectionCount++
		}

		afterCounts := GraphCounts{NodeCount: result.NodeCount, ConnectionCount: result.ConnectionCount}
		return appendGlobal(tx, database.AuditActionUpdate, actor, reason, &beforeCounts, &afterCounts)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ClearAll atomically empties the graph, with a delete record per
// entity and one global record carrying the cleared counts.
func (r *Repository) ClearAll(actor, reason string) (*ClearResult, error) {
	if err := requireAuditContext(actor, reason); err != nil {
		return nil, err
	}

	result := &ClearResult{}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		beforeCounts, err := countGraph(tx)
		if err != nil {
			return err
		}

		clearedConns, clearedNodes, err := wipeGraphInTx(tx, actor, reason+" [clear existing graph]")
		if err != nil {
			return err
		}
		result.ClearedConnections = clearedConns
		result.ClearedNodes = clearedNodes
		result.ClearedAt = database.Now()

		afterCounts := GraphCounts{NodeCount: clearedNodes, ConnectionCount: clearedConns}
		return appendGlobal(tx, database.AuditActionDelete, actor, reason, &beforeCounts, &afterCounts)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// wipeGraphInTx deletes every connection, then every node, appending a
// delete record for each. Connections go first so no record ever
// references an already-deleted node.
func wipeGraphInTx(tx *gorm.DB, actor, reason string) (connections int, nodes int, err error) {
	var existingConns []database.HuginnConnection
	if err := tx.Order("created_at ASC").Find(&existingConns).Error; err != nil {
		return 0, 0, hugerrors.NewStorage("failed to list connections", err)
	}
	for i := range existingConns {
		if err := deleteConnectionInTx(tx, &existingConns[i], actor, reason); err != nil {
			return 0, 0, err
		}
		connections++
	}

	var existingNodes []database.HuginnNode
	if err := tx.Order("created_at ASC").Find(&existingNodes).Error; err != nil {
		return 0, 0, hugerrors.NewStorage("failed to list nodes", err)
	}
	for i := range existingNodes {
		node := &existingNodes[i]
		before, err := node.StateJSON()
		if err != nil {
			return 0, 0, err
		}
		if err := tx.Delete(&database.HuginnNode{}, "id = ?", node.ID).Error; err != nil {
			return 0, 0, hugerrors.NewStorage("failed to delete node", err)
		}
		if err := appendDelete(tx, database.EntityTypeNode, node.ID, actor, reason, before); err != nil {
			return 0, 0, err
		}
		nodes++
	}
	return connections, nodes, nil
}

func countGraph(tx *gorm.DB) (GraphCounts, error) {
	var counts GraphCounts
	var nodeCount, connCount int64
	if err := tx.Model(&database.HuginnNode{}).Count(&nodeCount).Error; err != nil {
		return counts, hugerrors.NewStorage("failed to count nodes", err)
	}
	if err := tx.Model(&database.HuginnConnection{}).Count(&connCount).Error; err != nil {
		return counts, hugerrors.NewStorage("failed to count connections", err)
	}
	counts.NodeCount = int(nodeCount)
	counts.ConnectionCount = int(connCount)
	return counts, nil
}

// appendGlobal writes the single whole-graph audit record for
// replace/clear operations. Global records carry no entity id.
func appendGlobal(tx *gorm.DB, action, actor, reason string, before, after *GraphCounts) error {
	record := &database.HuginnAudit{
		EntityType: database.EntityTypeGlobal,
		Action:     action,
		Actor:      actor,
		Reason:     reason,
	}
	if before != nil {
		raw, err := json.Marshal(before)
		if err != nil {
			return fmt.Errorf("failed to marshal global before state: %w", err)
		}
		state := string(raw)
		record.BeforeState = &state
	}
	if after != nil {
		raw, err := json.Marshal(after)
		if err != nil {
			return fmt.Errorf("failed to marshal global after state: %w", err)
		}
		state := string(raw)
		record.AfterState = &state
	}
	return audit.Append(tx, record)
}
