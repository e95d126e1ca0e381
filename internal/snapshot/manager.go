// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package snapshot manages named restore points of the full graph and
// the portable export/import document. Every state change it causes
// flows through the graph repository so it is audited uniformly; the
// snapshot collection itself is not part of the audit trail.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tejzpr/huginn-mcp/internal/database"
	"github.com/tejzpr/huginn-mcp/internal/graph"
	hugerrors "github.com/tejzpr/huginn-mcp/pkg/errors"
	"gorm.io/gorm"
)

// ExportFormat tags portable graph documents
const ExportFormat = "huginn-graph-export-v1"

// MaxNameLength caps snapshot names
const MaxNameLength = 120

// Manager owns the snapshot collection
type Manager struct {
	db   *gorm.DB
	repo *graph.Repository
}

// NewManager creates a new snapshot manager
func NewManager(db *gorm.DB, repo *graph.Repository) *Manager {
	return &Manager{db: db, repo: repo}
}

// Document is the portable whole-graph form used by export, import,
// and the stored snapshot payload. Shape is stable for round-tripping.
type Document struct {
	Format            string                     `json:"format,omitempty"`
	ExportedAt        string                     `json:"exported_at,omitempty"`
	NodeCount         int                        `json:"node_count"`
	ConnectionCount   int                        `json:"connection_count"`
	SuggestedFileName string                     `json:"suggested_file_name,omitempty"`
	Nodes             []database.NodeState       `json:"nodes"`
	Connections       []database.ConnectionState `json:"connections"`
}

// storedPayload is what a snapshot row persists
type storedPayload struct {
	Name        string                     `json:"name"`
	SavedAt     string                     `json:"saved_at"`
	Reason      string                     `json:"reason,omitempty"`
	Nodes       []database.NodeState       `json:"nodes"`
	Connections []database.ConnectionState `json:"connections"`
}

// Save captures the current graph under a new name. Fails with
// ConflictError if the name is taken; saving never overwrites.
func (m *Manager) Save(name, actor, reason string) (*database.HuginnSnapshot, error) {
	normalized, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(actor) == "" {
		return nil, hugerrors.NewValidation("", "actor is required")
	}

	var row database.HuginnSnapshot
	err = m.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&database.HuginnSnapshot{}).Where("name = ?", normalized).Count(&existing).Error; err != nil {
			return hugerrors.NewStorage("failed to check snapshot name", err)
		}
		if existing > 0 {
			return hugerrors.NewConflict("snapshot", normalized, "name already exists")
		}

		nodes, connections, err := readGraphInTx(tx)
		if err != nil {
			return err
		}

		savedAt := database.Now()
		payload := storedPayload{
			Name:        normalized,
			SavedAt:     savedAt.UTC().Format(time.RFC3339Nano),
			Reason:      strings.TrimSpace(reason),
			Nodes:       nodeStates(nodes),
			Connections: connectionStates(connections),
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot payload: %w", err)
		}

		row = database.HuginnSnapshot{
			Name:            normalized,
			Payload:         string(raw),
			NodeCount:       len(payload.Nodes),
			ConnectionCount: len(payload.Connections),
			Actor:           strings.TrimSpace(actor),
			SavedAt:         savedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			// A concurrent Save with the same name can slip past the
			// count check; the primary key catches it at insert.
			if isDuplicateName(err) {
				return hugerrors.NewConflict("snapshot", normalized, "name already exists")
			}
			return hugerrors.NewStorage("failed to insert snapshot", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// isDuplicateName detects a snapshot primary key collision from either
// supported driver.
func isDuplicateName(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// List returns snapshot summaries, most recent first
func (m *Manager) List() ([]database.HuginnSnapshot, error) {
	var rows []database.HuginnSnapshot
	err := m.db.Select("name", "node_count", "connection_count", "actor", "saved_at").
		Order("saved_at DESC").Find(&rows).Error
	if err != nil {
		return nil, hugerrors.NewStorage("failed to list snapshots", err)
	}
	return rows, nil
}

// Load atomically replaces the live graph with a snapshot's contents.
// The replacement is audited as a global action; the snapshot row is
// only read, never mutated.
func (m *Manager) Load(name, actor, reason string) (*graph.ReplaceResult, error) {
	normalized, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	var row database.HuginnSnapshot
	if err := m.db.First(&row, "name = ?", normalized).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, hugerrors.NewNotFound("snapshot", normalized)
		}
		return nil, hugerrors.NewStorage("failed to load snapshot", err)
	}

	var payload storedPayload
	if err := json.Unmarshal([]byte(row.Payload), &payload); err != nil {
		return nil, hugerrors.NewStorage("snapshot payload is not valid JSON", err)
	}

	if strings.TrimSpace(reason) == "" {
		reason = fmt.Sprintf("load graph snapshot: %s", normalized)
	}
	nodes, connections := seedsFromStates(payload.Nodes, payload.Connections)
	return m.repo.ReplaceAll(nodes, connections, actor, reason)
}

// Delete removes only the snapshot row; the live graph and its audit
// history are untouched.
func (m *Manager) Delete(name string) error {
	normalized, err := normalizeName(name)
	if err != nil {
		return err
	}

	result := m.db.Delete(&database.HuginnSnapshot{}, "name = ?", normalized)
	if result.Error != nil {
		return hugerrors.NewStorage("failed to delete snapshot", result.Error)
	}
	if result.RowsAffected == 0 {
		return hugerrors.NewNotFound("snapshot", normalized)
	}
	return nil
}

// Export builds the portable document for the current graph. A pure
// read; exporting is not a mutation and leaves no audit record.
func (m *Manager) Export() (*Document, error) {
	nodes, connections, err := m.repo.SnapshotState()
	if err != nil {
		return nil, err
	}

	exportedAt := database.Now()
	return &Document{
		Format:            ExportFormat,
		ExportedAt:        exportedAt.UTC().Format(time.RFC3339Nano),
		NodeCount:         len(nodes),
		ConnectionCount:   len(connections),
		SuggestedFileName: fmt.Sprintf("huginn-graph-export-%s.json", exportedAt.Format("2006-01-02T15-04-05Z")),
		Nodes:             nodeStates(nodes),
		Connections:       connectionStates(connections),
	}, nil
}

// importNode tolerates partial node entries in incoming documents
type importNode struct {
	ID         string             `json:"id"`
	Content    string             `json:"content"`
	Summary    string             `json:"summary"`
	Confidence *float64           `json:"confidence"`
	Color      string             `json:"color"`
	Position   *database.Position `json:"position"`
}

type importConnection struct {
	ID          string `json:"id"`
	SourceID    string `json:"source_id"`
	TargetID    string `json:"target_id"`
	ConnType    string `json:"conn_type"`
	Description string `json:"description"`
}

type importDocument struct {
	Nodes       []importNode       `json:"nodes"`
	Connections []importConnection `json:"connections"`
}

// Import validates a portable document and atomically replaces the
// live graph with its contents.
func (m *Manager) Import(raw []byte, actor, reason string) (*graph.ReplaceResult, error) {
	var doc importDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, hugerrors.NewValidation("import", fmt.Sprintf("document is not valid JSON: %v", err))
	}
	if len(doc.Nodes) == 0 && len(doc.Connections) == 0 {
		return nil, hugerrors.NewValidation("import", "document must contain nodes or connections")
	}

	nodes := make([]graph.NodeSeed, 0, len(doc.Nodes))
	for _, item := range doc.Nodes {
		seed := graph.NodeSeed{
			ID:         item.ID,
			Content:    item.Content,
			Summary:    item.Summary,
			Confidence: item.Confidence,
			Color:      item.Color,
		}
		if seed.ID == "" {
			seed.ID = uuid.NewString()
		}
		if item.Position != nil {
			seed.Position = *item.Position
		}
		nodes = append(nodes, seed)
	}

	connections := make([]graph.ConnectionSeed, 0, len(doc.Connections))
	for _, item := range doc.Connections {
		connections = append(connections, graph.ConnectionSeed{
			ID:          item.ID,
			SourceID:    item.SourceID,
			TargetID:    item.TargetID,
			ConnType:    item.ConnType,
			Description: item.Description,
		})
	}

	if strings.TrimSpace(reason) == "" {
		reason = "import graph document"
	}
	return m.repo.ReplaceAll(nodes, connections, actor, reason)
}

// Clear atomically empties the live graph via the repository
func (m *Manager) Clear(actor, reason string) (*graph.ClearResult, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "clear current graph"
	}
	return m.repo.ClearAll(actor, reason)
}

func normalizeName(name string) (string, error) {
	normalized := strings.TrimSpace(name)
	if normalized == "" {
		return "", hugerrors.NewValidation("snapshot", "name is required")
	}
	if len(normalized) > MaxNameLength {
		return "", hugerrors.NewValidation("snapshot", fmt.Sprintf("name is too long (max %d characters)", MaxNameLength))
	}
	return normalized, nil
}

func readGraphInTx(tx *gorm.DB) ([]database.HuginnNode, []database.HuginnConnection, error) {
	var nodes []database.HuginnNode
	if err := tx.Order("created_at ASC").Find(&nodes).Error; err != nil {
		return nil, nil, hugerrors.NewStorage("failed to list nodes", err)
	}
	var connections []database.HuginnConnection
	if err := tx.Order("created_at ASC").Find(&connections).Error; err != nil {
		return nil, nil, hugerrors.NewStorage("failed to list connections", err)
	}
	return nodes, connections, nil
}

func nodeStates(nodes []database.HuginnNode) []database.NodeState {
	states := make([]database.NodeState, 0, len(nodes))
	for i := range nodes {
		states = append(states, nodes[i].State())
	}
	return states
}

func connectionStates(connections []database.HuginnConnection) []database.ConnectionState {
	states := make([]database.ConnectionState, 0, len(connections))
	for i := range connections {
		states = append(states, connections[i].State())
	}
	return states
}

func seedsFromStates(nodes []database.NodeState, connections []database.ConnectionState) ([]graph.NodeSeed, []graph.ConnectionSeed) {
	nodeSeeds := make([]graph.NodeSeed, 0, len(nodes))
	for i := range nodes {
		state := nodes[i]
		confidence := state.Confidence
		nodeSeeds = append(nodeSeeds, graph.NodeSeed{
			ID:         state.ID,
			Content:    state.Content,
			Summary:    state.Summary,
			Confidence: &confidence,
			Color:      state.Color,
			Position:   state.Position,
		})
	}
	connSeeds := make([]graph.ConnectionSeed, 0, len(connections))
	for i := range connections {
		state := connections[i]
		connSeeds = append(connSeeds, graph.ConnectionSeed{
			ID:          state.ID,
			SourceID:    state.SourceID,
			TargetID:    state.TargetID,
			ConnType:    state.ConnType,
			Description: state.Description,
		})
	}
	return nodeSeeds, connSeeds
}
