// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package graph

import (
	"errors"

	"github.com/tejzpr/huginn-mcp/internal/database"
	hugerrors "github.com/tejzpr/huginn-mcp/pkg/errors"
	"gorm.io/gorm"
)

// TraversalNode is one node reached during a traversal
type TraversalNode struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Content string `json:"content"`
	Depth   int    `json:"depth"`
}

// TraversalEdge is one connection crossed during a traversal
type TraversalEdge struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	ConnType string `json:"conn_type"`
}

// Traversal is the subgraph reachable from a starting node
type Traversal struct {
	Nodes []TraversalNode `json:"nodes"`
	Edges []TraversalEdge `json:"edges"`
}

// MaxTraversalHops caps traversal depth
const MaxTraversalHops = 5

// Traverse walks the graph outward from a starting node, following
// connections in both directions, up to maxHops away. Read-only.
func (r *Repository) Traverse(startID string, maxHops int, breadthFirst bool) (*Traversal, error) {
	if maxHops <= 0 || maxHops > MaxTraversalHops {
		maxHops = MaxTraversalHops
	}

	if err := requireNode(r.db, startID); err != nil {
		return nil, err
	}

	result := &Traversal{
		Nodes: []TraversalNode{},
		Edges: []TraversalEdge{},
	}
	walk := &traversalState{
		result:    result,
		visited:   map[string]bool{},
		seenEdges: map[string]bool{},
	}

	if breadthFirst {
		return result, r.traverseBFS(startID, maxHops, walk)
	}
	return result, r.traverseDFS(startID, maxHops, 0, walk)
}

// traversalState tracks which nodes and connections a walk has already
// emitted. A connection touches two nodes and would otherwise be
// appended once per expanded endpoint.
type traversalState struct {
	result    *Traversal
	visited   map[string]bool
	seenEdges map[string]bool
}

func (w *traversalState) appendEdge(conn database.HuginnConnection) {
	if w.seenEdges[conn.ID] {
		return
	}
	w.seenEdges[conn.ID] = true
	w.result.Edges = append(w.result.Edges, TraversalEdge{
		ID:       conn.ID,
		SourceID: conn.SourceID,
		TargetID: conn.TargetID,
		ConnType: conn.ConnType,
	})
}

// traverseBFS performs breadth-first traversal
func (r *Repository) traverseBFS(startID string, maxHops int, walk *traversalState) error {
	type queueItem struct {
		nodeID string
		depth  int
	}

	queue := []queueItem{{startID, 0}}
	walk.visited[startID] = true
	if err := r.addTraversalNode(startID, 0, walk.result); err != nil {
		return err
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxHops {
			continue
		}

		touching, err := r.connectionsTouching(current.nodeID)
		if err != nil {
			return err
		}

		for _, conn := range touching {
			neighborID := conn.TargetID
			if conn.SourceID != current.nodeID {
				neighborID = conn.SourceID
			}

			walk.appendEdge(conn)

			if !walk.visited[neighborID] {
				walk.visited[neighborID] = true
				if err := r.addTraversalNode(neighborID, current.depth+1, walk.result); err != nil {
					return err
				}
				queue = append(queue, queueItem{neighborID, current.depth + 1})
			}
		}
	}

	return nil
}

// traverseDFS performs depth-first traversal
func (r *Repository) traverseDFS(nodeID string, maxHops, currentDepth int, walk *traversalState) error {
	if currentDepth > maxHops || walk.visited[nodeID] {
		return nil
	}
	walk.visited[nodeID] = true

	if err := r.addTraversalNode(nodeID, currentDepth, walk.result); err != nil {
		return err
	}

	if currentDepth == maxHops {
		return nil
	}

	touching, err := r.connectionsTouching(nodeID)
	if err != nil {
		return err
	}

	for _, conn := range touching {
		walk.appendEdge(conn)

		neighborID := conn.TargetID
		if conn.SourceID != nodeID {
			neighborID = conn.SourceID
		}
		if !walk.visited[neighborID] {
			if err := r.traverseDFS(neighborID, maxHops, currentDepth+1, walk); err != nil {
				return err
			}
		}
	}

	return nil
}

// connectionsTouching returns every connection with the node as either endpoint
func (r *Repository) connectionsTouching(nodeID string) ([]database.HuginnConnection, error) {
	var connections []database.HuginnConnection
	err := r.db.Where("source_id = ? OR target_id = ?", nodeID, nodeID).
		Order("created_at ASC").Find(&connections).Error
	if err != nil {
		return nil, hugerrors.NewStorage("failed to load connections", err)
	}
	return connections, nil
}

// addTraversalNode appends one node to the traversal result
func (r *Repository) addTraversalNode(nodeID string, depth int, result *Traversal) error {
	var node database.HuginnNode
	if err := r.db.First(&node, "id = ?", nodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return hugerrors.NewNotFound("node", nodeID)
		}
		return hugerrors.NewStorage("failed to load node", err)
	}

	result.Nodes = append(result.Nodes, TraversalNode{
		ID:      node.ID,
		Summary: node.Summary,
		Content: node.Content,
		Depth:   depth,
	})
	return nil
}
