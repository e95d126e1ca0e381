// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package audit

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/tejzpr/huginn-mcp/internal/database"
	hugerrors "github.com/tejzpr/huginn-mcp/pkg/errors"
	"gorm.io/gorm"
)

// IntegrityReport is the result of a verification run. Violations are
// data, not errors: a run that finds issues still returns nil error.
type IntegrityReport struct {
	OK        bool      `json:"ok"`
	Issues    []string  `json:"issues"`
	CheckedAt time.Time `json:"checked_at"`
	Records   int       `json:"records_checked"`
	Entities  int       `json:"entities_checked"`
}

type chainKey struct {
	entityType string
	entityID   string
}

// Verify replays the audit trail per entity and checks that it fully
// and consistently explains the current graph state:
//
//   - every chain starts with exactly one create (nil before_state)
//   - before_state of each later record equals the previous after_state
//   - record shape matches its action (create: after only, update:
//     both, delete: before only)
//   - every live entity has a chain whose last record is not a delete
//     and whose after_state matches the persisted row
//   - every chain without a live entity ends in a delete
//
// Read-only, single pass over the log plus one scan per entity table.
// The log and both entity tables are read inside one transaction so a
// mutation committing mid-run never shows up as a spurious issue.
func Verify(db *gorm.DB) (*IntegrityReport, error) {
	var records []database.HuginnAudit
	var liveNodes []database.HuginnNode
	var liveConnections []database.HuginnConnection
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id ASC").Find(&records).Error; err != nil {
			return hugerrors.NewStorage("failed to load audit records", err)
		}
		var err error
		liveNodes, liveConnections, err = loadLiveEntities(tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Group non-global records per entity, preserving insertion order.
	chains := make(map[chainKey][]database.HuginnAudit)
	var order []chainKey
	for _, record := range records {
		if record.EntityType == database.EntityTypeGlobal || record.EntityID == nil {
			continue
		}
		key := chainKey{entityType: record.EntityType, entityID: *record.EntityID}
		if _, seen := chains[key]; !seen {
			order = append(order, key)
		}
		chains[key] = append(chains[key], record)
	}

	var issues []string
	for _, key := range order {
		issues = append(issues, checkChain(key, chains[key])...)
	}

	live := make(map[chainKey]bool, len(liveNodes)+len(liveConnections))
	for _, node := range liveNodes {
		live[chainKey{entityType: database.EntityTypeNode, entityID: node.ID}] = true
	}
	for _, conn := range liveConnections {
		live[chainKey{entityType: database.EntityTypeConnection, entityID: conn.ID}] = true
	}

	// Live entities must be explained by their chain.
	for _, node := range liveNodes {
		state, err := node.StateJSON()
		if err != nil {
			return nil, err
		}
		issues = append(issues, checkLiveEntity(database.EntityTypeNode, node.ID, state, chains)...)
	}
	for _, conn := range liveConnections {
		state, err := conn.StateJSON()
		if err != nil {
			return nil, err
		}
		issues = append(issues, checkLiveEntity(database.EntityTypeConnection, conn.ID, state, chains)...)
	}

	// Chains without a live entity must end in a delete.
	for _, key := range order {
		if live[key] {
			continue
		}
		chain := chains[key]
		if last := chain[len(chain)-1]; last.Action != database.AuditActionDelete {
			issues = append(issues, fmt.Sprintf(
				"%s:%s no longer exists but last audit action is %q, expected %q",
				key.entityType, key.entityID, last.Action, database.AuditActionDelete))
		}
	}

	return &IntegrityReport{
		OK:        len(issues) == 0,
		Issues:    issues,
		CheckedAt: database.Now(),
		Records:   len(records),
		Entities:  len(order),
	}, nil
}

// checkChain validates ordering, shape, and before/after continuity of
// one entity's records.
func checkChain(key chainKey, chain []database.HuginnAudit) []string {
	var issues []string
	label := fmt.Sprintf("%s:%s", key.entityType, key.entityID)

	if first := chain[0]; first.Action != database.AuditActionCreate {
		issues = append(issues, fmt.Sprintf(
			"%s first audit action is %q, expected %q", label, first.Action, database.AuditActionCreate))
	}

	creates := 0
	for k, record := range chain {
		switch record.Action {
		case database.AuditActionCreate:
			creates++
			if record.BeforeState != nil {
				issues = append(issues, fmt.Sprintf("%s create audit carries a before_state", label))
			}
			if record.AfterState == nil {
				issues = append(issues, fmt.Sprintf("%s create audit missing after_state", label))
			}
		case database.AuditActionUpdate:
			if record.BeforeState == nil || record.AfterState == nil {
				issues = append(issues, fmt.Sprintf("%s update audit missing state snapshot", label))
			}
		case database.AuditActionDelete:
			if record.BeforeState == nil {
				issues = append(issues, fmt.Sprintf("%s delete audit missing before_state", label))
			}
			if record.AfterState != nil {
				issues = append(issues, fmt.Sprintf("%s delete audit carries an after_state", label))
			}
		default:
			issues = append(issues, fmt.Sprintf("%s unknown audit action %q", label, record.Action))
		}

		if k == 0 {
			continue
		}
		if record.Action == database.AuditActionCreate {
			// Flagged via the creates counter below; continuity does not apply.
			continue
		}
		if !statesEqual(chain[k-1].AfterState, record.BeforeState) {
			issues = append(issues, fmt.Sprintf(
				"%s history break at sequence %d: before_state does not match previous after_state",
				label, record.ID))
		}
	}

	if creates == 0 {
		issues = append(issues, fmt.Sprintf("%s missing create audit", label))
	} else if creates > 1 {
		issues = append(issues, fmt.Sprintf("%s has %d create audits, expected exactly one", label, creates))
	}

	return issues
}

// checkLiveEntity asserts that an existing row is explained by its
// chain and matches the last recorded after_state.
func checkLiveEntity(entityType, entityID, currentState string, chains map[chainKey][]database.HuginnAudit) []string {
	label := fmt.Sprintf("%s:%s", entityType, entityID)
	chain, ok := chains[chainKey{entityType: entityType, entityID: entityID}]
	if !ok {
		return []string{fmt.Sprintf("%s exists but has no audit records", label)}
	}

	last := chain[len(chain)-1]
	if last.Action == database.AuditActionDelete {
		return []string{fmt.Sprintf("%s exists but last audit action is a delete", label)}
	}
	if !statesEqual(last.AfterState, &currentState) {
		return []string{fmt.Sprintf(
			"%s current state does not match last audit after_state (sequence %d)", label, last.ID)}
	}
	return nil
}

func loadLiveEntities(db *gorm.DB) ([]database.HuginnNode, []database.HuginnConnection, error) {
	var nodes []database.HuginnNode
	if err := db.Order("created_at ASC").Find(&nodes).Error; err != nil {
		return nil, nil, hugerrors.NewStorage("failed to load nodes", err)
	}
	var connections []database.HuginnConnection
	if err := db.Order("created_at ASC").Find(&connections).Error; err != nil {
		return nil, nil, hugerrors.NewStorage("failed to load connections", err)
	}
	return nodes, connections, nil
}

// statesEqual compares two state documents structurally, so formatting
// differences in stored JSON never count as tampering.
func statesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	var left, right interface{}
	if err := json.Unmarshal([]byte(*a), &left); err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(*b), &right); err != nil {
		return false
	}
	return reflect.DeepEqual(left, right)
}
