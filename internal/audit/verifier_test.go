// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package audit

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejzpr/huginn-mcp/internal/database"
	"gorm.io/gorm"
)

// appendUpdateFor mutates the node row and appends the matching update
// record so the chain stays consistent.
func appendUpdateFor(t *testing.T, db *gorm.DB, node *database.HuginnNode, content string) {
	t.Helper()
	before, err := node.StateJSON()
	require.NoError(t, err)
	node.Content = content
	node.UpdatedAt = database.Now()
	require.NoError(t, db.Save(node).Error)
	after, err := node.StateJSON()
	require.NoError(t, err)
	require.NoError(t, Append(db, &database.HuginnAudit{
		EntityType:  database.EntityTypeNode,
		EntityID:    &node.ID,
		Action:      database.AuditActionUpdate,
		Actor:       "tester",
		Reason:      "update",
		BeforeState: &before,
		AfterState:  &after,
	}))
}

// appendDeleteFor removes the node row and appends its delete record
func appendDeleteFor(t *testing.T, db *gorm.DB, node *database.HuginnNode) {
	t.Helper()
	before, err := node.StateJSON()
	require.NoError(t, err)
	require.NoError(t, db.Delete(&database.HuginnNode{}, "id = ?", node.ID).Error)
	require.NoError(t, Append(db, &database.HuginnAudit{
		EntityType:  database.EntityTypeNode,
		EntityID:    &node.ID,
		Action:      database.AuditActionDelete,
		Actor:       "tester",
		Reason:      "delete",
		BeforeState: &before,
	}))
}

func TestVerify_EmptyDatabase(t *testing.T) {
	db := openDB(t)

	report, err := Verify(db)
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Empty(t, report.Issues)
	assert.Equal(t, 0, report.Records)
	assert.Equal(t, 0, report.Entities)
}

func TestVerify_ConsistentHistory(t *testing.T) {
	db := openDB(t)

	kept := seedNode(t, db, "kept", "tester")
	appendUpdateFor(t, db, kept, "kept, revised")

	gone := seedNode(t, db, "gone", "tester")
	appendDeleteFor(t, db, gone)

	report, err := Verify(db)
	require.NoError(t, err)
	assert.True(t, report.OK, "issues: %v", report.Issues)
	assert.Equal(t, 4, report.Records)
	assert.Equal(t, 2, report.Entities)
}

func TestVerify_DetectsDrift(t *testing.T) {
	db := openDB(t)

	node := seedNode(t, db, "original", "tester")

	// Edit the row behind the log's back.
	require.NoError(t, db.Model(&database.HuginnNode{}).
		Where("id = ?", node.ID).Update("content", "tampered").Error)

	report, err := Verify(db)
	require.NoError(t, err)
	assert.False(t, report.OK)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0], "does not match last audit after_state")
}

func TestVerify_DetectsUnexplainedRow(t *testing.T) {
	db := openDB(t)

	// A row inserted without any audit record.
	now := database.Now()
	require.NoError(t, db.Create(&database.HuginnNode{
		ID: uuid.NewString(), Content: "stowaway", Confidence: 1,
		Color: "#157f83", CreatedAt: now, UpdatedAt: now,
	}).Error)

	report, err := Verify(db)
	require.NoError(t, err)
	assert.False(t, report.OK)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0], "no audit records")
}

func TestVerify_DetectsMissingDelete(t *testing.T) {
	db := openDB(t)

	node := seedNode(t, db, "vanishing", "tester")
	// Row removed without a delete record.
	require.NoError(t, db.Delete(&database.HuginnNode{}, "id = ?", node.ID).Error)

	report, err := Verify(db)
	require.NoError(t, err)
	assert.False(t, report.OK)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0], "no longer exists")
}

func TestVerify_DetectsChainStartingWithUpdate(t *testing.T) {
	db := openDB(t)

	id := uuid.NewString()
	before := `{"id":"x","content":"a"}`
	after := `{"id":"x","content":"b"}`
	require.NoError(t, Append(db, &database.HuginnAudit{
		EntityType:  database.EntityTypeNode,
		EntityID:    &id,
		Action:      database.AuditActionUpdate,
		Actor:       "tester",
		Reason:      "orphan update",
		BeforeState: &before,
		AfterState:  &after,
	}))

	report, err := Verify(db)
	require.NoError(t, err)
	assert.False(t, report.OK)
	// First action wrong, no create at all, and the chain does not end
	// in a delete even though no row exists.
	assert.Contains(t, report.Issues[0], "first audit action")
}

func TestVerify_DetectsContinuityBreak(t *testing.T) {
	db := openDB(t)

	node := seedNode(t, db, "original", "tester")

	// Append an update whose before_state skips a step.
	bogusBefore := `{"id":"not-the-previous-state"}`
	node.Content = "revised"
	node.UpdatedAt = database.Now()
	require.NoError(t, db.Save(node).Error)
	after, err := node.StateJSON()
	require.NoError(t, err)
	require.NoError(t, Append(db, &database.HuginnAudit{
		EntityType:  database.EntityTypeNode,
		EntityID:    &node.ID,
		Action:      database.AuditActionUpdate,
		Actor:       "tester",
		Reason:      "skip",
		BeforeState: &bogusBefore,
		AfterState:  &after,
	}))

	report, err := Verify(db)
	require.NoError(t, err)
	assert.False(t, report.OK)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0], "history break")
}

func TestVerify_DetectsDuplicateCreate(t *testing.T) {
	db := openDB(t)

	node := seedNode(t, db, "twice-born", "tester")
	state, err := node.StateJSON()
	require.NoError(t, err)
	require.NoError(t, Append(db, &database.HuginnAudit{
		EntityType: database.EntityTypeNode,
		EntityID:   &node.ID,
		Action:     database.AuditActionCreate,
		Actor:      "tester",
		Reason:     "duplicate",
		AfterState: &state,
	}))

	report, err := Verify(db)
	require.NoError(t, err)
	assert.False(t, report.OK)
	assert.Contains(t, strings.Join(report.Issues, "\n"), "create audits, expected exactly one")
}

func TestVerify_MalformedShapes(t *testing.T) {
	db := openDB(t)

	id := uuid.NewString()
	state := `{"id":"x"}`

	// Create carrying a before_state, delete carrying an after_state.
	require.NoError(t, Append(db, &database.HuginnAudit{
		EntityType:  database.EntityTypeNode,
		EntityID:    &id,
		Action:      database.AuditActionCreate,
		Actor:       "tester",
		Reason:      "bad create",
		BeforeState: &state,
		AfterState:  &state,
	}))
	require.NoError(t, Append(db, &database.HuginnAudit{
		EntityType:  database.EntityTypeNode,
		EntityID:    &id,
		Action:      database.AuditActionDelete,
		Actor:       "tester",
		Reason:      "bad delete",
		BeforeState: &state,
		AfterState:  &state,
	}))

	report, err := Verify(db)
	require.NoError(t, err)
	assert.False(t, report.OK)

	joined := strings.Join(report.Issues, "\n")
	assert.Contains(t, joined, "create audit carries a before_state")
	assert.Contains(t, joined, "delete audit carries an after_state")
}

func TestVerify_ConsistentUnderConcurrentWrites(t *testing.T) {
	db := openDB(t)

	// A writer committing rows plus their audit records atomically must
	// never show up as an issue, no matter when a verification run
	// starts relative to a commit.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 25; i++ {
			err := db.Transaction(func(tx *gorm.DB) error {
				now := database.Now()
				node := &database.HuginnNode{
					ID:         uuid.NewString(),
					Content:    "concurrent",
					Confidence: 1,
					Color:      "#157f83",
					CreatedAt:  now,
					UpdatedAt:  now,
				}
				if err := tx.Create(node).Error; err != nil {
					return err
				}
				state, err := node.StateJSON()
				if err != nil {
					return err
				}
				return Append(tx, &database.HuginnAudit{
					EntityType: database.EntityTypeNode,
					EntityID:   &node.ID,
					Action:     database.AuditActionCreate,
					Actor:      "writer",
					Reason:     "concurrent create",
					AfterState: &state,
				})
			})
			assert.NoError(t, err)
		}
	}()

	for {
		report, err := Verify(db)
		require.NoError(t, err)
		assert.True(t, report.OK, "issues: %v", report.Issues)

		select {
		case <-done:
			report, err = Verify(db)
			require.NoError(t, err)
			assert.True(t, report.OK, "issues: %v", report.Issues)
			assert.Equal(t, 25, report.Entities)
			return
		default:
		}
	}
}

func TestVerify_IgnoresGlobalRecords(t *testing.T) {
	db := openDB(t)

	counts := `{"node_count":0,"connection_count":0}`
	require.NoError(t, Append(db, &database.HuginnAudit{
		EntityType: database.EntityTypeGlobal,
		Action:     database.AuditActionDelete,
		Actor:      "tester",
		Reason:     "clear",
		AfterState: &counts,
	}))

	report, err := Verify(db)
	require.NoError(t, err)
	assert.True(t, report.OK)
	assert.Equal(t, 1, report.Records)
	assert.Equal(t, 0, report.Entities)
}
