// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package audit owns the append-only mutation ledger and the integrity
// verifier that replays it. The ledger has no update or delete
// operation by design.
package audit

import (
	"fmt"
	"time"

	"github.com/tejzpr/huginn-mcp/internal/database"
	hugerrors "github.com/tejzpr/huginn-mcp/pkg/errors"
	"gorm.io/gorm"
)

// DefaultListLimit is applied when a list query does not set a limit
const DefaultListLimit = 100

// MaxListLimit caps a single list query
const MaxListLimit = 1000

// Append writes one audit record inside the caller's transaction. The
// record's sequence is the autoincrement ID assigned at insert; the
// timestamp is stamped here if the caller did not set one. Append is
// the only write path into the ledger.
func Append(tx *gorm.DB, record *database.HuginnAudit) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = database.Now()
	}
	if err := tx.Create(record).Error; err != nil {
		return hugerrors.NewStorage("failed to append audit record", err)
	}
	return nil
}

// Filter narrows List and ExportReport queries
type Filter struct {
	EntityType string
	EntityID   string
	Limit      int
	Offset     int
}

// List returns audit records in insertion order (oldest first),
// optionally filtered by entity type and id.
func List(db *gorm.DB, filter Filter) ([]database.HuginnAudit, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := db.Model(&database.HuginnAudit{})
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}

	var records []database.HuginnAudit
	err := query.Order("id ASC").Limit(limit).Offset(filter.Offset).Find(&records).Error
	if err != nil {
		return nil, hugerrors.NewStorage("failed to list audit records", err)
	}
	return records, nil
}

// ReportFormat tags exported audit reports
const ReportFormat = "huginn-audit-report-v1"

// Report is an exported summary of the audit trail
type Report struct {
	Format            string                 `json:"format"`
	ExportedAt        time.Time              `json:"exported_at"`
	RecordCount       int                    `json:"record_count"`
	EntityCounts      map[string]int         `json:"entity_counts"`
	ActionCounts      map[string]int         `json:"action_counts"`
	ActorCounts       map[string]int         `json:"actor_counts"`
	SuggestedFileName string                 `json:"suggested_file_name"`
	Records           []database.HuginnAudit `json:"audits"`
}

// ExportReport builds a summary report over the (filtered) audit trail
func ExportReport(db *gorm.DB, filter Filter) (*Report, error) {
	if filter.Limit <= 0 {
		filter.Limit = MaxListLimit
	}
	records, err := List(db, filter)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Format:       ReportFormat,
		ExportedAt:   database.Now(),
		RecordCount:  len(records),
		EntityCounts: make(map[string]int),
		ActionCounts: make(map[string]int),
		ActorCounts:  make(map[string]int),
		Records:      records,
	}
	for _, record := range records {
		report.EntityCounts[record.EntityType]++
		report.ActionCounts[record.Action]++
		report.ActorCounts[record.Actor]++
	}
	report.SuggestedFileName = fmt.Sprintf("huginn-audit-report-%s.json",
		report.ExportedAt.Format("2006-01-02T15-04-05Z"))
	return report, nil
}
