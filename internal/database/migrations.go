// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AllModels returns all database models for migration
func AllModels() []interface{} {
	return []interface{}{
		&HuginnNode{},
		&HuginnConnection{},
		&HuginnAudit{},
		&HuginnSnapshot{},
	}
}

// Migrate runs database migrations for all models
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// DropAllTables drops all tables (use with caution!)
func DropAllTables(db *gorm.DB) error {
	// Drop in reverse order to avoid foreign key constraints
	models := []interface{}{
		&HuginnSnapshot{},
		&HuginnAudit{},
		&HuginnConnection{},
		&HuginnNode{},
	}

	for _, model := range models {
		if err := db.Migrator().DropTable(model); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}

	return nil
}

// CreateIndexes creates additional indexes for better query performance
func CreateIndexes(db *gorm.DB) error {
	// Add composite indexes for frequently queried combinations
	indexes := []struct {
		table   string
		columns []string
		name    string
	}{
		{
			table:   "huginn_connections",
			columns: []string{"source_id", "conn_type"},
			name:    "idx_connections_source_type",
		},
		{
			table:   "huginn_connections",
			columns: []string{"target_id", "conn_type"},
			name:    "idx_connections_target_type",
		},
		{
			table:   "huginn_audits",
			columns: []string{"entity_type", "entity_id", "id"},
			name:    "idx_audits_entity_seq",
		},
		{
			table:   "huginn_audits",
			columns: []string{"actor", "created_at"},
			name:    "idx_audits_actor_created",
		},
	}

	for _, idx := range indexes {
		// Check if index exists
		hasIndex := db.Migrator().HasIndex(idx.table, idx.name)
		if !hasIndex {
			// Create the index using raw SQL (GORM doesn't support composite indexes well)
			sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				idx.name,
				idx.table,
				joinColumns(idx.columns))

			if err := db.Exec(sql).Error; err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}
	}

	return nil
}

// joinColumns joins column names with commas
func joinColumns(columns []string) string {
	result := ""
	for i, col := range columns {
		if i > 0 {
			result += ", "
		}
		result += col
	}
	return result
}
