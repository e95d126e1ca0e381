// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Audit    AuditConfig    `mapstructure:"audit" yaml:"audit"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Type        string `mapstructure:"type" yaml:"type"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn,omitempty"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"` // "silent", "error", "warn", "info"
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	// VerifyInterval is how often the background verifier replays the
	// audit trail, in minutes. 0 disables the background run.
	VerifyInterval int `mapstructure:"verify_interval_minutes" yaml:"verify_interval_minutes"`
}

// ValidDatabaseTypes returns all valid database type values
func ValidDatabaseTypes() []string {
	return []string{"sqlite", "postgres"}
}

// ValidLogLevels returns all valid database log level values
func ValidLogLevels() []string {
	return []string{"silent", "error", "warn", "info"}
}

// isValidType is a generic helper to check if a type is in a list of valid types
func isValidType(aType string, validTypes []string) bool {
	for _, valid := range validTypes {
		if aType == valid {
			return true
		}
	}
	return false
}
