package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/dbsmedya/goingest/internal/sqlutil"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for valid values. The destination is
// only checked by ValidateDestination, since ingestion never touches it.
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, validateIngest("ingest", &c.Ingest, false)...)

	for name, ds := range c.Datasets {
		errors = append(errors, c.validateDataset(name, &ds)...)
	}

	errors = append(errors, c.validateLoad()...)
	errors = append(errors, c.validateVerification()...)
	errors = append(errors, c.validateLogging()...)

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// ValidateDestination checks the destination database settings required by
// the load command.
func (c *Config) ValidateDestination() error {
	errors := c.validateDatabase("destination", &c.Destination)
	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validateIngest(prefix string, ic *IngestConfig, override bool) ValidationErrors {
	var errors ValidationErrors

	if ic.ChunkSize < 0 || (!override && ic.ChunkSize == 0) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if ic.Workers < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".workers",
			Message: "workers cannot be negative",
		})
	}

	if ic.Encoding != "" {
		if _, err := htmlindex.Get(ic.Encoding); err != nil {
			errors = append(errors, ValidationError{
				Field:   prefix + ".encoding",
				Message: fmt.Sprintf("unknown encoding %q", ic.Encoding),
			})
		}
	}

	validPolicies := map[string]bool{"skip": true, "fail": true, "": true}
	if !validPolicies[ic.OnChunkError] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".on_chunk_error",
			Message: "on_chunk_error must be 'skip' or 'fail'",
		})
	}

	if ic.RecordLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".record_limit",
			Message: "record_limit cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateDataset(name string, ds *DatasetConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("datasets.%s", name)

	if ds.Path == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".path",
			Message: "path is required",
		})
	}

	if table := ds.TableName(name); !sqlutil.IsValidIdentifier(table) {
		errors = append(errors, ValidationError{
			Field:   prefix + ".table",
			Message: fmt.Sprintf("table name %q is not a valid identifier", table),
		})
	}

	if ds.Ingest != nil {
		errors = append(errors, validateIngest(prefix+".ingest", ds.Ingest, true)...)
	}

	return errors
}

func (c *Config) validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 || db.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "connection limits cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateLoad() ValidationErrors {
	var errors ValidationErrors

	if c.Load.BatchSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "load.batch_size",
			Message: "batch_size must be positive",
		})
	}

	return errors
}

func (c *Config) validateVerification() ValidationErrors {
	var errors ValidationErrors

	validMethods := map[string]bool{"count": true, "digest": true, "full": true, "skip": true, "": true}
	if !validMethods[c.Verification.Method] {
		errors = append(errors, ValidationError{
			Field:   "verification.method",
			Message: "method must be 'count', 'digest', 'full', or 'skip'",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
