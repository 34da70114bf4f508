// Package migrations holds the database schema.
package migrations

import _ "embed"

// Schema creates every table the service uses. Statements are idempotent.
//
//go:embed 001_init.sql
var Schema string
