// Package history records every pipeline run, successful or not, in a local
// SQLite database so `sopgen history` and the API can list past results.
//
// Schema changes ship as embedded, ordered SQL migrations tracked in
// schema_migrations.
package history
