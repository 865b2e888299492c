package analyticsdb

import _ "embed"

// Schema creates the tables the report queries read. Statements are
// idempotent.
//
//go:embed schema.sql
var Schema string
