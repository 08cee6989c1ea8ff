package store

// schemaEntries creates the base entries table if it does not yet exist,
// with the columns present from the first shipped version of the schema.
// Columns added later (tags, urls, emails, perceptual_hash) are added by
// Migrate via column introspection, per §4.9 — not by a versioned
// migration table, since the spec's migration contract is additive-by-
// column-presence rather than additive-by-version.
const schemaEntries = `
CREATE TABLE IF NOT EXISTS entries (
    path TEXT PRIMARY KEY,
    text TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    processed_at INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
`

// migratableColumns lists the columns Migrate adds when missing, in order,
// with the DDL type each is created with per §4.9 ("text for the first
// three, blob for the last").
var migratableColumns = []struct {
	name string
	ddl  string
}{
	{"tags", "TEXT NOT NULL DEFAULT '[]'"},
	{"urls", "TEXT NOT NULL DEFAULT '[]'"},
	{"emails", "TEXT NOT NULL DEFAULT '[]'"},
	{"perceptual_hash", "BLOB"},
}

const indexTagsDDL = `CREATE INDEX IF NOT EXISTS idx_entries_tags ON entries(tags);`
