package store

import "fmt"

// Migrate brings the database up to the current schema by inspecting the
// live column list of entries, per §4.9: the base table is created if
// absent, then each of tags/urls/emails/perceptual_hash is added via
// ALTER TABLE when missing, and finally the tags index is created if
// absent. This differs deliberately from a versioned migration table: the
// spec's contract is "inspect the column list... add it", which is
// idempotent by construction and doesn't need a bookkeeping table at all.
func (s *Store) Migrate() error {
	if _, err := s.writer.Exec(schemaEntries); err != nil {
		return fmt.Errorf("store: create entries table: %w", err)
	}

	existing, err := s.columnSet("entries")
	if err != nil {
		return fmt.Errorf("store: inspect columns: %w", err)
	}

	for _, col := range migratableColumns {
		if existing[col.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE entries ADD COLUMN %s %s", col.name, col.ddl)
		if _, err := s.writer.Exec(stmt); err != nil {
			return fmt.Errorf("store: add column %s: %w", col.name, err)
		}
	}

	if _, err := s.writer.Exec(indexTagsDDL); err != nil {
		return fmt.Errorf("store: create tags index: %w", err)
	}
	return nil
}

// columnSet returns the set of column names currently present on table.
func (s *Store) columnSet(table string) (map[string]bool, error) {
	rows, err := s.writer.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dflt interface{}
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
