package pgstore

import "context"

// migrate creates the necessary database tables
func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS bim_vertices (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		parent_id TEXT,
		properties JSONB,
		connects JSONB,
		seq BIGSERIAL
	);

	CREATE INDEX IF NOT EXISTS idx_bim_vertices_type ON bim_vertices(type, seq);

	CREATE TABLE IF NOT EXISTS bim_edges (
		from_id TEXT NOT NULL REFERENCES bim_vertices(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		to_id TEXT NOT NULL REFERENCES bim_vertices(id) ON DELETE CASCADE,
		properties JSONB,
		seq BIGSERIAL,
		PRIMARY KEY (from_id, kind, to_id)
	);

	CREATE INDEX IF NOT EXISTS idx_bim_edges_from ON bim_edges(from_id, seq);
	CREATE INDEX IF NOT EXISTS idx_bim_edges_to ON bim_edges(to_id, seq);
	`

	_, err := s.pool.Exec(ctx, schema)
	return wrap("migrate", err)
}
