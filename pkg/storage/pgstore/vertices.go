package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

const vertexColumns = `v.id, v.type, v.name, v.parent_id, v.properties, v.connects`

// UpsertVertex inserts e or replaces the row with the same id. seq is kept
// so a replaced vertex keeps its position.
func (s *Store) UpsertVertex(ctx context.Context, e *bim.Element) error {
	if e == nil || e.ID == "" {
		return storage.NewError("upsert_vertex").Vertex("").Cause(fmt.Errorf("element id is required")).Err()
	}

	props, err := marshalNullable(e.Properties, len(e.Properties) == 0)
	if err != nil {
		return storage.NewError("upsert_vertex").Vertex(e.ID).Cause(fmt.Errorf("%w: %w", storage.ErrMarshalFailed, err)).Err()
	}
	connects, err := marshalNullable(e.Connects, e.Connects == nil)
	if err != nil {
		return storage.NewError("upsert_vertex").Vertex(e.ID).Cause(fmt.Errorf("%w: %w", storage.ErrMarshalFailed, err)).Err()
	}

	query := `
		INSERT INTO bim_vertices (id, type, name, parent_id, properties, connects)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			type = EXCLUDED.type,
			name = EXCLUDED.name,
			parent_id = EXCLUDED.parent_id,
			properties = EXCLUDED.properties,
			connects = EXCLUDED.connects
	`

	var parent *string
	if e.ParentID != "" {
		parent = &e.ParentID
	}

	_, err = s.pool.Exec(ctx, query, e.ID, string(e.Type), e.Name, parent, props, connects)
	return wrap("upsert_vertex", err)
}

// Exists reports whether a vertex with id is stored
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bim_vertices WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, wrap("exists", err)
	}
	return exists, nil
}

// Get retrieves a vertex by id
func (s *Store) Get(ctx context.Context, id string) (*bim.Element, error) {
	query := `SELECT ` + vertexColumns + ` FROM bim_vertices v WHERE v.id = $1`

	e, err := scanVertex(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.VertexNotFoundError("get", id)
	}
	if err != nil {
		return nil, wrap("get", err)
	}
	return e, nil
}

// VerticesByType returns every vertex of type t in store order
func (s *Store) VerticesByType(ctx context.Context, t bim.ElementType) ([]*bim.Element, error) {
	query := `SELECT ` + vertexColumns + ` FROM bim_vertices v WHERE v.type = $1 ORDER BY v.seq`

	rows, err := s.pool.Query(ctx, query, string(t))
	if err != nil {
		return nil, wrap("vertices_by_type", err)
	}
	return collectVertices("vertices_by_type", rows)
}

// CountVertices returns the number of vertices
func (s *Store) CountVertices(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM bim_vertices`).Scan(&n); err != nil {
		return 0, wrap("count_vertices", err)
	}
	return n, nil
}

// CountVerticesByType returns vertex counts for every type present
func (s *Store) CountVerticesByType(ctx context.Context) (map[bim.ElementType]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT type, count(*) FROM bim_vertices GROUP BY type`)
	if err != nil {
		return nil, wrap("count_vertices_by_type", err)
	}
	defer rows.Close()

	counts := make(map[bim.ElementType]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, wrap("count_vertices_by_type", err)
		}
		counts[bim.ElementType(t)] = n
	}
	return counts, wrap("count_vertices_by_type", rows.Err())
}

// TruncateAll removes every vertex and edge and restarts the seq columns
func (s *Store) TruncateAll(ctx context.Context) (storage.TruncateResult, error) {
	var result storage.TruncateResult

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// Block concurrent writers so the counts match what is removed.
		if _, err := tx.Exec(ctx, `LOCK TABLE bim_vertices, bim_edges IN ACCESS EXCLUSIVE MODE`); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM bim_vertices`).Scan(&result.VerticesDeleted); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM bim_edges`).Scan(&result.EdgesDeleted); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `TRUNCATE bim_edges, bim_vertices RESTART IDENTITY`)
		return err
	})
	if err != nil {
		return storage.TruncateResult{}, wrap("truncate", err)
	}
	return result, nil
}

func marshalNullable(v any, null bool) ([]byte, error) {
	if null {
		return nil, nil
	}
	return json.Marshal(v)
}

func scanVertex(row pgx.Row) (*bim.Element, error) {
	var (
		e          bim.Element
		typ        string
		parent     *string
		properties []byte
		connects   []byte
	)
	if err := row.Scan(&e.ID, &typ, &e.Name, &parent, &properties, &connects); err != nil {
		return nil, err
	}
	e.Type = bim.ElementType(typ)
	if parent != nil {
		e.ParentID = *parent
	}
	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &e.Properties); err != nil {
			return nil, fmt.Errorf("failed to unmarshal properties of %s: %w", e.ID, err)
		}
	}
	if len(connects) > 0 {
		if err := json.Unmarshal(connects, &e.Connects); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connects of %s: %w", e.ID, err)
		}
	}
	return &e, nil
}

func collectVertices(op string, rows pgx.Rows) ([]*bim.Element, error) {
	defer rows.Close()

	result := make([]*bim.Element, 0)
	for rows.Next() {
		e, err := scanVertex(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}
