package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dd0wney/cluso-bim/pkg/bim"
	"github.com/dd0wney/cluso-bim/pkg/storage"
)

// UpsertEdge inserts the edge or replaces its properties. A missing endpoint
// trips the foreign key and is reported as ErrVertexNotFound.
func (s *Store) UpsertEdge(ctx context.Context, from string, kind bim.RelationshipKind, to string, props bim.Properties) error {
	key := bim.EdgeKey{From: from, Kind: kind, To: to}

	data, err := marshalNullable(props, len(props) == 0)
	if err != nil {
		return storage.NewError("upsert_edge").Edge(key).Cause(fmt.Errorf("%w: %w", storage.ErrMarshalFailed, err)).Err()
	}

	query := `
		INSERT INTO bim_edges (from_id, kind, to_id, properties)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (from_id, kind, to_id) DO UPDATE SET properties = EXCLUDED.properties
	`

	_, err = s.pool.Exec(ctx, query, from, string(kind), to, data)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
		return storage.NewError("upsert_edge").Edge(key).Context(pgErr.ConstraintName).Cause(storage.ErrVertexNotFound).Err()
	}
	return wrap("upsert_edge", err)
}

const neighborsQuery = `
	SELECT ` + vertexColumns + ` FROM (
		SELECT 0 AS side, e.seq, e.to_id AS far
		FROM bim_edges e
		WHERE $2 AND e.from_id = $1 AND ($4::text[] IS NULL OR e.kind = ANY($4))
		UNION ALL
		SELECT 1 AS side, e.seq, e.from_id AS far
		FROM bim_edges e
		WHERE $3 AND e.to_id = $1 AND ($4::text[] IS NULL OR e.kind = ANY($4))
	) n
	JOIN bim_vertices v ON v.id = n.far
	ORDER BY n.side, n.seq
`

// Neighbors returns the far endpoint of every matching edge. Outbound edges
// come first, each side in edge insertion order.
func (s *Store) Neighbors(ctx context.Context, id string, dir storage.Direction, kinds ...bim.RelationshipKind) ([]*bim.Element, error) {
	var outbound, inbound bool
	switch dir {
	case storage.Outbound:
		outbound = true
	case storage.Inbound:
		inbound = true
	case storage.Any:
		outbound, inbound = true, true
	default:
		return nil, storage.NewError("neighbors").Vertex(id).Cause(fmt.Errorf("unknown direction %q", dir)).Err()
	}

	var kindFilter []string
	for _, k := range kinds {
		kindFilter = append(kindFilter, string(k))
	}

	rows, err := s.pool.Query(ctx, neighborsQuery, id, outbound, inbound, kindFilter)
	if err != nil {
		return nil, wrap("neighbors", err)
	}
	return collectVertices("neighbors", rows)
}

// CountEdgesByKind returns edge counts for every kind present
func (s *Store) CountEdgesByKind(ctx context.Context) (map[bim.RelationshipKind]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT kind, count(*) FROM bim_edges GROUP BY kind`)
	if err != nil {
		return nil, wrap("count_edges_by_kind", err)
	}
	defer rows.Close()

	counts := make(map[bim.RelationshipKind]int)
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return nil, wrap("count_edges_by_kind", err)
		}
		counts[bim.RelationshipKind(k)] = n
	}
	return counts, wrap("count_edges_by_kind", rows.Err())
}

// Export copies the whole graph in store order inside one read-only
// transaction so vertices and edges agree.
func (s *Store) Export(ctx context.Context) (*bim.Snapshot, error) {
	snap := &bim.Snapshot{
		Vertices: make([]bim.Element, 0),
		Edges:    make([]bim.Relationship, 0),
	}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT `+vertexColumns+` FROM bim_vertices v ORDER BY v.seq`)
		if err != nil {
			return err
		}
		vertices, err := collectVertices("export", rows)
		if err != nil {
			return err
		}
		for _, v := range vertices {
			snap.Vertices = append(snap.Vertices, *v)
		}

		rows, err = tx.Query(ctx, `SELECT from_id, kind, to_id, properties FROM bim_edges ORDER BY seq`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				rel   bim.Relationship
				kind  string
				props []byte
			)
			if err := rows.Scan(&rel.From, &kind, &rel.To, &props); err != nil {
				return err
			}
			rel.Kind = bim.RelationshipKind(kind)
			if len(props) > 0 {
				if err := json.Unmarshal(props, &rel.Properties); err != nil {
					return fmt.Errorf("failed to unmarshal properties of %s: %w", rel.Key(), err)
				}
			}
			snap.Edges = append(snap.Edges, rel)
		}
		return rows.Err()
	})
	if err != nil {
		var se *storage.StorageError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, wrap("export", err)
	}
	return snap, nil
}
