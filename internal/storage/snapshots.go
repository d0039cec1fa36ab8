package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/musexhq/musex/pkg/models"
)

// SnapshotRepository persists precomputed graph snapshots. Replace swaps a
// snapshot atomically; readers never observe a half-written key.
type SnapshotRepository interface {
	Replace(ctx context.Context, snap models.Snapshot) error
	Get(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, error)
}

// PostgresSnapshotRepository implements SnapshotRepository on Postgres.
type PostgresSnapshotRepository struct {
	db *sql.DB
}

// NewPostgresSnapshotRepository creates a PostgresSnapshotRepository.
func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{db: db}
}

// Replace deletes and rewrites the nodes and links of snap's key in a
// single transaction.
func (r *PostgresSnapshotRepository) Replace(ctx context.Context, snap models.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot replace: %w", err)
	}
	defer tx.Rollback()

	k := snap.Key
	for _, table := range []string{"graph_nodes", "graph_links"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE dimx = $1 AND dimy = $2 AND entity_type = $3 AND level = $4", table),
			k.DimX, k.DimY, k.Type, k.Level,
		); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_nodes (dimx, dimy, entity_type, level, id, name, x, y, size, genres, super_genre, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer nodeStmt.Close()

	for _, n := range snap.Nodes {
		if _, err := nodeStmt.ExecContext(ctx,
			k.DimX, k.DimY, k.Type, k.Level,
			n.ID, n.Name, n.X, n.Y, n.Size, pq.Array(n.Genres), n.SuperGenre, n.Color,
		); err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}

	linkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_links (dimx, dimy, entity_type, level, src, dest, label, color, x1, y1, x2, y2)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return fmt.Errorf("prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	for _, l := range snap.Links {
		if _, err := linkStmt.ExecContext(ctx,
			k.DimX, k.DimY, k.Type, k.Level,
			l.Source, l.Dest, l.Label, l.Color, l.X1, l.Y1, l.X2, l.Y2,
		); err != nil {
			return fmt.Errorf("insert link %s-%s: %w", l.Source, l.Dest, err)
		}
	}

	return tx.Commit()
}

// Get loads the snapshot for key. Returns ErrSnapshotMissing when the key
// has never been computed.
func (r *PostgresSnapshotRepository) Get(ctx context.Context, key models.SnapshotKey) (*models.Snapshot, error) {
	snap := &models.Snapshot{Key: key}

	nodeQ, nodeArgs := NewPipeline("graph_nodes").
		Project("id", "name", "x", "y", "size", "genres", "super_genre", "color").
		Match("dimx = ?", key.DimX).
		Match("dimy = ?", key.DimY).
		Match("entity_type = ?", string(key.Type)).
		Match("level = ?", key.Level).
		Sort("id", false).
		SQL()

	rows, err := r.db.QueryContext(ctx, nodeQ, nodeArgs...)
	if err != nil {
		return nil, fmt.Errorf("query snapshot nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n models.GraphNode
		var genres pq.StringArray
		if err := rows.Scan(&n.ID, &n.Name, &n.X, &n.Y, &n.Size, &genres, &n.SuperGenre, &n.Color); err != nil {
			return nil, err
		}
		n.Type = key.Type
		n.Genres = genres
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snap.Nodes) == 0 {
		return nil, fmt.Errorf("%w: %s/%s %s level %d", models.ErrSnapshotMissing, key.DimX, key.DimY, key.Type, key.Level)
	}

	linkQ, linkArgs := NewPipeline("graph_links").
		Project("src", "dest", "label", "color", "x1", "y1", "x2", "y2").
		Match("dimx = ?", key.DimX).
		Match("dimy = ?", key.DimY).
		Match("entity_type = ?", string(key.Type)).
		Match("level = ?", key.Level).
		SQL()

	linkRows, err := r.db.QueryContext(ctx, linkQ, linkArgs...)
	if err != nil {
		return nil, fmt.Errorf("query snapshot links: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var l models.GraphLink
		if err := linkRows.Scan(&l.Source, &l.Dest, &l.Label, &l.Color, &l.X1, &l.Y1, &l.X2, &l.Y2); err != nil {
			return nil, err
		}
		snap.Links = append(snap.Links, l)
	}
	return snap, linkRows.Err()
}
