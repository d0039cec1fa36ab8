package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/musexhq/musex/internal/dimension"
	"github.com/musexhq/musex/pkg/models"
)

// EntitySource describes how one entity type maps onto its table. The three
// collections share the dimension columns but differ in identifier, name
// and group-label storage, so handlers resolve a source once instead of
// branching on type strings throughout.
type EntitySource struct {
	Type       models.EntityType
	Table      string
	IDColumn   string
	NameColumn string
	// LabelExpr is a SQL expression yielding the entity's group labels as
	// a text array.
	LabelExpr string
	// GenresExpr is a SQL expression yielding the entity's genre tags as a
	// text array.
	GenresExpr string
}

var sources = map[models.EntityType]EntitySource{
	models.EntityGenre: {
		Type:       models.EntityGenre,
		Table:      "genres",
		IDColumn:   "genre",
		NameColumn: "genre",
		LabelExpr:  "COALESCE(labels, '{}')",
		GenresExpr: "ARRAY[genre]",
	},
	models.EntityArtist: {
		Type:       models.EntityArtist,
		Table:      "artists",
		IDColumn:   "artist",
		NameColumn: "artist",
		LabelExpr:  "COALESCE(labels, '{}')",
		GenresExpr: "COALESCE(genres, '{}')",
	},
	models.EntityTrack: {
		Type:       models.EntityTrack,
		Table:      "tracks",
		IDColumn:   "id",
		NameColumn: "name",
		LabelExpr:  "CASE WHEN album_label IS NULL OR album_label = '' THEN ARRAY[]::text[] ELSE ARRAY[album_label] END",
		GenresExpr: "COALESCE(genres, '{}')",
	},
}

// SourceFor resolves the EntitySource for a type.
func SourceFor(t models.EntityType) (EntitySource, error) {
	src, ok := sources[t]
	if !ok {
		return EntitySource{}, fmt.Errorf("%w: %q", models.ErrUnknownEntityType, t)
	}
	return src, nil
}

// EntityRepository reads entity documents. Entities are written only by the
// ETL; request-time access is read-only.
type EntityRepository interface {
	List(ctx context.Context, t models.EntityType, offset, limit int) ([]models.Entity, error)
	GetByIDs(ctx context.Context, t models.EntityType, ids []string) ([]models.Entity, error)
	Search(ctx context.Context, t models.EntityType, term string) ([]models.Entity, error)
	FeatureVectors(ctx context.Context, t models.EntityType, ids []string) (map[string][]float32, error)
}

// PostgresEntityRepository implements EntityRepository on Postgres.
type PostgresEntityRepository struct {
	db *sql.DB
}

// NewPostgresEntityRepository creates a PostgresEntityRepository.
func NewPostgresEntityRepository(db *sql.DB) *PostgresEntityRepository {
	return &PostgresEntityRepository{db: db}
}

func (r *PostgresEntityRepository) base(src EntitySource) *Pipeline {
	cols := []string{
		src.IDColumn,
		src.NameColumn,
		src.LabelExpr + " AS labels",
		src.GenresExpr + " AS genres",
		"COALESCE(super_genre, '')",
		"COALESCE(color, '')",
	}
	cols = append(cols, dimension.Names...)
	return NewPipeline(src.Table).Project(cols...)
}

// List returns entities of type t ordered by ID, optionally paginated.
func (r *PostgresEntityRepository) List(ctx context.Context, t models.EntityType, offset, limit int) ([]models.Entity, error) {
	src, err := SourceFor(t)
	if err != nil {
		return nil, err
	}
	q, args := r.base(src).Sort(src.IDColumn, false).Offset(offset).Limit(limit).SQL()
	return r.query(ctx, src, q, args)
}

// GetByIDs returns the entities whose IDs are in ids.
func (r *PostgresEntityRepository) GetByIDs(ctx context.Context, t models.EntityType, ids []string) ([]models.Entity, error) {
	src, err := SourceFor(t)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	q, args := r.base(src).MatchIn(src.IDColumn, ids).SQL()
	return r.query(ctx, src, q, args)
}

// Search returns entities whose name contains term, case-insensitively.
func (r *PostgresEntityRepository) Search(ctx context.Context, t models.EntityType, term string) ([]models.Entity, error) {
	src, err := SourceFor(t)
	if err != nil {
		return nil, err
	}
	q, args := r.base(src).
		Match(src.NameColumn+" ILIKE ?", "%"+term+"%").
		Sort("popularity", true).
		SQL()
	return r.query(ctx, src, q, args)
}

// FeatureVectors returns the stored feature vector of each requested
// entity, in the fixed dimension order.
func (r *PostgresEntityRepository) FeatureVectors(ctx context.Context, t models.EntityType, ids []string) (map[string][]float32, error) {
	src, err := SourceFor(t)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return map[string][]float32{}, nil
	}
	q, args := NewPipeline(src.Table).
		Project(src.IDColumn, "features").
		MatchIn(src.IDColumn, ids).
		SQL()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query feature vectors: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32, len(ids))
	for rows.Next() {
		var id string
		var vec pgvector.Vector
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, err
		}
		out[id] = vec.Slice()
	}
	return out, rows.Err()
}

func (r *PostgresEntityRepository) query(ctx context.Context, src EntitySource, q string, args []interface{}) ([]models.Entity, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", src.Table, err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		e, err := scanEntity(rows, src)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func scanEntity(rows *sql.Rows, src EntitySource) (models.Entity, error) {
	var (
		id, name, superGenre, color string
		labels, genres              pq.StringArray
	)
	dims := make([]float64, len(dimension.Names))

	dest := []interface{}{&id, &name, &labels, &genres, &superGenre, &color}
	for i := range dims {
		dest = append(dest, &dims[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return models.Entity{}, err
	}

	features := make(map[string]float64, len(dims))
	for i, dim := range dimension.Names {
		features[dim] = dims[i]
	}

	return models.Entity{
		ID:         id,
		Type:       src.Type,
		Name:       name,
		Features:   features,
		Popularity: features["popularity"],
		Labels:     labels,
		Genres:     genres,
		SuperGenre: superGenre,
		Color:      color,
	}, nil
}
