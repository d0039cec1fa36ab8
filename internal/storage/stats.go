package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/musexhq/musex/internal/dimension"
	"github.com/musexhq/musex/pkg/models"
)

// StatsRepository serves the derived statistics collections: the dimension
// min/max document, label portfolios, genre popularity and per-year
// aggregates.
type StatsRepository interface {
	DimMinMax(ctx context.Context) (map[string]models.DimensionDescriptor, error)
	UpdateDimMinMax(ctx context.Context) error
	LabelStats(ctx context.Context, limit int) ([]models.LabelStat, error)
	GenreStats(ctx context.Context, limit int) ([]models.GenreStat, error)
	YearStats(ctx context.Context) ([]models.YearStat, error)
}

// PostgresStatsRepository implements StatsRepository on Postgres.
type PostgresStatsRepository struct {
	db *sql.DB
}

// NewPostgresStatsRepository creates a PostgresStatsRepository.
func NewPostgresStatsRepository(db *sql.DB) *PostgresStatsRepository {
	return &PostgresStatsRepository{db: db}
}

// DimMinMax reads the cached dimension statistics document.
func (r *PostgresStatsRepository) DimMinMax(ctx context.Context) (map[string]models.DimensionDescriptor, error) {
	q, args := NewPipeline("dim_minmax").Project("dim", "min_value", "max_value").SQL()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query dim_minmax: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.DimensionDescriptor, len(dimension.Names))
	for rows.Next() {
		var d models.DimensionDescriptor
		if err := rows.Scan(&d.Name, &d.Min, &d.Max); err != nil {
			return nil, err
		}
		out[d.Name] = d
	}
	return out, rows.Err()
}

// UpdateDimMinMax recomputes the global min/max of every dimension over the
// track corpus and rewrites the dim_minmax table.
func (r *PostgresStatsRepository) UpdateDimMinMax(ctx context.Context) error {
	exprs := make([]string, 0, 2*len(dimension.Names))
	for _, dim := range dimension.Names {
		exprs = append(exprs, fmt.Sprintf("min(%s)", dim), fmt.Sprintf("max(%s)", dim))
	}
	q, args := NewPipeline("tracks").Project(exprs...).SQL()

	vals := make([]float64, 2*len(dimension.Names))
	dest := make([]interface{}, len(vals))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(dest...); err != nil {
		return fmt.Errorf("aggregate dimension min/max: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin min/max update: %w", err)
	}
	defer tx.Rollback()

	for i, dim := range dimension.Names {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO dim_minmax (dim, min_value, max_value)
			VALUES ($1, $2, $3)
			ON CONFLICT (dim) DO UPDATE SET min_value = $2, max_value = $3
		`, dim, vals[2*i], vals[2*i+1]); err != nil {
			return fmt.Errorf("upsert min/max for %s: %w", dim, err)
		}
	}
	return tx.Commit()
}

// LabelStats returns record labels with their artist and song counts,
// largest portfolios first.
func (r *PostgresStatsRepository) LabelStats(ctx context.Context, limit int) ([]models.LabelStat, error) {
	q, args := NewPipeline("labels").
		Project("name", "num_artists", "total_songs").
		Sort("total_songs", true).
		Limit(limit).
		SQL()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var out []models.LabelStat
	for rows.Next() {
		var s models.LabelStat
		if err := rows.Scan(&s.Name, &s.NumArtists, &s.TotalSongs); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GenreStats returns genres and their popularity for the wordcloud, most
// popular first.
func (r *PostgresStatsRepository) GenreStats(ctx context.Context, limit int) ([]models.GenreStat, error) {
	q, args := NewPipeline("genres").
		Project("genre", "popularity").
		Sort("popularity", true).
		Limit(limit).
		SQL()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query genre stats: %w", err)
	}
	defer rows.Close()

	var out []models.GenreStat
	for rows.Next() {
		var s models.GenreStat
		if err := rows.Scan(&s.Name, &s.Popularity); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// YearStats returns the per-year feature averages in chronological order.
func (r *PostgresStatsRepository) YearStats(ctx context.Context) ([]models.YearStat, error) {
	cols := append([]string{"year"}, dimension.Names...)
	q, args := NewPipeline("years").Project(cols...).Sort("year", false).SQL()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query year stats: %w", err)
	}
	defer rows.Close()

	var out []models.YearStat
	for rows.Next() {
		var year int
		dims := make([]float64, len(dimension.Names))
		dest := []interface{}{&year}
		for i := range dims {
			dest = append(dest, &dims[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		features := make(map[string]float64, len(dims))
		for i, dim := range dimension.Names {
			features[dim] = dims[i]
		}
		out = append(out, models.YearStat{Year: year, Features: features})
	}
	return out, rows.Err()
}
