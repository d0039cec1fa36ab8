package etl

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/clustering"
	"github.com/musexhq/musex/internal/dimension"
)

// DefaultClusterCount is the k used to group genres before naming. A fine
// partition absorbs outlier genres into small clusters instead of letting
// them pull a large cluster's centroid.
const DefaultClusterCount = 40

// Display color per supergenre.
var superGenreColors = map[string]string{
	"Classical":  "#9370db",
	"Electronic": "#32cd32",
	"Hiphop":     "#ffbf00",
	"Rock":       "#ff0000",
	"Pop":        "#ff69b4",
	"Indie":      "#1e90ff",
}

// SuperGenreLabeler assigns each genre to one of six named supergenres by
// clustering genre audio profiles and naming each cluster from its
// centroid, then propagates the assignment to artists and tracks by
// majority vote over their genre tags.
type SuperGenreLabeler struct {
	db     *sql.DB
	k      int
	logger *zap.Logger
}

// NewSuperGenreLabeler creates a labeler. k <= 0 selects the default
// cluster count.
func NewSuperGenreLabeler(db *sql.DB, k int, logger *zap.Logger) *SuperGenreLabeler {
	if k <= 0 {
		k = DefaultClusterCount
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuperGenreLabeler{db: db, k: k, logger: logger}
}

// SuperGenreReport counts the rows labeled per table.
type SuperGenreReport struct {
	Genres  int64
	Artists int64
	Tracks  int64
}

// Run executes the full labeling pass.
func (s *SuperGenreLabeler) Run(ctx context.Context) (*SuperGenreReport, error) {
	names, vectors, err := s.loadGenreVectors(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no genres loaded; run the load task first")
	}

	km := clustering.NewKMeans(s.k)
	labels := km.Fit(vectors)

	clusterNames := make([]string, len(km.Centroids))
	for i, centroid := range km.Centroids {
		clusterNames[i] = classifyCentroid(centroid)
	}

	report := &SuperGenreReport{}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin supergenre update: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE genres SET super_genre = $2, color = $3 WHERE genre = $1
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare genre update: %w", err)
	}
	defer stmt.Close()

	for i, name := range names {
		super := clusterNames[labels[i]]
		if _, err := stmt.ExecContext(ctx, name, super, superGenreColors[super]); err != nil {
			return nil, fmt.Errorf("label genre %q: %w", name, err)
		}
		report.Genres++
	}

	if report.Artists, err = propagate(ctx, tx, "artists", "artist"); err != nil {
		return nil, err
	}
	if report.Tracks, err = propagate(ctx, tx, "tracks", "id"); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit supergenre update: %w", err)
	}

	s.logger.Info("supergenres assigned",
		zap.Int64("genres", report.Genres),
		zap.Int64("artists", report.Artists),
		zap.Int64("tracks", report.Tracks))
	return report, nil
}

// loadGenreVectors reads each genre's reduced audio profile in a stable
// order.
func (s *SuperGenreLabeler) loadGenreVectors(ctx context.Context) ([]string, [][]float64, error) {
	cols := strings.Join(dimension.SimilarityDims, ", ")
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT genre, %s FROM genres ORDER BY genre", cols))
	if err != nil {
		return nil, nil, fmt.Errorf("load genre vectors: %w", err)
	}
	defer rows.Close()

	var names []string
	var vectors [][]float64
	for rows.Next() {
		var name string
		vec := make([]float64, len(dimension.SimilarityDims))
		dest := make([]interface{}, 0, 1+len(vec))
		dest = append(dest, &name)
		for i := range vec {
			dest = append(dest, &vec[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, err
		}
		names = append(names, name)
		vectors = append(vectors, vec)
	}
	return names, vectors, rows.Err()
}

// classifyCentroid names a cluster from its centroid over the reduced
// dimensions (danceability, energy, speechiness, valence, acousticness,
// instrumentalness, in that order).
func classifyCentroid(c []float64) string {
	dance, energy, speech := c[0], c[1], c[2]
	valence, acoustic, instrumental := c[3], c[4], c[5]

	switch {
	case acoustic > 0.6 && instrumental > 0.4:
		return "Classical"
	case speech > 0.2 && dance > 0.6:
		return "Hiphop"
	case instrumental > 0.5 && energy > 0.5 && acoustic < 0.3:
		return "Electronic"
	case energy > 0.7 && acoustic < 0.3:
		return "Rock"
	case dance > 0.55 && valence > 0.55:
		return "Pop"
	default:
		return "Indie"
	}
}

// propagate assigns each artist or track the most frequent supergenre among
// its genre tags, together with that supergenre's color.
func propagate(ctx context.Context, tx *sql.Tx, table, idCol string) (int64, error) {
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %[1]s e
		SET super_genre = s.super_genre, color = c.color
		FROM (
			SELECT x.%[2]s AS id,
			       mode() WITHIN GROUP (ORDER BY g.super_genre) AS super_genre
			FROM (
				SELECT %[2]s, unnest(genres) AS genre FROM %[1]s
			) x
			JOIN genres g ON g.genre = x.genre
			WHERE g.super_genre IS NOT NULL AND g.super_genre <> ''
			GROUP BY x.%[2]s
		) s
		JOIN (VALUES %[3]s) AS c(super_genre, color)
			ON c.super_genre = s.super_genre
		WHERE e.%[2]s = s.id
	`, table, idCol, colorValues()))
	if err != nil {
		return 0, fmt.Errorf("propagate supergenres to %s: %w", table, err)
	}
	return res.RowsAffected()
}

// colorValues renders the color table as a SQL VALUES list in a stable
// order.
func colorValues() string {
	names := make([]string, 0, len(superGenreColors))
	for name := range superGenreColors {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("('%s', '%s')", name, superGenreColors[name])
	}
	return strings.Join(parts, ", ")
}
