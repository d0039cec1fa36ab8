package etl

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// DeriveLabelStats rebuilds the labels table from the loaded corpus: for
// each record label, the number of distinct artists signed to it and the
// number of songs released under it. Existing rows are overwritten.
func DeriveLabelStats(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO labels (name, num_artists, total_songs)
		SELECT name,
		       count(DISTINCT artist) FILTER (WHERE artist IS NOT NULL),
		       count(DISTINCT track_id) FILTER (WHERE track_id IS NOT NULL)
		FROM (
			SELECT unnest(labels) AS name, artist, NULL::text AS track_id
			FROM artists
			UNION ALL
			SELECT album_label, NULL, id
			FROM tracks
			WHERE album_label IS NOT NULL AND album_label <> ''
		) u
		GROUP BY name
		ON CONFLICT (name) DO UPDATE
			SET num_artists = EXCLUDED.num_artists,
			    total_songs = EXCLUDED.total_songs
	`)
	if err != nil {
		return fmt.Errorf("derive label stats: %w", err)
	}

	n, _ := res.RowsAffected()
	logger.Info("label stats derived", zap.Int64("labels", n))
	return nil
}

// AttachLabelsToGenres copies each genre's label portfolio from the artists
// tagged with it, so genre nodes carry group labels for link derivation.
func AttachLabelsToGenres(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	res, err := db.ExecContext(ctx, `
		UPDATE genres g
		SET labels = sub.labels
		FROM (
			SELECT genre, array_agg(DISTINCT label) AS labels
			FROM (
				SELECT unnest(genres) AS genre, unnest(labels) AS label
				FROM artists
			) x
			GROUP BY genre
		) sub
		WHERE g.genre = sub.genre
	`)
	if err != nil {
		return fmt.Errorf("attach labels to genres: %w", err)
	}

	n, _ := res.RowsAffected()
	logger.Info("genre labels attached", zap.Int64("genres", n))
	return nil
}
