package etl

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/dimension"
)

// Well-known file names of the Kaggle Spotify dataset export.
const (
	TracksFile  = "data.csv"
	GenresFile  = "data_by_genres.csv"
	YearsFile   = "data_by_year.csv"
	ArtistsFile = "data_w_genres.csv"
)

// Loader ingests the Kaggle CSV exports into the entity tables. Rows whose
// identifier was already seen in the same file are dropped; re-running a
// load over existing tables is an upsert.
type Loader struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLoader creates a Loader.
func NewLoader(db *sql.DB, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{db: db, logger: logger}
}

// Summary counts the rows loaded per table.
type Summary struct {
	Tracks  int
	Genres  int
	Years   int
	Artists int
}

// LoadDir loads all four dataset files from dir. Missing files are skipped
// with a warning so partial exports still load.
func (l *Loader) LoadDir(ctx context.Context, dir string) (Summary, error) {
	var sum Summary
	loads := []struct {
		file string
		dest *int
		fn   func(context.Context, io.Reader) (int, error)
	}{
		{GenresFile, &sum.Genres, l.LoadGenres},
		{ArtistsFile, &sum.Artists, l.LoadArtists},
		{YearsFile, &sum.Years, l.LoadYears},
		{TracksFile, &sum.Tracks, l.LoadTracks},
	}

	for _, load := range loads {
		path := filepath.Join(dir, load.file)
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("dataset file missing, skipping", zap.String("file", load.file))
				continue
			}
			return sum, fmt.Errorf("open %s: %w", load.file, err)
		}
		n, err := load.fn(ctx, f)
		f.Close()
		if err != nil {
			return sum, fmt.Errorf("load %s: %w", load.file, err)
		}
		*load.dest = n
		l.logger.Info("dataset file loaded", zap.String("file", load.file), zap.Int("rows", n))
	}
	return sum, nil
}

// LoadTracks ingests data.csv into the tracks table.
func (l *Loader) LoadTracks(ctx context.Context, r io.Reader) (int, error) {
	insert := fmt.Sprintf(`
		INSERT INTO tracks (id, name, album_label, genres, %s, features)
		VALUES (%s)
		ON CONFLICT (id) DO NOTHING
	`, strings.Join(dimension.Names, ", "), placeholders(4+len(dimension.Names)+1))

	return l.load(ctx, r, insert, func(h header, rec []string) ([]interface{}, string, error) {
		id, err := h.get(rec, "id")
		if err != nil {
			return nil, "", err
		}
		name, err := h.get(rec, "name")
		if err != nil {
			return nil, "", err
		}
		dims, err := readDims(h, rec)
		if err != nil {
			return nil, "", err
		}
		args := []interface{}{id, name, "", pq.StringArray{}}
		return appendDims(args, dims), id, nil
	})
}

// LoadGenres ingests data_by_genres.csv into the genres table. Labels and
// supergenres are filled in by later derivation steps.
func (l *Loader) LoadGenres(ctx context.Context, r io.Reader) (int, error) {
	insert := fmt.Sprintf(`
		INSERT INTO genres (genre, labels, %s, features)
		VALUES (%s)
		ON CONFLICT (genre) DO NOTHING
	`, strings.Join(dimension.Names, ", "), placeholders(2+len(dimension.Names)+1))

	return l.load(ctx, r, insert, func(h header, rec []string) ([]interface{}, string, error) {
		genre, err := h.get(rec, "genres")
		if err != nil {
			return nil, "", err
		}
		dims, err := readDims(h, rec)
		if err != nil {
			return nil, "", err
		}
		args := []interface{}{genre, pq.StringArray{}}
		return appendDims(args, dims), genre, nil
	})
}

// LoadArtists ingests data_w_genres.csv into the artists table. The genres
// column arrives as a stringified list.
func (l *Loader) LoadArtists(ctx context.Context, r io.Reader) (int, error) {
	insert := fmt.Sprintf(`
		INSERT INTO artists (artist, genres, labels, %s, features)
		VALUES (%s)
		ON CONFLICT (artist) DO NOTHING
	`, strings.Join(dimension.Names, ", "), placeholders(3+len(dimension.Names)+1))

	return l.load(ctx, r, insert, func(h header, rec []string) ([]interface{}, string, error) {
		artist, err := h.get(rec, "artists")
		if err != nil {
			return nil, "", err
		}
		rawGenres, err := h.get(rec, "genres")
		if err != nil {
			return nil, "", err
		}
		dims, err := readDims(h, rec)
		if err != nil {
			return nil, "", err
		}
		args := []interface{}{artist, pq.StringArray(parseListCell(rawGenres)), pq.StringArray{}}
		return appendDims(args, dims), artist, nil
	})
}

// LoadYears ingests data_by_year.csv into the years table.
func (l *Loader) LoadYears(ctx context.Context, r io.Reader) (int, error) {
	insert := fmt.Sprintf(`
		INSERT INTO years (year, %s)
		VALUES (%s)
		ON CONFLICT (year) DO NOTHING
	`, strings.Join(dimension.Names, ", "), placeholders(1+len(dimension.Names)))

	return l.load(ctx, r, insert, func(h header, rec []string) ([]interface{}, string, error) {
		rawYear, err := h.get(rec, "year")
		if err != nil {
			return nil, "", err
		}
		year, err := strconv.Atoi(strings.TrimSpace(rawYear))
		if err != nil {
			return nil, "", fmt.Errorf("parse year %q: %w", rawYear, err)
		}
		dims, err := readDims(h, rec)
		if err != nil {
			return nil, "", err
		}
		args := []interface{}{year}
		for _, v := range dims {
			args = append(args, v)
		}
		return args, rawYear, nil
	})
}

// load runs the shared CSV loop: one transaction, one prepared insert,
// duplicate identifiers dropped.
func (l *Loader) load(ctx context.Context, r io.Reader, insert string, row func(header, []string) ([]interface{}, string, error)) (int, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	h := newHeader(head)

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]bool)
	count := 0
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row %d: %w", line, err)
		}
		line++

		args, id, err := row(h, rec)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", line, err)
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", line, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load: %w", err)
	}
	return count, nil
}

// header maps column names to their positions in the CSV.
type header map[string]int

func newHeader(cols []string) header {
	h := make(header, len(cols))
	for i, c := range cols {
		h[strings.TrimSpace(c)] = i
	}
	return h
}

func (h header) get(rec []string, col string) (string, error) {
	i, ok := h[col]
	if !ok || i >= len(rec) {
		return "", fmt.Errorf("missing column %q", col)
	}
	return rec[i], nil
}

func (h header) float(rec []string, col string) (float64, error) {
	raw, err := h.get(rec, col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", col, raw, err)
	}
	return v, nil
}

// readDims pulls every recognized dimension column in the fixed order.
func readDims(h header, rec []string) ([]float64, error) {
	dims := make([]float64, len(dimension.Names))
	for i, dim := range dimension.Names {
		v, err := h.float(rec, dim)
		if err != nil {
			return nil, err
		}
		dims[i] = v
	}
	return dims, nil
}

// appendDims appends the dimension values and the packed feature vector.
func appendDims(args []interface{}, dims []float64) []interface{} {
	for _, v := range dims {
		args = append(args, v)
	}
	vec := make([]float32, len(dims))
	for i, v := range dims {
		vec[i] = float32(v)
	}
	return append(args, pgvector.NewVector(vec))
}

// parseListCell parses the dataset's stringified lists, e.g.
// "['show tunes', 'easy listening']", into their elements.
func parseListCell(raw string) []string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `'"`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func placeholders(n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(ps, ", ")
}
