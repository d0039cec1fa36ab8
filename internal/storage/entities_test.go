package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/musexhq/musex/internal/dimension"
	"github.com/musexhq/musex/pkg/models"
)

func entityColumns() []string {
	cols := []string{"id", "name", "labels", "genres", "super_genre", "color"}
	return append(cols, dimension.Names...)
}

func addEntityRow(rows *sqlmock.Rows, id, name string) {
	vals := []driver.Value{id, name, "{Warner}", "{rock}", "Rock", "#ff0000"}
	for range dimension.Names {
		vals = append(vals, 0.5)
	}
	rows.AddRow(vals...)
}

func TestEntityGetByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresEntityRepository(db)

	rows := sqlmock.NewRows(entityColumns())
	addEntityRow(rows, "t1", "Song One")
	addEntityRow(rows, "t2", "Song Two")

	mock.ExpectQuery("SELECT (.+) FROM tracks").
		WithArgs("t1", "t2").
		WillReturnRows(rows)

	entities, err := repo.GetByIDs(context.Background(), models.EntityTrack, []string{"t1", "t2"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}

	e := entities[0]
	if e.ID != "t1" || e.Type != models.EntityTrack {
		t.Errorf("unexpected entity %+v", e)
	}
	if len(e.Features) != len(dimension.Names) {
		t.Errorf("expected %d features, got %d", len(dimension.Names), len(e.Features))
	}
	if e.Popularity != 0.5 {
		t.Errorf("popularity should be copied from features, got %v", e.Popularity)
	}
	if len(e.Labels) != 1 || e.Labels[0] != "Warner" {
		t.Errorf("labels = %v", e.Labels)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestEntityGetByIDsEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresEntityRepository(db)

	entities, err := repo.GetByIDs(context.Background(), models.EntityTrack, nil)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if entities != nil {
		t.Errorf("expected nil result, got %v", entities)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestEntitySearch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresEntityRepository(db)

	rows := sqlmock.NewRows(entityColumns())
	addEntityRow(rows, "jazz fusion", "jazz fusion")

	mock.ExpectQuery("SELECT (.+) FROM genres WHERE genre ILIKE").
		WithArgs("%jazz%").
		WillReturnRows(rows)

	entities, err := repo.Search(context.Background(), models.EntityGenre, "jazz")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entities) != 1 || entities[0].Name != "jazz fusion" {
		t.Errorf("unexpected result %+v", entities)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestEntityUnknownType(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresEntityRepository(db)

	_, err = repo.List(context.Background(), models.EntityType("album"), 0, 0)
	if !errors.Is(err, models.ErrUnknownEntityType) {
		t.Errorf("expected ErrUnknownEntityType, got %v", err)
	}
}

func TestSourceFor(t *testing.T) {
	tests := []struct {
		t     models.EntityType
		table string
		id    string
	}{
		{models.EntityGenre, "genres", "genre"},
		{models.EntityArtist, "artists", "artist"},
		{models.EntityTrack, "tracks", "id"},
	}

	for _, tt := range tests {
		src, err := SourceFor(tt.t)
		if err != nil {
			t.Fatalf("SourceFor(%s): %v", tt.t, err)
		}
		if src.Table != tt.table || src.IDColumn != tt.id {
			t.Errorf("SourceFor(%s) = %+v", tt.t, src)
		}
	}
}
