package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/musexhq/musex/pkg/models"
)

func testSnapshot() models.Snapshot {
	return models.Snapshot{
		Key: models.SnapshotKey{DimX: "energy", DimY: "tempo", Type: models.EntityTrack, Level: 2},
		Nodes: []models.GraphNode{
			{ID: "t1", Name: "Song One", X: 0.1, Y: 0.2, Size: 40, Type: models.EntityTrack},
			{ID: "t2", Name: "Song Two", X: 0.8, Y: 0.9, Size: 55, Type: models.EntityTrack},
		},
		Links: []models.GraphLink{
			{Source: "t1", Dest: "t2", Label: "Warner", Color: "#ff0000"},
		},
	}
}

func TestSnapshotReplace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresSnapshotRepository(db)
	snap := testSnapshot()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM graph_nodes").
		WithArgs("energy", "tempo", models.EntityTrack, 2).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM graph_links").
		WithArgs("energy", "tempo", models.EntityTrack, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare("INSERT INTO graph_nodes")
	mock.ExpectExec("INSERT INTO graph_nodes").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO graph_nodes").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectPrepare("INSERT INTO graph_links")
	mock.ExpectExec("INSERT INTO graph_links").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.Replace(context.Background(), snap); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSnapshotReplaceRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresSnapshotRepository(db)
	snap := testSnapshot()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM graph_nodes").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if err := repo.Replace(context.Background(), snap); err == nil {
		t.Error("expected error from failed delete")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSnapshotGet(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresSnapshotRepository(db)
	key := models.SnapshotKey{DimX: "energy", DimY: "tempo", Type: models.EntityTrack, Level: 2}

	nodeRows := sqlmock.NewRows([]string{"id", "name", "x", "y", "size", "genres", "super_genre", "color"}).
		AddRow("t1", "Song One", 0.1, 0.2, 40.0, "{rock}", "Rock", "#ff0000").
		AddRow("t2", "Song Two", 0.8, 0.9, 55.0, "{pop}", "Pop", "#ff69b4")
	mock.ExpectQuery("SELECT (.+) FROM graph_nodes").
		WithArgs("energy", "tempo", "track", 2).
		WillReturnRows(nodeRows)

	linkRows := sqlmock.NewRows([]string{"src", "dest", "label", "color", "x1", "y1", "x2", "y2"}).
		AddRow("t1", "t2", "Warner", "#ff0000", 0.1, 0.2, 0.8, 0.9)
	mock.ExpectQuery("SELECT (.+) FROM graph_links").
		WithArgs("energy", "tempo", "track", 2).
		WillReturnRows(linkRows)

	snap, err := repo.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(snap.Nodes) != 2 || len(snap.Links) != 1 {
		t.Errorf("got %d nodes, %d links", len(snap.Nodes), len(snap.Links))
	}
	if snap.Nodes[0].Type != models.EntityTrack {
		t.Errorf("node type = %q", snap.Nodes[0].Type)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestSnapshotGetMissing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	defer db.Close()

	repo := NewPostgresSnapshotRepository(db)
	key := models.SnapshotKey{DimX: "energy", DimY: "tempo", Type: models.EntityGenre, Level: 0}

	mock.ExpectQuery("SELECT (.+) FROM graph_nodes").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "x", "y", "size", "genres", "super_genre", "color"}))

	_, err = repo.Get(context.Background(), key)
	if !errors.Is(err, models.ErrSnapshotMissing) {
		t.Errorf("expected ErrSnapshotMissing, got %v", err)
	}
}
