package etl

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

const genreCSVHeader = "genres,danceability,duration_ms,energy,instrumentalness," +
	"liveness,loudness,speechiness,tempo,valence,popularity,key,mode,acousticness\n"

func genreRow(name string) string {
	return name + ",0.5,200000,0.6,0.1,0.2,-10,0.05,120,0.4,55,5,1,0.3\n"
}

func TestLoadGenresDropsDuplicates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO genres")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	csv := genreCSVHeader + genreRow("ambient") + genreRow("tango") + genreRow("ambient")
	n, err := NewLoader(db, nil).LoadGenres(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("LoadGenres: %v", err)
	}
	if n != 2 {
		t.Errorf("loaded %d rows, want 2", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestLoadGenresMissingColumn(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO genres")
	mock.ExpectRollback()

	csv := "genres,danceability\nambient,0.5\n"
	if _, err := NewLoader(db, nil).LoadGenres(context.Background(), strings.NewReader(csv)); err == nil {
		t.Fatal("expected error for missing dimension columns")
	}
}

func TestLoadYearsParsesYear(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO years")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	csv := "year,danceability,duration_ms,energy,instrumentalness,liveness,loudness," +
		"speechiness,tempo,valence,popularity,key,mode,acousticness\n" +
		"1971,0.5,200000,0.6,0.1,0.2,-10,0.05,120,0.4,55,5,1,0.3\n"
	n, err := NewLoader(db, nil).LoadYears(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("LoadYears: %v", err)
	}
	if n != 1 {
		t.Errorf("loaded %d rows, want 1", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestParseListCell(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"['show tunes', 'easy listening']", []string{"show tunes", "easy listening"}},
		{`["pop"]`, []string{"pop"}},
		{"[]", nil},
		{"", nil},
	}
	for _, c := range cases {
		if got := parseListCell(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("parseListCell(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
