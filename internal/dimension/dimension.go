package dimension

import (
	"fmt"

	"github.com/musexhq/musex/pkg/models"
)

// Names is the fixed set of recognized feature dimensions, computed over the
// track corpus by the ETL.
var Names = []string{
	"danceability",
	"duration_ms",
	"energy",
	"instrumentalness",
	"liveness",
	"loudness",
	"speechiness",
	"tempo",
	"valence",
	"popularity",
	"key",
	"mode",
	"acousticness",
}

// SimilarityDims is the reduced dimension subset used by the similarity
// recommender.
var SimilarityDims = []string{
	"danceability",
	"energy",
	"speechiness",
	"valence",
	"acousticness",
	"instrumentalness",
}

var known = func() map[string]bool {
	m := make(map[string]bool, len(Names))
	for _, n := range Names {
		m[n] = true
	}
	return m
}()

// Known reports whether name is a recognized dimension.
func Known(name string) bool {
	return known[name]
}

// IndexOf returns the position of name in the fixed dimension order, which
// is also the layout of stored feature vectors. Returns -1 for unknown
// names.
func IndexOf(name string) int {
	for i, n := range Names {
		if n == name {
			return i
		}
	}
	return -1
}

// ValidatePair checks a client-supplied dimension pair. The two dimensions
// must be recognized and distinct.
func ValidatePair(dimx, dimy string) error {
	for _, d := range []string{dimx, dimy} {
		if !Known(d) {
			return fmt.Errorf("%w: %q", models.ErrUnknownDimension, d)
		}
	}
	if dimx == dimy {
		return fmt.Errorf("%w: %q on both axes", models.ErrInvalidDimension, dimx)
	}
	return nil
}
