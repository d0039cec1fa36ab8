package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/musexhq/musex/internal/graph"
	"github.com/musexhq/musex/internal/recommend"
	"github.com/musexhq/musex/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDimensions lists the recognized dimensions with their value ranges.
func (s *Server) handleDimensions(w http.ResponseWriter, r *http.Request) {
	descriptors, err := s.stats.DimMinMax(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, descriptors)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	x, err := queryFloat(r, "x")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	y, err := queryFloat(r, "y")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	zoom, err := queryFloat(r, "zoom")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.graph.Query(r.Context(), graph.ViewportQuery{
		X:     x,
		Y:     y,
		Zoom:  zoom,
		DimX:  r.URL.Query().Get("dimx"),
		DimY:  r.URL.Query().Get("dimy"),
		Type:  models.EntityType(r.URL.Query().Get("type")),
		Limit: queryInt(r, "limit", s.nodeLimit),
		Token: r.URL.Query().Get("token"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	rawNodes := r.URL.Query().Get("node")
	if rawNodes == "" {
		respondError(w, http.StatusBadRequest, "node parameter is required")
		return
	}

	result, err := s.recommend.Select(r.Context(), recommend.SelectQuery{
		NodeIDs: splitNodeIDs(rawNodes),
		DimX:    r.URL.Query().Get("dimx"),
		DimY:    r.URL.Query().Get("dimy"),
		Type:    models.EntityType(r.URL.Query().Get("type")),
		Limit:   queryInt(r, "limit", 0),
		Token:   r.URL.Query().Get("token"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// searchHit is one search match with its position under the requested
// dimension pair.
type searchHit struct {
	ID   string            `json:"id"`
	Name string            `json:"name"`
	Type models.EntityType `json:"type"`
	X    float64           `json:"x"`
	Y    float64           `json:"y"`
	Size float64           `json:"size"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("searchterm")
	if term == "" {
		respondError(w, http.StatusBadRequest, "searchterm parameter is required")
		return
	}
	dimx := r.URL.Query().Get("dimx")
	dimy := r.URL.Query().Get("dimy")

	t, err := models.ParseEntityType(r.URL.Query().Get("type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	entities, err := s.entities.Search(r.Context(), t, term)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	hits := make([]searchHit, 0, len(entities))
	for _, e := range entities {
		x, err := s.normalizer.Normalize(dimx, e.Features[dimx])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		y, err := s.normalizer.Normalize(dimy, e.Features[dimy])
		if err != nil {
			s.fail(w, r, err)
			return
		}
		hits = append(hits, searchHit{
			ID:   e.ID,
			Name: e.Name,
			Type: e.Type,
			X:    x,
			Y:    y,
			Size: e.Popularity,
		})
	}
	respondJSON(w, http.StatusOK, hits)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.LabelStats(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"labels": stats})
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.GenreStats(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"genres": stats})
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats.YearStats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"years": stats})
}

// fail maps a service error to its HTTP status and logs server faults.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidDimension),
		errors.Is(err, models.ErrUnknownDimension),
		errors.Is(err, models.ErrUnknownEntityType),
		errors.Is(err, models.ErrNoViewport):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrSnapshotMissing):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New(name + " parameter is required")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(name + " must be a number")
	}
	return v, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// splitNodeIDs parses the pipe-separated selection parameter.
func splitNodeIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, "|") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
