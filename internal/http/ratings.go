package httpserver

import (
	"net/http"
	"strconv"
)

type averageResponse struct {
	Key        *string  `json:"key,omitempty"`
	Department *string  `json:"department,omitempty"`
	Average    *float64 `json:"average"`
}

type averagesResponse struct {
	Department *string            `json:"department,omitempty"`
	Averages   map[string]float64 `json:"averages"`
}

type countsResponse struct {
	Counts map[int]int `json:"counts"`
}

// handleAverageRating serves one key's average, optionally scoped to a
// department, or the overall average when no key is given.
func (s *Server) handleAverageRating(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	q, err := buildReviewQuery(r.URL.Query(), s.cfg.Reviews)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var avg *float64
	switch {
	case q.Key != nil && q.Department != nil:
		avg, err = scope.AverageRatingByDepartment(r.Context(), *q.Department, *q.Key, q.Approved)
	case q.Key != nil:
		avg, err = scope.AverageRating(r.Context(), *q.Key, q.Approved)
	case q.Department != nil:
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", "department requires a key")
		return
	default:
		avg, err = scope.OverallAverageRating(r.Context(), q.Approved)
	}
	if err != nil {
		s.respondServiceError(w, err, "compute average")
		return
	}
	s.respondJSON(w, http.StatusOK, averageResponse{Key: q.Key, Department: q.Department, Average: avg})
}

func (s *Server) handleAverageRatings(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	q, err := buildReviewQuery(r.URL.Query(), s.cfg.Reviews)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var averages map[string]float64
	if q.Department != nil {
		averages, err = scope.AverageRatingsByDepartment(r.Context(), *q.Department, q.Approved)
	} else {
		averages, err = scope.AverageRatings(r.Context(), q.Approved)
	}
	if err != nil {
		s.respondServiceError(w, err, "compute averages")
		return
	}
	s.respondJSON(w, http.StatusOK, averagesResponse{Department: q.Department, Averages: averages})
}

func (s *Server) handleRatingCounts(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	q, err := buildReviewQuery(r.URL.Query(), s.cfg.Reviews)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	counts, err := scope.RatingCounts(r.Context(), q.Department, q.Approved)
	if err != nil {
		s.respondServiceError(w, err, "count ratings")
		return
	}
	s.respondJSON(w, http.StatusOK, countsResponse{Counts: counts})
}

func (s *Server) handleRatingStats(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	q, err := buildReviewQuery(r.URL.Query(), s.cfg.Reviews)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	stats, err := scope.RatingStats(r.Context(), q.Department, q.Approved)
	if err != nil {
		s.respondServiceError(w, err, "compute rating stats")
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRatingSummary(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	q, err := buildReviewQuery(r.URL.Query(), s.cfg.Reviews)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	summary, err := scope.Summary(r.Context(), q.Department, q.Approved)
	if err != nil {
		s.respondServiceError(w, err, "compute rating summary")
		return
	}
	s.respondJSON(w, http.StatusOK, summary)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
