package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/Clark-Hu/review-rateable/internal/domain"
)

type reviewResponse struct {
	ID             int64              `json:"id"`
	ReviewableType string             `json:"reviewableType"`
	ReviewableID   string             `json:"reviewableId"`
	UserID         *int64             `json:"userId,omitempty"`
	Review         string             `json:"review"`
	Department     string             `json:"department"`
	Recommend      bool               `json:"recommend"`
	Approved       bool               `json:"approved"`
	// Ratings is null when ratings were not requested and {} when the review has none.
	Ratings        map[string]float64 `json:"ratings"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

type reviewListResponse struct {
	Items []reviewResponse `json:"items"`
}

type countResponse struct {
	Total int `json:"total"`
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
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

	var reviews []domain.Review
	switch {
	case q.Star != nil:
		department := ""
		if q.Department != nil {
			department = *q.Department
		}
		reviews, err = scope.ReviewsByRating(r.Context(), q.Star, department, q.Approved, q.WithRatings)
	case q.Department != nil:
		reviews, err = scope.ReviewsByDepartment(r.Context(), *q.Department, q.Approved, q.WithRatings)
	default:
		reviews, err = scope.Reviews(r.Context(), q.Approved, q.WithRatings)
	}
	if err != nil {
		s.respondServiceError(w, err, "list reviews")
		return
	}

	items := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		items = append(items, toReviewResponse(rv))
	}
	s.respondJSON(w, http.StatusOK, reviewListResponse{Items: items})
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	userID, err := parseUserID(r.Header.Get("X-User-Id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req domain.ReviewInput
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	created, err := scope.AddReview(r.Context(), req, userID)
	if err != nil {
		s.respondServiceError(w, err, "add review")
		return
	}
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+formatID(created.ID))
	s.respondJSON(w, http.StatusCreated, toReviewResponse(created))
}

func (s *Server) handleCountReviews(w http.ResponseWriter, r *http.Request) {
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

	var total int
	if q.Department != nil {
		total, err = scope.TotalDepartmentReviews(r.Context(), *q.Department, q.Approved)
	} else {
		total, err = scope.TotalReviews(r.Context(), q.Approved)
	}
	if err != nil {
		s.respondServiceError(w, err, "count reviews")
		return
	}
	s.respondJSON(w, http.StatusOK, countResponse{Total: total})
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	id, err := parseReviewID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	rv, ok, err := scope.Review(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "get review")
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Review not found")
		return
	}
	s.respondJSON(w, http.StatusOK, toReviewResponse(rv))
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	scope, err := s.scope(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	id, err := parseReviewID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req domain.ReviewUpdate
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	// Changing the approval state is a moderation action.
	if req.Approved != nil && !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}

	ok, err := scope.UpdateReview(r.Context(), id, req)
	if err != nil {
		s.respondServiceError(w, err, "update review")
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Review not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (s *Server) handleApproveReview(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}
	scope, err := s.scope(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	id, err := parseReviewID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ok, err := scope.ApproveReview(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "approve review")
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Review not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"approved": true})
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return
	}
	scope, err := s.scope(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	id, err := parseReviewID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	ok, err := scope.DeleteReview(r.Context(), id)
	if err != nil {
		s.respondServiceError(w, err, "delete review")
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Review not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toReviewResponse(rv domain.Review) reviewResponse {
	return reviewResponse{
		ID:             rv.ID,
		ReviewableType: rv.ReviewableType,
		ReviewableID:   rv.ReviewableID,
		UserID:         rv.UserID,
		Review:         rv.Body,
		Department:     rv.Department,
		Recommend:      rv.Recommend,
		Approved:       rv.Approved,
		Ratings:        rv.Ratings,
		CreatedAt:      rv.CreatedAt.UTC(),
		UpdatedAt:      rv.UpdatedAt.UTC(),
	}
}
