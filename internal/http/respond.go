package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Clark-Hu/review-rateable/internal/config"
	"github.com/Clark-Hu/review-rateable/internal/domain"
	"github.com/Clark-Hu/review-rateable/internal/review"
	"github.com/Clark-Hu/review-rateable/internal/validation"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// reviewQuery holds the query-string options shared by the read endpoints.
type reviewQuery struct {
	Approved    bool
	WithRatings bool
	Department  *string
	Star        *int
	Key         *string
}

func buildReviewQuery(query url.Values, defaults config.Reviews) (reviewQuery, error) {
	q := reviewQuery{Approved: defaults.DefaultApproved, WithRatings: true}

	if val := strings.TrimSpace(query.Get("approved")); val != "" {
		approved, err := strconv.ParseBool(val)
		if err != nil {
			return q, fmt.Errorf("invalid approved value")
		}
		q.Approved = approved
	}
	if val := strings.TrimSpace(query.Get("withRatings")); val != "" {
		withRatings, err := strconv.ParseBool(val)
		if err != nil {
			return q, fmt.Errorf("invalid withRatings value")
		}
		q.WithRatings = withRatings
	}
	if val := strings.TrimSpace(query.Get("department")); val != "" {
		q.Department = &val
	}
	if val := strings.TrimSpace(query.Get("stars")); val != "" {
		star, err := strconv.Atoi(val)
		if err != nil || star < review.MinStar || star > review.MaxStar {
			return q, fmt.Errorf("stars must be an integer between %d and %d", review.MinStar, review.MaxStar)
		}
		q.Star = &star
	}
	if val := strings.TrimSpace(query.Get("key")); val != "" {
		q.Key = &val
	}
	return q, nil
}

// scope binds the aggregator to the reviewable named in the URL.
func (s *Server) scope(r *http.Request) (*review.Scope, error) {
	typ, err := decodePathParam(r, "type")
	if err != nil {
		return nil, err
	}
	id, err := decodePathParam(r, "id")
	if err != nil {
		return nil, err
	}
	return s.reviews.For(domain.Subject{Type: typ, ID: id}), nil
}

func decodePathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return "", fmt.Errorf("missing %s parameter", name)
	}
	val, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(val) == "" {
		return "", fmt.Errorf("invalid %s parameter", name)
	}
	return val, nil
}

func parseReviewID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "reviewID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid review id")
	}
	return id, nil
}

func parseUserID(header string) (*int64, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(header, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid X-User-Id header")
	}
	return &id, nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	var maxBytesError *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.As(err, &maxBytesError):
		s.respondError(w, http.StatusRequestEntityTooLarge, "BAD_REQUEST", "Request body too large")
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

// respondServiceError maps aggregator errors to responses.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, op string) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		s.respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Review data is invalid",
			Details: verr.Fields(),
		})
		return
	}
	s.logger.Error(op+" failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to "+op)
}

func (s *Server) verifyBearer(header string) bool {
	if header == "" {
		return false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token == s.cfg.AuthToken
}
