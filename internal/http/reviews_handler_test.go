package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Clark-Hu/review-rateable/internal/config"
	"github.com/Clark-Hu/review-rateable/internal/repository"
	"github.com/Clark-Hu/review-rateable/internal/review"
	"github.com/Clark-Hu/review-rateable/internal/testdb"
)

const basePath = "/reviewables/product/sku-1"

func buildTestServer(tb testing.TB) *Server {
	tb.Helper()
	cfg := config.Config{
		Port:             "0",
		AuthToken:        "secret",
		ReadTimeoutSecs:  15,
		WriteTimeoutSecs: 15,
		IdleTimeoutSecs:  60,
		Reviews: config.Reviews{
			DefaultDepartment: "default",
			DefaultApproved:   true,
		},
	}

	pool := testdb.New(tb, "reviews_test_handlers", 42000)
	repo := repository.NewWithPool(pool)
	svc := review.NewService(repo.Reviews, review.Options{DefaultDepartment: cfg.Reviews.DefaultDepartment})

	srv := New(cfg, nil, svc, zap.NewNop())
	// Replace chi router to avoid default middleware noise.
	srv.router = chi.NewRouter()
	srv.registerRoutes()
	return srv
}

func do(tb testing.TB, srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	tb.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

var moderator = map[string]string{"Authorization": "Bearer secret"}

func createReview(t *testing.T, srv *Server, body string) reviewResponse {
	t.Helper()
	rec := do(t, srv, http.MethodPost, basePath+"/reviews", body, map[string]string{"X-User-Id": "7"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created reviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func approve(t *testing.T, srv *Server, id int64) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, basePath+"/reviews/"+formatID(id)+"/approve", "", moderator)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHandleAddReview(t *testing.T) {
	srv := buildTestServer(t)

	created := createReview(t, srv, `{"review":"Great place","ratings":{"quality":5,"service":4}}`)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "product", created.ReviewableType)
	assert.Equal(t, "sku-1", created.ReviewableID)
	assert.Equal(t, "default", created.Department)
	assert.False(t, created.Approved)
	require.NotNil(t, created.UserID)
	assert.Equal(t, int64(7), *created.UserID)
	assert.Equal(t, map[string]float64{"quality": 5, "service": 4}, created.Ratings)
}

func TestHandleAddReview_Invalid(t *testing.T) {
	srv := buildTestServer(t)

	rec := do(t, srv, http.MethodPost, basePath+"/reviews", "invalid json", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, srv, http.MethodPost, basePath+"/reviews", `{"review":"ok","ratings":{"quality":9}}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, rec.Body.String(), "ratings")

	rec = do(t, srv, http.MethodPost, basePath+"/reviews", `{"review":"ok","stars":3}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, basePath+"/reviews", `{"review":"ok"}`, map[string]string{"X-User-Id": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleApproveAndDelete_RequireBearer(t *testing.T) {
	srv := buildTestServer(t)
	created := createReview(t, srv, `{"review":"fine","ratings":{"quality":3}}`)
	path := basePath + "/reviews/" + formatID(created.ID)

	rec := do(t, srv, http.MethodPost, path+"/approve", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, srv, http.MethodDelete, path, "", map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = do(t, srv, http.MethodPatch, path, `{"approved":true}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodPost, basePath+"/reviews/999999/approve", "", moderator)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodPost, basePath+"/reviews/abc/approve", "", moderator)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Another reviewable cannot reach this review.
	rec = do(t, srv, http.MethodDelete, "/reviewables/product/sku-2/reviews/"+formatID(created.ID), "", moderator)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched reviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, map[string]float64{"quality": 3}, fetched.Ratings)

	rec = do(t, srv, http.MethodDelete, path, "", moderator)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, srv, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, srv, http.MethodDelete, path, "", moderator)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListAndCount_ApprovalScope(t *testing.T) {
	srv := buildTestServer(t)
	first := createReview(t, srv, `{"review":"one","ratings":{"quality":5}}`)
	createReview(t, srv, `{"review":"two","department":"sales","ratings":{"quality":2}}`)
	approve(t, srv, first.ID)

	var count countResponse
	rec := do(t, srv, http.MethodGet, basePath+"/reviews/count", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, 1, count.Total)

	rec = do(t, srv, http.MethodGet, basePath+"/reviews/count?approved=false", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, 2, count.Total)

	rec = do(t, srv, http.MethodGet, basePath+"/reviews/count?approved=false&department=sales", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, 1, count.Total)

	var list reviewListResponse
	rec = do(t, srv, http.MethodGet, basePath+"/reviews?approved=false", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "two", list.Items[0].Review)

	rec = do(t, srv, http.MethodGet, basePath+"/reviews?approved=false&stars=5", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, first.ID, list.Items[0].ID)

	rec = do(t, srv, http.MethodGet, basePath+"/reviews?approved=false&department=sales&withRatings=false", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Nil(t, list.Items[0].Ratings)

	rec = do(t, srv, http.MethodGet, basePath+"/reviews?stars=9", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdateReview(t *testing.T) {
	srv := buildTestServer(t)
	created := createReview(t, srv, `{"review":"meh","ratings":{"quality":2}}`)
	path := basePath + "/reviews/" + formatID(created.ID)

	rec := do(t, srv, http.MethodPatch, path, `{"review":"better","ratings":{"quality":4,"value":5}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPatch, path, `{"review":""}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, srv, http.MethodPatch, basePath+"/reviews/424242", `{"review":"x"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var list reviewListResponse
	rec = do(t, srv, http.MethodGet, basePath+"/reviews?approved=false", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "better", list.Items[0].Review)
	assert.Equal(t, map[string]float64{"quality": 4, "value": 5}, list.Items[0].Ratings)
}

func TestHandleRatingAggregates(t *testing.T) {
	srv := buildTestServer(t)
	a := createReview(t, srv, `{"review":"a","ratings":{"quality":5,"service":4}}`)
	b := createReview(t, srv, `{"review":"b","department":"sales","ratings":{"quality":3}}`)
	approve(t, srv, a.ID)
	approve(t, srv, b.ID)

	var avg averageResponse
	rec := do(t, srv, http.MethodGet, basePath+"/ratings/average?key=quality", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avg))
	require.NotNil(t, avg.Average)
	assert.InDelta(t, 4.0, *avg.Average, 1e-9)

	rec = do(t, srv, http.MethodGet, basePath+"/ratings/average?key=quality&department=sales", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avg))
	require.NotNil(t, avg.Average)
	assert.InDelta(t, 3.0, *avg.Average, 1e-9)

	rec = do(t, srv, http.MethodGet, basePath+"/ratings/average", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avg))
	require.NotNil(t, avg.Average)
	assert.InDelta(t, 4.0, *avg.Average, 1e-9)

	rec = do(t, srv, http.MethodGet, basePath+"/ratings/average?department=sales", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, basePath+"/ratings/average?key=missing", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avg))
	assert.Nil(t, avg.Average)

	var avgs averagesResponse
	rec = do(t, srv, http.MethodGet, basePath+"/ratings/averages", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avgs))
	assert.InDelta(t, 4.0, avgs.Averages["quality"], 1e-9)
	assert.InDelta(t, 4.0, avgs.Averages["service"], 1e-9)

	var counts struct {
		Counts map[string]int `json:"counts"`
	}
	rec = do(t, srv, http.MethodGet, basePath+"/ratings/counts", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Equal(t, map[string]int{"1": 0, "2": 0, "3": 1, "4": 1, "5": 1}, counts.Counts)

	var stats struct {
		Percentages map[string]float64 `json:"percentages"`
		Total       int                `json:"total"`
	}
	rec = do(t, srv, http.MethodGet, basePath+"/ratings/stats", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Total)
	sum := 0.0
	for _, p := range stats.Percentages {
		sum += p
	}
	assert.InDelta(t, 100, sum, 0.05)

	var summary struct {
		TotalReviews   int      `json:"totalReviews"`
		OverallAverage *float64 `json:"overallAverage"`
	}
	rec = do(t, srv, http.MethodGet, basePath+"/ratings/summary?department=sales", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.TotalReviews)
	require.NotNil(t, summary.OverallAverage)
	assert.InDelta(t, 3.0, *summary.OverallAverage, 1e-9)
}

func TestHandleListReviews_RatingsPresence(t *testing.T) {
	srv := buildTestServer(t)
	created := createReview(t, srv, `{"review":"no stars given"}`)
	approve(t, srv, created.ID)

	rec := do(t, srv, http.MethodGet, basePath+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ratings":{}`)

	rec = do(t, srv, http.MethodGet, basePath+"/reviews?withRatings=false", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ratings":null`)
}
