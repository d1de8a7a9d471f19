package main

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/review-rateable/internal/domain"
	"github.com/Clark-Hu/review-rateable/internal/repository"
	"github.com/Clark-Hu/review-rateable/internal/review"
	"github.com/Clark-Hu/review-rateable/internal/testdb"
)

func TestParseSubject(t *testing.T) {
	subject, err := parseSubject("product/sku/1")
	require.NoError(t, err)
	assert.Equal(t, domain.Subject{Type: "product", ID: "sku/1"}, subject)

	for _, key := range []string{"", "product", "/sku-1", "product/", " / "} {
		_, err := parseSubject(key)
		assert.Error(t, err, key)
	}
}

func TestParseFixture(t *testing.T) {
	data, err := os.ReadFile("testdata/fixture.json")
	require.NoError(t, err)

	groups, err := parseFixture(data)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, domain.Subject{Type: "employer", ID: "acme"}, groups[0].Subject)
	assert.Equal(t, domain.Subject{Type: "product", ID: "sku-1"}, groups[1].Subject)
	require.Len(t, groups[1].Entries, 2)
	require.NotNil(t, groups[1].Entries[0].UserID)
	assert.Equal(t, int64(11), *groups[1].Entries[0].UserID)

	_, err = parseFixture([]byte(`{"bad-key": []}`))
	assert.Error(t, err)
	_, err = parseFixture([]byte(`[]`))
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	data, err := os.ReadFile("testdata/fixture.json")
	require.NoError(t, err)
	groups, err := parseFixture(data)
	require.NoError(t, err)

	pool := testdb.New(t, "reviews_seed_test", 46000)
	svc := review.NewService(repository.NewWithPool(pool).Reviews, review.Options{})
	ctx := context.Background()

	res, err := seed(ctx, svc, groups)
	require.NoError(t, err)
	assert.Equal(t, seedResult{Added: 3, Approved: 2}, res)

	product := svc.For(domain.Subject{Type: "product", ID: "sku-1"})
	approved, err := product.TotalReviews(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, approved)
	all, err := product.TotalReviews(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, all)

	employer := svc.For(domain.Subject{Type: "employer", ID: "acme"})
	avg, err := employer.AverageRatingByDepartment(ctx, "engineering", "culture", true)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 4.0, *avg, 1e-9)
}

func TestSeed_InvalidEntry(t *testing.T) {
	pool := testdb.New(t, "reviews_seed_invalid", 46000)
	svc := review.NewService(repository.NewWithPool(pool).Reviews, review.Options{})

	groups := []fixtureGroup{{
		Subject: domain.Subject{Type: "product", ID: "sku-9"},
		Entries: []fixtureEntry{{Review: "ok"}, {Review: "", Ratings: map[string]float64{"quality": 7}}},
	}}
	res, err := seed(context.Background(), svc, groups)
	require.Error(t, err)
	assert.ErrorIs(t, err, review.ErrValidation)
	assert.Equal(t, 1, res.Added)
}
