package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/Clark-Hu/review-rateable/internal/domain"
	"github.com/Clark-Hu/review-rateable/internal/repository"
)

// AverageRating returns the mean value of ratings with the given key, or nil
// when there are none.
func (sc *Scope) AverageRating(ctx context.Context, key string, approved bool) (*float64, error) {
	f := sc.filter(approved)
	f.Key = &key
	avg, err := sc.svc.store.Average(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("average rating %q: %w", key, err)
	}
	return avg, nil
}

// AverageRatings returns the mean rating per distinct key.
func (sc *Scope) AverageRatings(ctx context.Context, approved bool) (map[string]float64, error) {
	averages, err := sc.svc.store.AveragesByKey(ctx, sc.filter(approved))
	if err != nil {
		return nil, fmt.Errorf("average ratings: %w", err)
	}
	return averages, nil
}

// AverageRatingByDepartment is AverageRating restricted to one department.
func (sc *Scope) AverageRatingByDepartment(ctx context.Context, department, key string, approved bool) (*float64, error) {
	f := sc.filter(approved)
	f.Department = sc.department(department)
	f.Key = &key
	avg, err := sc.svc.store.Average(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("average rating %q for department %q: %w", key, *f.Department, err)
	}
	return avg, nil
}

// AverageRatingsByDepartment is AverageRatings restricted to one department.
func (sc *Scope) AverageRatingsByDepartment(ctx context.Context, department string, approved bool) (map[string]float64, error) {
	f := sc.filter(approved)
	f.Department = sc.department(department)
	averages, err := sc.svc.store.AveragesByKey(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("average ratings for department %q: %w", *f.Department, err)
	}
	return averages, nil
}

// TotalReviews counts the reviews in scope.
func (sc *Scope) TotalReviews(ctx context.Context, approved bool) (int, error) {
	n, err := sc.svc.store.Count(ctx, sc.filter(approved))
	if err != nil {
		return 0, fmt.Errorf("total reviews: %w", err)
	}
	return n, nil
}

// TotalDepartmentReviews counts the reviews of one department.
func (sc *Scope) TotalDepartmentReviews(ctx context.Context, department string, approved bool) (int, error) {
	f := sc.filter(approved)
	f.Department = sc.department(department)
	n, err := sc.svc.store.Count(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("total reviews for department %q: %w", *f.Department, err)
	}
	return n, nil
}

// OverallAverageRating averages every rating regardless of key.
func (sc *Scope) OverallAverageRating(ctx context.Context, approved bool) (*float64, error) {
	avg, err := sc.svc.store.Average(ctx, sc.filter(approved))
	if err != nil {
		return nil, fmt.Errorf("overall average rating: %w", err)
	}
	return avg, nil
}

// RatingCounts returns the star histogram. A nil department applies no
// department filter.
func (sc *Scope) RatingCounts(ctx context.Context, department *string, approved bool) (map[int]int, error) {
	f := sc.filter(approved)
	f.Department = department
	raw, err := sc.svc.store.ValueCounts(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("rating counts: %w", err)
	}
	return zeroFill(raw), nil
}

// RatingStats returns the star histogram with percentages and total.
func (sc *Scope) RatingStats(ctx context.Context, department *string, approved bool) (domain.RatingStats, error) {
	counts, err := sc.RatingCounts(ctx, department, approved)
	if err != nil {
		return domain.RatingStats{}, err
	}
	return buildStats(counts), nil
}

// Summary collects the headline aggregates of the reviewable. A nil
// department covers every department.
func (sc *Scope) Summary(ctx context.Context, department *string, approved bool) (domain.RatingSummary, error) {
	f := sc.filter(approved)
	f.Department = department

	total, err := sc.svc.store.Count(ctx, f)
	if err != nil {
		return domain.RatingSummary{}, fmt.Errorf("summary count: %w", err)
	}
	overall, err := sc.svc.store.Average(ctx, f)
	if err != nil {
		return domain.RatingSummary{}, fmt.Errorf("summary average: %w", err)
	}
	averages, err := sc.svc.store.AveragesByKey(ctx, f)
	if err != nil {
		return domain.RatingSummary{}, fmt.Errorf("summary averages: %w", err)
	}
	stats, err := sc.RatingStats(ctx, department, approved)
	if err != nil {
		return domain.RatingSummary{}, err
	}

	return domain.RatingSummary{
		TotalReviews:   total,
		OverallAverage: overall,
		Averages:       averages,
		Stats:          stats,
	}, nil
}

// Reviews lists the reviews in scope, newest first.
func (sc *Scope) Reviews(ctx context.Context, approved, withRatings bool) ([]domain.Review, error) {
	reviews, err := sc.svc.store.List(ctx, sc.filter(approved), withRatings)
	if err != nil {
		return nil, fmt.Errorf("get reviews: %w", err)
	}
	return reviews, nil
}

// Review fetches one review of the reviewable with its ratings. It reports
// false when the review belongs elsewhere or does not exist.
func (sc *Scope) Review(ctx context.Context, reviewID int64) (domain.Review, bool, error) {
	review, err := sc.svc.store.GetByID(ctx, sc.subject, reviewID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Review{}, false, nil
	}
	if err != nil {
		return domain.Review{}, false, fmt.Errorf("get review %d: %w", reviewID, err)
	}
	return review, true, nil
}

// ReviewsByDepartment lists the reviews of one department.
func (sc *Scope) ReviewsByDepartment(ctx context.Context, department string, approved, withRatings bool) ([]domain.Review, error) {
	f := sc.filter(approved)
	f.Department = sc.department(department)
	reviews, err := sc.svc.store.List(ctx, f, withRatings)
	if err != nil {
		return nil, fmt.Errorf("get reviews for department %q: %w", *f.Department, err)
	}
	return reviews, nil
}

// ReviewsByRating lists the reviews of one department holding at least one
// rating equal to star. A nil star applies no rating filter.
func (sc *Scope) ReviewsByRating(ctx context.Context, star *int, department string, approved, withRatings bool) ([]domain.Review, error) {
	f := sc.filter(approved)
	f.Department = sc.department(department)
	f.Star = star
	reviews, err := sc.svc.store.List(ctx, f, withRatings)
	if err != nil {
		return nil, fmt.Errorf("get reviews by rating: %w", err)
	}
	return reviews, nil
}
