package repository

import (
	"context"
	"fmt"
)

// Count returns the number of reviews matching the filter. Key is ignored.
func (r *ReviewsRepository) Count(ctx context.Context, filter ReviewFilter) (int, error) {
	var args queryArgs
	query := fmt.Sprintf(`SELECT COUNT(*) FROM reviews r WHERE %s`, reviewWhere(filter, &args))

	var count int64
	if err := r.db.QueryRow(ctx, query, args.values...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return int(count), nil
}

// Average returns the mean rating value across matching ratings, or nil when
// no rating matches.
func (r *ReviewsRepository) Average(ctx context.Context, filter ReviewFilter) (*float64, error) {
	var args queryArgs
	query := fmt.Sprintf(`
        SELECT AVG(rt.value)
        FROM ratings rt
        JOIN reviews r ON r.id = rt.review_id
        WHERE %s
    `, ratingWhere(filter, &args))

	var avg *float64
	if err := r.db.QueryRow(ctx, query, args.values...).Scan(&avg); err != nil {
		return nil, fmt.Errorf("average ratings: %w", err)
	}
	return avg, nil
}

// AveragesByKey returns the mean rating value per rating key.
func (r *ReviewsRepository) AveragesByKey(ctx context.Context, filter ReviewFilter) (map[string]float64, error) {
	var args queryArgs
	query := fmt.Sprintf(`
        SELECT rt.key, AVG(rt.value)
        FROM ratings rt
        JOIN reviews r ON r.id = rt.review_id
        WHERE %s
        GROUP BY rt.key
    `, ratingWhere(filter, &args))

	rows, err := r.db.Query(ctx, query, args.values...)
	if err != nil {
		return nil, fmt.Errorf("average ratings by key: %w", err)
	}
	defer rows.Close()

	averages := make(map[string]float64)
	for rows.Next() {
		var (
			key string
			avg float64
		)
		if err := rows.Scan(&key, &avg); err != nil {
			return nil, err
		}
		averages[key] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return averages, nil
}

// ValueCounts returns how many matching ratings hold each whole star value
// from 1 to 5. Values absent from the result have no ratings; fractional
// values are not counted.
func (r *ReviewsRepository) ValueCounts(ctx context.Context, filter ReviewFilter) (map[int]int, error) {
	var args queryArgs
	query := fmt.Sprintf(`
        SELECT rt.value, COUNT(*)
        FROM ratings rt
        JOIN reviews r ON r.id = rt.review_id
        WHERE %s AND rt.value IN (1, 2, 3, 4, 5)
        GROUP BY rt.value
    `, ratingWhere(filter, &args))

	rows, err := r.db.Query(ctx, query, args.values...)
	if err != nil {
		return nil, fmt.Errorf("count rating values: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var (
			value float64
			count int64
		)
		if err := rows.Scan(&value, &count); err != nil {
			return nil, err
		}
		counts[int(value)] = int(count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
