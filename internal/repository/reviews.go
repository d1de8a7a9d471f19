package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/Clark-Hu/review-rateable/internal/domain"
)

// ReviewsRepository persists reviews and their ratings.
type ReviewsRepository struct {
	db DBTX
}

const reviewColumns = `
    r.id,
    r.reviewable_type,
    r.reviewable_id,
    r.user_id,
    r.body,
    r.department,
    r.recommend,
    r.approved,
    r.created_at,
    r.updated_at
`

// ReviewCreateParams bundles the fields required to create a review.
type ReviewCreateParams struct {
	Subject    domain.Subject
	UserID     *int64
	Body       string
	Department string
	Recommend  bool
	Approved   bool
	Ratings    map[string]float64
}

// ReviewUpdateParams carries a partial update. Nil fields keep their value and
// a non-nil Ratings replaces the stored rating set.
type ReviewUpdateParams struct {
	Subject    domain.Subject
	ID         int64
	Body       *string
	Department *string
	Recommend  *bool
	Approved   *bool
	Ratings    map[string]float64
}

// Create inserts a review and its ratings in one transaction.
func (r *ReviewsRepository) Create(ctx context.Context, params ReviewCreateParams) (domain.Review, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Review{}, fmt.Errorf("begin create review: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`
        INSERT INTO reviews AS r (reviewable_type, reviewable_id, user_id, body, department, recommend, approved)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING %s
    `, reviewColumns)

	row := tx.QueryRow(ctx, query,
		params.Subject.Type,
		params.Subject.ID,
		params.UserID,
		params.Body,
		params.Department,
		params.Recommend,
		params.Approved,
	)
	review, err := scanReview(row)
	if err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}

	if err := insertRatings(ctx, tx, review.ID, params.Ratings); err != nil {
		return domain.Review{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Review{}, fmt.Errorf("commit create review: %w", err)
	}

	review.Ratings = copyRatings(params.Ratings)
	return review, nil
}

// GetByID fetches one review of the subject together with its ratings.
func (r *ReviewsRepository) GetByID(ctx context.Context, subject domain.Subject, id int64) (domain.Review, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM reviews r
        WHERE r.id = $1 AND r.reviewable_type = $2 AND r.reviewable_id = $3
    `, reviewColumns)

	review, err := scanReview(r.db.QueryRow(ctx, query, id, subject.Type, subject.ID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Review{}, ErrNotFound
		}
		return domain.Review{}, err
	}

	reviews := []domain.Review{review}
	if err := r.attachRatings(ctx, reviews); err != nil {
		return domain.Review{}, err
	}
	return reviews[0], nil
}

// Update applies a partial update to a review owned by the subject.
func (r *ReviewsRepository) Update(ctx context.Context, params ReviewUpdateParams) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update review: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const query = `
        UPDATE reviews
        SET body = COALESCE($4, body),
            department = COALESCE($5, department),
            recommend = COALESCE($6, recommend),
            approved = COALESCE($7, approved),
            updated_at = now()
        WHERE id = $1 AND reviewable_type = $2 AND reviewable_id = $3
    `
	tag, err := tx.Exec(ctx, query,
		params.ID,
		params.Subject.Type,
		params.Subject.ID,
		params.Body,
		params.Department,
		params.Recommend,
		params.Approved,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if params.Ratings != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM ratings WHERE review_id = $1`, params.ID); err != nil {
			return fmt.Errorf("clear ratings: %w", err)
		}
		if err := insertRatings(ctx, tx, params.ID, params.Ratings); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update review: %w", err)
	}
	return nil
}

// Approve marks a review as approved.
func (r *ReviewsRepository) Approve(ctx context.Context, subject domain.Subject, id int64) error {
	const query = `
        UPDATE reviews SET approved = TRUE, updated_at = now()
        WHERE id = $1 AND reviewable_type = $2 AND reviewable_id = $3
    `
	tag, err := r.db.Exec(ctx, query, id, subject.Type, subject.ID)
	if err != nil {
		return fmt.Errorf("approve review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a review; its ratings go with it through the foreign key cascade.
func (r *ReviewsRepository) Delete(ctx context.Context, subject domain.Subject, id int64) error {
	const query = `DELETE FROM reviews WHERE id = $1 AND reviewable_type = $2 AND reviewable_id = $3`
	tag, err := r.db.Exec(ctx, query, id, subject.Type, subject.ID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the reviews matching the filter, newest first.
func (r *ReviewsRepository) List(ctx context.Context, filter ReviewFilter, withRatings bool) ([]domain.Review, error) {
	var args queryArgs
	query := fmt.Sprintf(`SELECT %s FROM reviews r WHERE %s ORDER BY r.created_at DESC, r.id DESC`,
		reviewColumns, reviewWhere(filter, &args))

	rows, err := r.db.Query(ctx, query, args.values...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if withRatings {
		if err := r.attachRatings(ctx, reviews); err != nil {
			return nil, err
		}
	}
	return reviews, nil
}

// Ratings returns the stored ratings of one review. Ratings of a deleted
// review are gone with it.
func (r *ReviewsRepository) Ratings(ctx context.Context, reviewID int64) ([]domain.Rating, error) {
	rows, err := r.db.Query(ctx, `SELECT review_id, key, value FROM ratings WHERE review_id = $1 ORDER BY key`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]domain.Rating, 0)
	for rows.Next() {
		var rating domain.Rating
		if err := rows.Scan(&rating.ReviewID, &rating.Key, &rating.Value); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

func (r *ReviewsRepository) attachRatings(ctx context.Context, reviews []domain.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	ids := make([]int64, len(reviews))
	index := make(map[int64]int, len(reviews))
	for i := range reviews {
		ids[i] = reviews[i].ID
		index[reviews[i].ID] = i
		reviews[i].Ratings = map[string]float64{}
	}

	rows, err := r.db.Query(ctx, `SELECT review_id, key, value FROM ratings WHERE review_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rating domain.Rating
		if err := rows.Scan(&rating.ReviewID, &rating.Key, &rating.Value); err != nil {
			return err
		}
		if i, ok := index[rating.ReviewID]; ok {
			reviews[i].Ratings[rating.Key] = rating.Value
		}
	}
	return rows.Err()
}

func insertRatings(ctx context.Context, tx pgx.Tx, reviewID int64, ratings map[string]float64) error {
	keys := make([]string, 0, len(ratings))
	for key := range ratings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ratings (review_id, key, value) VALUES ($1,$2,$3)`,
			reviewID, key, ratings[key],
		); err != nil {
			return fmt.Errorf("insert rating %q: %w", key, err)
		}
	}
	return nil
}

func scanReview(row pgx.Row) (domain.Review, error) {
	var review domain.Review
	err := row.Scan(
		&review.ID,
		&review.ReviewableType,
		&review.ReviewableID,
		&review.UserID,
		&review.Body,
		&review.Department,
		&review.Recommend,
		&review.Approved,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

func copyRatings(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
