package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Clark-Hu/review-rateable/internal/domain"
	"github.com/Clark-Hu/review-rateable/internal/repository"
	"github.com/Clark-Hu/review-rateable/internal/validation"
)

// AddReview stores a review with its ratings. Malformed input fails with an
// error matching ErrValidation.
func (sc *Scope) AddReview(ctx context.Context, in domain.ReviewInput, userID *int64) (domain.Review, error) {
	in.Body = strings.TrimSpace(in.Body)
	in.Department = strings.TrimSpace(in.Department)
	ratings, err := normalizeRatings(in.Ratings)
	if err != nil {
		return domain.Review{}, err
	}
	in.Ratings = ratings
	if err := validation.Struct(in); err != nil {
		return domain.Review{}, err
	}
	if in.Department == "" {
		in.Department = sc.svc.opts.DefaultDepartment
	}

	review, err := sc.svc.store.Create(ctx, repository.ReviewCreateParams{
		Subject:    sc.subject,
		UserID:     userID,
		Body:       in.Body,
		Department: in.Department,
		Recommend:  in.Recommend,
		Approved:   sc.svc.opts.AutoApprove,
		Ratings:    in.Ratings,
	})
	if err != nil {
		return domain.Review{}, fmt.Errorf("add review: %w", err)
	}

	mutationsTotal.WithLabelValues("add").Inc()
	sc.svc.logger.Info("review added",
		zap.Int64("review_id", review.ID),
		zap.String("reviewable_type", sc.subject.Type),
		zap.String("reviewable_id", sc.subject.ID),
		zap.String("department", review.Department),
		zap.Int("ratings", len(review.Ratings)),
	)
	return review, nil
}

// UpdateReview applies a partial update. It reports false when the review
// does not belong to this reviewable.
func (sc *Scope) UpdateReview(ctx context.Context, reviewID int64, in domain.ReviewUpdate) (bool, error) {
	if in.Body != nil {
		body := strings.TrimSpace(*in.Body)
		in.Body = &body
	}
	if in.Department != nil {
		department := strings.TrimSpace(*in.Department)
		in.Department = &department
	}
	ratings, err := normalizeRatings(in.Ratings)
	if err != nil {
		return false, err
	}
	in.Ratings = ratings
	if err := validation.Struct(in); err != nil {
		return false, err
	}

	err = sc.svc.store.Update(ctx, repository.ReviewUpdateParams{
		Subject:    sc.subject,
		ID:         reviewID,
		Body:       in.Body,
		Department: in.Department,
		Recommend:  in.Recommend,
		Approved:   in.Approved,
		Ratings:    in.Ratings,
	})
	if found, err := sc.outcome(err, "update", reviewID); !found || err != nil {
		return found, err
	}

	mutationsTotal.WithLabelValues("update").Inc()
	sc.svc.logger.Info("review updated", zap.Int64("review_id", reviewID), zap.Bool("ratings_replaced", in.Ratings != nil))
	return true, nil
}

// ApproveReview marks a review as approved. It reports false when the review
// does not belong to this reviewable.
func (sc *Scope) ApproveReview(ctx context.Context, reviewID int64) (bool, error) {
	err := sc.svc.store.Approve(ctx, sc.subject, reviewID)
	if found, err := sc.outcome(err, "approve", reviewID); !found || err != nil {
		return found, err
	}

	mutationsTotal.WithLabelValues("approve").Inc()
	sc.svc.logger.Info("review approved", zap.Int64("review_id", reviewID))
	return true, nil
}

// DeleteReview removes a review and its ratings. It reports false when the
// review does not belong to this reviewable.
func (sc *Scope) DeleteReview(ctx context.Context, reviewID int64) (bool, error) {
	err := sc.svc.store.Delete(ctx, sc.subject, reviewID)
	if found, err := sc.outcome(err, "delete", reviewID); !found || err != nil {
		return found, err
	}

	mutationsTotal.WithLabelValues("delete").Inc()
	sc.svc.logger.Info("review deleted", zap.Int64("review_id", reviewID))
	return true, nil
}

// outcome maps a store error to the found flag returned by mutations.
func (sc *Scope) outcome(err error, op string, reviewID int64) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repository.ErrNotFound):
		sc.svc.logger.Debug("review not found",
			zap.String("op", op),
			zap.Int64("review_id", reviewID),
			zap.String("reviewable_type", sc.subject.Type),
			zap.String("reviewable_id", sc.subject.ID),
		)
		return false, nil
	default:
		return false, fmt.Errorf("%s review %d: %w", op, reviewID, err)
	}
}

// normalizeRatings trims rating keys so " quality" and "quality" name the
// same dimension. A nil map stays nil.
func normalizeRatings(ratings map[string]float64) (map[string]float64, error) {
	if ratings == nil {
		return nil, nil
	}
	out := make(map[string]float64, len(ratings))
	for key, value := range ratings {
		trimmed := strings.TrimSpace(key)
		if _, dup := out[trimmed]; dup {
			return nil, validation.Field("ratings", fmt.Sprintf("has duplicate key %q", trimmed))
		}
		out[trimmed] = value
	}
	return out, nil
}
