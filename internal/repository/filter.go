package repository

import (
	"fmt"
	"strings"

	"github.com/Clark-Hu/review-rateable/internal/domain"
)

// ReviewFilter selects the reviews of one reviewable. Zero-valued optional
// fields apply no restriction.
type ReviewFilter struct {
	Subject domain.Subject
	// ApprovedOnly restricts to approved reviews; false applies no approval filter.
	ApprovedOnly bool
	Department   *string
	// Star keeps reviews holding at least one rating equal to it.
	Star *int
	// Key restricts rating aggregates to one rating dimension.
	Key *string
}

type queryArgs struct {
	values []any
}

func (q *queryArgs) add(value any) string {
	q.values = append(q.values, value)
	return fmt.Sprintf("$%d", len(q.values))
}

// reviewWhere renders the review-level conditions against alias r.
func reviewWhere(f ReviewFilter, q *queryArgs) string {
	where := []string{
		"r.reviewable_type = " + q.add(f.Subject.Type),
		"r.reviewable_id = " + q.add(f.Subject.ID),
	}
	if f.ApprovedOnly {
		where = append(where, "r.approved = TRUE")
	}
	if f.Department != nil {
		where = append(where, "r.department = "+q.add(*f.Department))
	}
	if f.Star != nil {
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM ratings s WHERE s.review_id = r.id AND s.value = %s)",
			q.add(float64(*f.Star))))
	}
	return strings.Join(where, " AND ")
}

// ratingWhere extends reviewWhere with rating-level conditions against alias rt.
func ratingWhere(f ReviewFilter, q *queryArgs) string {
	where := reviewWhere(f, q)
	if f.Key != nil {
		where += " AND rt.key = " + q.add(*f.Key)
	}
	return where
}
