// Package review attaches reviews and keyed star ratings to reviewable
// entities and computes aggregate statistics over them.
//
// A Service is bound to one reviewable with For; the returned Scope carries
// every read and write operation:
//
//	scope := svc.For(domain.Subject{Type: "product", ID: "sku-1"})
//	avg, err := scope.AverageRating(ctx, "quality", true)
//
// Reads take an approved flag: true restricts to approved reviews, false
// applies no approval filter. Averages over nothing are nil, histograms are
// always zero-filled for stars 1 to 5.
package review

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Clark-Hu/review-rateable/internal/domain"
	"github.com/Clark-Hu/review-rateable/internal/repository"
	"github.com/Clark-Hu/review-rateable/internal/validation"
)

// ErrValidation is matched by errors returned for malformed review input.
var ErrValidation = validation.ErrInvalid

// Store is the persistence collaborator. *repository.ReviewsRepository implements it.
type Store interface {
	Create(ctx context.Context, params repository.ReviewCreateParams) (domain.Review, error)
	Update(ctx context.Context, params repository.ReviewUpdateParams) error
	Approve(ctx context.Context, subject domain.Subject, id int64) error
	Delete(ctx context.Context, subject domain.Subject, id int64) error
	GetByID(ctx context.Context, subject domain.Subject, id int64) (domain.Review, error)
	List(ctx context.Context, filter repository.ReviewFilter, withRatings bool) ([]domain.Review, error)
	Count(ctx context.Context, filter repository.ReviewFilter) (int, error)
	Average(ctx context.Context, filter repository.ReviewFilter) (*float64, error)
	AveragesByKey(ctx context.Context, filter repository.ReviewFilter) (map[string]float64, error)
	ValueCounts(ctx context.Context, filter repository.ReviewFilter) (map[int]int, error)
}

// Options tunes a Service.
type Options struct {
	// DefaultDepartment is stored on reviews created without a department and
	// substituted when a department-scoped read is given an empty department.
	// Defaults to domain.DefaultDepartment.
	DefaultDepartment string
	// AutoApprove stores new reviews as approved.
	AutoApprove bool
	Logger      *zap.Logger
}

// Service computes review aggregates for any reviewable.
type Service struct {
	store  Store
	opts   Options
	logger *zap.Logger
}

// NewService builds a Service over store.
func NewService(store Store, opts Options) *Service {
	opts.DefaultDepartment = strings.TrimSpace(opts.DefaultDepartment)
	if opts.DefaultDepartment == "" {
		opts.DefaultDepartment = domain.DefaultDepartment
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, opts: opts, logger: logger.Named("review")}
}

// DefaultDepartment reports the department used when none is given.
func (s *Service) DefaultDepartment() string {
	return s.opts.DefaultDepartment
}

// For binds the service to one reviewable.
func (s *Service) For(r domain.Reviewable) *Scope {
	return &Scope{svc: s, subject: domain.SubjectOf(r)}
}

// Scope exposes the review operations of a single reviewable.
type Scope struct {
	svc     *Service
	subject domain.Subject
}

// Subject returns the reviewable the scope is bound to.
func (sc *Scope) Subject() domain.Subject {
	return sc.subject
}

func (sc *Scope) filter(approved bool) repository.ReviewFilter {
	return repository.ReviewFilter{Subject: sc.subject, ApprovedOnly: approved}
}

func (sc *Scope) department(department string) *string {
	department = strings.TrimSpace(department)
	if department == "" {
		department = sc.svc.opts.DefaultDepartment
	}
	return &department
}
