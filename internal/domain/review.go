package domain

import "time"

// DefaultDepartment is the department assigned to reviews that do not name one.
const DefaultDepartment = "default"

// Reviewable is implemented by any entity that can receive reviews. Reviews are
// attached polymorphically by type and identifier.
type Reviewable interface {
	ReviewableType() string
	ReviewableID() string
}

// Subject is the plain value form of a Reviewable.
type Subject struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (s Subject) ReviewableType() string { return s.Type }
func (s Subject) ReviewableID() string   { return s.ID }

// SubjectOf copies the identity of a Reviewable.
func SubjectOf(r Reviewable) Subject {
	if s, ok := r.(Subject); ok {
		return s
	}
	return Subject{Type: r.ReviewableType(), ID: r.ReviewableID()}
}

// Review is a user-submitted evaluation of a reviewable.
type Review struct {
	ID             int64
	ReviewableType string
	ReviewableID   string
	UserID         *int64
	Body           string
	Department     string
	Recommend      bool
	Approved       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	// Ratings is nil unless the review was loaded with its ratings.
	Ratings map[string]float64
}

// ReviewInput is the payload accepted when creating a review.
type ReviewInput struct {
	Body       string             `json:"review" validate:"required,max=10000"`
	Department string             `json:"department" validate:"omitempty,max=100"`
	Recommend  bool               `json:"recommend"`
	Ratings    map[string]float64 `json:"ratings" validate:"omitempty,max=50,dive,keys,required,max=64,endkeys,gte=1,lte=5"`
}

// ReviewUpdate changes an existing review. Nil fields are left untouched; a
// non-nil Ratings map replaces the whole rating set.
type ReviewUpdate struct {
	Body       *string            `json:"review" validate:"omitnil,min=1,max=10000"`
	Department *string            `json:"department" validate:"omitnil,min=1,max=100"`
	Recommend  *bool              `json:"recommend"`
	Approved   *bool              `json:"approved"`
	Ratings    map[string]float64 `json:"ratings" validate:"omitempty,max=50,dive,keys,required,max=64,endkeys,gte=1,lte=5"`
}
