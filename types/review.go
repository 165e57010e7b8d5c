package types

import (
	"time"

	"github.com/google/uuid"
)

// Review is an applicant's rating of a scholarship.
type Review struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ScholarshipID   uuid.UUID `json:"scholarshipId" db:"scholarship_id"`
	ScholarshipName string    `json:"scholarshipName" db:"scholarship_name"`
	UniversityName  string    `json:"universityName" db:"university_name"`
	ReviewerName    string    `json:"reviewerName" db:"reviewer_name"`
	ReviewerEmail   string    `json:"reviewerEmail" db:"reviewer_email"`
	ReviewerImage   string    `json:"reviewerImage" db:"reviewer_image"`

	// Rating is between 1 and 5 inclusive.
	Rating  int    `json:"rating" db:"rating"`
	Comment string `json:"comment" db:"comment"`

	ReviewedAt time.Time `json:"reviewedAt" db:"reviewed_at"`
}
