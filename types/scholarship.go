package types

import (
	"time"

	"github.com/google/uuid"
)

// Scholarship is a funding opportunity students can apply for.
type Scholarship struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	ScholarshipName     string    `json:"scholarshipName" db:"scholarship_name"`
	UniversityName      string    `json:"universityName" db:"university_name"`
	UniversityImage     string    `json:"universityImage" db:"university_image"`
	Country             string    `json:"country" db:"country"`
	City                string    `json:"city" db:"city"`
	WorldRank           int       `json:"worldRank" db:"world_rank"`
	SubjectCategory     string    `json:"subjectCategory" db:"subject_category"`
	ScholarshipCategory string    `json:"scholarshipCategory" db:"scholarship_category"`
	Degree              string    `json:"degree" db:"degree"`

	// Fees are in major currency units.
	TuitionFees     float64 `json:"tuitionFees" db:"tuition_fees"`
	ApplicationFees float64 `json:"applicationFees" db:"application_fees"`
	ServiceCharge   float64 `json:"serviceCharge" db:"service_charge"`

	ApplicationDeadline time.Time `json:"applicationDeadline" db:"application_deadline"`
	PostedAt            time.Time `json:"postedAt" db:"posted_at"`

	// PostedBy is the email of the staff member who created the scholarship.
	PostedBy string `json:"postedBy" db:"posted_by"`
}
