package types

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrIllegalTransition is returned when a status change is not permitted.
var ErrIllegalTransition = errors.New("illegal status transition")

// ApplicationStatus tracks the progress of an application through review.
type ApplicationStatus string

// Supported application statuses, in lifecycle order.
const (
	// StatusPending is the initial status of every application.
	StatusPending ApplicationStatus = "pending"

	// StatusProcessing indicates staff have started reviewing the application.
	StatusProcessing ApplicationStatus = "processing"

	// StatusCompleted is terminal: the application was accepted.
	StatusCompleted ApplicationStatus = "completed"

	// StatusRejected is terminal: the application was declined.
	StatusRejected ApplicationStatus = "rejected"
)

// ParseApplicationStatus normalizes a status label and reports whether it is known.
func ParseApplicationStatus(raw string) (ApplicationStatus, bool) {
	status := ApplicationStatus(strings.ToLower(strings.TrimSpace(raw)))
	if status.Rank() < 0 {
		return "", false
	}
	return status, true
}

// Rank orders statuses by lifecycle progress. Unknown statuses rank -1.
// Both terminal statuses share the highest rank.
func (s ApplicationStatus) Rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusProcessing:
		return 1
	case StatusCompleted, StatusRejected:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether no further review is expected.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// CanTransition decides whether an application may move from one status to
// another. Any known status is reachable from any other, except that an
// application never returns to pending once it has left it.
func CanTransition(from, to ApplicationStatus) bool {
	if to.Rank() < 0 {
		return false
	}
	if to == StatusPending && from != StatusPending {
		return false
	}
	return true
}

// Application is a student's submission for a scholarship.
type Application struct {
	// ID is the unique identifier of the application.
	ID uuid.UUID `json:"id" db:"id"`

	// ApplicantEmail identifies the owner. It never changes after creation.
	ApplicantEmail string `json:"applicantEmail" db:"applicant_email"`

	ApplicantName string `json:"applicantName" db:"applicant_name"`

	// ScholarshipID references the scholarship applied for.
	ScholarshipID uuid.UUID `json:"scholarshipId" db:"scholarship_id"`

	ScholarshipName     string `json:"scholarshipName" db:"scholarship_name"`
	UniversityName      string `json:"universityName" db:"university_name"`
	ScholarshipCategory string `json:"scholarshipCategory" db:"scholarship_category"`
	SubjectCategory     string `json:"subjectCategory" db:"subject_category"`
	Degree              string `json:"degree" db:"degree"`

	Phone     string `json:"phone" db:"phone"`
	Address   string `json:"address" db:"address"`
	Gender    string `json:"gender" db:"gender"`
	SSCResult string `json:"sscResult" db:"ssc_result"`
	HSCResult string `json:"hscResult" db:"hsc_result"`
	StudyGap  string `json:"studyGap" db:"study_gap"`

	// ApplicationFees and ServiceCharge are in major currency units.
	ApplicationFees float64 `json:"applicationFees" db:"application_fees"`
	ServiceCharge   float64 `json:"serviceCharge" db:"service_charge"`

	// TransactionID is the payment reference reported by the client.
	TransactionID string `json:"transactionId" db:"transaction_id"`

	// ApplicationDeadline is stored as an absolute instant in UTC.
	ApplicationDeadline time.Time `json:"applicationDeadline" db:"application_deadline"`

	// Status is the lifecycle status. Only staff may change it.
	Status ApplicationStatus `json:"status" db:"status"`

	// Feedback is optional reviewer text. Attaching it never changes Status.
	Feedback string `json:"feedback,omitempty" db:"feedback"`

	// CreatedAt is set at creation and is immutable.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// LastModifiedAt is refreshed on every change.
	LastModifiedAt time.Time `json:"lastModifiedAt" db:"last_modified_at"`
}

// ApplicantInfo holds the fields an applicant may amend on their own application.
// Nil fields are left unchanged.
type ApplicantInfo struct {
	ApplicantName *string `json:"applicantName,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	Gender        *string `json:"gender,omitempty"`
	Degree        *string `json:"degree,omitempty"`
	SSCResult     *string `json:"sscResult,omitempty"`
	HSCResult     *string `json:"hscResult,omitempty"`
	StudyGap      *string `json:"studyGap,omitempty"`
}

// Apply copies the set fields onto the application.
func (i ApplicantInfo) Apply(app *Application) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&app.ApplicantName, i.ApplicantName)
	set(&app.Phone, i.Phone)
	set(&app.Address, i.Address)
	set(&app.Gender, i.Gender)
	set(&app.Degree, i.Degree)
	set(&app.SSCResult, i.SSCResult)
	set(&app.HSCResult, i.HSCResult)
	set(&app.StudyGap, i.StudyGap)
}

// Empty reports whether no field is set.
func (i ApplicantInfo) Empty() bool {
	return i == ApplicantInfo{}
}

// ApplicationEvent is published on lifecycle changes.
type ApplicationEvent struct {
	Type          string            `json:"type"`
	ApplicationID uuid.UUID         `json:"applicationId"`
	Applicant     string            `json:"applicantEmail,omitempty"`
	Status        ApplicationStatus `json:"status,omitempty"`
	Actor         string            `json:"actor,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

// Encode serializes the event for a message broker.
func (e ApplicationEvent) Encode() ([]byte, error) {
	return json.Marshal(e)
}
