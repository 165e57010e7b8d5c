package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/types"
)

const applicationColumns = `
	id, applicant_email, applicant_name, scholarship_id, scholarship_name, university_name,
	scholarship_category, subject_category, degree, phone, address, gender,
	ssc_result, hsc_result, study_gap, application_fees, service_charge, transaction_id,
	application_deadline, status, feedback, created_at, last_modified_at`

// ApplicationSort selects the ordering of application listings.
type ApplicationSort string

const (
	SortByCreated  ApplicationSort = "applied"
	SortByDeadline ApplicationSort = "deadline"
)

// ApplicationFilter narrows application listings. Zero values disable a filter.
type ApplicationFilter struct {
	ApplicantEmail string

	// From and To bound an inclusive window matched against either
	// created_at or application_deadline.
	From time.Time
	To   time.Time

	Sort ApplicationSort
}

// ApplicationRepository handles persistence for applications.
type ApplicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func scanApplication(row rowScanner) (types.Application, error) {
	var app types.Application
	var scholarshipID uuid.NullUUID
	var deadline sql.NullTime
	err := row.Scan(
		&app.ID,
		&app.ApplicantEmail,
		&app.ApplicantName,
		&scholarshipID,
		&app.ScholarshipName,
		&app.UniversityName,
		&app.ScholarshipCategory,
		&app.SubjectCategory,
		&app.Degree,
		&app.Phone,
		&app.Address,
		&app.Gender,
		&app.SSCResult,
		&app.HSCResult,
		&app.StudyGap,
		&app.ApplicationFees,
		&app.ServiceCharge,
		&app.TransactionID,
		&deadline,
		&app.Status,
		&app.Feedback,
		&app.CreatedAt,
		&app.LastModifiedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Application{}, ErrNotFound
		}
		return types.Application{}, err
	}
	if scholarshipID.Valid {
		app.ScholarshipID = scholarshipID.UUID
	}
	if deadline.Valid {
		app.ApplicationDeadline = deadline.Time
	}
	return app, nil
}

func (r *ApplicationRepository) Get(ctx context.Context, id uuid.UUID) (types.Application, error) {
	const query = `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	return scanApplication(r.db.QueryRowContext(ctx, query, id))
}

func (r *ApplicationRepository) List(ctx context.Context, filter ApplicationFilter) ([]types.Application, error) {
	orderBy := "created_at DESC"
	if filter.Sort == SortByDeadline {
		orderBy = "application_deadline ASC NULLS LAST"
	}

	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE ($1 = '' OR applicant_email = $1)
		  AND ($2::timestamptz IS NULL
		       OR created_at BETWEEN $2 AND $3
		       OR application_deadline BETWEEN $2 AND $3)
		ORDER BY ` + orderBy

	rows, err := r.db.QueryContext(ctx, query, filter.ApplicantEmail, nullTime(filter.From), nullTime(filter.To))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	apps := make([]types.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, app types.Application) (types.Application, error) {
	const query = `
		INSERT INTO applications (
			applicant_email, applicant_name, scholarship_id, scholarship_name, university_name,
			scholarship_category, subject_category, degree, phone, address, gender,
			ssc_result, hsc_result, study_gap, application_fees, service_charge, transaction_id,
			application_deadline, status, feedback, created_at, last_modified_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		app.ApplicantEmail,
		app.ApplicantName,
		nullUUID(app.ScholarshipID),
		app.ScholarshipName,
		app.UniversityName,
		app.ScholarshipCategory,
		app.SubjectCategory,
		app.Degree,
		app.Phone,
		app.Address,
		app.Gender,
		app.SSCResult,
		app.HSCResult,
		app.StudyGap,
		app.ApplicationFees,
		app.ServiceCharge,
		app.TransactionID,
		nullTime(app.ApplicationDeadline),
		app.Status,
		app.Feedback,
		app.CreatedAt,
		app.LastModifiedAt,
	).Scan(&app.ID); err != nil {
		return types.Application{}, err
	}
	return app, nil
}

// UpdateApplicantInfo writes the applicant-editable columns. Status, owner
// and creation time are never touched.
func (r *ApplicationRepository) UpdateApplicantInfo(ctx context.Context, app types.Application) (types.Application, error) {
	const query = `
		UPDATE applications
		SET applicant_name = $1,
			phone = $2,
			address = $3,
			gender = $4,
			degree = $5,
			ssc_result = $6,
			hsc_result = $7,
			study_gap = $8,
			last_modified_at = $9
		WHERE id = $10
		RETURNING ` + applicationColumns
	return scanApplication(r.db.QueryRowContext(
		ctx,
		query,
		app.ApplicantName,
		app.Phone,
		app.Address,
		app.Gender,
		app.Degree,
		app.SSCResult,
		app.HSCResult,
		app.StudyGap,
		app.LastModifiedAt,
		app.ID,
	))
}

func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status types.ApplicationStatus, at time.Time) (types.Application, error) {
	const query = `
		UPDATE applications
		SET status = $1,
			last_modified_at = $2
		WHERE id = $3
		RETURNING ` + applicationColumns
	return scanApplication(r.db.QueryRowContext(ctx, query, status, at, id))
}

// UpsertFeedback attaches feedback to an application, creating a partial
// pending record when the id is unknown. Reapplying identical feedback leaves
// the record unchanged, including last_modified_at.
func (r *ApplicationRepository) UpsertFeedback(ctx context.Context, id uuid.UUID, feedback string, at time.Time) (types.Application, error) {
	const query = `
		INSERT INTO applications (id, status, feedback, created_at, last_modified_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (id) DO UPDATE
		SET feedback = EXCLUDED.feedback,
			last_modified_at = CASE
				WHEN applications.feedback IS DISTINCT FROM EXCLUDED.feedback THEN EXCLUDED.last_modified_at
				ELSE applications.last_modified_at
			END
		RETURNING ` + applicationColumns
	return scanApplication(r.db.QueryRowContext(ctx, query, id, types.StatusPending, feedback, at))
}

func (r *ApplicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM applications WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
