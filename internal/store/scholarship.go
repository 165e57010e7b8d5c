package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/types"
)

const scholarshipColumns = `
	id, scholarship_name, university_name, university_image, country, city, world_rank,
	subject_category, scholarship_category, degree, tuition_fees, application_fees,
	service_charge, application_deadline, posted_at, posted_by`

// ScholarshipRepository handles persistence for scholarships.
type ScholarshipRepository struct {
	db *sql.DB
}

func NewScholarshipRepository(db *sql.DB) *ScholarshipRepository {
	return &ScholarshipRepository{db: db}
}

func scanScholarship(row rowScanner) (types.Scholarship, error) {
	var s types.Scholarship
	var deadline sql.NullTime
	err := row.Scan(
		&s.ID,
		&s.ScholarshipName,
		&s.UniversityName,
		&s.UniversityImage,
		&s.Country,
		&s.City,
		&s.WorldRank,
		&s.SubjectCategory,
		&s.ScholarshipCategory,
		&s.Degree,
		&s.TuitionFees,
		&s.ApplicationFees,
		&s.ServiceCharge,
		&deadline,
		&s.PostedAt,
		&s.PostedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Scholarship{}, ErrNotFound
		}
		return types.Scholarship{}, err
	}
	if deadline.Valid {
		s.ApplicationDeadline = deadline.Time
	}
	return s, nil
}

func scanScholarships(rows *sql.Rows, capacity int) ([]types.Scholarship, error) {
	defer rows.Close()

	items := make([]types.Scholarship, 0, capacity)
	for rows.Next() {
		s, err := scanScholarship(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// List returns a page of scholarships whose name, university or degree
// contains search (case-insensitive), together with the total match count.
func (r *ScholarshipRepository) List(ctx context.Context, search string, offset, limit int) ([]types.Scholarship, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const where = `
		WHERE $1 = ''
		   OR scholarship_name ILIKE '%' || $1 || '%'
		   OR university_name ILIKE '%' || $1 || '%'
		   OR degree ILIKE '%' || $1 || '%'`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM scholarships`+where, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `SELECT ` + scholarshipColumns + ` FROM scholarships` + where + `
		ORDER BY posted_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, search, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	items, err := scanScholarships(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Top returns the cheapest, most recently posted scholarships.
func (r *ScholarshipRepository) Top(ctx context.Context, limit int) ([]types.Scholarship, error) {
	const query = `SELECT ` + scholarshipColumns + ` FROM scholarships
		ORDER BY application_fees ASC, posted_at DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return scanScholarships(rows, limit)
}

func (r *ScholarshipRepository) Get(ctx context.Context, id uuid.UUID) (types.Scholarship, error) {
	const query = `SELECT ` + scholarshipColumns + ` FROM scholarships WHERE id = $1`
	return scanScholarship(r.db.QueryRowContext(ctx, query, id))
}

func (r *ScholarshipRepository) Create(ctx context.Context, s types.Scholarship) (types.Scholarship, error) {
	s.PostedAt = time.Now()

	const query = `
		INSERT INTO scholarships (
			scholarship_name, university_name, university_image, country, city, world_rank,
			subject_category, scholarship_category, degree, tuition_fees, application_fees,
			service_charge, application_deadline, posted_at, posted_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		s.ScholarshipName,
		s.UniversityName,
		s.UniversityImage,
		s.Country,
		s.City,
		s.WorldRank,
		s.SubjectCategory,
		s.ScholarshipCategory,
		s.Degree,
		s.TuitionFees,
		s.ApplicationFees,
		s.ServiceCharge,
		nullTime(s.ApplicationDeadline),
		s.PostedAt,
		s.PostedBy,
	).Scan(&s.ID); err != nil {
		return types.Scholarship{}, err
	}
	return s, nil
}

// Update rewrites the editable columns. PostedAt and PostedBy are kept.
func (r *ScholarshipRepository) Update(ctx context.Context, s types.Scholarship) (types.Scholarship, error) {
	const query = `
		UPDATE scholarships
		SET scholarship_name = $1,
			university_name = $2,
			university_image = $3,
			country = $4,
			city = $5,
			world_rank = $6,
			subject_category = $7,
			scholarship_category = $8,
			degree = $9,
			tuition_fees = $10,
			application_fees = $11,
			service_charge = $12,
			application_deadline = $13
		WHERE id = $14
		RETURNING ` + scholarshipColumns
	return scanScholarship(r.db.QueryRowContext(
		ctx,
		query,
		s.ScholarshipName,
		s.UniversityName,
		s.UniversityImage,
		s.Country,
		s.City,
		s.WorldRank,
		s.SubjectCategory,
		s.ScholarshipCategory,
		s.Degree,
		s.TuitionFees,
		s.ApplicationFees,
		s.ServiceCharge,
		nullTime(s.ApplicationDeadline),
		s.ID,
	))
}

func (r *ScholarshipRepository) UpdateImage(ctx context.Context, id uuid.UUID, imageURL string) (types.Scholarship, error) {
	const query = `
		UPDATE scholarships
		SET university_image = $1
		WHERE id = $2
		RETURNING ` + scholarshipColumns
	return scanScholarship(r.db.QueryRowContext(ctx, query, imageURL, id))
}

func (r *ScholarshipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM scholarships WHERE id = $1`
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
