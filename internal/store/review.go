package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/types"
)

const reviewColumns = `
	id, scholarship_id, scholarship_name, university_name, reviewer_name,
	reviewer_email, reviewer_image, rating, comment, reviewed_at`

// ReviewFilter narrows review listings. Zero values disable a filter.
type ReviewFilter struct {
	ScholarshipID uuid.UUID
	ReviewerEmail string
}

// ReviewRepository handles persistence for reviews.
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func scanReview(row rowScanner) (types.Review, error) {
	var review types.Review
	err := row.Scan(
		&review.ID,
		&review.ScholarshipID,
		&review.ScholarshipName,
		&review.UniversityName,
		&review.ReviewerName,
		&review.ReviewerEmail,
		&review.ReviewerImage,
		&review.Rating,
		&review.Comment,
		&review.ReviewedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Review{}, ErrNotFound
		}
		return types.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) List(ctx context.Context, filter ReviewFilter) ([]types.Review, error) {
	const query = `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE ($1::uuid IS NULL OR scholarship_id = $1)
		  AND ($2 = '' OR reviewer_email = $2)
		ORDER BY reviewed_at DESC`
	rows, err := r.db.QueryContext(ctx, query, nullUUID(filter.ScholarshipID), filter.ReviewerEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]types.Review, 0)
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
	return reviews, nil
}

// Ratings returns every rating recorded for a scholarship.
func (r *ReviewRepository) Ratings(ctx context.Context, scholarshipID uuid.UUID) ([]int, error) {
	const query = `SELECT rating FROM reviews WHERE scholarship_id = $1`
	rows, err := r.db.QueryContext(ctx, query, scholarshipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]int, 0)
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ratings, nil
}

func (r *ReviewRepository) Get(ctx context.Context, id uuid.UUID) (types.Review, error) {
	const query = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	return scanReview(r.db.QueryRowContext(ctx, query, id))
}

func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	review.ReviewedAt = time.Now()

	const query = `
		INSERT INTO reviews (
			scholarship_id, scholarship_name, university_name, reviewer_name,
			reviewer_email, reviewer_image, rating, comment, reviewed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		review.ScholarshipID,
		review.ScholarshipName,
		review.UniversityName,
		review.ReviewerName,
		review.ReviewerEmail,
		review.ReviewerImage,
		review.Rating,
		review.Comment,
		review.ReviewedAt,
	).Scan(&review.ID); err != nil {
		return types.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review types.Review) (types.Review, error) {
	review.ReviewedAt = time.Now()

	const query = `
		UPDATE reviews
		SET rating = $1,
			comment = $2,
			reviewed_at = $3
		WHERE id = $4
		RETURNING ` + reviewColumns
	return scanReview(r.db.QueryRowContext(ctx, query, review.Rating, review.Comment, review.ReviewedAt, review.ID))
}

func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM reviews WHERE id = $1`
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
