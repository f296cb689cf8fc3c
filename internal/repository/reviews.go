package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/car-rental/internal/model"
)

const reviewColumns = `id, car_id, user_id, stars, text, is_edited, created_at, updated_at`

func scanReview(row scanner) (*model.Review, error) {
	var rv model.Review
	err := row.Scan(&rv.ID, &rv.CarID, &rv.UserID, &rv.Stars, &rv.Text, &rv.IsEdited, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// CreateReview сохраняет отзыв пользователя.
func (r *PostgresRepository) CreateReview(ctx context.Context, rv *model.Review) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reviews (car_id, user_id, stars, text) VALUES ($1, $2, $3, $4)
		 RETURNING id, is_edited, created_at, updated_at`,
		rv.CarID, rv.UserID, rv.Stars, rv.Text,
	).Scan(&rv.ID, &rv.IsEdited, &rv.CreatedAt, &rv.UpdatedAt)
	return mapError(err, "create review")
}

// GetReview возвращает отзыв по идентификатору.
func (r *PostgresRepository) GetReview(ctx context.Context, id int64) (*model.Review, error) {
	rv, err := scanReview(r.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get review")
	}
	return rv, nil
}

// ListReviewsByUser возвращает отзывы пользователя, новые первыми.
func (r *PostgresRepository) ListReviewsByUser(ctx context.Context, userID int64) ([]model.Review, error) {
	return r.listReviews(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

// ListReviewsByCar возвращает отзывы об автомобиле.
func (r *PostgresRepository) ListReviewsByCar(ctx context.Context, carID int64) ([]model.Review, error) {
	return r.listReviews(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE car_id = $1 ORDER BY created_at DESC`, carID)
}

func (r *PostgresRepository) listReviews(ctx context.Context, query string, arg int64) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("select reviews: %w", err)
	}
	defer rows.Close()

	var res []model.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		res = append(res, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// UpdateReviewText меняет текст отзыва и помечает его как отредактированный.
func (r *PostgresRepository) UpdateReviewText(ctx context.Context, rv *model.Review) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE reviews SET text = $2, is_edited = TRUE, updated_at = now() WHERE id = $1
		 RETURNING `+reviewColumns,
		rv.ID, rv.Text,
	).Scan(&rv.ID, &rv.CarID, &rv.UserID, &rv.Stars, &rv.Text, &rv.IsEdited, &rv.CreatedAt, &rv.UpdatedAt)
	return mapError(err, "update review")
}

// DeleteReview удаляет отзыв.
func (r *PostgresRepository) DeleteReview(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return expectAffected(tag, "delete review")
}
