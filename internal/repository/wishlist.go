package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/car-rental/internal/model"
)

// AddToWishlist добавляет автомобиль в избранное пользователя.
func (r *PostgresRepository) AddToWishlist(ctx context.Context, w *model.Wishlist) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO wishlists (user_id, car_id) VALUES ($1, $2) RETURNING id, created_at`,
		w.UserID, w.CarID,
	).Scan(&w.ID, &w.CreatedAt)
	return mapError(err, "add to wishlist")
}

// GetWishlistItem возвращает запись избранного, принадлежащую пользователю.
func (r *PostgresRepository) GetWishlistItem(ctx context.Context, userID, id int64) (*model.Wishlist, error) {
	var w model.Wishlist
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, car_id, created_at FROM wishlists WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&w.ID, &w.UserID, &w.CarID, &w.CreatedAt)
	if err != nil {
		return nil, mapError(err, "get wishlist item")
	}

	car, err := r.GetCar(ctx, w.CarID)
	if err != nil {
		return nil, err
	}
	w.Car = car
	return &w, nil
}

// ListWishlist возвращает избранное пользователя вместе с автомобилями.
func (r *PostgresRepository) ListWishlist(ctx context.Context, userID int64) ([]model.Wishlist, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT w.id, w.user_id, w.car_id, w.created_at,
		        c.name, c.price, c.main_image, c.capacity, c.steering, c.category_id
		 FROM wishlists w JOIN cars c ON c.id = w.car_id
		 WHERE w.user_id = $1
		 ORDER BY w.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select wishlist: %w", err)
	}
	defer rows.Close()

	var res []model.Wishlist
	for rows.Next() {
		var (
			w   model.Wishlist
			car model.Car
		)
		err := rows.Scan(&w.ID, &w.UserID, &w.CarID, &w.CreatedAt,
			&car.Name, &car.Price, &car.MainImage, &car.Capacity, &car.Steering, &car.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("scan wishlist: %w", err)
		}
		car.ID = w.CarID
		w.Car = &car
		res = append(res, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// RemoveFromWishlist удаляет запись избранного пользователя.
func (r *PostgresRepository) RemoveFromWishlist(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM wishlists WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("remove from wishlist: %w", err)
	}
	return expectAffected(tag, "remove from wishlist")
}
