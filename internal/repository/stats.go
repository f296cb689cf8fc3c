package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/car-rental/internal/model"
)

// originJoin возвращает соединение, отбирающее аренды одного канала.
func originJoin(origin model.Origin) (string, error) {
	switch origin {
	case model.OriginWeb:
		return `JOIN rental_orders o ON o.rental_info_id = ri.id`, nil
	case model.OriginBot:
		return `JOIN bot_rentals o ON o.rental_info_id = ri.id`, nil
	}
	return "", fmt.Errorf("unknown origin %q", origin)
}

// RentalCountsByCar возвращает число аренд каждого автомобиля в канале.
func (r *PostgresRepository) RentalCountsByCar(ctx context.Context, origin model.Origin) ([]model.TopCar, error) {
	join, err := originJoin(origin)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name, COALESCE(cat.name, ''), count(*)
		 FROM rental_infos ri
		 `+join+`
		 JOIN cars c ON c.id = ri.car_id
		 LEFT JOIN categories cat ON cat.id = c.category_id
		 GROUP BY c.id, c.name, cat.name
		 ORDER BY count(*) DESC, c.id`)
	if err != nil {
		return nil, fmt.Errorf("select rental counts: %w", err)
	}
	defer rows.Close()

	var res []model.TopCar
	for rows.Next() {
		var t model.TopCar
		if err := rows.Scan(&t.CarID, &t.Name, &t.CategoryName, &t.RentalCount); err != nil {
			return nil, fmt.Errorf("scan rental count: %w", err)
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// RecentTransactions возвращает последние аренды канала по дате и времени выдачи.
func (r *PostgresRepository) RecentTransactions(ctx context.Context, origin model.Origin, limit int) ([]model.Transaction, error) {
	join, err := originJoin(origin)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+rentalInfoColumns+`, c.name
		 FROM rental_infos ri
		 `+join+`
		 JOIN cars c ON c.id = ri.car_id
		 ORDER BY ri.pickup_date DESC, ri.pickup_time DESC, ri.id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select recent transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		var (
			ri   model.RentalInfo
			name string
		)
		if err := scanRentalInfo(rows, &ri, &name); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		res = append(res, model.Transaction{
			RentalID:        ri.ID,
			CarID:           ri.CarID,
			CarName:         name,
			PickupLocation:  ri.PickupLocation,
			PickupDate:      ri.PickupDate,
			PickupTime:      ri.PickupTime,
			DropoffLocation: ri.DropoffLocation,
			DropoffDate:     ri.DropoffDate,
			DropoffTime:     ri.DropoffTime,
			Origin:          origin,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}
