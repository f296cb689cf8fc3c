package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mmeshcher/car-rental/internal/model"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertBillingInfo(ctx context.Context, q querier, b *model.BillingInfo) error {
	err := q.QueryRow(ctx,
		`INSERT INTO billing_infos (user_id, full_name, phone, district_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		b.UserID, b.FullName, b.Phone, b.DistrictID,
	).Scan(&b.ID)
	return mapError(err, "insert billing info")
}

func insertRentalInfo(ctx context.Context, q querier, ri *model.RentalInfo) error {
	err := q.QueryRow(ctx,
		`INSERT INTO rental_infos (car_id, pickup_location, pickup_date, pickup_time,
		                           dropoff_location, dropoff_date, dropoff_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		ri.CarID, string(ri.PickupLocation), ri.PickupDate.Time, clockToPG(ri.PickupTime),
		string(ri.DropoffLocation), ri.DropoffDate.Time, clockToPG(ri.DropoffTime),
	).Scan(&ri.ID)
	return mapError(err, "insert rental info")
}

// CreateBillingInfo сохраняет данные плательщика.
func (r *PostgresRepository) CreateBillingInfo(ctx context.Context, b *model.BillingInfo) error {
	return insertBillingInfo(ctx, r.pool, b)
}

// ListBillingInfos возвращает данные плательщика, сохранённые пользователем.
func (r *PostgresRepository) ListBillingInfos(ctx context.Context, userID int64) ([]model.BillingInfo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, full_name, phone, district_id FROM billing_infos WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select billing infos: %w", err)
	}
	defer rows.Close()

	var res []model.BillingInfo
	for rows.Next() {
		var b model.BillingInfo
		if err := rows.Scan(&b.ID, &b.UserID, &b.FullName, &b.Phone, &b.DistrictID); err != nil {
			return nil, fmt.Errorf("scan billing info: %w", err)
		}
		res = append(res, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// CreateRentalInfo сохраняет параметры аренды.
func (r *PostgresRepository) CreateRentalInfo(ctx context.Context, ri *model.RentalInfo) error {
	return insertRentalInfo(ctx, r.pool, ri)
}

const rentalInfoColumns = `ri.id, ri.car_id, ri.pickup_location, ri.pickup_date, ri.pickup_time,
	ri.dropoff_location, ri.dropoff_date, ri.dropoff_time`

func scanRentalInfo(row scanner, ri *model.RentalInfo, extra ...any) error {
	var pickupTime, dropoffTime pgtype.Time
	dest := []any{&ri.ID, &ri.CarID, &ri.PickupLocation, &ri.PickupDate.Time, &pickupTime,
		&ri.DropoffLocation, &ri.DropoffDate.Time, &dropoffTime}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	ri.PickupTime = clockFromPG(pickupTime)
	ri.DropoffTime = clockFromPG(dropoffTime)
	return nil
}

// GetRentalInfo возвращает параметры аренды.
func (r *PostgresRepository) GetRentalInfo(ctx context.Context, id int64) (*model.RentalInfo, error) {
	var ri model.RentalInfo
	err := scanRentalInfo(r.pool.QueryRow(ctx,
		`SELECT `+rentalInfoColumns+` FROM rental_infos ri WHERE ri.id = $1`, id), &ri)
	if err != nil {
		return nil, mapError(err, "get rental info")
	}
	return &ri, nil
}

// CreatePayment сохраняет платёжные данные пользователя.
func (r *PostgresRepository) CreatePayment(ctx context.Context, p *model.Payment) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payments (user_id, card_type, card_holder, card_last4, expiration_date)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		p.UserID, p.CardType, p.CardHolder, p.CardLast4, p.ExpirationDate,
	).Scan(&p.ID, &p.CreatedAt)
	return mapError(err, "create payment")
}

// ListPayments возвращает платёжные данные пользователя.
func (r *PostgresRepository) ListPayments(ctx context.Context, userID int64) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, card_type, card_holder, card_last4, expiration_date, created_at
		 FROM payments WHERE user_id = $1 ORDER BY id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	var res []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.CardType, &p.CardHolder, &p.CardLast4, &p.ExpirationDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// DeletePayment удаляет платёжные данные пользователя.
func (r *PostgresRepository) DeletePayment(ctx context.Context, userID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return expectAffected(tag, "delete payment")
}

// CreateRentalOrder создаёт данные плательщика, параметры аренды и заказ в одной транзакции.
// Если хотя бы одна вставка не удалась, не сохраняется ничего.
func (r *PostgresRepository) CreateRentalOrder(ctx context.Context, o *model.RentalOrder) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		o.Billing.UserID = &o.UserID
		if err := insertBillingInfo(ctx, tx, &o.Billing); err != nil {
			return err
		}
		if err := insertRentalInfo(ctx, tx, &o.Rental); err != nil {
			return err
		}

		if o.PaymentID != nil {
			var owner int64
			err := tx.QueryRow(ctx, `SELECT user_id FROM payments WHERE id = $1`, *o.PaymentID).Scan(&owner)
			if err != nil {
				return mapError(err, "get payment")
			}
			if owner != o.UserID {
				return fmt.Errorf("payment %d: %w", *o.PaymentID, ErrNotFound)
			}
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO rental_orders (user_id, billing_info_id, rental_info_id, payment_id)
			 VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
			o.UserID, o.Billing.ID, o.Rental.ID, o.PaymentID,
		).Scan(&o.ID, &o.CreatedAt)
		return mapError(err, "insert rental order")
	})
}

// ListRentalOrders возвращает заказы пользователя, новые первыми.
func (r *PostgresRepository) ListRentalOrders(ctx context.Context, userID int64) ([]model.RentalOrder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+rentalInfoColumns+`,
		        o.id, o.user_id, o.payment_id, o.created_at,
		        b.id, b.user_id, b.full_name, b.phone, b.district_id
		 FROM rental_orders o
		 JOIN rental_infos ri ON ri.id = o.rental_info_id
		 JOIN billing_infos b ON b.id = o.billing_info_id
		 WHERE o.user_id = $1
		 ORDER BY o.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select rental orders: %w", err)
	}
	defer rows.Close()

	var res []model.RentalOrder
	for rows.Next() {
		var o model.RentalOrder
		err := scanRentalInfo(rows, &o.Rental,
			&o.ID, &o.UserID, &o.PaymentID, &o.CreatedAt,
			&o.Billing.ID, &o.Billing.UserID, &o.Billing.FullName, &o.Billing.Phone, &o.Billing.DistrictID)
		if err != nil {
			return nil, fmt.Errorf("scan rental order: %w", err)
		}
		res = append(res, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// CreateBotRental создаёт данные плательщика, параметры аренды и заказ из бота в одной транзакции.
func (r *PostgresRepository) CreateBotRental(ctx context.Context, br *model.BotRental) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := insertBillingInfo(ctx, tx, &br.Billing); err != nil {
			return err
		}
		if err := insertRentalInfo(ctx, tx, &br.Rental); err != nil {
			return err
		}

		err := tx.QueryRow(ctx,
			`INSERT INTO bot_rentals (chat_id, telegram_user_id, billing_info_id, rental_info_id,
			                          payment_method, paid, amount, currency, telegram_charge_id, provider_charge_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 RETURNING id, created_at`,
			br.ChatID, br.TelegramUserID, br.Billing.ID, br.Rental.ID,
			string(br.PaymentMethod), br.Paid, br.Amount, br.Currency, br.TelegramChargeID, br.ProviderChargeID,
		).Scan(&br.ID, &br.CreatedAt)
		return mapError(err, "insert bot rental")
	})
}

// ListBotRentalsByChat возвращает аренды, оформленные в чате.
func (r *PostgresRepository) ListBotRentalsByChat(ctx context.Context, chatID int64) ([]model.BotRental, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+rentalInfoColumns+`,
		        br.id, br.chat_id, br.telegram_user_id, br.payment_method, br.paid, br.amount, br.currency,
		        br.telegram_charge_id, br.provider_charge_id, br.created_at,
		        b.id, b.full_name, b.phone
		 FROM bot_rentals br
		 JOIN rental_infos ri ON ri.id = br.rental_info_id
		 JOIN billing_infos b ON b.id = br.billing_info_id
		 WHERE br.chat_id = $1
		 ORDER BY br.created_at DESC`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("select bot rentals: %w", err)
	}
	defer rows.Close()

	var res []model.BotRental
	for rows.Next() {
		var br model.BotRental
		err := scanRentalInfo(rows, &br.Rental,
			&br.ID, &br.ChatID, &br.TelegramUserID, &br.PaymentMethod, &br.Paid, &br.Amount, &br.Currency,
			&br.TelegramChargeID, &br.ProviderChargeID, &br.CreatedAt,
			&br.Billing.ID, &br.Billing.FullName, &br.Billing.Phone)
		if err != nil {
			return nil, fmt.Errorf("scan bot rental: %w", err)
		}
		res = append(res, br)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// ListInterestedChats возвращает чаты, в которых раньше арендовали автомобиль с похожим названием.
// Похожим считается название, начинающееся с того же слова, без учёта регистра.
func (r *PostgresRepository) ListInterestedChats(ctx context.Context, carID int64, carName string) ([]int64, error) {
	words := strings.Fields(carName)
	if len(words) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT br.chat_id
		 FROM bot_rentals br
		 JOIN rental_infos ri ON ri.id = br.rental_info_id
		 JOIN cars c ON c.id = ri.car_id
		 WHERE c.id <> $1 AND c.name ILIKE $2 || '%'
		 ORDER BY br.chat_id`,
		carID, likeEscape(words[0]),
	)
	if err != nil {
		return nil, fmt.Errorf("select interested chats: %w", err)
	}
	defer rows.Close()

	var res []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chat id: %w", err)
		}
		res = append(res, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}
