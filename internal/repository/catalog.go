package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/car-rental/internal/model"
)

// CreateCategory создаёт категорию.
func (r *PostgresRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id, created_at, updated_at`,
		c.Name,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapError(err, "create category")
}

const categorySelect = `SELECT c.id, c.name, c.created_at, c.updated_at,
	(SELECT count(*) FROM cars WHERE cars.category_id = c.id)
	FROM categories c`

func scanCategory(row scanner) (*model.Category, error) {
	var c model.Category
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.CarAmount); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategory возвращает категорию с числом автомобилей в ней.
func (r *PostgresRepository) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, categorySelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get category")
	}
	return c, nil
}

// ListCategories возвращает все категории.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx, categorySelect+` ORDER BY c.id`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()

	var res []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		res = append(res, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// UpdateCategory переименовывает категорию.
func (r *PostgresRepository) UpdateCategory(ctx context.Context, c *model.Category) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE categories SET name = $2, updated_at = now() WHERE id = $1 RETURNING created_at, updated_at`,
		c.ID, c.Name,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	return mapError(err, "update category")
}

// DeleteCategory удаляет категорию. Категорию с автомобилями удалить нельзя.
func (r *PostgresRepository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete category")
	}
	return expectAffected(tag, "delete category")
}

const carColumns = `id, name, description, category_id, capacity, steering, gasoline, price,
	main_image, telegram_message_id, created_at, updated_at`

func scanCar(row scanner) (*model.Car, error) {
	var c model.Car
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CategoryID, &c.Capacity, &c.Steering,
		&c.Gasoline, &c.Price, &c.MainImage, &c.TelegramMessageID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCar создаёт автомобиль вместе с его изображениями в одной транзакции.
func (r *PostgresRepository) CreateCar(ctx context.Context, car *model.Car) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO cars (name, description, category_id, capacity, steering, gasoline, price, main_image)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id, created_at, updated_at`,
			car.Name, car.Description, car.CategoryID, string(car.Capacity), string(car.Steering),
			car.Gasoline, car.Price, car.MainImage,
		).Scan(&car.ID, &car.CreatedAt, &car.UpdatedAt)
		if err != nil {
			return mapError(err, "insert car")
		}

		for i := range car.Images {
			img := &car.Images[i]
			img.CarID = car.ID
			err := tx.QueryRow(ctx,
				`INSERT INTO car_images (car_id, image) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
				img.CarID, img.Image,
			).Scan(&img.ID, &img.CreatedAt, &img.UpdatedAt)
			if err != nil {
				return mapError(err, "insert car image")
			}
		}
		return nil
	})
}

// GetCar возвращает автомобиль с изображениями.
func (r *PostgresRepository) GetCar(ctx context.Context, id int64) (*model.Car, error) {
	car, err := scanCar(r.pool.QueryRow(ctx, `SELECT `+carColumns+` FROM cars WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "get car")
	}

	images, err := r.carImages(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	car.Images = images[id]
	return car, nil
}

// ListCars возвращает автомобили, подходящие под фильтр.
func (r *PostgresRepository) ListCars(ctx context.Context, f model.CarFilter) ([]model.Car, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.PriceMin != nil {
		add("price >= $%d", *f.PriceMin)
	}
	if f.PriceMax != nil {
		add("price <= $%d", *f.PriceMax)
	}
	if f.Capacity != "" {
		add("capacity = $%d", string(f.Capacity))
	}
	if f.CategoryID != nil {
		add("category_id = $%d", *f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("name ILIKE '%%' || $%d || '%%'", likeEscape(s))
	}

	query := `SELECT ` + carColumns + ` FROM cars`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select cars: %w", err)
	}
	defer rows.Close()

	var (
		cars []model.Car
		ids  []int64
	)
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, *c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	if len(cars) == 0 {
		return cars, nil
	}

	images, err := r.carImages(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range cars {
		cars[i].Images = images[cars[i].ID]
	}
	return cars, nil
}

func (r *PostgresRepository) carImages(ctx context.Context, carIDs []int64) (map[int64][]model.CarImage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, car_id, image, created_at, updated_at FROM car_images WHERE car_id = ANY($1) ORDER BY id`,
		carIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select car images: %w", err)
	}
	defer rows.Close()

	res := make(map[int64][]model.CarImage, len(carIDs))
	for rows.Next() {
		var img model.CarImage
		if err := rows.Scan(&img.ID, &img.CarID, &img.Image, &img.CreatedAt, &img.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan car image: %w", err)
		}
		res[img.CarID] = append(res[img.CarID], img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return res, nil
}

// UpdateCar обновляет описание автомобиля. Идентификатор публикации не меняется.
func (r *PostgresRepository) UpdateCar(ctx context.Context, car *model.Car) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE cars
		 SET name = $2, description = $3, category_id = $4, capacity = $5, steering = $6,
		     gasoline = $7, price = $8, main_image = $9, updated_at = now()
		 WHERE id = $1
		 RETURNING telegram_message_id, created_at, updated_at`,
		car.ID, car.Name, car.Description, car.CategoryID, string(car.Capacity), string(car.Steering),
		car.Gasoline, car.Price, car.MainImage,
	).Scan(&car.TelegramMessageID, &car.CreatedAt, &car.UpdatedAt)
	return mapError(err, "update car")
}

// SetCarPostID сохраняет идентификатор публикации автомобиля в канале.
// Меняется только это поле, поэтому повторная публикация не запускается.
func (r *PostgresRepository) SetCarPostID(ctx context.Context, carID, postID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE cars SET telegram_message_id = $2 WHERE id = $1`, carID, postID)
	if err != nil {
		return fmt.Errorf("set car post id: %w", err)
	}
	return expectAffected(tag, "set car post id")
}

// DeleteCar удаляет автомобиль.
func (r *PostgresRepository) DeleteCar(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete car")
	}
	return expectAffected(tag, "delete car")
}

// AddCarImage добавляет изображение к автомобилю.
func (r *PostgresRepository) AddCarImage(ctx context.Context, img *model.CarImage) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO car_images (car_id, image) VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		img.CarID, img.Image,
	).Scan(&img.ID, &img.CreatedAt, &img.UpdatedAt)
	return mapError(err, "add car image")
}

// UpdateCarImage заменяет изображение.
func (r *PostgresRepository) UpdateCarImage(ctx context.Context, img *model.CarImage) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE car_images SET image = $2, updated_at = now() WHERE id = $1
		 RETURNING car_id, created_at, updated_at`,
		img.ID, img.Image,
	).Scan(&img.CarID, &img.CreatedAt, &img.UpdatedAt)
	return mapError(err, "update car image")
}

// DeleteCarImage удаляет изображение.
func (r *PostgresRepository) DeleteCarImage(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM car_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete car image: %w", err)
	}
	return expectAffected(tag, "delete car image")
}
