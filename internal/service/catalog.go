package service

import (
	"context"
	"strings"

	"github.com/mmeshcher/car-rental/internal/model"
)

// CatalogRepository описывает хранилище каталога.
type CatalogRepository interface {
	CreateCategory(ctx context.Context, c *model.Category) error
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, c *model.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	CreateCar(ctx context.Context, car *model.Car) error
	GetCar(ctx context.Context, id int64) (*model.Car, error)
	ListCars(ctx context.Context, f model.CarFilter) ([]model.Car, error)
	UpdateCar(ctx context.Context, car *model.Car) error
	DeleteCar(ctx context.Context, id int64) error

	AddCarImage(ctx context.Context, img *model.CarImage) error
	UpdateCarImage(ctx context.Context, img *model.CarImage) error
	DeleteCarImage(ctx context.Context, id int64) error

	CreateReview(ctx context.Context, rv *model.Review) error
	GetReview(ctx context.Context, id int64) (*model.Review, error)
	ListReviewsByUser(ctx context.Context, userID int64) ([]model.Review, error)
	ListReviewsByCar(ctx context.Context, carID int64) ([]model.Review, error)
	UpdateReviewText(ctx context.Context, rv *model.Review) error
	DeleteReview(ctx context.Context, id int64) error

	CreateRegion(ctx context.Context, rg *model.Region) error
	ListRegions(ctx context.Context) ([]model.Region, error)
	UpdateRegion(ctx context.Context, rg *model.Region) error
	DeleteRegion(ctx context.Context, id int64) error
	CreateDistrict(ctx context.Context, d *model.District) error
	ListDistricts(ctx context.Context, regionID *int64) ([]model.District, error)
	UpdateDistrict(ctx context.Context, d *model.District) error
	DeleteDistrict(ctx context.Context, id int64) error

	AddToWishlist(ctx context.Context, w *model.Wishlist) error
	GetWishlistItem(ctx context.Context, userID, id int64) (*model.Wishlist, error)
	ListWishlist(ctx context.Context, userID int64) ([]model.Wishlist, error)
	RemoveFromWishlist(ctx context.Context, userID, id int64) error
}

// CarHook вызывается после сохранения автомобиля. created равен true для нового автомобиля.
// Хук не может отменить сохранение, поэтому ошибок не возвращает.
type CarHook func(ctx context.Context, car model.Car, created bool)

// Catalog реализует операции каталога.
type Catalog struct {
	repo  CatalogRepository
	hooks []CarHook
}

// NewCatalog создаёт сервис каталога. Хуки вызываются по порядку после каждого сохранения автомобиля.
func NewCatalog(repo CatalogRepository, hooks ...CarHook) *Catalog {
	return &Catalog{repo: repo, hooks: hooks}
}

func (c *Catalog) carSaved(ctx context.Context, car *model.Car, created bool) {
	for _, h := range c.hooks {
		h(ctx, *car, created)
	}
}

func requireAdmin(actor Actor) error {
	if !actor.IsAdmin {
		return ErrForbidden
	}
	return nil
}

// CreateCategory создаёт категорию.
func (c *Catalog) CreateCategory(ctx context.Context, actor Actor, name string) (*model.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	cat := &model.Category{Name: strings.TrimSpace(name)}
	if err := c.repo.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}
	return cat, nil
}

// ListCategories возвращает категории.
func (c *Catalog) ListCategories(ctx context.Context) ([]model.Category, error) {
	return c.repo.ListCategories(ctx)
}

// UpdateCategory переименовывает категорию.
func (c *Catalog) UpdateCategory(ctx context.Context, actor Actor, id int64, name string) (*model.Category, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	cat := &model.Category{ID: id, Name: strings.TrimSpace(name)}
	if err := c.repo.UpdateCategory(ctx, cat); err != nil {
		return nil, err
	}
	return c.repo.GetCategory(ctx, id)
}

// DeleteCategory удаляет категорию.
func (c *Catalog) DeleteCategory(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.DeleteCategory(ctx, id)
}

func validateCar(car *model.Car) error {
	switch {
	case strings.TrimSpace(car.Name) == "":
		return invalid("name", "name is required")
	case car.Price < 0:
		return invalid("price", "the car price cannot be negative")
	case !car.Capacity.Valid():
		return invalid("capacity", "capacity must be one of 2, 4, 6, 8 or more")
	case !car.Steering.Valid():
		return invalid("steering", "steering must be one of Manual, Power, Electric")
	}
	return nil
}

// CreateCar создаёт автомобиль и вызывает хуки сохранения.
func (c *Catalog) CreateCar(ctx context.Context, actor Actor, car *model.Car) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := validateCar(car); err != nil {
		return err
	}
	car.TelegramMessageID = nil
	if err := c.repo.CreateCar(ctx, car); err != nil {
		return err
	}
	c.carSaved(ctx, car, true)
	return nil
}

// GetCar возвращает автомобиль с изображениями и отзывами.
func (c *Catalog) GetCar(ctx context.Context, id int64) (*model.Car, error) {
	car, err := c.repo.GetCar(ctx, id)
	if err != nil {
		return nil, err
	}
	reviews, err := c.repo.ListReviewsByCar(ctx, id)
	if err != nil {
		return nil, err
	}
	car.Reviews = reviews
	return car, nil
}

// ListCars возвращает автомобили по фильтру.
func (c *Catalog) ListCars(ctx context.Context, f model.CarFilter) ([]model.Car, error) {
	return c.repo.ListCars(ctx, f)
}

// UpdateCar обновляет автомобиль и вызывает хуки сохранения.
func (c *Catalog) UpdateCar(ctx context.Context, actor Actor, car *model.Car) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := validateCar(car); err != nil {
		return err
	}
	if err := c.repo.UpdateCar(ctx, car); err != nil {
		return err
	}
	c.carSaved(ctx, car, false)
	return nil
}

// DeleteCar удаляет автомобиль.
func (c *Catalog) DeleteCar(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.DeleteCar(ctx, id)
}

// AddCarImage добавляет изображение автомобиля.
func (c *Catalog) AddCarImage(ctx context.Context, actor Actor, img *model.CarImage) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.AddCarImage(ctx, img)
}

// UpdateCarImage заменяет изображение автомобиля.
func (c *Catalog) UpdateCarImage(ctx context.Context, actor Actor, img *model.CarImage) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.UpdateCarImage(ctx, img)
}

// DeleteCarImage удаляет изображение автомобиля.
func (c *Catalog) DeleteCarImage(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.DeleteCarImage(ctx, id)
}

// CreateReview сохраняет отзыв от имени пользователя.
func (c *Catalog) CreateReview(ctx context.Context, actor Actor, rv *model.Review) error {
	rv.UserID = actor.UserID
	rv.IsEdited = false
	return c.repo.CreateReview(ctx, rv)
}

// ListMyReviews возвращает отзывы пользователя.
func (c *Catalog) ListMyReviews(ctx context.Context, actor Actor) ([]model.Review, error) {
	return c.repo.ListReviewsByUser(ctx, actor.UserID)
}

// UpdateReview меняет текст отзыва. Менять можно только свой отзыв.
func (c *Catalog) UpdateReview(ctx context.Context, actor Actor, id int64, text string) (*model.Review, error) {
	rv, err := c.repo.GetReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv.UserID != actor.UserID {
		return nil, ErrForbidden
	}
	rv.Text = text
	if err := c.repo.UpdateReviewText(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// DeleteReview удаляет отзыв. Доступно администратору.
func (c *Catalog) DeleteReview(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.DeleteReview(ctx, id)
}

// CreateRegion создаёт регион.
func (c *Catalog) CreateRegion(ctx context.Context, actor Actor, name string) (*model.Region, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rg := &model.Region{Name: strings.TrimSpace(name)}
	if err := c.repo.CreateRegion(ctx, rg); err != nil {
		return nil, err
	}
	return rg, nil
}

// ListRegions возвращает регионы.
func (c *Catalog) ListRegions(ctx context.Context) ([]model.Region, error) {
	return c.repo.ListRegions(ctx)
}

// UpdateRegion переименовывает регион.
func (c *Catalog) UpdateRegion(ctx context.Context, actor Actor, rg *model.Region) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.UpdateRegion(ctx, rg)
}

// DeleteRegion удаляет регион.
func (c *Catalog) DeleteRegion(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.DeleteRegion(ctx, id)
}

// CreateDistrict создаёт район.
func (c *Catalog) CreateDistrict(ctx context.Context, actor Actor, d *model.District) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.CreateDistrict(ctx, d)
}

// ListDistricts возвращает районы, при необходимости одного региона.
func (c *Catalog) ListDistricts(ctx context.Context, regionID *int64) ([]model.District, error) {
	return c.repo.ListDistricts(ctx, regionID)
}

// UpdateDistrict обновляет район.
func (c *Catalog) UpdateDistrict(ctx context.Context, actor Actor, d *model.District) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.UpdateDistrict(ctx, d)
}

// DeleteDistrict удаляет район.
func (c *Catalog) DeleteDistrict(ctx context.Context, actor Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return c.repo.DeleteDistrict(ctx, id)
}

// AddToWishlist добавляет автомобиль в избранное пользователя.
func (c *Catalog) AddToWishlist(ctx context.Context, actor Actor, carID int64) (*model.Wishlist, error) {
	w := &model.Wishlist{UserID: actor.UserID, CarID: carID}
	if err := c.repo.AddToWishlist(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// GetWishlistItem возвращает запись избранного пользователя.
func (c *Catalog) GetWishlistItem(ctx context.Context, actor Actor, id int64) (*model.Wishlist, error) {
	return c.repo.GetWishlistItem(ctx, actor.UserID, id)
}

// ListWishlist возвращает избранное пользователя.
func (c *Catalog) ListWishlist(ctx context.Context, actor Actor) ([]model.Wishlist, error) {
	return c.repo.ListWishlist(ctx, actor.UserID)
}

// RemoveFromWishlist удаляет запись из избранного пользователя.
func (c *Catalog) RemoveFromWishlist(ctx context.Context, actor Actor, id int64) error {
	return c.repo.RemoveFromWishlist(ctx, actor.UserID, id)
}
