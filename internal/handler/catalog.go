package handler

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental/internal/model"
)

type nameRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ListCategories возвращает категории с числом автомобилей.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.fail(w, err, "list categories")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// CreateCategory создаёт категорию.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if !h.decode(w, r, &req) {
		return
	}

	cat, err := h.catalog.CreateCategory(r.Context(), a, req.Name)
	if err != nil {
		h.fail(w, err, "create category")
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

// UpdateCategory переименовывает категорию.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if !h.decode(w, r, &req) {
		return
	}

	cat, err := h.catalog.UpdateCategory(r.Context(), a, id, req.Name)
	if err != nil {
		h.fail(w, err, "update category", zap.Int64("categoryID", id))
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// DeleteCategory удаляет категорию.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), a, id); err != nil {
		h.fail(w, err, "delete category", zap.Int64("categoryID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type carRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description"`
	CategoryID  int64    `json:"category_id" validate:"required,gt=0"`
	Capacity    string   `json:"capacity" validate:"required,capacity"`
	Steering    string   `json:"steering" validate:"required,steering"`
	Gasoline    string   `json:"gasoline" validate:"max=50"`
	Price       int64    `json:"price" validate:"gte=0"`
	MainImage   string   `json:"main_image" validate:"max=500"`
	Images      []string `json:"images" validate:"dive,required,max=500"`
}

func (req carRequest) car() *model.Car {
	car := &model.Car{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Capacity:    model.Capacity(req.Capacity),
		Steering:    model.Steering(req.Steering),
		Gasoline:    req.Gasoline,
		Price:       req.Price,
		MainImage:   req.MainImage,
	}
	for _, img := range req.Images {
		car.Images = append(car.Images, model.CarImage{Image: img})
	}
	return car
}

// carFilter разбирает параметры фильтрации списка автомобилей.
func carFilter(r *http.Request) (model.CarFilter, map[string]string) {
	q := r.URL.Query()
	var f model.CarFilter
	fields := make(map[string]string)

	parse := func(name string) *int64 {
		raw := q.Get(name)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			fields[name] = "must be a non-negative integer"
			return nil
		}
		return &v
	}

	f.PriceMin = parse("price_min")
	f.PriceMax = parse("price_max")
	f.CategoryID = parse("category")
	if c := q.Get("capacity"); c != "" {
		f.Capacity = model.Capacity(c)
		if !f.Capacity.Valid() {
			fields["capacity"] = "capacity must be one of 2, 4, 6, 8 or more"
		}
	}
	f.Search = strings.TrimSpace(q.Get("search"))

	return f, fields
}

// ListCars возвращает автомобили с учётом фильтров price_min, price_max, capacity, category и search.
func (h *Handler) ListCars(w http.ResponseWriter, r *http.Request) {
	f, fields := carFilter(r)
	if len(fields) > 0 {
		writeFieldErrors(w, fields)
		return
	}

	cars, err := h.catalog.ListCars(r.Context(), f)
	if err != nil {
		h.fail(w, err, "list cars")
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

// GetCar возвращает автомобиль с изображениями и отзывами.
func (h *Handler) GetCar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	car, err := h.catalog.GetCar(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get car", zap.Int64("carID", id))
		return
	}
	writeJSON(w, http.StatusOK, car)
}

// CreateCar создаёт автомобиль.
func (h *Handler) CreateCar(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req carRequest
	if !h.decode(w, r, &req) {
		return
	}

	car := req.car()
	if err := h.catalog.CreateCar(r.Context(), a, car); err != nil {
		h.fail(w, err, "create car")
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

// UpdateCar обновляет автомобиль. Изображения меняются через /car-images.
func (h *Handler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req carRequest
	if !h.decode(w, r, &req) {
		return
	}

	car := req.car()
	car.ID = id
	car.Images = nil
	if err := h.catalog.UpdateCar(r.Context(), a, car); err != nil {
		h.fail(w, err, "update car", zap.Int64("carID", id))
		return
	}
	writeJSON(w, http.StatusOK, car)
}

// DeleteCar удаляет автомобиль.
func (h *Handler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteCar(r.Context(), a, id); err != nil {
		h.fail(w, err, "delete car", zap.Int64("carID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type carImageRequest struct {
	CarID int64  `json:"car_id" validate:"required,gt=0"`
	Image string `json:"image" validate:"required,max=500"`
}

// AddCarImage добавляет изображение автомобиля.
func (h *Handler) AddCarImage(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req carImageRequest
	if !h.decode(w, r, &req) {
		return
	}

	img := &model.CarImage{CarID: req.CarID, Image: req.Image}
	if err := h.catalog.AddCarImage(r.Context(), a, img); err != nil {
		h.fail(w, err, "add car image", zap.Int64("carID", req.CarID))
		return
	}
	writeJSON(w, http.StatusCreated, img)
}

type imageRequest struct {
	Image string `json:"image" validate:"required,max=500"`
}

// UpdateCarImage заменяет изображение.
func (h *Handler) UpdateCarImage(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req imageRequest
	if !h.decode(w, r, &req) {
		return
	}

	img := &model.CarImage{ID: id, Image: req.Image}
	if err := h.catalog.UpdateCarImage(r.Context(), a, img); err != nil {
		h.fail(w, err, "update car image", zap.Int64("imageID", id))
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// DeleteCarImage удаляет изображение.
func (h *Handler) DeleteCarImage(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteCarImage(r.Context(), a, id); err != nil {
		h.fail(w, err, "delete car image", zap.Int64("imageID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reviewRequest struct {
	CarID int64  `json:"car_id" validate:"required,gt=0"`
	Stars string `json:"stars" validate:"required,oneof=1 2 3 4 5"`
	Text  string `json:"text" validate:"required,max=2000"`
}

// CreateReview сохраняет отзыв текущего пользователя.
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	rv := &model.Review{CarID: req.CarID, Stars: req.Stars, Text: req.Text}
	if err := h.catalog.CreateReview(r.Context(), a, rv); err != nil {
		h.fail(w, err, "create review", zap.Int64("carID", req.CarID))
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

// ListMyReviews возвращает отзывы текущего пользователя.
func (h *Handler) ListMyReviews(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	reviews, err := h.catalog.ListMyReviews(r.Context(), a)
	if err != nil {
		h.fail(w, err, "list reviews", zap.Int64("userID", a.UserID))
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

type reviewTextRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// UpdateReview меняет текст своего отзыва.
func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req reviewTextRequest
	if !h.decode(w, r, &req) {
		return
	}

	rv, err := h.catalog.UpdateReview(r.Context(), a, id, req.Text)
	if err != nil {
		h.fail(w, err, "update review", zap.Int64("reviewID", id))
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

// DeleteReview удаляет отзыв.
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteReview(r.Context(), a, id); err != nil {
		h.fail(w, err, "delete review", zap.Int64("reviewID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRegions возвращает регионы.
func (h *Handler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.catalog.ListRegions(r.Context())
	if err != nil {
		h.fail(w, err, "list regions")
		return
	}
	writeJSON(w, http.StatusOK, regions)
}

// CreateRegion создаёт регион.
func (h *Handler) CreateRegion(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if !h.decode(w, r, &req) {
		return
	}

	rg, err := h.catalog.CreateRegion(r.Context(), a, req.Name)
	if err != nil {
		h.fail(w, err, "create region")
		return
	}
	writeJSON(w, http.StatusCreated, rg)
}

// UpdateRegion переименовывает регион.
func (h *Handler) UpdateRegion(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req nameRequest
	if !h.decode(w, r, &req) {
		return
	}

	rg := &model.Region{ID: id, Name: strings.TrimSpace(req.Name)}
	if err := h.catalog.UpdateRegion(r.Context(), a, rg); err != nil {
		h.fail(w, err, "update region", zap.Int64("regionID", id))
		return
	}
	writeJSON(w, http.StatusOK, rg)
}

// DeleteRegion удаляет регион.
func (h *Handler) DeleteRegion(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteRegion(r.Context(), a, id); err != nil {
		h.fail(w, err, "delete region", zap.Int64("regionID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type districtRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	RegionID int64  `json:"region_id" validate:"required,gt=0"`
}

// ListDistricts возвращает районы, при наличии параметра region только этого региона.
func (h *Handler) ListDistricts(w http.ResponseWriter, r *http.Request) {
	var regionID *int64
	if raw := r.URL.Query().Get("region"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeFieldErrors(w, map[string]string{"region": "must be an integer"})
			return
		}
		regionID = &v
	}

	districts, err := h.catalog.ListDistricts(r.Context(), regionID)
	if err != nil {
		h.fail(w, err, "list districts")
		return
	}
	writeJSON(w, http.StatusOK, districts)
}

// CreateDistrict создаёт район.
func (h *Handler) CreateDistrict(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req districtRequest
	if !h.decode(w, r, &req) {
		return
	}

	d := &model.District{Name: strings.TrimSpace(req.Name), RegionID: req.RegionID}
	if err := h.catalog.CreateDistrict(r.Context(), a, d); err != nil {
		h.fail(w, err, "create district")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDistrict обновляет район.
func (h *Handler) UpdateDistrict(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req districtRequest
	if !h.decode(w, r, &req) {
		return
	}

	d := &model.District{ID: id, Name: strings.TrimSpace(req.Name), RegionID: req.RegionID}
	if err := h.catalog.UpdateDistrict(r.Context(), a, d); err != nil {
		h.fail(w, err, "update district", zap.Int64("districtID", id))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteDistrict удаляет район.
func (h *Handler) DeleteDistrict(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteDistrict(r.Context(), a, id); err != nil {
		h.fail(w, err, "delete district", zap.Int64("districtID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type wishlistRequest struct {
	CarID int64 `json:"car_id" validate:"required,gt=0"`
}

// ListWishlist возвращает избранное текущего пользователя.
func (h *Handler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	items, err := h.catalog.ListWishlist(r.Context(), a)
	if err != nil {
		h.fail(w, err, "list wishlist", zap.Int64("userID", a.UserID))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// AddToWishlist добавляет автомобиль в избранное.
func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req wishlistRequest
	if !h.decode(w, r, &req) {
		return
	}

	item, err := h.catalog.AddToWishlist(r.Context(), a, req.CarID)
	if err != nil {
		h.fail(w, err, "add to wishlist", zap.Int64("carID", req.CarID))
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// GetWishlistItem возвращает запись избранного.
func (h *Handler) GetWishlistItem(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.catalog.GetWishlistItem(r.Context(), a, id)
	if err != nil {
		h.fail(w, err, "get wishlist item", zap.Int64("wishlistID", id))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// RemoveFromWishlist удаляет запись из избранного.
func (h *Handler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.RemoveFromWishlist(r.Context(), a, id); err != nil {
		h.fail(w, err, "remove from wishlist", zap.Int64("wishlistID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
