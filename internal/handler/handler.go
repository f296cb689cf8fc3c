// Package handler содержит HTTP-обработчики REST API сервиса аренды автомобилей.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental/internal/middleware"
	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/repository"
	"github.com/mmeshcher/car-rental/internal/service"
)

// AccountService определяет операции с учётными записями.
type AccountService interface {
	Register(ctx context.Context, reg service.Registration) error
	VerifyCode(ctx context.Context, code string) (*model.User, error)
	Authenticate(ctx context.Context, identifier, password string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	ListUsers(ctx context.Context, actor service.Actor) ([]model.User, error)
	UpdateProfile(ctx context.Context, actor service.Actor, userID int64, upd service.ProfileUpdate) (*model.User, error)
	ChangePassword(ctx context.Context, actor service.Actor, userID int64, oldPassword, newPassword, confirm string) error
	DeleteUser(ctx context.Context, actor service.Actor, userID int64) error
}

// CatalogService определяет операции с каталогом, отзывами, справочниками и избранным.
type CatalogService interface {
	CreateCategory(ctx context.Context, actor service.Actor, name string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, actor service.Actor, id int64, name string) (*model.Category, error)
	DeleteCategory(ctx context.Context, actor service.Actor, id int64) error

	CreateCar(ctx context.Context, actor service.Actor, car *model.Car) error
	GetCar(ctx context.Context, id int64) (*model.Car, error)
	ListCars(ctx context.Context, f model.CarFilter) ([]model.Car, error)
	UpdateCar(ctx context.Context, actor service.Actor, car *model.Car) error
	DeleteCar(ctx context.Context, actor service.Actor, id int64) error

	AddCarImage(ctx context.Context, actor service.Actor, img *model.CarImage) error
	UpdateCarImage(ctx context.Context, actor service.Actor, img *model.CarImage) error
	DeleteCarImage(ctx context.Context, actor service.Actor, id int64) error

	CreateReview(ctx context.Context, actor service.Actor, rv *model.Review) error
	ListMyReviews(ctx context.Context, actor service.Actor) ([]model.Review, error)
	UpdateReview(ctx context.Context, actor service.Actor, id int64, text string) (*model.Review, error)
	DeleteReview(ctx context.Context, actor service.Actor, id int64) error

	CreateRegion(ctx context.Context, actor service.Actor, name string) (*model.Region, error)
	ListRegions(ctx context.Context) ([]model.Region, error)
	UpdateRegion(ctx context.Context, actor service.Actor, rg *model.Region) error
	DeleteRegion(ctx context.Context, actor service.Actor, id int64) error
	CreateDistrict(ctx context.Context, actor service.Actor, d *model.District) error
	ListDistricts(ctx context.Context, regionID *int64) ([]model.District, error)
	UpdateDistrict(ctx context.Context, actor service.Actor, d *model.District) error
	DeleteDistrict(ctx context.Context, actor service.Actor, id int64) error

	AddToWishlist(ctx context.Context, actor service.Actor, carID int64) (*model.Wishlist, error)
	GetWishlistItem(ctx context.Context, actor service.Actor, id int64) (*model.Wishlist, error)
	ListWishlist(ctx context.Context, actor service.Actor) ([]model.Wishlist, error)
	RemoveFromWishlist(ctx context.Context, actor service.Actor, id int64) error
}

// RentalService определяет операции с арендами, оформленными через веб.
type RentalService interface {
	CreateBillingInfo(ctx context.Context, actor service.Actor, b *model.BillingInfo) error
	ListBillingInfos(ctx context.Context, actor service.Actor) ([]model.BillingInfo, error)
	CreateRentalInfo(ctx context.Context, ri *model.RentalInfo) error
	GetRentalInfo(ctx context.Context, id int64) (*model.RentalInfo, error)
	CreatePayment(ctx context.Context, actor service.Actor, in service.PaymentInput) (*model.Payment, error)
	ListPayments(ctx context.Context, actor service.Actor) ([]model.Payment, error)
	DeletePayment(ctx context.Context, actor service.Actor, id int64) error
	CreateRentalOrder(ctx context.Context, actor service.Actor, o *model.RentalOrder) error
	ListRentalOrders(ctx context.Context, actor service.Actor) ([]model.RentalOrder, error)
}

// StatsService определяет агрегаты по арендам всех каналов.
type StatsService interface {
	TopCars(ctx context.Context, n int) ([]model.TopCar, error)
	RecentTransactions(ctx context.Context, n int) ([]model.Transaction, error)
}

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services объединяет зависимости обработчиков.
type Services struct {
	Accounts AccountService
	Catalog  CatalogService
	Rentals  RentalService
	Stats    StatsService
	Health   Pinger
}

// Handler реализует HTTP-обработчики REST API.
type Handler struct {
	accounts       AccountService
	catalog        CatalogService
	rentals        RentalService
	stats          StatsService
	health         Pinger
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validate       *requestValidator
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Services, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		accounts:       s.Accounts,
		catalog:        s.Catalog,
		rentals:        s.Rentals,
		stats:          s.Stats,
		health:         s.Health,
		logger:         logger,
		authMiddleware: auth,
		validate:       newRequestValidator(),
	}
}

type errorsResponse struct {
	Errors map[string]string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: fields})
}

// decode читает тело запроса в dst и проверяет его теги validate.
// При ошибке ответ уже записан.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeFieldErrors(w, map[string]string{"body": "malformed JSON"})
		return false
	}
	if fields := h.validate.check(dst); len(fields) > 0 {
		writeFieldErrors(w, fields)
		return false
	}
	return true
}

// fail переводит ошибку сервиса в HTTP-ответ.
func (h *Handler) fail(w http.ResponseWriter, err error, op string, fields ...zap.Field) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeFieldErrors(w, verr.Fields)
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, middleware.ErrInvalidToken):
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	case errors.Is(err, service.ErrInvalidCode):
		writeFieldErrors(w, map[string]string{"code": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, repository.ErrUserExists), errors.Is(err, repository.ErrConflict), errors.Is(err, repository.ErrInUse):
		http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
	default:
		h.logger.Error(op+" error", append(fields, zap.Error(err))...)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// actor возвращает пользователя запроса. Маршрут должен быть закрыт middleware аутентификации.
func actor(r *http.Request) (service.Actor, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{UserID: id, IsAdmin: middleware.IsAdminFromContext(r.Context())}, true
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	a, ok := actor(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return a, ok
}

// pathID разбирает числовой параметр маршрута {id}.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// Health сообщает о готовности сервиса.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
