package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/service"
)

type billingRequest struct {
	FullName   string `json:"full_name" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"required,uzphone"`
	DistrictID *int64 `json:"district_id" validate:"omitempty,gt=0"`
}

func (req billingRequest) billing() model.BillingInfo {
	return model.BillingInfo{FullName: req.FullName, Phone: req.Phone, DistrictID: req.DistrictID}
}

type rentalInfoRequest struct {
	CarID           int64       `json:"car_id" validate:"required,gt=0"`
	PickupLocation  string      `json:"pickup_location" validate:"required,location"`
	PickupDate      model.Date  `json:"pickup_date" validate:"required"`
	PickupTime      model.Clock `json:"pickup_time"`
	DropoffLocation string      `json:"dropoff_location" validate:"required,location"`
	DropoffDate     model.Date  `json:"dropoff_date" validate:"required"`
	DropoffTime     model.Clock `json:"dropoff_time"`
}

func (req rentalInfoRequest) rental() model.RentalInfo {
	return model.RentalInfo{
		CarID:           req.CarID,
		PickupLocation:  model.Location(req.PickupLocation),
		PickupDate:      req.PickupDate,
		PickupTime:      req.PickupTime,
		DropoffLocation: model.Location(req.DropoffLocation),
		DropoffDate:     req.DropoffDate,
		DropoffTime:     req.DropoffTime,
	}
}

// ListBillingInfos возвращает данные плательщика текущего пользователя.
func (h *Handler) ListBillingInfos(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	infos, err := h.rentals.ListBillingInfos(r.Context(), a)
	if err != nil {
		h.fail(w, err, "list billing infos", zap.Int64("userID", a.UserID))
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// CreateBillingInfo сохраняет данные плательщика.
func (h *Handler) CreateBillingInfo(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req billingRequest
	if !h.decode(w, r, &req) {
		return
	}

	b := req.billing()
	if err := h.rentals.CreateBillingInfo(r.Context(), a, &b); err != nil {
		h.fail(w, err, "create billing info", zap.Int64("userID", a.UserID))
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// CreateRentalInfo сохраняет параметры аренды.
func (h *Handler) CreateRentalInfo(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r); !ok {
		return
	}
	var req rentalInfoRequest
	if !h.decode(w, r, &req) {
		return
	}

	ri := req.rental()
	if err := h.rentals.CreateRentalInfo(r.Context(), &ri); err != nil {
		h.fail(w, err, "create rental info", zap.Int64("carID", req.CarID))
		return
	}
	writeJSON(w, http.StatusCreated, ri)
}

// GetRentalInfo возвращает параметры аренды.
func (h *Handler) GetRentalInfo(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireActor(w, r); !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	ri, err := h.rentals.GetRentalInfo(r.Context(), id)
	if err != nil {
		h.fail(w, err, "get rental info", zap.Int64("rentalInfoID", id))
		return
	}
	writeJSON(w, http.StatusOK, ri)
}

type paymentRequest struct {
	CardType       string `json:"card_type" validate:"required,max=50"`
	CardHolder     string `json:"card_holder" validate:"required,max=255"`
	CardNumber     string `json:"card_number" validate:"required,luhn"`
	ExpirationDate string `json:"expiration_date" validate:"required"`
	CVV            string `json:"cvv" validate:"required,cvv"`
}

// ListPayments возвращает сохранённые карты текущего пользователя.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	payments, err := h.rentals.ListPayments(r.Context(), a)
	if err != nil {
		h.fail(w, err, "list payments", zap.Int64("userID", a.UserID))
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// CreatePayment проверяет и сохраняет карту.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.rentals.CreatePayment(r.Context(), a, service.PaymentInput{
		CardType:       req.CardType,
		CardHolder:     req.CardHolder,
		CardNumber:     req.CardNumber,
		ExpirationDate: req.ExpirationDate,
		CVV:            req.CVV,
	})
	if err != nil {
		h.fail(w, err, "create payment", zap.Int64("userID", a.UserID))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// DeletePayment удаляет сохранённую карту.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.rentals.DeletePayment(r.Context(), a, id); err != nil {
		h.fail(w, err, "delete payment", zap.Int64("paymentID", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rentalOrderRequest struct {
	Billing   billingRequest    `json:"billing"`
	Rental    rentalInfoRequest `json:"rental"`
	PaymentID *int64            `json:"payment_id" validate:"omitempty,gt=0"`
}

// ListRentalOrders возвращает заказы текущего пользователя.
func (h *Handler) ListRentalOrders(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	orders, err := h.rentals.ListRentalOrders(r.Context(), a)
	if err != nil {
		h.fail(w, err, "list rental orders", zap.Int64("userID", a.UserID))
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// CreateRentalOrder оформляет заказ вместе с данными плательщика и параметрами аренды.
func (h *Handler) CreateRentalOrder(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActor(w, r)
	if !ok {
		return
	}
	var req rentalOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	o := &model.RentalOrder{
		Billing:   req.Billing.billing(),
		Rental:    req.Rental.rental(),
		PaymentID: req.PaymentID,
	}
	if err := h.rentals.CreateRentalOrder(r.Context(), a, o); err != nil {
		h.fail(w, err, "create rental order", zap.Int64("userID", a.UserID), zap.Int64("carID", req.Rental.CarID))
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

const defaultStatsLimit = 5

func statsLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultStatsLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 100 {
		return 0, false
	}
	return n, true
}

// TopCars возвращает автомобили с наибольшим числом аренд в вебе и боте.
func (h *Handler) TopCars(w http.ResponseWriter, r *http.Request) {
	n, ok := statsLimit(r)
	if !ok {
		writeFieldErrors(w, map[string]string{"limit": "must be an integer between 1 and 100"})
		return
	}

	top, err := h.stats.TopCars(r.Context(), n)
	if err != nil {
		h.fail(w, err, "top cars")
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// RecentTransactions возвращает последние аренды в вебе и боте.
func (h *Handler) RecentTransactions(w http.ResponseWriter, r *http.Request) {
	n, ok := statsLimit(r)
	if !ok {
		writeFieldErrors(w, map[string]string{"limit": "must be an integer between 1 and 100"})
		return
	}

	txs, err := h.stats.RecentTransactions(r.Context(), n)
	if err != nil {
		h.fail(w, err, "recent transactions")
		return
	}
	writeJSON(w, http.StatusOK, txs)
}
