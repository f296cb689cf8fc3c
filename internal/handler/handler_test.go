package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental/internal/middleware"
	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/repository"
	"github.com/mmeshcher/car-rental/internal/service"
)

type stubAccounts struct {
	AccountService

	registered  []service.Registration
	registerErr error

	user    *model.User
	userErr error
}

func (s *stubAccounts) Register(ctx context.Context, reg service.Registration) error {
	s.registered = append(s.registered, reg)
	return s.registerErr
}

func (s *stubAccounts) VerifyCode(ctx context.Context, code string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubAccounts) Authenticate(ctx context.Context, identifier, password string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubAccounts) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.user, s.userErr
}

type stubCatalog struct {
	CatalogService

	filter  model.CarFilter
	cars    []model.Car
	created *model.Car
	err     error
}

func (s *stubCatalog) ListCars(ctx context.Context, f model.CarFilter) ([]model.Car, error) {
	s.filter = f
	return s.cars, s.err
}

func (s *stubCatalog) GetCar(ctx context.Context, id int64) (*model.Car, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Car{ID: id, Name: "Chevrolet Malibu"}, nil
}

func (s *stubCatalog) CreateCar(ctx context.Context, actor service.Actor, car *model.Car) error {
	if s.err != nil {
		return s.err
	}
	car.ID = 11
	s.created = car
	return nil
}

func (s *stubCatalog) UpdateReview(ctx context.Context, actor service.Actor, id int64, text string) (*model.Review, error) {
	if actor.UserID != 1 {
		return nil, service.ErrForbidden
	}
	return &model.Review{ID: id, UserID: 1, Text: text, IsEdited: true}, nil
}

type stubRentals struct {
	RentalService

	order *model.RentalOrder
	err   error
}

func (s *stubRentals) CreateRentalOrder(ctx context.Context, actor service.Actor, o *model.RentalOrder) error {
	if s.err != nil {
		return s.err
	}
	o.ID = 3
	o.UserID = actor.UserID
	s.order = o
	return nil
}

type stubStats struct {
	n   int
	top []model.TopCar
}

func (s *stubStats) TopCars(ctx context.Context, n int) ([]model.TopCar, error) {
	s.n = n
	return s.top, nil
}

func (s *stubStats) RecentTransactions(ctx context.Context, n int) ([]model.Transaction, error) {
	s.n = n
	return nil, nil
}

type testEnv struct {
	router   http.Handler
	auth     *middleware.AuthMiddleware
	accounts *stubAccounts
	catalog  *stubCatalog
	rentals  *stubRentals
	stats    *stubStats
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	env := &testEnv{
		auth:     middleware.NewAuthMiddleware("test-secret", time.Hour, 2*time.Hour),
		accounts: &stubAccounts{},
		catalog:  &stubCatalog{},
		rentals:  &stubRentals{},
		stats:    &stubStats{},
	}
	h := NewHandler(Services{
		Accounts: env.accounts,
		Catalog:  env.catalog,
		Rentals:  env.rentals,
		Stats:    env.stats,
	}, logger, env.auth)
	env.router = h.SetupRouter(nil)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, userID int64, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != 0 {
		pair, err := e.auth.IssueTokens(userID, admin)
		if err != nil {
			t.Fatalf("issue tokens: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+pair.Access)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var resp errorsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode errors: %v", err)
	}
	return resp.Errors
}

func TestRegister_Accepted(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"phone_number": "+998 90 123 45 67",
		"password":     "secret1",
	}, 0, false)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if len(env.accounts.registered) != 1 {
		t.Fatalf("registrations = %d, want 1", len(env.accounts.registered))
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{name: "no identifier", body: map[string]string{"password": "secret1"}, field: "phone_number"},
		{name: "bad operator", body: map[string]string{"phone_number": "998111234567", "password": "secret1"}, field: "phone_number"},
		{name: "weak password", body: map[string]string{"email": "a@b.uz", "password": "abcdef"}, field: "password"},
		{name: "bad email", body: map[string]string{"email": "nope", "password": "secret1"}, field: "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/auth/register", tt.body, 0, false)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if _, ok := decodeErrors(t, rec)[tt.field]; !ok {
				t.Fatalf("no error for field %q", tt.field)
			}
			if len(env.accounts.registered) != 0 {
				t.Fatalf("service called for invalid request")
			}
		})
	}
}

func TestRegister_Conflict(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.registerErr = fmt.Errorf("%w: 998901234567", repository.ErrUserExists)

	rec := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"phone_number": "998901234567",
		"password":     "secret1",
	}, 0, false)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestLogin_IssuesTokens(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.user = &model.User{ID: 9, IsAdmin: true}

	rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": "998901234567",
		"password":   "secret1",
	}, 0, false)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var pair middleware.TokenPair
	if err := json.NewDecoder(rec.Body).Decode(&pair); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	claims, err := env.auth.ParseRefresh(pair.Refresh)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if claims.UserID != 9 || !claims.IsAdmin {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLogin_UnauthorizedOnInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.userErr = service.ErrInvalidCredentials

	rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": "998901234567",
		"password":   "wrong1",
	}, 0, false)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t)
	env.accounts.user = &model.User{ID: 4}

	pair, err := env.auth.IssueTokens(4, false)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/auth/token/refresh", map[string]string{"refresh": pair.Refresh}, 0, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/token/refresh", map[string]string{"refresh": pair.Access}, 0, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("access token accepted as refresh: status = %d", rec.Code)
	}
}

func TestListCars_ParsesFilter(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.cars = []model.Car{{ID: 1, Name: "Chevrolet Malibu"}}

	rec := env.do(t, http.MethodGet, "/api/cars?price_min=100&price_max=500&capacity=4&category=2&search=malibu", nil, 0, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	f := env.catalog.filter
	if f.PriceMin == nil || *f.PriceMin != 100 || f.PriceMax == nil || *f.PriceMax != 500 {
		t.Fatalf("price filter = %v..%v", f.PriceMin, f.PriceMax)
	}
	if f.Capacity != model.CapacityFour || f.CategoryID == nil || *f.CategoryID != 2 || f.Search != "malibu" {
		t.Fatalf("filter = %+v", f)
	}
}

func TestListCars_RejectsBadFilter(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cars?price_min=-1&capacity=3", nil, 0, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	errs := decodeErrors(t, rec)
	if _, ok := errs["price_min"]; !ok {
		t.Fatalf("no price_min error: %v", errs)
	}
	if _, ok := errs["capacity"]; !ok {
		t.Fatalf("no capacity error: %v", errs)
	}
}

func TestGetCar_NotFound(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.err = fmt.Errorf("get car: %w", repository.ErrNotFound)

	rec := env.do(t, http.MethodGet, "/api/cars/77", nil, 0, false)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestCreateCar_Access(t *testing.T) {
	car := map[string]any{
		"name":        "Chevrolet Malibu",
		"category_id": 1,
		"capacity":    "4",
		"steering":    "Power",
		"price":       450000,
		"images":      []string{"a.jpg", "b.jpg"},
	}

	tests := []struct {
		name   string
		userID int64
		admin  bool
		want   int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "regular user", userID: 2, want: http.StatusForbidden},
		{name: "admin", userID: 1, admin: true, want: http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/cars", car, tt.userID, tt.admin)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusCreated && len(env.catalog.created.Images) != 2 {
				t.Fatalf("images = %d, want 2", len(env.catalog.created.Images))
			}
		})
	}
}

func TestCreateCar_InvalidEnums(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/cars", map[string]any{
		"name":        "Chevrolet Malibu",
		"category_id": 1,
		"capacity":    "5",
		"steering":    "Hydraulic",
		"price":       -1,
	}, 1, true)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	errs := decodeErrors(t, rec)
	for _, f := range []string{"capacity", "steering", "price"} {
		if _, ok := errs[f]; !ok {
			t.Fatalf("no error for %q: %v", f, errs)
		}
	}
}

func TestUpdateReview_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/reviews/5", map[string]string{"text": "changed"}, 2, false)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	rec = env.do(t, http.MethodPatch, "/api/reviews/5", map[string]string{"text": "changed"}, 1, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var rv model.Review
	if err := json.NewDecoder(rec.Body).Decode(&rv); err != nil {
		t.Fatalf("decode review: %v", err)
	}
	if !rv.IsEdited {
		t.Fatalf("review not marked edited")
	}
}

func TestCreateRentalOrder(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"billing": map[string]any{"full_name": "Ali Valiyev", "phone": "+998 90 123 45 67"},
		"rental": map[string]any{
			"car_id":           7,
			"pickup_location":  "TAS_AIR",
			"pickup_date":      "2025-09-10",
			"pickup_time":      "10:00",
			"dropoff_location": "SAM_ST",
			"dropoff_date":     "2025-09-12",
			"dropoff_time":     "18:30",
		},
	}

	rec := env.do(t, http.MethodPost, "/api/rental-orders", body, 5, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	o := env.rentals.order
	if o.UserID != 5 || o.Rental.CarID != 7 || o.Rental.DropoffTime != model.NewClock(18, 30) {
		t.Fatalf("order = %+v", o)
	}
}

func TestCreateRentalOrder_NestedValidation(t *testing.T) {
	env := newTestEnv(t)

	body := map[string]any{
		"billing": map[string]any{"full_name": "Ali Valiyev", "phone": "12345"},
		"rental": map[string]any{
			"car_id":           7,
			"pickup_location":  "MOON",
			"pickup_date":      "2025-09-10",
			"dropoff_location": "SAM_ST",
			"dropoff_date":     "2025-09-12",
		},
	}

	rec := env.do(t, http.MethodPost, "/api/rental-orders", body, 5, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	errs := decodeErrors(t, rec)
	if _, ok := errs["billing.phone"]; !ok {
		t.Fatalf("no billing.phone error: %v", errs)
	}
	if _, ok := errs["rental.pickup_location"]; !ok {
		t.Fatalf("no rental.pickup_location error: %v", errs)
	}
	if env.rentals.order != nil {
		t.Fatalf("service called for invalid order")
	}
}

func TestStats_RequireAuthAndLimit(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/stats/top-cars", nil, 0, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = env.do(t, http.MethodGet, "/api/stats/top-cars", nil, 3, false)
	if rec.Code != http.StatusOK || env.stats.n != defaultStatsLimit {
		t.Fatalf("status = %d n = %d", rec.Code, env.stats.n)
	}

	rec = env.do(t, http.MethodGet, "/api/stats/recent-transactions?limit=10", nil, 3, false)
	if rec.Code != http.StatusOK || env.stats.n != 10 {
		t.Fatalf("status = %d n = %d", rec.Code, env.stats.n)
	}

	rec = env.do(t, http.MethodGet, "/api/stats/recent-transactions?limit=0", nil, 3, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/healthz", nil, 0, false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
