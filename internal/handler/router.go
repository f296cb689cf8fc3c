package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmeshcher/car-rental/internal/metrics"
	custommiddleware "github.com/mmeshcher/car-rental/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса аренды.
// Если m не nil, запросы учитываются в метриках и открывается /metrics.
func (h *Handler) SetupRouter(m *metrics.Metrics) *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	if m != nil {
		r.Use(custommiddleware.Instrument(m))
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Get("/healthz", h.Health)

	auth := h.authMiddleware.Middleware
	admin := custommiddleware.RequireAdmin

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/verify-code", h.VerifyCode)
			r.Post("/login", h.Login)
			r.Post("/token/refresh", h.RefreshToken)
		})

		r.Get("/categories", h.ListCategories)
		r.Get("/cars", h.ListCars)
		r.Get("/cars/{id}", h.GetCar)
		r.Get("/regions", h.ListRegions)
		r.Get("/districts", h.ListDistricts)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Route("/users", func(r chi.Router) {
				r.With(admin).Get("/", h.ListUsers)
				r.Get("/me", h.Me)
				r.Get("/{id}", h.GetUser)
				r.Patch("/{id}", h.UpdateUser)
				r.Delete("/{id}", h.DeleteUser)
				r.Post("/{id}/change-password", h.ChangePassword)
			})

			r.Route("/reviews", func(r chi.Router) {
				r.Get("/", h.ListMyReviews)
				r.Post("/", h.CreateReview)
				r.Patch("/{id}", h.UpdateReview)
				r.With(admin).Delete("/{id}", h.DeleteReview)
			})

			r.Route("/wishlists", func(r chi.Router) {
				r.Get("/", h.ListWishlist)
				r.Post("/", h.AddToWishlist)
				r.Get("/{id}", h.GetWishlistItem)
				r.Delete("/{id}", h.RemoveFromWishlist)
			})

			r.Get("/billing-infos", h.ListBillingInfos)
			r.Post("/billing-infos", h.CreateBillingInfo)
			r.Post("/rental-infos", h.CreateRentalInfo)
			r.Get("/rental-infos/{id}", h.GetRentalInfo)

			r.Get("/payments", h.ListPayments)
			r.Post("/payments", h.CreatePayment)
			r.Delete("/payments/{id}", h.DeletePayment)

			r.Get("/rental-orders", h.ListRentalOrders)
			r.Post("/rental-orders", h.CreateRentalOrder)

			r.Get("/stats/top-cars", h.TopCars)
			r.Get("/stats/recent-transactions", h.RecentTransactions)

			r.Group(func(r chi.Router) {
				r.Use(admin)

				r.Post("/categories", h.CreateCategory)
				r.Put("/categories/{id}", h.UpdateCategory)
				r.Delete("/categories/{id}", h.DeleteCategory)

				r.Post("/cars", h.CreateCar)
				r.Put("/cars/{id}", h.UpdateCar)
				r.Delete("/cars/{id}", h.DeleteCar)

				r.Post("/car-images", h.AddCarImage)
				r.Put("/car-images/{id}", h.UpdateCarImage)
				r.Delete("/car-images/{id}", h.DeleteCarImage)

				r.Post("/regions", h.CreateRegion)
				r.Put("/regions/{id}", h.UpdateRegion)
				r.Delete("/regions/{id}", h.DeleteRegion)

				r.Post("/districts", h.CreateDistrict)
				r.Put("/districts/{id}", h.UpdateDistrict)
				r.Delete("/districts/{id}", h.DeleteDistrict)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
