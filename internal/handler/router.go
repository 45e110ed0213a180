package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/Maithiliii/Flairies/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса Flairies.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)

		r.Get("/listings", h.ListListings)
		r.Get("/listings/{id}", h.GetListing)

		// Колбэк платёжного шлюза приходит без пользовательской сессии.
		r.Post("/orders/update-payment", h.UpdatePayment)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/listings", h.CreateListing)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.GetPurchases)
			r.Get("/orders/sales", h.GetSales)
			r.Post("/orders/{orderID}/fulfillment", h.UpdateFulfillment)

			r.Get("/seller/earnings", h.GetSellerEarnings)
			r.Post("/seller/bank-details", h.SaveBankDetails)

			r.Post("/user/push-token", h.RegisterPushToken)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.authMiddleware.AdminMiddleware)

			r.Get("/revenue-analytics", h.RevenueAnalytics)
			r.Get("/daily-revenue", h.DailyRevenue)
			r.Get("/monthly-revenue", h.MonthlyRevenue)
			r.Get("/pending-payouts", h.PendingPayouts)
			r.Post("/process-payouts", h.ProcessPayouts)
			r.Post("/orders/{orderID}/refund", h.RefundOrder)
			r.Post("/payouts/{orderID}/retry", h.RetryPayout)
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

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
