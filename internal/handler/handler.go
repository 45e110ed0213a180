// Package handler содержит HTTP-обработчики API сервиса Flairies.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Maithiliii/Flairies/internal/ledger"
	"github.com/Maithiliii/Flairies/internal/middleware"
	"github.com/Maithiliii/Flairies/internal/model"
	"github.com/Maithiliii/Flairies/internal/payout"
	"github.com/Maithiliii/Flairies/internal/repository"
	"github.com/Maithiliii/Flairies/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, login, password string) (int64, error)
	AuthenticateUser(ctx context.Context, login, password string) (int64, error)

	CreateListing(ctx context.Context, l *model.Listing) (int64, error)
	GetListing(ctx context.Context, id int64) (*model.Listing, error)
	ListActiveListings(ctx context.Context) ([]model.Listing, error)

	CreateOrder(ctx context.Context, req service.OrderRequest) (*model.Order, error)
	GetOrdersByBuyer(ctx context.Context, buyerID int64) ([]model.Order, error)
	GetOrdersBySeller(ctx context.Context, sellerID int64) ([]model.Order, error)
	HandlePaymentCallback(ctx context.Context, orderID, gatewayPaymentID, signature, status string) error
	UpdateFulfillment(ctx context.Context, userID int64, orderID string, to model.FulfillmentStatus) error

	GetSellerEarnings(ctx context.Context, sellerID int64) (*service.SellerEarnings, error)
	SaveBankDetails(ctx context.Context, p *model.SellerProfile) error
	RegisterPushToken(ctx context.Context, userID int64, token string) error

	RefundOrder(ctx context.Context, orderID string) error
	ProcessAllPendingPayouts(ctx context.Context) (model.PayoutBatchResult, error)
	RetryFailedPayout(ctx context.Context, orderID string) error
	AttemptPayout(ctx context.Context, orderID string) error

	GetRevenueSummary(ctx context.Context) (*service.RevenueSummary, error)
	DailyRevenue(ctx context.Context, date time.Time) (*model.RevenueReport, error)
	MonthlyRevenue(ctx context.Context, year int, month time.Month) (*model.RevenueReport, error)
	GetPendingPayouts(ctx context.Context) ([]model.PendingPayoutRow, error)
}

// Handler реализует HTTP-обработчики API сервиса Flairies.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.RegisterUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("register user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

// Login выполняет аутентификацию пользователя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	userID, err := h.service.AuthenticateUser(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || err.Error() == "invalid credentials" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		h.logger.Error("login user error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.authMiddleware.SetAuthCookie(w, userID)
	w.WriteHeader(http.StatusOK)
}

type listingRequest struct {
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	ListingType    model.ListingType    `json:"listing_type"`
	Price          decimal.Decimal      `json:"price"`
	RentPrice      decimal.Decimal      `json:"rent_price"`
	AllowedMethods model.AllowedMethods `json:"allowed_payment_methods"`
}

// CreateListing публикует объявление текущего пользователя.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req listingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Title == "" || !req.Price.IsPositive() && !req.RentPrice.IsPositive() {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.AllowedMethods == "" {
		req.AllowedMethods = model.AllowedMethodsBoth
	}
	if req.ListingType == "" {
		req.ListingType = model.ListingTypeSell
	}

	listing := &model.Listing{
		SellerID:       userID,
		Title:          req.Title,
		Description:    req.Description,
		ListingType:    req.ListingType,
		Price:          req.Price,
		RentPrice:      req.RentPrice,
		AllowedMethods: req.AllowedMethods,
		IsActive:       true,
	}

	id, err := h.service.CreateListing(r.Context(), listing)
	if err != nil {
		h.logger.Error("create listing error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	listing.ID = id
	writeJSON(w, http.StatusCreated, listing)
}

// ListListings возвращает активные объявления.
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.service.ListActiveListings(r.Context())
	if err != nil {
		h.logger.Error("list listings error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(listings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, listings)
}

// GetListing возвращает объявление по идентификатору из пути.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	listing, err := h.service.GetListing(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get listing error", zap.Error(err), zap.Int64("listing", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

type orderRequest struct {
	ListingID       int64               `json:"listing_id"`
	PaymentMethod   model.PaymentMethod `json:"payment_method"`
	BuyerName       string              `json:"buyer_name"`
	BuyerPhone      string              `json:"buyer_phone"`
	DeliveryAddress string              `json:"delivery_address"`
}

// CreateOrder создаёт заказ на объявление от текущего пользователя.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), service.OrderRequest{
		BuyerID:         userID,
		ListingID:       req.ListingID,
		PaymentMethod:   req.PaymentMethod,
		BuyerName:       req.BuyerName,
		BuyerPhone:      req.BuyerPhone,
		DeliveryAddress: req.DeliveryAddress,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrListingNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrListingNotAvailable), errors.Is(err, service.ErrOwnListing):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, service.ErrMethodNotAllowed), errors.Is(err, service.ErrBelowMinOrder),
			errors.Is(err, ledger.ErrInvalidPrice):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, ledger.ErrInvalidMethod):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		default:
			h.logger.Error("create order error", zap.Error(err), zap.Int64("userID", userID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// GetPurchases возвращает покупки текущего пользователя.
func (h *Handler) GetPurchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrdersByBuyer(r.Context(), userID)
	if err != nil {
		h.logger.Error("get purchases error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// GetSales возвращает продажи текущего пользователя.
func (h *Handler) GetSales(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrdersBySeller(r.Context(), userID)
	if err != nil {
		h.logger.Error("get sales error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

type paymentCallbackRequest struct {
	OrderID          string `json:"order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
	Status           string `json:"status"`
}

// UpdatePayment обрабатывает колбэк платёжного шлюза об исходе оплаты.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.OrderID == "" || req.Status == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.HandlePaymentCallback(r.Context(), req.OrderID, req.GatewayPaymentID, req.Signature, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, model.ErrInvalidTransition):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("payment callback error", zap.Error(err), zap.String("order", req.OrderID))
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

type fulfillmentRequest struct {
	Status model.FulfillmentStatus `json:"status"`
}

// UpdateFulfillment переводит логистический статус заказа.
func (h *Handler) UpdateFulfillment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orderID := chi.URLParam(r, "orderID")

	var req fulfillmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	err := h.service.UpdateFulfillment(r.Context(), userID, orderID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, service.ErrNotOrderParty):
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		case errors.Is(err, model.ErrInvalidTransition):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("update fulfillment error", zap.Error(err), zap.String("order", orderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// GetSellerEarnings возвращает балансы выплат и продажи текущего пользователя.
func (h *Handler) GetSellerEarnings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	earnings, err := h.service.GetSellerEarnings(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrSellerNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get seller earnings error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, earnings)
}

type bankDetailsRequest struct {
	AccountHolderName string `json:"account_holder_name"`
	AccountNumber     string `json:"account_number"`
	IFSCCode          string `json:"ifsc_code"`
	UPIID             string `json:"upi_id"`
	Phone             string `json:"phone"`
}

// SaveBankDetails сохраняет платёжные реквизиты текущего пользователя.
func (h *Handler) SaveBankDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req bankDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	profile := &model.SellerProfile{
		UserID:            userID,
		AccountHolderName: req.AccountHolderName,
		AccountNumber:     req.AccountNumber,
		IFSCCode:          req.IFSCCode,
		UPIID:             req.UPIID,
		Phone:             req.Phone,
	}

	if !profile.HasPayoutMethod() {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	if err := h.service.SaveBankDetails(r.Context(), profile); err != nil {
		h.logger.Error("save bank details error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

// RegisterPushToken сохраняет push-токен текущего пользователя.
func (h *Handler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req pushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.RegisterPushToken(r.Context(), userID, req.Token); err != nil {
		h.logger.Error("register push token error", zap.Error(err), zap.Int64("userID", userID))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RevenueAnalytics возвращает сводку выручки платформы.
func (h *Handler) RevenueAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetRevenueSummary(r.Context())
	if err != nil {
		h.logger.Error("revenue analytics error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// DailyRevenue возвращает сводку выручки за указанные сутки (параметр date,
// формат 2006-01-02; по умолчанию — сегодня).
func (h *Handler) DailyRevenue(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		date = parsed
	}

	report, err := h.service.DailyRevenue(r.Context(), date)
	if err != nil {
		h.logger.Error("daily revenue error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// MonthlyRevenue возвращает сводку выручки за указанный месяц (параметр
// month, формат 2006-01; по умолчанию — текущий).
func (h *Handler) MonthlyRevenue(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year, month := now.Year(), now.Month()
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := time.Parse("2006-01", raw)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		year, month = parsed.Year(), parsed.Month()
	}

	report, err := h.service.MonthlyRevenue(r.Context(), year, month)
	if err != nil {
		h.logger.Error("monthly revenue error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ProcessPayouts запускает пакетную обработку всех готовых выплат.
func (h *Handler) ProcessPayouts(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ProcessAllPendingPayouts(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrProviderUnavailable) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("process payouts error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RetryPayout возвращает неудавшуюся выплату в очередь и сразу повторяет её.
func (h *Handler) RetryPayout(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	if err := h.service.RetryFailedPayout(r.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, model.ErrInvalidTransition):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("retry payout error", zap.Error(err), zap.String("order", orderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	if err := h.service.AttemptPayout(r.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, service.ErrProviderUnavailable):
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		case errors.Is(err, payout.ErrNoPayoutMethod):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		case errors.Is(err, repository.ErrOrderNotEligible):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("retry payout attempt error", zap.Error(err), zap.String("order", orderID))
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// RefundOrder переводит оплату заказа в refunded.
func (h *Handler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	if err := h.service.RefundOrder(r.Context(), orderID); err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, model.ErrInvalidTransition):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		default:
			h.logger.Error("refund order error", zap.Error(err), zap.String("order", orderID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// PendingPayouts возвращает заказы, ожидающие выплаты.
func (h *Handler) PendingPayouts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.GetPendingPayouts(r.Context())
	if err != nil {
		h.logger.Error("pending payouts error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(rows) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}
