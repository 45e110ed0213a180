// Package service реализует бизнес-логику маркетплейса Flairies.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Maithiliii/Flairies/internal/ledger"
	"github.com/Maithiliii/Flairies/internal/model"
	"github.com/Maithiliii/Flairies/internal/notification"
	"github.com/Maithiliii/Flairies/internal/payout"
	"github.com/Maithiliii/Flairies/internal/repository"
)

// ErrBelowMinOrder возвращается для заказа дешевле платформенного минимума.
var (
	ErrBelowMinOrder = errors.New("order value below platform minimum")
	// ErrMethodNotAllowed возвращается, если объявление не допускает
	// выбранный способ оплаты.
	ErrMethodNotAllowed = errors.New("payment method not allowed for this listing")
	// ErrOwnListing возвращается при попытке купить собственное объявление.
	ErrOwnListing = errors.New("cannot order own listing")
	// ErrNotOrderParty возвращается, если пользователь не является стороной заказа.
	ErrNotOrderParty = errors.New("user is not a party of this order")
	// ErrProviderUnavailable возвращается при попытке выплаты без
	// настроенного провайдера. Проверяется до любых изменений состояния.
	ErrProviderUnavailable = errors.New("payout provider is not configured")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)

	CreateListing(ctx context.Context, l *model.Listing) (int64, error)
	GetListing(ctx context.Context, id int64) (*model.Listing, error)
	ListActiveListings(ctx context.Context) ([]model.Listing, error)
	DeactivateListing(ctx context.Context, id int64) error

	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, orderID string) (*model.Order, error)
	GetOrdersByBuyer(ctx context.Context, buyerID int64) ([]model.Order, error)
	GetOrdersBySeller(ctx context.Context, sellerID int64) ([]model.Order, error)
	ConfirmPayment(ctx context.Context, orderID, gatewayPaymentID, signature string) (bool, error)
	MarkPaymentFailed(ctx context.Context, orderID string) error
	RefundPayment(ctx context.Context, orderID string) error
	AdvanceFulfillment(ctx context.Context, orderID string, to model.FulfillmentStatus) error

	BeginPayout(ctx context.Context, orderID string) (*model.Order, error)
	CompletePayout(ctx context.Context, orderID, payoutRef string) error
	FailPayout(ctx context.Context, orderID string) error
	ResetFailedPayout(ctx context.Context, orderID string) error
	GetEligiblePayoutOrders(ctx context.Context, limit int) ([]model.Order, error)

	GetSellerProfile(ctx context.Context, userID int64) (*model.SellerProfile, error)
	SaveBankDetails(ctx context.Context, p *model.SellerProfile) error
	SetProviderContactID(ctx context.Context, userID int64, contactID string) error
	SetPushToken(ctx context.Context, userID int64, token string) error

	GetRevenueForPeriod(ctx context.Context, from, to time.Time) (*model.RevenueReport, error)
	GetTopSellers(ctx context.Context, limit int) ([]model.TopSeller, error)
	GetMethodBreakdown(ctx context.Context) (map[model.PaymentMethod]model.MethodBreakdown, error)
	GetPendingPayoutRows(ctx context.Context) ([]model.PendingPayoutRow, error)
}

// PayoutProvider описывает контракт провайдера выплат: одна логическая
// попытка перевода со своим исходом.
type PayoutProvider interface {
	AttemptTransfer(ctx context.Context, p *model.SellerProfile, amountMinor int64, orderID string) (*payout.TransferResult, error)
}

// Service содержит бизнес-логику маркетплейса Flairies.
type Service struct {
	repo     Repository
	provider PayoutProvider
	notifier *notification.Dispatcher
	settings model.PlatformSettings
	logger   *zap.Logger
}

// NewService создаёт сервис с указанным репозиторием, провайдером выплат
// и платформенными настройками.
func NewService(repo Repository, provider PayoutProvider, notifier *notification.Dispatcher, settings model.PlatformSettings, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		provider: provider,
		notifier: notifier,
		settings: settings,
		logger:   logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, login, password string) (int64, error) {
	hashed := hashPassword(login, password)
	id, err := s.repo.CreateUser(ctx, login, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return 0, repository.ErrUserExists
		}
		return 0, err
	}
	return id, nil
}

// AuthenticateUser проверяет логин и пароль пользователя и возвращает его идентификатор.
func (s *Service) AuthenticateUser(ctx context.Context, login, password string) (int64, error) {
	u, err := s.repo.GetUserByLogin(ctx, login)
	if err != nil {
		return 0, err
	}

	hashed := hashPassword(login, password)
	if hex.EncodeToString(hashed) != hex.EncodeToString(u.PasswordHash) {
		return 0, errors.New("invalid credentials")
	}

	return u.ID, nil
}

func hashPassword(login, password string) []byte {
	sum := sha256.Sum256([]byte(login + ":" + password))
	return sum[:]
}

// CreateListing публикует новое объявление продавца.
func (s *Service) CreateListing(ctx context.Context, l *model.Listing) (int64, error) {
	return s.repo.CreateListing(ctx, l)
}

// GetListing возвращает объявление по идентификатору.
func (s *Service) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	return s.repo.GetListing(ctx, id)
}

// ListActiveListings возвращает активные объявления.
func (s *Service) ListActiveListings(ctx context.Context) ([]model.Listing, error) {
	return s.repo.ListActiveListings(ctx)
}

// OrderRequest содержит данные для создания заказа.
type OrderRequest struct {
	BuyerID         int64
	ListingID       int64
	PaymentMethod   model.PaymentMethod
	BuyerName       string
	BuyerPhone      string
	DeliveryAddress string
}

// CreateOrder создаёт заказ: проверяет доступность объявления и способ
// оплаты, фиксирует разделение цены по текущим платформенным ставкам и
// сохраняет заказ. Для наложенного платежа объявление снимается сразу.
func (s *Service) CreateOrder(ctx context.Context, req OrderRequest) (*model.Order, error) {
	if !req.PaymentMethod.Valid() {
		return nil, ledger.ErrInvalidMethod
	}

	listing, err := s.repo.GetListing(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}

	if !listing.IsActive {
		return nil, repository.ErrListingNotAvailable
	}
	if listing.SellerID == req.BuyerID {
		return nil, ErrOwnListing
	}
	if !listing.AllowedMethods.Permits(req.PaymentMethod) {
		return nil, ErrMethodNotAllowed
	}

	price := listing.Price
	if listing.ListingType == model.ListingTypeRent {
		price = listing.RentPrice
	}

	if price.LessThan(s.settings.MinOrderValue) {
		return nil, ErrBelowMinOrder
	}

	split, err := ledger.ComputeSplit(price, req.PaymentMethod, s.settings)
	if err != nil {
		return nil, err
	}

	order := &model.Order{
		OrderID:            newOrderID(),
		BuyerID:            req.BuyerID,
		SellerID:           listing.SellerID,
		ListingID:          listing.ID,
		ItemPrice:          price,
		CommissionRate:     split.Rate,
		PlatformCommission: split.Commission,
		SellerEarnings:     split.Earnings,
		PaymentMethod:      req.PaymentMethod,
		PaymentStatus:      model.PaymentPending,
		FulfillmentStatus:  model.FulfillmentPending,
		PayoutStatus:       model.PayoutPending,
		BuyerName:          req.BuyerName,
		BuyerPhone:         req.BuyerPhone,
		DeliveryAddress:    req.DeliveryAddress,
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func newOrderID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("ORD%d", time.Now().UnixNano())
	}
	return "ORD" + hex.EncodeToString(buf)
}

// HandlePaymentCallback обрабатывает колбэк платёжного шлюза. Статус paid
// подтверждает оплату (идемпотентно: повтор колбэка — no-op), failed
// фиксирует неуспех, остальные статусы отклоняются.
func (s *Service) HandlePaymentCallback(ctx context.Context, orderID, gatewayPaymentID, signature, status string) error {
	switch status {
	case "paid":
		applied, err := s.repo.ConfirmPayment(ctx, orderID, gatewayPaymentID, signature)
		if err != nil {
			return err
		}
		if applied {
			s.notifySeller(ctx, orderID, notification.EventOrderConfirmed)
		}
		return nil
	case "failed":
		return s.repo.MarkPaymentFailed(ctx, orderID)
	default:
		return fmt.Errorf("unknown gateway payment status %q", status)
	}
}

// RefundOrder переводит оплату заказа в refunded.
func (s *Service) RefundOrder(ctx context.Context, orderID string) error {
	return s.repo.RefundPayment(ctx, orderID)
}

// UpdateFulfillment переводит логистический статус заказа. Продавец может
// выполнять любые переходы, покупатель — только отмену.
func (s *Service) UpdateFulfillment(ctx context.Context, userID int64, orderID string, to model.FulfillmentStatus) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	switch userID {
	case order.SellerID:
	case order.BuyerID:
		if to != model.FulfillmentCancelled {
			return ErrNotOrderParty
		}
	default:
		return ErrNotOrderParty
	}

	return s.repo.AdvanceFulfillment(ctx, orderID, to)
}

// GetOrdersByBuyer возвращает покупки пользователя.
func (s *Service) GetOrdersByBuyer(ctx context.Context, buyerID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByBuyer(ctx, buyerID)
}

// GetOrdersBySeller возвращает продажи пользователя.
func (s *Service) GetOrdersBySeller(ctx context.Context, sellerID int64) ([]model.Order, error) {
	return s.repo.GetOrdersBySeller(ctx, sellerID)
}

// SellerEarnings содержит балансы продавца и его продажи.
type SellerEarnings struct {
	Profile *model.SellerProfile
	Orders  []model.Order
}

// GetSellerEarnings возвращает балансы выплат продавца и список его продаж.
func (s *Service) GetSellerEarnings(ctx context.Context, sellerID int64) (*SellerEarnings, error) {
	profile, err := s.repo.GetSellerProfile(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.GetOrdersBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	return &SellerEarnings{Profile: profile, Orders: orders}, nil
}

// SaveBankDetails сохраняет платёжные реквизиты продавца.
func (s *Service) SaveBankDetails(ctx context.Context, p *model.SellerProfile) error {
	return s.repo.SaveBankDetails(ctx, p)
}

// GetSellerProfile возвращает профиль продавца.
func (s *Service) GetSellerProfile(ctx context.Context, userID int64) (*model.SellerProfile, error) {
	return s.repo.GetSellerProfile(ctx, userID)
}

// RegisterPushToken сохраняет push-токен пользователя.
func (s *Service) RegisterPushToken(ctx context.Context, userID int64, token string) error {
	return s.repo.SetPushToken(ctx, userID, token)
}

var minorUnits = decimal.NewFromInt(100)

// AttemptPayout выполняет одну попытку выплаты по заказу. Попытка по уже
// обрабатываемому или завершённому заказу молча пропускается. Отсутствие
// платёжных реквизитов отклоняется до обращения к провайдеру, статус
// выплаты при этом не меняется.
func (s *Service) AttemptPayout(ctx context.Context, orderID string) error {
	if s.provider == nil {
		return ErrProviderUnavailable
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	switch order.PayoutStatus {
	case model.PayoutProcessing, model.PayoutCompleted:
		s.logger.Info("payout already handled, skipping",
			zap.String("order", orderID),
			zap.String("payoutStatus", string(order.PayoutStatus)))
		return nil
	}

	if !order.PayoutEligible() {
		return repository.ErrOrderNotEligible
	}

	profile, err := s.repo.GetSellerProfile(ctx, order.SellerID)
	if err != nil {
		return err
	}
	if !profile.HasPayoutMethod() {
		return payout.ErrNoPayoutMethod
	}

	order, err = s.repo.BeginPayout(ctx, orderID)
	if err != nil {
		// Параллельная попытка успела первой — заказ уже в обработке.
		if errors.Is(err, repository.ErrPayoutInProgress) {
			s.logger.Info("payout captured by concurrent attempt, skipping", zap.String("order", orderID))
			return nil
		}
		return err
	}

	amountMinor := order.SellerEarnings.Mul(minorUnits).IntPart()

	res, err := s.provider.AttemptTransfer(ctx, profile, amountMinor, orderID)
	if err != nil {
		if failErr := s.repo.FailPayout(ctx, orderID); failErr != nil {
			s.logger.Error("mark payout failed", zap.String("order", orderID), zap.Error(failErr))
		}
		return fmt.Errorf("attempt transfer: %w", err)
	}

	if res.ContactID != "" && res.ContactID != profile.ProviderContactID {
		if err := s.repo.SetProviderContactID(ctx, order.SellerID, res.ContactID); err != nil {
			s.logger.Error("save provider contact", zap.Int64("seller", order.SellerID), zap.Error(err))
		}
	}

	if err := s.repo.CompletePayout(ctx, orderID, res.PayoutID); err != nil {
		return fmt.Errorf("complete payout: %w", err)
	}

	s.logger.Info("payout completed",
		zap.String("order", orderID),
		zap.Int64("seller", order.SellerID),
		zap.String("amount", order.SellerEarnings.String()))

	s.notifier.Notify(profile.PushToken, notification.EventPayoutCompleted, map[string]any{
		"order_id": orderID,
		"amount":   order.SellerEarnings.String(),
	})

	return nil
}

// ProcessAllPendingPayouts обрабатывает все заказы, готовые к выплате.
// Неуспех одного заказа не прерывает обработку остальных.
func (s *Service) ProcessAllPendingPayouts(ctx context.Context) (model.PayoutBatchResult, error) {
	if s.provider == nil {
		return model.PayoutBatchResult{}, ErrProviderUnavailable
	}

	orders, err := s.repo.GetEligiblePayoutOrders(ctx, 100)
	if err != nil {
		return model.PayoutBatchResult{}, err
	}

	result := model.PayoutBatchResult{Total: len(orders)}

	for _, o := range orders {
		if err := s.AttemptPayout(ctx, o.OrderID); err != nil {
			result.Failed++
			s.logger.Warn("payout attempt failed",
				zap.String("order", o.OrderID),
				zap.Error(err))
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

// RetryFailedPayout возвращает неудавшуюся выплату в очередь на повтор.
func (s *Service) RetryFailedPayout(ctx context.Context, orderID string) error {
	return s.repo.ResetFailedPayout(ctx, orderID)
}

func (s *Service) notifySeller(ctx context.Context, orderID, event string) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		s.logger.Warn("load order for notification", zap.String("order", orderID), zap.Error(err))
		return
	}

	profile, err := s.repo.GetSellerProfile(ctx, order.SellerID)
	if err != nil {
		s.logger.Warn("load seller for notification", zap.Int64("seller", order.SellerID), zap.Error(err))
		return
	}

	s.notifier.Notify(profile.PushToken, event, map[string]any{
		"order_id": orderID,
	})
}

// DailyRevenue возвращает сводку выручки за календарные сутки UTC.
func (s *Service) DailyRevenue(ctx context.Context, date time.Time) (*model.RevenueReport, error) {
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return s.repo.GetRevenueForPeriod(ctx, from, from.AddDate(0, 0, 1))
}

// MonthlyRevenue возвращает сводку выручки за календарный месяц UTC.
func (s *Service) MonthlyRevenue(ctx context.Context, year int, month time.Month) (*model.RevenueReport, error) {
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return s.repo.GetRevenueForPeriod(ctx, from, from.AddDate(0, 1, 0))
}

// RevenueSummary содержит общую картину выручки платформы.
type RevenueSummary struct {
	AllTime        *model.RevenueReport                          `json:"all_time"`
	Today          *model.RevenueReport                          `json:"today"`
	ThisMonth      *model.RevenueReport                          `json:"this_month"`
	PaymentMethods map[model.PaymentMethod]model.MethodBreakdown `json:"payment_methods"`
	TopSellers     []model.TopSeller                             `json:"top_sellers"`
	PendingPayouts []model.PendingPayoutRow                      `json:"pending_payouts"`
}

// GetRevenueSummary возвращает сводку выручки: за всё время, за сегодня,
// за текущий месяц, разбивку по способам оплаты, топ продавцов и
// ожидающие выплаты.
func (s *Service) GetRevenueSummary(ctx context.Context) (*RevenueSummary, error) {
	now := time.Now().UTC()

	allTime, err := s.repo.GetRevenueForPeriod(ctx, time.Time{}, now.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	today, err := s.DailyRevenue(ctx, now)
	if err != nil {
		return nil, err
	}

	month, err := s.MonthlyRevenue(ctx, now.Year(), now.Month())
	if err != nil {
		return nil, err
	}

	methods, err := s.repo.GetMethodBreakdown(ctx)
	if err != nil {
		return nil, err
	}

	topSellers, err := s.repo.GetTopSellers(ctx, 5)
	if err != nil {
		return nil, err
	}

	pending, err := s.repo.GetPendingPayoutRows(ctx)
	if err != nil {
		return nil, err
	}

	return &RevenueSummary{
		AllTime:        allTime,
		Today:          today,
		ThisMonth:      month,
		PaymentMethods: methods,
		TopSellers:     topSellers,
		PendingPayouts: pending,
	}, nil
}

// GetTopSellers возвращает топ продавцов по заработку.
func (s *Service) GetTopSellers(ctx context.Context, limit int) ([]model.TopSeller, error) {
	return s.repo.GetTopSellers(ctx, limit)
}

// GetPendingPayouts возвращает сводку по заказам, ожидающим выплаты.
func (s *Service) GetPendingPayouts(ctx context.Context) ([]model.PendingPayoutRow, error) {
	return s.repo.GetPendingPayoutRows(ctx)
}

// StartPayoutWorker запускает фоновую пакетную обработку выплат с указанным
// интервалом. Останавливается при отмене контекста.
func (s *Service) StartPayoutWorker(ctx context.Context, interval time.Duration) {
	if s.provider == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := s.ProcessAllPendingPayouts(ctx)
				if err != nil {
					s.logger.Error("payout batch error", zap.Error(err))
					continue
				}
				if result.Total > 0 {
					s.logger.Info("payout batch finished",
						zap.Int("total", result.Total),
						zap.Int("succeeded", result.Succeeded),
						zap.Int("failed", result.Failed))
				}
			}
		}
	}()
}
