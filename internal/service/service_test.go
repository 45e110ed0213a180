package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Maithiliii/Flairies/internal/model"
	"github.com/Maithiliii/Flairies/internal/payout"
	"github.com/Maithiliii/Flairies/internal/repository"
)

type stubRepo struct {
	listings map[int64]*model.Listing
	orders   map[string]*model.Order
	profiles map[int64]*model.SellerProfile

	createdOrders  []*model.Order
	confirmApplied bool
	confirmCalls   int
	failPayouts    []string
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		listings: make(map[int64]*model.Listing),
		orders:   make(map[string]*model.Order),
		profiles: make(map[int64]*model.SellerProfile),
	}
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	return 0, nil
}

func (s *stubRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (s *stubRepo) CreateListing(ctx context.Context, l *model.Listing) (int64, error) {
	id := int64(len(s.listings) + 1)
	l.ID = id
	s.listings[id] = l
	return id, nil
}

func (s *stubRepo) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *stubRepo) ListActiveListings(ctx context.Context) ([]model.Listing, error) {
	return nil, nil
}

func (s *stubRepo) DeactivateListing(ctx context.Context, id int64) error {
	if l, ok := s.listings[id]; ok {
		l.IsActive = false
	}
	return nil
}

func (s *stubRepo) CreateOrder(ctx context.Context, o *model.Order) error {
	l, ok := s.listings[o.ListingID]
	if !ok {
		return repository.ErrListingNotFound
	}
	if !l.IsActive {
		return repository.ErrListingNotAvailable
	}
	if o.PaymentMethod == model.PaymentMethodCOD {
		l.IsActive = false
	}
	s.orders[o.OrderID] = o
	s.createdOrders = append(s.createdOrders, o)
	return nil
}

func (s *stubRepo) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubRepo) GetOrdersByBuyer(ctx context.Context, buyerID int64) ([]model.Order, error) {
	return nil, nil
}

func (s *stubRepo) GetOrdersBySeller(ctx context.Context, sellerID int64) ([]model.Order, error) {
	return nil, nil
}

func (s *stubRepo) ConfirmPayment(ctx context.Context, orderID, gatewayPaymentID, signature string) (bool, error) {
	s.confirmCalls++
	o, ok := s.orders[orderID]
	if !ok {
		return false, repository.ErrOrderNotFound
	}
	if o.PaymentStatus == model.PaymentPaid {
		return false, nil
	}
	if o.PaymentStatus != model.PaymentPending || o.FulfillmentStatus != model.FulfillmentPending {
		return false, model.ErrInvalidTransition
	}

	o.PaymentStatus = model.PaymentPaid
	o.FulfillmentStatus = model.FulfillmentConfirmed
	o.GatewayPaymentID = gatewayPaymentID
	s.listings[o.ListingID].IsActive = false

	p := s.profiles[o.SellerID]
	p.TotalEarnings = p.TotalEarnings.Add(o.SellerEarnings)
	p.PendingPayout = p.PendingPayout.Add(o.SellerEarnings)

	s.confirmApplied = true
	return true, nil
}

func (s *stubRepo) MarkPaymentFailed(ctx context.Context, orderID string) error {
	return nil
}

func (s *stubRepo) RefundPayment(ctx context.Context, orderID string) error {
	return nil
}

func (s *stubRepo) AdvanceFulfillment(ctx context.Context, orderID string, to model.FulfillmentStatus) error {
	o, ok := s.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if err := model.ValidateFulfillmentTransition(o.FulfillmentStatus, to); err != nil {
		return err
	}
	o.FulfillmentStatus = to
	return nil
}

func (s *stubRepo) BeginPayout(ctx context.Context, orderID string) (*model.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	if !o.PayoutEligible() {
		switch o.PayoutStatus {
		case model.PayoutProcessing, model.PayoutCompleted:
			return nil, repository.ErrPayoutInProgress
		default:
			return nil, repository.ErrOrderNotEligible
		}
	}
	o.PayoutStatus = model.PayoutProcessing
	cp := *o
	return &cp, nil
}

func (s *stubRepo) CompletePayout(ctx context.Context, orderID, payoutRef string) error {
	o := s.orders[orderID]
	if o.PayoutStatus != model.PayoutProcessing {
		return model.ErrInvalidTransition
	}
	o.PayoutStatus = model.PayoutCompleted
	o.PayoutRef = payoutRef

	p := s.profiles[o.SellerID]
	p.PendingPayout = p.PendingPayout.Sub(o.SellerEarnings)
	p.TotalPaidOut = p.TotalPaidOut.Add(o.SellerEarnings)
	return nil
}

func (s *stubRepo) FailPayout(ctx context.Context, orderID string) error {
	o := s.orders[orderID]
	if o.PayoutStatus != model.PayoutProcessing {
		return model.ErrInvalidTransition
	}
	o.PayoutStatus = model.PayoutFailed
	s.failPayouts = append(s.failPayouts, orderID)
	return nil
}

func (s *stubRepo) ResetFailedPayout(ctx context.Context, orderID string) error {
	o, ok := s.orders[orderID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.PayoutStatus != model.PayoutFailed {
		return model.ErrInvalidTransition
	}
	o.PayoutStatus = model.PayoutPending
	return nil
}

func (s *stubRepo) GetEligiblePayoutOrders(ctx context.Context, limit int) ([]model.Order, error) {
	var res []model.Order
	for _, o := range s.orders {
		if o.PayoutEligible() {
			res = append(res, *o)
		}
	}
	return res, nil
}

func (s *stubRepo) GetSellerProfile(ctx context.Context, userID int64) (*model.SellerProfile, error) {
	p, ok := s.profiles[userID]
	if !ok {
		return nil, repository.ErrSellerNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *stubRepo) SaveBankDetails(ctx context.Context, p *model.SellerProfile) error {
	return nil
}

func (s *stubRepo) SetProviderContactID(ctx context.Context, userID int64, contactID string) error {
	if p, ok := s.profiles[userID]; ok {
		p.ProviderContactID = contactID
	}
	return nil
}

func (s *stubRepo) SetPushToken(ctx context.Context, userID int64, token string) error {
	return nil
}

func (s *stubRepo) GetRevenueForPeriod(ctx context.Context, from, to time.Time) (*model.RevenueReport, error) {
	return &model.RevenueReport{}, nil
}

func (s *stubRepo) GetTopSellers(ctx context.Context, limit int) ([]model.TopSeller, error) {
	return nil, nil
}

func (s *stubRepo) GetMethodBreakdown(ctx context.Context) (map[model.PaymentMethod]model.MethodBreakdown, error) {
	return nil, nil
}

func (s *stubRepo) GetPendingPayoutRows(ctx context.Context) ([]model.PendingPayoutRow, error) {
	return nil, nil
}

type stubProvider struct {
	calls    int
	failFor  map[string]bool
	transfer []string
}

func (p *stubProvider) AttemptTransfer(ctx context.Context, profile *model.SellerProfile, amountMinor int64, orderID string) (*payout.TransferResult, error) {
	p.calls++
	p.transfer = append(p.transfer, orderID)
	if p.failFor[orderID] {
		return nil, fmt.Errorf("%w: transfer rejected", payout.ErrProvider)
	}
	return &payout.TransferResult{
		PayoutID:  "pout_" + orderID,
		ContactID: "cont_1",
	}, nil
}

func testSettings() model.PlatformSettings {
	return model.PlatformSettings{
		CommissionRate:    decimal.NewFromInt(15),
		CODCommissionRate: decimal.Zero,
		MinOrderValue:     decimal.NewFromInt(50),
	}
}

func addListing(repo *stubRepo, sellerID int64, price string) *model.Listing {
	l := &model.Listing{
		SellerID:       sellerID,
		Title:          "dress",
		ListingType:    model.ListingTypeSell,
		Price:          decimal.RequireFromString(price),
		AllowedMethods: model.AllowedMethodsBoth,
		IsActive:       true,
	}
	repo.CreateListing(context.Background(), l)
	return l
}

func addProfile(repo *stubRepo, userID int64, upi string) *model.SellerProfile {
	p := &model.SellerProfile{UserID: userID, UPIID: upi}
	repo.profiles[userID] = p
	return p
}

func TestCreateOrder_OnlineSplitSnapshot(t *testing.T) {
	repo := newStubRepo()
	addListing(repo, 2, "1000")
	addProfile(repo, 2, "seller@upi")

	svc := NewService(repo, &stubProvider{}, nil, testSettings(), nil)

	order, err := svc.CreateOrder(context.Background(), OrderRequest{
		BuyerID:       1,
		ListingID:     1,
		PaymentMethod: model.PaymentMethodOnline,
		BuyerName:     "Buyer",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if !order.PlatformCommission.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("commission = %s, want 150.00", order.PlatformCommission)
	}
	if !order.SellerEarnings.Equal(decimal.RequireFromString("850.00")) {
		t.Fatalf("earnings = %s, want 850.00", order.SellerEarnings)
	}
	if !order.CommissionRate.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("rate = %s, want 15", order.CommissionRate)
	}
	if order.PaymentStatus != model.PaymentPending || order.PayoutStatus != model.PayoutPending {
		t.Fatalf("unexpected initial statuses: %+v", order)
	}
	// Онлайн-заказ не снимает объявление до подтверждения оплаты.
	if !repo.listings[1].IsActive {
		t.Fatalf("online order must not deactivate listing before payment")
	}
}

func TestCreateOrder_CODDeactivatesListing(t *testing.T) {
	repo := newStubRepo()
	addListing(repo, 2, "1000")
	addProfile(repo, 2, "seller@upi")

	svc := NewService(repo, &stubProvider{}, nil, testSettings(), nil)

	order, err := svc.CreateOrder(context.Background(), OrderRequest{
		BuyerID:       1,
		ListingID:     1,
		PaymentMethod: model.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if !order.PlatformCommission.IsZero() {
		t.Fatalf("cod commission = %s, want 0", order.PlatformCommission)
	}
	if !order.SellerEarnings.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("cod earnings = %s, want 1000", order.SellerEarnings)
	}
	if repo.listings[1].IsActive {
		t.Fatalf("cod order must deactivate listing immediately")
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	repo := newStubRepo()
	l := addListing(repo, 2, "1000")
	addProfile(repo, 2, "seller@upi")

	svc := NewService(repo, &stubProvider{}, nil, testSettings(), nil)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, OrderRequest{BuyerID: 2, ListingID: 1, PaymentMethod: model.PaymentMethodOnline})
	if !errors.Is(err, ErrOwnListing) {
		t.Fatalf("error = %v, want ErrOwnListing", err)
	}

	l.IsActive = false
	_, err = svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: 1, PaymentMethod: model.PaymentMethodOnline})
	if !errors.Is(err, repository.ErrListingNotAvailable) {
		t.Fatalf("error = %v, want ErrListingNotAvailable", err)
	}
	l.IsActive = true

	cheap := addListing(repo, 2, "10")
	_, err = svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: cheap.ID, PaymentMethod: model.PaymentMethodOnline})
	if !errors.Is(err, ErrBelowMinOrder) {
		t.Fatalf("error = %v, want ErrBelowMinOrder", err)
	}

	onlineOnly := addListing(repo, 2, "1000")
	onlineOnly.AllowedMethods = model.AllowedMethodsOnline
	repo.listings[onlineOnly.ID] = onlineOnly
	_, err = svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: onlineOnly.ID, PaymentMethod: model.PaymentMethodCOD})
	if !errors.Is(err, ErrMethodNotAllowed) {
		t.Fatalf("error = %v, want ErrMethodNotAllowed", err)
	}
}

func TestHandlePaymentCallback_PaidIsIdempotent(t *testing.T) {
	repo := newStubRepo()
	addListing(repo, 2, "1000")
	addProfile(repo, 2, "seller@upi")

	svc := NewService(repo, &stubProvider{}, nil, testSettings(), nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: 1, PaymentMethod: model.PaymentMethodOnline})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if err := svc.HandlePaymentCallback(ctx, order.OrderID, "pay_1", "sig", "paid"); err != nil {
		t.Fatalf("HandlePaymentCallback error: %v", err)
	}

	stored := repo.orders[order.OrderID]
	if stored.PaymentStatus != model.PaymentPaid {
		t.Fatalf("payment status = %s, want paid", stored.PaymentStatus)
	}
	if stored.FulfillmentStatus != model.FulfillmentConfirmed {
		t.Fatalf("fulfillment status = %s, want confirmed", stored.FulfillmentStatus)
	}
	if repo.listings[1].IsActive {
		t.Fatalf("listing must be deactivated on payment")
	}

	profile := repo.profiles[2]
	if !profile.TotalEarnings.Equal(decimal.RequireFromString("850.00")) {
		t.Fatalf("accrued earnings = %s, want 850.00", profile.TotalEarnings)
	}

	// Повтор колбэка шлюза — no-op: статусы и балансы не меняются.
	if err := svc.HandlePaymentCallback(ctx, order.OrderID, "pay_1", "sig", "paid"); err != nil {
		t.Fatalf("repeated callback error: %v", err)
	}
	if stored.FulfillmentStatus != model.FulfillmentConfirmed {
		t.Fatalf("fulfillment advanced past confirmed on repeat: %s", stored.FulfillmentStatus)
	}
	if !profile.TotalEarnings.Equal(decimal.RequireFromString("850.00")) {
		t.Fatalf("earnings double-accrued: %s", profile.TotalEarnings)
	}
	if repo.confirmCalls != 2 {
		t.Fatalf("confirm calls = %d, want 2", repo.confirmCalls)
	}
}

func TestHandlePaymentCallback_UnknownStatus(t *testing.T) {
	svc := NewService(newStubRepo(), &stubProvider{}, nil, testSettings(), nil)

	err := svc.HandlePaymentCallback(context.Background(), "ORD1", "pay", "sig", "maybe")
	if err == nil {
		t.Fatalf("expected error for unknown gateway status")
	}
}

// deliverOrder прогоняет заказ до состояния, готового к выплате.
func deliverOrder(t *testing.T, svc *Service, repo *stubRepo, orderID string) {
	t.Helper()
	ctx := context.Background()

	if err := svc.HandlePaymentCallback(ctx, orderID, "pay_"+orderID, "sig", "paid"); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if err := repo.AdvanceFulfillment(ctx, orderID, model.FulfillmentShipped); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if err := repo.AdvanceFulfillment(ctx, orderID, model.FulfillmentDelivered); err != nil {
		t.Fatalf("deliver: %v", err)
	}
}

func TestAttemptPayout_Success(t *testing.T) {
	repo := newStubRepo()
	addListing(repo, 2, "1000")
	addProfile(repo, 2, "seller@upi")
	provider := &stubProvider{}

	svc := NewService(repo, provider, nil, testSettings(), nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: 1, PaymentMethod: model.PaymentMethodOnline})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	deliverOrder(t, svc, repo, order.OrderID)

	if err := svc.AttemptPayout(ctx, order.OrderID); err != nil {
		t.Fatalf("AttemptPayout error: %v", err)
	}

	stored := repo.orders[order.OrderID]
	if stored.PayoutStatus != model.PayoutCompleted {
		t.Fatalf("payout status = %s, want completed", stored.PayoutStatus)
	}
	if stored.PayoutRef != "pout_"+order.OrderID {
		t.Fatalf("payout ref = %s", stored.PayoutRef)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", provider.calls)
	}

	p := repo.profiles[2]
	if !p.TotalPaidOut.Equal(decimal.RequireFromString("850.00")) {
		t.Fatalf("total paid out = %s, want 850.00", p.TotalPaidOut)
	}
	if !p.PendingPayout.Equal(p.TotalEarnings.Sub(p.TotalPaidOut)) {
		t.Fatalf("ledger invariant violated: pending %s, earnings %s, paid out %s",
			p.PendingPayout, p.TotalEarnings, p.TotalPaidOut)
	}
	if p.ProviderContactID != "cont_1" {
		t.Fatalf("provider contact id = %s, want cont_1", p.ProviderContactID)
	}
}

func TestAttemptPayout_IdempotentWhenAlreadyHandled(t *testing.T) {
	repo := newStubRepo()
	addListing(repo, 2, "1000")
	addProfile(repo, 2, "seller@upi")
	provider := &stubProvider{}

	svc := NewService(repo, provider, nil, testSettings(), nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: 1, PaymentMethod: model.PaymentMethodOnline})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	deliverOrder(t, svc, repo, order.OrderID)

	if err := svc.AttemptPayout(ctx, order.OrderID); err != nil {
		t.Fatalf("first attempt: %v", err)
	}

	paidOutBefore := repo.profiles[2].TotalPaidOut

	// Повторная попытка по завершённой выплате — молчаливый пропуск.
	if err := svc.AttemptPayout(ctx, order.OrderID); err != nil {
		t.Fatalf("second attempt: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider calls = %d, want 1 (no duplicate transfer)", provider.calls)
	}
	if !repo.profiles[2].TotalPaidOut.Equal(paidOutBefore) {
		t.Fatalf("ledger mutated by repeated attempt")
	}

	// То же для заказа в processing.
	repo.orders[order.OrderID].PayoutStatus = model.PayoutProcessing
	if err := svc.AttemptPayout(ctx, order.OrderID); err != nil {
		t.Fatalf("attempt on processing order: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider called for processing order")
	}
}

func TestAttemptPayout_NotDelivered(t *testing.T) {
	repo := newStubRepo()
	addListing(repo, 2, "1000")
	addProfile(repo, 2, "seller@upi")
	provider := &stubProvider{}

	svc := NewService(repo, provider, nil, testSettings(), nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: 1, PaymentMethod: model.PaymentMethodOnline})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if err := svc.HandlePaymentCallback(ctx, order.OrderID, "pay", "sig", "paid"); err != nil {
		t.Fatalf("pay: %v", err)
	}
	if err := repo.AdvanceFulfillment(ctx, order.OrderID, model.FulfillmentShipped); err != nil {
		t.Fatalf("ship: %v", err)
	}

	err = svc.AttemptPayout(ctx, order.OrderID)
	if !errors.Is(err, repository.ErrOrderNotEligible) {
		t.Fatalf("error = %v, want ErrOrderNotEligible", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called for undelivered order")
	}
	if repo.orders[order.OrderID].PayoutStatus != model.PayoutPending {
		t.Fatalf("payout status changed: %s", repo.orders[order.OrderID].PayoutStatus)
	}
}

func TestAttemptPayout_NoPayoutMethod(t *testing.T) {
	repo := newStubRepo()
	addListing(repo, 2, "1000")
	addProfile(repo, 2, "")
	provider := &stubProvider{}

	svc := NewService(repo, provider, nil, testSettings(), nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: 1, PaymentMethod: model.PaymentMethodOnline})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	deliverOrder(t, svc, repo, order.OrderID)

	err = svc.AttemptPayout(ctx, order.OrderID)
	if !errors.Is(err, payout.ErrNoPayoutMethod) {
		t.Fatalf("error = %v, want ErrNoPayoutMethod", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called without payout method")
	}
	if repo.orders[order.OrderID].PayoutStatus != model.PayoutPending {
		t.Fatalf("payout status must stay pending, got %s", repo.orders[order.OrderID].PayoutStatus)
	}
}

func TestAttemptPayout_NoProvider(t *testing.T) {
	repo := newStubRepo()
	addListing(repo, 2, "1000")
	addProfile(repo, 2, "seller@upi")

	svc := NewService(repo, nil, nil, testSettings(), nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: 1, PaymentMethod: model.PaymentMethodOnline})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	deliverOrder(t, svc, repo, order.OrderID)

	// Без провайдера попытка отклоняется до каких-либо изменений:
	// заказ не должен застрять в processing.
	err = svc.AttemptPayout(ctx, order.OrderID)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("error = %v, want ErrProviderUnavailable", err)
	}
	if repo.orders[order.OrderID].PayoutStatus != model.PayoutPending {
		t.Fatalf("payout status = %s, want pending", repo.orders[order.OrderID].PayoutStatus)
	}

	p := repo.profiles[2]
	if !p.TotalPaidOut.IsZero() || !p.PendingPayout.Equal(p.TotalEarnings) {
		t.Fatalf("ledger mutated without provider: paid out %s, pending %s", p.TotalPaidOut, p.PendingPayout)
	}

	if _, err := svc.ProcessAllPendingPayouts(ctx); !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("batch error = %v, want ErrProviderUnavailable", err)
	}
}

func TestAttemptPayout_ProviderFailure(t *testing.T) {
	repo := newStubRepo()
	addListing(repo, 2, "1000")
	addProfile(repo, 2, "seller@upi")

	svc := NewService(repo, &stubProvider{failFor: map[string]bool{}}, nil, testSettings(), nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: 1, PaymentMethod: model.PaymentMethodOnline})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	deliverOrder(t, svc, repo, order.OrderID)

	svc.provider.(*stubProvider).failFor[order.OrderID] = true

	err = svc.AttemptPayout(ctx, order.OrderID)
	if !errors.Is(err, payout.ErrProvider) {
		t.Fatalf("error = %v, want ErrProvider", err)
	}

	stored := repo.orders[order.OrderID]
	if stored.PayoutStatus != model.PayoutFailed {
		t.Fatalf("payout status = %s, want failed", stored.PayoutStatus)
	}

	p := repo.profiles[2]
	if !p.TotalPaidOut.IsZero() {
		t.Fatalf("ledger mutated on failed payout: paid out %s", p.TotalPaidOut)
	}
	if !p.PendingPayout.Equal(p.TotalEarnings) {
		t.Fatalf("pending payout changed on failure: %s", p.PendingPayout)
	}

	// Неудавшаяся выплата возвращается в очередь и проходит при повторе.
	if err := svc.RetryFailedPayout(ctx, order.OrderID); err != nil {
		t.Fatalf("RetryFailedPayout error: %v", err)
	}
	svc.provider.(*stubProvider).failFor[order.OrderID] = false
	if err := svc.AttemptPayout(ctx, order.OrderID); err != nil {
		t.Fatalf("retry attempt: %v", err)
	}
	if repo.orders[order.OrderID].PayoutStatus != model.PayoutCompleted {
		t.Fatalf("payout status after retry = %s, want completed", repo.orders[order.OrderID].PayoutStatus)
	}
}

func TestProcessAllPendingPayouts_OneFailureDoesNotAbortBatch(t *testing.T) {
	repo := newStubRepo()
	addProfile(repo, 2, "seller@upi")
	provider := &stubProvider{failFor: map[string]bool{}}

	svc := NewService(repo, provider, nil, testSettings(), nil)
	ctx := context.Background()

	var orderIDs []string
	for i := 0; i < 5; i++ {
		l := addListing(repo, 2, "1000")
		order, err := svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: l.ID, PaymentMethod: model.PaymentMethodOnline})
		if err != nil {
			t.Fatalf("CreateOrder error: %v", err)
		}
		deliverOrder(t, svc, repo, order.OrderID)
		orderIDs = append(orderIDs, order.OrderID)
	}

	provider.failFor[orderIDs[2]] = true

	result, err := svc.ProcessAllPendingPayouts(ctx)
	if err != nil {
		t.Fatalf("ProcessAllPendingPayouts error: %v", err)
	}

	if result.Total != 5 || result.Succeeded != 4 || result.Failed != 1 {
		t.Fatalf("result = %+v, want {5 4 1}", result)
	}

	for i, id := range orderIDs {
		want := model.PayoutCompleted
		if i == 2 {
			want = model.PayoutFailed
		}
		if repo.orders[id].PayoutStatus != want {
			t.Fatalf("order %d payout status = %s, want %s", i, repo.orders[id].PayoutStatus, want)
		}
	}

	// 4 успешных заказа по 850.00: балансы продавца сходятся.
	p := repo.profiles[2]
	if !p.TotalPaidOut.Equal(decimal.RequireFromString("3400.00")) {
		t.Fatalf("total paid out = %s, want 3400.00", p.TotalPaidOut)
	}
	if !p.PendingPayout.Equal(p.TotalEarnings.Sub(p.TotalPaidOut)) {
		t.Fatalf("ledger invariant violated after batch")
	}
}

func TestUpdateFulfillment_Authorization(t *testing.T) {
	repo := newStubRepo()
	addListing(repo, 2, "1000")
	addProfile(repo, 2, "seller@upi")

	svc := NewService(repo, &stubProvider{}, nil, testSettings(), nil)
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, OrderRequest{BuyerID: 1, ListingID: 1, PaymentMethod: model.PaymentMethodOnline})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if err := svc.UpdateFulfillment(ctx, 99, order.OrderID, model.FulfillmentConfirmed); !errors.Is(err, ErrNotOrderParty) {
		t.Fatalf("stranger error = %v, want ErrNotOrderParty", err)
	}

	if err := svc.UpdateFulfillment(ctx, 1, order.OrderID, model.FulfillmentConfirmed); !errors.Is(err, ErrNotOrderParty) {
		t.Fatalf("buyer advance error = %v, want ErrNotOrderParty", err)
	}

	if err := svc.UpdateFulfillment(ctx, 1, order.OrderID, model.FulfillmentCancelled); err != nil {
		t.Fatalf("buyer cancel error: %v", err)
	}
	if repo.orders[order.OrderID].FulfillmentStatus != model.FulfillmentCancelled {
		t.Fatalf("order not cancelled")
	}

	// Из терминального состояния переходов нет.
	err = svc.UpdateFulfillment(ctx, 2, order.OrderID, model.FulfillmentConfirmed)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("error = %v, want ErrInvalidTransition", err)
	}
}

func TestStartPayoutWorker_NoProvider(t *testing.T) {
	svc := &Service{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		svc.StartPayoutWorker(ctx, time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("StartPayoutWorker did not return without provider")
	}
}
